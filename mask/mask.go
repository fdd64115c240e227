// Package mask builds variant sets ("genes") with a cumulative minor
// allele count in a given range. Null masks are random windows of
// permuted variants; causal masks mix selected causal variants with
// non-causal filler.
package mask

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/op/go-logging"

	"github.com/Zhiwen-Owen-Jiang/simu-package/cmac"
)

var log = logging.MustGetLogger("mask")

var (
	// ErrNoEligibleMAC is returned when no variant has a small enough
	// minor allele count for the requested cMAC.
	ErrNoEligibleMAC = errors.New("no minor allele count fits the target")
	// ErrExhausted is returned when a bin could not be filled within
	// the allowed number of attempts.
	ErrExhausted = errors.New("maximum number of attempts reached")
)

// DefaultMaxAttempts is the default limit of sampling rounds per
// chromosome and bin.
const DefaultMaxAttempts = 100000

// Gene is a variant set, indices are local to a chromosome.
type Gene []int

// CMAC returns the cumulative minor allele count of the gene.
func (g Gene) CMAC(mac []int) (s int) {
	for _, v := range g {
		s += mac[v]
	}
	return
}

// BinGenes are the genes generated for one bin.
type BinGenes struct {
	Bin   cmac.Bin
	Genes []Gene
}

// Chromosome stores genes of all the bins of a chromosome.
type Chromosome struct {
	Chr  int
	Bins []BinGenes
}

// Masks are genes of all chromosomes, in the chromosome order of the
// builder input.
type Masks []Chromosome

// Input describes a chromosome for the mask builders.
type Input struct {
	Chr int
	// MAC is the minor allele count of every variant.
	MAC []int
	// Causal are the causal variant indices (power mode only).
	Causal []int
}

// Builder generates masks with count genes per bin over all
// chromosomes.
type Builder interface {
	Build(chrs []Input, count int) (Masks, error)
}

// NGenes returns the number of genes per bin label.
func (m Masks) NGenes() map[string]int {
	res := make(map[string]int)
	for _, c := range m {
		for _, bg := range c.Bins {
			res[bg.Bin.Label()] += len(bg.Genes)
		}
	}
	return res
}

// Validate checks that every gene consists of valid variant indices
// and that its cMAC lies in its bin.
func (m Masks) Validate(chrs []Input) error {
	macs := make(map[int][]int, len(chrs))
	for _, c := range chrs {
		macs[c.Chr] = c.MAC
	}
	for _, c := range m {
		mac, ok := macs[c.Chr]
		if !ok {
			return fmt.Errorf("chr%d: unknown chromosome", c.Chr)
		}
		for _, bg := range c.Bins {
			for i, g := range bg.Genes {
				if len(g) == 0 {
					return fmt.Errorf("chr%d, bin %v: gene %d is empty", c.Chr, bg.Bin, i)
				}
				for _, v := range g {
					if v < 0 || v >= len(mac) {
						return fmt.Errorf("chr%d, bin %v: gene %d has invalid variant %d", c.Chr, bg.Bin, i, v)
					}
				}
				if s := g.CMAC(mac); !bg.Bin.Contains(s) {
					return fmt.Errorf("chr%d, bin %v: gene %d has cMAC %d", c.Chr, bg.Bin, i, s)
				}
			}
		}
	}
	return nil
}

// quotas computes the number of genes per bin for every chromosome.
func quotas(chrs []Input, count int) []int {
	n := make([]int, len(chrs))
	for i, c := range chrs {
		n[i] = len(c.MAC)
	}
	return cmac.Quotas(n, count)
}

// settings are shared by the builders.
type settings struct {
	rnd         *rand.Rand
	bins        []cmac.Bin
	maxAttempts int
}

func newSettings(rnd *rand.Rand, bins []cmac.Bin, maxAttempts int) settings {
	if bins == nil {
		bins = cmac.DefaultBins
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return settings{rnd: rnd, bins: bins, maxAttempts: maxAttempts}
}
