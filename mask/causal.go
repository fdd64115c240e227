package mask

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/Zhiwen-Owen-Jiang/simu-package/cmac"
	"github.com/Zhiwen-Owen-Jiang/simu-package/datafile"
)

const (
	// causalShare of the bin midpoint bounds the causal cMAC.
	causalShare = 0.5
	// fillTries is the number of non-causal fillers drawn for every
	// causal combination.
	fillTries = 10
)

// CausalBuilder creates masks for power evaluation: every gene
// contains causal variants contributing part of its cMAC, the rest is
// filled with non-causal variants.
type CausalBuilder struct {
	settings
}

// NewCausalBuilder creates a causal mask builder. If bins is nil, the
// default bins are used; maxAttempts <= 0 selects the default limit of
// causal draws per chromosome and bin.
func NewCausalBuilder(rnd *rand.Rand, bins []cmac.Bin, maxAttempts int) *CausalBuilder {
	return &CausalBuilder{newSettings(rnd, bins, maxAttempts)}
}

// causalRange returns the range [1, hi) of the causal cMAC for bin.
func causalRange(bin cmac.Bin) int {
	hi := int(float64(bin.Mid()) * causalShare)
	if hi < 2 {
		hi = 2
	}
	return hi
}

// splitCausal returns sorted unique causal indices and the remaining
// variants.
func splitCausal(n int, causal []int) (causalIdx, rest []int, err error) {
	isCausal := make([]bool, n)
	for _, v := range causal {
		if v < 0 || v >= n {
			return nil, nil, fmt.Errorf("causal index %d is out of range [0, %d)", v, n)
		}
		isCausal[v] = true
	}
	for v, c := range isCausal {
		if c {
			causalIdx = append(causalIdx, v)
		} else {
			rest = append(rest, v)
		}
	}
	return causalIdx, rest, nil
}

// Build generates count genes per bin, split between chromosomes
// proportionally to their number of variants.
func (b *CausalBuilder) Build(chrs []Input, count int) (Masks, error) {
	for _, bin := range b.bins {
		if bin.Hi-(causalRange(bin)-1) < 1 {
			return nil, fmt.Errorf("bin %v cannot hold causal variants", bin)
		}
	}
	q := quotas(chrs, count)
	masks := make(Masks, 0, len(chrs))
	for i, c := range chrs {
		causalIdx, rest, err := splitCausal(len(c.MAC), c.Causal)
		if err != nil {
			return nil, fmt.Errorf("chr%d: %w", c.Chr, err)
		}
		causalPool := NewPool(c.MAC, causalIdx)
		pool := NewPool(c.MAC, rest)
		log.Infof("chr%d: %d variants (%d causal), %d genes per bin", c.Chr, len(c.MAC), len(causalIdx), q[i])
		if q[i] > 0 && causalPool.Len() == 0 {
			return nil, fmt.Errorf("chr%d: no causal variants with non-zero minor allele count", c.Chr)
		}

		mc := Chromosome{Chr: c.Chr, Bins: make([]BinGenes, 0, len(b.bins))}
		for _, bin := range b.bins {
			genes, err := b.buildBin(causalPool, pool, bin, q[i])
			if err != nil {
				return nil, fmt.Errorf("chr%d, bin %v: %w", c.Chr, bin, err)
			}
			log.Debugf("chr%d, bin %v: %d genes", c.Chr, bin, len(genes))
			mc.Bins = append(mc.Bins, BinGenes{Bin: bin, Genes: genes})
		}
		masks = append(masks, mc)
	}
	return masks, nil
}

// buildBin draws causal combinations and completes each of them with
// up to fillTries non-causal fillers.
func (b *CausalBuilder) buildBin(causalPool, pool *Pool, bin cmac.Bin, quota int) ([]Gene, error) {
	genes := make([]Gene, 0, quota)
	if quota <= 0 {
		return genes, nil
	}
	hi := causalRange(bin)
	var lastErr error
	for attempt := 0; len(genes) < quota; attempt++ {
		if attempt >= b.maxAttempts {
			return nil, fmt.Errorf("%w: %d of %d genes after %d causal draws (last error: %v)",
				ErrExhausted, len(genes), quota, b.maxAttempts, lastErr)
		}
		causalCMAC := 1 + b.rnd.Intn(hi-1)
		causal, err := Select(b.rnd, causalPool, causalCMAC)
		if err != nil {
			if !errors.Is(err, ErrNoEligibleMAC) && !errors.Is(err, ErrExhausted) {
				return nil, err
			}
			lastErr = err
			continue
		}
		fillLo := bin.Lo - causalCMAC
		if fillLo < 1 {
			fillLo = 1
		}
		fillHi := bin.Hi - causalCMAC + 1
		for try := 0; try < fillTries && len(genes) < quota; try++ {
			fillCMAC := fillLo + b.rnd.Intn(fillHi-fillLo)
			filler, err := Select(b.rnd, pool, fillCMAC)
			if err != nil {
				if !errors.Is(err, ErrNoEligibleMAC) && !errors.Is(err, ErrExhausted) {
					return nil, err
				}
				lastErr = err
				continue
			}
			gene := make(Gene, 0, len(filler)+len(causal))
			gene = append(gene, filler...)
			gene = append(gene, causal...)
			genes = append(genes, gene)
		}
	}
	return genes, nil
}

// ReadCausal reads causal variant indices of chromosome chr from a
// path pattern where '@' stands for the chromosome.
func ReadCausal(pattern string, chr int) ([]int, error) {
	fn := datafile.ExpandChr(pattern, chr)
	f, err := datafile.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	idx, err := datafile.ReadInts(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	sort.Ints(idx)
	return idx, nil
}
