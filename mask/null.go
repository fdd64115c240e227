package mask

import (
	"fmt"
	"math/rand"

	"github.com/Zhiwen-Owen-Jiang/simu-package/cmac"
)

const (
	// minWidthFraction of the bin lower bound is the smallest window.
	minWidthFraction = 0.1
	// skipFraction of the window width is the step between windows.
	skipFraction = 0.8
)

// NullBuilder creates masks for type I error evaluation: genes are
// windows of randomly permuted variants which happen to fall into a
// bin.
type NullBuilder struct {
	settings
}

// NewNullBuilder creates a null mask builder. If bins is nil, the
// default bins are used; maxAttempts <= 0 selects the default limit of
// permutations per chromosome and bin.
func NewNullBuilder(rnd *rand.Rand, bins []cmac.Bin, maxAttempts int) *NullBuilder {
	return &NullBuilder{newSettings(rnd, bins, maxAttempts)}
}

// Build generates count genes per bin, split between chromosomes
// proportionally to their number of variants.
func (b *NullBuilder) Build(chrs []Input, count int) (Masks, error) {
	q := quotas(chrs, count)
	masks := make(Masks, 0, len(chrs))
	for i, c := range chrs {
		log.Infof("chr%d: %d variants, %d genes per bin", c.Chr, len(c.MAC), q[i])
		mc := Chromosome{Chr: c.Chr, Bins: make([]BinGenes, 0, len(b.bins))}
		for _, bin := range b.bins {
			genes, err := b.buildBin(c.MAC, bin, q[i])
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

// windowRange returns the range [lo, hi) of window widths for bin.
func windowRange(bin cmac.Bin) (lo, hi int) {
	lo = int(float64(bin.Lo) * minWidthFraction)
	if lo < 2 {
		lo = 2
	}
	return lo, bin.Hi + 1
}

// buildBin slides windows over random permutations until quota genes
// with cMAC in bin are found.
func (b *NullBuilder) buildBin(mac []int, bin cmac.Bin, quota int) ([]Gene, error) {
	genes := make([]Gene, 0, quota)
	if quota <= 0 {
		return genes, nil
	}
	n := len(mac)
	lo, hi := windowRange(bin)
	if hi <= lo {
		return nil, fmt.Errorf("bin is too narrow for windows of %d variants", lo)
	}
	for attempt := 0; attempt < b.maxAttempts; attempt++ {
		perm := b.rnd.Perm(n)
		width := lo + b.rnd.Intn(hi-lo)
		skip := int(float64(width)*skipFraction) + 1
		for start := 0; start+width < n; start += skip {
			window := perm[start : start+width]
			s := 0
			for _, v := range window {
				s += mac[v]
			}
			if !bin.Contains(s) {
				continue
			}
			gene := make(Gene, width)
			copy(gene, window)
			genes = append(genes, gene)
			if len(genes) >= quota {
				return genes, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %d of %d genes after %d permutations", ErrExhausted, len(genes), quota, b.maxAttempts)
}
