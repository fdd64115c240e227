package ldproj

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/Zhiwen-Owen-Jiang/simu-package/genotype"
)

// Cache holds the chromosome scoped artifacts shared by all the
// variant sets of a chromosome. It is read-only after creation.
type Cache struct {
	Chr  int
	LD   *Linkage
	half []float32
	cols int
}

// NewCache computes linkage and half-projection of a chromosome.
func NewCache(chr int, g *genotype.Matrix, pr *Projector) (*Cache, error) {
	half, err := pr.Half(g)
	if err != nil {
		return nil, fmt.Errorf("chr%d: %w", chr, err)
	}
	ld := NewLinkage(g)
	if ld.Saturated() > 0 {
		log.Warningf("chr%d: %d linkage entries were clipped to the uint16 range", chr, ld.Saturated())
	}
	nv, ns := g.Dims()
	log.Debugf("chr%d: linkage of %d variants x %d subjects has %d entries", chr, nv, ns, ld.NNZ())
	return &Cache{Chr: chr, LD: ld, half: half, cols: pr.nCovar}, nil
}

// Half returns the half-projection row of variant v.
func (c *Cache) Half(v int) []float32 {
	return c.half[v*c.cols : (v+1)*c.cols]
}

// Cov returns the covariate adjusted covariance of the variants of
// set. Entries are rounded to single precision.
func (c *Cache) Cov(set []int) *mat.SymDense {
	n := len(set)
	if n == 0 {
		return &mat.SymDense{}
	}
	cov := mat.NewSymDense(n, nil)
	for i, vi := range set {
		hi := c.Half(vi)
		for j := i; j < n; j++ {
			vj := set[j]
			hj := c.Half(vj)
			var proj float64
			for k, x := range hi {
				proj += float64(x) * float64(hj[k])
			}
			cov.SetSym(i, j, float64(float32(float64(c.LD.At(vi, vj))-proj)))
		}
	}
	return cov
}
