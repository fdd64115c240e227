package ldproj

import (
	"math"
	"sort"

	"github.com/Zhiwen-Owen-Jiang/simu-package/genotype"
)

// Linkage is the sparse symmetric variants x variants matrix G*G' with
// entries saturated at the uint16 range.
type Linkage struct {
	n       int
	indptr  []int
	indices []int32
	data    []uint16
	// saturated is the number of clipped entries.
	saturated int
}

// NewLinkage computes G*G' row by row, iterating over the subjects
// carrying every variant.
func NewLinkage(g *genotype.Matrix) *Linkage {
	nv, _ := g.Dims()
	t := g.Transpose()
	l := &Linkage{n: nv, indptr: make([]int, nv+1)}

	acc := make([]int, nv)
	mark := make([]int, nv)
	for i := range mark {
		mark[i] = -1
	}
	var cols []int
	for i := 0; i < nv; i++ {
		cols = cols[:0]
		subjects, counts := g.Row(i)
		for k, s := range subjects {
			c := int(counts[k])
			variants, dosages := t.Row(int(s))
			for m, u := range variants {
				if mark[u] != i {
					mark[u] = i
					acc[u] = 0
					cols = append(cols, int(u))
				}
				acc[u] += c * int(dosages[m])
			}
		}
		sort.Ints(cols)
		for _, j := range cols {
			x := acc[j]
			if x > math.MaxUint16 {
				x = math.MaxUint16
				l.saturated++
			}
			l.indices = append(l.indices, int32(j))
			l.data = append(l.data, uint16(x))
		}
		l.indptr[i+1] = len(l.indices)
	}
	return l
}

// Len returns the number of variants.
func (l *Linkage) Len() int {
	return l.n
}

// NNZ returns the number of stored entries.
func (l *Linkage) NNZ() int {
	return len(l.data)
}

// Saturated returns the number of entries clipped to the uint16 range.
func (l *Linkage) Saturated() int {
	return l.saturated
}

// At returns entry (i, j).
func (l *Linkage) At(i, j int) uint16 {
	start, end := l.indptr[i], l.indptr[i+1]
	row := l.indices[start:end]
	k := sort.Search(len(row), func(k int) bool { return int(row[k]) >= j })
	if k < len(row) && int(row[k]) == j {
		return l.data[start+k]
	}
	return 0
}
