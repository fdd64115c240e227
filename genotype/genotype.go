// Package genotype implements a sparse variants x subjects matrix of
// allele dosages.
package genotype

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Entry is a single non-zero dosage.
type Entry struct {
	Variant int
	Subject int
	Count   int
}

// Matrix is a compressed sparse row (CSR) matrix with variants in rows
// and subjects in columns. It is immutable after creation.
type Matrix struct {
	nVariants int
	nSubjects int
	// indptr[i]:indptr[i+1] is the range of row i in indices and data.
	indptr  []int
	indices []int32
	data    []uint8
}

// New creates a matrix from entries. Entries can be given in any
// order; duplicated positions are summed and zeros are dropped.
func New(nVariants, nSubjects int, entries []Entry) (*Matrix, error) {
	if nVariants < 0 || nSubjects < 0 {
		return nil, errors.New("negative matrix dimensions")
	}
	if nSubjects > math.MaxInt32 {
		return nil, fmt.Errorf("too many subjects: %d", nSubjects)
	}
	for _, e := range entries {
		if e.Variant < 0 || e.Variant >= nVariants || e.Subject < 0 || e.Subject >= nSubjects {
			return nil, fmt.Errorf("entry (%d, %d) is outside of %dx%d matrix", e.Variant, e.Subject, nVariants, nSubjects)
		}
		if e.Count < 0 {
			return nil, fmt.Errorf("negative count %d at (%d, %d)", e.Count, e.Variant, e.Subject)
		}
	}
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Variant != sorted[j].Variant {
			return sorted[i].Variant < sorted[j].Variant
		}
		return sorted[i].Subject < sorted[j].Subject
	})

	m := &Matrix{
		nVariants: nVariants,
		nSubjects: nSubjects,
		indptr:    make([]int, nVariants+1),
		indices:   make([]int32, 0, len(sorted)),
		data:      make([]uint8, 0, len(sorted)),
	}
	for i := 0; i < len(sorted); {
		e := sorted[i]
		count := 0
		for ; i < len(sorted) && sorted[i].Variant == e.Variant && sorted[i].Subject == e.Subject; i++ {
			count += sorted[i].Count
		}
		if count == 0 {
			continue
		}
		if count > math.MaxUint8 {
			return nil, fmt.Errorf("count %d at (%d, %d) does not fit into a byte", count, e.Variant, e.Subject)
		}
		m.indices = append(m.indices, int32(e.Subject))
		m.data = append(m.data, uint8(count))
		m.indptr[e.Variant+1]++
	}
	for v := 0; v < nVariants; v++ {
		m.indptr[v+1] += m.indptr[v]
	}
	return m, nil
}

// FromDense creates a sparse matrix from a dense one, rounding values
// to the nearest integer. It is mostly useful for testing.
func FromDense(d mat.Matrix) (*Matrix, error) {
	r, c := d.Dims()
	var entries []Entry
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := int(math.Round(d.At(i, j))); v != 0 {
				entries = append(entries, Entry{i, j, v})
			}
		}
	}
	return New(r, c, entries)
}

// Dims returns the number of variants and subjects.
func (m *Matrix) Dims() (nVariants, nSubjects int) {
	return m.nVariants, m.nSubjects
}

// NNZ returns the number of non-zero entries.
func (m *Matrix) NNZ() int {
	return len(m.data)
}

// Row returns subjects and counts of the non-zero entries of variant
// v. The returned slices must not be modified.
func (m *Matrix) Row(v int) (subjects []int32, counts []uint8) {
	start, end := m.indptr[v], m.indptr[v+1]
	return m.indices[start:end], m.data[start:end]
}

// At returns the dosage at (v, s).
func (m *Matrix) At(v, s int) int {
	subjects, counts := m.Row(v)
	i := sort.Search(len(subjects), func(i int) bool { return int(subjects[i]) >= s })
	if i < len(subjects) && int(subjects[i]) == s {
		return int(counts[i])
	}
	return 0
}

// MAC returns the minor allele count of every variant, i.e. the row
// sums.
func (m *Matrix) MAC() []int {
	mac := make([]int, m.nVariants)
	for v := range mac {
		_, counts := m.Row(v)
		for _, c := range counts {
			mac[v] += int(c)
		}
	}
	return mac
}

// MAF returns minor allele frequencies, mac / (2 * nSubjects).
func (m *Matrix) MAF() []float64 {
	mac := m.MAC()
	maf := make([]float64, len(mac))
	if m.nSubjects == 0 {
		return maf
	}
	for v, c := range mac {
		maf[v] = float64(c) / float64(m.nSubjects) / 2
	}
	return maf
}

// Transpose returns the subjects x variants matrix.
func (m *Matrix) Transpose() *Matrix {
	t := &Matrix{
		nVariants: m.nSubjects,
		nSubjects: m.nVariants,
		indptr:    make([]int, m.nSubjects+1),
		indices:   make([]int32, len(m.indices)),
		data:      make([]uint8, len(m.data)),
	}
	for _, s := range m.indices {
		t.indptr[s+1]++
	}
	for s := 0; s < m.nSubjects; s++ {
		t.indptr[s+1] += t.indptr[s]
	}
	next := make([]int, m.nSubjects)
	copy(next, t.indptr[:m.nSubjects])
	// rows are visited in order, so columns of t stay sorted
	for v := 0; v < m.nVariants; v++ {
		subjects, counts := m.Row(v)
		for k, s := range subjects {
			p := next[s]
			t.indices[p] = int32(v)
			t.data[p] = counts[k]
			next[s]++
		}
	}
	return t
}

// MulDense returns m * b, where b has nSubjects rows.
func (m *Matrix) MulDense(b mat.Matrix) *mat.Dense {
	br, bc := b.Dims()
	if br != m.nSubjects {
		panic(mat.ErrShape)
	}
	if m.nVariants == 0 || bc == 0 {
		return &mat.Dense{}
	}
	res := mat.NewDense(m.nVariants, bc, nil)
	raw, isDense := b.(*mat.Dense)
	for v := 0; v < m.nVariants; v++ {
		row := res.RawRowView(v)
		subjects, counts := m.Row(v)
		for k, s := range subjects {
			c := float64(counts[k])
			if isDense {
				for j, x := range raw.RawRowView(int(s)) {
					row[j] += c * x
				}
				continue
			}
			for j := range row {
				row[j] += c * b.At(int(s), j)
			}
		}
	}
	return res
}

// MulDenseFloat32 returns m * b as a row-major float32 slice of
// nVariants x cols. Accumulation is done in float64.
func (m *Matrix) MulDenseFloat32(b []float32, cols int) []float32 {
	if len(b) != m.nSubjects*cols {
		panic(mat.ErrShape)
	}
	res := make([]float32, m.nVariants*cols)
	acc := make([]float64, cols)
	for v := 0; v < m.nVariants; v++ {
		for j := range acc {
			acc[j] = 0
		}
		subjects, counts := m.Row(v)
		for k, s := range subjects {
			c := float64(counts[k])
			brow := b[int(s)*cols : (int(s)+1)*cols]
			for j, x := range brow {
				acc[j] += c * float64(x)
			}
		}
		out := res[v*cols : (v+1)*cols]
		for j, x := range acc {
			out[j] = float32(x)
		}
	}
	return res
}

// Dense returns a dense copy of the matrix.
func (m *Matrix) Dense() *mat.Dense {
	if m.nVariants == 0 || m.nSubjects == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(m.nVariants, m.nSubjects, nil)
	for v := 0; v < m.nVariants; v++ {
		subjects, counts := m.Row(v)
		for k, s := range subjects {
			d.Set(v, int(s), float64(counts[k]))
		}
	}
	return d
}
