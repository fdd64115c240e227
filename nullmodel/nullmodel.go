// Package nullmodel reads a fitted null model of the imaging trait and
// derives the per-chromosome quantities used by variant set tests.
//
// The trait is represented by low-dimension representations (LDRs):
// residuals of subjects are stored per LDR, and bases map LDRs back to
// voxels.
package nullmodel

import (
	"errors"
	"fmt"

	"github.com/carbocation/pfx"
	"github.com/op/go-logging"
	"gonum.org/v1/gonum/mat"

	"github.com/Zhiwen-Owen-Jiang/simu-package/datafile"
)

var log = logging.MustGetLogger("nullmodel")

// Files of a null model directory.
const (
	CovarFile    = "covar.tsv"
	ResidLDRFile = "resid_ldr.tsv"
	BasesFile    = "bases.tsv"
)

// ErrDimension is returned when LOCO predictions and the null model
// disagree on the number of LDRs.
var ErrDimension = errors.New("inconsistent dimension in LDRs and LDR LOCO predictions. Try to use --n-ldrs")

// NullModel is a fitted null model.
type NullModel struct {
	// Covar is subjects x covariates, including the intercept.
	Covar *mat.Dense
	// ResidLDR is subjects x LDRs.
	ResidLDR *mat.Dense
	// Bases is voxels x LDRs.
	Bases *mat.Dense
}

// New checks dimensions and creates a null model.
func New(covar, residLDR, bases *mat.Dense) (*NullModel, error) {
	ns, _ := covar.Dims()
	rs, rl := residLDR.Dims()
	_, bl := bases.Dims()
	if rs != ns {
		return nil, fmt.Errorf("covariates have %d subjects, residuals have %d", ns, rs)
	}
	if bl != rl {
		return nil, fmt.Errorf("residuals have %d LDRs, bases have %d", rl, bl)
	}
	return &NullModel{Covar: covar, ResidLDR: residLDR, Bases: bases}, nil
}

// Load reads a null model directory (local or gs://).
func Load(dir string) (*NullModel, error) {
	var ms [3]*mat.Dense
	for i, name := range []string{CovarFile, ResidLDRFile, BasesFile} {
		m, err := datafile.ReadMatrixFile(datafile.Join(dir, name))
		if err != nil {
			return nil, pfx.Err(err)
		}
		ms[i] = m
	}
	return New(ms[0], ms[1], ms[2])
}

// NSubjects returns the number of subjects.
func (m *NullModel) NSubjects() int {
	n, _ := m.Covar.Dims()
	return n
}

// NCovar returns the number of covariates.
func (m *NullModel) NCovar() int {
	_, p := m.Covar.Dims()
	return p
}

// NLDRs returns the number of LDRs.
func (m *NullModel) NLDRs() int {
	_, r := m.ResidLDR.Dims()
	return r
}

// NVoxels returns the number of voxels.
func (m *NullModel) NVoxels() int {
	v, _ := m.Bases.Dims()
	return v
}

// SelectLDRs keeps the first n LDRs. n == 0 keeps all.
func (m *NullModel) SelectLDRs(n int) error {
	r := m.NLDRs()
	switch {
	case n < 0 || n > r:
		return fmt.Errorf("cannot select %d LDRs out of %d", n, r)
	case n == 0 || n == r:
		return nil
	}
	m.ResidLDR = firstCols(m.ResidLDR, n)
	m.Bases = firstCols(m.Bases, n)
	log.Infof("Keeping %d of %d LDRs", n, r)
	return nil
}

// firstCols returns a copy of the first n columns of d.
func firstCols(d *mat.Dense, n int) *mat.Dense {
	r, _ := d.Dims()
	return mat.DenseCopyOf(d.Slice(0, r, 0, n))
}

// Residual returns the residual LDRs adjusted by LOCO predictions of a
// chromosome. If loco is nil, the unmodified residuals are returned.
func (m *NullModel) Residual(loco *mat.Dense) (*mat.Dense, error) {
	if loco == nil {
		return m.ResidLDR, nil
	}
	ls, ll := loco.Dims()
	if ll != m.NLDRs() {
		return nil, fmt.Errorf("%w (%d vs %d)", ErrDimension, m.NLDRs(), ll)
	}
	if ls != m.NSubjects() {
		return nil, fmt.Errorf("LOCO predictions have %d subjects, null model has %d", ls, m.NSubjects())
	}
	var res mat.Dense
	res.Sub(m.ResidLDR, loco)
	return &res, nil
}

// Variance returns the variance of every voxel given the residual
// LDRs: diag(B * R'R * B') / (n - p).
func (m *NullModel) Variance(resid mat.Matrix) ([]float64, error) {
	df := m.NSubjects() - m.NCovar()
	if df <= 0 {
		return nil, fmt.Errorf("no degrees of freedom: %d subjects, %d covariates", m.NSubjects(), m.NCovar())
	}
	var inner, bi mat.Dense
	inner.Mul(resid.T(), resid)
	bi.Mul(m.Bases, &inner)
	nv := m.NVoxels()
	res := make([]float64, nv)
	for v := 0; v < nv; v++ {
		res[v] = mat.Dot(bi.RowView(v), m.Bases.RowView(v)) / float64(df)
	}
	return res, nil
}
