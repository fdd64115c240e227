// Package ldproj computes covariate adjusted covariance matrices of
// variant sets. Per chromosome it keeps the linkage matrix G*G' and
// the half-projection G*U*V', where U*S*V' is the thin SVD of the
// covariates, so that the covariance of a set is
//
//	LD[set, set] - H[set] * H[set]'
//
// without forming the subjects x subjects projection.
package ldproj

import (
	"errors"
	"fmt"

	"github.com/op/go-logging"
	"gonum.org/v1/gonum/mat"

	"github.com/Zhiwen-Owen-Jiang/simu-package/genotype"
)

var log = logging.MustGetLogger("ldproj")

// rankTolerance relative to the largest singular value; smaller
// components of rank deficient covariates are dropped.
const rankTolerance = 1e-8

// Projector is the half-projection operator U*V' of the covariates,
// stored as a subjects x covariates row-major float32 matrix.
type Projector struct {
	nSubjects int
	nCovar    int
	rank      int
	uv        []float32
}

// NewProjector factorizes covariates (subjects x covariates).
func NewProjector(covar mat.Matrix) (*Projector, error) {
	n, p := covar.Dims()
	if n == 0 || p == 0 {
		return nil, errors.New("empty covariate matrix")
	}
	if p > n {
		return nil, fmt.Errorf("more covariates (%d) than subjects (%d)", p, n)
	}
	var svd mat.SVD
	if ok := svd.Factorize(covar, mat.SVDThin); !ok {
		return nil, errors.New("SVD of the covariates failed")
	}
	values := svd.Values(nil)
	rank := 0
	for _, s := range values {
		if s > rankTolerance*values[0] {
			rank++
		}
	}
	if rank == 0 {
		return nil, errors.New("covariate matrix is zero")
	}
	if rank < p {
		log.Warningf("Covariates are rank deficient: rank %d of %d", rank, p)
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	var uv mat.Dense
	uv.Mul(u.Slice(0, n, 0, rank), v.Slice(0, p, 0, rank).T())

	pr := &Projector{nSubjects: n, nCovar: p, rank: rank, uv: make([]float32, n*p)}
	for i := 0; i < n; i++ {
		for j, x := range uv.RawRowView(i) {
			pr.uv[i*p+j] = float32(x)
		}
	}
	return pr, nil
}

// Dims returns the number of subjects and covariates.
func (pr *Projector) Dims() (nSubjects, nCovar int) {
	return pr.nSubjects, pr.nCovar
}

// Rank returns the numerical rank of the covariates.
func (pr *Projector) Rank() int {
	return pr.rank
}

// Half returns g*U*V' as a variants x covariates row-major matrix.
func (pr *Projector) Half(g *genotype.Matrix) ([]float32, error) {
	if _, ns := g.Dims(); ns != pr.nSubjects {
		return nil, fmt.Errorf("genotype has %d subjects, covariates have %d", ns, pr.nSubjects)
	}
	return g.MulDenseFloat32(pr.uv, pr.nCovar), nil
}
