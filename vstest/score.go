package vstest

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/Zhiwen-Owen-Jiang/simu-package/dist"
)

// Variants with minor allele count up to rareMAC are collapsed into a
// single burden component by ACAT-V.
const rareMAC = 10

// Parameters of the beta density weights.
const (
	weightA = 1
	weightB = 25
)

type method int

const (
	burden method = iota
	acatv
	acato
)

// scoreTest is a score test of the voxel-wise traits. For voxel v the
// variant scores are U = HalfScore * Bases[v]' with covariance
// Variance[v] * Cov.
type scoreTest struct {
	params *Params
	method method
}

func newMethod(m method) Constructor {
	return func(p *Params) (Test, error) {
		if err := p.validate(); err != nil {
			return nil, err
		}
		return &scoreTest{params: p, method: m}, nil
	}
}

// component is a linear combination a'U of variant scores with
// a'*Cov*a precomputed.
type component struct {
	a      []float64
	quad   float64
	weight float64
}

func newComponent(a []float64, cov *mat.SymDense, weight float64) component {
	av := mat.NewVecDense(len(a), a)
	return component{a: a, quad: mat.Inner(av, cov, av), weight: weight}
}

func (c *component) pvalue(u *mat.Dense, v int, variance float64) float64 {
	denom := variance * c.quad
	if !(denom > 0) {
		return math.NaN()
	}
	s := 0.0
	for j, x := range c.a {
		if x != 0 {
			s += x * u.At(j, v)
		}
	}
	return dist.SurvivalChi2One(s * s / denom)
}

// Weights returns beta density weights of the variants.
func Weights(maf []float64) []float64 {
	w := make([]float64, len(maf))
	for i, f := range maf {
		w[i] = dist.DensityBeta(f, weightA, weightB)
	}
	return w
}

// acatvComponents are single variant components of common variants
// followed by the burden of the rare ones.
func (t *scoreTest) acatvComponents(in *Input, w []float64) []component {
	m := in.Len()
	var comps []component
	rare := make([]float64, m)
	nRare, wRare := 0, 0.0
	for j, f := range in.MAF {
		if mac := int(math.Round(2 * f * float64(t.params.NSubjects))); mac <= rareMAC {
			rare[j] = w[j]
			nRare++
			wRare += w[j]
			continue
		}
		a := make([]float64, m)
		a[j] = 1
		comps = append(comps, newComponent(a, in.Cov, w[j]))
	}
	if nRare > 0 {
		comps = append(comps, newComponent(rare, in.Cov, wRare/float64(nRare)))
	}
	return comps
}

func (t *scoreTest) PValues(in *Input) ([]float64, error) {
	if err := t.params.check(in); err != nil {
		return nil, err
	}
	var u mat.Dense
	u.Mul(in.HalfScore, t.params.Bases.T())

	w := Weights(in.MAF)
	var bc component
	if t.method != acatv {
		bc = newComponent(w, in.Cov, 1)
	}
	var comps []component
	var ps, ws []float64
	if t.method != burden {
		comps = t.acatvComponents(in, w)
		ps = make([]float64, len(comps))
		ws = make([]float64, len(comps))
		for i := range comps {
			ws[i] = comps[i].weight
		}
	}

	res := make([]float64, len(t.params.Variance))
	for v, variance := range t.params.Variance {
		var pb, pa float64
		if t.method != acatv {
			pb = bc.pvalue(&u, v, variance)
		}
		if t.method != burden {
			for i := range comps {
				ps[i] = comps[i].pvalue(&u, v, variance)
			}
			pa = dist.CauchyCombination(ps, ws)
		}
		switch t.method {
		case burden:
			res[v] = pb
		case acatv:
			res[v] = pa
		default:
			res[v] = dist.CauchyCombination([]float64{pb, pa}, nil)
		}
	}
	return res, nil
}
