package vstest

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/Zhiwen-Owen-Jiang/simu-package/dist"
)

func appreq(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Abs(b))
}

func newTest(tst *testing.T, name string, p *Params) Test {
	c, err := Lookup(name)
	if err != nil {
		tst.Fatal(err)
	}
	t, err := c(p)
	if err != nil {
		tst.Fatal(err)
	}
	return t
}

// two variants, two voxels and one LDR
func twoVariants(maf []float64) (*Params, *Input) {
	p := &Params{
		Bases:     mat.NewDense(2, 1, []float64{1, 2}),
		Variance:  []float64{1, 0.5},
		NSubjects: 1000,
	}
	in := &Input{
		HalfScore: mat.NewDense(2, 1, []float64{1, 2}),
		Cov:       mat.NewSymDense(2, []float64{2, 0.5, 0.5, 3}),
		MAF:       maf,
		CMAC:      4,
	}
	return p, in
}

func TestLookup(tst *testing.T) {
	if m := Methods(); len(m) != 3 || m[0] != "acato" || m[1] != "acatv" || m[2] != "burden" {
		tst.Error("Wrong methods:", m)
	}
	if _, err := Lookup("skat"); err == nil {
		tst.Error("Unknown method accepted")
	}
	c, _ := Lookup("burden")
	if _, err := c(&Params{Bases: mat.NewDense(2, 1, nil), Variance: []float64{1}, NSubjects: 10}); err == nil {
		tst.Error("Inconsistent parameters accepted")
	}
}

func TestSigCount(tst *testing.T) {
	p := []float64{0.01, math.NaN(), 1e-7, 0.5, 2e-6, 2.5e-6}
	if n := SigCount(p, 2.5e-6); n != 2 {
		tst.Error("Wrong significance count:", n)
	}
	if n := SigCount(nil, 0.05); n != 0 {
		tst.Error("Empty count should be zero")
	}
}

func TestBurden(tst *testing.T) {
	maf := []float64{0.001, 0.002}
	p, in := twoVariants(maf)
	pv, err := newTest(tst, "burden", p).PValues(in)
	if err != nil {
		tst.Fatal(err)
	}
	w := []float64{dist.DensityBeta(0.001, 1, 25), dist.DensityBeta(0.002, 1, 25)}
	quad := 2*w[0]*w[0] + 2*0.5*w[0]*w[1] + 3*w[1]*w[1]
	for v, b := range []float64{1, 2} {
		s := b * (w[0] + 2*w[1])
		exp := math.Erfc(math.Sqrt(s * s / (p.Variance[v] * quad) / 2))
		if !appreq(pv[v], exp, 1e-9) {
			tst.Errorf("Voxel %d: p = %g, expected %g", v, pv[v], exp)
		}
	}
}

func TestRareCollapsed(tst *testing.T) {
	// both variants have MAC <= 10, ACAT-V reduces to the burden test
	p, in := twoVariants([]float64{0.001, 0.002})
	var res [3][]float64
	for i, name := range []string{"burden", "acatv", "acato"} {
		pv, err := newTest(tst, name, p).PValues(in)
		if err != nil {
			tst.Fatal(err)
		}
		res[i] = pv
	}
	for v := range p.Variance {
		if !appreq(res[1][v], res[0][v], 1e-8) || !appreq(res[2][v], res[0][v], 1e-8) {
			tst.Errorf("Voxel %d: burden %g, acatv %g, acato %g", v, res[0][v], res[1][v], res[2][v])
		}
	}
}

func TestACATV(tst *testing.T) {
	// MAC 40 and 2
	p, in := twoVariants([]float64{0.02, 0.001})
	pv, err := newTest(tst, "acatv", p).PValues(in)
	if err != nil {
		tst.Fatal(err)
	}
	w := Weights(in.MAF)
	for v, b := range []float64{1, 2} {
		vr := p.Variance[v]
		p0 := dist.SurvivalChi2One(b * b / (vr * 2))
		p1 := dist.SurvivalChi2One(4 * b * b / (vr * 3))
		exp := dist.CauchyCombination([]float64{p0, p1}, w)
		if !appreq(pv[v], exp, 1e-9) {
			tst.Errorf("Voxel %d: p = %g, expected %g", v, pv[v], exp)
		}
	}
}

func TestNonPositiveVariance(tst *testing.T) {
	p, in := twoVariants([]float64{0.02, 0.001})
	p.Variance = []float64{0, 1}
	in.Cov = mat.NewSymDense(2, []float64{0, 0, 0, 0})
	for _, name := range Methods() {
		pv, err := newTest(tst, name, p).PValues(in)
		if err != nil {
			tst.Fatal(err)
		}
		for v, x := range pv {
			if !math.IsNaN(x) {
				tst.Errorf("%s, voxel %d: expected NaN, got %g", name, v, x)
			}
		}
		if SigCount(pv, 1) != 0 {
			tst.Error("NaN p-values counted as significant")
		}
	}
}

func TestInputErrors(tst *testing.T) {
	p, in := twoVariants([]float64{0.02})
	t := newTest(tst, "acato", p)
	if _, err := t.PValues(in); err == nil {
		tst.Error("Inconsistent MAF accepted")
	}
	in.MAF = []float64{0.02, 0.01}
	in.HalfScore = mat.NewDense(2, 2, nil)
	if _, err := t.PValues(in); err == nil {
		tst.Error("Wrong number of LDRs accepted")
	}
}
