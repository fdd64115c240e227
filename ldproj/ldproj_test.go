package ldproj

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/Zhiwen-Owen-Jiang/simu-package/genotype"
)

func randomGenotype(rnd *rand.Rand, nv, ns int) *genotype.Matrix {
	var entries []genotype.Entry
	for v := 0; v < nv; v++ {
		p := 0.02 + 0.2*rnd.Float64()
		for s := 0; s < ns; s++ {
			if rnd.Float64() < p {
				entries = append(entries, genotype.Entry{Variant: v, Subject: s, Count: 1 + rnd.Intn(2)})
			}
		}
	}
	g, err := genotype.New(nv, ns, entries)
	if err != nil {
		panic(err)
	}
	return g
}

// covariates returns an intercept followed by normal columns.
func covariates(rnd *rand.Rand, ns, p int) *mat.Dense {
	x := mat.NewDense(ns, p, nil)
	for i := 0; i < ns; i++ {
		x.Set(i, 0, 1)
		for j := 1; j < p; j++ {
			x.Set(i, j, rnd.NormFloat64())
		}
	}
	return x
}

// residualGram returns G (I - X (X'X)^-1 X') G'.
func residualGram(tst *testing.T, g *genotype.Matrix, x mat.Matrix) *mat.Dense {
	var xtx, inv, proj mat.Dense
	xtx.Mul(x.T(), x)
	if err := inv.Inverse(&xtx); err != nil {
		tst.Fatal("Error inverting X'X:", err)
	}
	proj.Product(x, &inv, x.T())
	ns, _ := x.Dims()
	var resid mat.Dense
	resid.Sub(eye(ns), &proj)
	gd := g.Dense()
	var res mat.Dense
	res.Product(gd, &resid, gd.T())
	return &res
}

func eye(n int) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, 1)
	}
	return d
}

func TestLinkage(tst *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	g := randomGenotype(rnd, 40, 60)
	l := NewLinkage(g)
	gd := g.Dense()
	var exp mat.Dense
	exp.Mul(gd, gd.T())
	for i := 0; i < 40; i++ {
		for j := 0; j < 40; j++ {
			if float64(l.At(i, j)) != exp.At(i, j) {
				tst.Fatalf("LD[%d, %d] = %d, expected %g", i, j, l.At(i, j), exp.At(i, j))
			}
		}
	}
	if l.Saturated() != 0 {
		tst.Error("Unexpected saturation")
	}
}

func TestLinkageSaturation(tst *testing.T) {
	g, err := genotype.New(2, 3, []genotype.Entry{
		{Variant: 0, Subject: 0, Count: 255},
		{Variant: 0, Subject: 1, Count: 255},
		{Variant: 1, Subject: 2, Count: 2},
	})
	if err != nil {
		tst.Fatal(err)
	}
	l := NewLinkage(g)
	if l.At(0, 0) != math.MaxUint16 || l.Saturated() != 1 {
		tst.Error("Linkage should saturate, got", l.At(0, 0))
	}
	if l.At(1, 1) != 4 || l.At(0, 1) != 0 {
		tst.Error("Wrong linkage entries")
	}
}

func TestCov(tst *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	ns := 80
	g := randomGenotype(rnd, 30, ns)
	x := covariates(rnd, ns, 3)
	pr, err := NewProjector(x)
	if err != nil {
		tst.Fatal(err)
	}
	if pr.Rank() != 3 {
		tst.Error("Wrong rank:", pr.Rank())
	}
	c, err := NewCache(1, g, pr)
	if err != nil {
		tst.Fatal(err)
	}
	exp := residualGram(tst, g, x)

	set := []int{3, 17, 0, 29, 8, 8}
	cov := c.Cov(set)
	if cov.Symmetric() != len(set) {
		tst.Fatal("Wrong covariance size")
	}
	for i, vi := range set {
		for j, vj := range set {
			e := exp.At(vi, vj)
			if math.Abs(cov.At(i, j)-e) > 1e-4*math.Max(1, math.Abs(e)) {
				tst.Errorf("Cov[%d, %d] = %g, expected %g", i, j, cov.At(i, j), e)
			}
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(cov, false); !ok {
		tst.Fatal("Eigen decomposition failed")
	}
	for _, v := range eig.Values(nil) {
		if v < -1e-3 {
			tst.Error("Covariance is not positive semi-definite, eigenvalue", v)
		}
	}
}

func TestRankDeficient(tst *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	ns := 50
	g := randomGenotype(rnd, 10, ns)
	// intercept twice
	x := mat.NewDense(ns, 2, nil)
	for i := 0; i < ns; i++ {
		x.Set(i, 0, 1)
		x.Set(i, 1, 2)
	}
	pr, err := NewProjector(x)
	if err != nil {
		tst.Fatal(err)
	}
	if pr.Rank() != 1 {
		tst.Error("Expected rank 1, got", pr.Rank())
	}
	c, err := NewCache(2, g, pr)
	if err != nil {
		tst.Fatal(err)
	}
	exp := residualGram(tst, g, x.Slice(0, ns, 0, 1))
	set := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	cov := c.Cov(set)
	for i := range set {
		for j := range set {
			e := exp.At(i, j)
			if math.Abs(cov.At(i, j)-e) > 1e-4*math.Max(1, math.Abs(e)) {
				tst.Errorf("Cov[%d, %d] = %g, expected %g", i, j, cov.At(i, j), e)
			}
		}
	}
}

func TestCacheIdempotent(tst *testing.T) {
	rnd := rand.New(rand.NewSource(4))
	g := randomGenotype(rnd, 25, 40)
	x := covariates(rnd, 40, 2)
	var caches []*Cache
	for i := 0; i < 2; i++ {
		pr, err := NewProjector(x)
		if err != nil {
			tst.Fatal(err)
		}
		c, err := NewCache(5, g, pr)
		if err != nil {
			tst.Fatal(err)
		}
		caches = append(caches, c)
	}
	if !reflect.DeepEqual(caches[0], caches[1]) {
		tst.Error("Caches computed from the same input differ")
	}
}

func TestProjectorErrors(tst *testing.T) {
	if _, err := NewProjector(mat.NewDense(3, 4, nil)); err == nil {
		tst.Error("More covariates than subjects accepted")
	}
	if _, err := NewProjector(mat.NewDense(5, 2, nil)); err == nil {
		tst.Error("Zero covariates accepted")
	}
	pr, err := NewProjector(covariates(rand.New(rand.NewSource(5)), 20, 1))
	if err != nil {
		tst.Fatal(err)
	}
	g := randomGenotype(rand.New(rand.NewSource(6)), 5, 21)
	if _, err := NewCache(1, g, pr); err == nil {
		tst.Error("Subject count mismatch accepted")
	}
}
