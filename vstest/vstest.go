// Package vstest defines the variant set test boundary used by the
// simulation and implements score based burden, ACAT-V and ACAT-O
// tests for multi-voxel imaging traits.
package vstest

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/op/go-logging"
	"gonum.org/v1/gonum/mat"
)

var log = logging.MustGetLogger("vstest")

// Input are the sufficient statistics of one variant set.
type Input struct {
	// HalfScore is G[set] * resid, variants x LDRs.
	HalfScore *mat.Dense
	// Cov is the covariate adjusted covariance of the variants.
	Cov *mat.SymDense
	// MAF of every variant of the set.
	MAF []float64
	// CMAC is the cumulative minor allele count of the set.
	CMAC int
}

// Len returns the number of variants.
func (in *Input) Len() int {
	return len(in.MAF)
}

// Params are the chromosome level parameters shared by all the tests
// of a chromosome.
type Params struct {
	// Bases is voxels x LDRs.
	Bases *mat.Dense
	// Variance of every voxel.
	Variance []float64
	// NSubjects is used to recover minor allele counts from MAF.
	NSubjects int
}

// Test computes one p-value per voxel for a variant set.
type Test interface {
	PValues(in *Input) ([]float64, error)
}

// Constructor creates a test for a chromosome.
type Constructor func(p *Params) (Test, error)

var methods = map[string]Constructor{
	"burden": newMethod(burden),
	"acatv":  newMethod(acatv),
	"acato":  newMethod(acato),
}

// Methods returns the names of the built-in tests.
func Methods() []string {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the constructor of a built-in test.
func Lookup(name string) (Constructor, error) {
	c, ok := methods[name]
	if !ok {
		return nil, fmt.Errorf("unknown test method %q, known methods: %s", name, strings.Join(Methods(), ", "))
	}
	log.Debugf("Using %s variant set test", name)
	return c, nil
}

// SigCount returns the number of p-values below thr. NaN p-values are
// never significant.
func SigCount(p []float64, thr float64) (n int) {
	for _, x := range p {
		if !math.IsNaN(x) && x < thr {
			n++
		}
	}
	return
}

func (p *Params) validate() error {
	if p.Bases == nil {
		return fmt.Errorf("no bases")
	}
	nv, _ := p.Bases.Dims()
	if nv != len(p.Variance) {
		return fmt.Errorf("%d voxels in bases, %d variances", nv, len(p.Variance))
	}
	if p.NSubjects <= 0 {
		return fmt.Errorf("invalid number of subjects: %d", p.NSubjects)
	}
	return nil
}

func (p *Params) check(in *Input) error {
	m := in.Len()
	if m == 0 {
		return fmt.Errorf("empty variant set")
	}
	sr, sc := in.HalfScore.Dims()
	_, nl := p.Bases.Dims()
	if sr != m || in.Cov.Symmetric() != m {
		return fmt.Errorf("inconsistent variant set size: %d scores, %dx%d covariance, %d MAFs",
			sr, in.Cov.Symmetric(), in.Cov.Symmetric(), m)
	}
	if sc != nl {
		return fmt.Errorf("scores have %d LDRs, bases have %d", sc, nl)
	}
	return nil
}
