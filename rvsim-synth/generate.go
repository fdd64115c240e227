package main

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"

	"github.com/carbocation/pfx"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/mat"

	"github.com/Zhiwen-Owen-Jiang/simu-package/datafile"
	"github.com/Zhiwen-Owen-Jiang/simu-package/dist"
	"github.com/Zhiwen-Owen-Jiang/simu-package/genotype"
	"github.com/Zhiwen-Owen-Jiang/simu-package/nullmodel"
)

// settings of a synthetic dataset.
type settings struct {
	nSubjects   int
	nVariants   int
	chrs        []int
	mafA, mafB  float64
	maxMAF      float64
	nCovar      int
	nLDRs       int
	nVoxels     int
	randomBases bool
	nCausal     int
	compression string
	outDir      string
}

// drawMAF draws a MAF from Beta(a, b) truncated at maxMAF.
func drawMAF(rnd *rand.Rand, a, b, maxMAF float64) float64 {
	return dist.QuantileBeta(rnd.Float64()*dist.CDFBeta(maxMAF, a, b), a, b)
}

// genotypes draws Binomial(2, MAF) dosages.
func genotypes(rnd *rand.Rand, s *settings) (*genotype.Matrix, error) {
	var entries []genotype.Entry
	for v := 0; v < s.nVariants; v++ {
		maf := drawMAF(rnd, s.mafA, s.mafB, s.maxMAF)
		for i := 0; i < s.nSubjects; i++ {
			count := 0
			if rnd.Float64() < maf {
				count++
			}
			if rnd.Float64() < maf {
				count++
			}
			if count > 0 {
				entries = append(entries, genotype.Entry{Variant: v, Subject: i, Count: count})
			}
		}
	}
	return genotype.New(s.nVariants, s.nSubjects, entries)
}

func normal(rnd *rand.Rand, r, c int) *mat.Dense {
	d := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d.Set(i, j, rnd.NormFloat64())
		}
	}
	return d
}

// model creates an intercept plus normal covariates null model with
// Gaussian LDRs residualized on the covariates.
func model(rnd *rand.Rand, s *settings) (*nullmodel.NullModel, error) {
	n := s.nSubjects
	covar := mat.NewDense(n, s.nCovar+1, nil)
	for i := 0; i < n; i++ {
		covar.Set(i, 0, 1)
		for j := 1; j <= s.nCovar; j++ {
			covar.Set(i, j, rnd.NormFloat64())
		}
	}

	eps := normal(rnd, n, s.nLDRs)
	var qr mat.QR
	qr.Factorize(covar)
	var beta, fitted, resid mat.Dense
	if err := qr.SolveTo(&beta, false, eps); err != nil {
		return nil, pfx.Err(err)
	}
	fitted.Mul(covar, &beta)
	resid.Sub(eps, &fitted)

	bases := mat.NewDense(s.nVoxels, s.nLDRs, nil)
	if s.randomBases {
		if s.nVoxels < s.nLDRs {
			return nil, fmt.Errorf("random bases need at least as many voxels (%d) as LDRs (%d)", s.nVoxels, s.nLDRs)
		}
		var bqr mat.QR
		bqr.Factorize(normal(rnd, s.nVoxels, s.nLDRs))
		var q mat.Dense
		bqr.QTo(&q)
		bases.Copy(q.Slice(0, s.nVoxels, 0, s.nLDRs))
	} else {
		for v := 0; v < s.nVoxels; v++ {
			bases.Set(v, v%s.nLDRs, 1)
		}
	}
	return nullmodel.New(covar, &resid, bases)
}

// causal returns n random polymorphic variants in increasing order.
func causal(rnd *rand.Rand, mac []int, n int) []int {
	var poly []int
	for v, m := range mac {
		if m > 0 {
			poly = append(poly, v)
		}
	}
	if n > len(poly) {
		n = len(poly)
	}
	idx := make([]int, n)
	for i, k := range rnd.Perm(len(poly))[:n] {
		idx[i] = poly[k]
	}
	sort.Ints(idx)
	return idx
}

// compressed wraps w according to the compression name.
func compressed(w io.Writer, compression string) (io.WriteCloser, string, error) {
	switch compression {
	case "gzip":
		return gzip.NewWriter(w), ".gz", nil
	case "zstd":
		z, err := zstd.NewWriter(w)
		return z, ".zst", err
	case "none":
		return nopCloser{w}, "", nil
	}
	return nil, "", fmt.Errorf("unknown compression: %s", compression)
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }

// writeGenotype writes genotype of a chromosome and returns the file name.
func writeGenotype(g *genotype.Matrix, s *settings, chr int) (string, error) {
	_, ext, err := compressed(io.Discard, s.compression)
	if err != nil {
		return "", err
	}
	fn := filepath.Join(s.outDir, datafile.ExpandChr(genoPattern, chr)+ext)
	f, err := os.Create(fn)
	if err != nil {
		return "", err
	}
	defer f.Close()
	w, _, err := compressed(f, s.compression)
	if err != nil {
		return "", err
	}
	if err := genotype.Write(w, g); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return fn, f.Close()
}

func writeMatrix(fn string, m mat.Matrix) error {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	if err := datafile.WriteMatrix(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeModel(m *nullmodel.NullModel, dir string) error {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return err
	}
	for name, d := range map[string]*mat.Dense{
		nullmodel.CovarFile:    m.Covar,
		nullmodel.ResidLDRFile: m.ResidLDR,
		nullmodel.BasesFile:    m.Bases,
	} {
		if err := writeMatrix(filepath.Join(dir, name), d); err != nil {
			return err
		}
	}
	return nil
}

func writeInts(fn string, idx []int) error {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	for _, v := range idx {
		if _, err := fmt.Fprintln(f, v); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

// generate writes a complete dataset.
func generate(rnd *rand.Rand, s *settings) error {
	if s.maxMAF <= 0 || s.maxMAF > 0.5 || math.IsNaN(s.maxMAF) {
		return fmt.Errorf("invalid maximum MAF: %g", s.maxMAF)
	}
	if err := os.MkdirAll(s.outDir, 0777); err != nil {
		return err
	}
	m, err := model(rnd, s)
	if err != nil {
		return err
	}
	if err := writeModel(m, filepath.Join(s.outDir, modelDir)); err != nil {
		return err
	}
	log.Infof("Null model: %d subjects, %d covariates, %d LDRs, %d voxels",
		m.NSubjects(), m.NCovar(), m.NLDRs(), m.NVoxels())

	for _, chr := range s.chrs {
		g, err := genotypes(rnd, s)
		if err != nil {
			return err
		}
		fn, err := writeGenotype(g, s, chr)
		if err != nil {
			return err
		}
		log.Infof("chr%d: %d variants, %d non-zero dosages written to %s", chr, s.nVariants, g.NNZ(), fn)
		if s.nCausal > 0 {
			idx := causal(rnd, g.MAC(), s.nCausal)
			if err := writeInts(filepath.Join(s.outDir, datafile.ExpandChr(causalPattern, chr)), idx); err != nil {
				return err
			}
		}
	}
	return nil
}
