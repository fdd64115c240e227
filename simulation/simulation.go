// Package simulation runs variant set tests over simulated genes and
// reduces significance counts into one rate per cMAC bin.
package simulation

import (
	"fmt"
	"math"

	"github.com/carbocation/pfx"
	"github.com/montanaflynn/stats"
	"github.com/op/go-logging"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/Zhiwen-Owen-Jiang/simu-package/checkpoint"
	"github.com/Zhiwen-Owen-Jiang/simu-package/cmac"
	"github.com/Zhiwen-Owen-Jiang/simu-package/genotype"
	"github.com/Zhiwen-Owen-Jiang/simu-package/ldproj"
	"github.com/Zhiwen-Owen-Jiang/simu-package/mask"
	"github.com/Zhiwen-Owen-Jiang/simu-package/nullmodel"
	"github.com/Zhiwen-Owen-Jiang/simu-package/vstest"
)

var log = logging.MustGetLogger("simulation")

// Chromosome is the genotype data of a chromosome together with the
// residual LDRs adjusted for this chromosome.
type Chromosome struct {
	Chr   int
	Geno  *genotype.Matrix
	MAC   []int
	MAF   []float64
	Resid *mat.Dense
}

// NewChromosome derives allele counts and frequencies of g.
func NewChromosome(chr int, g *genotype.Matrix, resid *mat.Dense) (*Chromosome, error) {
	_, ns := g.Dims()
	if rs, _ := resid.Dims(); rs != ns {
		return nil, fmt.Errorf("chr%d: genotype has %d subjects, residuals have %d", chr, ns, rs)
	}
	return &Chromosome{Chr: chr, Geno: g, MAC: g.MAC(), MAF: g.MAF(), Resid: resid}, nil
}

// MaskInput returns the mask builder input of the chromosome.
func (c *Chromosome) MaskInput(causal []int) mask.Input {
	return mask.Input{Chr: c.Chr, MAC: c.MAC, Causal: causal}
}

// Settings of a simulation.
type Settings struct {
	SigThresh float64
	// Threads is the number of chromosomes tested concurrently.
	Threads int
	// NewTest creates the variant set test of a chromosome.
	NewTest vstest.Constructor
	// Checkpoint is optional.
	Checkpoint *checkpoint.CheckpointIO
}

// Simulation tests the genes of all the chromosomes against one null
// model.
type Simulation struct {
	Settings
	model *nullmodel.NullModel
	proj  *ldproj.Projector
}

// New creates a simulation; it factorizes the covariates.
func New(model *nullmodel.NullModel, s Settings) (*Simulation, error) {
	if s.NewTest == nil {
		return nil, fmt.Errorf("no variant set test")
	}
	if s.Threads < 1 {
		s.Threads = 1
	}
	proj, err := ldproj.NewProjector(model.Covar)
	if err != nil {
		return nil, pfx.Err(err)
	}
	log.Infof("%d fixed effects in the covariates, rank %d", model.NCovar(), proj.Rank())
	return &Simulation{Settings: s, model: model, proj: proj}, nil
}

// TestChromosome returns per gene significance counts of a chromosome.
func (s *Simulation) TestChromosome(c *Chromosome, genes mask.Chromosome) (*checkpoint.ChrCounts, error) {
	if s.Checkpoint != nil {
		saved, err := s.Checkpoint.Load(c.Chr)
		if err != nil {
			log.Warningf("chr%d: error reading checkpoint: %v", c.Chr, err)
		} else if saved != nil {
			return saved, nil
		}
	}

	cache, err := ldproj.NewCache(c.Chr, c.Geno, s.proj)
	if err != nil {
		return nil, err
	}
	variance, err := s.model.Variance(c.Resid)
	if err != nil {
		return nil, fmt.Errorf("chr%d: %w", c.Chr, err)
	}
	test, err := s.NewTest(&vstest.Params{
		Bases:     s.model.Bases,
		Variance:  variance,
		NSubjects: s.model.NSubjects(),
	})
	if err != nil {
		return nil, fmt.Errorf("chr%d: %w", c.Chr, err)
	}
	halfScore := c.Geno.MulDense(c.Resid)

	res := &checkpoint.ChrCounts{Chr: c.Chr, Counts: make(map[string][]int, len(genes.Bins))}
	for _, bg := range genes.Bins {
		counts := make([]int, len(bg.Genes))
		for i, g := range bg.Genes {
			in := &vstest.Input{
				HalfScore: rows(halfScore, g),
				Cov:       cache.Cov(g),
				MAF:       gather(c.MAF, g),
				CMAC:      g.CMAC(c.MAC),
			}
			p, err := test.PValues(in)
			if err != nil {
				return nil, fmt.Errorf("chr%d, bin %v, gene %d: %w", c.Chr, bg.Bin, i, err)
			}
			counts[i] = vstest.SigCount(p, s.SigThresh)
		}
		log.Debugf("chr%d, bin %v: tested %d genes", c.Chr, bg.Bin, len(counts))
		res.Counts[bg.Bin.Label()] = counts
	}

	if s.Checkpoint != nil {
		if err := s.Checkpoint.Save(res); err != nil {
			log.Warningf("chr%d: checkpoint not saved: %v", c.Chr, err)
		}
	}
	return res, nil
}

// Run tests all the genes and computes the rate of significant voxels
// in every bin.
func (s *Simulation) Run(sampleID string, bins []cmac.Bin, chrs []*Chromosome, masks mask.Masks) (*Result, error) {
	byChr := make(map[int]*Chromosome, len(chrs))
	for _, c := range chrs {
		byChr[c.Chr] = c
	}
	for _, m := range masks {
		if _, ok := byChr[m.Chr]; !ok {
			return nil, fmt.Errorf("chr%d: no genotype data", m.Chr)
		}
	}
	counts := make([]*checkpoint.ChrCounts, len(masks))
	var g errgroup.Group
	g.SetLimit(s.Threads)
	for i := range masks {
		i := i
		c := byChr[masks[i].Chr]
		g.Go(func() error {
			res, err := s.TestChromosome(c, masks[i])
			if err != nil {
				return err
			}
			log.Infof("chr%d: finished", c.Chr)
			counts[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Aggregate(sampleID, bins, counts, s.model.NVoxels()), nil
}

// Aggregate pools significance counts of every bin over the
// chromosomes and returns their mean divided by the number of voxels.
// Bins without genes get a NaN rate.
func Aggregate(sampleID string, bins []cmac.Bin, counts []*checkpoint.ChrCounts, nVoxels int) *Result {
	r := &Result{
		SampleID: sampleID,
		Bins:     bins,
		Rates:    make([]float64, len(bins)),
		NGenes:   make([]int, len(bins)),
	}
	for i, b := range bins {
		var pooled stats.Float64Data
		for _, c := range counts {
			for _, n := range c.Counts[b.Label()] {
				pooled = append(pooled, float64(n))
			}
		}
		r.NGenes[i] = len(pooled)
		mean, err := stats.Mean(pooled)
		if err != nil {
			r.Rates[i] = math.NaN()
			continue
		}
		r.Rates[i] = mean / float64(nVoxels)
	}
	return r
}

// rows returns the rows idx of d.
func rows(d *mat.Dense, idx []int) *mat.Dense {
	_, c := d.Dims()
	res := mat.NewDense(len(idx), c, nil)
	for i, v := range idx {
		res.SetRow(i, d.RawRowView(v))
	}
	return res
}

func gather(x []float64, idx []int) []float64 {
	res := make([]float64, len(idx))
	for i, v := range idx {
		res[i] = x[v]
	}
	return res
}
