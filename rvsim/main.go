/*
Rvsim evaluates type I error and power of rare variant set tests of
imaging traits by simulation. Variant sets ("genes") are sampled so
that their cumulative minor allele count (cMAC) falls into a set of
bins, every gene is tested and the rate of significant voxels is
reported for every bin.

Type I error is simulated by default:

	rvsim --null-model model --sparse-genotype geno_chr@.txt.gz

, '@' is replaced by the chromosome number. With causal variant
indices power is simulated instead:

	rvsim --null-model model --sparse-genotype geno_chr@.txt.gz --causal-idx causal_chr@.txt

A line with the time and the rate of every bin is appended to
<out>.txt.

To see all the options run:

	rvsim -h
*/
package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"runtime/pprof"
	"time"

	"github.com/google/uuid"
	"github.com/op/go-logging"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/Zhiwen-Owen-Jiang/simu-package/checkpoint"
	"github.com/Zhiwen-Owen-Jiang/simu-package/config"
	"github.com/Zhiwen-Owen-Jiang/simu-package/datafile"
	"github.com/Zhiwen-Owen-Jiang/simu-package/genotype"
	"github.com/Zhiwen-Owen-Jiang/simu-package/mask"
	"github.com/Zhiwen-Owen-Jiang/simu-package/nullmodel"
	"github.com/Zhiwen-Owen-Jiang/simu-package/report"
	"github.com/Zhiwen-Owen-Jiang/simu-package/simulation"
	"github.com/Zhiwen-Owen-Jiang/simu-package/vstest"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("rvsim")
var formatter = logging.MustStringFormatter(`%{message}`)

// modules which log level is set from the command line.
var modules = []string{"rvsim", "mask", "ldproj", "nullmodel", "vstest", "simulation", "checkpoint", "datafile"}

// command-line options
var (
	// application
	app = kingpin.New("rvsim", "type I error and power simulation for rare variant set tests").Version(version)

	// inputs
	configF        = app.Flag("config", "read run configuration from a TOML file, flags override it").ExistingFile()
	nullModel      = app.Flag("null-model", "null model directory (covar.tsv, resid_ldr.tsv, bases.tsv)").String()
	sparseGenotype = app.Flag("sparse-genotype", "sparse genotype files, '@' is replaced by the chromosome").String()
	locoPreds      = app.Flag("loco-preds", "LOCO predictions files, '@' is replaced by the chromosome").String()
	causalIdx      = app.Flag("causal-idx", "causal variant indices files, '@' is replaced by the chromosome; "+
		"simulates power instead of type I error").String()
	nLDRs = app.Flag("n-ldrs", "number of LDRs to use (all by default)").Default("0").Int()

	// simulation parameters
	chrs          = app.Flag("chr", "chromosome to use (repeatable); even chromosomes for type I error, odd for power by default").Ints()
	bins          = app.Flag("bins", "cMAC bin lo_hi (repeatable), default bins if not set").Strings()
	cmacBinsCount = app.Flag("cmac-bins-count", "number of genes per cMAC bin").Default("50000").Int()
	sigThresh     = app.Flag("sig-thresh", "significance threshold").Default("2.5e-6").Float64()
	method        = app.Flag("method", "variant set test (burden, acatv or acato)").Default("acato").
			Enum(vstest.Methods()...)
	maxAttempts = app.Flag("max-attempts", "maximum number of sampling rounds per chromosome and bin").Default("100000").Int()
	sampleID    = app.Flag("sample-id", "result sample id").Default("0").String()

	// technical
	nThreads   = app.Flag("nt", "number of chromosomes tested concurrently").Default("1").Int()
	seed       = app.Flag("seed", "random generator seed, default time based").Default("-1").Int64()
	cpuProfile = app.Flag("cpuprofile", "write cpu profile to file").String()

	// output
	out         = app.Flag("out", "output prefix, results are appended to <out>.txt").Default("heig").String()
	checkpointF = app.Flag("checkpoint", "checkpoint database, finished chromosomes are not tested again").String()
	plotF       = app.Flag("plot", "plot rates to a file (png, svg, pdf)").String()
	outLogF     = app.Flag("log", "write log to a file").String()
	logLevel    = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
	jsonF = app.Flag("json", "write json output to a file").String()
)

// setByUser returns names of the flags present on the command line.
func setByUser(args []string) map[string]bool {
	set := make(map[string]bool)
	ctx, err := app.ParseContext(args)
	if err != nil {
		return set
	}
	for _, el := range ctx.Elements {
		if f, ok := el.Clause.(*kingpin.FlagClause); ok {
			set[f.Model().Name] = true
		}
	}
	return set
}

// getConfig reads the configuration file and applies command line flags.
func getConfig(set map[string]bool) (*config.Config, error) {
	cfg := config.Default()
	if *configF != "" {
		log.Infof("Read configuration from %s", *configF)
		if err := config.Load(*configF, cfg); err != nil {
			return nil, err
		}
	}
	override := func(name string, f func()) {
		if set[name] || *configF == "" {
			f()
		}
	}
	override("null-model", func() { cfg.NullModel = *nullModel })
	override("sparse-genotype", func() { cfg.SparseGenotype = *sparseGenotype })
	override("loco-preds", func() { cfg.LOCOPreds = *locoPreds })
	override("causal-idx", func() { cfg.CausalIdx = *causalIdx })
	override("n-ldrs", func() { cfg.NLDRs = *nLDRs })
	override("chr", func() { cfg.Chr = *chrs })
	override("bins", func() { cfg.Bins = *bins })
	override("cmac-bins-count", func() { cfg.CMACBinsCount = *cmacBinsCount })
	override("sig-thresh", func() { cfg.SigThresh = *sigThresh })
	override("method", func() { cfg.Method = *method })
	override("max-attempts", func() { cfg.MaxAttempts = *maxAttempts })
	override("sample-id", func() { cfg.SampleID = *sampleID })
	override("nt", func() { cfg.Threads = *nThreads })
	override("seed", func() { cfg.Seed = *seed })
	override("out", func() { cfg.Out = *out })
	override("checkpoint", func() { cfg.Checkpoint = *checkpointF })
	override("plot", func() { cfg.Plot = *plotF })
	override("json", func() { cfg.JSON = *jsonF })
	return cfg, cfg.Validate()
}

// runKey identifies results of a run configuration in the checkpoint.
func runKey(cfg *config.Config, chrs []int) []byte {
	return checkpoint.Key(cfg.NullModel, cfg.SparseGenotype, cfg.LOCOPreds, cfg.CausalIdx, cfg.NLDRs,
		chrs, cfg.Bins, cfg.CMACBinsCount, cfg.SigThresh, cfg.Method, cfg.Seed, cfg.MaxAttempts, cfg.Mode())
}

// input is the data of a run.
type input struct {
	model  *nullmodel.NullModel
	chrs   []*simulation.Chromosome
	causal map[int][]int
}

func readInput(cfg *config.Config, chrs []int) (*input, error) {
	log.Infof("Read null model from %s", cfg.NullModel)
	model, err := nullmodel.Load(cfg.NullModel)
	if err != nil {
		return nil, err
	}
	if err := model.SelectLDRs(cfg.NLDRs); err != nil {
		return nil, err
	}
	log.Infof("%d subjects, %d covariates (including the intercept), %d LDRs, %d voxels",
		model.NSubjects(), model.NCovar(), model.NLDRs(), model.NVoxels())

	var loco *nullmodel.LOCO
	if cfg.LOCOPreds != "" {
		log.Infof("Read LOCO predictions from %s", cfg.LOCOPreds)
		loco = &nullmodel.LOCO{Pattern: cfg.LOCOPreds, NLDRs: cfg.NLDRs}
	}

	in := &input{model: model, causal: make(map[int][]int)}
	nVariants := 0
	for _, chr := range chrs {
		fn := datafile.ExpandChr(cfg.SparseGenotype, chr)
		g, err := genotype.ReadFile(fn)
		if err != nil {
			return nil, err
		}
		nv, ns := g.Dims()
		if ns != model.NSubjects() {
			return nil, fmt.Errorf("%s: %d subjects, null model has %d", fn, ns, model.NSubjects())
		}
		nVariants += nv
		log.Debugf("chr%d: %d variants", chr, nv)

		resid := model.ResidLDR
		if loco != nil {
			pred, err := loco.Read(chr)
			if err != nil {
				return nil, err
			}
			if resid, err = model.Residual(pred); err != nil {
				return nil, fmt.Errorf("chr%d: %w", chr, err)
			}
		}
		c, err := simulation.NewChromosome(chr, g, resid)
		if err != nil {
			return nil, err
		}
		in.chrs = append(in.chrs, c)

		if cfg.PowerMode() {
			idx, err := mask.ReadCausal(cfg.CausalIdx, chr)
			if err != nil {
				return nil, err
			}
			in.causal[chr] = idx
			log.Debugf("chr%d: %d causal variants", chr, len(idx))
		}
	}
	log.Infof("Read sparse genotype data from %s", cfg.SparseGenotype)
	log.Infof("%d subjects and %d variants", model.NSubjects(), nVariants)
	return in, nil
}

func run(cfg *config.Config, rnd *rand.Rand, summary *RunSummary) error {
	timings := simulation.Timings{}
	summary.Stages = timings

	chrs := cfg.Chromosomes()
	summary.Chromosomes = chrs
	if cfg.PowerMode() {
		log.Infof("Simulating power on chromosomes %v", chrs)
	} else {
		log.Infof("Simulating type I error on chromosomes %v", chrs)
	}
	runID := uuid.NewSHA1(uuid.NameSpaceOID, runKey(cfg, chrs))
	summary.RunID = runID.String()
	log.Infof("Run id: %s", runID)

	var in *input
	err := timings.Stage("Reading input", func() (err error) {
		in, err = readInput(cfg, chrs)
		return
	})
	if err != nil {
		return err
	}

	cmacBins, err := cfg.CMACBins()
	if err != nil {
		return err
	}
	var masks mask.Masks
	err = timings.Stage("Creating masks", func() (err error) {
		inputs := make([]mask.Input, len(in.chrs))
		for i, c := range in.chrs {
			inputs[i] = c.MaskInput(in.causal[c.Chr])
		}
		var b mask.Builder
		if cfg.PowerMode() {
			b = mask.NewCausalBuilder(rnd, cmacBins, cfg.MaxAttempts)
		} else {
			b = mask.NewNullBuilder(rnd, cmacBins, cfg.MaxAttempts)
		}
		masks, err = b.Build(inputs, cfg.CMACBinsCount)
		return
	})
	if err != nil {
		return err
	}

	var cp *checkpoint.CheckpointIO
	if cfg.Checkpoint != "" {
		db, err := checkpoint.Open(cfg.Checkpoint)
		if err != nil {
			return fmt.Errorf("error opening checkpoint: %w", err)
		}
		defer db.Close()
		cp = checkpoint.NewCheckpointIO(db, []byte(runID.String()))
	}

	newTest, err := vstest.Lookup(cfg.Method)
	if err != nil {
		return err
	}
	sim, err := simulation.New(in.model, simulation.Settings{
		SigThresh:  cfg.SigThresh,
		Threads:    cfg.Threads,
		NewTest:    newTest,
		Checkpoint: cp,
	})
	if err != nil {
		return err
	}
	var res *simulation.Result
	err = timings.Stage("Testing", func() (err error) {
		res, err = sim.Run(cfg.SampleID, cmacBins, in.chrs, masks)
		return
	})
	if err != nil {
		return err
	}
	summary.setRates(res.Labels(), res.Rates, res.NGenes)

	outF := cfg.Out + ".txt"
	if err := res.Append(outF, time.Now()); err != nil {
		return err
	}
	log.Noticef("Save results to %s", outF)

	if cfg.Plot != "" {
		title := "Type I error"
		if cfg.PowerMode() {
			title = "Power"
		}
		if err := report.Plot(res, title, cfg.SigThresh, cfg.Plot); err != nil {
			log.Error("Error plotting rates:", err)
		}
	}
	return nil
}

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	// logging
	logging.SetFormatter(formatter)

	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		defer f.Close()
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	for _, m := range modules {
		logging.SetLevel(level, m)
	}

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	cfg, err := getConfig(setByUser(os.Args[1:]))
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Seed == -1 {
		cfg.Seed = time.Now().UnixNano()
		log.Debug("Random seed from time")
	}
	log.Infof("Random seed=%v", cfg.Seed)
	log.Infof("Configuration: %+v", *cfg)
	rnd := rand.New(rand.NewSource(cfg.Seed))

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	summary := &RunSummary{
		Version:     version,
		CommandLine: os.Args,
		Seed:        cfg.Seed,
		NThreads:    cfg.Threads,
		SampleID:    cfg.SampleID,
		Mode:        cfg.Mode(),
		Method:      cfg.Method,
		SigThresh:   cfg.SigThresh,
	}
	startTime := time.Now()
	err = run(cfg, rnd, summary)
	if cerr := datafile.Close(); cerr != nil {
		log.Warning("Error closing storage client:", cerr)
	}
	deltaT := time.Since(startTime)
	summary.TotalTime = deltaT.Seconds()
	if err != nil {
		summary.Error = err.Error()
	}
	log.Info("Analysis finished")
	log.Noticef("Running time: %v", deltaT)

	// output summary in json format
	if cfg.JSON != "" {
		j, err := json.Marshal(summary)
		if err != nil {
			log.Error(err)
		} else {
			log.Debug(string(j))
			f, err := os.Create(cfg.JSON)
			if err != nil {
				log.Error("Error creating json output file:", err)
			} else {
				f.Write(j)
				f.Close()
			}
		}
	}

	if err != nil {
		pprof.StopCPUProfile()
		log.Fatal(err)
	}
}
