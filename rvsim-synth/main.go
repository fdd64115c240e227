/*
Rvsim-synth writes a synthetic dataset for rvsim: sparse genotypes of
rare variants for every chromosome, a null model directory and
optionally causal variant indices.

	rvsim-synth --out-dir synth --chr 2 --chr 4
	rvsim --null-model synth/model --sparse-genotype 'synth/geno_chr@.txt.gz' --chr 2 --chr 4
*/
package main

import (
	"math/rand"
	"os"
	"time"

	"github.com/op/go-logging"
	"gopkg.in/alecthomas/kingpin.v2"
)

// File names inside of the output directory.
const (
	genoPattern   = "geno_chr@.txt"
	causalPattern = "causal_chr@.txt"
	modelDir      = "model"
)

// Logger settings.
var log = logging.MustGetLogger("rvsim-synth")
var formatter = logging.MustStringFormatter(`%{message}`)

// command-line options
var (
	app = kingpin.New("rvsim-synth", "synthetic data generator for rvsim")

	outDir      = app.Flag("out-dir", "output directory").Required().String()
	nSubjects   = app.Flag("subjects", "number of subjects").Default("1000").Int()
	nVariants   = app.Flag("variants", "number of variants per chromosome").Default("2000").Int()
	chrs        = app.Flag("chr", "chromosome (repeatable)").Default("1", "2").Ints()
	mafA        = app.Flag("maf-a", "MAF beta distribution shape a").Default("0.5").Float64()
	mafB        = app.Flag("maf-b", "MAF beta distribution shape b").Default("100").Float64()
	maxMAF      = app.Flag("max-maf", "maximum MAF").Default("0.01").Float64()
	nCovar      = app.Flag("covariates", "number of normal covariates besides the intercept").Default("2").Int()
	nLDRs       = app.Flag("ldrs", "number of LDRs").Default("5").Int()
	nVoxels     = app.Flag("voxels", "number of voxels").Default("20").Int()
	randomBases = app.Flag("random-bases", "use random orthonormal bases instead of voxel to LDR mapping").Bool()
	nCausal     = app.Flag("causal", "number of causal variants per chromosome (0 for none)").Default("0").Int()
	compression = app.Flag("compression", "genotype compression").Default("gzip").Enum("gzip", "zstd", "none")
	seed        = app.Flag("seed", "random generator seed, default time based").Default("-1").Int64()
	logLevel    = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("info").
		Enum("critical", "error", "warning", "notice", "info", "debug")
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	logging.SetFormatter(formatter)
	logging.SetBackend(logging.NewLogBackend(os.Stderr, "", 0))
	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	logging.SetLevel(level, "rvsim-synth")

	if *seed == -1 {
		*seed = time.Now().UnixNano()
		log.Debug("Random seed from time")
	}
	log.Infof("Random seed=%v", *seed)

	s := &settings{
		nSubjects:   *nSubjects,
		nVariants:   *nVariants,
		chrs:        *chrs,
		mafA:        *mafA,
		mafB:        *mafB,
		maxMAF:      *maxMAF,
		nCovar:      *nCovar,
		nLDRs:       *nLDRs,
		nVoxels:     *nVoxels,
		randomBases: *randomBases,
		nCausal:     *nCausal,
		compression: *compression,
		outDir:      *outDir,
	}
	if err := generate(rand.New(rand.NewSource(*seed)), s); err != nil {
		log.Fatal(err)
	}
}
