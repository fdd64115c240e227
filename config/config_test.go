package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Zhiwen-Owen-Jiang/simu-package/cmac"
)

const runToml = `
null_model = "gs://bucket/model"
sparse_genotype = "geno/chr@.txt.gz"
causal_idx = "causal/chr@.txt"
n_ldrs = 10
bins = ["2_2", "3_4"]
sig_thresh = 0.05
chr = [1, 3]
`

func writeConfig(tst *testing.T, content string) string {
	fn := filepath.Join(tst.TempDir(), "run.toml")
	if err := os.WriteFile(fn, []byte(content), 0644); err != nil {
		tst.Fatal(err)
	}
	return fn
}

func TestLoad(tst *testing.T) {
	c := Default()
	if err := Load(writeConfig(tst, runToml), c); err != nil {
		tst.Fatal("Error loading config:", err)
	}
	if err := c.Validate(); err != nil {
		tst.Fatal("Invalid config:", err)
	}
	if c.NullModel != "gs://bucket/model" || c.NLDRs != 10 || c.SigThresh != 0.05 {
		tst.Error("Values not loaded:", c)
	}
	if c.Method != "acato" || c.CMACBinsCount != 50000 || c.Out != "heig" {
		tst.Error("Defaults should be kept:", c)
	}
	if !c.PowerMode() || c.Mode() != "power" {
		tst.Error("Causal indices imply power mode")
	}
	bins, err := c.CMACBins()
	if err != nil || !reflect.DeepEqual(bins, []cmac.Bin{{Lo: 2, Hi: 2}, {Lo: 3, Hi: 4}}) {
		tst.Error("Wrong bins:", bins, err)
	}
	if !reflect.DeepEqual(c.Chromosomes(), []int{1, 3}) {
		tst.Error("Wrong chromosomes:", c.Chromosomes())
	}
}

func TestLoadUnknown(tst *testing.T) {
	if err := Load(writeConfig(tst, "perm = \"x\"\n"), Default()); err == nil {
		tst.Error("Unknown key accepted")
	}
	if err := Load(writeConfig(tst, "n_ldrs = \"x\"\n"), Default()); err == nil {
		tst.Error("Wrong type accepted")
	}
}

func TestChromosomes(tst *testing.T) {
	c := Default()
	if !reflect.DeepEqual(c.Chromosomes(), []int{2, 4, 6, 8, 10, 12, 14, 16, 18, 20, 22}) {
		tst.Error("Null mode should use even chromosomes:", c.Chromosomes())
	}
	c.CausalIdx = "causal@"
	if !reflect.DeepEqual(c.Chromosomes(), []int{1, 3, 5, 7, 9, 11, 13, 15, 17, 19, 21}) {
		tst.Error("Power mode should use odd chromosomes:", c.Chromosomes())
	}
}

func TestValidate(tst *testing.T) {
	c := Default()
	if err := c.Validate(); !errors.Is(err, ErrMissingInput) {
		tst.Error("Expected ErrMissingInput, got", err)
	}
	c.SparseGenotype = "geno@"
	if err := c.Validate(); !errors.Is(err, ErrMissingInput) {
		tst.Error("Expected ErrMissingInput, got", err)
	}
	c.NullModel = "model"
	if err := c.Validate(); err != nil {
		tst.Fatal("Valid config rejected:", err)
	}
	if bins, _ := c.CMACBins(); len(bins) != len(cmac.DefaultBins) {
		tst.Error("Default bins expected")
	}

	invalid := []func(c *Config){
		func(c *Config) { c.SigThresh = 0 },
		func(c *Config) { c.SigThresh = 1 },
		func(c *Config) { c.CMACBinsCount = 0 },
		func(c *Config) { c.NLDRs = -1 },
		func(c *Config) { c.Threads = 0 },
		func(c *Config) { c.Method = "skat" },
		func(c *Config) { c.Chr = []int{0} },
		func(c *Config) { c.Bins = []string{"3_3", "2_2"} },
		func(c *Config) { c.Bins = []string{"2-2"} },
	}
	for i, f := range invalid {
		ci := *c
		f(&ci)
		if err := ci.Validate(); err == nil {
			tst.Errorf("Invalid config %d accepted", i)
		}
	}
}
