// Package config holds the run configuration of the simulation. It can
// be read from a TOML file; command line flags override file values.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/Zhiwen-Owen-Jiang/simu-package/cmac"
	"github.com/Zhiwen-Owen-Jiang/simu-package/vstest"
)

// ErrMissingInput is returned when a required input is not set.
var ErrMissingInput = errors.New("required input is missing")

// Config is a simulation run configuration.
type Config struct {
	// NullModel is the null model directory.
	NullModel string `toml:"null_model"`
	// SparseGenotype is the genotype path pattern, '@' is replaced by
	// the chromosome.
	SparseGenotype string `toml:"sparse_genotype"`
	// LOCOPreds is the optional LOCO predictions path pattern.
	LOCOPreds string `toml:"loco_preds"`
	// CausalIdx is the causal indices path pattern; if set, power is
	// simulated instead of type I error.
	CausalIdx string `toml:"causal_idx"`
	Out       string `toml:"out"`
	// NLDRs is the number of LDRs to use, 0 for all.
	NLDRs int   `toml:"n_ldrs"`
	Chr   []int `toml:"chr"`
	// Bins are cMAC bin labels ("lo_hi"); empty means the default bins.
	Bins          []string `toml:"bins"`
	CMACBinsCount int      `toml:"cmac_bins_count"`
	SigThresh     float64  `toml:"sig_thresh"`
	Method        string   `toml:"method"`
	Seed          int64    `toml:"seed"`
	MaxAttempts   int      `toml:"max_attempts"`
	Threads       int      `toml:"threads"`
	SampleID      string   `toml:"sample_id"`

	Checkpoint string `toml:"checkpoint"`
	Plot       string `toml:"plot"`
	JSON       string `toml:"json"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Out:           "heig",
		CMACBinsCount: 50000,
		SigThresh:     2.5e-6,
		Method:        "acato",
		Seed:          -1,
		MaxAttempts:   100000,
		Threads:       1,
		SampleID:      "0",
	}
}

// Load decodes a TOML file into c. Keys not known to Config are an
// error.
func Load(path string, c *Config) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// PowerMode returns true if causal variants are given.
func (c *Config) PowerMode() bool {
	return c.CausalIdx != ""
}

// Mode returns "power" or "null".
func (c *Config) Mode() string {
	if c.PowerMode() {
		return "power"
	}
	return "null"
}

// Chromosomes returns the chromosomes to simulate. Unless set
// explicitly, odd autosomes are used for power and even autosomes for
// type I error.
func (c *Config) Chromosomes() []int {
	if len(c.Chr) > 0 {
		return c.Chr
	}
	first := 2
	if c.PowerMode() {
		first = 1
	}
	var chrs []int
	for chr := first; chr <= 22; chr += 2 {
		chrs = append(chrs, chr)
	}
	return chrs
}

// CMACBins returns the configured bins.
func (c *Config) CMACBins() ([]cmac.Bin, error) {
	if len(c.Bins) == 0 {
		return cmac.DefaultBins, nil
	}
	bins := make([]cmac.Bin, len(c.Bins))
	for i, l := range c.Bins {
		b, err := cmac.ParseLabel(l)
		if err != nil {
			return nil, err
		}
		bins[i] = b
	}
	if err := cmac.ValidateBins(bins); err != nil {
		return nil, err
	}
	return bins, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.SparseGenotype == "" {
		return fmt.Errorf("%w: sparse genotype", ErrMissingInput)
	}
	if c.NullModel == "" {
		return fmt.Errorf("%w: null model", ErrMissingInput)
	}
	if c.Out == "" {
		return fmt.Errorf("%w: output prefix", ErrMissingInput)
	}
	if !(c.SigThresh > 0 && c.SigThresh < 1) {
		return fmt.Errorf("significance threshold must be in (0, 1), got %g", c.SigThresh)
	}
	if c.CMACBinsCount <= 0 {
		return fmt.Errorf("cmac_bins_count must be positive, got %d", c.CMACBinsCount)
	}
	if c.NLDRs < 0 {
		return fmt.Errorf("n_ldrs must not be negative, got %d", c.NLDRs)
	}
	if c.Threads < 1 {
		return fmt.Errorf("number of threads must be positive, got %d", c.Threads)
	}
	for _, chr := range c.Chr {
		if chr < 1 {
			return fmt.Errorf("invalid chromosome %d", chr)
		}
	}
	if _, err := vstest.Lookup(c.Method); err != nil {
		return err
	}
	_, err := c.CMACBins()
	return err
}
