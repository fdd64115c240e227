package main

import "math"

// RunSummary is storing rvsim run summary information.
type RunSummary struct {
	// Version stores rvsim version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Seed is the seed used for random number generation initialization.
	Seed int64 `json:"seed"`
	// NThreads is the number of chromosomes tested concurrently.
	NThreads int `json:"nThreads"`
	// RunID identifies the run configuration, it is also the checkpoint key.
	RunID string `json:"runId"`
	// SampleID is the row name of the result.
	SampleID string `json:"sampleId"`
	// Mode is "null" (type I error) or "power".
	Mode      string  `json:"mode"`
	Method    string  `json:"method"`
	SigThresh float64 `json:"sigThresh"`
	// Chromosomes are the simulated chromosomes.
	Chromosomes []int `json:"chromosomes"`
	// Rates are the significance rates by bin label, null for bins
	// without genes.
	Rates map[string]*float64 `json:"rates,omitempty"`
	// NGenes are the numbers of tested genes by bin label.
	NGenes map[string]int `json:"nGenes,omitempty"`
	// Stages are running times of the stages in seconds.
	Stages map[string]float64 `json:"stages"`
	// TotalTime is the computations time in seconds.
	TotalTime float64 `json:"time"`
	// Error is set if the run failed.
	Error string `json:"error,omitempty"`
}

// setRates stores rates by label; NaN cannot be represented in JSON.
func (s *RunSummary) setRates(labels []string, rates []float64, nGenes []int) {
	s.Rates = make(map[string]*float64, len(labels))
	s.NGenes = make(map[string]int, len(labels))
	for i, l := range labels {
		s.NGenes[l] = nGenes[i]
		if math.IsNaN(rates[i]) {
			s.Rates[l] = nil
			continue
		}
		r := rates[i]
		s.Rates[l] = &r
	}
}
