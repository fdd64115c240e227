package simulation

import "time"

// Timings stores running time of the stages in seconds.
type Timings map[string]float64

// Stage runs f and logs its running time.
func (t Timings) Stage(name string, f func() error) error {
	start := time.Now()
	err := f()
	d := time.Since(start)
	t[name] = d.Seconds()
	log.Infof("%s executed in %.1fs", name, d.Seconds())
	return err
}
