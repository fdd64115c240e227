package simulation

import (
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Zhiwen-Owen-Jiang/simu-package/cmac"
)

// TimeFormat is the timestamp format of the results file.
const TimeFormat = "2006-01-02 15:04:05.000000"

// Result is the simulation result of a sample.
type Result struct {
	SampleID string
	Bins     []cmac.Bin
	// Rates are mean rates of significant voxels per bin.
	Rates []float64
	// NGenes are numbers of tested genes per bin.
	NGenes []int
}

// Labels returns bin labels.
func (r *Result) Labels() []string {
	return cmac.Labels(r.Bins)
}

// Line formats the result as a results file line starting with the
// timestamp t. NaN rates are empty fields.
func (r *Result) Line(t time.Time) string {
	fields := make([]string, 0, len(r.Rates)+1)
	fields = append(fields, t.Format(TimeFormat))
	for _, x := range r.Rates {
		if math.IsNaN(x) {
			fields = append(fields, "")
			continue
		}
		fields = append(fields, strconv.FormatFloat(x, 'g', -1, 64))
	}
	return strings.Join(fields, "\t") + "\n"
}

// Append appends the result line to path, creating it if needed.
func (r *Result) Append(path string, t time.Time) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(r.Line(t)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
