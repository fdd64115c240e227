// Package report plots per bin significance rates.
package report

import (
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/Zhiwen-Owen-Jiang/simu-package/simulation"
)

// Plot saves a bar chart of the rates of r with a horizontal line at
// the significance threshold. The format is taken from the file
// extension (png, svg, pdf, ...).
func Plot(r *simulation.Result, title string, thr float64, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "cMAC bin"
	p.Y.Label.Text = "rate"

	values := make(plotter.Values, len(r.Rates))
	for i, x := range r.Rates {
		// bins without genes
		if !math.IsNaN(x) {
			values[i] = x
		}
	}
	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return err
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = vg.Length(0)

	n := float64(len(values))
	line, err := plotter.NewLine(plotter.XYs{{X: -0.5, Y: thr}, {X: n - 0.5, Y: thr}})
	if err != nil {
		return err
	}
	line.Color = plotutil.Color(1)
	line.Dashes = plotutil.Dashes(1)

	p.Add(bars, line)
	p.Legend.Add("threshold", line)
	p.Legend.Top = true
	p.NominalX(r.Labels()...)

	return p.Save(vg.Length(math.Max(4, 0.5*n))*vg.Inch, 4*vg.Inch, path)
}
