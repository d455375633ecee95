package viz

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// CoverageHistogram plots the distribution of salt coverage (fraction of
// mask pixels) over the dataset and saves it to path.
func CoverageHistogram(coverages []float64, bins int, path string) error {
	if len(coverages) == 0 {
		return fmt.Errorf("no coverage values to plot")
	}

	v := make(plotter.Values, len(coverages))
	copy(v, coverages)

	h, err := plotter.NewHist(v, bins)
	if err != nil {
		return err
	}
	h.FillColor = trainColor

	p := plot.New()
	p.Title.Text = "Salt coverage"
	p.X.Label.Text = "Coverage"
	p.Y.Label.Text = "Samples"
	p.Add(h)

	return p.Save(5*vg.Inch, 4*vg.Inch, path)
}
