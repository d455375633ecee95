// Package viz renders loss curves and image grids as PNG files.
package viz

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	trainColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	testColor  = color.RGBA{R: 255, A: 255}
)

// LossCurves plots train and test loss against epoch (1-based) and saves it
// to path. Image format follows path extension (png, svg, pdf, ...).
func LossCurves(trainLoss, testLoss []float64, path string) error {
	if len(trainLoss) == 0 && len(testLoss) == 0 {
		return fmt.Errorf("no loss values to plot")
	}

	p := plot.New()
	p.Title.Text = "Learning curves"
	p.X.Label.Text = "Epochs"
	p.Y.Label.Text = "Binary Cross-Entropy"
	p.Add(plotter.NewGrid())

	for _, c := range []struct {
		name   string
		values []float64
		color  color.Color
	}{
		{"Train", trainLoss, trainColor},
		{"Test", testLoss, testColor},
	} {
		if len(c.values) == 0 {
			continue
		}
		line, err := plotter.NewLine(epochXYs(c.values))
		if err != nil {
			return fmt.Errorf("%s curve: %w", c.name, err)
		}
		line.Color = c.color
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(c.name, line)
	}
	p.Legend.Top = true

	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

func epochXYs(values []float64) plotter.XYs {
	xys := make(plotter.XYs, len(values))
	for i, v := range values {
		xys[i].X = float64(i + 1)
		xys[i].Y = v
	}
	return xys
}
