package forecast

import (
	"fmt"
	"image/color"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// SavePlot draws the test part of series against the forecast as a PNG.
func SavePlot(path, field string, series []Point, fit Fit) error {
	p := plot.New()
	p.Title.Text = strings.ToUpper(field[:1]) + field[1:] + " forecast"
	p.X.Label.Text = "minute"
	p.Y.Label.Text = field

	split := fit.Train
	actual := make(plotter.XYs, 0, fit.Test)
	predicted := make(plotter.XYs, 0, fit.Test)
	for i, v := range fit.Forecast {
		x := float64(split + i)
		actual = append(actual, plotter.XY{X: x, Y: series[split+i].Value})
		predicted = append(predicted, plotter.XY{X: x, Y: v})
	}

	actualLine, err := plotter.NewLine(actual)
	if err != nil {
		return fmt.Errorf("actual line: %w", err)
	}
	actualLine.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	actualLine.Width = vg.Points(1)

	forecastLine, err := plotter.NewLine(predicted)
	if err != nil {
		return fmt.Errorf("forecast line: %w", err)
	}
	forecastLine.Color = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	forecastLine.Width = vg.Points(1)
	forecastLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(plotter.NewGrid(), actualLine, forecastLine)
	p.Legend.Add("actual", actualLine)
	p.Legend.Add("forecast", forecastLine)
	p.Legend.Top = true

	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}
