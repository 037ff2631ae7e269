package explore

import (
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ezoic/flufit/dataset"
	"github.com/ezoic/flufit/pkg/errors"
)

// Histogram plots the distribution of a continuous column.
func Histogram(t *dataset.Table, col string, bins int) (*plot.Plot, error) {
	values, err := t.Floats(col)
	if err != nil {
		return nil, err
	}
	x := present(values)
	if len(x) == 0 {
		return nil, errors.NewModelError("Histogram", "no values in "+col, errors.ErrEmptyData)
	}
	if bins < 1 {
		bins = 20
	}
	h, err := plotter.NewHist(plotter.Values(x), bins)
	if err != nil {
		return nil, errors.Wrapf(err, "histogram of %s", col)
	}
	p := plot.New()
	p.Title.Text = col
	p.X.Label.Text = col
	p.Y.Label.Text = "count"
	p.Add(h)
	return p, nil
}

// BoxPlot plots a continuous outcome by the levels of a categorical predictor.
func BoxPlot(t *dataset.Table, outcome, predictor string) (*plot.Plot, error) {
	y, err := t.Floats(outcome)
	if err != nil {
		return nil, err
	}
	labels, err := t.Strings(predictor)
	if err != nil {
		return nil, err
	}
	levels, err := t.Levels(predictor)
	if err != nil {
		return nil, err
	}
	if len(levels) == 0 {
		return nil, errors.NewModelError("BoxPlot", "no levels in "+predictor, errors.ErrEmptyData)
	}

	p := plot.New()
	p.Title.Text = outcome + " by " + predictor
	p.Y.Label.Text = outcome
	for i, level := range levels {
		var group plotter.Values
		for r, l := range labels {
			if l == level && !math.IsNaN(y[r]) {
				group = append(group, y[r])
			}
		}
		if len(group) == 0 {
			continue
		}
		b, err := plotter.NewBoxPlot(vg.Points(20), float64(i), group)
		if err != nil {
			return nil, errors.Wrapf(err, "box of %s=%s", predictor, level)
		}
		p.Add(b)
	}
	p.NominalX(levels...)
	return p, nil
}
