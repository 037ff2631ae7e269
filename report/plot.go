package report

import (
	"math"
	"path/filepath"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ezoic/flufit/dataset"
	"github.com/ezoic/flufit/evaluation"
	"github.com/ezoic/flufit/metrics"
	"github.com/ezoic/flufit/pkg/errors"
	"github.com/ezoic/flufit/pkg/log"
)

var nan = math.NaN()

// PlotName returns the file name of a result's diagnostic plot relative to Dir.
func PlotName(r *evaluation.Result) string {
	prefix := "obs_pred_"
	if r.OutcomeKind == dataset.Categorical.String() {
		prefix = "roc_"
	}
	return filepath.Join(r.Outcome, prefix+r.Candidate+"_"+r.PredictorSet+".png")
}

func (s *Store) writePlot(r *evaluation.Result) error {
	var (
		p   *plot.Plot
		err error
	)
	if r.OutcomeKind == dataset.Categorical.String() {
		p, err = ROCPlot(r)
	} else {
		p, err = ObservedPredictedPlot(r)
	}
	if err != nil {
		s.log().Warn("Plot skipped", log.CandidateKey, r.Candidate, "error", err.Error())
		return nil
	}
	return s.SavePlot(PlotName(r), p)
}

// SavePlot renders p to name under Dir; the extension selects the format.
func (s *Store) SavePlot(name string, p *plot.Plot) error {
	path, err := s.prepare(name)
	if err != nil {
		return err
	}
	if err := p.Save(5*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "failed to save %s", path)
	}
	return nil
}

// ROCPlot draws the test-set ROC curve of a categorical result.
func ROCPlot(r *evaluation.Result) (*plot.Plot, error) {
	if r.Predictions == nil {
		return nil, errors.NewValueError("ROCPlot", "result has no predictions")
	}
	n := len(r.Predictions.Observed)
	points, err := metrics.ROCCurve(mat.NewVecDense(n, r.Predictions.Observed), mat.NewVecDense(n, r.Predictions.Predicted))
	if err != nil {
		return nil, err
	}
	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X, xys[i].Y = pt.FPR, pt.TPR
	}
	curve, err := plotter.NewLine(xys)
	if err != nil {
		return nil, err
	}
	curve.Width = vg.Points(2)
	chance, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return nil, err
	}
	chance.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p := plot.New()
	p.Title.Text = r.Outcome + ": " + r.Candidate + " (" + r.PredictorSet + ")"
	if auc, ok := r.Test[evaluation.MetricROCAUC]; ok {
		p.Title.Text += ", AUC " + strconv.FormatFloat(auc, 'f', 3, 64)
	}
	p.X.Label.Text = "false positive rate"
	p.Y.Label.Text = "true positive rate"
	p.X.Min, p.X.Max, p.Y.Min, p.Y.Max = 0, 1, 0, 1
	p.Add(curve, chance)
	return p, nil
}

// ObservedPredictedPlot scatters test-set predictions against observations with the
// identity line.
func ObservedPredictedPlot(r *evaluation.Result) (*plot.Plot, error) {
	if r.Predictions == nil || len(r.Predictions.Observed) == 0 {
		return nil, errors.NewValueError("ObservedPredictedPlot", "result has no predictions")
	}
	obs, pred := r.Predictions.Observed, r.Predictions.Predicted
	xys := make(plotter.XYs, len(obs))
	for i := range obs {
		xys[i].X, xys[i].Y = obs[i], pred[i]
	}
	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, err
	}
	lo := math.Min(floats.Min(obs), floats.Min(pred))
	hi := math.Max(floats.Max(obs), floats.Max(pred))
	identity, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return nil, err
	}

	p := plot.New()
	p.Title.Text = r.Outcome + ": " + r.Candidate + " (" + r.PredictorSet + ")"
	p.X.Label.Text = "observed"
	p.Y.Label.Text = "predicted"
	p.Add(scatter, identity)
	return p, nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', 10, 64)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedEstimateKeys(m map[string]evaluation.Estimate) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
