package evaluation

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/ezoic/flufit/core/model"
	"github.com/ezoic/flufit/dataset"
	"github.com/ezoic/flufit/model_selection"
)

// Metric names.
const (
	MetricRMSE     = "rmse"
	MetricRSquared = "rsq"
	MetricROCAUC   = "roc_auc"
	MetricAccuracy = "accuracy"
)

// ComparisonMetric returns the metric results are ordered by and whether lower is
// better.
func ComparisonMetric(kind dataset.Kind) (name string, lower bool) {
	if kind == dataset.Categorical {
		return MetricROCAUC, false
	}
	return MetricRMSE, true
}

// Estimate is a resampled metric: mean and standard error over the folds that
// produced a value.
type Estimate struct {
	Mean   float64 `json:"mean"`
	StdErr float64 `json:"std_err"`
	N      int     `json:"n"`
}

// MarshalJSON writes undefined values as null.
func (e Estimate) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Mean   *float64 `json:"mean"`
		StdErr *float64 `json:"std_err"`
		N      int      `json:"n"`
	}{model.Finite(e.Mean), model.Finite(e.StdErr), e.N})
}

// FitStats holds likelihood based statistics of a parametric fit on Train.
type FitStats struct {
	LogLik float64 `json:"log_lik"`
	DoF    int     `json:"dof"`
	NObs   int     `json:"nobs"`
	AIC    float64 `json:"aic"`
	BIC    float64 `json:"bic"`
}

// Importance is the importance of one design column.
type Importance struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

// Predictions are the test-set predictions of a result. Predicted holds the fitted
// value for continuous outcomes and the positive-class probability for categorical
// ones; Observed is the encoded outcome.
type Predictions struct {
	Rows      []int     `json:"rows"`
	Observed  []float64 `json:"observed"`
	Predicted []float64 `json:"predicted"`
}

// Result is the outcome of evaluating one candidate on one predictor set. It is not
// modified after Evaluate returns.
type Result struct {
	RunID        string `json:"run_id"`
	Outcome      string `json:"outcome"`
	OutcomeKind  string `json:"outcome_kind"`
	Candidate    string `json:"candidate"`
	PredictorSet string `json:"predictor_set"`
	// Rank is the 1-based position in the comparison ordering.
	Rank int `json:"rank"`

	Features     []string               `json:"features"`
	Params       model_selection.Params `json:"params,omitempty"`
	Coefficients []model.Coefficient    `json:"coefficients,omitempty"`
	Importances  []Importance           `json:"importances,omitempty"`

	Train map[string]float64  `json:"train,omitempty"`
	CV    map[string]Estimate `json:"cv,omitempty"`
	Test  map[string]float64  `json:"test,omitempty"`
	Fit   *FitStats           `json:"fit,omitempty"`

	// Tuning holds every grid configuration's resampled score for tuned candidates.
	Tuning []model_selection.ConfigScore `json:"-"`

	Warnings []string `json:"warnings,omitempty"`
	// Error is set when the candidate could not be fitted; no metrics are reported.
	Error string `json:"error,omitempty"`

	Predictions *Predictions    `json:"-"`
	Model       model.Estimator `json:"-"`

	comparison float64
}

// Failed reports whether the candidate could not be fitted.
func (r *Result) Failed() bool { return r.Error != "" }

// ComparisonValue returns the value used to order results: the resampled mean of the
// comparison metric when present, otherwise its train estimate. NaN when neither is
// defined.
func (r *Result) ComparisonValue(metric string) float64 {
	if e, ok := r.CV[metric]; ok && e.N > 0 {
		return e.Mean
	}
	if v, ok := r.Train[metric]; ok {
		return v
	}
	return math.NaN()
}

// Sink receives results as they are produced.
type Sink interface {
	Write(r *Result) error
	Close() error
}

// Sort orders results by the comparison metric of kind, best first. Results without a
// defined value go last; ties keep their input order. Ranks are assigned in the new
// order.
func Sort(results []*Result, kind dataset.Kind) {
	metric, lower := ComparisonMetric(kind)
	for _, r := range results {
		r.comparison = r.ComparisonValue(metric)
	}
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].comparison, results[j].comparison
		switch {
		case math.IsNaN(a):
			return false
		case math.IsNaN(b):
			return true
		case lower:
			return a < b
		default:
			return a > b
		}
	})
	for i, r := range results {
		r.Rank = i + 1
	}
}
