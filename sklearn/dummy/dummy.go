// Package dummy provides null models that ignore the predictors.
//
// DummyRegressor predicts the training mean and DummyClassifier predicts the training
// prior of the positive class. They are the baselines every informative candidate is
// compared against, and both report a log-likelihood so AIC and BIC are defined for the
// null model too.
package dummy

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/flufit/core/model"
	flufitErrors "github.com/ezoic/flufit/pkg/errors"
	"github.com/ezoic/flufit/pkg/log"
)

// DummyRegressor always predicts the mean of the training outcome.
type DummyRegressor struct {
	State *model.StateManager

	Constant float64
	RSS      float64
	N        int

	logger log.Logger
}

// NewDummyRegressor creates an untrained mean model.
func NewDummyRegressor() *DummyRegressor {
	return &DummyRegressor{
		State: model.NewStateManager(),
		logger: log.GetLoggerWithName("dummy").With(
			log.ModelNameKey, "DummyRegressor",
			log.ComponentKey, "dummy",
		),
	}
}

// Fit records the mean of y. X only contributes its row count.
func (d *DummyRegressor) Fit(X, y mat.Matrix) (err error) {
	defer flufitErrors.Recover(&err, "DummyRegressor.Fit")

	yv, err := outcome("DummyRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	d.Constant = stat.Mean(yv, nil)
	d.RSS = 0
	for _, v := range yv {
		d.RSS += (v - d.Constant) * (v - d.Constant)
	}
	d.N = len(yv)

	_, c := X.Dims()
	d.State.SetFitted()
	d.State.SetDimensions(c, d.N)
	d.logger.Debug("Null model fitted", log.SamplesKey, d.N, "constant", d.Constant)
	return nil
}

// Predict returns the training mean for every row of X.
func (d *DummyRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !d.State.IsFitted() {
		return nil, flufitErrors.NewNotFittedError("DummyRegressor", "Predict")
	}
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, d.Constant)
	}
	return out, nil
}

// Coefficients reports the intercept only.
func (d *DummyRegressor) Coefficients([]string) []model.Coefficient {
	se := math.NaN()
	if d.N > 1 {
		se = math.Sqrt(d.RSS/float64(d.N-1)) / math.Sqrt(float64(d.N))
	}
	return []model.Coefficient{{Term: model.InterceptTerm, Estimate: d.Constant, StdErr: se}}
}

// LogLikelihood is the Gaussian log-likelihood at the maximum-likelihood variance.
func (d *DummyRegressor) LogLikelihood() float64 {
	n := float64(d.N)
	return 0.5 * (-n * (math.Log(2*math.Pi) + 1 - math.Log(n) + math.Log(d.RSS)))
}

// DoF counts the mean and the residual variance.
func (d *DummyRegressor) DoF() int { return 2 }

// NObs returns the number of training rows.
func (d *DummyRegressor) NObs() int { return d.N }

// IsFitted returns whether the model has been fitted.
func (d *DummyRegressor) IsFitted() bool { return d.State.IsFitted() }

// GetParams returns the (empty) hyperparameters.
func (d *DummyRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{"strategy": "mean"}
}

// DummyClassifier predicts the majority class, and the training prior as the
// probability of the positive class. Labels are 0/1.
type DummyClassifier struct {
	State *model.StateManager

	Prior float64
	N     int

	logger log.Logger
}

// NewDummyClassifier creates an untrained prior model.
func NewDummyClassifier() *DummyClassifier {
	return &DummyClassifier{
		State: model.NewStateManager(),
		logger: log.GetLoggerWithName("dummy").With(
			log.ModelNameKey, "DummyClassifier",
			log.ComponentKey, "dummy",
		),
	}
}

// Fit records the share of positive labels.
func (d *DummyClassifier) Fit(X, y mat.Matrix) (err error) {
	defer flufitErrors.Recover(&err, "DummyClassifier.Fit")

	yv, err := outcome("DummyClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	pos := 0
	for _, v := range yv {
		switch v {
		case 1:
			pos++
		case 0:
		default:
			return flufitErrors.NewValueError("DummyClassifier.Fit", "labels must be 0 or 1")
		}
	}
	d.N = len(yv)
	d.Prior = float64(pos) / float64(d.N)

	_, c := X.Dims()
	d.State.SetFitted()
	d.State.SetDimensions(c, d.N)
	d.logger.Debug("Null model fitted", log.SamplesKey, d.N, "prior", d.Prior)
	return nil
}

// Predict returns the majority class; a tie predicts 0.
func (d *DummyClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !d.State.IsFitted() {
		return nil, flufitErrors.NewNotFittedError("DummyClassifier", "Predict")
	}
	label := 0.0
	if d.Prior > 0.5 {
		label = 1
	}
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, label)
	}
	return out, nil
}

// PredictProba returns [1-prior, prior] for every row.
func (d *DummyClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !d.State.IsFitted() {
		return nil, flufitErrors.NewNotFittedError("DummyClassifier", "PredictProba")
	}
	r, _ := X.Dims()
	out := mat.NewDense(r, 2, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, 1-d.Prior)
		out.Set(i, 1, d.Prior)
	}
	return out, nil
}

// Coefficients reports the intercept on the logit scale. It is undefined when the
// training data holds a single class.
func (d *DummyClassifier) Coefficients([]string) []model.Coefficient {
	c := model.Coefficient{Term: model.InterceptTerm, Estimate: math.NaN(), StdErr: math.NaN()}
	if d.Prior > 0 && d.Prior < 1 {
		c.Estimate = math.Log(d.Prior / (1 - d.Prior))
		c.StdErr = 1 / math.Sqrt(float64(d.N)*d.Prior*(1-d.Prior))
	}
	return []model.Coefficient{c}
}

// LogLikelihood is the Bernoulli log-likelihood of the training labels under the prior.
func (d *DummyClassifier) LogLikelihood() float64 {
	n := float64(d.N)
	ll := 0.0
	if d.Prior > 0 {
		ll += n * d.Prior * math.Log(d.Prior)
	}
	if d.Prior < 1 {
		ll += n * (1 - d.Prior) * math.Log(1-d.Prior)
	}
	return ll
}

// DoF counts the intercept.
func (d *DummyClassifier) DoF() int { return 1 }

// NObs returns the number of training rows.
func (d *DummyClassifier) NObs() int { return d.N }

// IsFitted returns whether the model has been fitted.
func (d *DummyClassifier) IsFitted() bool { return d.State.IsFitted() }

// GetParams returns the (empty) hyperparameters.
func (d *DummyClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{"strategy": "prior"}
}

func outcome(op string, X, y mat.Matrix) ([]float64, error) {
	r, _ := X.Dims()
	ry, cy := y.Dims()
	if r == 0 || ry == 0 {
		return nil, flufitErrors.NewModelError(op, "empty data", flufitErrors.ErrEmptyData)
	}
	if ry != r {
		return nil, flufitErrors.NewDimensionError(op, r, ry, 0)
	}
	if cy != 1 {
		return nil, flufitErrors.NewDimensionError(op, 1, cy, 1)
	}
	return mat.Col(nil, 0, y), nil
}
