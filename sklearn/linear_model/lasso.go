package linear_model

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/flufit/core/model"
	"github.com/ezoic/flufit/linear"
	flufitErrors "github.com/ezoic/flufit/pkg/errors"
	"github.com/ezoic/flufit/pkg/log"
)

// Lasso minimizes (1/2n)||y - b0 - Xw||² + Alpha*||w||₁ by cyclic coordinate descent.
// The intercept is not penalized. Features are used as given; put a StandardScaler in
// front of it (pipeline.Pipeline) so the penalty treats them alike.
type Lasso struct {
	State *model.StateManager

	Alpha   float64
	MaxIter int
	Tol     float64

	Intercept float64
	Coef      []float64
	NFeatures int
	NIter     int

	warnings []error
	logger   log.Logger
}

// LassoOption configures Lasso and LassoClassifier.
type LassoOption func(*lassoConfig)

type lassoConfig struct {
	alpha   float64
	maxIter int
	tol     float64
}

// WithAlpha sets the L1 penalty (lambda).
func WithAlpha(alpha float64) LassoOption {
	return func(c *lassoConfig) { c.alpha = alpha }
}

// WithLassoMaxIter caps the number of coordinate descent sweeps.
func WithLassoMaxIter(n int) LassoOption {
	return func(c *lassoConfig) { c.maxIter = n }
}

// WithLassoTol sets the convergence tolerance on the largest weighted coefficient change.
func WithLassoTol(tol float64) LassoOption {
	return func(c *lassoConfig) { c.tol = tol }
}

func newLassoConfig(opts []LassoOption) lassoConfig {
	cfg := lassoConfig{alpha: 1.0, maxIter: 1000, tol: 1e-7}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewLasso creates a Lasso regressor.
//
// Example:
//
//	pipe := pipeline.Make(preprocessing.NewStandardScalerDefault(), linear_model.NewLasso(linear_model.WithAlpha(0.01)))
//	err := pipe.Fit(X, y)
func NewLasso(opts ...LassoOption) *Lasso {
	cfg := newLassoConfig(opts)
	return &Lasso{
		State:   model.NewStateManager(),
		Alpha:   cfg.alpha,
		MaxIter: cfg.maxIter,
		Tol:     cfg.tol,
		logger: log.GetLoggerWithName("linear_model").With(
			log.ModelNameKey, "Lasso",
			log.ComponentKey, "linear_model",
		),
	}
}

// Fit estimates the penalized coefficients.
func (l *Lasso) Fit(X, y mat.Matrix) (err error) {
	defer flufitErrors.Recover(&err, "Lasso.Fit")
	n, p, err := checkXY("Lasso.Fit", X, y)
	if err != nil {
		return err
	}
	if l.Alpha < 0 {
		return flufitErrors.NewValueError("Lasso.Fit", fmt.Sprintf("alpha must be non-negative, got %g", l.Alpha))
	}

	startTime := time.Now()
	l.warnings = nil
	xD := mat.DenseCopyOf(X)
	z := make([]float64, n)
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		z[i] = y.At(i, 0)
		w[i] = 1.0 / float64(n)
	}

	coef := make([]float64, p)
	b0, iters, converged := weightedCD(xD, z, w, coef, 0, l.Alpha, l.MaxIter, l.Tol)
	l.Intercept = b0
	l.Coef = coef
	l.NFeatures = p
	l.NIter = iters
	if !converged {
		wn := flufitErrors.NewConvergenceWarning("Lasso.Fit", iters, "coordinate descent did not converge")
		l.warnings = append(l.warnings, wn)
		l.logger.Warn(wn.Error(), log.OperationKey, log.OperationFit)
	}

	l.State.SetFitted()
	l.State.SetDimensions(p, n)
	l.logger.Debug("Training completed",
		log.OperationKey, log.OperationFit,
		log.DurationMsKey, time.Since(startTime).Milliseconds(),
		"alpha", l.Alpha,
		"nonzero", countNonZero(coef),
	)
	return nil
}

// Predict returns b0 + Xw.
func (l *Lasso) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer flufitErrors.Recover(&err, "Lasso.Predict")
	if !l.State.IsFitted() {
		return nil, flufitErrors.NewNotFittedError("Lasso", "Predict")
	}
	eta, err := linearPredict("Lasso.Predict", X, l.Intercept, l.Coef)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(len(eta), 1, eta), nil
}

// Coefficients reports the intercept and the penalized coefficients. Standard errors
// are not defined for penalized fits and are NaN.
func (l *Lasso) Coefficients(featureNames []string) []model.Coefficient {
	if !l.State.IsFitted() {
		return nil
	}
	return penalizedCoefficients(featureNames, l.Intercept, l.Coef)
}

// Warnings returns the non-fatal problems from the last Fit.
func (l *Lasso) Warnings() []error { return l.warnings }

// GetParams returns the model's hyperparameters.
func (l *Lasso) GetParams() map[string]interface{} {
	return map[string]interface{}{"alpha": l.Alpha, "max_iter": l.MaxIter, "tol": l.Tol}
}

// LassoClassifier is L1-penalized logistic regression: it minimizes
// -(1/n)·loglik + Alpha*||w||₁ by iteratively reweighted coordinate descent.
type LassoClassifier struct {
	State *model.StateManager

	Alpha   float64
	MaxIter int
	Tol     float64

	Intercept float64
	Coef      []float64
	NFeatures int
	NIter     int

	warnings []error
	logger   log.Logger
}

// NewLassoClassifier creates an L1-penalized logistic regression.
func NewLassoClassifier(opts ...LassoOption) *LassoClassifier {
	cfg := newLassoConfig(opts)
	return &LassoClassifier{
		State:   model.NewStateManager(),
		Alpha:   cfg.alpha,
		MaxIter: cfg.maxIter,
		Tol:     cfg.tol,
		logger: log.GetLoggerWithName("linear_model").With(
			log.ModelNameKey, "LassoClassifier",
			log.ComponentKey, "linear_model",
		),
	}
}

// outerIterations bounds the reweighting loop of LassoClassifier.
const outerIterations = 50

// Fit estimates the penalized logistic coefficients.
func (l *LassoClassifier) Fit(X, y mat.Matrix) (err error) {
	defer flufitErrors.Recover(&err, "LassoClassifier.Fit")
	n, p, err := checkXY("LassoClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if l.Alpha < 0 {
		return flufitErrors.NewValueError("LassoClassifier.Fit", fmt.Sprintf("alpha must be non-negative, got %g", l.Alpha))
	}
	labels, err := binaryLabels("LassoClassifier.Fit", y)
	if err != nil {
		return err
	}

	l.warnings = nil
	xD := mat.DenseCopyOf(X)
	coef := make([]float64, p)
	var mean float64
	for _, v := range labels {
		mean += v
	}
	mean /= float64(n)
	b0 := math.Log(mean / (1 - mean))

	z := make([]float64, n)
	w := make([]float64, n)
	converged := false
	total := 0
	prevDev := math.Inf(1)
	for outer := 0; outer < outerIterations; outer++ {
		for i := 0; i < n; i++ {
			eta := b0
			for j := 0; j < p; j++ {
				eta += coef[j] * xD.At(i, j)
			}
			pr := math.Min(math.Max(stableSigmoid(eta), 1e-5), 1-1e-5)
			v := pr * (1 - pr)
			w[i] = v / float64(n)
			z[i] = eta + (labels[i]-pr)/v
		}
		var iters int
		b0, iters, _ = weightedCD(xD, z, w, coef, b0, l.Alpha, l.MaxIter, l.Tol)
		total += iters

		dev := 0.0
		for i := 0; i < n; i++ {
			eta := b0
			for j := 0; j < p; j++ {
				eta += coef[j] * xD.At(i, j)
			}
			pr := clampProbability(stableSigmoid(eta))
			dev -= 2 * (labels[i]*math.Log(pr) + (1-labels[i])*math.Log(1-pr))
		}
		if math.Abs(dev-prevDev) < l.Tol*(math.Abs(dev)+0.1) {
			converged = true
			break
		}
		prevDev = dev
	}

	l.Intercept = b0
	l.Coef = coef
	l.NFeatures = p
	l.NIter = total
	if !converged {
		wn := flufitErrors.NewConvergenceWarning("LassoClassifier.Fit", total, "reweighted coordinate descent did not converge")
		l.warnings = append(l.warnings, wn)
		l.logger.Warn(wn.Error(), log.OperationKey, log.OperationFit)
	}

	l.State.SetFitted()
	l.State.SetDimensions(p, n)
	return nil
}

// Predict returns 1 where the positive-class probability is at least 0.5.
func (l *LassoClassifier) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer flufitErrors.Recover(&err, "LassoClassifier.Predict")
	proba, err := l.PredictProba(X)
	if err != nil {
		return nil, err
	}
	r, _ := proba.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		if proba.At(i, 1) >= 0.5 {
			out.Set(i, 0, 1)
		}
	}
	return out, nil
}

// PredictProba returns [P(y=0), P(y=1)] per row.
func (l *LassoClassifier) PredictProba(X mat.Matrix) (_ mat.Matrix, err error) {
	defer flufitErrors.Recover(&err, "LassoClassifier.PredictProba")
	if !l.State.IsFitted() {
		return nil, flufitErrors.NewNotFittedError("LassoClassifier", "PredictProba")
	}
	eta, err := linearPredict("LassoClassifier.PredictProba", X, l.Intercept, l.Coef)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(eta), 2, nil)
	for i, e := range eta {
		p := stableSigmoid(e)
		out.Set(i, 0, 1-p)
		out.Set(i, 1, p)
	}
	return out, nil
}

// Coefficients reports the intercept and the penalized log-odds coefficients.
func (l *LassoClassifier) Coefficients(featureNames []string) []model.Coefficient {
	if !l.State.IsFitted() {
		return nil
	}
	return penalizedCoefficients(featureNames, l.Intercept, l.Coef)
}

// Warnings returns the non-fatal problems from the last Fit.
func (l *LassoClassifier) Warnings() []error { return l.warnings }

// GetParams returns the model's hyperparameters.
func (l *LassoClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{"alpha": l.Alpha, "max_iter": l.MaxIter, "tol": l.Tol}
}

// weightedCD minimizes ½·Σ w_i (z_i - b0 - x_i·coef)² + alpha·||coef||₁ in place,
// starting from coef and b0. It returns the intercept, the number of sweeps and whether
// the largest weighted coefficient change fell below tol.
func weightedCD(X *mat.Dense, z, w, coef []float64, b0, alpha float64, maxIter int, tol float64) (float64, int, bool) {
	n, p := X.Dims()
	var wSum float64
	for _, v := range w {
		wSum += v
	}

	resid := make([]float64, n)
	for i := 0; i < n; i++ {
		eta := b0
		for j := 0; j < p; j++ {
			eta += coef[j] * X.At(i, j)
		}
		resid[i] = z[i] - eta
	}

	denom := make([]float64, p)
	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			x := X.At(i, j)
			denom[j] += w[i] * x * x
		}
	}

	for iter := 1; iter <= maxIter; iter++ {
		maxChange := 0.0

		// Unpenalized intercept.
		var shift float64
		for i := 0; i < n; i++ {
			shift += w[i] * resid[i]
		}
		shift /= wSum
		if shift != 0 {
			b0 += shift
			for i := range resid {
				resid[i] -= shift
			}
			maxChange = math.Max(maxChange, wSum*shift*shift)
		}

		for j := 0; j < p; j++ {
			if denom[j] == 0 {
				coef[j] = 0
				continue
			}
			old := coef[j]
			rho := 0.0
			for i := 0; i < n; i++ {
				rho += w[i] * X.At(i, j) * (resid[i] + X.At(i, j)*old)
			}
			updated := softThreshold(rho, alpha) / denom[j]
			if updated != old {
				delta := updated - old
				for i := 0; i < n; i++ {
					resid[i] -= X.At(i, j) * delta
				}
				coef[j] = updated
				maxChange = math.Max(maxChange, denom[j]*delta*delta)
			}
		}

		if maxChange < tol {
			return b0, iter, true
		}
	}
	return b0, maxIter, false
}

func softThreshold(x, lambda float64) float64 {
	switch {
	case x > lambda:
		return x - lambda
	case x < -lambda:
		return x + lambda
	default:
		return 0
	}
}

func checkXY(op string, X, y mat.Matrix) (int, int, error) {
	n, p := X.Dims()
	ry, cy := y.Dims()
	if n == 0 || p == 0 {
		return 0, 0, flufitErrors.NewModelError(op, "empty data", flufitErrors.ErrEmptyData)
	}
	if ry != n {
		return 0, 0, flufitErrors.NewDimensionError(op, n, ry, 0)
	}
	if cy != 1 {
		return 0, 0, flufitErrors.NewValueError(op, "y must be a column vector")
	}
	return n, p, nil
}

func linearPredict(op string, X mat.Matrix, b0 float64, coef []float64) ([]float64, error) {
	r, c := X.Dims()
	if c != len(coef) {
		return nil, flufitErrors.NewDimensionError(op, len(coef), c, 1)
	}
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		v := b0
		for j := 0; j < c; j++ {
			v += X.At(i, j) * coef[j]
		}
		out[i] = v
	}
	return out, nil
}

func penalizedCoefficients(featureNames []string, b0 float64, coef []float64) []model.Coefficient {
	terms := linear.TermNames(featureNames, len(coef))
	out := make([]model.Coefficient, len(coef)+1)
	out[0] = model.Coefficient{Term: terms[0], Estimate: b0, StdErr: math.NaN()}
	for j, v := range coef {
		out[j+1] = model.Coefficient{Term: terms[j+1], Estimate: v, StdErr: math.NaN()}
	}
	return out
}

func countNonZero(v []float64) int {
	n := 0
	for _, x := range v {
		if x != 0 {
			n++
		}
	}
	return n
}
