// Package linear_model provides the generalized linear models used by the evaluation
// harness:
//
//   - LogisticRegression: unpenalized binomial GLM fitted by maximum likelihood
//   - Lasso: L1-penalized least squares by coordinate descent
//   - LassoClassifier: L1-penalized logistic regression by reweighted coordinate descent
//
// Labels for the classifiers are 0 and 1, with 1 the positive class.
package linear_model

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/ezoic/flufit/core/model"
	"github.com/ezoic/flufit/linear"
	flufitErrors "github.com/ezoic/flufit/pkg/errors"
	"github.com/ezoic/flufit/pkg/log"
)

const (
	epsilonSmall = 1e-15

	// separationEps flags fitted probabilities that are numerically 0 or 1.
	separationEps = 1e-10
)

// LogisticRegression is a binomial GLM with logit link and an intercept. Aliased design
// columns are dropped before optimization and reported with undefined coefficients.
type LogisticRegression struct {
	State *model.StateManager // Public for gob encoding

	MaxIter int
	Tol     float64

	// Beta holds the intercept followed by one coefficient per feature; NaN when aliased.
	Beta   []float64
	StdErr []float64

	Aliased      []int
	FeatureNames []string
	NFeatures    int
	Rank         int
	N            int
	LogLik       float64
	NIter        int
	Converged    bool

	warnings []error
	logger   log.Logger
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// WithLRMaxIter sets the maximum number of Newton iterations.
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.MaxIter = maxIter
	}
}

// WithLRTol sets the gradient norm threshold for convergence.
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.Tol = tol
	}
}

// WithLRFeatureNames sets the names used in warnings and coefficient tables.
func WithLRFeatureNames(names []string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.FeatureNames = append([]string(nil), names...)
	}
}

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		State:   model.NewStateManager(),
		MaxIter: 50,
		Tol:     1e-10,
	}
	for _, opt := range opts {
		opt(lr)
	}
	lr.logger = log.GetLoggerWithName("linear_model").With(
		log.ModelNameKey, "LogisticRegression",
		log.ComponentKey, "linear_model",
	)
	return lr
}

// stableSigmoid computes sigmoid(z) in a numerically stable way.
func stableSigmoid(z float64) float64 {
	if z >= 0 {
		ez := math.Exp(-z)
		return 1.0 / (1.0 + ez)
	}
	ez := math.Exp(z)
	return ez / (1.0 + ez)
}

// clampProbability clamps probability to avoid log(0).
func clampProbability(p float64) float64 {
	if p < epsilonSmall {
		return epsilonSmall
	}
	if p > 1-epsilonSmall {
		return 1 - epsilonSmall
	}
	return p
}

// binaryLabels copies y into a slice and checks it holds only 0 and 1 with both present.
func binaryLabels(op string, y mat.Matrix) ([]float64, error) {
	n, _ := y.Dims()
	out := make([]float64, n)
	var pos int
	for i := 0; i < n; i++ {
		v := y.At(i, 0)
		if v != 0 && v != 1 {
			return nil, flufitErrors.NewValueError(op, "labels must be 0 or 1")
		}
		out[i] = v
		pos += int(v)
	}
	if pos == 0 || pos == n {
		return nil, flufitErrors.NewModelError(op, "outcome has a single class", flufitErrors.ErrSingleClass)
	}
	return out, nil
}

// Fit maximizes the Bernoulli log-likelihood with Newton's method on the exact Hessian,
// which for the logit link is iteratively reweighted least squares.
//
// Non-convergence and fitted probabilities of exactly 0 or 1 (separation) do not fail
// the fit; they are recorded as warnings.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) (err error) {
	defer flufitErrors.Recover(&err, "LogisticRegression.Fit")

	startTime := time.Now()
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 || nFeatures == 0 {
		return flufitErrors.NewModelError("LogisticRegression.Fit", "empty data", flufitErrors.ErrEmptyData)
	}
	if nSamples != yRows {
		return flufitErrors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return flufitErrors.NewValueError("LogisticRegression.Fit", "y must be a column vector")
	}

	yBinary, err := binaryLabels("LogisticRegression.Fit", y)
	if err != nil {
		return err
	}

	if lr.logger != nil {
		lr.logger.Debug("Training started",
			log.OperationKey, log.OperationFit,
			log.PhaseKey, log.PhaseTraining,
			log.SamplesKey, nSamples,
			log.FeaturesKey, nFeatures,
		)
	}

	lr.NFeatures = nFeatures
	lr.N = nSamples
	lr.warnings = nil

	D := linear.WithIntercept(X)
	kept, aliased := linear.Pivot(D, linear.AliasTolerance)
	lr.Rank = len(kept)
	lr.Aliased = aliased
	xD := linear.SelectColumns(D, kept)
	p := len(kept)
	terms := linear.TermNames(lr.FeatureNames, nFeatures)

	if len(aliased) > 0 {
		names := make([]string, len(aliased))
		for k, j := range aliased {
			names[k] = terms[j]
		}
		lr.warn(flufitErrors.NewRankDeficiencyWarning("LogisticRegression.Fit", names))
	}

	// Start from the intercept-only solution.
	x0 := make([]float64, p)
	var mean float64
	for _, v := range yBinary {
		mean += v
	}
	mean /= float64(nSamples)
	if kept[0] == 0 {
		x0[0] = math.Log(mean / (1 - mean))
	}

	invN := 1.0 / float64(nSamples)
	eta := mat.NewVecDense(nSamples, nil)
	linearPredictor := func(theta []float64) {
		eta.MulVec(xD, mat.NewVecDense(p, theta))
	}
	weights := make([]float64, nSamples)
	prob := optimize.Problem{
		Func: func(theta []float64) float64 {
			linearPredictor(theta)
			loss := 0.0
			for i := 0; i < nSamples; i++ {
				pr := clampProbability(stableSigmoid(eta.AtVec(i)))
				loss += -yBinary[i]*math.Log(pr) - (1.0-yBinary[i])*math.Log(1.0-pr)
			}
			return loss * invN
		},
		Grad: func(grad, theta []float64) {
			linearPredictor(theta)
			for j := range grad {
				grad[j] = 0
			}
			for i := 0; i < nSamples; i++ {
				diff := stableSigmoid(eta.AtVec(i)) - yBinary[i]
				row := xD.RawRowView(i)
				for j := 0; j < p; j++ {
					grad[j] += diff * row[j]
				}
			}
			for j := range grad {
				grad[j] *= invN
			}
		},
		// The logit link is canonical, so the Hessian of the mean negative
		// log-likelihood is the Fisher information over n and Newton steps are IRLS steps.
		Hess: func(hess *mat.SymDense, theta []float64) {
			linearPredictor(theta)
			for i := 0; i < nSamples; i++ {
				pr := stableSigmoid(eta.AtVec(i))
				weights[i] = pr * (1 - pr) * invN
			}
			crossProduct(hess, xD, weights)
		},
	}

	settings := optimize.Settings{
		GradientThreshold: lr.Tol,
		MajorIterations:   lr.MaxIter,
	}
	result, optErr := optimize.Minimize(prob, x0, &settings, &optimize.Newton{})
	if result == nil {
		return flufitErrors.NewModelError("LogisticRegression.Fit", "newton optimization failed", optErr)
	}

	theta := result.X
	lr.NIter = result.Stats.MajorIterations
	lr.Converged = optErr == nil && result.Status != optimize.IterationLimit
	if !lr.Converged {
		msg := "algorithm did not converge"
		if optErr != nil {
			msg += ": " + optErr.Error()
		}
		lr.warn(flufitErrors.NewConvergenceWarning("LogisticRegression.Fit", lr.NIter, msg))
	}

	// Log-likelihood, Fisher information and separation check at the solution.
	linearPredictor(theta)
	lr.LogLik = 0
	separated := false
	maxNeg, minPos := math.Inf(-1), math.Inf(1)
	for i := 0; i < nSamples; i++ {
		z := eta.AtVec(i)
		if yBinary[i] == 1 {
			minPos = math.Min(minPos, z)
		} else {
			maxNeg = math.Max(maxNeg, z)
		}
		pr := stableSigmoid(z)
		if pr < separationEps || pr > 1-separationEps {
			separated = true
		}
		pc := clampProbability(pr)
		lr.LogLik += yBinary[i]*math.Log(pc) + (1-yBinary[i])*math.Log(1-pc)
		weights[i] = pr * (1 - pr)
	}
	fisher := mat.NewSymDense(p, nil)
	crossProduct(fisher, xD, weights)
	// A linear predictor that splits the classes means the MLE does not exist.
	if maxNeg < minPos {
		separated = true
	}
	if separated {
		lr.warn(flufitErrors.NewSeparationWarning("LogisticRegression.Fit",
			"fitted probabilities numerically 0 or 1 occurred"))
	}

	se := make([]float64, p)
	var chol mat.Cholesky
	var cov mat.SymDense
	if chol.Factorize(fisher) && chol.InverseTo(&cov) == nil {
		for k := 0; k < p; k++ {
			se[k] = math.Sqrt(cov.At(k, k))
		}
	} else {
		for k := range se {
			se[k] = math.NaN()
		}
	}

	lr.Beta = make([]float64, nFeatures+1)
	lr.StdErr = make([]float64, nFeatures+1)
	for j := range lr.Beta {
		lr.Beta[j] = math.NaN()
		lr.StdErr[j] = math.NaN()
	}
	for k, j := range kept {
		lr.Beta[j] = theta[k]
		lr.StdErr[j] = se[k]
	}

	lr.State.SetFitted()
	lr.State.SetDimensions(nFeatures, nSamples)

	if lr.logger != nil {
		lr.logger.Debug("Training completed",
			log.OperationKey, log.OperationFit,
			log.PhaseKey, log.PhaseTraining,
			log.DurationMsKey, time.Since(startTime).Milliseconds(),
			"iterations", lr.NIter,
			"converged", lr.Converged,
		)
	}
	return nil
}

// crossProduct sets dst to X' diag(w) X.
func crossProduct(dst *mat.SymDense, X *mat.Dense, w []float64) {
	_, p := X.Dims()
	for a := 0; a < p; a++ {
		for b := a; b < p; b++ {
			dst.SetSym(a, b, 0)
		}
	}
	for i, wi := range w {
		row := X.RawRowView(i)
		for a := 0; a < p; a++ {
			xa := wi * row[a]
			for b := a; b < p; b++ {
				dst.SetSym(a, b, dst.At(a, b)+xa*row[b])
			}
		}
	}
}

func (lr *LogisticRegression) warn(w *flufitErrors.Warning) {
	lr.warnings = append(lr.warnings, w)
	if lr.logger != nil {
		lr.logger.Warn(w.Error(), log.OperationKey, log.OperationFit)
	}
}

func (lr *LogisticRegression) linearPredictor(X mat.Matrix, op string) ([]float64, error) {
	if !lr.State.IsFitted() {
		return nil, flufitErrors.NewNotFittedError("LogisticRegression", op)
	}
	r, c := X.Dims()
	if c != lr.NFeatures {
		return nil, flufitErrors.NewDimensionError("LogisticRegression."+op, lr.NFeatures, c, 1)
	}
	eta := make([]float64, r)
	for i := 0; i < r; i++ {
		z := zeroNaN(lr.Beta[0])
		for j := 0; j < c; j++ {
			z += X.At(i, j) * zeroNaN(lr.Beta[j+1])
		}
		eta[i] = z
	}
	return eta, nil
}

// Predict returns 1 where the positive-class probability is at least 0.5.
func (lr *LogisticRegression) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer flufitErrors.Recover(&err, "LogisticRegression.Predict")
	eta, err := lr.linearPredictor(X, "Predict")
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(eta), 1, nil)
	for i, z := range eta {
		if stableSigmoid(z) >= 0.5 {
			out.Set(i, 0, 1)
		}
	}
	return out, nil
}

// PredictProba returns [P(y=0), P(y=1)] per row.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (_ mat.Matrix, err error) {
	defer flufitErrors.Recover(&err, "LogisticRegression.PredictProba")
	eta, err := lr.linearPredictor(X, "PredictProba")
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(eta), 2, nil)
	for i, z := range eta {
		p := stableSigmoid(z)
		out.Set(i, 0, 1-p)
		out.Set(i, 1, p)
	}
	return out, nil
}

// Coefficients labels Beta and StdErr on the log-odds scale.
func (lr *LogisticRegression) Coefficients(featureNames []string) []model.Coefficient {
	if !lr.State.IsFitted() {
		return nil
	}
	if len(featureNames) == 0 {
		featureNames = lr.FeatureNames
	}
	terms := linear.TermNames(featureNames, lr.NFeatures)
	out := make([]model.Coefficient, len(lr.Beta))
	for j := range lr.Beta {
		out[j] = model.Coefficient{Term: terms[j], Estimate: lr.Beta[j], StdErr: lr.StdErr[j]}
	}
	return out
}

// LogLikelihood returns the Bernoulli log-likelihood at the fitted coefficients.
func (lr *LogisticRegression) LogLikelihood() float64 { return lr.LogLik }

// DoF is the number of estimated coefficients including the intercept.
func (lr *LogisticRegression) DoF() int { return lr.Rank }

// NObs is the number of training samples.
func (lr *LogisticRegression) NObs() int { return lr.N }

// Warnings returns the non-fatal problems from the last Fit.
func (lr *LogisticRegression) Warnings() []error { return lr.warnings }

// Score returns accuracy on X, y.
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	pred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}
	r, _ := y.Dims()
	correct := 0
	for i := 0; i < r; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(r), nil
}

// GetParams returns the model's hyperparameters.
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"max_iter": lr.MaxIter,
		"tol":      lr.Tol,
	}
}

// IsFitted returns whether the model has been fitted.
func (lr *LogisticRegression) IsFitted() bool {
	return lr.State.IsFitted()
}

func zeroNaN(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return x
}
