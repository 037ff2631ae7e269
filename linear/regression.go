// Package linear provides ordinary least squares regression and the design-matrix helpers
// shared with the other parametric models.
//
//   - LinearRegression: OLS via QR with an intercept, standard errors, Gaussian
//     log-likelihood for AIC/BIC
//   - Pivot: detection of aliased (collinear or zero-variance) design columns
//
// A rank-deficient design does not fail the fit. Aliased columns get undefined (NaN)
// coefficients, the remaining ones are estimated on the reduced design, and a
// rank-deficiency warning is recorded:
//
//	lr := linear.NewLinearRegression(linear.WithFeatureNames(names))
//	if err := lr.Fit(X, y); err != nil {
//		log.Fatal(err)
//	}
//	for _, c := range lr.Coefficients(names) {
//		fmt.Println(c.Term, c.Estimate, c.StdErr)
//	}
//	predictions, err := lr.Predict(XTest)
package linear

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/flufit/core/model"
	flufitErrors "github.com/ezoic/flufit/pkg/errors"
	"github.com/ezoic/flufit/pkg/log"
)

// LinearRegression is an ordinary least squares model with an intercept.
type LinearRegression struct {
	State *model.StateManager // Public for gob encoding

	// Beta holds the intercept followed by one coefficient per feature. Aliased
	// coefficients are NaN.
	Beta []float64

	// StdErr parallels Beta.
	StdErr []float64

	// Aliased lists design columns (0 is the intercept) that were not estimable.
	Aliased []int

	FeatureNames []string
	NFeatures    int
	Rank         int
	N            int
	RSS          float64
	Sigma        float64

	warnings []error
	logger   log.Logger
}

// Option configures a LinearRegression.
type Option func(*LinearRegression)

// WithFeatureNames sets the names used in warnings and coefficient tables.
func WithFeatureNames(names []string) Option {
	return func(lr *LinearRegression) {
		lr.FeatureNames = append([]string(nil), names...)
	}
}

// NewLinearRegression creates an untrained OLS model.
//
// Example:
//
//	lr := linear.NewLinearRegression()
//	err := lr.Fit(X, y)
//	predictions, err := lr.Predict(XTest)
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{
		State: model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(lr)
	}

	lr.logger = log.GetLoggerWithName("linear").With(
		log.ModelNameKey, "LinearRegression",
		log.ComponentKey, "linear",
	)

	return lr
}

// Fit estimates the coefficients by least squares.
//
// Errors:
//   - ErrEmptyData: if X or y are empty
//   - DimensionError: if X and y disagree on the number of samples
//   - ErrRankDeficient: if not even the intercept is estimable
func (lr *LinearRegression) Fit(X, y mat.Matrix) (err error) {
	defer flufitErrors.Recover(&err, "LinearRegression.Fit")

	startTime := time.Now()
	r, c := X.Dims()
	ry, cy := y.Dims()

	if lr.logger != nil {
		lr.logger.Debug("Training started",
			log.OperationKey, log.OperationFit,
			log.PhaseKey, log.PhaseTraining,
			log.SamplesKey, r,
			log.FeaturesKey, c,
		)
	}

	if r == 0 || c == 0 {
		return flufitErrors.NewModelError("LinearRegression.Fit", "empty data", flufitErrors.ErrEmptyData)
	}
	if ry != r {
		return flufitErrors.NewDimensionError("LinearRegression.Fit", r, ry, 0)
	}
	if cy != 1 {
		return flufitErrors.NewValueError("LinearRegression.Fit", "y must be a column vector")
	}

	lr.NFeatures = c
	lr.N = r
	lr.warnings = nil

	D := WithIntercept(X)
	kept, aliased := Pivot(D, AliasTolerance)
	if len(kept) == 0 {
		return flufitErrors.NewModelError("LinearRegression.Fit", "no estimable columns", flufitErrors.ErrRankDeficient)
	}
	lr.Rank = len(kept)
	lr.Aliased = aliased

	Xk := SelectColumns(D, kept)
	yMat := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		yMat.Set(i, 0, y.At(i, 0))
	}

	var qr mat.QR
	qr.Factorize(Xk)
	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, yMat); err != nil {
		return flufitErrors.NewModelError("LinearRegression.Fit", "least squares solve failed", flufitErrors.ErrSingularMatrix)
	}

	var fitted mat.Dense
	fitted.Mul(Xk, &beta)
	lr.RSS = 0
	for i := 0; i < r; i++ {
		res := yMat.At(i, 0) - fitted.At(i, 0)
		lr.RSS += res * res
	}

	lr.Sigma = math.NaN()
	if dfResid := r - lr.Rank; dfResid > 0 {
		lr.Sigma = math.Sqrt(lr.RSS / float64(dfResid))
	}

	se := standardErrors(Xk, lr.Sigma)

	lr.Beta = make([]float64, c+1)
	lr.StdErr = make([]float64, c+1)
	for j := range lr.Beta {
		lr.Beta[j] = math.NaN()
		lr.StdErr[j] = math.NaN()
	}
	for k, j := range kept {
		lr.Beta[j] = beta.At(k, 0)
		lr.StdErr[j] = se[k]
	}

	if len(aliased) > 0 {
		terms := TermNames(lr.FeatureNames, c)
		names := make([]string, len(aliased))
		for k, j := range aliased {
			names[k] = terms[j]
		}
		w := flufitErrors.NewRankDeficiencyWarning("LinearRegression.Fit", names)
		lr.warnings = append(lr.warnings, w)
		if lr.logger != nil {
			lr.logger.Warn(w.Error(), log.OperationKey, log.OperationFit)
		}
	}

	lr.State.SetFitted()
	lr.State.SetDimensions(lr.NFeatures, r)

	if lr.logger != nil {
		lr.logger.Debug("Training completed",
			log.OperationKey, log.OperationFit,
			log.PhaseKey, log.PhaseTraining,
			log.DurationMsKey, time.Since(startTime).Milliseconds(),
			log.SamplesKey, r,
			log.FeaturesKey, c,
		)
	}

	return nil
}

// standardErrors returns sqrt(diag(sigma^2 (X'X)^-1)) for a full-rank X.
func standardErrors(X *mat.Dense, sigma float64) []float64 {
	_, p := X.Dims()
	se := make([]float64, p)
	if math.IsNaN(sigma) {
		for k := range se {
			se[k] = math.NaN()
		}
		return se
	}

	var xtx mat.SymDense
	xtx.SymOuterK(1, X.T())
	var chol mat.Cholesky
	var inv mat.SymDense
	if !chol.Factorize(&xtx) || chol.InverseTo(&inv) != nil {
		for k := range se {
			se[k] = math.NaN()
		}
		return se
	}
	for k := 0; k < p; k++ {
		se[k] = sigma * math.Sqrt(inv.At(k, k))
	}
	return se
}

// Predict returns X*beta + intercept. Aliased coefficients contribute nothing.
func (lr *LinearRegression) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer flufitErrors.Recover(&err, "LinearRegression.Predict")
	if !lr.State.IsFitted() {
		return nil, flufitErrors.NewNotFittedError("LinearRegression", "Predict")
	}

	r, c := X.Dims()
	if c != lr.NFeatures {
		return nil, flufitErrors.NewDimensionError("LinearRegression.Predict", lr.NFeatures, c, 1)
	}

	if lr.logger != nil {
		lr.logger.Debug("Prediction started",
			log.OperationKey, log.OperationPredict,
			log.PhaseKey, log.PhaseInference,
			log.SamplesKey, r,
			log.FeaturesKey, c,
		)
	}

	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		pred := zeroNaN(lr.Beta[0])
		for j := 0; j < c; j++ {
			pred += X.At(i, j) * zeroNaN(lr.Beta[j+1])
		}
		predictions.Set(i, 0, pred)
	}

	return predictions, nil
}

func zeroNaN(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return x
}

// Coefficients labels Beta and StdErr. featureNames overrides the names given at
// construction when non-empty.
func (lr *LinearRegression) Coefficients(featureNames []string) []model.Coefficient {
	if !lr.State.IsFitted() {
		return nil
	}
	if len(featureNames) == 0 {
		featureNames = lr.FeatureNames
	}
	terms := TermNames(featureNames, lr.NFeatures)
	out := make([]model.Coefficient, len(lr.Beta))
	for j := range lr.Beta {
		out[j] = model.Coefficient{Term: terms[j], Estimate: lr.Beta[j], StdErr: lr.StdErr[j]}
	}
	return out
}

// LogLikelihood is the Gaussian log-likelihood at the maximum likelihood variance
// RSS/n.
func (lr *LinearRegression) LogLikelihood() float64 {
	n := float64(lr.N)
	return 0.5 * (-n * (math.Log(2*math.Pi) + 1 - math.Log(n) + math.Log(lr.RSS)))
}

// DoF counts the estimated coefficients plus the residual variance.
func (lr *LinearRegression) DoF() int {
	return lr.Rank + 1
}

// NObs is the number of training samples.
func (lr *LinearRegression) NObs() int {
	return lr.N
}

// Warnings returns the non-fatal problems from the last Fit.
func (lr *LinearRegression) Warnings() []error {
	return lr.warnings
}

// Score calculates the coefficient of determination (R²) on X, y.
func (lr *LinearRegression) Score(X, y mat.Matrix) (_ float64, err error) {
	defer flufitErrors.Recover(&err, "LinearRegression.Score")
	if !lr.State.IsFitted() {
		return 0, flufitErrors.NewNotFittedError("LinearRegression", "Score")
	}

	yPred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}

	r, _ := y.Dims()
	var yMean float64
	for i := 0; i < r; i++ {
		yMean += y.At(i, 0)
	}
	yMean /= float64(r)

	var tss, rss float64
	for i := 0; i < r; i++ {
		yTrue := y.At(i, 0)
		d := yTrue - yPred.At(i, 0)
		tss += (yTrue - yMean) * (yTrue - yMean)
		rss += d * d
	}
	if tss == 0 {
		return 0, flufitErrors.NewValueError("LinearRegression.Score", "total sum of squares is zero")
	}
	return 1 - rss/tss, nil
}

// IsFitted returns whether the model has been fitted.
func (lr *LinearRegression) IsFitted() bool {
	return lr.State.IsFitted()
}

// GetParams returns the model's hyperparameters.
func (lr *LinearRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_features": lr.NFeatures,
		"fitted":     lr.State.IsFitted(),
	}
}
