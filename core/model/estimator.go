package model

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Fitter trains on a design matrix X (n_samples x n_features) and a column y.
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor produces an n_samples x 1 matrix of predictions. For classifiers the
// prediction is the class label encoded as 0 or 1.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Estimator is the narrow contract consumed by the harness.
type Estimator interface {
	Fitter
	Predictor
}

// ProbabilisticClassifier returns an n_samples x 2 matrix whose second column is the
// probability of the positive class.
type ProbabilisticClassifier interface {
	Estimator
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// Transformer is a preprocessing step fitted on X alone.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
}

// LikelihoodModel exposes what AIC and BIC need.
type LikelihoodModel interface {
	LogLikelihood() float64
	// DoF is the number of estimated parameters, including scale parameters.
	DoF() int
	NObs() int
}

// CoefficientReporter is implemented by parametric models.
type CoefficientReporter interface {
	// Coefficients labels the fitted coefficients with the given feature names.
	// The intercept, when present, comes first under the term "(Intercept)".
	Coefficients(featureNames []string) []Coefficient
}

// ImportanceReporter is implemented by tree based models.
type ImportanceReporter interface {
	FeatureImportances() []float64
}

// WarningReporter exposes non-fatal problems found during the last Fit.
type WarningReporter interface {
	Warnings() []error
}

// InterceptTerm is the term name used for intercepts.
const InterceptTerm = "(Intercept)"

// Coefficient is one estimated term. Estimate and StdErr are NaN when the term is
// not estimable (aliased or zero-variance column).
type Coefficient struct {
	Term     string
	Estimate float64
	StdErr   float64
}

// Defined reports whether the coefficient could be estimated.
func (c Coefficient) Defined() bool {
	return !math.IsNaN(c.Estimate)
}

// MarshalJSON writes undefined values as null.
func (c Coefficient) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Term     string   `json:"term"`
		Estimate *float64 `json:"estimate"`
		StdErr   *float64 `json:"std_error"`
	}{c.Term, Finite(c.Estimate), Finite(c.StdErr)})
}

// Finite returns a pointer to x, or nil when x is NaN or infinite.
func Finite(x float64) *float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return nil
	}
	return &x
}

// ColumnVector copies column 0 of m into a vector.
func ColumnVector(m mat.Matrix) *mat.VecDense {
	if v, ok := m.(*mat.VecDense); ok {
		return v
	}
	r, _ := m.Dims()
	if r == 0 {
		return &mat.VecDense{}
	}
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}
