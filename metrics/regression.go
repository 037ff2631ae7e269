// Package metrics provides the evaluation metrics used to compare fitted models.
//
// Regression metrics:
//   - MSE, RMSE, MAE
//   - R2Score: coefficient of determination
//
// Classification metrics:
//   - AUC and ROCCurve: area under / points of the ROC curve from scores
//   - Accuracy, ClassificationError, BinaryLogLoss
//
// Likelihood-based criteria:
//   - AIC, BIC
//
// Resampling summaries:
//   - MeanStdErr: mean and standard error of per-fold estimates
//
// A metric that is mathematically undefined on its input (an assessment fold with a
// single outcome class, a constant target for R²) returns a *errors.MetricUndefinedError.
// Callers record it against that one metric and keep going.
//
// Example usage:
//
//	rmse, err := metrics.RMSE(yTrue, yPred)
//	auc, err := metrics.AUC(yTrue, probPositive)
//	aic := metrics.AIC(ll, k)
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	flufitErrors "github.com/ezoic/flufit/pkg/errors"
)

// MSE calculates the Mean Squared Error between true and predicted values.
//
// Errors:
//   - ValueError: if input vectors are empty
//   - DimensionError: if yTrue and yPred have different lengths
//
// Example:
//
//	mse, err := metrics.MSE(yTrue, yPred)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("MSE: %.4f\n", mse)
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// MSEMatrix calculates MSE for n×1 matrix inputs.
func MSEMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	rTrue, cTrue := yTrue.Dims()
	rPred, cPred := yPred.Dims()

	if rTrue == 0 || cTrue == 0 {
		return 0, flufitErrors.NewValueError("MSEMatrix", "empty matrix")
	}
	if rTrue != rPred || cTrue != cPred {
		return 0, flufitErrors.NewDimensionError("MSEMatrix", rTrue, rPred, 0)
	}
	if cTrue != 1 {
		return 0, flufitErrors.NewValueError("MSEMatrix", "must be a column vector (n×1 matrix)")
	}

	return MSE(toVec(yTrue), toVec(yPred))
}

// RMSE is the square root of MSE, in the units of the target.
//
// Example:
//
//	rmse, err := metrics.RMSE(yTrue, yPred)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("RMSE: %.4f\n", rmse)
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE calculates the Mean Absolute Error between true and predicted values.
func MAE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// R2Score calculates the coefficient of determination 1 - RSS/TSS.
//
// R² can be negative on held-out data when predictions are worse than the mean of
// yTrue. It is undefined, and a MetricUndefinedError is returned, when yTrue has no
// variance.
//
// Example:
//
//	r2, err := metrics.R2Score(yTrue, yPred)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("R² Score: %.4f\n", r2)
func R2Score(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var yMean float64
	for i := 0; i < n; i++ {
		yMean += yTrue.AtVec(i)
	}
	yMean /= float64(n)

	var tss, rss float64
	for i := 0; i < n; i++ {
		t := yTrue.AtVec(i)
		p := yPred.AtVec(i)
		tss += (t - yMean) * (t - yMean)
		rss += (t - p) * (t - p)
	}

	if tss == 0 {
		return 0, flufitErrors.NewMetricUndefinedError("rsq", "no variance in observed values", nil)
	}
	return 1 - rss/tss, nil
}

func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, flufitErrors.NewValueError(op, "input vectors cannot be nil")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, flufitErrors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, flufitErrors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

func toVec(m mat.Matrix) *mat.VecDense {
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}
