package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// AIC is Akaike's information criterion -2ll + 2k, where k counts every estimated
// parameter including scale parameters.
func AIC(logLik float64, k int) float64 {
	return -2*logLik + 2*float64(k)
}

// BIC is the Bayesian information criterion -2ll + k ln(n).
func BIC(logLik float64, k, n int) float64 {
	return -2*logLik + float64(k)*math.Log(float64(n))
}

// MeanStdErr summarizes resampled estimates. NaN entries (failed or undefined folds)
// are skipped; count is the number of finite estimates. With fewer than two estimates
// the standard error is NaN.
func MeanStdErr(values []float64) (mean, stdErr float64, count int) {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	count = len(finite)
	switch count {
	case 0:
		return math.NaN(), math.NaN(), 0
	case 1:
		return finite[0], math.NaN(), 1
	}
	mean, std := stat.MeanStdDev(finite, nil)
	return mean, std / math.Sqrt(float64(count)), count
}
