package metrics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	flufitErrors "github.com/ezoic/flufit/pkg/errors"
)

// ROCPoint is one point of a ROC curve. Threshold is the lowest score classified
// positive at that point; the first point (0, 0) has Threshold +Inf.
type ROCPoint struct {
	Threshold float64
	FPR       float64
	TPR       float64
}

// ROCCurve computes the ROC curve of scores against binary labels (1 = positive).
// Tied scores produce a single point, so the curve has one diagonal segment per tie
// group.
//
// Errors:
//   - ValueError / DimensionError: invalid input
//   - ValidationError: labels other than 0 and 1
//   - MetricUndefinedError wrapping ErrSingleClass: only one class present
func ROCCurve(yTrue, score *mat.VecDense) ([]ROCPoint, error) {
	n, err := checkPair("ROCCurve", yTrue, score)
	if err != nil {
		return nil, err
	}

	type pair struct {
		score float64
		label float64
	}
	pairs := make([]pair, n)
	var totalPos, totalNeg float64
	for i := 0; i < n; i++ {
		y := yTrue.AtVec(i)
		if y != 0.0 && y != 1.0 {
			return nil, flufitErrors.NewValidationError(
				"yTrue",
				fmt.Sprintf("must contain only binary values (0 or 1), found %f at index %d", y, i),
				y,
			)
		}
		if y == 1.0 {
			totalPos++
		} else {
			totalNeg++
		}
		pairs[i] = pair{score: score.AtVec(i), label: y}
	}

	if totalPos == 0 || totalNeg == 0 {
		return nil, flufitErrors.NewMetricUndefinedError("roc_auc",
			"only one outcome class present", flufitErrors.ErrSingleClass)
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].score > pairs[j].score
	})

	points := []ROCPoint{{Threshold: math.Inf(1)}}
	var tp, fp float64
	for i, p := range pairs {
		if p.label == 1.0 {
			tp++
		} else {
			fp++
		}
		if i == n-1 || pairs[i+1].score != p.score {
			points = append(points, ROCPoint{
				Threshold: p.score,
				FPR:       fp / totalNeg,
				TPR:       tp / totalPos,
			})
		}
	}
	return points, nil
}

// AUC calculates the area under the ROC curve with the trapezoidal rule. It equals the
// probability that a random positive scores above a random negative, with ties counted
// as one half, so constant scores give exactly 0.5.
//
// Example:
//
//	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
//	score := mat.NewVecDense(4, []float64{0.1, 0.4, 0.35, 0.8})
//	auc, err := metrics.AUC(yTrue, score)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("AUC: %.2f\n", auc) // AUC: 0.75
func AUC(yTrue, score *mat.VecDense) (float64, error) {
	points, err := ROCCurve(yTrue, score)
	if err != nil {
		return 0, err
	}

	auc := 0.0
	for i := 1; i < len(points); i++ {
		width := points[i].FPR - points[i-1].FPR
		height := (points[i].TPR + points[i-1].TPR) / 2
		auc += width * height
	}
	return auc, nil
}

// BinaryLogLoss is the mean negative Bernoulli log-likelihood of probabilities p
// for labels in {0, 1}. Probabilities are clipped to [1e-15, 1-1e-15].
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	const epsilon = 1e-15
	loss := 0.0
	for i := 0; i < n; i++ {
		y := yTrue.AtVec(i)
		p := yPred.AtVec(i)
		if y != 0.0 && y != 1.0 {
			return 0, flufitErrors.NewValidationError(
				"yTrue",
				fmt.Sprintf("must contain only binary values (0 or 1), found %f at index %d", y, i),
				y,
			)
		}
		p = math.Min(math.Max(p, epsilon), 1-epsilon)
		if y == 1.0 {
			loss -= math.Log(p)
		} else {
			loss -= math.Log(1 - p)
		}
	}
	return loss / float64(n), nil
}

// ClassificationError is the fraction of predictions that differ from yTrue.
//
// Example:
//
//	yTrue := mat.NewVecDense(5, []float64{0, 1, 1, 1, 0})
//	yPred := mat.NewVecDense(5, []float64{0, 1, 0, 1, 0})
//	errorRate, err := metrics.ClassificationError(yTrue, yPred) // 0.2
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("ClassificationError", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	wrong := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) != yPred.AtVec(i) {
			wrong++
		}
	}
	return float64(wrong) / float64(n), nil
}

// Accuracy is the fraction of correct predictions.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	errorRate, err := ClassificationError(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1.0 - errorRate, nil
}
