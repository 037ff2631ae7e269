package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/flufit/core/model"
	"github.com/ezoic/flufit/preprocessing"
	"github.com/ezoic/flufit/sklearn/linear_model"
	"github.com/ezoic/flufit/sklearn/pipeline"
)

func TestPipelineScalerLasso(t *testing.T) {
	// y = 10 + 3*x0 on very different feature scales.
	X := mat.NewDense(6, 2, []float64{
		1, 1000,
		2, 3000,
		3, 2000,
		4, 5000,
		5, 4000,
		6, 6000,
	})
	y := mat.NewVecDense(6, []float64{13, 16, 19, 22, 25, 28})

	scaler := preprocessing.NewStandardScalerDefault()
	lasso := linear_model.NewLasso(linear_model.WithAlpha(0.001), linear_model.WithLassoTol(1e-12))
	pipe := pipeline.Make(scaler, lasso)
	require.NoError(t, pipe.Fit(X, y))

	assert.True(t, scaler.IsFitted())
	assert.InDelta(t, 3.5, scaler.Mean[0], 1e-12)

	pred, err := pipe.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		assert.InDelta(t, y.AtVec(i), pred.At(i, 0), 0.05)
	}

	var reporter model.CoefficientReporter = pipe
	coefs := reporter.Coefficients([]string{"x0", "x1"})
	require.Len(t, coefs, 3)
	assert.InDelta(t, 20.5, coefs[0].Estimate, 1e-6)

	params := pipe.GetParams()
	assert.Equal(t, 0.001, params["step2__alpha"])
}

func TestPipelinePredictProbaPassThrough(t *testing.T) {
	X := mat.NewDense(8, 1, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	y := mat.NewVecDense(8, []float64{0, 0, 1, 0, 1, 0, 1, 1})

	pipe := pipeline.Make(preprocessing.NewStandardScalerDefault(), linear_model.NewLassoClassifier(linear_model.WithAlpha(0.01)))
	require.NoError(t, pipe.Fit(X, y))

	proba, err := pipe.PredictProba(X)
	require.NoError(t, err)
	assert.Less(t, proba.At(0, 1), proba.At(7, 1))

	pipe = pipeline.Make(preprocessing.NewStandardScalerDefault(), linear_model.NewLasso())
	require.NoError(t, pipe.Fit(X, y))
	_, err = pipe.PredictProba(X)
	assert.Error(t, err, "Lasso has no PredictProba")
}

func TestPipelineErrors(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{1, 2})
	y := mat.NewVecDense(2, []float64{1, 2})

	_, err := pipeline.Make(linear_model.NewLasso()).Predict(X)
	assert.Error(t, err, "not fitted")

	err = pipeline.Make(linear_model.NewLasso(), linear_model.NewLasso()).Fit(X, y)
	assert.Error(t, err, "intermediate step must be a transformer")

	err = pipeline.New().Fit(X, y)
	assert.Error(t, err)
}
