package tree

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/flufit/core/model"
)

// stepData has y = 5 when x0 >= 10 and 0 otherwise; x1 is noise-free but irrelevant.
func stepData() (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(20, 2, nil)
	y := mat.NewVecDense(20, nil)
	for i := 0; i < 20; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%3))
		if i >= 10 {
			y.SetVec(i, 5)
		}
	}
	return X, y
}

func TestDecisionTreeRegressor_Step(t *testing.T) {
	X, y := stepData()
	dt := NewDecisionTreeRegressor()
	require.NoError(t, dt.Fit(X, y))

	assert.Equal(t, 1, dt.Depth())
	assert.Equal(t, 2, dt.NLeaves())
	assert.Equal(t, 0, dt.Nodes[0].Feature)
	assert.InDelta(t, 9.5, dt.Nodes[0].Threshold, 1e-12)
	assert.Equal(t, []float64{1, 0}, dt.FeatureImportances())

	pred, err := dt.Predict(mat.NewDense(2, 2, []float64{3, 0, 15, 1}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, pred.At(0, 0))
	assert.Equal(t, 5.0, pred.At(1, 0))
}

func TestDecisionTreeRegressor_Hyperparameters(t *testing.T) {
	X := mat.NewDense(40, 1, nil)
	y := mat.NewVecDense(40, nil)
	for i := 0; i < 40; i++ {
		X.Set(i, 0, float64(i))
		y.SetVec(i, float64(i*i%17))
	}

	tests := []struct {
		name      string
		opts      []Option
		maxDepth  int
		maxLeaves int
	}{
		{"depth limit", []Option{WithMaxDepth(2), WithCostComplexity(0)}, 2, 4},
		{"root only when cp is 1", []Option{WithCostComplexity(1)}, 0, 1},
		{"min split above n", []Option{WithMinSamplesSplit(41)}, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dt := NewDecisionTreeRegressor(tt.opts...)
			require.NoError(t, dt.Fit(X, y))
			assert.LessOrEqual(t, dt.Depth(), tt.maxDepth)
			assert.LessOrEqual(t, dt.NLeaves(), tt.maxLeaves)
		})
	}

	// Smaller cost complexity never gives a smaller tree.
	loose := NewDecisionTreeRegressor(WithCostComplexity(0.0001))
	strict := NewDecisionTreeRegressor(WithCostComplexity(0.1))
	require.NoError(t, loose.Fit(X, y))
	require.NoError(t, strict.Fit(X, y))
	assert.GreaterOrEqual(t, loose.NLeaves(), strict.NLeaves())
}

func TestDecisionTreeClassifier(t *testing.T) {
	X, yReg := stepData()
	y := mat.NewVecDense(20, nil)
	for i := 0; i < 20; i++ {
		if yReg.AtVec(i) > 0 {
			y.SetVec(i, 1)
		}
	}
	y.SetVec(12, 0) // one impure leaf

	dt := NewDecisionTreeClassifier(WithMaxDepth(1))
	require.NoError(t, dt.Fit(X, y))

	proba, err := dt.PredictProba(mat.NewDense(2, 2, []float64{2, 0, 17, 2}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, proba.At(0, 1))
	assert.InDelta(t, 0.9, proba.At(1, 1), 1e-12)
	assert.InDelta(t, 0.1, proba.At(1, 0), 1e-12)

	pred, err := dt.Predict(mat.NewDense(2, 2, []float64{2, 0, 17, 2}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, pred.At(0, 0))
	assert.Equal(t, 1.0, pred.At(1, 0))

	err = NewDecisionTreeClassifier().Fit(X, yReg)
	assert.Error(t, err, "labels other than 0/1 must be rejected")
}

func TestFitRowsWithRepeats(t *testing.T) {
	X, y := stepData()
	yv := make([]float64, 20)
	for i := range yv {
		yv[i] = y.AtVec(i)
	}
	rows := []int{0, 0, 1, 2, 15, 15, 16, 19}

	dt := NewDecisionTreeRegressor()
	require.NoError(t, dt.FitRows(X, yv, rows))
	assert.Equal(t, 8, dt.Nodes[0].NSamples)
	assert.InDelta(t, 2.5, dt.Nodes[0].Value, 1e-12)
}

func TestMaxFeaturesIsSeeded(t *testing.T) {
	X := mat.NewDense(60, 4, nil)
	y := mat.NewVecDense(60, nil)
	for i := 0; i < 60; i++ {
		for j := 0; j < 4; j++ {
			X.Set(i, j, float64((i*(j+3))%11))
		}
		y.SetVec(i, X.At(i, 0)+2*X.At(i, 2))
	}

	a := NewDecisionTreeRegressor(WithMaxFeatures(2), WithRandomState(42), WithCostComplexity(0))
	b := NewDecisionTreeRegressor(WithMaxFeatures(2), WithRandomState(42), WithCostComplexity(0))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))
	assert.Equal(t, a.Nodes, b.Nodes)
}

func TestTreePersistence(t *testing.T) {
	X, y := stepData()
	dt := NewDecisionTreeRegressor()
	require.NoError(t, dt.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(dt, &buf))

	loaded := NewDecisionTreeRegressor()
	require.NoError(t, model.LoadModelFromReader(loaded, &buf))

	want, err := dt.Predict(X)
	require.NoError(t, err)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))
}

func TestPredictErrors(t *testing.T) {
	_, err := NewDecisionTreeRegressor().Predict(mat.NewDense(1, 2, nil))
	assert.Error(t, err)

	X, y := stepData()
	dt := NewDecisionTreeRegressor()
	require.NoError(t, dt.Fit(X, y))
	_, err = dt.Predict(mat.NewDense(1, 3, nil))
	assert.Error(t, err)
}
