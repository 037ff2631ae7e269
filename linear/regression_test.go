package linear

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	flufitErrors "github.com/ezoic/flufit/pkg/errors"
)

func TestLinearRegression_Fit(t *testing.T) {
	tests := []struct {
		name    string
		X       *mat.Dense
		y       *mat.VecDense
		wantErr bool
	}{
		{
			name: "simple linear relationship y = 2x + 1",
			X:    mat.NewDense(5, 1, []float64{1, 2, 3, 4, 5}),
			y:    mat.NewVecDense(5, []float64{3, 5, 7, 9, 11}),
		},
		{
			name: "multiple features",
			X: mat.NewDense(5, 2, []float64{
				1.0, 2.0,
				2.0, 1.0,
				3.0, 4.0,
				4.0, 3.0,
				5.0, 5.0,
			}),
			y: mat.NewVecDense(5, []float64{5, 4, 11, 10, 15}),
		},
		{
			name:    "empty data",
			X:       &mat.Dense{},
			y:       &mat.VecDense{},
			wantErr: true,
		},
		{
			name:    "mismatched dimensions",
			X:       mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6}),
			y:       mat.NewVecDense(2, []float64{1, 2}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := NewLinearRegression()
			err := lr.Fit(tt.X, tt.y)

			if (err != nil) != tt.wantErr {
				t.Fatalf("LinearRegression.Fit() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !lr.IsFitted() {
				t.Error("model should be fitted")
			}
			pred, err := lr.Predict(tt.X)
			require.NoError(t, err)
			r, _ := tt.X.Dims()
			for i := 0; i < r; i++ {
				assert.InDelta(t, tt.y.AtVec(i), pred.At(i, 0), 1e-9)
			}
		})
	}
}

func TestLinearRegression_StandardErrors(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	y := []float64{1.1, 1.9, 3.2, 3.8, 5.3, 5.7}
	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(mat.NewDense(6, 1, x), mat.NewVecDense(6, y)))

	// Closed form for simple regression.
	var xm, ym float64
	for i := range x {
		xm += x[i]
		ym += y[i]
	}
	xm /= 6
	ym /= 6
	var sxx, sxy float64
	for i := range x {
		sxx += (x[i] - xm) * (x[i] - xm)
		sxy += (x[i] - xm) * (y[i] - ym)
	}
	slope := sxy / sxx
	intercept := ym - slope*xm
	var rss float64
	for i := range x {
		d := y[i] - intercept - slope*x[i]
		rss += d * d
	}
	sigma := math.Sqrt(rss / 4)

	assert.InDelta(t, intercept, lr.Beta[0], 1e-9)
	assert.InDelta(t, slope, lr.Beta[1], 1e-9)
	assert.InDelta(t, sigma/math.Sqrt(sxx), lr.StdErr[1], 1e-9)
	assert.InDelta(t, sigma*math.Sqrt(1.0/6+xm*xm/sxx), lr.StdErr[0], 1e-9)
	assert.InDelta(t, rss, lr.RSS, 1e-9)
	assert.Equal(t, 3, lr.DoF())
	assert.Equal(t, 6, lr.NObs())

	n := 6.0
	wantLL := -n/2*math.Log(2*math.Pi*rss/n) - n/2
	assert.InDelta(t, wantLL, lr.LogLikelihood(), 1e-9)
}

func TestLinearRegression_RankDeficient(t *testing.T) {
	// Column 2 duplicates column 1 and column 3 is constant.
	X := mat.NewDense(6, 3, []float64{
		1, 1, 7,
		0, 0, 7,
		1, 1, 7,
		0, 0, 7,
		1, 1, 7,
		0, 0, 7,
	})
	y := mat.NewVecDense(6, []float64{98.6, 99.2, 98.7, 99.1, 98.5, 99.3})

	lr := NewLinearRegression(WithFeatureNames([]string{"CoughYN_Yes", "CoughYN2_Yes", "Site_A"}))
	require.NoError(t, lr.Fit(X, y))

	assert.Equal(t, []int{2, 3}, lr.Aliased)
	assert.Equal(t, 2, lr.Rank)
	assert.False(t, math.IsNaN(lr.Beta[1]))
	assert.True(t, math.IsNaN(lr.Beta[2]))
	assert.True(t, math.IsNaN(lr.Beta[3]))
	assert.InDelta(t, 98.6-99.2, lr.Beta[1], 1e-9)

	require.Len(t, lr.Warnings(), 1)
	var w *flufitErrors.Warning
	require.ErrorAs(t, lr.Warnings()[0], &w)
	assert.Equal(t, flufitErrors.RankDeficiencyWarning, w.Kind)
	assert.Equal(t, []string{"CoughYN2_Yes", "Site_A"}, w.Terms)

	coefs := lr.Coefficients(nil)
	require.Len(t, coefs, 4)
	assert.Equal(t, "(Intercept)", coefs[0].Term)
	assert.False(t, coefs[2].Defined())

	pred, err := lr.Predict(X)
	require.NoError(t, err)
	assert.InDelta(t, 98.6, pred.At(0, 0), 1e-9)
	assert.InDelta(t, 99.2, pred.At(1, 0), 1e-9)
}

func TestPivot(t *testing.T) {
	D := mat.NewDense(4, 4, []float64{
		1, 1, 2, 0,
		1, 2, 4, 0,
		1, 3, 6, 0,
		1, 5, 10, 0,
	})
	kept, aliased := Pivot(D, AliasTolerance)
	assert.Equal(t, []int{0, 1}, kept)
	assert.Equal(t, []int{2, 3}, aliased)
}

func TestLinearRegression_PredictErrors(t *testing.T) {
	lr := NewLinearRegression()
	_, err := lr.Predict(mat.NewDense(1, 1, []float64{1}))
	assert.Error(t, err)

	require.NoError(t, lr.Fit(mat.NewDense(3, 1, []float64{1, 2, 3}), mat.NewVecDense(3, []float64{1, 2, 4})))
	_, err = lr.Predict(mat.NewDense(1, 2, []float64{1, 2}))
	assert.Error(t, err)
}

func TestLinearRegression_Score(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	y := mat.NewVecDense(4, []float64{2, 4, 6, 8})
	lr := NewLinearRegression()
	require.NoError(t, lr.Fit(X, y))

	score, err := lr.Score(X, y)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, score, 1e-9)

	_, err = lr.Score(X, mat.NewVecDense(4, []float64{5, 5, 5, 5}))
	require.Error(t, err)
	var valueErr *flufitErrors.ValueError
	assert.ErrorAs(t, err, &valueErr)
	assert.Contains(t, err.Error(), "total sum of squares is zero")
}
