package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flufitErrors "github.com/ezoic/flufit/pkg/errors"
)

func TestErrorWrappingCompatibility(t *testing.T) {
	original := flufitErrors.NewNotFittedError("DecisionTreeRegressor", "Predict")
	wrapped := fmt.Errorf("tuning unit failed: %w", original)

	assert.True(t, errors.Is(wrapped, original))

	var notFitted *flufitErrors.NotFittedError
	require.True(t, errors.As(wrapped, &notFitted))
	assert.Equal(t, "DecisionTreeRegressor", notFitted.ModelName)
	assert.Equal(t, "Predict", notFitted.Method)
}

func TestDimensionErrorMessage(t *testing.T) {
	err := flufitErrors.NewDimensionError("RMSE", 10, 9, 0)

	var dimErr *flufitErrors.DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 10, dimErr.Expected)
	assert.Equal(t, 9, dimErr.Got)
	assert.Contains(t, err.Error(), "rows")
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"schema", flufitErrors.NewSchemaError("Prepare", "shape regression"), true},
		{"io", errors.New("open raw.gob: no such file"), true},
		{"warning", flufitErrors.NewSeparationWarning("LogisticRegression.Fit", "fitted probabilities 0 or 1"), false},
		{"wrapped warning", fmt.Errorf("fit: %w", flufitErrors.NewConvergenceWarning("Lasso.Fit", 1000, "max iterations")), false},
		{"metric", flufitErrors.NewMetricUndefinedError("roc_auc", "single class", nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, flufitErrors.IsFatal(tt.err))
		})
	}
}

func TestRecover(t *testing.T) {
	run := func() (err error) {
		defer flufitErrors.Recover(&err, "Test.Run")
		panic("boom")
	}

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Test.Run")
	assert.Contains(t, err.Error(), "boom")
}

func TestRecoverErrorPanic(t *testing.T) {
	cause := errors.New("matrix singular")
	run := func() (err error) {
		defer flufitErrors.Recover(&err, "Test.Run")
		panic(cause)
	}

	err := run()
	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
}

func TestWarnDoesNotPanicOnNil(t *testing.T) {
	assert.NotPanics(t, func() { flufitErrors.Warn(nil) })
	assert.NotPanics(t, func() {
		flufitErrors.Warn(flufitErrors.NewConvergenceWarning("LogisticRegression.Fit", 100, "max iterations reached"))
	})
}
