package errors_test

import (
	"errors"
	"fmt"

	flufitErrors "github.com/ezoic/flufit/pkg/errors"
)

// Example_schemaError shows how a preparation stage reports missing columns.
func Example_schemaError() {
	err := flufitErrors.NewSchemaError("Prepare", "expected columns absent after filtering", "BodyTemp", "Nausea")

	var schemaErr *flufitErrors.SchemaError
	if errors.As(fmt.Errorf("prepare stage: %w", err), &schemaErr) {
		fmt.Println(schemaErr.Missing)
	}
	fmt.Println(flufitErrors.IsFatal(err))

	// Output: [BodyTemp Nausea]
	// true
}

// Example_metricUndefined shows that an undefined metric is not fatal.
func Example_metricUndefined() {
	err := flufitErrors.NewMetricUndefinedError("roc_auc", "test partition contains a single class", flufitErrors.ErrSingleClass)

	fmt.Println(err)
	fmt.Println(errors.Is(err, flufitErrors.ErrSingleClass))
	fmt.Println(flufitErrors.IsFatal(err))

	// Output: metric roc_auc undefined: test partition contains a single class
	// true
	// false
}

// Example_warning shows the message of a rank deficiency warning.
func Example_warning() {
	w := flufitErrors.NewRankDeficiencyWarning("LinearRegression.Fit", []string{"CoughYN2_Yes"})
	fmt.Println(w)

	// Output: rank_deficiency warning in LinearRegression.Fit: coefficients not defined because of singularities [CoughYN2_Yes]
}

// Example_modelError shows sentinel matching through a ModelError chain.
func Example_modelError() {
	base := flufitErrors.NewModelError("LinearRegression.Fit", "empty data", flufitErrors.ErrEmptyData)
	wrapped := fmt.Errorf("candidate linear: %w", base)

	fmt.Println(wrapped)
	fmt.Println(errors.Is(wrapped, flufitErrors.ErrEmptyData))

	// Output: candidate linear: flufit: LinearRegression.Fit: empty data: empty data
	// true
}
