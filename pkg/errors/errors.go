// Package errors provides the error types, sentinels and warnings shared by every
// flufit package.
//
// It is a thin layer over github.com/cockroachdb/errors: stack-carrying constructors
// and wrapping helpers are re-exported so callers only import one errors package,
// and the typed errors below all work with errors.Is / errors.As.
//
// Two classes of failure exist in the pipeline:
//
//   - fatal errors (SchemaError, I/O failures) abort the current stage
//   - warnings (rank deficiency, separation, non-convergence) and
//     MetricUndefinedError are recorded on a result and the run continues
package errors

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Sentinel errors.
var (
	ErrEmptyData          = errors.New("empty data")
	ErrSingularMatrix     = errors.New("singular matrix")
	ErrRankDeficient      = errors.New("rank deficient design")
	ErrSingleClass        = errors.New("single class")
	ErrUnsupportedOutcome = errors.New("unsupported outcome kind")
)

// Re-exported helpers from cockroachdb/errors.
var (
	New    = errors.New
	Newf   = errors.Newf
	Wrap   = errors.Wrap
	Wrapf  = errors.Wrapf
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

// DimensionError reports mismatched matrix or vector dimensions.
// Axis is 0 for rows and 1 for columns.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

func (e *DimensionError) Error() string {
	axis := "rows"
	if e.Axis == 1 {
		axis = "columns"
	}
	return fmt.Sprintf("%s: dimension mismatch in %s: expected %d, got %d", e.Op, axis, e.Expected, e.Got)
}

// NewDimensionError creates a DimensionError.
func NewDimensionError(op string, expected, got, axis int) error {
	return errors.WithStack(&DimensionError{Op: op, Expected: expected, Got: got, Axis: axis})
}

// ValueError reports an invalid argument value.
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// NewValueError creates a ValueError.
func NewValueError(op, message string) error {
	return errors.WithStack(&ValueError{Op: op, Message: message})
}

// NotFittedError is returned when an estimator is used before Fit.
type NotFittedError struct {
	ModelName string
	Method    string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("%s: %s called before Fit", e.ModelName, e.Method)
}

// NewNotFittedError creates a NotFittedError.
func NewNotFittedError(modelName, method string) error {
	return errors.WithStack(&NotFittedError{ModelName: modelName, Method: method})
}

// ModelError attaches an operation and a message to an underlying cause.
type ModelError struct {
	Op      string
	Message string
	Err     error
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("flufit: %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("flufit: %s: %s: %v", e.Op, e.Message, e.Err)
}

// Unwrap returns the cause.
func (e *ModelError) Unwrap() error { return e.Err }

// NewModelError creates a ModelError wrapping err.
func NewModelError(op, message string, err error) error {
	return &ModelError{Op: op, Message: message, Err: err}
}

// ValidationError reports a parameter or input that failed validation.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, message string, value interface{}) error {
	return errors.WithStack(&ValidationError{Field: field, Message: message, Value: value})
}

// SchemaError reports a table whose columns or shape differ from what a stage expects.
// It is fatal for data preparation.
type SchemaError struct {
	Op      string
	Message string
	Missing []string
}

func (e *SchemaError) Error() string {
	if len(e.Missing) == 0 {
		return fmt.Sprintf("%s: schema: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: schema: %s: missing [%s]", e.Op, e.Message, strings.Join(e.Missing, ", "))
}

// NewSchemaError creates a SchemaError.
func NewSchemaError(op, message string, missing ...string) error {
	return errors.WithStack(&SchemaError{Op: op, Message: message, Missing: missing})
}

// MetricUndefinedError is returned when a metric cannot be computed on a partition,
// e.g. ROC-AUC on a single-class test set. Other metrics are unaffected.
type MetricUndefinedError struct {
	Metric string
	Reason string
	Err    error
}

func (e *MetricUndefinedError) Error() string {
	return fmt.Sprintf("metric %s undefined: %s", e.Metric, e.Reason)
}

// Unwrap returns the cause.
func (e *MetricUndefinedError) Unwrap() error { return e.Err }

// NewMetricUndefinedError creates a MetricUndefinedError.
func NewMetricUndefinedError(metric, reason string, cause error) error {
	return errors.WithStack(&MetricUndefinedError{Metric: metric, Reason: reason, Err: cause})
}

// IsFatal reports whether err must abort the pipeline. Warnings and undefined
// metrics are not fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var w *Warning
	if errors.As(err, &w) {
		return false
	}
	var m *MetricUndefinedError
	return !errors.As(err, &m)
}
