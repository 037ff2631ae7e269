package errors

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// WarningKind classifies a non-fatal fit problem.
type WarningKind string

const (
	ConvergenceWarning    WarningKind = "convergence"
	RankDeficiencyWarning WarningKind = "rank_deficiency"
	SeparationWarning     WarningKind = "separation"
)

// Warning describes a degenerate but usable fit. It implements error so it can be
// wrapped and inspected, but it never aborts a run.
type Warning struct {
	Kind    WarningKind
	Op      string
	Message string
	Iter    int
	Terms   []string
}

func (w *Warning) Error() string {
	switch {
	case len(w.Terms) > 0:
		return fmt.Sprintf("%s warning in %s: %s [%s]", w.Kind, w.Op, w.Message, strings.Join(w.Terms, ", "))
	case w.Iter > 0:
		return fmt.Sprintf("%s warning in %s after %d iterations: %s", w.Kind, w.Op, w.Iter, w.Message)
	default:
		return fmt.Sprintf("%s warning in %s: %s", w.Kind, w.Op, w.Message)
	}
}

// NewConvergenceWarning reports an optimizer that stopped before converging.
func NewConvergenceWarning(op string, iter int, message string) *Warning {
	return &Warning{Kind: ConvergenceWarning, Op: op, Iter: iter, Message: message}
}

// NewRankDeficiencyWarning reports design columns that are collinear with earlier
// columns or have zero variance. Their coefficients are undefined.
func NewRankDeficiencyWarning(op string, terms []string) *Warning {
	return &Warning{
		Kind:    RankDeficiencyWarning,
		Op:      op,
		Message: "coefficients not defined because of singularities",
		Terms:   append([]string(nil), terms...),
	}
}

// NewSeparationWarning reports (quasi-)complete separation in a binomial fit.
func NewSeparationWarning(op, message string) *Warning {
	return &Warning{Kind: SeparationWarning, Op: op, Message: message}
}

// Warn logs a warning at warn level and returns. It never panics on nil.
func Warn(err error) {
	if err == nil {
		return
	}
	ev := zlog.Warn()
	var w *Warning
	if errors.As(err, &w) {
		ev = ev.Str("kind", string(w.Kind)).Str("op", w.Op)
	}
	ev.Msg(err.Error())
}

// Recover converts a panic raised below an API boundary (gonum matrix code panics on
// shape errors and singular systems) into an error assigned to *err.
//
// Usage:
//
//	func (m *Model) Fit(X, y mat.Matrix) (err error) {
//		defer errors.Recover(&err, "Model.Fit")
//		...
//	}
func Recover(err *error, op string) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(error); ok {
		*err = errors.Wrapf(e, "%s: recovered from panic", op)
		return
	}
	*err = errors.Newf("%s: recovered from panic: %v", op, r)
}
