package dataset

import (
	"fmt"
	"strings"
	"time"

	"github.com/ezoic/flufit/pkg/errors"
	"github.com/ezoic/flufit/pkg/log"
)

// DefaultExcludePatterns remove the derived scores, lab results, diagnosis names,
// activity level and visit identifier from the raw symptom table.
var DefaultExcludePatterns = []string{"Score", "Total", "FluA", "FluB", "Dxname", "Activity", "Unique.Visit"}

// ExclusionRule removes every column whose name contains one of its patterns.
// Matching is case-sensitive and plain substring; the order of patterns is irrelevant.
type ExclusionRule struct {
	Patterns []string
}

// DefaultExclusionRule returns the rule for the raw symptom table.
func DefaultExclusionRule() ExclusionRule {
	return ExclusionRule{Patterns: append([]string(nil), DefaultExcludePatterns...)}
}

// Matches reports whether a column name contains any pattern.
func (r ExclusionRule) Matches(name string) bool {
	for _, p := range r.Patterns {
		if p != "" && strings.Contains(name, p) {
			return true
		}
	}
	return false
}

// Excluded returns the columns of t that the rule removes, in table order.
func (r ExclusionRule) Excluded(t *Table) []string {
	var out []string
	for _, name := range t.Names() {
		if r.Matches(name) {
			out = append(out, name)
		}
	}
	return out
}

// Prepare drops the columns matched by rule and then every row with a missing cell in
// the remaining columns. It does not modify raw and is idempotent.
//
// Errors:
//   - ErrEmptyData: if raw is empty, if every column is excluded, or if no complete
//     row remains
func Prepare(raw *Table, rule ExclusionRule) (*Table, error) {
	if raw == nil || raw.Nrow() == 0 {
		return nil, errors.NewModelError("Prepare", "raw table is empty", errors.ErrEmptyData)
	}
	logger := log.GetLoggerWithName("dataset")
	startTime := time.Now()

	excluded := rule.Excluded(raw)
	if len(excluded) == raw.Ncol() {
		return nil, errors.NewModelError("Prepare", "every column is excluded", errors.ErrEmptyData)
	}
	filtered, err := raw.Drop(excluded...)
	if err != nil {
		return nil, err
	}
	processed, err := CompleteCases(filtered)
	if err != nil {
		return nil, err
	}

	logger.Info("Prepared table",
		log.OperationKey, log.OperationPrepare,
		log.PhaseKey, log.PhasePreparation,
		log.RowsKey, processed.Nrow(),
		log.ColumnsKey, processed.Ncol(),
		"dropped_columns", len(excluded),
		"dropped_rows", raw.Nrow()-processed.Nrow(),
		log.DurationMsKey, time.Since(startTime).Milliseconds(),
	)
	return processed, nil
}

// CompleteCases keeps the rows without a missing cell, in their original order.
// It returns ErrEmptyData when no such row exists.
func CompleteCases(t *Table) (*Table, error) {
	complete := make([]bool, t.Nrow())
	for i := range complete {
		complete[i] = true
	}
	for _, name := range t.Names() {
		mask, err := t.Missing(name)
		if err != nil {
			return nil, err
		}
		for i, missing := range mask {
			if missing {
				complete[i] = false
			}
		}
	}

	keep := make([]int, 0, len(complete))
	for i, ok := range complete {
		if ok {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		return nil, errors.NewModelError("CompleteCases", "no complete rows", errors.ErrEmptyData)
	}
	if len(keep) == t.Nrow() {
		return t, nil
	}
	return t.Rows(keep)
}

// Schema is the expected shape of a processed table. Zero Rows or Cols skip that check.
type Schema struct {
	Required []string
	Rows     int
	Cols     int
}

// Validate checks t against the schema and returns a SchemaError describing the first
// violation.
func (s Schema) Validate(t *Table) error {
	var missing []string
	for _, c := range s.Required {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return errors.NewSchemaError("Schema.Validate", "required columns absent", missing...)
	}
	if s.Rows > 0 && t.Nrow() != s.Rows {
		return errors.NewSchemaError("Schema.Validate", fmt.Sprintf("expected %d rows, got %d", s.Rows, t.Nrow()))
	}
	if s.Cols > 0 && t.Ncol() != s.Cols {
		return errors.NewSchemaError("Schema.Validate", fmt.Sprintf("expected %d columns, got %d", s.Cols, t.Ncol()))
	}
	return nil
}
