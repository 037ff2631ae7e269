// Package dataset loads, cleans and stores the symptom table, and turns it into the
// design matrices the estimators consume.
//
// A Table wraps a gota DataFrame. Column kinds are inferred from content when a table is
// read: numeric columns are Continuous, everything else Categorical. The cells "", "NA"
// and "NaN" are missing.
//
// The preparation stage is
//
//	raw, err := store.Load("raw.csv")
//	processed, err := dataset.Prepare(raw, dataset.DefaultExclusionRule())
//	err = dataset.Schema{Rows: 730, Cols: 32}.Validate(processed)
//	err = store.Save("processed.gob", processed)
//
// and Preparer runs exactly that sequence.
package dataset

import (
	"io"
	"math"
	"slices"
	"sort"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/ezoic/flufit/pkg/errors"
)

// MissingMarkers are the cell values read as missing.
var MissingMarkers = []string{"", "NA", "NaN"}

// Kind is the measurement type of a column.
type Kind int

const (
	// Continuous columns hold numbers.
	Continuous Kind = iota
	// Categorical columns hold labels.
	Categorical
)

func (k Kind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Categorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// ParseKind maps "continuous" / "categorical" to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "continuous", "numeric":
		return Continuous, nil
	case "categorical", "factor":
		return Categorical, nil
	}
	return 0, errors.NewValidationError("kind", "must be continuous or categorical", s)
}

// Table is an immutable, column-typed record table. Operations return new tables.
type Table struct {
	df dataframe.DataFrame
}

// ReadCSV reads a CSV table with a header row, inferring column kinds.
func ReadCSV(r io.Reader) (*Table, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues(MissingMarkers),
	)
	return fromDataFrame(df, "ReadCSV")
}

// FromRecords builds a table from a header row followed by data rows, inferring column
// kinds.
func FromRecords(records [][]string) (*Table, error) {
	if len(records) < 2 {
		return nil, errors.NewModelError("FromRecords", "need a header and at least one row", errors.ErrEmptyData)
	}
	df := dataframe.LoadRecords(normalizeMissing(records),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
	)
	return fromDataFrame(df, "FromRecords")
}

// FromDataFrame wraps an existing gota DataFrame.
func FromDataFrame(df dataframe.DataFrame) (*Table, error) {
	return fromDataFrame(df, "FromDataFrame")
}

func fromDataFrame(df dataframe.DataFrame, op string) (*Table, error) {
	if df.Err != nil {
		return nil, errors.Wrapf(df.Err, "dataset.%s", op)
	}
	if df.Ncol() == 0 || df.Nrow() == 0 {
		return nil, errors.NewModelError("dataset."+op, "table is empty", errors.ErrEmptyData)
	}
	return &Table{df: df}, nil
}

func normalizeMissing(records [][]string) [][]string {
	out := make([][]string, len(records))
	for i, rec := range records {
		row := slices.Clone(rec)
		if i > 0 {
			for j, cell := range row {
				if slices.Contains(MissingMarkers, cell) {
					row[j] = "NaN"
				}
			}
		}
		out[i] = row
	}
	return out
}

// DataFrame returns the underlying gota DataFrame.
func (t *Table) DataFrame() dataframe.DataFrame { return t.df }

// Names returns the column names in order.
func (t *Table) Names() []string { return t.df.Names() }

// Nrow returns the number of rows.
func (t *Table) Nrow() int { return t.df.Nrow() }

// Ncol returns the number of columns.
func (t *Table) Ncol() int { return t.df.Ncol() }

// Has reports whether the table has the named column.
func (t *Table) Has(col string) bool {
	return slices.Contains(t.df.Names(), col)
}

func (t *Table) col(op, col string) (series.Series, error) {
	if !t.Has(col) {
		return series.Series{}, errors.NewSchemaError(op, "unknown column", col)
	}
	return t.df.Col(col), nil
}

// Kind returns the inferred kind of a column.
func (t *Table) Kind(col string) (Kind, error) {
	s, err := t.col("Table.Kind", col)
	if err != nil {
		return 0, err
	}
	return kindOf(s.Type()), nil
}

func kindOf(typ series.Type) Kind {
	switch typ {
	case series.Float, series.Int:
		return Continuous
	default:
		return Categorical
	}
}

// Missing returns a per-row missing mask for a column.
func (t *Table) Missing(col string) ([]bool, error) {
	s, err := t.col("Table.Missing", col)
	if err != nil {
		return nil, err
	}
	mask := s.IsNaN()
	if s.Type() == series.String {
		for i, v := range s.Records() {
			if v == "" {
				mask[i] = true
			}
		}
	}
	return mask, nil
}

// Floats returns a continuous column as floats; missing cells are NaN.
func (t *Table) Floats(col string) ([]float64, error) {
	s, err := t.col("Table.Floats", col)
	if err != nil {
		return nil, err
	}
	if kindOf(s.Type()) != Continuous {
		return nil, errors.NewSchemaError("Table.Floats", "column is not continuous", col)
	}
	return s.Float(), nil
}

// Strings returns a column as labels; missing cells are "".
func (t *Table) Strings(col string) ([]string, error) {
	s, err := t.col("Table.Strings", col)
	if err != nil {
		return nil, err
	}
	return cells(s, ""), nil
}

// Levels returns the sorted distinct non-missing labels of a column.
func (t *Table) Levels(col string) ([]string, error) {
	values, err := t.Strings(col)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, v := range values {
		if v != "" {
			seen[v] = struct{}{}
		}
	}
	levels := make([]string, 0, len(seen))
	for v := range seen {
		levels = append(levels, v)
	}
	sort.Strings(levels)
	return levels, nil
}

// LevelCounts counts the non-missing labels of a column.
func (t *Table) LevelCounts(col string) (map[string]int, error) {
	values, err := t.Strings(col)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, v := range values {
		if v != "" {
			counts[v]++
		}
	}
	return counts, nil
}

// Select keeps the named columns, in the given order.
func (t *Table) Select(cols ...string) (*Table, error) {
	for _, c := range cols {
		if !t.Has(c) {
			return nil, errors.NewSchemaError("Table.Select", "unknown column", c)
		}
	}
	return fromDataFrame(t.df.Select(cols), "Select")
}

// Drop removes the named columns. Unknown names are ignored.
func (t *Table) Drop(cols ...string) (*Table, error) {
	present := make([]string, 0, len(cols))
	for _, c := range cols {
		if t.Has(c) && !slices.Contains(present, c) {
			present = append(present, c)
		}
	}
	if len(present) == 0 {
		return t, nil
	}
	return fromDataFrame(t.df.Drop(present), "Drop")
}

// Rows returns the table restricted to the given row indices, in the given order.
func (t *Table) Rows(idx []int) (*Table, error) {
	if len(idx) == 0 {
		return nil, errors.NewModelError("Table.Rows", "no rows selected", errors.ErrEmptyData)
	}
	return fromDataFrame(t.df.Subset(idx), "Rows")
}

// Records returns the header followed by every row as strings. Missing cells are
// written as "NA" and floats keep full precision.
func (t *Table) Records() [][]string {
	return t.records("NA")
}

func (t *Table) records(missing string) [][]string {
	records := make([][]string, t.Nrow()+1)
	records[0] = t.Names()
	for i := 1; i <= t.Nrow(); i++ {
		records[i] = make([]string, t.Ncol())
	}
	for j, s := range t.columns() {
		for i, v := range cells(s, missing) {
			records[i+1][j] = v
		}
	}
	return records
}

func (t *Table) columns() []series.Series {
	out := make([]series.Series, t.Ncol())
	for j := range out {
		out[j] = t.df.Col(t.df.Names()[j])
	}
	return out
}

// cells formats a column. gota prints floats with six decimals, so float columns are
// formatted here with the shortest exact representation.
func cells(s series.Series, missing string) []string {
	nan := s.IsNaN()
	var out []string
	if s.Type() == series.Float {
		out = make([]string, s.Len())
		for i, v := range s.Float() {
			out[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
	} else {
		out = s.Records()
	}
	for i, isNaN := range nan {
		if isNaN {
			out[i] = missing
		}
	}
	return out
}

// WriteCSV writes the table with a header row.
func (t *Table) WriteCSV(w io.Writer) error {
	df := dataframe.LoadRecords(t.records("NaN"),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
	)
	if df.Err != nil {
		return errors.Wrap(df.Err, "dataset.WriteCSV")
	}
	return df.WriteCSV(w)
}

// Equal reports whether both tables have the same columns, kinds and cells. Numeric
// cells are compared by value, with missing equal to missing.
func (t *Table) Equal(other *Table) bool {
	if t == nil || other == nil {
		return t == other
	}
	if !slices.Equal(t.Names(), other.Names()) {
		return false
	}
	if !slices.Equal(t.df.Types(), other.df.Types()) {
		return false
	}
	if t.Nrow() != other.Nrow() {
		return false
	}
	b := other.columns()
	for j, a := range t.columns() {
		if kindOf(a.Type()) == Continuous {
			if !slices.EqualFunc(a.Float(), b[j].Float(), sameFloat) {
				return false
			}
			continue
		}
		if !slices.Equal(cells(a, ""), cells(b[j], "")) {
			return false
		}
	}
	return true
}

func sameFloat(x, y float64) bool {
	return x == y || (math.IsNaN(x) && math.IsNaN(y))
}

// replace returns a copy of the table with col substituted by s.
func (t *Table) replace(s series.Series) (*Table, error) {
	return fromDataFrame(t.df.Mutate(s), "Mutate")
}
