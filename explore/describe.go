// Package explore computes the descriptive tables and figures of a processed symptom
// table: per-column summaries, outcome statistics by predictor level, and
// distribution plots.
package explore

import (
	"math"
	"slices"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/flufit/dataset"
	"github.com/ezoic/flufit/pkg/errors"
	"github.com/ezoic/flufit/pkg/log"
)

// Summary describes one column. Continuous columns fill the moment and quantile
// fields; categorical columns fill Levels.
type Summary struct {
	Column  string
	Kind    string
	N       int
	Missing int
	Mean    float64
	SD      float64
	Min     float64
	Q1      float64
	Median  float64
	Q3      float64
	Max     float64
	Levels  map[string]int
}

// Describe summarizes every column of t in column order.
func Describe(t *dataset.Table) ([]Summary, error) {
	if t == nil || t.Ncol() == 0 {
		return nil, errors.NewModelError("Describe", "empty table", errors.ErrEmptyData)
	}
	out := make([]Summary, 0, t.Ncol())
	for _, col := range t.Names() {
		s, err := describeColumn(t, col)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	log.GetLoggerWithName("explore").Debug("Described table",
		log.OperationKey, log.OperationExplore,
		log.RowsKey, t.Nrow(),
		log.ColumnsKey, t.Ncol(),
	)
	return out, nil
}

func describeColumn(t *dataset.Table, col string) (Summary, error) {
	kind, err := t.Kind(col)
	if err != nil {
		return Summary{}, err
	}
	missing, err := t.Missing(col)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{Column: col, Kind: kind.String()}
	for _, m := range missing {
		if m {
			s.Missing++
		}
	}
	s.N = len(missing) - s.Missing

	if kind == dataset.Categorical {
		s.Levels, err = t.LevelCounts(col)
		return s, err
	}

	values, err := t.Floats(col)
	if err != nil {
		return Summary{}, err
	}
	x := present(values)
	if len(x) == 0 {
		return s, nil
	}
	sort.Float64s(x)
	s.Mean, s.SD = stat.MeanStdDev(x, nil)
	s.Min, s.Max = floats.Min(x), floats.Max(x)
	s.Q1 = stat.Quantile(0.25, stat.LinInterp, x, nil)
	s.Median = stat.Quantile(0.5, stat.LinInterp, x, nil)
	s.Q3 = stat.Quantile(0.75, stat.LinInterp, x, nil)
	return s, nil
}

func present(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// SummaryRecords lays summaries out as a table with a header row. Level counts are
// written as "level=count" pairs in level order.
func SummaryRecords(summaries []Summary) [][]string {
	records := [][]string{{"column", "kind", "n", "missing", "mean", "sd", "min", "q1", "median", "q3", "max", "levels"}}
	for _, s := range summaries {
		row := []string{s.Column, s.Kind, strconv.Itoa(s.N), strconv.Itoa(s.Missing)}
		if s.Kind == dataset.Categorical.String() {
			row = append(row, "", "", "", "", "", "", "", levelString(s.Levels))
		} else {
			for _, v := range []float64{s.Mean, s.SD, s.Min, s.Q1, s.Median, s.Q3, s.Max} {
				row = append(row, formatFloat(v))
			}
			row = append(row, "")
		}
		records = append(records, row)
	}
	return records
}

func levelString(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += k + "=" + strconv.Itoa(counts[k])
	}
	return out
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}
