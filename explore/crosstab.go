package explore

import (
	"math"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/flufit/dataset"
	"github.com/ezoic/flufit/pkg/errors"
)

// LevelStats are the outcome statistics of the rows where Predictor equals Level.
// Continuous outcomes fill Mean and SD, categorical outcomes fill Counts.
type LevelStats struct {
	Predictor string
	Level     string
	N         int
	Mean      float64
	SD        float64
	Counts    map[string]int
}

// CrossTab tabulates the outcome against every categorical predictor of t, in column
// order and then level order. Rows with a missing predictor or outcome are skipped.
func CrossTab(t *dataset.Table, outcome dataset.Outcome) ([]LevelStats, error) {
	if t == nil || t.Nrow() == 0 {
		return nil, errors.NewModelError("CrossTab", "empty table", errors.ErrEmptyData)
	}
	if !t.Has(outcome.Column) {
		return nil, errors.NewSchemaError("CrossTab", "outcome column not found", outcome.Column)
	}

	var (
		yNum []float64
		yLab []string
		err  error
	)
	if outcome.Kind == dataset.Categorical {
		yLab, err = t.Strings(outcome.Column)
	} else {
		yNum, err = t.Floats(outcome.Column)
	}
	if err != nil {
		return nil, err
	}

	var out []LevelStats
	for _, col := range t.Names() {
		if col == outcome.Column {
			continue
		}
		if kind, _ := t.Kind(col); kind != dataset.Categorical {
			continue
		}
		labels, err := t.Strings(col)
		if err != nil {
			return nil, err
		}
		levels, err := t.Levels(col)
		if err != nil {
			return nil, err
		}
		for _, level := range levels {
			ls := LevelStats{Predictor: col, Level: level}
			var values []float64
			for i, l := range labels {
				if l != level {
					continue
				}
				if yLab != nil {
					if yLab[i] == "" {
						continue
					}
					if ls.Counts == nil {
						ls.Counts = make(map[string]int)
					}
					ls.Counts[yLab[i]]++
					ls.N++
					continue
				}
				if !math.IsNaN(yNum[i]) {
					values = append(values, yNum[i])
				}
			}
			if yLab == nil {
				ls.N = len(values)
				ls.Mean, ls.SD = math.NaN(), math.NaN()
				if len(values) > 0 {
					ls.Mean = stat.Mean(values, nil)
				}
				if len(values) > 1 {
					ls.SD = stat.StdDev(values, nil)
				}
			}
			out = append(out, ls)
		}
	}
	return out, nil
}

// CrossTabRecords lays level statistics out as a table with a header row. For a
// categorical outcome the count columns follow outcomeLevels.
func CrossTabRecords(stats []LevelStats, outcomeLevels []string) [][]string {
	header := []string{"predictor", "level", "n"}
	if outcomeLevels == nil {
		header = append(header, "mean", "sd")
	}
	header = append(header, outcomeLevels...)
	records := [][]string{header}
	for _, s := range stats {
		row := []string{s.Predictor, s.Level, strconv.Itoa(s.N)}
		if outcomeLevels == nil {
			row = append(row, formatFloat(s.Mean), formatFloat(s.SD))
		}
		for _, l := range outcomeLevels {
			row = append(row, strconv.Itoa(s.Counts[l]))
		}
		records = append(records, row)
	}
	return records
}
