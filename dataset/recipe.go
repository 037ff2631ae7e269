package dataset

import (
	"slices"
	"sort"

	"github.com/go-gota/gota/series"

	"github.com/ezoic/flufit/pkg/errors"
	"github.com/ezoic/flufit/pkg/log"
	"github.com/ezoic/flufit/preprocessing"
)

// SeverityLevels is the order of the symptom severity scale.
var SeverityLevels = []string{"None", "Mild", "Moderate", "Severe"}

// DefaultRecipe is the feature recipe used for the machine-learning candidates: the
// Yes/No duplicates of the graded symptoms are dropped, the graded symptoms become
// ordinal scores, and binary predictors with a level seen fewer than 50 times are
// removed.
func DefaultRecipe() Recipe {
	return Recipe{
		Drop: []string{"CoughYN", "WeaknessYN", "CoughYN2", "MyalgiaYN"},
		Ordinal: map[string][]string{
			"Weakness":       SeverityLevels,
			"CoughIntensity": SeverityLevels,
			"Myalgia":        SeverityLevels,
		},
		MinLevelCount: 50,
	}
}

// Recipe rewrites a processed table into the predictor layout of the machine-learning
// stage.
type Recipe struct {
	// Drop lists columns to remove; absent names are ignored.
	Drop []string
	// Ordinal maps a column to its ordered levels, encoded as 0..k-1.
	Ordinal map[string][]string
	// MinLevelCount removes binary categorical columns whose rarer level occurs fewer
	// times. Zero disables the filter.
	MinLevelCount int
	// Keep lists columns exempt from the level-count filter, typically the outcomes.
	Keep []string
}

// Apply returns the rewritten table. Steps run in order: drop, ordinal encoding, level
// count filter.
//
// Errors:
//   - SchemaError: if an ordinal column holds a label outside its level list
func (r Recipe) Apply(t *Table) (*Table, error) {
	out, err := t.Drop(r.Drop...)
	if err != nil {
		return nil, err
	}

	cols := make([]string, 0, len(r.Ordinal))
	for c := range r.Ordinal {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	for _, c := range cols {
		if !out.Has(c) {
			continue
		}
		labels, err := out.Strings(c)
		if err != nil {
			return nil, err
		}
		codes, err := preprocessing.NewOrdinalEncoder(r.Ordinal[c]).Encode(labels)
		if err != nil {
			return nil, errors.NewSchemaError("Recipe.Apply", err.Error(), c)
		}
		ints := make([]int, len(codes))
		for i, v := range codes {
			ints[i] = int(v)
		}
		out, err = out.replace(series.New(ints, series.Int, c))
		if err != nil {
			return nil, err
		}
	}

	if r.MinLevelCount > 0 {
		var rare []string
		for _, c := range out.Names() {
			if slices.Contains(r.Keep, c) {
				continue
			}
			if k, _ := out.Kind(c); k != Categorical {
				continue
			}
			counts, err := out.LevelCounts(c)
			if err != nil {
				return nil, err
			}
			if len(counts) != 2 {
				continue
			}
			for _, n := range counts {
				if n < r.MinLevelCount {
					rare = append(rare, c)
					break
				}
			}
		}
		if len(rare) > 0 {
			log.GetLoggerWithName("dataset").Debug("Dropping rare binary predictors", "columns", rare)
			if out, err = out.Drop(rare...); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
