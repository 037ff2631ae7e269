package model_selection

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/ezoic/flufit/pkg/errors"
)

// Fold is one (analysis, assessment) pair of a resampling plan. Indices refer to rows
// of the original table and are sorted ascending.
type Fold struct {
	Repeat     int
	Index      int
	Analysis   []int
	Assessment []int
}

// ID names the fold like "Repeat2/Fold4" (1-based).
func (f Fold) ID() string {
	return fmt.Sprintf("Repeat%d/Fold%d", f.Repeat+1, f.Index+1)
}

// Plan is a repeated k-fold cross-validation plan.
type Plan struct {
	K       int
	Repeats int
	Folds   []Fold
}

// Len returns the number of folds in the plan.
func (p Plan) Len() int { return len(p.Folds) }

// RepeatedKFold builds repeats x k folds over rows. Within every repeat the rows of each
// stratum are shuffled and dealt round-robin into the k folds, continuing the deal
// across strata so fold sizes differ by at most one. Fold i of a repeat is the
// assessment set and the remaining rows form its analysis set.
//
// strata, when non-nil, holds one label per entry of rows.
func RepeatedKFold(rows []int, strata []string, k, repeats int, seed uint64) (Plan, error) {
	if k < 2 {
		return Plan{}, errors.NewValueError("RepeatedKFold", fmt.Sprintf("need at least 2 folds, got %d", k))
	}
	if repeats < 1 {
		return Plan{}, errors.NewValueError("RepeatedKFold", fmt.Sprintf("need at least 1 repeat, got %d", repeats))
	}
	if len(rows) < k {
		return Plan{}, errors.NewValueError("RepeatedKFold", fmt.Sprintf("%d rows cannot fill %d folds", len(rows), k))
	}
	if strata != nil && len(strata) != len(rows) {
		return Plan{}, errors.NewDimensionError("RepeatedKFold", len(rows), len(strata), 0)
	}

	plan := Plan{K: k, Repeats: repeats, Folds: make([]Fold, 0, k*repeats)}
	for r := 0; r < repeats; r++ {
		rng := rand.New(rand.NewPCG(seed+uint64(r), resampStream))
		assignment := make(map[int]int, len(rows))
		next := 0
		for _, group := range groupByStratum(rows, strata) {
			rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
			for _, row := range group {
				assignment[row] = next % k
				next++
			}
		}
		for i := 0; i < k; i++ {
			fold := Fold{Repeat: r, Index: i}
			for _, row := range rows {
				if assignment[row] == i {
					fold.Assessment = append(fold.Assessment, row)
				} else {
					fold.Analysis = append(fold.Analysis, row)
				}
			}
			sort.Ints(fold.Analysis)
			sort.Ints(fold.Assessment)
			plan.Folds = append(plan.Folds, fold)
		}
	}
	return plan, nil
}
