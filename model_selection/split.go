// Package model_selection partitions rows for model assessment and tunes
// hyperparameters over those partitions.
//
//   - TrainTestSplit: a seeded, optionally stratified train/test split
//   - RepeatedKFold: a repeated, optionally stratified k-fold plan over the training rows
//   - RegularGrid, LogLevels, IntLevels: hyperparameter grids
//   - GridSearch: scores every (configuration, fold) unit on a worker pool and picks
//     the best configuration
//
// Every function works on row indices, never on the data itself, so a split or plan
// can be built once and replayed against any design matrix of the same table.
// Randomness comes from a PCG source seeded explicitly; identical seeds and inputs
// give identical partitions.
package model_selection

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/flufit/pkg/errors"
)

// PCG stream identifiers, so a split and a resampling plan drawn from the same seed
// use independent sequences.
const (
	splitStream  uint64 = 0x5eed
	resampStream uint64 = 0xf01d
)

// Split is a partition of row indices into disjoint training and test sets. Both are
// sorted ascending.
type Split struct {
	Train []int
	Test  []int
}

// TrainTestSplit draws floor(n*prop) training rows out of n.
//
// With strata (one label per row) the draw happens independently inside every
// stratum, visited in sorted label order, taking floor(n_s*prop) rows from each, so the
// label proportions of the training and test sets match up to rounding. A nil strata
// slice gives a simple random split.
//
// Errors:
//   - ValueError: if prop is outside (0, 1) or either side would be empty
//   - DimensionError: if strata does not have n entries
func TrainTestSplit(n int, strata []string, prop float64, seed uint64) (Split, error) {
	if n <= 0 {
		return Split{}, errors.NewModelError("TrainTestSplit", "no rows to split", errors.ErrEmptyData)
	}
	if !(prop > 0 && prop < 1) {
		return Split{}, errors.NewValueError("TrainTestSplit", fmt.Sprintf("train proportion must be in (0, 1), got %v", prop))
	}
	if strata != nil && len(strata) != n {
		return Split{}, errors.NewDimensionError("TrainTestSplit", n, len(strata), 0)
	}

	rng := rand.New(rand.NewPCG(seed, splitStream))
	var s Split
	for _, group := range groupByStratum(identity(n), strata) {
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
		k := int(math.Floor(float64(len(group)) * prop))
		s.Train = append(s.Train, group[:k]...)
		s.Test = append(s.Test, group[k:]...)
	}
	if len(s.Train) == 0 || len(s.Test) == 0 {
		return Split{}, errors.NewValueError("TrainTestSplit",
			fmt.Sprintf("split of %d rows at %.2f leaves an empty partition", n, prop))
	}
	sort.Ints(s.Train)
	sort.Ints(s.Test)
	return s, nil
}

// LabelStrata returns the labels themselves as strata, treating missing values as a
// stratum of their own.
func LabelStrata(labels []string) []string {
	return slices.Clone(labels)
}

// QuantileStrata bins continuous values into bins groups cut at the empirical
// quantiles, labelled "q1".."q<bins>". Values on a cut point fall into the lower bin.
// With bins < 2 every row gets the same stratum.
func QuantileStrata(values []float64, bins int) []string {
	out := make([]string, len(values))
	if bins < 2 || len(values) == 0 {
		for i := range out {
			out[i] = "q1"
		}
		return out
	}
	sorted := slices.Clone(values)
	sort.Float64s(sorted)
	cuts := make([]float64, bins-1)
	for b := 1; b < bins; b++ {
		cuts[b-1] = stat.Quantile(float64(b)/float64(bins), stat.Empirical, sorted, nil)
	}
	for i, v := range values {
		bin := sort.SearchFloat64s(cuts, v)
		out[i] = fmt.Sprintf("q%d", bin+1)
	}
	return out
}

// groupByStratum returns rows grouped by their stratum label, groups ordered by label.
// strata is indexed by position in rows. A nil strata gives a single group.
func groupByStratum(rows []int, strata []string) [][]int {
	if strata == nil {
		return [][]int{slices.Clone(rows)}
	}
	byLabel := make(map[string][]int)
	for i, row := range rows {
		byLabel[strata[i]] = append(byLabel[strata[i]], row)
	}
	labels := make([]string, 0, len(byLabel))
	for label := range byLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	groups := make([][]int, len(labels))
	for i, label := range labels {
		groups[i] = byLabel[label]
	}
	return groups
}

func identity(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}
