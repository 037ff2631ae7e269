package model_selection

import (
	"math"
	"math/rand/v2"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/flufit/pkg/errors"
)

// labels730 mimics the reference nausea outcome: 730 rows, about a third positive.
func labels730() []string {
	rng := rand.New(rand.NewPCG(5, 5))
	out := make([]string, 730)
	for i := range out {
		if rng.Float64() < 0.35 {
			out[i] = "Yes"
		} else {
			out[i] = "No"
		}
	}
	return out
}

func share(rows []int, labels []string, level string) float64 {
	n := 0
	for _, r := range rows {
		if labels[r] == level {
			n++
		}
	}
	return float64(n) / float64(len(rows))
}

func TestTrainTestSplit(t *testing.T) {
	t.Run("simple split takes floor(n*prop)", func(t *testing.T) {
		s, err := TrainTestSplit(10, nil, 0.75, 1)
		require.NoError(t, err)
		assert.Len(t, s.Train, 7)
		assert.Len(t, s.Test, 3)

		seen := make(map[int]bool)
		for _, r := range append(append([]int{}, s.Train...), s.Test...) {
			assert.False(t, seen[r], "row %d assigned twice", r)
			seen[r] = true
		}
		assert.Len(t, seen, 10)
	})

	t.Run("deterministic for a seed", func(t *testing.T) {
		labels := labels730()
		a, err := TrainTestSplit(730, labels, 0.7, 123)
		require.NoError(t, err)
		b, err := TrainTestSplit(730, labels, 0.7, 123)
		require.NoError(t, err)
		assert.Equal(t, a, b)

		c, err := TrainTestSplit(730, labels, 0.7, 124)
		require.NoError(t, err)
		assert.NotEqual(t, a.Train, c.Train)
	})

	t.Run("stratified proportions within two points", func(t *testing.T) {
		labels := labels730()
		for _, seed := range []uint64{1, 123, 2024} {
			s, err := TrainTestSplit(730, labels, 0.7, seed)
			require.NoError(t, err)
			assert.InDelta(t, share(s.Train, labels, "Yes"), share(s.Test, labels, "Yes"), 0.02)
			assert.InDelta(t, 0.7, float64(len(s.Train))/730, 0.01)
		}
	})

	t.Run("errors", func(t *testing.T) {
		_, err := TrainTestSplit(0, nil, 0.7, 1)
		assert.True(t, errors.Is(err, errors.ErrEmptyData))
		_, err = TrainTestSplit(10, nil, 1, 1)
		assert.Error(t, err)
		_, err = TrainTestSplit(10, []string{"a"}, 0.5, 1)
		assert.Error(t, err)
		_, err = TrainTestSplit(1, nil, 0.5, 1)
		assert.Error(t, err, "one row cannot fill both sides")
	})
}

func TestQuantileStrata(t *testing.T) {
	values := []float64{8, 1, 2, 3, 4, 5, 6, 7}
	got := QuantileStrata(values, 4)
	assert.Equal(t, []string{"q4", "q1", "q1", "q2", "q2", "q3", "q3", "q4"}, got)

	assert.Equal(t, []string{"q1", "q1"}, QuantileStrata([]float64{3, 9}, 1))
	assert.Equal(t, []string{"No", "Yes"}, LabelStrata([]string{"No", "Yes"}))
}

func TestRepeatedKFold(t *testing.T) {
	rows := make([]int, 0, 50)
	strata := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		rows = append(rows, i*2) // non-contiguous row ids
		if i%5 == 0 {
			strata = append(strata, "Yes")
		} else {
			strata = append(strata, "No")
		}
	}

	plan, err := RepeatedKFold(rows, strata, 5, 3, 123)
	require.NoError(t, err)
	require.Equal(t, 15, plan.Len())

	for r := 0; r < 3; r++ {
		assessed := make(map[int]int)
		for _, f := range plan.Folds[r*5 : (r+1)*5] {
			assert.Equal(t, r, f.Repeat)
			assert.Len(t, f.Assessment, 10)
			assert.Len(t, f.Analysis, 40)
			yes := 0
			for _, row := range f.Assessment {
				assessed[row]++
				if row%10 == 0 {
					yes++
				}
			}
			assert.Equal(t, 2, yes, "each fold keeps the 1-in-5 stratum share")
		}
		assert.Len(t, assessed, 50)
		for row, n := range assessed {
			assert.Equal(t, 1, n, "row %d assessed more than once in a repeat", row)
		}
	}
	assert.Equal(t, "Repeat2/Fold3", plan.Folds[7].ID())
	assert.NotEqual(t, plan.Folds[0].Assessment, plan.Folds[5].Assessment, "repeats reshuffle")

	again, err := RepeatedKFold(rows, strata, 5, 3, 123)
	require.NoError(t, err)
	assert.Equal(t, plan, again)

	_, err = RepeatedKFold(rows[:3], nil, 5, 1, 1)
	assert.Error(t, err)
	_, err = RepeatedKFold(rows, nil, 1, 1, 1)
	assert.Error(t, err)
	_, err = RepeatedKFold(rows, strata[:3], 5, 1, 1)
	assert.Error(t, err)
}

func TestGrids(t *testing.T) {
	grid := RegularGrid(map[string][]float64{
		"tree_depth":      {1, 2},
		"cost_complexity": {0.1, 0.01},
	})
	require.Len(t, grid, 4)
	assert.Equal(t, "cost_complexity=0.1 tree_depth=1", grid[0].String())
	assert.Equal(t, "cost_complexity=0.1 tree_depth=2", grid[1].String())
	assert.Equal(t, "cost_complexity=0.01 tree_depth=1", grid[2].String())
	assert.Equal(t, 2, grid[3].Int("tree_depth", 0))
	assert.Equal(t, 7.0, grid[3].Float("missing", 7))

	assert.Len(t, RegularGrid(nil), 1)

	levels := LogLevels(-4, -1, 4)
	require.Len(t, levels, 4)
	for i, want := range []float64{1e-4, 1e-3, 1e-2, 1e-1} {
		assert.InDelta(t, want, levels[i], want*1e-9)
	}
	assert.Equal(t, []float64{1, 5, 8, 12, 15}, IntLevels(1, 15, 5))
	assert.Equal(t, []float64{1, 2}, IntLevels(1, 2, 5))
}

func simplePlan(folds int) Plan {
	p := Plan{K: folds, Repeats: 1}
	for i := 0; i < folds; i++ {
		p.Folds = append(p.Folds, Fold{Index: i, Analysis: []int{i}, Assessment: []int{i}})
	}
	return p
}

func TestGridSearchSelection(t *testing.T) {
	grid := Grid{{"c": 3}, {"c": 1}, {"c": 2}, {"c": 0}}

	tests := []struct {
		name       string
		lower      bool
		complexity func(Params) float64
		score      FitScoreFunc
		want       int
	}{
		{
			name:  "lowest mean wins",
			lower: true,
			score: func(p Params, f Fold) (float64, error) { return p["c"] + float64(f.Index), nil },
			want:  3,
		},
		{
			name:  "highest mean wins when not lower",
			score: func(p Params, f Fold) (float64, error) { return p["c"] + float64(f.Index), nil },
			want:  0,
		},
		{
			name:  "equal means broken by standard error",
			lower: true,
			score: func(p Params, f Fold) (float64, error) {
				// all means are 1; spread grows as c shrinks
				spread := 4 - p["c"]
				if f.Index%2 == 0 {
					return 1 + spread, nil
				}
				return 1 - spread, nil
			},
			want: 0,
		},
		{
			name:       "then by complexity",
			lower:      true,
			complexity: func(p Params) float64 { return p["c"] },
			score:      func(Params, Fold) (float64, error) { return 1, nil },
			want:       3,
		},
		{
			name:  "then by grid order",
			lower: true,
			score: func(Params, Fold) (float64, error) { return 1, nil },
			want:  0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := &GridSearch{Grid: grid, Metric: "rmse", Lower: tt.lower, Complexity: tt.complexity, Workers: 3}
			res, err := gs.Run(simplePlan(4), tt.score)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Best.Index)
			assert.Len(t, res.Configs, 4)
		})
	}
}

func TestGridSearchFailedUnits(t *testing.T) {
	grid := Grid{{"c": 0}, {"c": 1}}
	var calls atomic.Int64
	gs := &GridSearch{Grid: grid, Metric: "rmse", Lower: true, Workers: 2}

	res, err := gs.Run(simplePlan(3), func(p Params, f Fold) (float64, error) {
		calls.Add(1)
		if p["c"] == 0 {
			return 0, errors.New("singular fit")
		}
		if f.Index == 2 {
			return math.NaN(), nil
		}
		return 5, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6), calls.Load())
	assert.Equal(t, 3, res.Configs[0].Failed)
	assert.Equal(t, 2, res.Configs[1].N)
	assert.Equal(t, 1, res.Best.Index)
	assert.Equal(t, 5.0, res.Best.Mean)

	_, err = gs.Run(simplePlan(2), func(Params, Fold) (float64, error) {
		return 0, errors.New("boom")
	})
	assert.Error(t, err)

	_, err = (&GridSearch{}).Run(simplePlan(2), nil)
	assert.Error(t, err)
}
