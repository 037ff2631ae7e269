package explore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/flufit/dataset"
	"github.com/ezoic/flufit/pkg/errors"
)

func fixture(t *testing.T) *dataset.Table {
	t.Helper()
	tbl, err := dataset.FromRecords([][]string{
		{"BodyTemp", "RunnyNose", "Nausea"},
		{"98", "Yes", "No"},
		{"99", "Yes", "Yes"},
		{"100", "No", "Yes"},
		{"101", "No", "No"},
		{"102", "No", "NA"},
	})
	require.NoError(t, err)
	return tbl
}

func TestDescribe(t *testing.T) {
	summaries, err := Describe(fixture(t))
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	temp := summaries[0]
	assert.Equal(t, "BodyTemp", temp.Column)
	assert.Equal(t, "continuous", temp.Kind)
	assert.Equal(t, 5, temp.N)
	assert.InDelta(t, 100, temp.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.5), temp.SD, 1e-12)
	assert.Equal(t, 98.0, temp.Min)
	assert.Equal(t, 102.0, temp.Max)
	assert.InDelta(t, 100, temp.Median, 0.5)
	assert.LessOrEqual(t, temp.Q1, temp.Median)
	assert.GreaterOrEqual(t, temp.Q3, temp.Median)

	nausea := summaries[2]
	assert.Equal(t, "categorical", nausea.Kind)
	assert.Equal(t, 4, nausea.N)
	assert.Equal(t, 1, nausea.Missing)
	assert.Equal(t, map[string]int{"No": 2, "Yes": 2}, nausea.Levels)

	records := SummaryRecords(summaries)
	require.Len(t, records, 4)
	assert.Equal(t, "No=2 Yes=2", records[3][11])
	assert.Equal(t, "100", records[1][4])

	_, err = Describe(nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestCrossTab(t *testing.T) {
	tbl := fixture(t)

	t.Run("continuous outcome", func(t *testing.T) {
		stats, err := CrossTab(tbl, dataset.Outcome{Column: "BodyTemp", Kind: dataset.Continuous})
		require.NoError(t, err)
		// RunnyNose then Nausea, levels sorted
		require.Len(t, stats, 4)
		assert.Equal(t, "RunnyNose", stats[0].Predictor)
		assert.Equal(t, "No", stats[0].Level)
		assert.Equal(t, 3, stats[0].N)
		assert.InDelta(t, 101, stats[0].Mean, 1e-12)
		assert.InDelta(t, 1, stats[0].SD, 1e-12)
		assert.InDelta(t, 98.5, stats[1].Mean, 1e-12)

		records := CrossTabRecords(stats, nil)
		assert.Equal(t, []string{"predictor", "level", "n", "mean", "sd"}, records[0])
		assert.Equal(t, []string{"RunnyNose", "Yes", "2", "98.5", "0.707107"}, records[2])
	})

	t.Run("categorical outcome", func(t *testing.T) {
		outcome := dataset.Outcome{Column: "Nausea", Kind: dataset.Categorical, Positive: "Yes"}
		stats, err := CrossTab(tbl, outcome)
		require.NoError(t, err)
		require.Len(t, stats, 2)
		assert.Equal(t, map[string]int{"No": 1, "Yes": 1}, stats[0].Counts)
		assert.Equal(t, 2, stats[0].N, "the row with missing Nausea is skipped")

		records := CrossTabRecords(stats, []string{"No", "Yes"})
		assert.Equal(t, []string{"predictor", "level", "n", "No", "Yes"}, records[0])
		assert.Equal(t, []string{"RunnyNose", "Yes", "2", "1", "1"}, records[2])
	})

	t.Run("missing outcome", func(t *testing.T) {
		_, err := CrossTab(tbl, dataset.Outcome{Column: "Cough"})
		var schemaErr *errors.SchemaError
		assert.True(t, errors.As(err, &schemaErr))
	})
}

func TestPlots(t *testing.T) {
	tbl := fixture(t)

	p, err := Histogram(tbl, "BodyTemp", 0)
	require.NoError(t, err)
	assert.Equal(t, "BodyTemp", p.Title.Text)

	_, err = Histogram(tbl, "RunnyNose", 10)
	assert.Error(t, err)

	p, err = BoxPlot(tbl, "BodyTemp", "RunnyNose")
	require.NoError(t, err)
	assert.Equal(t, "BodyTemp by RunnyNose", p.Title.Text)
}
