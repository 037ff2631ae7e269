package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/flufit/pkg/errors"
)

const smallCSV = `PtScore,FluATest,RunnyNose,BodyTemp,Nausea
3,Positive,Yes,98.3,No
NA,Negative,No,100.4,Yes
5,Positive,No,,No
1,,Yes,99.1,NA
2,Negative,Yes,98.7,Yes
`

func readSmall(t *testing.T) *Table {
	t.Helper()
	tbl, err := ReadCSV(strings.NewReader(smallCSV))
	require.NoError(t, err)
	return tbl
}

func TestReadCSVKindsAndMissing(t *testing.T) {
	tbl := readSmall(t)
	assert.Equal(t, 5, tbl.Nrow())
	assert.Equal(t, []string{"PtScore", "FluATest", "RunnyNose", "BodyTemp", "Nausea"}, tbl.Names())

	tests := []struct {
		col     string
		kind    Kind
		missing []bool
	}{
		{"PtScore", Continuous, []bool{false, true, false, false, false}},
		{"FluATest", Categorical, []bool{false, false, false, true, false}},
		{"BodyTemp", Continuous, []bool{false, false, true, false, false}},
		{"Nausea", Categorical, []bool{false, false, false, true, false}},
	}
	for _, tt := range tests {
		t.Run(tt.col, func(t *testing.T) {
			kind, err := tbl.Kind(tt.col)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)
			missing, err := tbl.Missing(tt.col)
			require.NoError(t, err)
			assert.Equal(t, tt.missing, missing)
		})
	}

	levels, err := tbl.Levels("Nausea")
	require.NoError(t, err)
	assert.Equal(t, []string{"No", "Yes"}, levels)

	_, err = tbl.Floats("RunnyNose")
	assert.Error(t, err)
	_, err = tbl.Kind("Nope")
	var schemaErr *errors.SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestExclusionRule(t *testing.T) {
	tbl := readSmall(t)
	rule := ExclusionRule{Patterns: []string{"Score", "Total", "FluA", "FluB", "Dxname", "Activity"}}

	only, err := tbl.Select("PtScore", "FluATest", "RunnyNose")
	require.NoError(t, err)
	filtered, err := only.Drop(rule.Excluded(only)...)
	require.NoError(t, err)
	assert.Equal(t, []string{"RunnyNose"}, filtered.Names())

	assert.True(t, rule.Matches("TotalSymp1"))
	assert.False(t, rule.Matches("score"), "matching is case-sensitive")
	assert.False(t, DefaultExclusionRule().Matches("RunnyNose"))
	assert.True(t, DefaultExclusionRule().Matches("Unique.Visit"))
}

func TestPrepare(t *testing.T) {
	tbl := readSmall(t)
	processed, err := Prepare(tbl, DefaultExclusionRule())
	require.NoError(t, err)

	assert.Equal(t, []string{"RunnyNose", "BodyTemp", "Nausea"}, processed.Names())
	// row 2 lacks BodyTemp and row 3 lacks Nausea; PtScore/FluATest gaps do not count.
	assert.Equal(t, 3, processed.Nrow())
	temps, err := processed.Floats("BodyTemp")
	require.NoError(t, err)
	assert.Equal(t, []float64{98.3, 100.4, 98.7}, temps)

	for _, c := range processed.Names() {
		missing, err := processed.Missing(c)
		require.NoError(t, err)
		assert.NotContains(t, missing, true)
	}

	again, err := Prepare(processed, DefaultExclusionRule())
	require.NoError(t, err)
	assert.True(t, again.Equal(processed), "Prepare must be idempotent")

	assert.Equal(t, 5, tbl.Nrow(), "input is not modified")
}

func TestPrepareErrors(t *testing.T) {
	_, err := Prepare(nil, DefaultExclusionRule())
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	tbl, err := FromRecords([][]string{{"PtScore", "x"}, {"1", "NA"}})
	require.NoError(t, err)
	_, err = Prepare(tbl, DefaultExclusionRule())
	assert.True(t, errors.Is(err, errors.ErrEmptyData), "no complete rows")

	only, err := tbl.Select("PtScore")
	require.NoError(t, err)
	_, err = Prepare(only, DefaultExclusionRule())
	assert.True(t, errors.Is(err, errors.ErrEmptyData), "every column excluded")
}

func TestSimulatedReferenceShape(t *testing.T) {
	raw, err := Simulate(730, 5, 123)
	require.NoError(t, err)
	assert.Equal(t, 735, raw.Nrow())

	processed, err := Prepare(raw, DefaultExclusionRule())
	require.NoError(t, err)
	schema := Schema{Required: []string{"BodyTemp", "Nausea", "RunnyNose"}, Rows: 730, Cols: 32}
	assert.NoError(t, schema.Validate(processed))

	again, err := Simulate(730, 5, 123)
	require.NoError(t, err)
	assert.True(t, again.Equal(raw), "simulation is seeded")
}

func TestSchemaValidate(t *testing.T) {
	tbl := readSmall(t)
	tests := []struct {
		name   string
		schema Schema
		ok     bool
	}{
		{"zero schema", Schema{}, true},
		{"shape matches", Schema{Rows: 5, Cols: 5}, true},
		{"missing column", Schema{Required: []string{"BodyTemp", "Cough"}}, false},
		{"row regression", Schema{Rows: 730}, false},
		{"column regression", Schema{Cols: 32}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate(tbl)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var schemaErr *errors.SchemaError
			assert.True(t, errors.As(err, &schemaErr))
		})
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)
	tbl := readSmall(t)

	for _, name := range []string{"snapshot", "copy.csv"} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(name, tbl))
			loaded, err := store.Load(name)
			require.NoError(t, err)
			assert.Equal(t, tbl.Names(), loaded.Names())
			assert.Equal(t, tbl.Nrow(), loaded.Nrow())
			kind, err := loaded.Kind("BodyTemp")
			require.NoError(t, err)
			assert.Equal(t, Continuous, kind)
			missing, err := loaded.Missing("BodyTemp")
			require.NoError(t, err)
			assert.True(t, missing[2])
		})
	}
	assert.FileExists(t, filepath.Join(dir, "snapshot.gob"))

	_, err := store.Load("absent")
	assert.Error(t, err)
}

func TestFileStoreKeepsFullPrecision(t *testing.T) {
	tbl, err := FromRecords([][]string{
		{"x", "n", "label"},
		{"0.123456789", "3", "Yes"},
		{"1e-8", "NA", "No"},
	})
	require.NoError(t, err)
	store := NewFileStore(t.TempDir())

	for _, name := range []string{"precise", "precise.csv"} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Save(name, tbl))
			loaded, err := store.Load(name)
			require.NoError(t, err)

			x, err := loaded.Floats("x")
			require.NoError(t, err)
			assert.Equal(t, []float64{0.123456789, 1e-8}, x)
			labels, err := loaded.Strings("label")
			require.NoError(t, err)
			assert.Equal(t, []string{"Yes", "No"}, labels)
		})
	}

	loaded, err := store.Load("precise")
	require.NoError(t, err)
	assert.True(t, tbl.Equal(loaded))
	missing, err := loaded.Missing("n")
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, missing)

	rounded, err := FromRecords([][]string{
		{"x", "n", "label"},
		{"0.123457", "3", "Yes"},
		{"0", "NA", "No"},
	})
	require.NoError(t, err)
	assert.False(t, tbl.Equal(rounded))
	assert.Equal(t, []string{"1e-08", "NA", "No"}, tbl.Records()[2])
}

func TestPreparerPersistsNothingOnSchemaError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "raw.csv"), []byte(smallCSV), 0o644))
	store := NewFileStore(dir)

	p := &Preparer{
		Store:     store,
		Rule:      DefaultExclusionRule(),
		Schema:    Schema{Rows: 730, Cols: 32},
		Raw:       "raw.csv",
		Processed: "processed",
	}
	_, err := p.Run()
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "processed.gob"))

	p.Schema = Schema{Required: []string{"BodyTemp"}}
	processed, err := p.Run()
	require.NoError(t, err)
	loaded, err := store.Load("processed")
	require.NoError(t, err)
	assert.True(t, loaded.Equal(processed))
}

func TestRecipe(t *testing.T) {
	raw, err := Simulate(300, 0, 7)
	require.NoError(t, err)
	processed, err := Prepare(raw, DefaultExclusionRule())
	require.NoError(t, err)

	r := DefaultRecipe()
	r.Keep = []string{"BodyTemp", "Nausea"}
	out, err := r.Apply(processed)
	require.NoError(t, err)

	for _, gone := range []string{"CoughYN", "WeaknessYN", "CoughYN2", "MyalgiaYN", "Hearing", "Vision"} {
		assert.False(t, out.Has(gone), gone)
	}
	assert.True(t, out.Has("Nausea"))

	kind, err := out.Kind("Weakness")
	require.NoError(t, err)
	assert.Equal(t, Continuous, kind)
	raw0, _ := processed.Strings("Weakness")
	enc, _ := out.Floats("Weakness")
	for i := range raw0 {
		assert.Equal(t, float64(indexOf(SeverityLevels, raw0[i])), enc[i])
	}

	bad := Recipe{Ordinal: map[string][]string{"RunnyNose": {"No"}}}
	_, err = bad.Apply(processed)
	assert.Error(t, err)
}

func indexOf(levels []string, v string) int {
	for i, l := range levels {
		if l == v {
			return i
		}
	}
	return -1
}

func TestDesigner(t *testing.T) {
	tbl, err := FromRecords([][]string{
		{"BodyTemp", "RunnyNose", "Weakness", "Age", "Nausea"},
		{"98.1", "Yes", "Mild", "30", "No"},
		{"99.5", "No", "None", "41", "Yes"},
		{"100.2", "No", "Severe", "25", "Yes"},
		{"98.6", "Yes", "Mild", "33", "No"},
	})
	require.NoError(t, err)

	t.Run("continuous outcome, all remaining", func(t *testing.T) {
		outcome := Outcome{Column: "BodyTemp", Kind: Continuous}
		preds, err := AllRemaining().Resolve(tbl, outcome.Column)
		require.NoError(t, err)
		d, err := NewDesigner(tbl, outcome, preds)
		require.NoError(t, err)

		assert.Equal(t, []string{"RunnyNose_Yes", "Weakness_None", "Weakness_Severe", "Age", "Nausea_Yes"}, d.FeatureNames())
		X, y := d.Matrix([]int{2, 0})
		assert.Equal(t, []float64{0, 0, 1, 25, 1}, X.RawRowView(0))
		assert.Equal(t, []float64{1, 0, 0, 30, 0}, X.RawRowView(1))
		assert.Equal(t, 100.2, y.AtVec(0))

		X.Set(0, 0, 42)
		X2, _ := d.Matrix([]int{2})
		assert.Equal(t, 0.0, X2.At(0, 0), "Matrix returns copies")
	})

	t.Run("categorical outcome, main only", func(t *testing.T) {
		outcome := Outcome{Column: "Nausea", Kind: Categorical, Positive: "Yes"}
		preds, err := MainOnly("RunnyNose").Resolve(tbl, outcome.Column)
		require.NoError(t, err)
		d, err := NewDesigner(tbl, outcome, preds)
		require.NoError(t, err)
		assert.Equal(t, []float64{0, 1, 1, 0}, d.OutcomeValues())
		assert.Equal(t, []string{"No", "Yes", "Yes", "No"}, d.OutcomeLabels())
	})

	t.Run("errors", func(t *testing.T) {
		_, err := NewDesigner(tbl, Outcome{Column: "Nausea", Kind: Continuous}, []string{"Age"})
		assert.Error(t, err)
		_, err = NewDesigner(tbl, Outcome{Column: "Nausea", Kind: Categorical, Positive: "Maybe"}, []string{"Age"})
		assert.Error(t, err)
		_, err = MainOnly("Cough").Resolve(tbl, "Nausea")
		assert.Error(t, err)
		_, err = NewDesigner(tbl, Outcome{Column: "Nausea", Kind: Categorical}, []string{"Nausea"})
		assert.Error(t, err)
	})
}
