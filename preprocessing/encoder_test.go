package preprocessing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/flufit/preprocessing"
)

func TestOneHotEncoder_Fit(t *testing.T) {
	data := [][]string{
		{"Yes", "Mild"},
		{"No", "None"},
		{"Yes", "Severe"},
		{"No", "Mild"},
	}

	encoder := preprocessing.NewOneHotEncoder()
	require.NoError(t, encoder.Fit(data))

	assert.True(t, encoder.IsFitted())
	assert.Equal(t, 2, encoder.NFeatures)
	assert.Equal(t, [][]string{{"No", "Yes"}, {"Mild", "None", "Severe"}}, encoder.Categories)
	assert.Equal(t, 5, encoder.NOutputs)
}

func TestOneHotEncoder_DropFirst(t *testing.T) {
	data := [][]string{
		{"No", "Mild"},
		{"Yes", "Severe"},
		{"No", "Moderate"},
	}

	encoder := preprocessing.NewOneHotEncoder(
		preprocessing.WithDropFirst(),
		preprocessing.WithCategories([][]string{{"No", "Yes"}, {"None", "Mild", "Moderate", "Severe"}}),
	)
	X, err := encoder.FitTransform(data)
	require.NoError(t, err)

	r, c := X.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 4, c)
	assert.Equal(t,
		[]string{"Cough_Yes", "Weakness_Mild", "Weakness_Moderate", "Weakness_Severe"},
		encoder.GetFeatureNamesOut([]string{"Cough", "Weakness"}))

	expected := [][]float64{
		{0, 1, 0, 0},
		{1, 0, 0, 1},
		{0, 0, 1, 0},
	}
	for i := range expected {
		for j := range expected[i] {
			assert.Equal(t, expected[i][j], X.At(i, j), "row %d col %d", i, j)
		}
	}
}

func TestOneHotEncoder_Errors(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
	}{
		{"empty", func() error { return preprocessing.NewOneHotEncoder().Fit(nil) }},
		{"ragged", func() error {
			return preprocessing.NewOneHotEncoder().Fit([][]string{{"a", "b"}, {"c"}})
		}},
		{"unknown level", func() error {
			e := preprocessing.NewOneHotEncoder()
			if err := e.Fit([][]string{{"a"}, {"b"}}); err != nil {
				return nil
			}
			_, err := e.Transform([][]string{{"z"}})
			return err
		}},
		{"not fitted", func() error {
			_, err := preprocessing.NewOneHotEncoder().Transform([][]string{{"a"}})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.run())
		})
	}
}

func TestOrdinalEncoder(t *testing.T) {
	enc := preprocessing.NewOrdinalEncoder([]string{"None", "Mild", "Moderate", "Severe"})

	got, err := enc.Encode([]string{"Severe", "None", "Mild"})
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 0, 1}, got)

	_, err = enc.Encode([]string{"Extreme"})
	assert.Error(t, err)
}
