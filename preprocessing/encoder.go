package preprocessing

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/flufit/core/model"
	flufitErrors "github.com/ezoic/flufit/pkg/errors"
)

// OneHotEncoder expands categorical features into 0/1 indicator columns.
//
// Levels are sorted unless fixed with WithCategories. With DropFirst the first level of
// every feature is the reference and gets no column (treatment coding), which keeps a
// design matrix with an intercept full rank.
type OneHotEncoder struct {
	State *model.StateManager

	// Categories holds the levels of each input feature, in output order.
	Categories [][]string

	// CategoryToIdx maps each level to its position in Categories.
	CategoryToIdx []map[string]int

	// DropFirst omits the indicator of the first level of every feature.
	DropFirst bool

	NFeatures int
	NOutputs  int

	fixed [][]string
}

// EncoderOption configures a OneHotEncoder.
type EncoderOption func(*OneHotEncoder)

// WithDropFirst enables treatment coding.
func WithDropFirst() EncoderOption {
	return func(e *OneHotEncoder) { e.DropFirst = true }
}

// WithCategories fixes the level order per feature instead of learning it from data.
// The first level becomes the reference under DropFirst.
func WithCategories(categories [][]string) EncoderOption {
	return func(e *OneHotEncoder) {
		e.fixed = make([][]string, len(categories))
		for i, c := range categories {
			e.fixed[i] = append([]string(nil), c...)
		}
	}
}

// NewOneHotEncoder creates a OneHotEncoder.
func NewOneHotEncoder(opts ...EncoderOption) *OneHotEncoder {
	e := &OneHotEncoder{State: model.NewStateManager()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fit learns the levels of every feature. data is row-major: data[i][j] is feature j of
// sample i.
func (e *OneHotEncoder) Fit(data [][]string) (err error) {
	defer flufitErrors.Recover(&err, "OneHotEncoder.Fit")
	if len(data) == 0 || len(data[0]) == 0 {
		return flufitErrors.NewModelError("OneHotEncoder.Fit", "empty data", flufitErrors.ErrEmptyData)
	}

	nFeatures := len(data[0])
	for i, row := range data {
		if len(row) != nFeatures {
			return flufitErrors.NewValueError("OneHotEncoder.Fit",
				fmt.Sprintf("row %d has %d features, expected %d", i, len(row), nFeatures))
		}
	}

	var categories [][]string
	if e.fixed != nil {
		if len(e.fixed) != nFeatures {
			return flufitErrors.NewDimensionError("OneHotEncoder.Fit", len(e.fixed), nFeatures, 1)
		}
		categories = e.fixed
	} else {
		categories = make([][]string, nFeatures)
		for j := 0; j < nFeatures; j++ {
			seen := make(map[string]struct{})
			for _, row := range data {
				seen[row[j]] = struct{}{}
			}
			levels := make([]string, 0, len(seen))
			for v := range seen {
				levels = append(levels, v)
			}
			sort.Strings(levels)
			categories[j] = levels
		}
	}

	e.NFeatures = nFeatures
	e.Categories = categories
	e.CategoryToIdx = make([]map[string]int, nFeatures)
	e.NOutputs = 0
	for j, levels := range categories {
		e.CategoryToIdx[j] = make(map[string]int, len(levels))
		for k, v := range levels {
			e.CategoryToIdx[j][v] = k
		}
		e.NOutputs += e.width(j)
	}

	e.State.SetFitted()
	e.State.SetDimensions(nFeatures, len(data))
	return nil
}

func (e *OneHotEncoder) width(j int) int {
	if e.DropFirst {
		return len(e.Categories[j]) - 1
	}
	return len(e.Categories[j])
}

// Transform encodes data. An unseen level is an error.
func (e *OneHotEncoder) Transform(data [][]string) (_ mat.Matrix, err error) {
	defer flufitErrors.Recover(&err, "OneHotEncoder.Transform")
	if !e.State.IsFitted() {
		return nil, flufitErrors.NewNotFittedError("OneHotEncoder", "Transform")
	}
	if len(data) == 0 {
		return nil, flufitErrors.NewModelError("OneHotEncoder.Transform", "empty data", flufitErrors.ErrEmptyData)
	}
	if e.NOutputs == 0 {
		return nil, flufitErrors.NewValueError("OneHotEncoder.Transform", "every feature has a single level")
	}

	result := mat.NewDense(len(data), e.NOutputs, nil)
	for i, row := range data {
		if len(row) != e.NFeatures {
			return nil, flufitErrors.NewDimensionError("OneHotEncoder.Transform", e.NFeatures, len(row), 1)
		}
		offset := 0
		for j, v := range row {
			k, ok := e.CategoryToIdx[j][v]
			if !ok {
				return nil, flufitErrors.NewValueError("OneHotEncoder.Transform",
					fmt.Sprintf("unknown category %q in feature %d", v, j))
			}
			if e.DropFirst {
				k--
			}
			if k >= 0 {
				result.Set(i, offset+k, 1)
			}
			offset += e.width(j)
		}
	}
	return result, nil
}

// FitTransform fits on data and encodes it.
func (e *OneHotEncoder) FitTransform(data [][]string) (mat.Matrix, error) {
	if err := e.Fit(data); err != nil {
		return nil, err
	}
	return e.Transform(data)
}

// GetFeatureNamesOut returns "<feature>_<level>" for each output column. Missing input
// names default to x0, x1, ...
func (e *OneHotEncoder) GetFeatureNamesOut(inputFeatures []string) []string {
	if !e.State.IsFitted() {
		return nil
	}
	names := make([]string, 0, e.NOutputs)
	for j, levels := range e.Categories {
		prefix := fmt.Sprintf("x%d", j)
		if j < len(inputFeatures) {
			prefix = inputFeatures[j]
		}
		start := 0
		if e.DropFirst {
			start = 1
		}
		for _, level := range levels[start:] {
			names = append(names, prefix+"_"+level)
		}
	}
	return names
}

// IsFitted reports whether Fit has run.
func (e *OneHotEncoder) IsFitted() bool {
	return e.State.IsFitted()
}

// OrdinalEncoder maps ordered levels to 0..k-1.
type OrdinalEncoder struct {
	Levels []string
	index  map[string]int
}

// NewOrdinalEncoder creates an encoder for the given level order, lowest first.
func NewOrdinalEncoder(levels []string) *OrdinalEncoder {
	idx := make(map[string]int, len(levels))
	for i, l := range levels {
		idx[l] = i
	}
	return &OrdinalEncoder{Levels: append([]string(nil), levels...), index: idx}
}

// Encode returns the rank of every value.
func (o *OrdinalEncoder) Encode(values []string) ([]float64, error) {
	out := make([]float64, len(values))
	for i, v := range values {
		k, ok := o.index[v]
		if !ok {
			return nil, flufitErrors.NewValueError("OrdinalEncoder.Encode",
				fmt.Sprintf("level %q not in %v", v, o.Levels))
		}
		out[i] = float64(k)
	}
	return out, nil
}
