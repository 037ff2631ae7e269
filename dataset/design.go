package dataset

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/flufit/pkg/errors"
	"github.com/ezoic/flufit/pkg/log"
	"github.com/ezoic/flufit/preprocessing"
)

// Outcome names the column to predict. A categorical outcome is encoded 1 for the
// Positive level and 0 for every other level.
type Outcome struct {
	Column   string
	Kind     Kind
	Positive string
}

func (o Outcome) String() string {
	if o.Kind == Categorical {
		return fmt.Sprintf("%s (%s, positive=%s)", o.Column, o.Kind, o.Positive)
	}
	return fmt.Sprintf("%s (%s)", o.Column, o.Kind)
}

// PredictorSet selects the predictors of a candidate: either a single main predictor
// or every column except the outcome.
type PredictorSet struct {
	Name string
	Main string
}

// MainOnly selects a single predictor.
func MainOnly(col string) PredictorSet {
	return PredictorSet{Name: "main", Main: col}
}

// AllRemaining selects every column except the outcome.
func AllRemaining() PredictorSet {
	return PredictorSet{Name: "all"}
}

// Resolve returns the predictor columns of the set for t and outcome, in table order.
func (p PredictorSet) Resolve(t *Table, outcome string) ([]string, error) {
	if p.Main != "" {
		if !t.Has(p.Main) {
			return nil, errors.NewSchemaError("PredictorSet.Resolve", "main predictor absent", p.Main)
		}
		if p.Main == outcome {
			return nil, errors.NewValidationError("main predictor", "must differ from the outcome", p.Main)
		}
		return []string{p.Main}, nil
	}
	cols := make([]string, 0, t.Ncol())
	for _, c := range t.Names() {
		if c != outcome {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return nil, errors.NewSchemaError("PredictorSet.Resolve", "no predictors besides the outcome")
	}
	return cols, nil
}

// Designer turns a table into numeric design matrices. The dummy encoding is fitted on
// the whole table once, so every partition drawn from it shares the same columns.
type Designer struct {
	Outcome    Outcome
	Predictors []string
	// Skipped lists categorical predictors with a single level, which contribute no
	// column.
	Skipped []string

	names   []string
	x       *mat.Dense
	y       *mat.VecDense
	labels  []string
	encoder *preprocessing.OneHotEncoder
}

// NewDesigner encodes the outcome and predictors of t. Continuous predictors are used
// as is; categorical ones are treatment coded with their first sorted level as the
// reference. Categorical outcomes take the designated positive level as 1; an empty
// Positive selects the last sorted level.
//
// Errors:
//   - SchemaError: if a column is absent, or the outcome kind disagrees with the table
//   - ValueError: if the positive level never occurs
func NewDesigner(t *Table, outcome Outcome, predictors []string) (*Designer, error) {
	if !t.Has(outcome.Column) {
		return nil, errors.NewSchemaError("NewDesigner", "outcome column absent", outcome.Column)
	}
	if len(predictors) == 0 {
		return nil, errors.NewValueError("NewDesigner", "no predictors")
	}
	kind, err := t.Kind(outcome.Column)
	if err != nil {
		return nil, err
	}

	d := &Designer{Outcome: outcome, Predictors: slices.Clone(predictors)}
	n := t.Nrow()
	if d.labels, err = t.Strings(outcome.Column); err != nil {
		return nil, err
	}
	switch outcome.Kind {
	case Continuous:
		if kind != Continuous {
			return nil, errors.NewSchemaError("NewDesigner", "continuous outcome in a categorical column", outcome.Column)
		}
		values, err := t.Floats(outcome.Column)
		if err != nil {
			return nil, err
		}
		d.y = mat.NewVecDense(n, values)
	case Categorical:
		levels, err := t.Levels(outcome.Column)
		if err != nil {
			return nil, err
		}
		if d.Outcome.Positive == "" && len(levels) > 0 {
			d.Outcome.Positive = levels[len(levels)-1]
		}
		if !slices.Contains(levels, d.Outcome.Positive) {
			return nil, errors.NewValueError("NewDesigner",
				fmt.Sprintf("positive level %q not among %v", d.Outcome.Positive, levels))
		}
		d.y = mat.NewVecDense(n, nil)
		for i, v := range d.labels {
			if v == d.Outcome.Positive {
				d.y.SetVec(i, 1)
			}
		}
	default:
		return nil, errors.Wrapf(errors.ErrUnsupportedOutcome, "outcome kind %v", outcome.Kind)
	}

	if err := d.encode(t); err != nil {
		return nil, err
	}
	log.GetLoggerWithName("dataset").Debug("Design matrix built",
		log.OutcomeKey, outcome.Column,
		log.SamplesKey, n,
		log.FeaturesKey, len(d.names),
	)
	return d, nil
}

func (d *Designer) encode(t *Table) error {
	n := t.Nrow()
	var catCols []string
	var catData [][]string
	for _, c := range d.Predictors {
		if c == d.Outcome.Column {
			return errors.NewValidationError("predictors", "must not contain the outcome", c)
		}
		kind, err := t.Kind(c)
		if err != nil {
			return err
		}
		if kind != Categorical {
			continue
		}
		levels, err := t.Levels(c)
		if err != nil {
			return err
		}
		if len(levels) < 2 {
			d.Skipped = append(d.Skipped, c)
			continue
		}
		values, err := t.Strings(c)
		if err != nil {
			return err
		}
		catCols = append(catCols, c)
		catData = append(catData, values)
	}

	var dummies mat.Matrix
	var dummyNames []string
	if len(catCols) > 0 {
		rows := make([][]string, n)
		for i := range rows {
			rows[i] = make([]string, len(catCols))
			for j := range catCols {
				rows[i][j] = catData[j][i]
			}
		}
		d.encoder = preprocessing.NewOneHotEncoder(preprocessing.WithDropFirst())
		var err error
		if dummies, err = d.encoder.FitTransform(rows); err != nil {
			return errors.Wrap(err, "failed to encode categorical predictors")
		}
		dummyNames = d.encoder.GetFeatureNamesOut(catCols)
	}

	type block struct {
		values []float64
		name   string
	}
	var blocks []block
	catIdx, offset := 0, 0
	for _, c := range d.Predictors {
		if slices.Contains(d.Skipped, c) {
			continue
		}
		if catIdx < len(catCols) && catCols[catIdx] == c {
			width := len(d.encoder.Categories[catIdx]) - 1
			for k := 0; k < width; k++ {
				blocks = append(blocks, block{mat.Col(nil, offset+k, dummies), dummyNames[offset+k]})
			}
			offset += width
			catIdx++
			continue
		}
		values, err := t.Floats(c)
		if err != nil {
			return err
		}
		blocks = append(blocks, block{values, c})
	}
	if len(blocks) == 0 {
		return errors.NewValueError("NewDesigner", "no predictor has more than one level")
	}

	d.x = mat.NewDense(n, len(blocks), nil)
	d.names = make([]string, len(blocks))
	for j, b := range blocks {
		d.x.SetCol(j, b.values)
		d.names[j] = b.name
	}
	return nil
}

// FeatureNames returns the design column names.
func (d *Designer) FeatureNames() []string { return slices.Clone(d.names) }

// NFeatures returns the number of design columns.
func (d *Designer) NFeatures() int { return len(d.names) }

// Nrow returns the number of table rows.
func (d *Designer) Nrow() int { return d.y.Len() }

// Matrix returns fresh copies of the design rows and outcome values for the given row
// indices. nil selects every row.
func (d *Designer) Matrix(rows []int) (*mat.Dense, *mat.VecDense) {
	if rows == nil {
		return mat.DenseCopyOf(d.x), mat.VecDenseCopyOf(d.y)
	}
	_, c := d.x.Dims()
	X := mat.NewDense(len(rows), c, nil)
	y := mat.NewVecDense(len(rows), nil)
	for i, r := range rows {
		X.SetRow(i, d.x.RawRowView(r))
		y.SetVec(i, d.y.AtVec(r))
	}
	return X, y
}

// OutcomeValues returns the encoded outcome of every row.
func (d *Designer) OutcomeValues() []float64 {
	return mat.Col(nil, 0, d.y)
}

// OutcomeLabels returns the raw outcome labels of every row.
func (d *Designer) OutcomeLabels() []string { return slices.Clone(d.labels) }
