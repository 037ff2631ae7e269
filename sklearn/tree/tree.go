// Package tree provides CART decision trees for regression and binary classification.
//
// Growth is controlled by the usual stopping rules (maximum depth, minimum samples to
// split, minimum samples per leaf) and by a cost-complexity parameter: a split is kept
// only if it lowers the total impurity by at least CostComplexity times the root
// impurity. MaxFeatures > 0 draws that many candidate features at every node, which is
// how the random forest decorrelates its trees.
package tree

import (
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/flufit/core/model"
	flufitErrors "github.com/ezoic/flufit/pkg/errors"
	"github.com/ezoic/flufit/pkg/log"
)

// Params holds the growth hyperparameters shared by both tree types.
type Params struct {
	MaxDepth        int     // 0 = unlimited
	MinSamplesSplit int     // minimum samples in a node to attempt a split
	MinSamplesLeaf  int     // minimum samples in each child
	MaxFeatures     int     // candidate features per split; 0 = all
	CostComplexity  float64 // minimum relative impurity decrease per split
	RandomState     uint64
}

// DefaultParams returns the growth defaults: unlimited depth, min split 2, min leaf 1,
// all features, cost complexity 0.01.
func DefaultParams() Params {
	return Params{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		CostComplexity:  0.01,
	}
}

// Option is a functional option for both tree types.
type Option func(*Params)

// WithMaxDepth sets the maximum depth (root is depth 0).
func WithMaxDepth(depth int) Option {
	return func(p *Params) { p.MaxDepth = depth }
}

// WithMinSamplesSplit sets the minimum node size to attempt a split.
func WithMinSamplesSplit(n int) Option {
	return func(p *Params) { p.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum child size.
func WithMinSamplesLeaf(n int) Option {
	return func(p *Params) { p.MinSamplesLeaf = n }
}

// WithMaxFeatures sets the number of features drawn as split candidates at each node.
func WithMaxFeatures(n int) Option {
	return func(p *Params) { p.MaxFeatures = n }
}

// WithCostComplexity sets the cost-complexity threshold.
func WithCostComplexity(cp float64) Option {
	return func(p *Params) { p.CostComplexity = cp }
}

// WithRandomState seeds feature subsampling.
func WithRandomState(seed uint64) Option {
	return func(p *Params) { p.RandomState = seed }
}

func newParams(opts []Option) Params {
	p := DefaultParams()
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Tree is the fitted state shared by both tree types.
type Tree struct {
	State       *model.StateManager
	Params      Params
	Nodes       []Node
	NFeatures   int
	Importances []float64
}

func (f *Tree) fitRows(op string, criterion Criterion, X *mat.Dense, y []float64, rows []int, logger log.Logger) error {
	n, p := X.Dims()
	if n == 0 || p == 0 || len(rows) == 0 {
		return flufitErrors.NewModelError(op, "empty data", flufitErrors.ErrEmptyData)
	}
	if len(y) != n {
		return flufitErrors.NewDimensionError(op, n, len(y), 0)
	}

	startTime := time.Now()
	b := newBuilder(X, y, criterion, f.Params)
	f.Nodes = append([]Node(nil), b.grow(rows)...)
	f.NFeatures = p

	var total float64
	for _, v := range b.importances {
		total += v
	}
	f.Importances = b.importances
	if total > 0 {
		for j := range f.Importances {
			f.Importances[j] /= total
		}
	}

	f.State.SetFitted()
	f.State.SetDimensions(p, len(rows))
	if logger != nil {
		logger.Debug("Training completed",
			log.OperationKey, log.OperationFit,
			log.DurationMsKey, time.Since(startTime).Milliseconds(),
			log.SamplesKey, len(rows),
			"nodes", len(f.Nodes),
			"depth", f.Depth(),
		)
	}
	return nil
}

func (f *Tree) predictValues(op, name string, X mat.Matrix) ([]float64, error) {
	if !f.State.IsFitted() {
		return nil, flufitErrors.NewNotFittedError(name, op)
	}
	r, c := X.Dims()
	if c != f.NFeatures {
		return nil, flufitErrors.NewDimensionError(name+"."+op, f.NFeatures, c, 1)
	}
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		out[i] = predictValue(f.Nodes, X, i)
	}
	return out, nil
}

// FeatureImportances returns the normalized total impurity decrease per feature.
func (f *Tree) FeatureImportances() []float64 {
	return append([]float64(nil), f.Importances...)
}

// Depth returns the depth of the deepest leaf.
func (f *Tree) Depth() int {
	d := 0
	for _, n := range f.Nodes {
		if n.Depth > d {
			d = n.Depth
		}
	}
	return d
}

// NLeaves returns the number of leaves.
func (f *Tree) NLeaves() int {
	c := 0
	for _, n := range f.Nodes {
		if n.IsLeaf() {
			c++
		}
	}
	return c
}

// IsFitted returns whether the tree has been fitted.
func (f *Tree) IsFitted() bool {
	return f.State.IsFitted()
}

// GetParams returns the model's hyperparameters.
func (f *Tree) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"max_depth":         f.Params.MaxDepth,
		"min_samples_split": f.Params.MinSamplesSplit,
		"min_samples_leaf":  f.Params.MinSamplesLeaf,
		"max_features":      f.Params.MaxFeatures,
		"cost_complexity":   f.Params.CostComplexity,
		"random_state":      f.Params.RandomState,
	}
}

func checkFit(op string, X, y mat.Matrix) (*mat.Dense, []float64, []int, error) {
	n, p := X.Dims()
	ry, cy := y.Dims()
	if n == 0 || p == 0 {
		return nil, nil, nil, flufitErrors.NewModelError(op, "empty data", flufitErrors.ErrEmptyData)
	}
	if ry != n {
		return nil, nil, nil, flufitErrors.NewDimensionError(op, n, ry, 0)
	}
	if cy != 1 {
		return nil, nil, nil, flufitErrors.NewValueError(op, "y must be a column vector")
	}
	yv := make([]float64, n)
	rows := make([]int, n)
	for i := 0; i < n; i++ {
		yv[i] = y.At(i, 0)
		rows[i] = i
	}
	return mat.DenseCopyOf(X), yv, rows, nil
}

// DecisionTreeRegressor is a CART regression tree.
type DecisionTreeRegressor struct {
	Tree
	logger log.Logger
}

// NewDecisionTreeRegressor creates a regression tree.
//
// Example:
//
//	dt := tree.NewDecisionTreeRegressor(tree.WithMaxDepth(3), tree.WithCostComplexity(0.001))
//	err := dt.Fit(X, y)
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	return &DecisionTreeRegressor{
		Tree: Tree{State: model.NewStateManager(), Params: newParams(opts)},
		logger: log.GetLoggerWithName("tree").With(
			log.ModelNameKey, "DecisionTreeRegressor",
			log.ComponentKey, "tree",
		),
	}
}

// Fit grows the tree on all rows.
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) (err error) {
	defer flufitErrors.Recover(&err, "DecisionTreeRegressor.Fit")
	xd, yv, rows, err := checkFit("DecisionTreeRegressor.Fit", X, y)
	if err != nil {
		return err
	}
	return dt.fitRows("DecisionTreeRegressor.Fit", SquaredError, xd, yv, rows, dt.logger)
}

// FitRows grows the tree on the given rows of X, which may repeat.
func (dt *DecisionTreeRegressor) FitRows(X *mat.Dense, y []float64, rows []int) (err error) {
	defer flufitErrors.Recover(&err, "DecisionTreeRegressor.FitRows")
	return dt.fitRows("DecisionTreeRegressor.FitRows", SquaredError, X, y, rows, nil)
}

// Predict returns the leaf mean for every row.
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer flufitErrors.Recover(&err, "DecisionTreeRegressor.Predict")
	values, err := dt.predictValues("Predict", "DecisionTreeRegressor", X)
	if err != nil {
		return nil, err
	}
	return mat.NewDense(len(values), 1, values), nil
}

// DecisionTreeClassifier is a CART classification tree for 0/1 labels using Gini
// impurity.
type DecisionTreeClassifier struct {
	Tree
	logger log.Logger
}

// NewDecisionTreeClassifier creates a classification tree.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	return &DecisionTreeClassifier{
		Tree: Tree{State: model.NewStateManager(), Params: newParams(opts)},
		logger: log.GetLoggerWithName("tree").With(
			log.ModelNameKey, "DecisionTreeClassifier",
			log.ComponentKey, "tree",
		),
	}
}

// Fit grows the tree on all rows. Labels must be 0 or 1.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) (err error) {
	defer flufitErrors.Recover(&err, "DecisionTreeClassifier.Fit")
	xd, yv, rows, err := checkFit("DecisionTreeClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	for _, v := range yv {
		if v != 0 && v != 1 {
			return flufitErrors.NewValueError("DecisionTreeClassifier.Fit", "labels must be 0 or 1")
		}
	}
	return dt.fitRows("DecisionTreeClassifier.Fit", Gini, xd, yv, rows, dt.logger)
}

// FitRows grows the tree on the given rows of X, which may repeat.
func (dt *DecisionTreeClassifier) FitRows(X *mat.Dense, y []float64, rows []int) (err error) {
	defer flufitErrors.Recover(&err, "DecisionTreeClassifier.FitRows")
	return dt.fitRows("DecisionTreeClassifier.FitRows", Gini, X, y, rows, nil)
}

// PredictProba returns [P(y=0), P(y=1)] from leaf class frequencies.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (_ mat.Matrix, err error) {
	defer flufitErrors.Recover(&err, "DecisionTreeClassifier.PredictProba")
	values, err := dt.predictValues("PredictProba", "DecisionTreeClassifier", X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(values), 2, nil)
	for i, p := range values {
		out.Set(i, 0, 1-p)
		out.Set(i, 1, p)
	}
	return out, nil
}

// Predict returns the majority class of the leaf; ties go to class 0.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer flufitErrors.Recover(&err, "DecisionTreeClassifier.Predict")
	values, err := dt.predictValues("Predict", "DecisionTreeClassifier", X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(len(values), 1, nil)
	for i, p := range values {
		if p > 0.5 {
			out.Set(i, 0, 1)
		}
	}
	return out, nil
}
