// Package ensemble provides random forests built from the CART trees in sklearn/tree.
//
// Every tree is grown on its own bootstrap sample with MaxFeatures candidate features
// per split. Tree t draws its bootstrap from a generator seeded with (RandomState, t),
// so a forest is reproducible regardless of how many workers grow it.
package ensemble

import (
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/flufit/core/model"
	"github.com/ezoic/flufit/core/parallel"
	flufitErrors "github.com/ezoic/flufit/pkg/errors"
	"github.com/ezoic/flufit/pkg/log"
	"github.com/ezoic/flufit/sklearn/tree"
)

// ForestParams holds the forest hyperparameters.
type ForestParams struct {
	NEstimators     int // trees
	MaxFeatures     int // mtry; 0 = one third of the features for regression, sqrt for classification
	MinSamplesSplit int // min_n
	RandomState     uint64
	Workers         int // 0 = parallel.DefaultWorkers()
}

// Option configures a forest.
type Option func(*ForestParams)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option {
	return func(p *ForestParams) { p.NEstimators = n }
}

// WithMaxFeatures sets mtry.
func WithMaxFeatures(n int) Option {
	return func(p *ForestParams) { p.MaxFeatures = n }
}

// WithMinSamplesSplit sets min_n.
func WithMinSamplesSplit(n int) Option {
	return func(p *ForestParams) { p.MinSamplesSplit = n }
}

// WithRandomState seeds bootstrap sampling and feature subsampling.
func WithRandomState(seed uint64) Option {
	return func(p *ForestParams) { p.RandomState = seed }
}

// WithWorkers bounds the goroutines growing trees.
func WithWorkers(n int) Option {
	return func(p *ForestParams) { p.Workers = n }
}

func newForestParams(opts []Option) ForestParams {
	p := ForestParams{NEstimators: 500, MinSamplesSplit: 5}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Forest is the fitted state shared by both forest types.
type Forest struct {
	State       *model.StateManager
	Params      ForestParams
	NFeatures   int
	Importances []float64
}

// FeatureImportances returns the mean normalized impurity importance over trees.
func (f *Forest) FeatureImportances() []float64 {
	return append([]float64(nil), f.Importances...)
}

// IsFitted returns whether the forest has been fitted.
func (f *Forest) IsFitted() bool {
	return f.State.IsFitted()
}

// GetParams returns the model's hyperparameters.
func (f *Forest) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      f.Params.NEstimators,
		"max_features":      f.Params.MaxFeatures,
		"min_samples_split": f.Params.MinSamplesSplit,
		"random_state":      f.Params.RandomState,
	}
}

func (f *Forest) mtry(p int, classification bool) int {
	m := f.Params.MaxFeatures
	if m <= 0 {
		if classification {
			m = isqrt(p)
		} else {
			m = p / 3
		}
	}
	if m < 1 {
		m = 1
	}
	if m > p {
		m = p
	}
	return m
}

func isqrt(n int) int {
	r := 0
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}

// bootstrap draws n row indices with replacement for tree t.
func (f *Forest) bootstrap(n, t int) []int {
	rng := rand.New(rand.NewPCG(f.Params.RandomState, uint64(t)))
	rows := make([]int, n)
	for i := range rows {
		rows[i] = rng.IntN(n)
	}
	return rows
}

func (f *Forest) treeOptions(mtry, t int) []tree.Option {
	return []tree.Option{
		tree.WithMaxFeatures(mtry),
		tree.WithMinSamplesSplit(f.Params.MinSamplesSplit),
		tree.WithCostComplexity(0),
		tree.WithRandomState(f.Params.RandomState + uint64(t)*7919 + 1),
	}
}

// averageImportances averages per-tree importances.
func averageImportances(per [][]float64, p int) []float64 {
	out := make([]float64, p)
	for _, imp := range per {
		for j, v := range imp {
			out[j] += v
		}
	}
	var total float64
	for _, v := range out {
		total += v
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}

func checkFit(op string, X, y mat.Matrix, nEstimators int) (*mat.Dense, []float64, error) {
	n, p := X.Dims()
	ry, cy := y.Dims()
	if n == 0 || p == 0 {
		return nil, nil, flufitErrors.NewModelError(op, "empty data", flufitErrors.ErrEmptyData)
	}
	if ry != n {
		return nil, nil, flufitErrors.NewDimensionError(op, n, ry, 0)
	}
	if cy != 1 {
		return nil, nil, flufitErrors.NewValueError(op, "y must be a column vector")
	}
	if nEstimators < 1 {
		return nil, nil, flufitErrors.NewValueError(op, "n_estimators must be positive")
	}
	yv := make([]float64, n)
	for i := 0; i < n; i++ {
		yv[i] = y.At(i, 0)
	}
	return mat.DenseCopyOf(X), yv, nil
}

// RandomForestRegressor averages regression trees.
type RandomForestRegressor struct {
	Forest
	Trees []*tree.DecisionTreeRegressor

	logger log.Logger
}

// NewRandomForestRegressor creates a regression forest.
//
// Example:
//
//	rf := ensemble.NewRandomForestRegressor(ensemble.WithNEstimators(500), ensemble.WithMaxFeatures(3), ensemble.WithRandomState(123))
//	err := rf.Fit(X, y)
func NewRandomForestRegressor(opts ...Option) *RandomForestRegressor {
	return &RandomForestRegressor{
		Forest: Forest{State: model.NewStateManager(), Params: newForestParams(opts)},
		logger: log.GetLoggerWithName("ensemble").With(
			log.ModelNameKey, "RandomForestRegressor",
			log.ComponentKey, "ensemble",
		),
	}
}

// Fit grows NEstimators trees concurrently.
func (rf *RandomForestRegressor) Fit(X, y mat.Matrix) (err error) {
	defer flufitErrors.Recover(&err, "RandomForestRegressor.Fit")
	xd, yv, err := checkFit("RandomForestRegressor.Fit", X, y, rf.Params.NEstimators)
	if err != nil {
		return err
	}
	startTime := time.Now()
	n, p := xd.Dims()
	mtry := rf.mtry(p, false)

	trees := make([]*tree.DecisionTreeRegressor, rf.Params.NEstimators)
	errs := make([]error, len(trees))
	parallel.ForEach(len(trees), rf.Params.Workers, func(t int) {
		dt := tree.NewDecisionTreeRegressor(rf.treeOptions(mtry, t)...)
		errs[t] = dt.FitRows(xd, yv, rf.bootstrap(n, t))
		trees[t] = dt
	})
	for _, e := range errs {
		if e != nil {
			return e
		}
	}

	per := make([][]float64, len(trees))
	for t, dt := range trees {
		per[t] = dt.FeatureImportances()
	}
	rf.Trees = trees
	rf.NFeatures = p
	rf.Importances = averageImportances(per, p)
	rf.State.SetFitted()
	rf.State.SetDimensions(p, n)

	rf.logger.Debug("Training completed",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.DurationMsKey, time.Since(startTime).Milliseconds(),
		log.SamplesKey, n,
		"trees", len(trees),
		"mtry", mtry,
	)
	return nil
}

// Predict returns the mean tree prediction.
func (rf *RandomForestRegressor) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer flufitErrors.Recover(&err, "RandomForestRegressor.Predict")
	if !rf.State.IsFitted() {
		return nil, flufitErrors.NewNotFittedError("RandomForestRegressor", "Predict")
	}
	r, c := X.Dims()
	if c != rf.NFeatures {
		return nil, flufitErrors.NewDimensionError("RandomForestRegressor.Predict", rf.NFeatures, c, 1)
	}
	out := mat.NewDense(r, 1, nil)
	for _, dt := range rf.Trees {
		pred, err := dt.Predict(X)
		if err != nil {
			return nil, err
		}
		for i := 0; i < r; i++ {
			out.Set(i, 0, out.At(i, 0)+pred.At(i, 0))
		}
	}
	out.Scale(1/float64(len(rf.Trees)), out)
	return out, nil
}

// RandomForestClassifier averages the leaf class frequencies of classification trees
// (a probability forest).
type RandomForestClassifier struct {
	Forest
	Trees []*tree.DecisionTreeClassifier

	logger log.Logger
}

// NewRandomForestClassifier creates a classification forest for 0/1 labels.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	return &RandomForestClassifier{
		Forest: Forest{State: model.NewStateManager(), Params: newForestParams(opts)},
		logger: log.GetLoggerWithName("ensemble").With(
			log.ModelNameKey, "RandomForestClassifier",
			log.ComponentKey, "ensemble",
		),
	}
}

// Fit grows NEstimators trees concurrently.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) (err error) {
	defer flufitErrors.Recover(&err, "RandomForestClassifier.Fit")
	xd, yv, err := checkFit("RandomForestClassifier.Fit", X, y, rf.Params.NEstimators)
	if err != nil {
		return err
	}
	for _, v := range yv {
		if v != 0 && v != 1 {
			return flufitErrors.NewValueError("RandomForestClassifier.Fit", "labels must be 0 or 1")
		}
	}
	startTime := time.Now()
	n, p := xd.Dims()
	mtry := rf.mtry(p, true)

	trees := make([]*tree.DecisionTreeClassifier, rf.Params.NEstimators)
	errs := make([]error, len(trees))
	parallel.ForEach(len(trees), rf.Params.Workers, func(t int) {
		dt := tree.NewDecisionTreeClassifier(rf.treeOptions(mtry, t)...)
		errs[t] = dt.FitRows(xd, yv, rf.bootstrap(n, t))
		trees[t] = dt
	})
	for _, e := range errs {
		if e != nil {
			return e
		}
	}

	per := make([][]float64, len(trees))
	for t, dt := range trees {
		per[t] = dt.FeatureImportances()
	}
	rf.Trees = trees
	rf.NFeatures = p
	rf.Importances = averageImportances(per, p)
	rf.State.SetFitted()
	rf.State.SetDimensions(p, n)

	rf.logger.Debug("Training completed",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.DurationMsKey, time.Since(startTime).Milliseconds(),
		log.SamplesKey, n,
		"trees", len(trees),
		"mtry", mtry,
	)
	return nil
}

// PredictProba returns [P(y=0), P(y=1)] averaged over trees.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (_ mat.Matrix, err error) {
	defer flufitErrors.Recover(&err, "RandomForestClassifier.PredictProba")
	if !rf.State.IsFitted() {
		return nil, flufitErrors.NewNotFittedError("RandomForestClassifier", "PredictProba")
	}
	r, c := X.Dims()
	if c != rf.NFeatures {
		return nil, flufitErrors.NewDimensionError("RandomForestClassifier.PredictProba", rf.NFeatures, c, 1)
	}
	pos := make([]float64, r)
	for _, dt := range rf.Trees {
		proba, err := dt.PredictProba(X)
		if err != nil {
			return nil, err
		}
		for i := 0; i < r; i++ {
			pos[i] += proba.At(i, 1)
		}
	}
	out := mat.NewDense(r, 2, nil)
	for i := 0; i < r; i++ {
		p := pos[i] / float64(len(rf.Trees))
		out.Set(i, 0, 1-p)
		out.Set(i, 1, p)
	}
	return out, nil
}

// Predict returns 1 where more than half of the averaged probability is positive.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer flufitErrors.Recover(&err, "RandomForestClassifier.Predict")
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	r, _ := proba.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		if proba.At(i, 1) > 0.5 {
			out.Set(i, 0, 1)
		}
	}
	return out, nil
}
