package evaluation

import (
	"math"
	"sort"

	"github.com/ezoic/flufit/core/model"
	"github.com/ezoic/flufit/dataset"
	"github.com/ezoic/flufit/linear"
	"github.com/ezoic/flufit/model_selection"
	"github.com/ezoic/flufit/pkg/errors"
	"github.com/ezoic/flufit/preprocessing"
	"github.com/ezoic/flufit/sklearn/dummy"
	"github.com/ezoic/flufit/sklearn/ensemble"
	"github.com/ezoic/flufit/sklearn/linear_model"
	"github.com/ezoic/flufit/sklearn/pipeline"
	"github.com/ezoic/flufit/sklearn/tree"
)

// Candidate names.
const (
	CandidateNull   = "null"
	CandidateLinear = "linear"
	CandidateTree   = "tree"
	CandidateLasso  = "lasso"
	CandidateForest = "forest"
)

// DefaultCandidates is the comparison order of the candidate families.
var DefaultCandidates = []string{CandidateNull, CandidateLinear, CandidateTree, CandidateLasso, CandidateForest}

// BuildContext carries what a candidate needs to construct an estimator.
type BuildContext struct {
	Kind         dataset.Kind
	FeatureNames []string
	Seed         uint64
	// Workers bounds estimator-internal parallelism (forest trees).
	Workers     int
	ForestTrees int
}

// Candidate is a model family evaluated by the harness.
type Candidate interface {
	Name() string
	// Tuned reports whether the family has hyperparameters selected by grid search.
	Tuned() bool
	// Grid returns the hyperparameter grid for nFeatures design columns; simple
	// candidates return a grid with one empty configuration.
	Grid(nFeatures, levels int) model_selection.Grid
	// Complexity orders configurations for tie-breaking; lower is simpler.
	Complexity(p model_selection.Params) float64
	// New returns an unfitted estimator, or ErrUnsupportedOutcome.
	New(ctx BuildContext, p model_selection.Params) (model.Estimator, error)
}

// CandidateByName returns a built-in candidate.
func CandidateByName(name string) (Candidate, error) {
	switch name {
	case CandidateNull:
		return nullCandidate{}, nil
	case CandidateLinear:
		return linearCandidate{}, nil
	case CandidateTree:
		return treeCandidate{}, nil
	case CandidateLasso:
		return lassoCandidate{}, nil
	case CandidateForest:
		return forestCandidate{}, nil
	}
	return nil, errors.NewValidationError("candidate", "unknown candidate", name)
}

// CandidatesByName resolves a list of names.
func CandidatesByName(names []string) ([]Candidate, error) {
	out := make([]Candidate, 0, len(names))
	for _, n := range names {
		c, err := CandidateByName(n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func untunedGrid() model_selection.Grid { return model_selection.Grid{model_selection.Params{}} }

// nullCandidate predicts the mean or the majority class.
type nullCandidate struct{}

func (nullCandidate) Name() string { return CandidateNull }
func (nullCandidate) Tuned() bool { return false }
func (nullCandidate) Grid(int, int) model_selection.Grid { return untunedGrid() }
func (nullCandidate) Complexity(model_selection.Params) float64 { return 0 }
func (nullCandidate) New(ctx BuildContext, _ model_selection.Params) (model.Estimator, error) {
	if ctx.Kind == dataset.Categorical {
		return dummy.NewDummyClassifier(), nil
	}
	return dummy.NewDummyRegressor(), nil
}

// linearCandidate is OLS for continuous outcomes and the logistic GLM for binary ones.
type linearCandidate struct{}

func (linearCandidate) Name() string { return CandidateLinear }
func (linearCandidate) Tuned() bool { return false }
func (linearCandidate) Grid(int, int) model_selection.Grid { return untunedGrid() }
func (linearCandidate) Complexity(model_selection.Params) float64 { return 0 }
func (linearCandidate) New(ctx BuildContext, _ model_selection.Params) (model.Estimator, error) {
	if ctx.Kind == dataset.Categorical {
		return linear_model.NewLogisticRegression(linear_model.WithLRFeatureNames(ctx.FeatureNames)), nil
	}
	return linear.NewLinearRegression(linear.WithFeatureNames(ctx.FeatureNames)), nil
}

// treeCandidate is a CART tree tuned over cost_complexity and tree_depth.
type treeCandidate struct{}

func (treeCandidate) Name() string { return CandidateTree }
func (treeCandidate) Tuned() bool { return true }
func (treeCandidate) Grid(_ int, levels int) model_selection.Grid {
	return model_selection.RegularGrid(map[string][]float64{
		"cost_complexity": model_selection.LogLevels(-10, -1, levels),
		"tree_depth":      model_selection.IntLevels(1, 15, levels),
	})
}

// Complexity prefers shallow trees, then larger cost complexity.
func (treeCandidate) Complexity(p model_selection.Params) float64 {
	return float64(p.Int("tree_depth", 0))*100 - math.Log10(p.Float("cost_complexity", 1))
}

func (treeCandidate) New(ctx BuildContext, p model_selection.Params) (model.Estimator, error) {
	opts := []tree.Option{
		tree.WithMaxDepth(p.Int("tree_depth", 30)),
		tree.WithCostComplexity(p.Float("cost_complexity", 0.01)),
		tree.WithRandomState(ctx.Seed),
	}
	if ctx.Kind == dataset.Categorical {
		return tree.NewDecisionTreeClassifier(opts...), nil
	}
	return tree.NewDecisionTreeRegressor(opts...), nil
}

// lassoCandidate standardizes the predictors and fits an L1-penalized model tuned over
// the penalty.
type lassoCandidate struct{}

func (lassoCandidate) Name() string { return CandidateLasso }
func (lassoCandidate) Tuned() bool { return true }
func (lassoCandidate) Grid(_ int, levels int) model_selection.Grid {
	return model_selection.RegularGrid(map[string][]float64{
		"penalty": model_selection.LogLevels(-4, 0, levels),
	})
}

// Complexity prefers larger penalties.
func (lassoCandidate) Complexity(p model_selection.Params) float64 {
	return -p.Float("penalty", 0)
}

func (lassoCandidate) New(ctx BuildContext, p model_selection.Params) (model.Estimator, error) {
	alpha := linear_model.WithAlpha(p.Float("penalty", 0.01))
	if ctx.Kind == dataset.Categorical {
		return pipeline.Make(preprocessing.NewStandardScalerDefault(), linear_model.NewLassoClassifier(alpha)), nil
	}
	return pipeline.Make(preprocessing.NewStandardScalerDefault(), linear_model.NewLasso(alpha)), nil
}

// forestCandidate is a random forest tuned over mtry and min_n.
type forestCandidate struct{}

func (forestCandidate) Name() string { return CandidateForest }
func (forestCandidate) Tuned() bool { return true }
func (forestCandidate) Grid(nFeatures, levels int) model_selection.Grid {
	if nFeatures < 1 {
		nFeatures = 1
	}
	return model_selection.RegularGrid(map[string][]float64{
		"mtry":  model_selection.IntLevels(1, nFeatures, levels),
		"min_n": model_selection.IntLevels(2, 40, levels),
	})
}

// Complexity prefers fewer sampled predictors, then larger nodes.
func (forestCandidate) Complexity(p model_selection.Params) float64 {
	return float64(p.Int("mtry", 0))*100 - float64(p.Int("min_n", 0))
}

func (forestCandidate) New(ctx BuildContext, p model_selection.Params) (model.Estimator, error) {
	trees := ctx.ForestTrees
	if trees <= 0 {
		trees = 500
	}
	opts := []ensemble.Option{
		ensemble.WithNEstimators(trees),
		ensemble.WithMaxFeatures(p.Int("mtry", 0)),
		ensemble.WithMinSamplesSplit(p.Int("min_n", 5)),
		ensemble.WithRandomState(ctx.Seed),
		ensemble.WithWorkers(ctx.Workers),
	}
	if ctx.Kind == dataset.Categorical {
		return ensemble.NewRandomForestClassifier(opts...), nil
	}
	return ensemble.NewRandomForestRegressor(opts...), nil
}

// importances pairs feature names with importances, largest first.
func importances(names []string, values []float64) []Importance {
	out := make([]Importance, 0, len(values))
	for j, v := range values {
		name := ""
		if j < len(names) {
			name = names[j]
		}
		out = append(out, Importance{Feature: name, Value: v})
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Value > out[b].Value })
	return out
}
