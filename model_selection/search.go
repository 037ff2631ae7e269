package model_selection

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/ezoic/flufit/core/parallel"
	"github.com/ezoic/flufit/metrics"
	"github.com/ezoic/flufit/pkg/errors"
	"github.com/ezoic/flufit/pkg/log"
)

// FitScoreFunc fits one configuration on fold.Analysis and returns its metric on
// fold.Assessment. It runs concurrently with other units and must not mutate shared
// state.
type FitScoreFunc func(params Params, fold Fold) (float64, error)

// ConfigScore aggregates the fold scores of one configuration.
type ConfigScore struct {
	Index  int
	Params Params
	Mean   float64
	StdErr float64
	// N is the number of folds that produced a score; Failed the number that did not.
	N      int
	Failed int
	Scores []float64
}

// SearchResult holds every configuration's score and the selected one.
type SearchResult struct {
	Metric  string
	Lower   bool
	Configs []ConfigScore
	Best    ConfigScore
}

// GridSearch tunes hyperparameters over a resampling plan.
//
// The winner has the best mean score (lowest when Lower is set, highest otherwise).
// Equal means are broken by the lowest standard error, then by the lowest
// Complexity, then by grid order.
type GridSearch struct {
	Grid   Grid
	Metric string
	Lower  bool

	// Complexity ranks configurations by model complexity; nil treats them as equal.
	Complexity func(Params) float64

	// Workers bounds the pool; 0 uses parallel.DefaultWorkers.
	Workers int

	Logger log.Logger
}

// Run scores every (configuration, fold) pair independently on the worker pool. A unit
// whose fit or score fails, or returns a non-finite score, is recorded as missing. The
// result is aggregated only after every unit has finished.
//
// Errors:
//   - ValueError: if the grid or plan is empty
//   - the first unit error, wrapped, if no configuration produced any score
func (g *GridSearch) Run(plan Plan, fitScore FitScoreFunc) (SearchResult, error) {
	if len(g.Grid) == 0 {
		return SearchResult{}, errors.NewValueError("GridSearch.Run", "empty grid")
	}
	if plan.Len() == 0 {
		return SearchResult{}, errors.NewValueError("GridSearch.Run", "empty resampling plan")
	}
	logger := g.Logger
	if logger == nil {
		logger = log.GetLoggerWithName("model_selection")
	}

	startTime := time.Now()
	nFolds := plan.Len()
	units := len(g.Grid) * nFolds
	scores := make([]float64, units)
	unitErrs := make([]error, units)
	var failed atomic.Int64

	parallel.ForEach(units, g.Workers, func(u int) {
		params, fold := g.Grid[u/nFolds], plan.Folds[u%nFolds]
		score, err := fitScore(params, fold)
		if err == nil && (math.IsNaN(score) || math.IsInf(score, 0)) {
			err = errors.NewValueError("GridSearch.Run", "non-finite score")
		}
		if err != nil {
			scores[u] = math.NaN()
			unitErrs[u] = errors.Wrapf(err, "%s on %s", params, fold.ID())
			failed.Add(1)
			return
		}
		scores[u] = score
	})

	res := SearchResult{Metric: g.Metric, Lower: g.Lower, Configs: make([]ConfigScore, len(g.Grid))}
	best := -1
	for c, params := range g.Grid {
		cs := ConfigScore{Index: c, Params: params, Scores: scores[c*nFolds : (c+1)*nFolds]}
		cs.Mean, cs.StdErr, cs.N = metrics.MeanStdErr(cs.Scores)
		cs.Failed = nFolds - cs.N
		res.Configs[c] = cs
		if cs.N > 0 && (best < 0 || g.better(cs, res.Configs[best])) {
			best = c
		}
	}

	logger.Info("Grid search finished",
		log.OperationKey, log.OperationTune,
		log.PhaseKey, log.PhaseTuning,
		log.MetricKey, g.Metric,
		"configs", len(g.Grid),
		"folds", nFolds,
		"failed_units", failed.Load(),
		log.DurationMsKey, time.Since(startTime).Milliseconds(),
	)

	if best < 0 {
		for _, err := range unitErrs {
			if err != nil {
				return res, errors.Wrap(err, "grid search: every unit failed")
			}
		}
		return res, errors.New("grid search: every unit failed")
	}
	res.Best = res.Configs[best]
	logger.Debug("Selected configuration",
		log.MetricKey, g.Metric,
		"params", res.Best.Params.String(),
		"mean", res.Best.Mean,
		"std_err", res.Best.StdErr,
	)
	return res, nil
}

// better reports whether a beats b under the selection rule. Grid order is handled by
// the caller, which only replaces the incumbent when strictly better.
func (g *GridSearch) better(a, b ConfigScore) bool {
	if !sameScore(a.Mean, b.Mean) {
		if g.Lower {
			return a.Mean < b.Mean
		}
		return a.Mean > b.Mean
	}
	ase, bse := nanToInf(a.StdErr), nanToInf(b.StdErr)
	if !sameScore(ase, bse) {
		return ase < bse
	}
	if g.Complexity != nil {
		return g.Complexity(a.Params) < g.Complexity(b.Params)
	}
	return false
}

func sameScore(a, b float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= 1e-12*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func nanToInf(v float64) float64 {
	if math.IsNaN(v) {
		return math.Inf(1)
	}
	return v
}
