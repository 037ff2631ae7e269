// Package evaluation is the split-and-evaluate harness.
//
// For one outcome it draws a seeded train/test split, builds a repeated k-fold plan
// over the training rows, fits every candidate family on every predictor set (tuning
// the hyperparameters of tree, lasso and forest over the plan), scores the fits on
// train, resampled folds and test, and orders the results by the comparison metric:
// RMSE for continuous outcomes, ROC-AUC for categorical ones.
//
//	results, err := evaluation.Evaluate(processed,
//		dataset.Outcome{Column: "BodyTemp", Kind: dataset.Continuous},
//		[]dataset.PredictorSet{dataset.MainOnly("RunnyNose"), dataset.AllRemaining()},
//		evaluation.DefaultConfig(),
//		evaluation.WithSink(store),
//	)
//
// Fit problems never abort the run. Aliased coefficients come back undefined with a
// warning, a candidate that fails is reported with its error and no metrics, and a
// metric that is undefined on a partition is left out with a warning.
package evaluation

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/flufit/core/model"
	"github.com/ezoic/flufit/core/parallel"
	"github.com/ezoic/flufit/dataset"
	"github.com/ezoic/flufit/metrics"
	"github.com/ezoic/flufit/model_selection"
	"github.com/ezoic/flufit/pkg/errors"
	"github.com/ezoic/flufit/pkg/log"
)

// Config controls the split, the resampling plan and the candidates.
type Config struct {
	Seed       uint64
	TrainProp  float64
	Stratify   bool
	StrataBins int
	Folds      int
	Repeats    int
	// Workers bounds the tuning pool; 0 uses NumCPU-1.
	Workers     int
	Candidates  []string
	GridLevels  int
	ForestTrees int
}

// DefaultConfig returns seed 123, a stratified 70/30 split and 5 x 5-fold
// cross-validation over every candidate.
func DefaultConfig() Config {
	return Config{
		Seed:        123,
		TrainProp:   0.7,
		Stratify:    true,
		StrataBins:  4,
		Folds:       5,
		Repeats:     5,
		Candidates:  append([]string(nil), DefaultCandidates...),
		GridLevels:  5,
		ForestTrees: 500,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if !(c.TrainProp > 0 && c.TrainProp < 1) {
		return errors.NewValidationError("train_prop", "must be in (0, 1)", c.TrainProp)
	}
	if len(c.Candidates) == 0 {
		return errors.NewValidationError("candidates", "at least one candidate is required", c.Candidates)
	}
	if c.Folds < 2 {
		return errors.NewValidationError("folds", "must be at least 2", c.Folds)
	}
	if c.Repeats < 1 {
		return errors.NewValidationError("repeats", "must be at least 1", c.Repeats)
	}
	if c.GridLevels < 1 {
		return errors.NewValidationError("grid_levels", "must be at least 1", c.GridLevels)
	}
	return nil
}

// Option configures a Harness.
type Option func(*Harness)

// WithSink sends every result to s after ordering.
func WithSink(s Sink) Option {
	return func(h *Harness) { h.sink = s }
}

// WithRunID labels the results; by default a random UUID is used.
func WithRunID(id string) Option {
	return func(h *Harness) { h.runID = id }
}

// WithLogger replaces the harness logger.
func WithLogger(l log.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// Harness evaluates candidates on a processed table.
type Harness struct {
	cfg        Config
	candidates []Candidate
	sink       Sink
	runID      string
	logger     log.Logger
}

// NewHarness validates cfg and resolves its candidates.
func NewHarness(cfg Config, opts ...Option) (*Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	candidates, err := CandidatesByName(cfg.Candidates)
	if err != nil {
		return nil, err
	}
	h := &Harness{cfg: cfg, candidates: candidates}
	for _, opt := range opts {
		opt(h)
	}
	if h.runID == "" {
		h.runID = uuid.NewString()
	}
	if h.logger == nil {
		h.logger = log.GetLoggerWithName("evaluation")
	}
	h.logger = h.logger.With(log.RunIDKey, h.runID)
	return h, nil
}

// Evaluate runs the harness with a new Harness built from cfg and opts.
func Evaluate(t *dataset.Table, outcome dataset.Outcome, sets []dataset.PredictorSet, cfg Config, opts ...Option) ([]*Result, error) {
	h, err := NewHarness(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return h.Evaluate(t, outcome, sets)
}

// Evaluate fits every candidate on every predictor set and returns the results best
// first.
//
// Errors are returned only for problems with the inputs: an empty table, an absent
// outcome or predictor column, a split that cannot be drawn, or a sink failure.
func (h *Harness) Evaluate(t *dataset.Table, outcome dataset.Outcome, sets []dataset.PredictorSet) ([]*Result, error) {
	if t == nil || t.Nrow() == 0 {
		return nil, errors.NewModelError("Evaluate", "empty table", errors.ErrEmptyData)
	}
	if len(sets) == 0 {
		return nil, errors.NewValueError("Evaluate", "no predictor sets")
	}
	startTime := time.Now()
	logger := h.logger.With(log.OutcomeKey, outcome.Column)

	designers := make([]*dataset.Designer, len(sets))
	for i, set := range sets {
		preds, err := set.Resolve(t, outcome.Column)
		if err != nil {
			return nil, err
		}
		if designers[i], err = dataset.NewDesigner(t, outcome, preds); err != nil {
			return nil, err
		}
	}

	strata, err := h.strata(designers[0])
	if err != nil {
		return nil, err
	}
	split, err := model_selection.TrainTestSplit(t.Nrow(), strata, h.cfg.TrainProp, h.cfg.Seed)
	if err != nil {
		return nil, err
	}
	logger.Info("Split drawn",
		log.OperationKey, log.OperationSplit,
		log.SeedKey, h.cfg.Seed,
		"train", len(split.Train),
		"test", len(split.Test),
		"stratified", strata != nil,
		log.WorkersKey, parallel.Resolve(h.cfg.Workers),
	)

	var plan *model_selection.Plan
	if h.anyTuned() {
		var trainStrata []string
		if strata != nil {
			trainStrata = make([]string, len(split.Train))
			for i, r := range split.Train {
				trainStrata[i] = strata[r]
			}
		}
		p, err := model_selection.RepeatedKFold(split.Train, trainStrata, h.cfg.Folds, h.cfg.Repeats, h.cfg.Seed)
		if err != nil {
			return nil, err
		}
		plan = &p
	}

	var results []*Result
	for i, set := range sets {
		for _, c := range h.candidates {
			r := h.run(c, designers[i], set, split, plan)
			results = append(results, r)
		}
	}

	Sort(results, outcome.Kind)
	if h.sink != nil {
		for _, r := range results {
			if err := h.sink.Write(r); err != nil {
				return results, errors.Wrapf(err, "failed to persist %s/%s", r.Candidate, r.PredictorSet)
			}
		}
	}

	metric, _ := ComparisonMetric(outcome.Kind)
	logger.Info("Evaluation finished",
		log.OperationKey, log.OperationEvaluate,
		log.PhaseKey, log.PhaseEvaluation,
		log.MetricKey, metric,
		"results", len(results),
		"best", results[0].Candidate+"/"+results[0].PredictorSet,
		log.DurationMsKey, time.Since(startTime).Milliseconds(),
	)
	return results, nil
}

func (h *Harness) anyTuned() bool {
	for _, c := range h.candidates {
		if c.Tuned() {
			return true
		}
	}
	return false
}

// strata returns the stratification labels of every row, or nil when stratification
// is off. Continuous outcomes are binned at their quantiles.
func (h *Harness) strata(d *dataset.Designer) ([]string, error) {
	if !h.cfg.Stratify {
		return nil, nil
	}
	if d.Outcome.Kind == dataset.Categorical {
		return model_selection.LabelStrata(d.OutcomeLabels()), nil
	}
	bins := h.cfg.StrataBins
	if bins == 0 {
		bins = 4
	}
	return model_selection.QuantileStrata(d.OutcomeValues(), bins), nil
}

// run evaluates one candidate on one predictor set. It never fails; problems are
// recorded on the result.
func (h *Harness) run(c Candidate, d *dataset.Designer, set dataset.PredictorSet, split model_selection.Split, plan *model_selection.Plan) *Result {
	kind := d.Outcome.Kind
	r := &Result{
		RunID:        h.runID,
		Outcome:      d.Outcome.Column,
		OutcomeKind:  kind.String(),
		Candidate:    c.Name(),
		PredictorSet: set.Name,
		Features:     d.FeatureNames(),
	}
	logger := h.logger.With(
		log.OutcomeKey, r.Outcome,
		log.CandidateKey, r.Candidate,
		log.PredictorSetKey, r.PredictorSet,
	)
	for _, name := range d.Skipped {
		r.warn(logger, errors.Newf("predictor %s has a single level and was left out", name))
	}

	ctx := BuildContext{
		Kind:         kind,
		FeatureNames: r.Features,
		Seed:         h.cfg.Seed,
		ForestTrees:  h.cfg.ForestTrees,
		Workers:      1,
	}

	params := model_selection.Params{}
	if plan != nil {
		metric, lower := ComparisonMetric(kind)
		gs := &model_selection.GridSearch{
			Grid:       c.Grid(d.NFeatures(), h.cfg.GridLevels),
			Metric:     metric,
			Lower:      lower,
			Complexity: c.Complexity,
			Workers:    h.cfg.Workers,
			Logger:     logger,
		}
		search, err := gs.Run(*plan, func(p model_selection.Params, fold model_selection.Fold) (float64, error) {
			return h.foldScore(c, ctx, p, d, fold, metric)
		})
		r.Tuning = search.Configs
		if err != nil && c.Tuned() {
			r.fail(logger, errors.Wrap(err, "tuning failed"))
			return r
		}
		if err == nil {
			params = search.Best.Params
			r.CV = map[string]Estimate{metric: {Mean: search.Best.Mean, StdErr: search.Best.StdErr, N: search.Best.N}}
			if search.Best.Failed > 0 {
				r.warn(logger, errors.Newf("%d of %d resampled fits failed", search.Best.Failed, plan.Len()))
			}
		} else {
			r.warn(logger, errors.Wrap(err, "resampling failed"))
		}
	}
	if c.Tuned() {
		r.Params = params
	}

	ctx.Workers = h.cfg.Workers
	est, err := c.New(ctx, params)
	if err != nil {
		r.fail(logger, err)
		return r
	}
	Xtr, ytr := d.Matrix(split.Train)
	if err := est.Fit(Xtr, ytr); err != nil {
		r.fail(logger, errors.Wrap(err, "fit on train failed"))
		return r
	}
	r.Model = est
	if wr, ok := est.(model.WarningReporter); ok {
		for _, w := range wr.Warnings() {
			r.warn(logger, w)
		}
	}

	r.Train = h.score(r, logger, est, kind, Xtr, ytr, "train")
	Xte, yte := d.Matrix(split.Test)
	r.Test = h.score(r, logger, est, kind, Xte, yte, "test")
	if scores, err := positiveScores(est, kind, Xte); err == nil {
		r.Predictions = &Predictions{
			Rows:      append([]int(nil), split.Test...),
			Observed:  mat.Col(nil, 0, yte),
			Predicted: scores,
		}
	}

	if cr, ok := est.(model.CoefficientReporter); ok {
		r.Coefficients = cr.Coefficients(r.Features)
	}
	if ir, ok := est.(model.ImportanceReporter); ok {
		if imp := ir.FeatureImportances(); imp != nil {
			r.Importances = importances(r.Features, imp)
		}
	}
	if lm, ok := est.(model.LikelihoodModel); ok {
		ll := lm.LogLikelihood()
		if !math.IsNaN(ll) && !math.IsInf(ll, 0) {
			r.Fit = &FitStats{
				LogLik: ll,
				DoF:    lm.DoF(),
				NObs:   lm.NObs(),
				AIC:    metrics.AIC(ll, lm.DoF()),
				BIC:    metrics.BIC(ll, lm.DoF(), lm.NObs()),
			}
		}
	}

	logger.Debug("Candidate evaluated",
		log.PhaseKey, log.PhaseEvaluation,
		"params", params.String(),
		"train", r.Train,
		"test", r.Test,
		"warnings", len(r.Warnings),
	)
	return r
}

// foldScore fits a fresh estimator on the analysis rows of fold and scores it on the
// assessment rows.
func (h *Harness) foldScore(c Candidate, ctx BuildContext, p model_selection.Params, d *dataset.Designer, fold model_selection.Fold, metric string) (float64, error) {
	est, err := c.New(ctx, p)
	if err != nil {
		return 0, err
	}
	Xa, ya := d.Matrix(fold.Analysis)
	if err := est.Fit(Xa, ya); err != nil {
		return 0, err
	}
	Xv, yv := d.Matrix(fold.Assessment)
	return metricValue(est, ctx.Kind, metric, Xv, yv)
}

// score computes the metrics of kind on one partition. Undefined metrics are left
// out with a warning.
func (h *Harness) score(r *Result, logger log.Logger, est model.Estimator, kind dataset.Kind, X *mat.Dense, y *mat.VecDense, partition string) map[string]float64 {
	names := []string{MetricRMSE, MetricRSquared}
	if kind == dataset.Categorical {
		names = []string{MetricROCAUC, MetricAccuracy}
	}
	out := make(map[string]float64, len(names))
	for _, m := range names {
		v, err := metricValue(est, kind, m, X, y)
		if err != nil {
			r.warn(logger, errors.Wrapf(err, "%s %s", partition, m))
			continue
		}
		out[m] = v
	}
	return out
}

// metricValue scores a fitted estimator on (X, y).
func metricValue(est model.Estimator, kind dataset.Kind, metric string, X *mat.Dense, y *mat.VecDense) (float64, error) {
	switch metric {
	case MetricRMSE, MetricRSquared:
		pred, err := est.Predict(X)
		if err != nil {
			return 0, err
		}
		if metric == MetricRMSE {
			return metrics.RMSE(y, model.ColumnVector(pred))
		}
		return metrics.R2Score(y, model.ColumnVector(pred))
	case MetricROCAUC:
		scores, err := positiveScores(est, kind, X)
		if err != nil {
			return 0, err
		}
		return metrics.AUC(y, mat.NewVecDense(len(scores), scores))
	case MetricAccuracy:
		pred, err := est.Predict(X)
		if err != nil {
			return 0, err
		}
		return metrics.Accuracy(y, model.ColumnVector(pred))
	}
	return 0, errors.NewValueError("metricValue", fmt.Sprintf("unknown metric %q", metric))
}

// positiveScores returns fitted values for continuous outcomes and positive-class
// probabilities for categorical ones.
func positiveScores(est model.Estimator, kind dataset.Kind, X *mat.Dense) ([]float64, error) {
	if kind == dataset.Categorical {
		pc, ok := est.(interface {
			PredictProba(mat.Matrix) (mat.Matrix, error)
		})
		if !ok {
			return nil, errors.Wrapf(errors.ErrUnsupportedOutcome, "%T has no class probabilities", est)
		}
		proba, err := pc.PredictProba(X)
		if err != nil {
			return nil, err
		}
		return mat.Col(nil, 1, proba), nil
	}
	pred, err := est.Predict(X)
	if err != nil {
		return nil, err
	}
	return mat.Col(nil, 0, pred), nil
}

func (r *Result) warn(logger log.Logger, err error) {
	r.Warnings = append(r.Warnings, err.Error())
	logger.Warn("Candidate warning", "warning", err.Error())
}

func (r *Result) fail(logger log.Logger, err error) {
	r.Error = err.Error()
	r.Warnings = append(r.Warnings, err.Error())
	r.Train, r.CV, r.Test, r.Fit = nil, nil, nil, nil
	logger.Error("Candidate failed", "error", err.Error())
}
