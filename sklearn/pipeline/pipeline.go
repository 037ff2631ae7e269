// Package pipeline chains transformers and a final estimator, so that preprocessing
// fitted on the analysis rows is replayed unchanged on assessment and test rows.
//
// The harness uses it for the penalized models: a StandardScaler followed by Lasso or
// LassoClassifier. The pipeline forwards PredictProba, Coefficients, Warnings and
// FeatureImportances of the final estimator, so it satisfies the same optional
// interfaces as the estimator it wraps.
package pipeline

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/flufit/core/model"
	"github.com/ezoic/flufit/pkg/errors"
	"github.com/ezoic/flufit/pkg/log"
)

var globalProvider log.LoggerProvider

// Step is one named stage of the pipeline.
type Step struct {
	Name      string      // Name of this step (for identification)
	Estimator interface{} // model.Transformer for intermediate steps
}

// Pipeline chains multiple transforms and a final estimator.
type Pipeline struct {
	State *model.StateManager
	Steps []Step

	logger log.Logger
}

// New creates a new Pipeline with the given steps.
func New(steps ...Step) *Pipeline {
	if globalProvider == nil {
		globalProvider = log.NewZerologProvider(log.ToLogLevel("info"))
	}
	return &Pipeline{
		State:  model.NewStateManager(),
		Steps:  steps,
		logger: globalProvider.GetLoggerWithName("Pipeline"),
	}
}

// Make names the steps step1, step2, ... and calls New.
//
// Example:
//
//	pipe := pipeline.Make(preprocessing.NewStandardScalerDefault(), linear_model.NewLasso(linear_model.WithAlpha(0.01)))
func Make(estimators ...interface{}) *Pipeline {
	steps := make([]Step, len(estimators))
	for i, estimator := range estimators {
		steps[i] = Step{Name: fmt.Sprintf("step%d", i+1), Estimator: estimator}
	}
	return New(steps...)
}

// Fit fits every transformer on the output of the previous one, then the final
// estimator.
func (p *Pipeline) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "Pipeline.Fit")
	if len(p.Steps) == 0 {
		return errors.New("pipeline has no steps")
	}

	startTime := time.Now()
	Xt := X
	for i := 0; i < len(p.Steps)-1; i++ {
		step := p.Steps[i]
		transformer, ok := step.Estimator.(model.Transformer)
		if !ok {
			return errors.NewValidationError(
				"pipeline step",
				"all intermediate steps must be transformers",
				step.Name,
			)
		}
		if err = transformer.Fit(Xt); err != nil {
			return errors.Wrapf(err, "failed to fit step '%s'", step.Name)
		}
		Xt, err = transformer.Transform(Xt)
		if err != nil {
			return errors.Wrapf(err, "failed to transform at step '%s'", step.Name)
		}
	}

	finalStep := p.Steps[len(p.Steps)-1]
	fitter, ok := finalStep.Estimator.(model.Fitter)
	if !ok {
		return errors.NewValidationError(
			"pipeline final step",
			"final step must have Fit method",
			finalStep.Name,
		)
	}
	if err = fitter.Fit(Xt, y); err != nil {
		return errors.Wrapf(err, "failed to fit final step '%s'", finalStep.Name)
	}

	r, c := X.Dims()
	p.State.SetFitted()
	p.State.SetDimensions(c, r)
	p.logger.Debug("Pipeline fitted",
		log.OperationKey, log.OperationFit,
		log.DurationMsKey, time.Since(startTime).Milliseconds(),
		"steps", len(p.Steps),
	)
	return nil
}

// Predict transforms X and predicts with the final estimator.
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !p.State.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "Predict")
	}
	Xt, err := p.transform(X)
	if err != nil {
		return nil, err
	}
	finalStep := p.Steps[len(p.Steps)-1]
	predictor, ok := finalStep.Estimator.(model.Predictor)
	if !ok {
		return nil, errors.NewValidationError(
			"pipeline final step",
			"final step must have Predict method for prediction",
			finalStep.Name,
		)
	}
	return predictor.Predict(Xt)
}

// PredictProba transforms X and calls PredictProba on the final estimator.
func (p *Pipeline) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !p.State.IsFitted() {
		return nil, errors.NewNotFittedError("Pipeline", "PredictProba")
	}
	Xt, err := p.transform(X)
	if err != nil {
		return nil, err
	}
	finalStep := p.Steps[len(p.Steps)-1]
	predictor, ok := finalStep.Estimator.(interface {
		PredictProba(mat.Matrix) (mat.Matrix, error)
	})
	if !ok {
		return nil, errors.NewValidationError(
			"pipeline final step",
			"final step must have PredictProba method",
			finalStep.Name,
		)
	}
	return predictor.PredictProba(Xt)
}

// Final returns the final estimator.
func (p *Pipeline) Final() interface{} {
	if len(p.Steps) == 0 {
		return nil
	}
	return p.Steps[len(p.Steps)-1].Estimator
}

// Coefficients forwards to the final estimator. Coefficients are on the transformed
// (for a scaler, standardized) scale. Nil when the estimator does not report them.
func (p *Pipeline) Coefficients(featureNames []string) []model.Coefficient {
	if r, ok := p.Final().(model.CoefficientReporter); ok {
		return r.Coefficients(featureNames)
	}
	return nil
}

// FeatureImportances forwards to the final estimator.
func (p *Pipeline) FeatureImportances() []float64 {
	if r, ok := p.Final().(model.ImportanceReporter); ok {
		return r.FeatureImportances()
	}
	return nil
}

// Warnings collects warnings from every step.
func (p *Pipeline) Warnings() []error {
	var out []error
	for _, step := range p.Steps {
		if r, ok := step.Estimator.(model.WarningReporter); ok {
			out = append(out, r.Warnings()...)
		}
	}
	return out
}

// GetParams returns the parameters of every step prefixed with "<step>__".
func (p *Pipeline) GetParams() map[string]interface{} {
	params := make(map[string]interface{})
	for _, step := range p.Steps {
		if paramsGetter, ok := step.Estimator.(interface {
			GetParams() map[string]interface{}
		}); ok {
			for key, value := range paramsGetter.GetParams() {
				params[fmt.Sprintf("%s__%s", step.Name, key)] = value
			}
		}
	}
	return params
}

// IsFitted returns whether Fit has completed.
func (p *Pipeline) IsFitted() bool {
	return p.State.IsFitted()
}

// transform applies all transforms except the final estimator.
func (p *Pipeline) transform(X mat.Matrix) (mat.Matrix, error) {
	Xt := X
	var err error
	for i := 0; i < len(p.Steps)-1; i++ {
		step := p.Steps[i]
		transformer, ok := step.Estimator.(model.Transformer)
		if !ok {
			return nil, errors.NewValidationError(
				"pipeline step",
				"intermediate steps must be transformers",
				step.Name,
			)
		}
		Xt, err = transformer.Transform(Xt)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to transform at step '%s'", step.Name)
		}
	}
	return Xt, nil
}
