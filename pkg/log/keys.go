package log

// Field keys.
const (
	ComponentKey    = "component"
	ModelNameKey    = "model"
	OperationKey    = "operation"
	PhaseKey        = "phase"
	SamplesKey      = "samples"
	FeaturesKey     = "features"
	DurationMsKey   = "duration_ms"
	PredsKey        = "predictions"
	CandidateKey    = "candidate"
	PredictorSetKey = "predictor_set"
	OutcomeKey      = "outcome"
	FoldKey         = "fold"
	RepeatKey       = "repeat"
	MetricKey       = "metric"
	RowsKey         = "rows"
	ColumnsKey      = "columns"
	SeedKey         = "seed"
	RunIDKey        = "run_id"
	PathKey         = "path"
	WorkersKey      = "workers"
)

// Operation values.
const (
	OperationFit      = "fit"
	OperationPredict  = "predict"
	OperationTune     = "tune"
	OperationPrepare  = "prepare"
	OperationSplit    = "split"
	OperationEvaluate = "evaluate"
	OperationExplore  = "explore"
)

// Phase values.
const (
	PhaseTraining    = "training"
	PhaseInference   = "inference"
	PhaseTuning      = "tuning"
	PhasePreparation = "preparation"
	PhaseEvaluation  = "evaluation"
)
