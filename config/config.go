// Package config loads the run configuration of flufit from defaults, an optional
// YAML file and FLUFIT_* environment variables, in increasing precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ezoic/flufit/dataset"
	"github.com/ezoic/flufit/evaluation"
	"github.com/ezoic/flufit/pkg/errors"
)

// EnvPrefix prefixes environment overrides, e.g. FLUFIT_SEED=7.
const EnvPrefix = "FLUFIT"

// Outcome configures one evaluated outcome.
type Outcome struct {
	Column   string `mapstructure:"column" yaml:"column"`
	Kind     string `mapstructure:"kind" yaml:"kind"`
	Positive string `mapstructure:"positive" yaml:"positive,omitempty"`
}

// Ordinal lists the ordered levels of a column encoded for modeling.
type Ordinal struct {
	Column string   `mapstructure:"column" yaml:"column"`
	Levels []string `mapstructure:"levels" yaml:"levels"`
}

// Config is the configuration of a flufit run. It is passed explicitly to every
// stage.
type Config struct {
	RawData       string `mapstructure:"raw_data" yaml:"raw_data"`
	ProcessedData string `mapstructure:"processed_data" yaml:"processed_data"`
	ResultsDir    string `mapstructure:"results_dir" yaml:"results_dir"`

	ExcludePatterns []string `mapstructure:"exclude_patterns" yaml:"exclude_patterns"`
	ExpectedRows    int      `mapstructure:"expected_rows" yaml:"expected_rows"`
	ExpectedCols    int      `mapstructure:"expected_cols" yaml:"expected_cols"`
	// EnforceShape turns the expected row and column counts into a schema check.
	EnforceShape bool `mapstructure:"enforce_shape" yaml:"enforce_shape"`

	Seed       uint64  `mapstructure:"seed" yaml:"seed"`
	TrainProp  float64 `mapstructure:"train_prop" yaml:"train_prop"`
	Stratify   bool    `mapstructure:"stratify" yaml:"stratify"`
	StrataBins int     `mapstructure:"strata_bins" yaml:"strata_bins"`
	Folds      int     `mapstructure:"folds" yaml:"folds"`
	Repeats    int     `mapstructure:"repeats" yaml:"repeats"`
	Workers    int     `mapstructure:"workers" yaml:"workers"`

	MainPredictor string    `mapstructure:"main_predictor" yaml:"main_predictor"`
	Outcomes      []Outcome `mapstructure:"outcomes" yaml:"outcomes"`
	Candidates    []string  `mapstructure:"candidates" yaml:"candidates"`
	GridLevels    int       `mapstructure:"grid_levels" yaml:"grid_levels"`
	ForestTrees   int       `mapstructure:"forest_trees" yaml:"forest_trees"`

	// ApplyRecipe runs the model preprocessing recipe before evaluation.
	ApplyRecipe   bool      `mapstructure:"apply_recipe" yaml:"apply_recipe"`
	MinLevelCount int       `mapstructure:"min_level_count" yaml:"min_level_count"`
	OrdinalLevels []Ordinal `mapstructure:"ordinal_levels" yaml:"ordinal_levels"`
	DropForModels []string  `mapstructure:"drop_for_models" yaml:"drop_for_models"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

func setDefaults(v *viper.Viper) {
	recipe := dataset.DefaultRecipe()
	ordinal := make([]map[string]interface{}, 0, len(recipe.Ordinal))
	for _, col := range []string{"Weakness", "CoughIntensity", "Myalgia"} {
		ordinal = append(ordinal, map[string]interface{}{"column": col, "levels": recipe.Ordinal[col]})
	}
	eval := evaluation.DefaultConfig()

	v.SetDefault("raw_data", filepath.Join("data", "raw", "SympAct_Any_Pos.csv"))
	v.SetDefault("processed_data", filepath.Join("data", "processed", "processed.gob"))
	v.SetDefault("results_dir", "results")
	v.SetDefault("exclude_patterns", dataset.DefaultExcludePatterns)
	v.SetDefault("expected_rows", 730)
	v.SetDefault("expected_cols", 32)
	v.SetDefault("enforce_shape", false)
	v.SetDefault("seed", eval.Seed)
	v.SetDefault("train_prop", eval.TrainProp)
	v.SetDefault("stratify", eval.Stratify)
	v.SetDefault("strata_bins", eval.StrataBins)
	v.SetDefault("folds", eval.Folds)
	v.SetDefault("repeats", eval.Repeats)
	v.SetDefault("workers", 0)
	v.SetDefault("main_predictor", "RunnyNose")
	v.SetDefault("outcomes", []map[string]interface{}{
		{"column": "BodyTemp", "kind": "continuous"},
		{"column": "Nausea", "kind": "categorical", "positive": "Yes"},
	})
	v.SetDefault("candidates", eval.Candidates)
	v.SetDefault("grid_levels", eval.GridLevels)
	v.SetDefault("forest_trees", eval.ForestTrees)
	v.SetDefault("apply_recipe", true)
	v.SetDefault("min_level_count", recipe.MinLevelCount)
	v.SetDefault("ordinal_levels", ordinal)
	v.SetDefault("drop_for_models", recipe.Drop)
	v.SetDefault("log_level", "info")
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		panic(errors.Wrap(err, "invalid built-in configuration"))
	}
	return &c
}

// Load reads cfgFile, when given, over the defaults and applies FLUFIT_* environment
// overrides. A missing cfgFile is an error; an empty one means defaults only.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", cfgFile)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save writes c as YAML to path, creating its directory.
func Save(c *Config, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "failed to create %s", dir)
		}
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// Validate checks the settings that are not checked by the stage that uses them.
func (c *Config) Validate() error {
	if len(c.Outcomes) == 0 {
		return errors.NewValidationError("outcomes", "at least one outcome is required", c.Outcomes)
	}
	for _, o := range c.Outcomes {
		if o.Column == "" {
			return errors.NewValidationError("outcomes", "outcome column is empty", o)
		}
		if _, err := dataset.ParseKind(o.Kind); err != nil {
			return errors.Wrapf(err, "outcome %s", o.Column)
		}
	}
	if c.MainPredictor == "" {
		return errors.NewValidationError("main_predictor", "must not be empty", c.MainPredictor)
	}
	return c.Evaluation().Validate()
}

// ExclusionRule returns the column exclusion rule of the preparation stage.
func (c *Config) ExclusionRule() dataset.ExclusionRule {
	return dataset.ExclusionRule{Patterns: append([]string(nil), c.ExcludePatterns...)}
}

// Schema returns the checks applied to the processed table.
func (c *Config) Schema() dataset.Schema {
	s := dataset.Schema{Required: []string{c.MainPredictor}}
	for _, o := range c.Outcomes {
		s.Required = append(s.Required, o.Column)
	}
	if c.EnforceShape {
		s.Rows, s.Cols = c.ExpectedRows, c.ExpectedCols
	}
	return s
}

// Evaluation returns the harness configuration.
func (c *Config) Evaluation() evaluation.Config {
	return evaluation.Config{
		Seed:        c.Seed,
		TrainProp:   c.TrainProp,
		Stratify:    c.Stratify,
		StrataBins:  c.StrataBins,
		Folds:       c.Folds,
		Repeats:     c.Repeats,
		Workers:     c.Workers,
		Candidates:  append([]string(nil), c.Candidates...),
		GridLevels:  c.GridLevels,
		ForestTrees: c.ForestTrees,
	}
}

// Recipe returns the model preprocessing recipe. The outcomes and the main predictor
// are never removed by the rare-level filter.
func (c *Config) Recipe() dataset.Recipe {
	r := dataset.Recipe{
		Drop:          append([]string(nil), c.DropForModels...),
		Ordinal:       make(map[string][]string, len(c.OrdinalLevels)),
		MinLevelCount: c.MinLevelCount,
		Keep:          []string{c.MainPredictor},
	}
	for _, o := range c.OrdinalLevels {
		r.Ordinal[o.Column] = append([]string(nil), o.Levels...)
	}
	for _, o := range c.Outcomes {
		r.Keep = append(r.Keep, o.Column)
	}
	return r
}

// DatasetOutcomes converts the configured outcomes.
func (c *Config) DatasetOutcomes() ([]dataset.Outcome, error) {
	out := make([]dataset.Outcome, 0, len(c.Outcomes))
	for _, o := range c.Outcomes {
		kind, err := dataset.ParseKind(o.Kind)
		if err != nil {
			return nil, errors.Wrapf(err, "outcome %s", o.Column)
		}
		out = append(out, dataset.Outcome{Column: o.Column, Kind: kind, Positive: o.Positive})
	}
	return out, nil
}

// PredictorSets returns the main-predictor-only and all-remaining predictor sets.
func (c *Config) PredictorSets() []dataset.PredictorSet {
	return []dataset.PredictorSet{dataset.MainOnly(c.MainPredictor), dataset.AllRemaining()}
}
