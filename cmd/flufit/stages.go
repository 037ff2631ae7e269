package main

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ezoic/flufit/config"
	"github.com/ezoic/flufit/dataset"
	"github.com/ezoic/flufit/evaluation"
	"github.com/ezoic/flufit/explore"
	"github.com/ezoic/flufit/pkg/log"
	"github.com/ezoic/flufit/report"
)

type prepareFlags struct {
	simulate   int
	incomplete int
}

func (f *prepareFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.simulate, "simulate", 0, "write a seeded synthetic raw table with this many complete rows first")
	cmd.Flags().IntVar(&f.incomplete, "incomplete", 5, "incomplete rows added to the synthetic raw table")
}

type evaluateFlags struct {
	runID      string
	candidates []string
	workers    int
}

func (f *evaluateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.runID, "run-id", "", "results subdirectory and run label (random UUID by default)")
	cmd.Flags().StringSliceVar(&f.candidates, "candidates", nil, "candidates to evaluate (overrides config)")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "tuning workers, 0 for NumCPU-1 (overrides config)")
}

func (f *evaluateFlags) apply(cmd *cobra.Command, c *config.Config) string {
	if cmd.Flags().Changed("candidates") {
		c.Candidates = f.candidates
	}
	if cmd.Flags().Changed("workers") {
		c.Workers = f.workers
	}
	if f.runID != "" {
		return f.runID
	}
	return uuid.NewString()
}

func newPrepareCmd(a *app) *cobra.Command {
	var flags prepareFlags
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Drop excluded columns and incomplete rows, check the schema and save the processed table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := a.prepare(flags)
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func newExploreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "explore",
		Short: "Write summary tables and plots of the processed table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := a.loadProcessed()
			if err != nil {
				return err
			}
			return a.explore(t, report.NewStore(a.cfg.ResultsDir, ""))
		},
	}
}

func newEvaluateCmd(a *app) *cobra.Command {
	var flags evaluateFlags
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Compare the candidate models for every configured outcome",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runID := flags.apply(cmd, a.cfg)
			t, err := a.loadProcessed()
			if err != nil {
				return err
			}
			return a.evaluate(t, runID, cmd.OutOrStdout())
		},
	}
	flags.register(cmd)
	return cmd
}

func newRunCmd(a *app) *cobra.Command {
	var (
		pf prepareFlags
		ef evaluateFlags
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run prepare, explore and evaluate in order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runID := ef.apply(cmd, a.cfg)
			t, err := a.prepare(pf)
			if err != nil {
				return err
			}
			store := report.NewStore(filepath.Join(a.cfg.ResultsDir, runID), runID)
			if err := a.explore(t, store); err != nil {
				return err
			}
			return a.evaluate(t, runID, cmd.OutOrStdout())
		},
	}
	pf.register(cmd)
	ef.register(cmd)
	return cmd
}

func (a *app) prepare(flags prepareFlags) (*dataset.Table, error) {
	store := dataset.NewFileStore("")
	if flags.simulate > 0 {
		raw, err := dataset.Simulate(flags.simulate, flags.incomplete, a.cfg.Seed)
		if err != nil {
			return nil, err
		}
		if err := store.Save(a.cfg.RawData, raw); err != nil {
			return nil, err
		}
	}
	p := &dataset.Preparer{
		Store:     store,
		Rule:      a.cfg.ExclusionRule(),
		Schema:    a.cfg.Schema(),
		Raw:       a.cfg.RawData,
		Processed: a.cfg.ProcessedData,
	}
	t, err := p.Run()
	if err != nil {
		return nil, err
	}
	log.GetLoggerWithName("flufit").Info("Processed table saved",
		log.OperationKey, log.OperationPrepare,
		log.PathKey, a.cfg.ProcessedData,
		log.RowsKey, t.Nrow(),
		log.ColumnsKey, t.Ncol(),
	)
	return t, nil
}

func (a *app) loadProcessed() (*dataset.Table, error) {
	return dataset.NewFileStore("").Load(a.cfg.ProcessedData)
}

// explore writes the summary and cross tabulation tables and the outcome plots under
// explore/ in store.
func (a *app) explore(t *dataset.Table, store *report.Store) error {
	summaries, err := explore.Describe(t)
	if err != nil {
		return err
	}
	if err := store.WriteTable(filepath.Join("explore", "summary.csv"), explore.SummaryRecords(summaries)); err != nil {
		return err
	}

	outcomes, err := a.cfg.DatasetOutcomes()
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		stats, err := explore.CrossTab(t, o)
		if err != nil {
			return err
		}
		var levels []string
		if o.Kind == dataset.Categorical {
			if levels, err = t.Levels(o.Column); err != nil {
				return err
			}
		}
		if len(stats) > 0 {
			name := filepath.Join("explore", "crosstab_"+o.Column+".csv")
			if err := store.WriteTable(name, explore.CrossTabRecords(stats, levels)); err != nil {
				return err
			}
		}
		if o.Kind != dataset.Continuous {
			continue
		}
		hist, err := explore.Histogram(t, o.Column, 0)
		if err != nil {
			return err
		}
		if err := store.SavePlot(filepath.Join("explore", "hist_"+o.Column+".png"), hist); err != nil {
			return err
		}
		box, err := explore.BoxPlot(t, o.Column, a.cfg.MainPredictor)
		if err != nil {
			return err
		}
		if err := store.SavePlot(filepath.Join("explore", "box_"+o.Column+"_"+a.cfg.MainPredictor+".png"), box); err != nil {
			return err
		}
	}
	return nil
}

// evaluate runs the harness for every outcome, persisting results under
// <results_dir>/<runID>, and prints the comparison tables to w.
func (a *app) evaluate(t *dataset.Table, runID string, w io.Writer) error {
	if a.cfg.ApplyRecipe {
		var err error
		if t, err = a.cfg.Recipe().Apply(t); err != nil {
			return err
		}
	}
	outcomes, err := a.cfg.DatasetOutcomes()
	if err != nil {
		return err
	}

	store := report.NewStore(filepath.Join(a.cfg.ResultsDir, runID), runID)
	if err := config.Save(a.cfg, filepath.Join(store.Dir, "config.yaml")); err != nil {
		return err
	}
	for _, o := range outcomes {
		results, err := evaluation.Evaluate(t, o, a.cfg.PredictorSets(), a.cfg.Evaluation(),
			evaluation.WithSink(store), evaluation.WithRunID(runID))
		if err != nil {
			return err
		}
		printResults(w, o, results)
	}
	if err := store.Close(); err != nil {
		return err
	}
	fmt.Fprintf(w, "results: %s\n", store.Dir)
	return nil
}

func printResults(w io.Writer, o dataset.Outcome, results []*evaluation.Result) {
	metric, _ := evaluation.ComparisonMetric(o.Kind)
	fmt.Fprintf(w, "\n%s (%s), ordered by %s\n", o.Column, o.Kind, metric)
	fmt.Fprintf(w, "%4s  %-8s %-6s %10s %10s  %s\n", "rank", "model", "set", "resampled", "test", "notes")
	for _, r := range results {
		notes := ""
		switch {
		case r.Failed():
			notes = r.Error
		case len(r.Warnings) > 0:
			notes = strconv.Itoa(len(r.Warnings)) + " warnings"
		}
		test, ok := r.Test[metric]
		if !ok {
			test = math.NaN()
		}
		fmt.Fprintf(w, "%4d  %-8s %-6s %10.4f %10.4f  %s\n",
			r.Rank, r.Candidate, r.PredictorSet, r.ComparisonValue(metric), test, notes)
	}
}
