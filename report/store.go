// Package report persists evaluation results: one JSON document per result, the
// fitted model, its test predictions as a NumPy array, a diagnostic plot, and a
// metrics.csv comparison table covering the whole run.
//
// Layout under Dir:
//
//	<outcome>/<candidate>_<set>.json
//	<outcome>/<candidate>_<set>.gob
//	<outcome>/<candidate>_<set>.npy         rows x (row, observed, predicted)
//	<outcome>/roc_<candidate>_<set>.png     categorical outcomes
//	<outcome>/obs_pred_<candidate>_<set>.png continuous outcomes
//	metrics.csv
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/flufit/core/model"
	"github.com/ezoic/flufit/evaluation"
	"github.com/ezoic/flufit/pkg/errors"
	"github.com/ezoic/flufit/pkg/log"
)

// MetricsFile is the name of the run-wide comparison table.
const MetricsFile = "metrics.csv"

// Store writes results under Dir. It implements evaluation.Sink; the comparison table
// is written by Close.
type Store struct {
	Dir   string
	RunID string

	results []*evaluation.Result
	logger  log.Logger
}

// NewStore returns a Store rooted at dir.
func NewStore(dir, runID string) *Store {
	return &Store{
		Dir:    dir,
		RunID:  runID,
		logger: log.GetLoggerWithName("report").With(log.RunIDKey, runID),
	}
}

func (s *Store) log() log.Logger {
	if s.logger == nil {
		s.logger = log.GetLoggerWithName("report")
	}
	return s.logger
}

// Base returns the path of a result's files without extension, relative to Dir.
func Base(r *evaluation.Result) string {
	return filepath.Join(r.Outcome, r.Candidate+"_"+r.PredictorSet)
}

// Write persists one result. A model that cannot be encoded is skipped with a
// warning; every other failure is returned.
func (s *Store) Write(r *evaluation.Result) error {
	base := Base(r)
	if err := s.WriteJSON(base+".json", r); err != nil {
		return err
	}

	if r.Model != nil {
		path := filepath.Join(s.Dir, base+".gob")
		if err := model.SaveModel(r.Model, path); err != nil {
			_ = os.Remove(path)
			s.log().Warn("Model not persisted",
				log.CandidateKey, r.Candidate,
				log.PredictorSetKey, r.PredictorSet,
				"error", err.Error(),
			)
		}
	}

	if r.Predictions != nil && len(r.Predictions.Rows) > 0 {
		if err := s.writePredictions(base+".npy", r.Predictions); err != nil {
			return err
		}
		if err := s.writePlot(r); err != nil {
			return err
		}
	}

	s.results = append(s.results, r)
	s.log().Debug("Result written", log.PathKey, base, log.CandidateKey, r.Candidate)
	return nil
}

// Close writes the comparison table of every result written so far.
func (s *Store) Close() error {
	if len(s.results) == 0 {
		return nil
	}
	return s.WriteTable(MetricsFile, MetricsRecords(s.results))
}

// WriteJSON writes v as indented JSON to name under Dir.
func (s *Store) WriteJSON(name string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", name)
	}
	return s.writeFile(name, append(b, '\n'))
}

// WriteTable writes records, the first of which is the header, as CSV to name under
// Dir. Cells are written verbatim.
func (s *Store) WriteTable(name string, records [][]string) error {
	if len(records) < 2 {
		return errors.NewValueError("Store.WriteTable", "no rows to write for "+name)
	}
	df := dataframe.LoadRecords(records, dataframe.HasHeader(true), dataframe.DetectTypes(false))
	if df.Err != nil {
		return errors.Wrapf(df.Err, "failed to build %s", name)
	}
	path, err := s.prepare(name)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := df.WriteCSV(f); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return f.Close()
}

func (s *Store) writePredictions(name string, p *evaluation.Predictions) error {
	m := mat.NewDense(len(p.Rows), 3, nil)
	for i, row := range p.Rows {
		m.Set(i, 0, float64(row))
		m.Set(i, 1, p.Observed[i])
		m.Set(i, 2, p.Predicted[i])
	}
	path, err := s.prepare(name)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	if err := npyio.Write(f, m); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return f.Close()
}

func (s *Store) writeFile(name string, b []byte) error {
	path, err := s.prepare(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// prepare creates the parent directory of name and returns its full path.
func (s *Store) prepare(name string) (string, error) {
	path := filepath.Join(s.Dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create directory for %s", path)
	}
	return path, nil
}

// MetricsRecords lays results out in long form, one row per partition and metric,
// in result order.
func MetricsRecords(results []*evaluation.Result) [][]string {
	records := [][]string{{"run_id", "outcome", "rank", "candidate", "predictor_set", "partition", "metric", "value", "std_err", "n", "error"}}
	for _, r := range results {
		prefix := []string{r.RunID, r.Outcome, strconv.Itoa(r.Rank), r.Candidate, r.PredictorSet}
		add := func(partition, metric string, value, stdErr float64, n int) {
			row := append(append([]string(nil), prefix...), partition, metric,
				formatFloat(value), formatFloat(stdErr), strconv.Itoa(n), "")
			records = append(records, row)
		}
		if r.Failed() {
			records = append(records, append(append([]string(nil), prefix...), "", "", "NA", "NA", "0", r.Error))
			continue
		}
		for _, m := range sortedKeys(r.Train) {
			add("train", m, r.Train[m], nan, 0)
		}
		for _, m := range sortedEstimateKeys(r.CV) {
			e := r.CV[m]
			add("cv", m, e.Mean, e.StdErr, e.N)
		}
		for _, m := range sortedKeys(r.Test) {
			add("test", m, r.Test[m], nan, 0)
		}
		if r.Fit != nil {
			add("train", "aic", r.Fit.AIC, nan, r.Fit.NObs)
			add("train", "bic", r.Fit.BIC, nan, r.Fit.NObs)
		}
	}
	return records
}
