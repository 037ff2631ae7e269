package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/flufit/pkg/errors"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FLUFIT_RAW_DATA", filepath.Join(dir, "raw", "symptoms.csv"))
	t.Setenv("FLUFIT_PROCESSED_DATA", filepath.Join(dir, "processed", "processed.gob"))
	t.Setenv("FLUFIT_RESULTS_DIR", filepath.Join(dir, "results"))
	t.Setenv("FLUFIT_LOG_LEVEL", "error")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRunEndToEnd(t *testing.T) {
	dir := setupEnv(t)

	out, err := execute(t, "run", "--simulate", "150", "--candidates", "null,linear", "--workers", "1", "--run-id", "e2e")
	require.NoError(t, err)

	assert.Contains(t, out, "BodyTemp (continuous), ordered by rmse")
	assert.Contains(t, out, "Nausea (categorical), ordered by roc_auc")

	results := filepath.Join(dir, "results", "e2e")
	for _, f := range []string{
		"config.yaml",
		"metrics.csv",
		filepath.Join("explore", "summary.csv"),
		filepath.Join("explore", "crosstab_BodyTemp.csv"),
		filepath.Join("explore", "hist_BodyTemp.png"),
		filepath.Join("BodyTemp", "linear_main.json"),
		filepath.Join("Nausea", "roc_null_all.png"),
	} {
		assert.FileExists(t, filepath.Join(results, f))
	}
	assert.FileExists(t, filepath.Join(dir, "processed", "processed.gob"))

	// evaluate reuses the processed table
	out, err = execute(t, "evaluate", "--candidates", "null", "--run-id", "again")
	require.NoError(t, err)
	assert.Equal(t, 4, strings.Count(out, "null"), "one null row per outcome and predictor set")
	assert.FileExists(t, filepath.Join(dir, "results", "again", "metrics.csv"))
}

func TestSchemaErrorIsFatal(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("FLUFIT_ENFORCE_SHAPE", "true")

	_, err := execute(t, "prepare", "--simulate", "100", "--incomplete", "0")
	require.Error(t, err)
	var schemaErr *errors.SchemaError
	assert.True(t, errors.As(err, &schemaErr))
	_, statErr := os.Stat(filepath.Join(dir, "processed", "processed.gob"))
	assert.True(t, os.IsNotExist(statErr), "nothing is persisted")
}

func TestMissingInputIsFatal(t *testing.T) {
	setupEnv(t)
	_, err := execute(t, "evaluate")
	assert.Error(t, err)

	_, err = execute(t, "prepare", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
