package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/config"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/logger"
	"github.com/synaptica-ai/erker2phenopackets/pkg/common/models"
	"github.com/synaptica-ai/erker2phenopackets/pkg/storage"
)

func TestMain(m *testing.M) {
	logger.Discard()
	os.Exit(m.Run())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, "", logLevel(false, false))
	assert.Equal(t, "debug", logLevel(true, false))
	assert.Equal(t, "trace", logLevel(false, true))
}

func TestVerbosityFlags(t *testing.T) {
	level := logger.Log.GetLevel()
	t.Cleanup(func() { logger.Log.SetLevel(level) })
	logger.Log.SetLevel(logrus.InfoLevel)

	_, err := execute(t, "validate", "--debug", "--trace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others")

	logger.Log.SetLevel(logrus.InfoLevel)
	_, err = execute(t, "validate", "--trace")
	require.EqualError(t, err, "a path or --last is required")
	assert.Equal(t, logrus.TraceLevel, logger.Log.GetLevel())

	_, err = execute(t, "validate", "--debug")
	require.Error(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.Log.GetLevel())
}

func TestValidateTarget(t *testing.T) {
	test := filepath.Join(t.TempDir(), "test")
	require.NoError(t, os.MkdirAll(filepath.Join(test, "2024-05-01-0930"), 0o755))
	cfg := &config.Config{PhenopacketsOut: filepath.Join(t.TempDir(), "absent"), TestPhenopacketsOut: test}

	path, err := validateTarget([]string{"one.json"}, false, cfg)
	require.NoError(t, err)
	assert.Equal(t, "one.json", path)

	path, err = validateTarget(nil, true, cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(test, "2024-05-01-0930"), path)

	_, err = validateTarget([]string{"one.json"}, true, cfg)
	assert.EqualError(t, err, "pass either a path or --last")

	_, err = validateTarget(nil, false, cfg)
	assert.EqualError(t, err, "a path or --last is required")
}

func TestValidateCommandRejectsPathWithLast(t *testing.T) {
	_, err := execute(t, "validate", "--last", "one.json")
	assert.EqualError(t, err, "pass either a path or --last")
}

func TestValidateCommandLast(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true is not on PATH")
	}
	test := t.TempDir()
	run := filepath.Join(test, "batch1")
	require.NoError(t, os.MkdirAll(run, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(run, "0.json"), []byte(`{"id":"0"}`), 0o644))

	t.Setenv("PHENOPACKETS_OUT", filepath.Join(t.TempDir(), "absent"))
	t.Setenv("TEST_PHENOPACKETS_OUT", test)
	t.Setenv("VALIDATOR_COMMAND", "true")

	out, err := execute(t, "validate", "--last")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(run, "0.json"))
	assert.Contains(t, out, "All 1 phenopackets are valid.")
}

type fakeRuns map[string]*models.RunReport

func (f fakeRuns) Get(ctx context.Context, runID string) (*models.RunReport, error) {
	if report, ok := f[runID]; ok {
		return report, nil
	}
	return nil, fmt.Errorf("%w: %s", storage.ErrRunNotFound, runID)
}

func (f fakeRuns) Last(ctx context.Context) (*models.RunReport, error) {
	return f.Get(ctx, "run-2")
}

func TestFindRun(t *testing.T) {
	runs := fakeRuns{
		"run-1": {RunID: "run-1", Documents: 3},
		"run-2": {RunID: "run-2", Documents: 7},
	}
	ctx := context.Background()

	report, err := findRun(ctx, runs, []string{"run-1"})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Documents)

	report, err = findRun(ctx, runs, nil)
	require.NoError(t, err)
	assert.Equal(t, "run-2", report.RunID)

	_, err = findRun(ctx, runs, []string{"run-9"})
	assert.ErrorIs(t, err, storage.ErrRunNotFound)
}
