package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudlens/cloudlens/pkg/history"
	"github.com/cloudlens/cloudlens/pkg/metrics"
)

func withWorkingDir(t *testing.T, dir string) {
	t.Helper()
	original, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(original) })
}

func TestResolvePipelinePath_PrefersExplicitFlag(t *testing.T) {
	// Given an explicit --config flag
	configFile = "/explicit/path.yaml"
	t.Cleanup(func() { configFile = "" })

	// Then it is returned without searching
	assert.Equal(t, "/explicit/path.yaml", resolvePipelinePath())
}

func TestResolvePipelinePath_FindsFileInWorkingDirectory(t *testing.T) {
	// Given no explicit flag but a pipeline file in the working directory
	configFile = ""
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cloudlens.yaml"), []byte("stages: []"), 0644))
	withWorkingDir(t, dir)

	// Then it is found by search
	assert.Equal(t, filepath.Join(dir, "cloudlens.yaml"), resolvePipelinePath())
}

func TestResolvePipelinePath_ReturnsEmptyWhenNothingFound(t *testing.T) {
	// Given no explicit flag and no pipeline file anywhere searched
	configFile = ""
	dir := t.TempDir()
	withWorkingDir(t, dir)

	assert.Equal(t, "", resolvePipelinePath())
}

func TestNewValidateCommand_SucceedsForWellFormedPipeline(t *testing.T) {
	// Given a valid pipeline definition
	dir := t.TempDir()
	path := filepath.Join(dir, "cloudlens.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
input:
  type: messages
  messages: ["a"]
stages:
  - pattern: "^error (?<code:Number>\\d+)"
    action: count
`), 0644))

	configFile = path
	debugConfig = false
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	t.Cleanup(func() { configFile = "" })

	cmd := newValidateCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)

	stdout := captureStdout(t, func() {
		require.NoError(t, cmd.RunE(cmd, nil))
	})

	assert.Contains(t, stdout, "pipeline definition is valid")
}

func TestRecordRunHistory_PersistsSuccessfulRun(t *testing.T) {
	// Given a fresh history database
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "history.db")

	m := metrics.NewRunMetrics(3, 2, 1, 0, nil, time.Second)

	// When recording a successful run
	recordRunHistory(dbPath, "cloudlens.yaml", "messages", time.Now(), time.Second, m, nil)

	// Then it is persisted
	store, err := history.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].Success)
	assert.Equal(t, 3, runs[0].RecordsIn)
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	original := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = original

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}
