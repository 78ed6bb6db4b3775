package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestCommand_MissingArgs(t *testing.T) {
	_, _, err := executeCommand(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommand_NonExistentDir(t *testing.T) {
	_, _, err := executeCommand(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommand_EmptyDir(t *testing.T) {
	out, _, err := executeCommand(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommand_EmptyDirJSON(t *testing.T) {
	out, _, err := executeCommand(t, "test", "--format", "json", t.TempDir())
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Zero(t, resp.Data.Total)
}

func TestTestCommand_MixedResults(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "passing.yaml", passingScenario)
	writeScenario(t, dir, "failing.yaml", failingScenario)
	writeScenario(t, dir, "notes.txt", "ignored")

	out, _, err := executeCommand(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ passing")
	assert.Contains(t, out, "✗ failing")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")
}

func TestTestCommand_Filter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "passing.yaml", passingScenario)
	writeScenario(t, dir, "failing.yaml", failingScenario)

	out, _, err := executeCommand(t, "test", "--filter", "pass*", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommand_InvalidScenarioFails(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "invalid.yaml", invalidScenario)

	out, _, err := executeCommand(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ invalid")
	assert.Contains(t, out, "load:")
}

func TestTestCommand_GoldenUpdateAndCompare(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "passing.yaml", passingScenario)

	out, _, err := executeCommand(t, "test", "--update", dir)
	require.NoError(t, err, out)

	goldenPath := filepath.Join(dir, "golden", "passing.golden")
	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario":"passing"`)

	_, _, err = executeCommand(t, "test", dir)
	require.NoError(t, err, "trace matches the golden file just written")

	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"scenario":"stale"}`), 0o644))
	out, _, err = executeCommand(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "failing.yaml", failingScenario)

	out, _, err := executeCommand(t, "test", "--format", "json", dir)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Failed)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.NotEmpty(t, resp.Data.Scenarios[0].Errors)
}

func TestTestCommand_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "passing.yaml", passingScenario)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"test", dir})
	err := cmd.ExecuteContext(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ExitInterrupted, GetExitCode(err))
	assert.Contains(t, err.Error(), "stopped after 0 of 1 scenarios")
}
