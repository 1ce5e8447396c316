package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tokensale/internal/harness"
)

const passingScenario = `
name: create_one
description: "Create one asset"
steps:
  - op: create
    from: alice
    args: { name: Alpha, symbol: ALP }
assertions:
  - type: trace_count
    kind: Created
    count: 1
  - type: invariants
`

const failingScenario = `
name: wrong_count
description: "Asserts a count the trace does not have"
steps:
  - op: create
    from: alice
    args: { name: Alpha, symbol: ALP }
assertions:
  - type: trace_count
    kind: Created
    count: 2
`

func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func runTestCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := runTestCommand(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := runTestCommand(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := runTestCommand(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := runTestCommand(t, "json", t.TempDir())
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
}

func TestTestCommandUpdateThenMatch(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"create_one.yaml": passingScenario})

	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Golden file missing")

	out, err = runTestCommand(t, "text", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "create_one (golden updated)")
	_, statErr := os.Stat(filepath.Join(dir, "golden", "create_one.golden"))
	require.NoError(t, statErr)

	out, err = runTestCommand(t, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ create_one")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommandGoldenMismatch(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"create_one.yaml": passingScenario})
	golden := filepath.Join(dir, "golden")
	require.NoError(t, os.MkdirAll(golden, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(golden, "create_one.golden"), []byte(`{"stale":true}`), 0644))

	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ create_one")
	assert.Contains(t, out, "Golden file mismatch")
}

func TestTestCommandFailingAssertionJSON(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"create_one.yaml":  passingScenario,
		"wrong_count.yaml": failingScenario,
	})
	goldenDir := t.TempDir()
	_, err := runTestCommand(t, "text", dir, "--golden", goldenDir, "--update")
	require.Error(t, err, "an assertion failure fails even while updating golden files")

	out, err := runTestCommand(t, "json", dir, "--golden", goldenDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 of 2 scenarios failed")

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Passed)
	assert.Equal(t, 1, resp.Data.Failed)

	byName := map[string]harness.Outcome{}
	for _, o := range resp.Data.Scenarios {
		byName[o.Name] = o
	}
	assert.True(t, byName["create_one"].Pass)
	assert.Equal(t, harness.GoldenMatch, byName["create_one"].Golden)
	assert.False(t, byName["wrong_count"].Pass)
	assert.NotEmpty(t, byName["wrong_count"].Errors)
}

func TestTestCommandFilter(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"create_one.yaml":  passingScenario,
		"wrong_count.yaml": failingScenario,
	})

	out, err := runTestCommand(t, "text", dir, "--filter", "create", "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.NotContains(t, out, "wrong_count")
}
