package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resourceScenario = `
name: resource_hours
description: a staff member logs a full week
steps:
  - command: add-resource
    as: eng
    args: {name: Dana, skill: Civil}
  - command: log-timesheet
    args: {resourceId: $eng, hours: 40}
assertions:
  - type: final_state
    entity: member
    ref: $eng
    expect: {totalHours: 40, utilization: 100}
`

const resourceGolden = `{"scenario_name":"resource_hours","trace":[` +
	`{"eventId":"evt-0001","eventType":"RESOURCE_ADDED","payload":{"name":"Dana","skill":"Civil"},"seq":1,"streamId":"stream-0001","timestamp":"2026-01-01T00:00:01.000Z","user":"system","version":1},` +
	`{"eventId":"evt-0002","eventType":"TIMESHEET_LOGGED","payload":{"hours":40},"seq":2,"streamId":"stream-0001","timestamp":"2026-01-01T00:00:02.000Z","user":"system","version":2}]}`

func writeScenario(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestTestCommand_Passes(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "resource_hours.yaml", resourceScenario)

	out, err := executeCommand(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ resource_hours")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommand_GoldenMatch(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "resource_hours.yaml", resourceScenario)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	writeScenario(t, filepath.Join(dir, "golden"), "resource_hours.golden", resourceGolden)

	out, err := executeCommand(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTestCommand_GoldenMismatchAndUpdate(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "resource_hours.yaml", resourceScenario)
	goldenDir := filepath.Join(dir, "golden")
	require.NoError(t, os.MkdirAll(goldenDir, 0o755))
	writeScenario(t, goldenDir, "resource_hours.golden", `{"scenario_name":"resource_hours","trace":[]}`)

	out, err := executeCommand(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")

	out, err = executeCommand(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "(golden updated)")

	data, err := os.ReadFile(filepath.Join(goldenDir, "resource_hours.golden"))
	require.NoError(t, err)
	assert.Equal(t, resourceGolden, string(data))
}

func TestTestCommand_FailingAssertion(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "wrong.yaml", `
name: wrong
description: budget never drops below zero
steps:
  - command: create-portfolio
    as: pf
    args: {name: Depot, budget: 100, score: 1}
  - command: log-expense
    args: {portfolioId: $pf, amount: 500}
assertions:
  - type: final_state
    entity: portfolio
    ref: $pf
    expect: {balance: -400}
`)

	out, err := executeCommand(t, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result TestResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Scenarios, 1)
	assert.NotEmpty(t, result.Scenarios[0].Errors)
}

func TestTestCommand_LoadError(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: broken\n")

	out, err := executeCommand(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommand_Filter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "resource_hours.yaml", resourceScenario)
	writeScenario(t, dir, "broken.yaml", "name: broken\n")

	out, err := executeCommand(t, "test", dir, "--filter", "resource_*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 total")
}

func TestTestCommand_MissingDirectory(t *testing.T) {
	_, err := executeCommand(t, "test", filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommand_NoScenarios(t *testing.T) {
	out, err := executeCommand(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("scenarios", "golden", "evidence.golden"), goldenFilePath(filepath.Join("scenarios", "evidence.yaml")))
}
