package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "portfolio_lifecycle.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "portfolio_lifecycle", scenario.Name)
	require.Len(t, scenario.Steps, 5)
	assert.Equal(t, "create-portfolio", scenario.Steps[0].Command)
	assert.Equal(t, "pf", scenario.Steps[0].As)
	assert.Equal(t, 1000, scenario.Steps[0].Args["budget"])
	assert.Equal(t, "$pf", scenario.Steps[1].Args["portfolioId"])
	require.Len(t, scenario.Assertions, 6)
	assert.Equal(t, AssertTraceOrder, scenario.Assertions[0].Type)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownFieldRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.yaml")
	content := `
name: typo
description: misspelled key
steps:
  - command: create-portfolio
assertion:
  - type: integrity
    verdict: VERIFIED
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nsteps: [{command: create-portfolio}]\nassertions: [{type: integrity, verdict: VERIFIED}]",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nsteps: [{command: create-portfolio}]\nassertions: [{type: integrity, verdict: VERIFIED}]",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			yaml:    "name: n\ndescription: d\nassertions: [{type: integrity, verdict: VERIFIED}]",
			wantErr: "steps list is required",
		},
		{
			name:    "no assertions",
			yaml:    "name: n\ndescription: d\nsteps: [{command: create-portfolio}]",
			wantErr: "assertions list is required",
		},
		{
			name:    "unknown command",
			yaml:    "name: n\ndescription: d\nsteps: [{command: delete-portfolio}]\nassertions: [{type: integrity, verdict: VERIFIED}]",
			wantErr: `unknown command "delete-portfolio"`,
		},
		{
			name:    "unknown error kind",
			yaml:    "name: n\ndescription: d\nsteps: [{command: request-ai, expect_error: boom}]\nassertions: [{type: integrity, verdict: VERIFIED}]",
			wantErr: `unknown expect_error "boom"`,
		},
		{
			name:    "duplicate binding",
			yaml:    "name: n\ndescription: d\nsteps: [{command: add-resource, as: x}, {command: add-resource, as: x}]\nassertions: [{type: integrity, verdict: VERIFIED}]",
			wantErr: `"x" is already bound`,
		},
		{
			name:    "unknown assertion type",
			yaml:    "name: n\ndescription: d\nsteps: [{command: request-ai}]\nassertions: [{type: eventually}]",
			wantErr: `unknown assertion type "eventually"`,
		},
		{
			name:    "trace_order without events",
			yaml:    "name: n\ndescription: d\nsteps: [{command: request-ai}]\nassertions: [{type: trace_order}]",
			wantErr: "events list is required",
		},
		{
			name:    "final_state without ref",
			yaml:    "name: n\ndescription: d\nsteps: [{command: request-ai}]\nassertions: [{type: final_state, entity: portfolio, expect: {status: APPROVED}}]",
			wantErr: "ref is required for portfolio",
		},
		{
			name:    "final_state unknown entity",
			yaml:    "name: n\ndescription: d\nsteps: [{command: request-ai}]\nassertions: [{type: final_state, entity: invoice, ref: x, expect: {a: 1}}]",
			wantErr: "entity must be one of",
		},
		{
			name:    "bad verdict",
			yaml:    "name: n\ndescription: d\nsteps: [{command: request-ai}]\nassertions: [{type: integrity, verdict: OK}]",
			wantErr: "verdict must be VERIFIED or COMPROMISED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_SnapshotNeedsNoRef(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: n
description: d
steps: [{command: request-ai}]
assertions:
  - type: final_state
    entity: snapshot
    expect: {acuBalance: 90}
`))
	require.NoError(t, err)
	assert.Equal(t, EntitySnapshot, s.Assertions[0].Entity)
}
