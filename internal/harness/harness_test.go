package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veryx/veryx/internal/command"
	"github.com/veryx/veryx/internal/integrity"
	"github.com/veryx/veryx/internal/ir"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestRun_Scenarios(t *testing.T) {
	for _, name := range []string{"portfolio_lifecycle", "ai_credits", "evidence_requires_approval"} {
		t.Run(name, func(t *testing.T) {
			result, err := Run(loadTestScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Equal(t, integrity.Verified, result.Integrity.Verdict)
		})
	}
}

func TestRun_BindingsAndTrace(t *testing.T) {
	result, err := Run(loadTestScenario(t, "portfolio_lifecycle"))
	require.NoError(t, err)

	assert.Equal(t, "stream-0001", result.Bindings["pf"].ID)
	assert.Equal(t, "stream-0002", result.Bindings["eng"].ID)

	require.Len(t, result.Trace, 5)
	first := result.Trace[0]
	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, "evt-0001", first.EventID)
	assert.Equal(t, "alice", first.User)
	assert.Equal(t, "2026-01-01T00:00:01.000Z", first.Timestamp)
	assert.Equal(t, "system", result.Trace[1].User)

	pf, ok := result.State.Portfolio("stream-0001")
	require.True(t, ok)
	assert.Equal(t, ir.DecimalOf(750), pf.Balance)
}

func TestRun_Deterministic(t *testing.T) {
	s := loadTestScenario(t, "ai_credits")

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := MarshalTrace(s.Name, first.Trace)
	require.NoError(t, err)
	b, err := MarshalTrace(s.Name, second.Trace)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_UnexpectedStepErrorStops(t *testing.T) {
	s := &Scenario{
		Name:        "unexpected",
		Description: "an expense without a stream",
		Steps: []Step{
			{Command: "log-expense", Args: map[string]any{"amount": 5}},
			{Command: "add-resource", Args: map[string]any{"name": "Dana", "skill": "Civil"}},
		},
		Assertions: []Assertion{{Type: AssertIntegrity, Verdict: "VERIFIED"}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "steps[0] log-expense: unexpected error")
	assert.Empty(t, result.Trace)
}

func TestRun_ExpectedErrorMustOccur(t *testing.T) {
	s := &Scenario{
		Name:        "no failure",
		Description: "a valid resource",
		Steps: []Step{
			{Command: "add-resource", Args: map[string]any{"name": "Dana", "skill": "Civil"}, ExpectError: ErrKindValidation},
		},
		Assertions: []Assertion{{Type: AssertIntegrity, Verdict: "VERIFIED"}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected validation error, command succeeded")
}

func TestRun_WrongErrorKind(t *testing.T) {
	s := &Scenario{
		Name:        "wrong kind",
		Description: "expense without a stream is a validation error",
		Steps: []Step{
			{Command: "log-expense", Args: map[string]any{"amount": 5}, ExpectError: ErrKindNotFound},
		},
		Assertions: []Assertion{{Type: AssertIntegrity, Verdict: "VERIFIED"}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected not_found error")
}

func TestRun_CreditsExhausted(t *testing.T) {
	steps := make([]Step, 0, 11)
	for i := 0; i < 10; i++ {
		steps = append(steps, Step{Command: "request-ai"})
	}
	steps = append(steps, Step{Command: "request-ai", ExpectError: ErrKindCreditsExhausted})

	result, err := Run(&Scenario{
		Name:        "credits",
		Description: "the eleventh request is refused",
		Steps:       steps,
		Assertions: []Assertion{
			{Type: AssertTraceCount, Event: "ACU_DEDUCTED", Count: 10},
			{Type: AssertFinalState, Entity: EntitySnapshot, Expect: map[string]any{"acuBalance": 0}},
		},
	})
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_UnknownReference(t *testing.T) {
	_, err := Run(&Scenario{
		Name:        "dangling",
		Description: "reference to nothing",
		Steps: []Step{
			{Command: "approve-portfolio", Args: map[string]any{"portfolioId": "$missing"}},
		},
		Assertions: []Assertion{{Type: AssertIntegrity, Verdict: "VERIFIED"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown reference "$missing"`)
}

func TestResolveRef(t *testing.T) {
	bindings := map[string]command.Outcome{
		"pf": {ID: "stream-0001"},
		"ev": {ID: "evt-0004", Hash: "abc"},
	}

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "plain", false},
		{"$pf", "stream-0001", false},
		{"$pf.id", "stream-0001", false},
		{"$ev.hash", "abc", false},
		{"$$literal", "$literal", false},
		{"$pf.hash", "", true},
		{"$ev.name", "", true},
		{"$nobody", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := resolveRef(tt.in, bindings)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
