package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/veryx/veryx/internal/ir"
)

// MarshalTrace renders a trace as canonical JSON. Equal traces always yield
// equal bytes.
func MarshalTrace(scenarioName string, trace []TraceEvent) ([]byte, error) {
	events := make([]any, len(trace))
	for i, ev := range trace {
		events[i] = map[string]any{
			"seq":       ev.Seq,
			"eventId":   ev.EventID,
			"streamId":  ev.StreamID,
			"version":   ev.Version,
			"eventType": ev.EventType,
			"payload":   ev.Payload,
			"user":      ev.User,
			"timestamp": ev.Timestamp,
		}
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"trace":         events,
	})
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(scenarioName, result.Trace)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
