package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s v%d\n", ev.Seq, ev.EventType, ev.StreamID, ev.Version)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against the result and returns
// one error per failed assertion.
func EvaluateAssertions(result *Result, assertions []Assertion) []error {
	var errs []error
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Errorf("assertions[%d]: %w", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(result, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertFinalState:
		return assertFinalState(result, a)
	case AssertIntegrity:
		if string(result.Integrity.Verdict) != a.Verdict {
			return &AssertionError{
				Type:     AssertIntegrity,
				Expected: a.Verdict,
				Actual:   describeIntegrity(result),
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTraceContains checks for an event of the given type whose payload
// contains every expected field.
func assertTraceContains(result *Result, a Assertion) error {
	want, err := normalizeExpected(a.Payload, result.Bindings)
	if err != nil {
		return err
	}
	for _, ev := range result.Trace {
		if ev.EventType != a.Event {
			continue
		}
		got, err := normalize(ev.Payload)
		if err != nil {
			return err
		}
		if want == nil || isSubset(want, got) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("event %s with payload %v", a.Event, a.Payload),
		Actual:   "not found in trace",
		Trace:    result.Trace,
	}
}

// assertTraceOrder checks that the event types occur in the given relative
// order. Other events may appear in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Events) && ev.EventType == a.Events[next] {
			next++
		}
	}
	if next == len(a.Events) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("events in order %v", a.Events),
		Actual:   fmt.Sprintf("no %s after %v", a.Events[next], a.Events[:next]),
		Trace:    trace,
	}
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.EventType == a.Event {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%d %s events", a.Count, a.Event),
		Actual:   fmt.Sprintf("%d %s events", count, a.Event),
		Trace:    trace,
	}
}

// assertFinalState compares the JSON form of one projected entity against
// the expected fields. Fields not named in expect are ignored.
func assertFinalState(result *Result, a Assertion) error {
	ref, err := resolveRef(a.Ref, result.Bindings)
	if err != nil {
		return err
	}

	var (
		entity any
		found  bool
	)
	switch a.Entity {
	case EntityPortfolio:
		entity, found = result.State.Portfolio(ref)
	case EntityMember:
		entity, found = result.State.Member(ref)
	case EntityAsset:
		entity, found = result.State.Asset(ref)
	case EntityEvidence:
		entity, found = result.State.EvidencePackByHash(ref)
	case EntitySnapshot:
		entity, found = result.State, true
	default:
		return fmt.Errorf("unknown entity %q", a.Entity)
	}
	if !found {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s %s", a.Entity, ref),
			Actual:   "not found in state",
		}
	}

	want, err := normalizeExpected(a.Expect, result.Bindings)
	if err != nil {
		return err
	}
	got, err := normalize(entity)
	if err != nil {
		return err
	}
	if !isSubset(want, got) {
		actual, _ := json.Marshal(got)
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("%s %s with %v", a.Entity, ref, a.Expect),
			Actual:   string(actual),
		}
	}
	return nil
}

func describeIntegrity(result *Result) string {
	f := result.Integrity.Finding
	if f == nil {
		return string(result.Integrity.Verdict)
	}
	return fmt.Sprintf("%s (%s at index %d: %s)", result.Integrity.Verdict, f.Reason, f.Index, f.Detail)
}

// normalizeExpected resolves $references in an expectation and brings it to
// the same JSON shape as the actual values.
func normalizeExpected(expect map[string]any, bindings Bindings) (any, error) {
	if expect == nil {
		return nil, nil
	}
	resolved, err := resolve(expect, bindings)
	if err != nil {
		return nil, err
	}
	return normalize(resolved)
}

// normalize round-trips v through JSON so numbers compare as float64 and
// structs compare as maps.
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	return out, nil
}

// isSubset reports whether every field of want is present in got with an
// equal value. Nested objects are compared the same way; arrays must match
// exactly.
func isSubset(want, got any) bool {
	wantMap, ok := want.(map[string]any)
	if !ok {
		return reflect.DeepEqual(want, got)
	}
	gotMap, ok := got.(map[string]any)
	if !ok {
		return false
	}
	for k, w := range wantMap {
		g, exists := gotMap[k]
		if !exists || !isSubset(w, g) {
			return false
		}
	}
	return true
}
