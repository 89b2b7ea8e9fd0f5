package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/veryx/veryx/internal/command"
	"github.com/veryx/veryx/internal/event"
	"github.com/veryx/veryx/internal/integrity"
	"github.com/veryx/veryx/internal/logging"
	"github.com/veryx/veryx/internal/projection"
	"github.com/veryx/veryx/internal/store"
	"github.com/veryx/veryx/internal/testutil"
)

// Run executes the scenario against a fresh in-memory log.
//
// Step and assertion failures are reported in the Result; the returned error
// is reserved for failures of the harness itself, such as an unresolvable
// $reference or a log that cannot be opened.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:",
		store.WithClock(testutil.NewDeterministicClock()),
		store.WithIDGenerator(testutil.SequentialIDs("evt")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	svc := command.New(st,
		command.WithStreamIDGenerator(testutil.SequentialIDs("stream")),
		command.WithLogger(logging.Discard()),
	)

	result := NewResult()
	completed := true
	for i, step := range scenario.Steps {
		ok, err := runStep(ctx, svc, i, step, result)
		if err != nil {
			return nil, err
		}
		if !ok {
			completed = false
			break
		}
	}

	events, err := svc.AuditLog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read trace: %w", err)
	}
	for i, e := range events {
		result.Trace = append(result.Trace, newTraceEvent(i+1, e))
	}
	result.State = projection.Run(events)
	result.Integrity = integrity.Verify(events)

	// Assertions about a run that stopped early would only repeat the step
	// failure.
	if completed {
		for _, err := range EvaluateAssertions(result, scenario.Assertions) {
			result.AddError(err.Error())
		}
	}
	return result, nil
}

// runStep executes one step and reports whether the scenario may continue.
func runStep(ctx context.Context, svc *command.Service, i int, step Step, result *Result) (bool, error) {
	args, err := result.Bindings.Resolve(step.Args)
	if err != nil {
		return false, fmt.Errorf("steps[%d] %s: %w", i, step.Command, err)
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return false, fmt.Errorf("steps[%d] %s: encode args: %w", i, step.Command, err)
	}

	out, err := svc.Execute(ctx, step.Command, raw)
	switch {
	case err == nil && step.ExpectError != "":
		result.AddError(fmt.Sprintf("steps[%d] %s: expected %s error, command succeeded", i, step.Command, step.ExpectError))
		return false, nil
	case err != nil && step.ExpectError == "":
		result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", i, step.Command, err))
		return false, nil
	case err != nil && errorKind(err) != step.ExpectError:
		result.AddError(fmt.Sprintf("steps[%d] %s: expected %s error, got %v", i, step.Command, step.ExpectError, err))
		return false, nil
	}

	if step.As != "" {
		result.Bindings[step.As] = out
	}
	return true, nil
}

// Bindings maps step names to the outcomes they produced.
type Bindings map[string]command.Outcome

// Resolve returns args with every $reference replaced by its bound value.
func (b Bindings) Resolve(args map[string]any) (map[string]any, error) {
	v, err := resolve(args, b)
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

func errorKind(err error) string {
	var verr *event.ValidationError
	switch {
	case errors.As(err, &verr):
		return ErrKindValidation
	case errors.Is(err, command.ErrNotApproved):
		return ErrKindNotApproved
	case errors.Is(err, command.ErrNotFound):
		return ErrKindNotFound
	case errors.Is(err, command.ErrCreditsExhausted):
		return ErrKindCreditsExhausted
	default:
		return ""
	}
}

// resolve replaces $name and $name.hash strings with bound step outcomes.
// A literal leading dollar is written $$.
func resolve(v any, bindings Bindings) (any, error) {
	switch v := v.(type) {
	case string:
		return resolveRef(v, bindings)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			r, err := resolve(item, bindings)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			r, err := resolve(item, bindings)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

func resolveRef(s string, bindings Bindings) (string, error) {
	if !strings.HasPrefix(s, "$") {
		return s, nil
	}
	if strings.HasPrefix(s, "$$") {
		return s[1:], nil
	}

	name, field, _ := strings.Cut(s[1:], ".")
	out, ok := bindings[name]
	if !ok {
		return "", fmt.Errorf("unknown reference %q", s)
	}
	switch field {
	case "", "id":
		return out.ID, nil
	case "hash":
		if out.Hash == "" {
			return "", fmt.Errorf("reference %q: step produced no hash", s)
		}
		return out.Hash, nil
	default:
		return "", fmt.Errorf("reference %q: unknown field %q", s, field)
	}
}
