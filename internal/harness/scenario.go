package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/veryx/veryx/internal/command"
	"github.com/veryx/veryx/internal/integrity"
)

// Scenario is one scripted run.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Steps are executed in order against one log.
	Steps []Step `yaml:"steps"`

	// Assertions are evaluated after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Step executes one command.
type Step struct {
	// Command is a command name such as "create-portfolio".
	Command string `yaml:"command"`

	// Args are the command's JSON request fields.
	Args map[string]any `yaml:"args,omitempty"`

	// As binds the step's outcome for later $references.
	As string `yaml:"as,omitempty"`

	// ExpectError names the failure the step must end with; empty means it
	// must succeed. See the Err* constants.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Event is an event type (trace_contains, trace_count).
	Event string `yaml:"event,omitempty"`

	// Payload is a subset of the expected payload (trace_contains).
	Payload map[string]any `yaml:"payload,omitempty"`

	// Events is the expected relative order of event types (trace_order).
	Events []string `yaml:"events,omitempty"`

	// Count is the exact number of matching events (trace_count).
	Count int `yaml:"count,omitempty"`

	// Entity selects what final_state inspects: portfolio, member, asset,
	// evidence or snapshot.
	Entity string `yaml:"entity,omitempty"`

	// Ref identifies the entity, usually a $reference.
	Ref string `yaml:"ref,omitempty"`

	// Expect is a subset of the entity's JSON form (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Verdict is the expected integrity verdict (integrity).
	Verdict string `yaml:"verdict,omitempty"`
}

// Assertion types.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertIntegrity     = "integrity"
)

// Final state entities.
const (
	EntityPortfolio = "portfolio"
	EntityMember    = "member"
	EntityAsset     = "asset"
	EntityEvidence  = "evidence"
	EntitySnapshot  = "snapshot"
)

// Expected step failures.
const (
	ErrKindValidation       = "validation"
	ErrKindNotApproved      = "not_approved"
	ErrKindNotFound         = "not_found"
	ErrKindCreditsExhausted = "credits_exhausted"
)

var (
	errorKinds = []string{ErrKindValidation, ErrKindNotApproved, ErrKindNotFound, ErrKindCreditsExhausted}
	entities   = []string{EntityPortfolio, EntityMember, EntityAsset, EntityEvidence, EntitySnapshot}
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so a typo such as "assertion:" fails loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	bound := map[string]bool{}
	for i, step := range s.Steps {
		if step.Command == "" {
			return fmt.Errorf("steps[%d]: command is required", i)
		}
		if !slices.Contains(command.Names, step.Command) {
			return fmt.Errorf("steps[%d]: unknown command %q", i, step.Command)
		}
		if step.ExpectError != "" && !slices.Contains(errorKinds, step.ExpectError) {
			return fmt.Errorf("steps[%d]: unknown expect_error %q (want one of %v)", i, step.ExpectError, errorKinds)
		}
		if step.As != "" {
			if bound[step.As] {
				return fmt.Errorf("steps[%d]: %q is already bound", i, step.As)
			}
			bound[step.As] = true
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if !slices.Contains(entities, a.Entity) {
			return fmt.Errorf("assertions[%d]: entity must be one of %v", index, entities)
		}
		if a.Entity != EntitySnapshot && a.Ref == "" {
			return fmt.Errorf("assertions[%d]: ref is required for %s", index, a.Entity)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertIntegrity:
		if a.Verdict != string(integrity.Verified) && a.Verdict != string(integrity.Compromised) {
			return fmt.Errorf("assertions[%d]: verdict must be VERIFIED or COMPROMISED", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
