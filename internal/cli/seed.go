package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/veryx/veryx/internal/command"
	"github.com/veryx/veryx/internal/harness"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Store StoreOptions
}

// SeedFile is a scripted list of commands. Steps use the scenario step
// format, including "as" bindings and $references; expect_error is not
// allowed.
type SeedFile struct {
	Steps []harness.Step `yaml:"steps"`
}

// SeedStepResult reports one executed step.
type SeedStepResult struct {
	Command string          `json:"command"`
	As      string          `json:"as,omitempty"`
	Outcome command.Outcome `json:"outcome"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Execute a scripted list of commands",
		Long: `Execute the commands of a YAML seed file against the configured event log.
Execution stops at the first failing command; earlier commands stay recorded.

Example file:

  steps:
    - command: create-portfolio
      as: pf
      args: {name: Grid Upgrade, budget: 1000, score: 7}
    - command: approve-portfolio
      args: {portfolioId: $pf}

Examples:
  veryx seed ./demo.yaml
  veryx seed ./demo.yaml --store file --db ./events.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := loadSeedFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid seed file", err)
			}
			return withSession(opts.RootOptions, &opts.Store, cmd, func(ctx context.Context, sess *session) error {
				return runSeed(ctx, opts, file, sess, cmd)
			})
		},
	}

	addStoreFlags(cmd, &opts.Store)

	return cmd
}

func loadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var file SeedFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(file.Steps) == 0 {
		return nil, fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range file.Steps {
		if step.Command == "" {
			return nil, fmt.Errorf("steps[%d]: command is required", i)
		}
		if step.ExpectError != "" {
			return nil, fmt.Errorf("steps[%d]: expect_error is only valid in test scenarios", i)
		}
	}
	return &file, nil
}

func runSeed(ctx context.Context, opts *SeedOptions, file *SeedFile, sess *session, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	w := cmd.OutOrStdout()

	bindings := harness.Bindings{}
	results := make([]SeedStepResult, 0, len(file.Steps))
	for i, step := range file.Steps {
		args, err := bindings.Resolve(step.Args)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("steps[%d] %s", i, step.Command), err)
		}
		raw, err := json.Marshal(args)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("steps[%d] %s", i, step.Command), err)
		}

		out, err := sess.svc.Execute(ctx, step.Command, raw)
		if err != nil {
			if f.JSON() {
				if encErr := f.Error("E_COMMAND", err.Error(), results); encErr != nil {
					return encErr
				}
			}
			return WrapExitError(ExitFailure, fmt.Sprintf("steps[%d] %s failed", i, step.Command), err)
		}

		if step.As != "" {
			bindings[step.As] = out
		}
		results = append(results, SeedStepResult{Command: step.Command, As: step.As, Outcome: out})
		f.VerboseLog("steps[%d] %s ok", i, step.Command)

		if !f.JSON() {
			fmt.Fprintf(w, "✓ %s", step.Command)
			if out.ID != "" {
				fmt.Fprintf(w, " %s", out.ID)
			}
			if step.As != "" {
				fmt.Fprintf(w, " (as %s)", step.As)
			}
			fmt.Fprintln(w)
		}
	}

	if f.JSON() {
		return f.Success(results)
	}
	fmt.Fprintf(w, "Seeded %d command(s)\n", len(results))
	return nil
}
