package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veryx/veryx/internal/integrity"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Store StoreOptions
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the integrity of the event log",
		Long: `Recompute every audit hash and walk the hash chain. Reports the first
record that was altered, removed, inserted or reordered.

Exit codes:
  0 - Log verified
  1 - Log compromised
  2 - Command error (store unreachable, etc.)

Examples:
  veryx verify
  veryx verify --store file --db ./events.jsonl --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts.RootOptions, &opts.Store, cmd, func(ctx context.Context, sess *session) error {
				return runVerify(ctx, opts, sess, cmd)
			})
		},
	}

	addStoreFlags(cmd, &opts.Store)

	return cmd
}

func runVerify(ctx context.Context, opts *VerifyOptions, sess *session, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	report, err := sess.svc.Integrity(ctx)
	if err != nil {
		return storeError(f, err)
	}

	if report.Verdict == integrity.Verified {
		if f.JSON() {
			return f.Success(report)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %d event(s) checked\n", report.Verdict, report.Checked)
		return nil
	}

	if !f.JSON() {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "✗ %s\n", report.Verdict)
		if fd := report.Finding; fd != nil {
			fmt.Fprintf(w, "  %s at index %d (event %s, stream %s v%d)\n", fd.Reason, fd.Index, fd.EventID, fd.StreamID, fd.Version)
			if fd.Detail != "" {
				fmt.Fprintf(w, "  %s\n", fd.Detail)
			}
		}
	}
	return f.Fail("E_INTEGRITY", "event log integrity compromised", report)
}
