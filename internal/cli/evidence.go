package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veryx/veryx/internal/command"
)

// EvidenceOptions holds flags for the evidence command.
type EvidenceOptions struct {
	*RootOptions
	Store StoreOptions
}

// NewEvidenceCommand creates the evidence command.
func NewEvidenceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvidenceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "evidence <hash>",
		Short: "Export an evidence pack",
		Long: `Export the evidence pack generated by the event with the given audit hash.

Examples:
  veryx evidence 5d41402abc4b2a76b9719d911017c592ae0e5c3f1a3b6e2d8c7f9a0b1c2d3e4f
  veryx evidence <hash> --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts.RootOptions, &opts.Store, cmd, func(ctx context.Context, sess *session) error {
				f := newFormatter(opts.RootOptions, cmd)
				export, err := sess.svc.ExportEvidence(ctx, args[0])
				if errors.Is(err, command.ErrNotFound) {
					if err := f.Error("E_NOT_FOUND", "evidence pack not found", args[0]); err != nil {
						return err
					}
					return NewExitError(ExitFailure, "evidence pack not found")
				}
				if err != nil {
					return storeError(f, err)
				}
				if f.JSON() {
					return f.Success(export)
				}

				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Evidence %s\n", export.ID)
				fmt.Fprintf(w, "  Portfolio: %s\n", export.PortfolioID)
				fmt.Fprintf(w, "  Generated: %s\n", export.Timestamp)
				fmt.Fprintf(w, "  Status: %s\n", export.Status)
				fmt.Fprintf(w, "  Source event: %s\n", export.EventID)
				fmt.Fprintf(w, "  Source hash: %s\n", export.VersionHash)
				fmt.Fprintf(w, "  Source user: %s\n", export.UserID)
				fmt.Fprintf(w, "  Watermark: %s\n", export.Watermark)
				return nil
			})
		},
	}

	addStoreFlags(cmd, &opts.Store)

	return cmd
}
