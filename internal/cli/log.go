package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veryx/veryx/internal/event"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Store  StoreOptions
	Stream string
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print the audit log",
		Long: `Print every event in storage order with its stream, version, actor and
audit hash.

Examples:
  veryx log
  veryx log --stream ACU_LEDGER
  veryx log --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts.RootOptions, &opts.Store, cmd, func(ctx context.Context, sess *session) error {
				return runLog(ctx, opts, sess, cmd)
			})
		},
	}

	addStoreFlags(cmd, &opts.Store)
	cmd.Flags().StringVar(&opts.Stream, "stream", "", "only events of this stream")

	return cmd
}

func runLog(ctx context.Context, opts *LogOptions, sess *session, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	events, err := sess.svc.AuditLog(ctx)
	if err != nil {
		return storeError(f, err)
	}
	if opts.Stream != "" {
		filtered := make([]event.Event, 0, len(events))
		for _, e := range events {
			if e.StreamID == opts.Stream {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}

	if f.JSON() {
		return f.Success(events)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Audit Log: %d event(s)\n", len(events))
	for i, e := range events {
		fmt.Fprintf(w, "%4d  %s  %-24s %s v%d  %s  %s\n",
			i+1,
			event.FormatTimestamp(e.Meta.Timestamp),
			e.Type,
			e.StreamID,
			e.Version,
			e.Meta.User,
			shortHash(e.Meta.AuditHash),
		)
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
