package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veryx/veryx/internal/projection"
)

// StateOptions holds flags for the state command.
type StateOptions struct {
	*RootOptions
	Store StoreOptions
}

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the state derived from the event log",
		Long: `Fold the whole event log and print the resulting portfolios, workforce,
assets, evidence packs, ACU balance and ESG totals.

Examples:
  veryx state
  veryx state --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts.RootOptions, &opts.Store, cmd, func(ctx context.Context, sess *session) error {
				f := newFormatter(opts.RootOptions, cmd)
				snap, err := sess.svc.State(ctx)
				if err != nil {
					return storeError(f, err)
				}
				if f.JSON() {
					return f.Success(snap)
				}
				printSnapshot(cmd, snap)
				return nil
			})
		},
	}

	addStoreFlags(cmd, &opts.Store)

	return cmd
}

func printSnapshot(cmd *cobra.Command, s projection.Snapshot) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Portfolios: %d\n", len(s.Portfolios))
	for _, p := range s.Portfolios {
		fmt.Fprintf(w, "  %s  %s  %s  balance %s/%s  CPI %.2f\n", p.ID, p.Name, p.Status, p.Balance, p.InitialBudget, p.CPI)
	}

	fmt.Fprintf(w, "Workforce: %d\n", len(s.Workforce))
	for _, m := range s.Workforce {
		fmt.Fprintf(w, "  %s  %s (%s)  %sh  %d%%\n", m.ID, m.Name, m.Skill, m.TotalHours, m.Utilization)
	}

	fmt.Fprintf(w, "Assets: %d\n", len(s.Assets))
	for _, a := range s.Assets {
		fmt.Fprintf(w, "  %s  %s  %s  work orders %d\n", a.ID, a.Name, a.Status, a.WorkOrderCount)
	}

	fmt.Fprintf(w, "Evidence packs: %d\n", len(s.EvidencePacks))
	for _, e := range s.EvidencePacks {
		fmt.Fprintf(w, "  %s  portfolio %s  source %s\n", shortHash(e.ID), e.PortfolioID, e.SourceEventID)
	}

	fmt.Fprintf(w, "ACU balance: %d\n", s.ACUBalance)
	fmt.Fprintf(w, "ESG totals: scope1 %s, scope2 %s, scope3 %s\n", s.ESGSummary.Scope1, s.ESGSummary.Scope2, s.ESGSummary.Scope3)
}
