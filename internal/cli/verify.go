package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tokensale/internal/harness"
	"github.com/roach88/tokensale/internal/store"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Audit the event log and projections",
		Long: `Audit a ledger database.

Checks that the event log has no seq gaps, that every event id matches
its content and that each operation's events are contiguous. The log is
then replayed, the ledger invariants are checked, and every projection
table is compared with the replayed state.

Exit codes:
  0 - Database is consistent
  1 - Problems were found
  2 - Command error (database not found, etc.)

Examples:
  tokensale verify --db ./sale.db
  tokensale verify --db ./sale.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}

	addQueryFlags(cmd, opts)

	return cmd
}

func runVerify(opts *QueryOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := newFormatter(opts.RootOptions, cmd)

	var report *harness.VerifyReport
	err := withStore(opts.Database, func(st *store.Store) error {
		_, params, err := loadConfig(ctx, st)
		if err != nil {
			return err
		}
		report, err = harness.Verify(ctx, params, st)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read database", err)
		}
		return nil
	})
	if err != nil {
		return f.Reject(err)
	}

	if !report.OK() {
		if f.Format == "json" {
			if err := f.Error(CodeVerify, "verification failed", report); err != nil {
				return err
			}
		} else {
			w := f.Writer
			fmt.Fprintf(w, "✗ %s: %d problems\n", opts.Database, len(report.Problems))
			for _, p := range report.Problems {
				fmt.Fprintf(w, "  %s\n", p)
			}
		}
		return NewExitError(ExitFailure, "verification failed")
	}

	return f.Emit(report, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %s: %d events, %d operations, %d sales, seq %d\n",
			opts.Database, report.Log.Events, report.Log.Txs, report.Sales, report.Seq)
	})
}
