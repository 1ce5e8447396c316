package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tokensale/internal/ir"
	"github.com/roach88/tokensale/internal/store"
)

// EventsOptions holds flags for the events command.
type EventsOptions struct {
	*RootOptions
	Database string
	Asset    string
	TxToken  string
	After    int64
	Limit    int
	Txs      bool // summarize operations instead of listing events
}

// EventStats summarizes the listed events.
type EventStats struct {
	Total int            `json:"total"`
	Txs   int            `json:"txs"`
	Kinds map[string]int `json:"kinds"`
}

// EventsResult holds the events command output.
type EventsResult struct {
	Events []EventView `json:"events"`
	Stats  EventStats  `json:"stats"`
}

// TxView is one committed operation in the log.
type TxView struct {
	TxToken  string   `json:"tx_token"`
	FirstSeq int64    `json:"first_seq"`
	LastSeq  int64    `json:"last_seq"`
	Kinds    []string `json:"kinds"`
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EventsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Query the event log",
		Long: `List events from the append-only log in seq order.

Events can be narrowed to one asset or one operation (tx token). With
--txs the log is summarized per operation instead.

Examples:
  tokensale events --db ./sale.db
  tokensale events --db ./sale.db --asset GAM
  tokensale events --db ./sale.db --tx 0192...
  tokensale events --db ./sale.db --txs --after 10 --limit 5`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Txs {
				return runTxs(opts, cmd)
			}
			return runEvents(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Asset, "asset", "", "only events of this asset (address, index or symbol)")
	cmd.Flags().StringVar(&opts.TxToken, "tx", "", "only events of this operation")
	cmd.Flags().Int64Var(&opts.After, "after", 0, "only events with seq greater than this")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of entries (0 = all)")
	cmd.Flags().BoolVar(&opts.Txs, "txs", false, "summarize operations instead of listing events")

	return cmd
}

func runEvents(opts *EventsOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := newFormatter(opts.RootOptions, cmd)

	if opts.Asset != "" && opts.TxToken != "" {
		return f.Reject(NewExitError(ExitCommandError, "--asset and --tx cannot be combined"))
	}

	var events []ir.Event
	err := withStore(opts.Database, func(st *store.Store) error {
		var err error
		switch {
		case opts.TxToken != "":
			events, err = st.ReadEventsByTx(ctx, opts.TxToken)
		case opts.Asset != "":
			var a ir.Asset
			if a, err = findAsset(ctx, st, "events", opts.Asset); err != nil {
				return err
			}
			events, err = st.ReadEventsByAsset(ctx, a.Address)
		default:
			events, err = st.ReadEvents(ctx, opts.After)
		}
		return err
	})
	if err != nil {
		return f.Reject(err)
	}

	result := buildEventsResult(events, opts.After, opts.Limit)
	return f.Emit(result, func(w io.Writer) {
		writeEvents(w, result, opts.Verbose)
	})
}

// buildEventsResult applies the seq and limit filters and counts kinds.
func buildEventsResult(events []ir.Event, after int64, limit int) EventsResult {
	result := EventsResult{
		Events: []EventView{},
		Stats:  EventStats{Kinds: map[string]int{}},
	}
	txs := make(map[string]bool)
	for _, ev := range events {
		if ev.Seq <= after {
			continue
		}
		if limit > 0 && len(result.Events) == limit {
			break
		}
		result.Events = append(result.Events, newEventView(ev))
		result.Stats.Kinds[string(ev.Kind)]++
		txs[ev.TxToken] = true
	}
	result.Stats.Total = len(result.Events)
	result.Stats.Txs = len(txs)
	return result
}

func writeEvents(w io.Writer, result EventsResult, verbose bool) {
	if len(result.Events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}

	fmt.Fprintln(w, "=== Events ===")
	lastTx := ""
	for _, ev := range result.Events {
		if verbose && ev.TxToken != lastTx {
			fmt.Fprintf(w, "tx %s\n", ev.TxToken)
			lastTx = ev.TxToken
		}
		writeEvent(w, ev)
	}
	fmt.Fprintln(w)

	kinds := make([]string, 0, len(result.Stats.Kinds))
	for k := range result.Stats.Kinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", k, result.Stats.Kinds[k]))
	}
	fmt.Fprintf(w, "%d events in %d operations (%s)\n", result.Stats.Total, result.Stats.Txs, strings.Join(parts, ", "))
}

func runTxs(opts *EventsOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := newFormatter(opts.RootOptions, cmd)

	if opts.Asset != "" || opts.TxToken != "" {
		return f.Reject(NewExitError(ExitCommandError, "--txs cannot be combined with --asset or --tx"))
	}

	var views []TxView
	err := withStore(opts.Database, func(st *store.Store) error {
		txs, err := st.ListTxs(ctx, opts.After, opts.Limit)
		if err != nil {
			return err
		}
		views = make([]TxView, 0, len(txs))
		for _, tx := range txs {
			v := TxView{TxToken: tx.TxToken, FirstSeq: tx.FirstSeq, LastSeq: tx.LastSeq, Kinds: []string{}}
			for _, k := range tx.Kinds {
				v.Kinds = append(v.Kinds, string(k))
			}
			views = append(views, v)
		}
		return nil
	})
	if err != nil {
		return f.Reject(err)
	}

	return f.Emit(views, func(w io.Writer) {
		if len(views) == 0 {
			fmt.Fprintln(w, "No operations found.")
			return
		}
		for _, v := range views {
			fmt.Fprintf(w, "[%d-%d] %s %s\n", v.FirstSeq, v.LastSeq, v.TxToken, strings.Join(v.Kinds, ","))
		}
	})
}
