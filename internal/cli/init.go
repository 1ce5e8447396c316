package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tokensale/internal/config"
	"github.com/roach88/tokensale/internal/ir"
	"github.com/roach88/tokensale/internal/pricing"
	"github.com/roach88/tokensale/internal/store"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Database string
	Config   string
}

// InitResult describes a freshly initialized database.
type InitResult struct {
	Database      string `json:"database"`
	Owner         string `json:"owner"`
	CreationFee   string `json:"creation_fee"`
	FundingTarget string `json:"funding_target"`
	TotalSupply   string `json:"total_supply"`
	CostPolicy    string `json:"cost_policy"`
	Release       string `json:"release"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a ledger database",
		Long: `Create a ledger database and record its deployment configuration.

The configuration (YAML or CUE) fixes the owner, creation fee, funding
target, supply, pricing curve and release policy for the lifetime of the
database. Without --config the reference deployment is used.

Examples:
  tokensale init --db ./sale.db
  tokensale init --db ./sale.db --config deploy.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Config, "config", "", "deployment config file (.yaml or .cue)")

	return cmd
}

func runInit(opts *InitOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := newFormatter(opts.RootOptions, cmd)

	cfg := config.Default()
	if opts.Config != "" {
		loaded, err := config.Load(opts.Config)
		if err != nil {
			return f.Reject(WrapExitError(ExitCommandError, "failed to load config", err))
		}
		cfg = loaded
	}
	params, err := cfg.Params()
	if err != nil {
		return f.Reject(WrapExitError(ExitCommandError, "invalid config", err))
	}
	body, err := cfg.Marshal()
	if err != nil {
		return f.Reject(err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return f.Reject(WrapExitError(ExitCommandError, "failed to open database", err))
	}
	defer st.Close()

	if err := st.WriteConfig(ctx, body); err != nil {
		if errors.Is(err, store.ErrConfigExists) {
			return f.Reject(NewExitError(ExitCommandError, fmt.Sprintf("database already initialized: %s", opts.Database)))
		}
		return f.Reject(WrapExitError(ExitCommandError, "failed to write config", err))
	}

	release := params.Release.Name()
	if r, ok := params.Release.(pricing.Reserve); ok {
		release = fmt.Sprintf("%s %s", release, ir.FormatUnits(r.Amount))
	}
	result := InitResult{
		Database:      opts.Database,
		Owner:         params.Owner.String(),
		CreationFee:   ir.FormatUnits(params.CreationFee),
		FundingTarget: ir.FormatUnits(params.FundingTarget),
		TotalSupply:   ir.FormatUnits(params.TotalSupply),
		CostPolicy:    params.Cost.Name(),
		Release:       release,
	}
	return f.Emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "Initialized %s\n", result.Database)
		fmt.Fprintf(w, "  owner:          %s\n", result.Owner)
		fmt.Fprintf(w, "  creation fee:   %s\n", result.CreationFee)
		fmt.Fprintf(w, "  funding target: %s\n", result.FundingTarget)
		fmt.Fprintf(w, "  total supply:   %s\n", result.TotalSupply)
		fmt.Fprintf(w, "  cost policy:    %s\n", result.CostPolicy)
		fmt.Fprintf(w, "  release:        %s\n", result.Release)
	})
}
