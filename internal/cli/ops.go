package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tokensale/internal/ir"
)

// OpOptions holds flags shared by the mutating commands.
type OpOptions struct {
	*RootOptions
	Database string
	From     string
}

// BuyOptions adds the payment flag to OpOptions.
type BuyOptions struct {
	*OpOptions
	Paid string
}

// CreateOptions adds the fee flag to OpOptions.
type CreateOptions struct {
	*OpOptions
	Fee string
}

func addOpFlags(cmd *cobra.Command, opts *OpOptions) {
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.From, "from", "", "calling account: 0x address or label (required)")
	_ = cmd.MarkFlagRequired("from")
}

// operation runs against a live session on behalf of caller.
type operation func(s *session, caller ir.Address) (ir.Commit, error)

// runOp replays the database, runs op, waits for the commit to be written
// and prints its events.
func runOp(opts *OpOptions, cmd *cobra.Command, op operation) error {
	f := newFormatter(opts.RootOptions, cmd)

	caller, err := resolveAccount("--from", opts.From)
	if err != nil {
		return f.Reject(err)
	}
	s, err := openSession(commandContext(cmd), opts.Database)
	if err != nil {
		return f.Reject(err)
	}
	commit, opErr := op(s, caller)
	if err := s.Close(); err != nil {
		return f.Reject(err)
	}
	if opErr != nil {
		return f.Reject(opErr)
	}

	view := newCommitView(commit)
	return f.Emit(view, func(w io.Writer) { writeCommit(w, view) })
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{OpOptions: &OpOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "create <name> <symbol>",
		Short: "Register an asset and open its sale",
		Long: `Register a new asset and open its sale.

The caller pays the creation fee into the fee vault; the whole supply is
minted into escrow. Without --fee the configured creation fee is paid.

Examples:
  tokensale create "Gamma Token" GAM --db ./sale.db --from alice`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(opts.OpOptions, cmd, func(s *session, caller ir.Address) (ir.Commit, error) {
				fee := s.engine.Params().CreationFee
				if opts.Fee != "" {
					var err error
					if fee, err = parseUnits("--fee", opts.Fee); err != nil {
						return ir.Commit{}, err
					}
				}
				return s.engine.Create(caller, args[0], args[1], fee)
			})
		},
	}

	addOpFlags(cmd, opts.OpOptions)
	cmd.Flags().StringVar(&opts.Fee, "fee", "", "fee paid, in units (default: the configured creation fee)")

	return cmd
}

// NewBuyCommand creates the buy command.
func NewBuyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuyOptions{OpOptions: &OpOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "buy <asset> <amount>",
		Short: "Buy units from an open sale",
		Long: `Buy units of an asset from escrow at the current curve price.

<asset> is an address, a registry index or a symbol. The payment must
equal the quoted cost exactly; without --paid the current quote is paid.

Examples:
  tokensale buy GAM 1000 --db ./sale.db --from bob
  tokensale buy 0 1000 --paid 1 --db ./sale.db --from bob`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(opts.OpOptions, cmd, func(s *session, caller ir.Address) (ir.Commit, error) {
				asset, err := resolveAsset(args[0], s.engine.Assets())
				if err != nil {
					return ir.Commit{}, err
				}
				amount, err := parseUnits("amount", args[1])
				if err != nil {
					return ir.Commit{}, err
				}
				var paid ir.Amount
				if opts.Paid == "" {
					if paid, err = s.engine.Quote(asset.Address, amount); err != nil {
						return ir.Commit{}, err
					}
				} else if paid, err = parseUnits("--paid", opts.Paid); err != nil {
					return ir.Commit{}, err
				}
				return s.engine.Buy(caller, asset.Address, amount, paid)
			})
		},
	}

	addOpFlags(cmd, opts.OpOptions)
	cmd.Flags().StringVar(&opts.Paid, "paid", "", "payment, in units (default: the current quote)")

	return cmd
}

// NewDepositCommand creates the deposit command.
func NewDepositCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "deposit <asset>",
		Short: "Release escrow and proceeds of a closed sale",
		Long: `Release an asset's escrow to its creator after the sale has closed,
together with the proceeds the engine still holds. Only the creator may
deposit. A repeated deposit with nothing left to release changes nothing.

Examples:
  tokensale deposit GAM --db ./sale.db --from alice`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(opts, cmd, func(s *session, caller ir.Address) (ir.Commit, error) {
				asset, err := resolveAsset(args[0], s.engine.Assets())
				if err != nil {
					return ir.Commit{}, err
				}
				return s.engine.Deposit(caller, asset.Address)
			})
		},
	}

	addOpFlags(cmd, opts)

	return cmd
}

// NewWithdrawCommand creates the withdraw command.
func NewWithdrawCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "withdraw <amount>",
		Short: "Withdraw from the fee vault",
		Long: `Withdraw collected creation fees. Only the owner may withdraw.

Examples:
  tokensale withdraw 0.01 --db ./sale.db --from owner`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(opts, cmd, func(s *session, caller ir.Address) (ir.Commit, error) {
				amount, err := parseUnits("amount", args[0])
				if err != nil {
					return ir.Commit{}, err
				}
				return s.engine.Withdraw(caller, amount)
			})
		},
	}

	addOpFlags(cmd, opts)

	return cmd
}

// NewTransferCommand creates the transfer command.
func NewTransferCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "transfer <asset> <to> <amount>",
		Short: "Move units between holders",
		Long: `Move units of an asset from the caller to another account.

Examples:
  tokensale transfer GAM carol 250 --db ./sale.db --from bob`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(opts, cmd, func(s *session, caller ir.Address) (ir.Commit, error) {
				asset, err := resolveAsset(args[0], s.engine.Assets())
				if err != nil {
					return ir.Commit{}, err
				}
				to, err := resolveAccount("recipient", args[1])
				if err != nil {
					return ir.Commit{}, err
				}
				amount, err := parseUnits("amount", args[2])
				if err != nil {
					return ir.Commit{}, err
				}
				return s.engine.Transfer(caller, asset.Address, to, amount)
			})
		},
	}

	addOpFlags(cmd, opts)

	return cmd
}

// NewTransferOwnershipCommand creates the transfer-ownership command.
func NewTransferOwnershipCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "transfer-ownership <to>",
		Short: "Hand the fee vault to a new owner",
		Long: `Make another account the owner of the fee vault. Only the current
owner may transfer ownership.

Examples:
  tokensale transfer-ownership dave --db ./sale.db --from owner`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOp(opts, cmd, func(s *session, caller ir.Address) (ir.Commit, error) {
				to, err := resolveAccount("new owner", args[0])
				if err != nil {
					return ir.Commit{}, err
				}
				return s.engine.TransferOwnership(caller, to)
			})
		},
	}

	addOpFlags(cmd, opts)

	return cmd
}
