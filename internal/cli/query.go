package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tokensale/internal/engine"
	"github.com/roach88/tokensale/internal/ir"
	"github.com/roach88/tokensale/internal/store"
)

// QueryOptions holds flags shared by the read-only commands.
type QueryOptions struct {
	*RootOptions
	Database string
}

func addQueryFlags(cmd *cobra.Command, opts *QueryOptions) {
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
}

// SalesOptions adds the open filter to QueryOptions.
type SalesOptions struct {
	*QueryOptions
	Open bool
}

// SaleDetail is the result of the sale command.
type SaleDetail struct {
	SaleView
	Price   string       `json:"price"` // Unit price at the current sold count
	Escrow  string       `json:"escrow"`
	Holders []HolderView `json:"holders"`
}

// CostResult is the result of the cost command.
type CostResult struct {
	Sold      string `json:"sold"`
	UnitPrice string `json:"unit_price"`
	Policy    string `json:"policy"`
	Asset     string `json:"asset,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Cost      string `json:"cost,omitempty"`
	Open      *bool  `json:"open,omitempty"`
}

// BalanceResult is the result of the balance command.
type BalanceResult struct {
	Asset   string       `json:"asset"`
	Symbol  string       `json:"symbol"`
	Holders []HolderView `json:"holders"`
}

// VaultResult is the result of the vault command.
type VaultResult struct {
	Balance string `json:"balance"`
	Owner   string `json:"owner"`
}

// withStore opens the database read-only in spirit: fn must not write.
func withStore(path string, fn func(st *store.Store) error) error {
	st, err := openStore(path)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

// findAsset resolves ref against the stored registry. An unknown address
// is reported as NOT_FOUND like the engine would.
func findAsset(ctx context.Context, st *store.Store, op, ref string) (ir.Asset, error) {
	assets, err := st.ReadAssets(ctx)
	if err != nil {
		return ir.Asset{}, err
	}
	a, err := resolveAsset(ref, assets)
	if err != nil {
		return ir.Asset{}, err
	}
	if a.Symbol != "" {
		return a, nil
	}
	stored, err := st.ReadAsset(ctx, a.Address)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Asset{}, notFound(op, a.Address)
	}
	return stored, err
}

func notFound(op string, asset ir.Address) error {
	return &engine.Error{Code: engine.ErrCodeNotFound, Op: op, Asset: asset, Message: "no such asset"}
}

func holderViews(balances []ir.Balance) []HolderView {
	out := make([]HolderView, 0, len(balances))
	for _, b := range balances {
		out = append(out, HolderView{
			Holder: b.Holder.String(),
			Amount: ir.FormatUnits(b.Amount),
			Escrow: b.Holder == ir.EscrowAddress,
		})
	}
	return out
}

// NewSalesCommand creates the sales command.
func NewSalesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SalesOptions{QueryOptions: &QueryOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "sales",
		Short: "List sales in registry order",
		Long: `List every sale in registry order with its funding progress.

Examples:
  tokensale sales --db ./sale.db
  tokensale sales --db ./sale.db --open --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSales(opts, cmd)
		},
	}

	addQueryFlags(cmd, opts.QueryOptions)
	cmd.Flags().BoolVar(&opts.Open, "open", false, "only list open sales")

	return cmd
}

func runSales(opts *SalesOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := newFormatter(opts.RootOptions, cmd)

	var views []SaleView
	err := withStore(opts.Database, func(st *store.Store) error {
		assets, err := st.ReadAssets(ctx)
		if err != nil {
			return err
		}
		sales, err := st.ReadSales(ctx)
		if err != nil {
			return err
		}
		byAddr := make(map[ir.Address]ir.Sale, len(sales))
		for _, s := range sales {
			byAddr[s.Asset] = s
		}
		views = make([]SaleView, 0, len(assets))
		for _, a := range assets {
			s := byAddr[a.Address]
			if opts.Open && !s.Open {
				continue
			}
			views = append(views, newSaleView(a, s))
		}
		return nil
	})
	if err != nil {
		return f.Reject(err)
	}

	return f.Emit(views, func(w io.Writer) {
		if len(views) == 0 {
			fmt.Fprintln(w, "No sales found.")
			return
		}
		fmt.Fprintf(w, "%-5s %-10s %-14s %-12s %-10s %-10s %s\n", "IDX", "SYMBOL", "ASSET", "SOLD", "RAISED", "HELD", "STATUS")
		for _, v := range views {
			fmt.Fprintf(w, "%-5d %-10s %-14s %-12s %-10s %-10s %s\n",
				v.Index, v.Symbol, shortHex(v.Asset), v.Sold, v.Raised, v.Held, saleStatus(v.Open))
		}
	})
}

func saleStatus(open bool) string {
	if open {
		return "open"
	}
	return "closed"
}

// NewSaleCommand creates the sale command.
func NewSaleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sale <asset>",
		Short: "Show one sale and its holders",
		Long: `Show a sale's counters, current unit price, escrow and holders.

<asset> is an address, a registry index or a symbol.

Examples:
  tokensale sale GAM --db ./sale.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSale(opts, args[0], cmd)
		},
	}

	addQueryFlags(cmd, opts)

	return cmd
}

func runSale(opts *QueryOptions, ref string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := newFormatter(opts.RootOptions, cmd)

	var detail SaleDetail
	err := withStore(opts.Database, func(st *store.Store) error {
		_, params, err := loadConfig(ctx, st)
		if err != nil {
			return err
		}
		a, err := findAsset(ctx, st, "sale", ref)
		if err != nil {
			return err
		}
		sale, err := st.ReadSale(ctx, a.Address)
		if err != nil {
			return err
		}
		price, err := params.Curve.UnitPrice(sale.Sold)
		if err != nil {
			return err
		}
		balances, err := st.ReadBalances(ctx, a.Address)
		if err != nil {
			return err
		}
		escrow, err := st.ReadBalance(ctx, a.Address, ir.EscrowAddress)
		if err != nil {
			return err
		}
		detail = SaleDetail{
			SaleView: newSaleView(a, sale),
			Price:    ir.FormatUnits(price),
			Escrow:   ir.FormatUnits(escrow),
			Holders:  holderViews(balances),
		}
		return nil
	})
	if err != nil {
		return f.Reject(err)
	}

	return f.Emit(detail, func(w io.Writer) {
		fmt.Fprintf(w, "%s (%s) #%d %s\n", detail.Name, detail.Symbol, detail.Index, saleStatus(detail.Open))
		fmt.Fprintf(w, "  asset:   %s\n", detail.Asset)
		fmt.Fprintf(w, "  creator: %s\n", detail.Creator)
		fmt.Fprintf(w, "  supply:  %s\n", detail.TotalSupply)
		fmt.Fprintf(w, "  sold:    %s\n", detail.Sold)
		fmt.Fprintf(w, "  raised:  %s\n", detail.Raised)
		fmt.Fprintf(w, "  held:    %s\n", detail.Held)
		fmt.Fprintf(w, "  price:   %s\n", detail.Price)
		fmt.Fprintf(w, "  escrow:  %s\n", detail.Escrow)
		writeHolders(w, detail.Holders)
	})
}

func writeHolders(w io.Writer, holders []HolderView) {
	if len(holders) == 0 {
		fmt.Fprintln(w, "  (no holders)")
		return
	}
	fmt.Fprintln(w, "  holders:")
	for _, h := range holders {
		label := h.Holder
		if h.Escrow {
			label += " (escrow)"
		}
		fmt.Fprintf(w, "    %s %s\n", label, h.Amount)
	}
}

// CostOptions holds flags for the cost command.
type CostOptions struct {
	*QueryOptions
	Asset  string
	Amount string
}

// NewCostCommand creates the cost command.
func NewCostCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CostOptions{QueryOptions: &QueryOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "cost [sold]",
		Short: "Price the curve or quote a purchase",
		Long: `Show the unit price after a number of units sold, or quote what a buy
of --amount units of --asset would cost right now under the configured
cost policy. A quote does not check whether the sale is still open.

Examples:
  tokensale cost 1000 --db ./sale.db
  tokensale cost --asset GAM --amount 500 --db ./sale.db`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sold := ""
			if len(args) == 1 {
				sold = args[0]
			}
			return runCost(opts, sold, cmd)
		},
	}

	addQueryFlags(cmd, opts.QueryOptions)
	cmd.Flags().StringVar(&opts.Asset, "asset", "", "asset to quote (address, index or symbol)")
	cmd.Flags().StringVar(&opts.Amount, "amount", "", "units to quote (requires --asset)")

	return cmd
}

func runCost(opts *CostOptions, soldArg string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := newFormatter(opts.RootOptions, cmd)

	quoting := opts.Asset != "" || opts.Amount != ""
	switch {
	case quoting && soldArg != "":
		return f.Reject(NewExitError(ExitCommandError, "give either [sold] or --asset/--amount, not both"))
	case quoting && (opts.Asset == "" || opts.Amount == ""):
		return f.Reject(NewExitError(ExitCommandError, "--asset and --amount must be given together"))
	case !quoting && soldArg == "":
		return f.Reject(NewExitError(ExitCommandError, "give [sold] or --asset/--amount"))
	}

	var result CostResult
	err := withStore(opts.Database, func(st *store.Store) error {
		_, params, err := loadConfig(ctx, st)
		if err != nil {
			return err
		}
		eng, err := engine.Replay(ctx, params, st)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to replay event log (run tokensale verify)", err)
		}
		result.Policy = params.Cost.Name()

		if !quoting {
			sold, err := parseUnits("sold", soldArg)
			if err != nil {
				return err
			}
			price, err := eng.GetCost(sold)
			if err != nil {
				return err
			}
			result.Sold = ir.FormatUnits(sold)
			result.UnitPrice = ir.FormatUnits(price)
			return nil
		}

		a, err := resolveAsset(opts.Asset, eng.Assets())
		if err != nil {
			return err
		}
		amount, err := parseUnits("--amount", opts.Amount)
		if err != nil {
			return err
		}
		sale, err := eng.GetSale(a.Address)
		if err != nil {
			return err
		}
		cost, err := eng.Quote(a.Address, amount)
		if err != nil {
			return err
		}
		price, err := eng.GetCost(sale.Sold)
		if err != nil {
			return err
		}
		open := sale.Open
		result.Sold = ir.FormatUnits(sale.Sold)
		result.UnitPrice = ir.FormatUnits(price)
		result.Asset = a.Address.String()
		result.Amount = ir.FormatUnits(amount)
		result.Cost = ir.FormatUnits(cost)
		result.Open = &open
		return nil
	})
	if err != nil {
		return f.Reject(err)
	}

	return f.Emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "unit price after %s sold: %s\n", result.Sold, result.UnitPrice)
		if result.Cost != "" {
			fmt.Fprintf(w, "cost of %s units (%s): %s\n", result.Amount, result.Policy, result.Cost)
			if result.Open != nil && !*result.Open {
				fmt.Fprintln(w, "note: sale is closed")
			}
		}
	})
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "balance <asset> [holder]",
		Short: "Show balances of an asset",
		Long: `Show one holder's balance of an asset, or every non-zero balance when
no holder is given. Holders are 0x addresses or account labels.

Examples:
  tokensale balance GAM bob --db ./sale.db
  tokensale balance GAM --db ./sale.db`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBalance(opts, args, cmd)
		},
	}

	addQueryFlags(cmd, opts)

	return cmd
}

func runBalance(opts *QueryOptions, args []string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := newFormatter(opts.RootOptions, cmd)

	var result BalanceResult
	err := withStore(opts.Database, func(st *store.Store) error {
		a, err := findAsset(ctx, st, "balance", args[0])
		if err != nil {
			return err
		}
		result.Asset = a.Address.String()
		result.Symbol = a.Symbol

		if len(args) == 1 {
			balances, err := st.ReadBalances(ctx, a.Address)
			if err != nil {
				return err
			}
			result.Holders = holderViews(balances)
			return nil
		}

		holder, err := resolveAccount("holder", args[1])
		if err != nil {
			return err
		}
		amount, err := st.ReadBalance(ctx, a.Address, holder)
		if err != nil {
			return err
		}
		result.Holders = holderViews([]ir.Balance{{Asset: a.Address, Holder: holder, Amount: amount}})
		return nil
	})
	if err != nil {
		return f.Reject(err)
	}

	return f.Emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s\n", result.Symbol, result.Asset)
		writeHolders(w, result.Holders)
	})
}

// NewVaultCommand creates the vault command.
func NewVaultCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Show the fee vault and its owner",
		Long: `Show the collected creation fees and the account allowed to withdraw
them.

Examples:
  tokensale vault --db ./sale.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVault(opts, cmd)
		},
	}

	addQueryFlags(cmd, opts)

	return cmd
}

func runVault(opts *QueryOptions, cmd *cobra.Command) error {
	ctx := commandContext(cmd)
	f := newFormatter(opts.RootOptions, cmd)

	var result VaultResult
	err := withStore(opts.Database, func(st *store.Store) error {
		_, params, err := loadConfig(ctx, st)
		if err != nil {
			return err
		}
		vault, ok, err := st.ReadVault(ctx)
		if err != nil {
			return err
		}
		if !ok {
			// Nothing has touched the vault yet.
			vault = ir.Vault{Balance: ir.ZeroAmount(), Owner: params.Owner}
		}
		result = VaultResult{Balance: ir.FormatUnits(vault.Balance), Owner: vault.Owner.String()}
		return nil
	})
	if err != nil {
		return f.Reject(err)
	}

	return f.Emit(result, func(w io.Writer) {
		fmt.Fprintf(w, "balance: %s\n", result.Balance)
		fmt.Fprintf(w, "owner:   %s\n", result.Owner)
	})
}
