package engine

import (
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/tokensale/internal/ir"
	"github.com/roach88/tokensale/internal/ledger"
)

// Operation names, as recorded in commits and logs.
const (
	OpCreate            = "create"
	OpBuy               = "buy"
	OpDeposit           = "deposit"
	OpWithdraw          = "withdraw"
	OpTransferOwnership = "transfer-ownership"
	OpTransfer          = "transfer"
)

// draft is an event applied to the transaction but not yet stamped.
type draft struct {
	kind    ir.EventKind
	asset   ir.Address
	payload ir.IRObject
}

// batch collects the events of one operation.
type batch struct {
	op     string
	tx     *ledger.Tx
	drafts []draft
}

// emit applies an event to the transaction and records it.
func (b *batch) emit(kind ir.EventKind, asset ir.Address, payload ir.IRObject) error {
	if err := apply(b.tx, kind, asset, payload); err != nil {
		return wrapError(b.op, asset, err)
	}
	b.drafts = append(b.drafts, draft{kind: kind, asset: asset, payload: payload})
	return nil
}

// execute runs fn as one all-or-nothing operation under the write lock.
// On success the staged events are stamped with consecutive seqs, the
// ledger transaction commits, and the Commit is queued for persistence.
func (e *Engine) execute(op string, asset ir.Address, fn func(b *batch) error) (ir.Commit, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.queue.Closed() {
		return ir.Commit{}, ErrStopped
	}

	b := &batch{op: op, tx: e.state.Begin()}
	if err := fn(b); err != nil {
		slog.Debug("operation rejected", append(opAttrs(op, asset), "code", CodeOf(err), "error", err)...)
		return ir.Commit{}, err
	}
	if len(b.drafts) == 0 {
		slog.Debug("operation changed nothing", opAttrs(op, asset)...)
		return ir.Commit{Op: op}, nil
	}
	if asset.IsZero() {
		// create learns its address while running
		asset = b.drafts[0].asset
	}

	token := e.tokens.Generate()
	events := make([]ir.Event, 0, len(b.drafts))
	for _, d := range b.drafts {
		// apply already accepted every draft, so NewEvent cannot fail on
		// kind or payload and seqs stay gap free.
		ev, err := ir.NewEvent(d.kind, e.clock.Next(), token, d.asset, d.payload)
		if err != nil {
			return ir.Commit{}, wrapError(op, d.asset, err)
		}
		events = append(events, ev)
	}

	ch := b.tx.Commit()
	c := ir.Commit{
		TxToken:  token,
		Op:       op,
		Events:   events,
		Assets:   ch.Assets,
		Sales:    ch.Sales,
		Balances: ch.Balances,
		Vault:    ch.Vault,
	}
	e.queue.Enqueue(c)

	slog.Info("operation committed", append(opAttrs(op, asset), "tx_token", token, "seq", c.LastSeq(), "events", len(events))...)
	return c, nil
}

// opAttrs leaves asset out for operations that have none.
func opAttrs(op string, asset ir.Address) []any {
	if asset.IsZero() {
		return []any{"op", op}
	}
	return []any{"op", op, "asset", asset}
}

// Create registers a new asset and its open sale. The entire supply is
// escrowed by the engine and paidFee goes to the fee vault. paidFee must
// equal the configured creation fee exactly.
func (e *Engine) Create(caller ir.Address, name, symbol string, paidFee ir.Amount) (ir.Commit, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	symbol = norm.NFC.String(strings.TrimSpace(symbol))

	return e.execute(OpCreate, ir.ZeroAddress, func(b *batch) error {
		switch {
		case caller.IsZero() || caller == ir.EscrowAddress:
			return newError(ErrCodeInvalidInput, OpCreate, ir.ZeroAddress, "caller %s cannot create", caller)
		case name == "":
			return newError(ErrCodeInvalidInput, OpCreate, ir.ZeroAddress, "name is empty")
		case symbol == "":
			return newError(ErrCodeInvalidInput, OpCreate, ir.ZeroAddress, "symbol is empty")
		case !paidFee.Equal(e.params.CreationFee):
			return newError(ErrCodeInsufficientFee, OpCreate, ir.ZeroAddress,
				"paid %s, fee is %s", ir.FormatUnits(paidFee), ir.FormatUnits(e.params.CreationFee))
		}

		index := int64(b.tx.SaleCount())
		addr, err := ir.AssetAddress(caller, index, name, symbol)
		if err != nil {
			return wrapError(OpCreate, ir.ZeroAddress, err)
		}
		return b.emit(ir.EventCreated, addr,
			ir.CreatedPayload(caller, name, symbol, e.params.TotalSupply, index, paidFee))
	})
}

// Buy sells amount units of asset to caller for exactly paid, the cost
// computed by the configured policy at the sale's current counters. The
// sale closes in the same operation once the funding target (or the
// optional sale limit) is reached.
func (e *Engine) Buy(caller ir.Address, asset ir.Address, amount, paid ir.Amount) (ir.Commit, error) {
	return e.execute(OpBuy, asset, func(b *batch) error {
		sale, ok := b.tx.Sale(asset)
		if !ok {
			return newError(ErrCodeNotFound, OpBuy, asset, "no sale for asset")
		}
		if !sale.Open {
			return newError(ErrCodeSaleClosed, OpBuy, asset, "sale is closed")
		}
		if caller.IsZero() || caller == ir.EscrowAddress {
			return newError(ErrCodeInvalidInput, OpBuy, asset, "caller %s cannot buy", caller)
		}
		if err := e.checkPurchaseBounds(asset, amount); err != nil {
			return err
		}
		if escrow := b.tx.Balance(asset, ir.EscrowAddress); amount.GT(escrow) {
			return newError(ErrCodeInsufficientSupply, OpBuy, asset,
				"requested %s units, %s remain", ir.FormatUnits(amount), ir.FormatUnits(escrow))
		}

		cost, err := e.params.Cost.Cost(e.params.Curve, sale.Sold, amount)
		if err != nil {
			return wrapError(OpBuy, asset, err)
		}
		if cost.IsZero() {
			return newError(ErrCodeInvalidAmount, OpBuy, asset,
				"%s units cost nothing at the current price", ir.FormatUnits(amount))
		}
		if !paid.Equal(cost) {
			return newError(ErrCodePaymentMismatch, OpBuy, asset,
				"paid %s, cost is %s", ir.FormatUnits(paid), ir.FormatUnits(cost))
		}

		sold, err := sale.Sold.Add(amount)
		if err != nil {
			return wrapError(OpBuy, asset, err)
		}
		raised, err := sale.Raised.Add(paid)
		if err != nil {
			return wrapError(OpBuy, asset, err)
		}
		if err := b.emit(ir.EventPurchased, asset, ir.PurchasedPayload(caller, amount, paid, sold, raised)); err != nil {
			return err
		}

		if e.shouldClose(sold, raised) {
			return b.emit(ir.EventSaleClosed, asset, ir.SaleClosedPayload(sold, raised))
		}
		return nil
	})
}

func (e *Engine) checkPurchaseBounds(asset ir.Address, amount ir.Amount) error {
	p := e.params
	switch {
	case amount.IsZero():
		return newError(ErrCodeInvalidAmount, OpBuy, asset, "amount must be positive")
	case !p.MinPurchase.IsZero() && amount.LT(p.MinPurchase):
		return newError(ErrCodeInvalidAmount, OpBuy, asset,
			"amount %s below minimum %s", ir.FormatUnits(amount), ir.FormatUnits(p.MinPurchase))
	case !p.MaxPurchase.IsZero() && amount.GT(p.MaxPurchase):
		return newError(ErrCodeInvalidAmount, OpBuy, asset,
			"amount %s above maximum %s", ir.FormatUnits(amount), ir.FormatUnits(p.MaxPurchase))
	}
	return nil
}

func (e *Engine) shouldClose(sold, raised ir.Amount) bool {
	if raised.GTE(e.params.FundingTarget) {
		return true
	}
	return !e.params.SaleLimit.IsZero() && sold.GTE(e.params.SaleLimit)
}

// Deposit releases a closed sale to its creator: the escrow share chosen by
// the release policy and the proceeds the engine still holds. A repeated
// deposit finds nothing left, succeeds, and emits no event.
func (e *Engine) Deposit(caller ir.Address, asset ir.Address) (ir.Commit, error) {
	return e.execute(OpDeposit, asset, func(b *batch) error {
		sale, ok := b.tx.Sale(asset)
		if !ok {
			return newError(ErrCodeNotFound, OpDeposit, asset, "no sale for asset")
		}
		if caller != sale.Creator {
			return newError(ErrCodeUnauthorized, OpDeposit, asset, "%s is not the creator", caller)
		}
		if sale.Open {
			return newError(ErrCodeSaleStillOpen, OpDeposit, asset, "sale is still open")
		}

		release := e.params.Release.Release(b.tx.Balance(asset, ir.EscrowAddress))
		if release.IsZero() && sale.Held.IsZero() {
			return nil
		}
		return b.emit(ir.EventDeposited, asset, ir.DepositedPayload(sale.Creator, release, sale.Held))
	})
}

// Withdraw pays amount out of the fee vault to the owner.
func (e *Engine) Withdraw(caller ir.Address, amount ir.Amount) (ir.Commit, error) {
	return e.execute(OpWithdraw, ir.ZeroAddress, func(b *batch) error {
		vault := b.tx.Vault()
		switch {
		case caller != vault.Owner:
			return newError(ErrCodeUnauthorized, OpWithdraw, ir.ZeroAddress, "%s is not the owner", caller)
		case amount.IsZero():
			return nil
		case amount.GT(vault.Balance):
			return newError(ErrCodeInsufficientFunds, OpWithdraw, ir.ZeroAddress,
				"requested %s, vault holds %s", ir.FormatUnits(amount), ir.FormatUnits(vault.Balance))
		}
		return b.emit(ir.EventFeeWithdrawn, ir.ZeroAddress, ir.FeeWithdrawnPayload(amount, vault.Owner))
	})
}

// TransferOwnership hands the engine (and the fee vault) to a new owner.
func (e *Engine) TransferOwnership(caller, to ir.Address) (ir.Commit, error) {
	return e.execute(OpTransferOwnership, ir.ZeroAddress, func(b *batch) error {
		vault := b.tx.Vault()
		switch {
		case caller != vault.Owner:
			return newError(ErrCodeUnauthorized, OpTransferOwnership, ir.ZeroAddress, "%s is not the owner", caller)
		case to.IsZero() || to == ir.EscrowAddress:
			return newError(ErrCodeInvalidInput, OpTransferOwnership, ir.ZeroAddress, "invalid new owner %s", to)
		case to == vault.Owner:
			return nil
		}
		return b.emit(ir.EventOwnershipTransferred, ir.ZeroAddress, ir.OwnershipTransferredPayload(vault.Owner, to))
	})
}

// Transfer moves units the caller already holds to another holder. Escrow
// is never a party: units leave escrow only through Buy and Deposit.
func (e *Engine) Transfer(caller, asset, to ir.Address, amount ir.Amount) (ir.Commit, error) {
	return e.execute(OpTransfer, asset, func(b *batch) error {
		if _, ok := b.tx.Asset(asset); !ok {
			return newError(ErrCodeNotFound, OpTransfer, asset, "no such asset")
		}
		switch {
		case caller == ir.EscrowAddress:
			return newError(ErrCodeUnauthorized, OpTransfer, asset, "escrow cannot be debited by transfer")
		case to.IsZero() || to == ir.EscrowAddress || to == caller:
			return newError(ErrCodeInvalidInput, OpTransfer, asset, "invalid recipient %s", to)
		case amount.IsZero():
			return newError(ErrCodeInvalidAmount, OpTransfer, asset, "amount must be positive")
		}
		if bal := b.tx.Balance(asset, caller); amount.GT(bal) {
			return newError(ErrCodeInsufficientBalance, OpTransfer, asset,
				"%s holds %s, needs %s", caller, ir.FormatUnits(bal), ir.FormatUnits(amount))
		}
		return b.emit(ir.EventTransferred, asset, ir.TransferredPayload(caller, to, amount))
	})
}
