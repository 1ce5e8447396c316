package engine

import (
	"fmt"

	"github.com/roach88/tokensale/internal/ir"
)

// Read operations. All take the read lock and never mutate.

// Params returns the deployment configuration. Owner reflects the current
// owner, which may differ from the configured one after TransferOwnership.
func (e *Engine) Params() Params {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p := e.params
	p.Owner = e.state.Vault().Owner
	return p
}

// Owner returns the current engine owner.
func (e *Engine) Owner() ir.Address {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Vault().Owner
}

// FeeVault returns the fee vault balance and owner.
func (e *Engine) FeeVault() ir.Vault {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Vault()
}

// Seq returns the seq of the last committed event.
func (e *Engine) Seq() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.clock.Current()
}

// GetSale returns the sale record of asset.
func (e *Engine) GetSale(asset ir.Address) (ir.Sale, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sale, ok := e.state.Sale(asset)
	if !ok {
		return ir.Sale{}, newError(ErrCodeNotFound, "get-sale", asset, "no sale for asset")
	}
	return sale, nil
}

// SaleCount returns the number of registered sales.
func (e *Engine) SaleCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.SaleCount()
}

// SaleByIndex returns the i-th sale in creation order.
func (e *Engine) SaleByIndex(i int) (ir.Sale, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sale, ok := e.state.SaleAt(i)
	if !ok {
		return ir.Sale{}, newError(ErrCodeNotFound, "get-sale", ir.ZeroAddress,
			"index %d out of range [0, %d)", i, e.state.SaleCount())
	}
	return sale, nil
}

// Sales returns every sale in creation order.
func (e *Engine) Sales() []ir.Sale {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Sales()
}

// Asset returns the asset registered at addr.
func (e *Engine) Asset(addr ir.Address) (ir.Asset, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.state.Asset(addr)
	if !ok {
		return ir.Asset{}, newError(ErrCodeNotFound, "get-asset", addr, "no such asset")
	}
	return a, nil
}

// Assets returns every asset in creation order.
func (e *Engine) Assets() []ir.Asset {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Assets()
}

// GetCost returns the curve's unit price after sold units. Pure.
func (e *Engine) GetCost(sold ir.Amount) (ir.Amount, error) {
	price, err := e.params.Curve.UnitPrice(sold)
	if err != nil {
		return ir.Amount{}, wrapError("get-cost", ir.ZeroAddress, err)
	}
	return price, nil
}

// Quote returns the exact payment a Buy of amount units of asset would
// require right now.
func (e *Engine) Quote(asset ir.Address, amount ir.Amount) (ir.Amount, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	sale, ok := e.state.Sale(asset)
	if !ok {
		return ir.Amount{}, newError(ErrCodeNotFound, "quote", asset, "no sale for asset")
	}
	cost, err := e.params.Cost.Cost(e.params.Curve, sale.Sold, amount)
	if err != nil {
		return ir.Amount{}, wrapError("quote", asset, err)
	}
	return cost, nil
}

// BalanceOf returns holder's balance of asset.
func (e *Engine) BalanceOf(asset, holder ir.Address) ir.Amount {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Balance(asset, holder)
}

// Escrow returns the units of asset still held by the engine.
func (e *Engine) Escrow(asset ir.Address) ir.Amount {
	return e.BalanceOf(asset, ir.EscrowAddress)
}

// Holders returns the non-zero balances of asset, escrow included.
func (e *Engine) Holders(asset ir.Address) []ir.Balance {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Holders(asset)
}

// CheckInvariants verifies supply conservation and the sale counters of
// every asset against the ledger.
func (e *Engine) CheckInvariants() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.state.CheckSupply(); err != nil {
		return err
	}
	for _, sale := range e.state.Sales() {
		asset, _ := e.state.Asset(sale.Asset)
		if sale.Held.GT(sale.Raised) {
			return fmt.Errorf("asset %s: held %s exceeds raised %s", sale.Asset, sale.Held, sale.Raised)
		}
		// Escrow = supply - units outside escrow; units only leave escrow
		// by sale or by deposit, so escrow never exceeds supply - sold.
		limit, err := asset.TotalSupply.Sub(sale.Sold)
		if err != nil {
			return fmt.Errorf("asset %s: %w", sale.Asset, err)
		}
		if escrow := e.state.Balance(sale.Asset, ir.EscrowAddress); escrow.GT(limit) {
			return fmt.Errorf("asset %s: escrow %s exceeds unsold %s", sale.Asset, escrow, limit)
		}
	}
	return nil
}
