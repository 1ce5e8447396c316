package engine

import (
	"fmt"

	"github.com/roach88/tokensale/internal/ir"
	"github.com/roach88/tokensale/internal/pricing"
)

// Params is the deployment configuration of an engine. Everything but the
// owner is constant for the engine's lifetime; the owner lives in the fee
// vault so it can be reassigned.
type Params struct {
	Owner         ir.Address
	CreationFee   ir.Amount
	FundingTarget ir.Amount
	TotalSupply   ir.Amount

	Curve   pricing.Curve
	Cost    pricing.CostPolicy
	Release pricing.ReleasePolicy

	// SaleLimit closes a sale once this many units are sold. Zero disables.
	SaleLimit ir.Amount
	// MinPurchase and MaxPurchase bound a single buy. Zero disables.
	MinPurchase ir.Amount
	MaxPurchase ir.Amount
}

// Validate reports the first inconsistent parameter.
func (p Params) Validate() error {
	switch {
	case p.Owner.IsZero():
		return fmt.Errorf("params: owner is required")
	case p.TotalSupply.IsZero():
		return fmt.Errorf("params: total supply must be positive")
	case p.FundingTarget.IsZero():
		return fmt.Errorf("params: funding target must be positive")
	case p.Curve == nil:
		return fmt.Errorf("params: pricing curve is required")
	case p.Cost == nil:
		return fmt.Errorf("params: cost policy is required")
	case p.Release == nil:
		return fmt.Errorf("params: release policy is required")
	case p.SaleLimit.GT(p.TotalSupply):
		return fmt.Errorf("params: sale limit %s exceeds total supply %s", p.SaleLimit, p.TotalSupply)
	case !p.MaxPurchase.IsZero() && p.MinPurchase.GT(p.MaxPurchase):
		return fmt.Errorf("params: min purchase %s exceeds max purchase %s", p.MinPurchase, p.MaxPurchase)
	}
	if r, ok := p.Release.(pricing.Reserve); ok && r.Amount.GT(p.TotalSupply) {
		return fmt.Errorf("params: release reserve %s exceeds total supply %s", r.Amount, p.TotalSupply)
	}
	// The curve must be priceable across the whole supply.
	if _, err := p.Curve.UnitPrice(p.TotalSupply); err != nil {
		return fmt.Errorf("params: curve at total supply: %w", err)
	}
	return nil
}
