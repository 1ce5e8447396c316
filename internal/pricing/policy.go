package pricing

import (
	"errors"
	"fmt"

	"github.com/roach88/tokensale/internal/ir"
)

// ErrUnknownPolicy is returned for a policy name that is not registered.
var ErrUnknownPolicy = errors.New("unknown policy")

// CostPolicy turns a curve into the exact payment for a batch of amount
// units bought when sold units are already gone.
type CostPolicy interface {
	Name() string
	Cost(c Curve, sold, amount ir.Amount) (ir.Amount, error)
}

// Cost policy names.
const (
	PolicyLump     = "lump"
	PolicyMarginal = "marginal"
	PolicyIntegral = "integral"
)

// CostPolicyNames lists the registered cost policies.
func CostPolicyNames() []string {
	return []string{PolicyIntegral, PolicyLump, PolicyMarginal}
}

// ParseCostPolicy returns the cost policy registered under name.
// An empty name selects the lump policy.
func ParseCostPolicy(name string) (CostPolicy, error) {
	switch name {
	case "", PolicyLump:
		return Lump{}, nil
	case PolicyMarginal:
		return Marginal{}, nil
	case PolicyIntegral:
		return Integral{}, nil
	}
	return nil, fmt.Errorf("%w: cost policy %q (want one of %v)", ErrUnknownPolicy, name, CostPolicyNames())
}

// Lump charges the current unit price once per purchase, whatever the batch
// size. Batch size still moves the curve through sold.
type Lump struct{}

func (Lump) Name() string { return PolicyLump }

func (Lump) Cost(c Curve, sold, _ ir.Amount) (ir.Amount, error) {
	return c.UnitPrice(sold)
}

// Marginal charges every unit of the batch at the current unit price,
// rounded up to the next base unit.
type Marginal struct{}

func (Marginal) Name() string { return PolicyMarginal }

func (Marginal) Cost(c Curve, sold, amount ir.Amount) (ir.Amount, error) {
	price, err := c.UnitPrice(sold)
	if err != nil {
		return ir.Amount{}, err
	}
	return price.MulDivCeil(amount, ir.Unit())
}

// Integral charges the area under the curve across the batch.
type Integral struct{}

func (Integral) Name() string { return PolicyIntegral }

func (Integral) Cost(c Curve, sold, amount ir.Amount) (ir.Amount, error) {
	ic, ok := c.(Integrable)
	if !ok {
		return ir.Amount{}, fmt.Errorf("integral cost: curve %T has no closed-form integral", c)
	}
	return ic.Integral(sold, amount)
}

// ReleasePolicy decides how many escrowed units a creator receives when
// depositing after close. Calling it again with the post-release escrow
// must yield zero.
type ReleasePolicy interface {
	Name() string
	Release(escrow ir.Amount) ir.Amount
}

// Release policy names.
const (
	ReleaseAll     = "all"
	ReleaseReserve = "reserve"
)

// ParseReleasePolicy builds a release policy. reserve is only used by the
// reserve mode. An empty mode selects ReleaseAll.
func ParseReleasePolicy(mode string, reserve ir.Amount) (ReleasePolicy, error) {
	switch mode {
	case "", ReleaseAll:
		if !reserve.IsZero() {
			return nil, fmt.Errorf("release mode %q takes no reserve", ReleaseAll)
		}
		return All{}, nil
	case ReleaseReserve:
		return Reserve{Amount: reserve}, nil
	}
	return nil, fmt.Errorf("%w: release mode %q (want %s or %s)", ErrUnknownPolicy, mode, ReleaseAll, ReleaseReserve)
}

// All releases the entire remaining escrow.
type All struct{}

func (All) Name() string { return ReleaseAll }

func (All) Release(escrow ir.Amount) ir.Amount { return escrow }

// Reserve keeps a fixed amount in escrow forever and releases the rest.
type Reserve struct {
	Amount ir.Amount
}

func (Reserve) Name() string { return ReleaseReserve }

func (r Reserve) Release(escrow ir.Amount) ir.Amount {
	out, err := escrow.Sub(r.Amount)
	if err != nil {
		return ir.ZeroAmount()
	}
	return out
}
