package pricing

import (
	"fmt"

	"github.com/roach88/tokensale/internal/ir"
)

// Curve maps cumulative units sold to the price of the next whole unit.
// Implementations must be monotonically non-decreasing in sold.
type Curve interface {
	UnitPrice(sold ir.Amount) (ir.Amount, error)
}

// Integrable is a curve whose area can be computed exactly, used by the
// integral cost policy.
type Integrable interface {
	Curve
	// Integral returns the total price of the units in [sold, sold+amount).
	Integral(sold, amount ir.Amount) (ir.Amount, error)
}

// Linear is price = Base + Slope * sold, with sold counted in whole units.
// Base and Slope are in currency base units; Slope is the price increase
// per whole unit sold.
type Linear struct {
	Base  ir.Amount
	Slope ir.Amount
}

var _ Integrable = Linear{}

// UnitPrice implements Curve.
func (l Linear) UnitPrice(sold ir.Amount) (ir.Amount, error) {
	step, err := l.Slope.MulDiv(sold, ir.Unit())
	if err != nil {
		return ir.Amount{}, fmt.Errorf("unit price at %s: %w", sold, err)
	}
	price, err := l.Base.Add(step)
	if err != nil {
		return ir.Amount{}, fmt.Errorf("unit price at %s: %w", sold, err)
	}
	return price, nil
}

// Integral implements Integrable:
//
//	Base*a/U + Slope*a*(2s+a)/(2U^2)
//
// with s = sold and a = amount in base units and U one whole unit. The
// result is rounded up once, at the end.
func (l Linear) Integral(sold, amount ir.Amount) (ir.Amount, error) {
	if amount.IsZero() {
		return ir.ZeroAmount(), nil
	}
	u := ir.Unit()
	u2, err := u.Mul(u)
	if err != nil {
		return ir.Amount{}, err
	}
	twoU2, err := u2.Add(u2)
	if err != nil {
		return ir.Amount{}, err
	}

	// Base*a*2U / 2U^2 keeps both terms on one denominator.
	baseTerm, err := l.Base.Mul(amount)
	if err != nil {
		return ir.Amount{}, fmt.Errorf("integral base term: %w", err)
	}
	baseTerm, err = baseTerm.Mul(ir.NewAmount(2))
	if err != nil {
		return ir.Amount{}, fmt.Errorf("integral base term: %w", err)
	}
	baseTerm, err = baseTerm.Mul(u)
	if err != nil {
		return ir.Amount{}, fmt.Errorf("integral base term: %w", err)
	}

	span, err := sold.Add(sold)
	if err != nil {
		return ir.Amount{}, err
	}
	span, err = span.Add(amount)
	if err != nil {
		return ir.Amount{}, err
	}
	slopeTerm, err := l.Slope.Mul(amount)
	if err != nil {
		return ir.Amount{}, fmt.Errorf("integral slope term: %w", err)
	}
	slopeTerm, err = slopeTerm.Mul(span)
	if err != nil {
		return ir.Amount{}, fmt.Errorf("integral slope term: %w", err)
	}

	num, err := baseTerm.Add(slopeTerm)
	if err != nil {
		return ir.Amount{}, err
	}
	return num.QuoCeil(twoU2)
}
