package ir

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"cosmossdk.io/math"
)

// Decimals is the number of fractional decimal places of every amount,
// both asset units and native currency.
const Decimals = 18

// Amount errors. Arithmetic never wraps silently.
var (
	ErrOverflow      = errors.New("amount overflow")
	ErrUnderflow     = errors.New("amount underflow")
	ErrDivideByZero  = errors.New("amount division by zero")
	ErrInvalidAmount = errors.New("invalid amount")
)

// Amount is a non-negative fixed-point quantity in base units
// (1 whole unit == 10^Decimals base units).
//
// The zero value is a valid zero amount. Amounts are immutable values;
// every operation returns a new Amount.
type Amount struct {
	i math.Int
}

var unit = math.NewIntFromBigInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil))

// ZeroAmount returns the zero amount.
func ZeroAmount() Amount {
	return Amount{i: math.ZeroInt()}
}

// NewAmount returns an amount of n base units.
func NewAmount(n uint64) Amount {
	return Amount{i: math.NewIntFromUint64(n)}
}

// Units returns an amount of n whole units (n * 10^Decimals base units).
func Units(n uint64) Amount {
	return Amount{i: math.NewIntFromUint64(n).Mul(unit)}
}

// Unit returns one whole unit.
func Unit() Amount {
	return Amount{i: unit}
}

// AmountFromBig converts a big.Int in base units.
// Fails for negative values and values wider than 256 bits.
func AmountFromBig(b *big.Int) (Amount, error) {
	if b == nil {
		return ZeroAmount(), nil
	}
	if b.Sign() < 0 {
		return Amount{}, fmt.Errorf("%w: negative value %s", ErrInvalidAmount, b)
	}
	if b.BitLen() > math.MaxBitLen {
		return Amount{}, ErrOverflow
	}
	return Amount{i: math.NewIntFromBigInt(b)}, nil
}

// ParseAmount parses a base-unit integer string such as "1000000000000000000".
func ParseAmount(s string) (Amount, error) {
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("%w: %q is not a base-unit integer", ErrInvalidAmount, s)
	}
	return AmountFromBig(b)
}

// MustParseAmount is like ParseAmount but panics on error.
// Use only in tests or with literal inputs.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Amount) raw() math.Int {
	if a.i.IsNil() {
		return math.ZeroInt()
	}
	return a.i
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.raw().IsZero()
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a.raw().LT(b.raw()):
		return -1
	case a.raw().GT(b.raw()):
		return 1
	default:
		return 0
	}
}

// Equal reports whether a == b.
func (a Amount) Equal(b Amount) bool { return a.Cmp(b) == 0 }

// LT reports whether a < b.
func (a Amount) LT(b Amount) bool { return a.Cmp(b) < 0 }

// GT reports whether a > b.
func (a Amount) GT(b Amount) bool { return a.Cmp(b) > 0 }

// GTE reports whether a >= b.
func (a Amount) GTE(b Amount) bool { return a.Cmp(b) >= 0 }

// LTE reports whether a <= b.
func (a Amount) LTE(b Amount) bool { return a.Cmp(b) <= 0 }

// Add returns a + b, or ErrOverflow past 256 bits.
func (a Amount) Add(b Amount) (Amount, error) {
	r, err := a.raw().SafeAdd(b.raw())
	if err != nil {
		return Amount{}, ErrOverflow
	}
	return Amount{i: r}, nil
}

// Sub returns a - b, or ErrUnderflow when b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.LT(b) {
		return Amount{}, ErrUnderflow
	}
	r, err := a.raw().SafeSub(b.raw())
	if err != nil {
		return Amount{}, ErrOverflow
	}
	return Amount{i: r}, nil
}

// Mul returns a * b in base units (no rescaling), or ErrOverflow.
func (a Amount) Mul(b Amount) (Amount, error) {
	r, err := a.raw().SafeMul(b.raw())
	if err != nil {
		return Amount{}, ErrOverflow
	}
	return Amount{i: r}, nil
}

// Quo returns floor(a / b).
func (a Amount) Quo(b Amount) (Amount, error) {
	if b.IsZero() {
		return Amount{}, ErrDivideByZero
	}
	return Amount{i: a.raw().Quo(b.raw())}, nil
}

// MulDiv returns floor(a * b / d), failing if the intermediate product
// overflows.
func (a Amount) MulDiv(b, d Amount) (Amount, error) {
	p, err := a.Mul(b)
	if err != nil {
		return Amount{}, err
	}
	return p.Quo(d)
}

// QuoCeil returns ceil(a / b).
func (a Amount) QuoCeil(b Amount) (Amount, error) {
	q, err := a.Quo(b)
	if err != nil {
		return Amount{}, err
	}
	if !a.raw().Mod(b.raw()).IsZero() {
		return q.Add(NewAmount(1))
	}
	return q, nil
}

// MulDivCeil returns ceil(a * b / d). A positive product never rounds to
// zero.
func (a Amount) MulDivCeil(b, d Amount) (Amount, error) {
	p, err := a.Mul(b)
	if err != nil {
		return Amount{}, err
	}
	return p.QuoCeil(d)
}

// Min returns the smaller of a and b.
func (a Amount) Min(b Amount) Amount {
	if a.LTE(b) {
		return a
	}
	return b
}

// BigInt returns a copy of the amount as a big.Int in base units.
func (a Amount) BigInt() *big.Int {
	return a.raw().BigInt()
}

// String returns the amount in base units.
func (a Amount) String() string {
	return a.raw().String()
}

// MarshalJSON encodes the amount as a quoted base-unit string so that
// values past 2^53 survive JSON decoders.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a quoted base-unit string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("amount must be a quoted integer string: %w", err)
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
