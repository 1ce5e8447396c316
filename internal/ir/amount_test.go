package ir

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maxAmount(t *testing.T) Amount {
	t.Helper()
	b := new(big.Int).Lsh(big.NewInt(1), 256)
	b.Sub(b, big.NewInt(1))
	a, err := AmountFromBig(b)
	require.NoError(t, err)
	return a
}

func TestAmountZeroValue(t *testing.T) {
	var a Amount
	assert.True(t, a.IsZero())
	assert.Equal(t, "0", a.String())
	assert.True(t, a.Equal(ZeroAmount()))
}

func TestUnitsScaling(t *testing.T) {
	assert.Equal(t, "1000000000000000000", Unit().String())
	assert.Equal(t, "1000000000000000000000", Units(1000).String())
	assert.True(t, Units(1).Equal(Unit()))
}

func TestAmountArithmetic(t *testing.T) {
	a := Units(3)
	b := Units(2)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Equal(Units(5)))

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.True(t, diff.Equal(Units(1)))

	prod, err := NewAmount(6).Mul(NewAmount(7))
	require.NoError(t, err)
	assert.Equal(t, "42", prod.String())

	q, err := NewAmount(7).Quo(NewAmount(2))
	require.NoError(t, err)
	assert.Equal(t, "3", q.String(), "Quo floors")

	md, err := Units(10).MulDiv(NewAmount(3), NewAmount(4))
	require.NoError(t, err)
	assert.Equal(t, "7500000000000000000", md.String())
}

func TestAmountSubUnderflow(t *testing.T) {
	_, err := Units(1).Sub(Units(2))
	assert.ErrorIs(t, err, ErrUnderflow)
}

func TestAmountAddOverflow(t *testing.T) {
	_, err := maxAmount(t).Add(NewAmount(1))
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestAmountMulOverflow(t *testing.T) {
	_, err := maxAmount(t).Mul(NewAmount(2))
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestAmountQuoByZero(t *testing.T) {
	_, err := Units(1).Quo(ZeroAmount())
	assert.ErrorIs(t, err, ErrDivideByZero)
	_, err = Units(1).QuoCeil(ZeroAmount())
	assert.ErrorIs(t, err, ErrDivideByZero)
}

func TestAmountCeilRounding(t *testing.T) {
	tests := []struct {
		a, b, d uint64
		floor   uint64
		ceil    uint64
	}{
		{a: 10, b: 3, d: 4, floor: 7, ceil: 8},
		{a: 12, b: 3, d: 4, floor: 9, ceil: 9},
		{a: 1, b: 9999, d: 10000, floor: 0, ceil: 1},
		{a: 0, b: 5, d: 7, floor: 0, ceil: 0},
	}
	for _, tt := range tests {
		floor, err := NewAmount(tt.a).MulDiv(NewAmount(tt.b), NewAmount(tt.d))
		require.NoError(t, err)
		assert.Equal(t, NewAmount(tt.floor).String(), floor.String())

		ceil, err := NewAmount(tt.a).MulDivCeil(NewAmount(tt.b), NewAmount(tt.d))
		require.NoError(t, err)
		assert.Equal(t, NewAmount(tt.ceil).String(), ceil.String())
	}
}

func TestAmountFromBigRejects(t *testing.T) {
	_, err := AmountFromBig(big.NewInt(-1))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = AmountFromBig(new(big.Int).Lsh(big.NewInt(1), 256))
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestParseAmount(t *testing.T) {
	a, err := ParseAmount("1000000000000000000")
	require.NoError(t, err)
	assert.True(t, a.Equal(Unit()))

	for _, bad := range []string{"", "1.5", "-1", "abc", "0x10"} {
		_, err := ParseAmount(bad)
		assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", bad)
	}
}

func TestAmountCompare(t *testing.T) {
	assert.True(t, Units(1).LT(Units(2)))
	assert.True(t, Units(2).GT(Units(1)))
	assert.True(t, Units(2).GTE(Units(2)))
	assert.True(t, Units(2).LTE(Units(2)))
	assert.Equal(t, 0, Units(2).Cmp(Units(2)))
	assert.True(t, Units(1).Min(Units(2)).Equal(Units(1)))
}

func TestAmountJSON(t *testing.T) {
	data, err := json.Marshal(Units(1))
	require.NoError(t, err)
	assert.Equal(t, `"1000000000000000000"`, string(data))

	var a Amount
	require.NoError(t, json.Unmarshal(data, &a))
	assert.True(t, a.Equal(Units(1)))

	assert.Error(t, json.Unmarshal([]byte(`1000`), &a), "bare numbers are rejected")
}
