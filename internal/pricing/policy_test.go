package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tokensale/internal/ir"
)

func TestParseCostPolicy(t *testing.T) {
	for _, name := range CostPolicyNames() {
		p, err := ParseCostPolicy(name)
		require.NoError(t, err)
		assert.Equal(t, name, p.Name())
	}

	p, err := ParseCostPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyLump, p.Name())

	_, err = ParseCostPolicy("bonding")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestLumpCostMatchesDeploymentScenario(t *testing.T) {
	// 1000 units at sold=0 pay 1.0; the next 10000 units pay 2.0.
	first, err := Lump{}.Cost(doubling, ir.ZeroAmount(), ir.Units(1000))
	require.NoError(t, err)
	assert.Equal(t, "1", ir.FormatUnits(first))

	second, err := Lump{}.Cost(doubling, ir.Units(1000), ir.Units(10000))
	require.NoError(t, err)
	assert.Equal(t, "2", ir.FormatUnits(second))
}

func TestMarginalCost(t *testing.T) {
	cost, err := Marginal{}.Cost(doubling, ir.Units(1000), ir.Units(10))
	require.NoError(t, err)
	assert.Equal(t, "20", ir.FormatUnits(cost))

	frac, err := Marginal{}.Cost(doubling, ir.ZeroAmount(), ir.MustParseUnits("0.25"))
	require.NoError(t, err)
	assert.Equal(t, "0.25", ir.FormatUnits(frac))
}

func TestIntegralCost(t *testing.T) {
	cost, err := Integral{}.Cost(doubling, ir.ZeroAmount(), ir.Units(1000))
	require.NoError(t, err)
	assert.Equal(t, "1500", ir.FormatUnits(cost))
}

func TestDustPurchasesRoundUp(t *testing.T) {
	// 9999 base units at 0.0001 per unit is worth 0.9999 base units.
	cheap := Linear{Base: ir.MustParseUnits("0.0001")}
	dust := ir.NewAmount(9999)

	for _, p := range []CostPolicy{Marginal{}, Integral{}} {
		t.Run(p.Name(), func(t *testing.T) {
			cost, err := p.Cost(cheap, ir.ZeroAmount(), dust)
			require.NoError(t, err)
			assert.Equal(t, "1", cost.String(), "cost rounds up to one base unit")
		})
	}
}

type flatCurve struct{ price ir.Amount }

func (f flatCurve) UnitPrice(ir.Amount) (ir.Amount, error) { return f.price, nil }

func TestIntegralCostNeedsIntegrableCurve(t *testing.T) {
	_, err := Integral{}.Cost(flatCurve{price: ir.Unit()}, ir.ZeroAmount(), ir.Unit())
	assert.Error(t, err)

	// Other policies accept any curve.
	cost, err := Marginal{}.Cost(flatCurve{price: ir.Unit()}, ir.ZeroAmount(), ir.Units(3))
	require.NoError(t, err)
	assert.True(t, cost.Equal(ir.Units(3)))
}

func TestReleasePolicies(t *testing.T) {
	all, err := ParseReleasePolicy("", ir.ZeroAmount())
	require.NoError(t, err)
	assert.Equal(t, ReleaseAll, all.Name())
	assert.True(t, all.Release(ir.Units(5)).Equal(ir.Units(5)))
	assert.True(t, all.Release(ir.ZeroAmount()).IsZero())

	res, err := ParseReleasePolicy(ReleaseReserve, ir.Units(2))
	require.NoError(t, err)
	assert.True(t, res.Release(ir.Units(5)).Equal(ir.Units(3)))
	assert.True(t, res.Release(ir.Units(2)).IsZero(), "second release yields zero")
	assert.True(t, res.Release(ir.Units(1)).IsZero())

	_, err = ParseReleasePolicy(ReleaseAll, ir.Units(1))
	assert.Error(t, err)
	_, err = ParseReleasePolicy("burn", ir.ZeroAmount())
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}
