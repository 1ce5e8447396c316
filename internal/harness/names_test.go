package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tokensale/internal/ir"
)

func TestNames_Accounts(t *testing.T) {
	n := newNames()

	alice, err := n.account(" alice ")
	require.NoError(t, err)
	assert.Equal(t, ir.AccountAddress("alice"), alice)
	assert.Equal(t, "alice", n.render(alice))

	hex := ir.AccountAddress("zed").String()
	addr, err := n.account(hex)
	require.NoError(t, err)
	assert.Equal(t, hex, n.render(addr), "hex references render as hex")

	assert.Equal(t, "escrow", n.render(ir.EscrowAddress))
	assert.Equal(t, "", n.render(ir.ZeroAddress))

	_, err = n.account("")
	assert.Error(t, err)
}

func TestNames_Assets(t *testing.T) {
	n := newNames()
	addr := ir.AccountAddress("some-asset")
	require.NoError(t, n.bindAsset("dapp", addr))
	require.NoError(t, n.bindAsset("dapp", addr), "rebinding the same address is fine")
	assert.Error(t, n.bindAsset("dapp", ir.AccountAddress("other")))

	got, err := n.asset("dapp")
	require.NoError(t, err)
	assert.Equal(t, addr, got)
	assert.Equal(t, "dapp", n.render(addr))

	ghost, err := n.asset("ghost")
	require.NoError(t, err)
	assert.NotEqual(t, addr, ghost)
	assert.Equal(t, "ghost", n.render(ghost))

	_, err = n.asset(" ")
	assert.Error(t, err)

	found, err := n.lookup("dapp")
	require.NoError(t, err)
	assert.Equal(t, addr, found)
}

func TestNames_RenderPayload(t *testing.T) {
	n := newNames()
	bob, err := n.account("bob")
	require.NoError(t, err)

	fields := n.renderPayload(ir.PurchasedPayload(bob, ir.Units(1000), ir.MustParseUnits("1.5"), ir.Units(1000), ir.MustParseUnits("1.5")))
	assert.Equal(t, map[string]interface{}{
		"buyer":  "bob",
		"amount": "1000",
		"paid":   "1.5",
		"sold":   "1000",
		"raised": "1.5",
	}, fields)

	created := n.renderPayload(ir.CreatedPayload(bob, "Dapp Uni", "123", ir.Units(5), 2, ir.ZeroAmount()))
	assert.Equal(t, "123", created["symbol"], "symbols stay text even when numeric")
	assert.Equal(t, int64(2), created["index"])
	assert.Equal(t, "0", created["fee"])
}
