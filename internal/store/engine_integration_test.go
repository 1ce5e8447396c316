package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tokensale/internal/engine"
	"github.com/roach88/tokensale/internal/ir"
	"github.com/roach88/tokensale/internal/pricing"
	"github.com/roach88/tokensale/internal/store"
	"github.com/roach88/tokensale/internal/testutil"
)

func params() engine.Params {
	return engine.Params{
		Owner:         ir.AccountAddress("owner"),
		CreationFee:   ir.MustParseUnits("0.01"),
		FundingTarget: ir.Units(3),
		TotalSupply:   ir.Units(1_000_000),
		Curve:         pricing.Linear{Base: ir.Units(1), Slope: ir.MustParseUnits("0.001")},
		Cost:          pricing.Lump{},
		Release:       pricing.All{},
	}
}

// TestEngineStore_PersistAndReplay drives a full sale through an engine
// backed by a store, then rebuilds a second engine from the store alone.
func TestEngineStore_PersistAndReplay(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sale.db")

	s, err := store.Open(path)
	require.NoError(t, err)

	e, err := engine.New(params(),
		engine.WithWriter(s),
		engine.WithTxTokens(testutil.NewSequentialTokens("tx")),
	)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	alice := ir.AccountAddress("alice")
	bob := ir.AccountAddress("bob")
	carol := ir.AccountAddress("carol")

	c, err := e.Create(alice, "Dapp Uni", "DAPP", ir.MustParseUnits("0.01"))
	require.NoError(t, err)
	asset := c.Assets[0].Address

	_, err = e.Buy(bob, asset, ir.Units(1000), ir.Units(1))
	require.NoError(t, err)
	_, err = e.Buy(carol, asset, ir.Units(10000), ir.Units(2))
	require.NoError(t, err)
	_, err = e.Deposit(alice, asset)
	require.NoError(t, err)
	// Nothing left to release: no event, nothing persisted.
	_, err = e.Deposit(alice, asset)
	require.NoError(t, err)

	e.Stop()
	require.NoError(t, <-done)
	require.NoError(t, e.LastError())
	require.NoError(t, s.Close())

	// Reopen to prove durability.
	s, err = store.Open(path)
	require.NoError(t, err)
	defer s.Close()

	report, err := s.CheckLog(ctx)
	require.NoError(t, err)
	assert.True(t, report.OK(), "%+v", report)
	assert.Equal(t, e.Seq(), report.LastSeq)
	assert.Equal(t, 4, report.Txs)

	sale, err := s.ReadSale(ctx, asset)
	require.NoError(t, err)
	assert.False(t, sale.Open)
	assert.Equal(t, "3", ir.FormatUnits(sale.Raised))
	assert.True(t, sale.Held.IsZero())

	creatorBal, err := s.ReadBalance(ctx, asset, alice)
	require.NoError(t, err)
	assert.True(t, creatorBal.Equal(e.BalanceOf(asset, alice)))

	replayed, err := engine.Replay(ctx, params(), s)
	require.NoError(t, err)
	assert.Equal(t, e.Seq(), replayed.Seq())
	require.NoError(t, replayed.CheckInvariants())

	for _, holder := range e.Holders(asset) {
		assert.True(t, holder.Amount.Equal(replayed.BalanceOf(asset, holder.Holder)), "holder %s", holder.Holder)
	}

	snap, err := s.ReadSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Balances[asset], len(e.Holders(asset)))
	assert.True(t, snap.Vault.Balance.Equal(replayed.FeeVault().Balance))
}
