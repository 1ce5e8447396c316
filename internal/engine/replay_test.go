package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tokensale/internal/ir"
)

// populate runs a full lifecycle and returns the recorded log.
func populate(t *testing.T) (*Engine, *memWriter) {
	t.Helper()
	w := &memWriter{}
	e := newTestEngine(t, nil, WithWriter(w))
	stop := runEngine(t, e)

	asset := createDapp(t, e)
	createDapp(t, e)
	_, err := e.Buy(bob, asset, ir.Units(1000), ir.Units(1))
	require.NoError(t, err)
	_, err = e.Transfer(bob, asset, carol, ir.Units(250))
	require.NoError(t, err)
	_, err = e.Buy(carol, asset, ir.Units(10000), ir.Units(2))
	require.NoError(t, err)
	_, err = e.Deposit(alice, asset)
	require.NoError(t, err)
	_, err = e.TransferOwnership(owner, bob)
	require.NoError(t, err)
	_, err = e.Withdraw(bob, ir.MustParseUnits("0.015"))
	require.NoError(t, err)

	stop()
	return e, w
}

func TestReplay_RebuildsIdenticalState(t *testing.T) {
	orig, w := populate(t)

	replayed, err := Replay(context.Background(), deploymentParams(), w)
	require.NoError(t, err)

	assert.Equal(t, orig.Seq(), replayed.Seq())
	assert.Equal(t, orig.SaleCount(), replayed.SaleCount())
	assert.Equal(t, orig.Owner(), replayed.Owner())
	assert.True(t, orig.FeeVault().Balance.Equal(replayed.FeeVault().Balance))

	for _, sale := range orig.Sales() {
		got, err := replayed.GetSale(sale.Asset)
		require.NoError(t, err)
		assert.Equal(t, sale.Open, got.Open)
		assert.True(t, sale.Sold.Equal(got.Sold))
		assert.True(t, sale.Raised.Equal(got.Raised))
		assert.True(t, sale.Held.Equal(got.Held))

		want := orig.Holders(sale.Asset)
		have := replayed.Holders(sale.Asset)
		require.Len(t, have, len(want))
		for i := range want {
			assert.Equal(t, want[i].Holder, have[i].Holder)
			assert.True(t, want[i].Amount.Equal(have[i].Amount))
		}
	}
	require.NoError(t, replayed.CheckInvariants())
}

func TestReplay_ResumesClock(t *testing.T) {
	orig, w := populate(t)

	replayed, err := Replay(context.Background(), deploymentParams(), w,
		WithTxTokens(NewFixedGenerator("resumed")))
	require.NoError(t, err)

	c, err := replayed.Create(alice, "Next", "NXT", replayed.Params().CreationFee)
	require.NoError(t, err)
	assert.Equal(t, orig.Seq()+1, c.Events[0].Seq)
	assert.Equal(t, "resumed", c.TxToken)
}

func TestReplay_EmptyLog(t *testing.T) {
	e, err := Replay(context.Background(), deploymentParams(), &memWriter{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), e.Seq())
	assert.Equal(t, 0, e.SaleCount())
}

func TestReplay_DetectsTampering(t *testing.T) {
	_, w := populate(t)
	w.commits[2].Events[0].Payload["amount"] = ir.AmountValue(ir.Units(999))

	_, err := Replay(context.Background(), deploymentParams(), w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id mismatch")
}

func TestReplay_DetectsSeqGap(t *testing.T) {
	_, w := populate(t)
	w.commits = append(w.commits[:1], w.commits[2:]...)

	_, err := Replay(context.Background(), deploymentParams(), w)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seq gap")
}
