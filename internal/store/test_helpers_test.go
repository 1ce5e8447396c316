package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/tokensale/internal/ir"
)

var (
	testOwner   = ir.AccountAddress("owner")
	testCreator = ir.AccountAddress("alice")
	testBuyer   = ir.AccountAddress("bob")
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustEvent(t *testing.T, kind ir.EventKind, seq int64, token string, asset ir.Address, payload ir.IRObject) ir.Event {
	t.Helper()
	ev, err := ir.NewEvent(kind, seq, token, asset, payload)
	if err != nil {
		t.Fatalf("NewEvent() failed: %v", err)
	}
	return ev
}

// createTestCommit builds the commit of the index-th create: a 1000 unit
// supply held in escrow and a 0.01 creation fee.
func createTestCommit(t *testing.T, seq int64, token string, index int64) (ir.Commit, ir.Asset) {
	t.Helper()
	addr, err := ir.AssetAddress(testCreator, index, "Dapp Uni", "DAPP")
	if err != nil {
		t.Fatalf("AssetAddress() failed: %v", err)
	}
	fee := ir.MustParseUnits("0.01")
	asset := ir.Asset{
		Address:     addr,
		Index:       index,
		Name:        "Dapp Uni",
		Symbol:      "DAPP",
		TotalSupply: ir.Units(1000),
		Creator:     testCreator,
	}
	payload := ir.CreatedPayload(testCreator, asset.Name, asset.Symbol, asset.TotalSupply, index, fee)
	return ir.Commit{
		TxToken: token,
		Op:      "create",
		Events:  []ir.Event{mustEvent(t, ir.EventCreated, seq, token, addr, payload)},
		Assets:  []ir.Asset{asset},
		Sales: []ir.Sale{{
			Asset:   addr,
			Creator: testCreator,
			Sold:    ir.ZeroAmount(),
			Raised:  ir.ZeroAmount(),
			Held:    ir.ZeroAmount(),
			Open:    true,
		}},
		Balances: []ir.Balance{{Asset: addr, Holder: ir.EscrowAddress, Amount: ir.Units(1000)}},
		Vault:    &ir.Vault{Balance: fee, Owner: testOwner},
	}, asset
}

// buyTestCommit builds a purchase by testBuyer that leaves the sale at
// sold units and raised whole units of payment.
func buyTestCommit(t *testing.T, seq int64, token string, asset ir.Address, amount, paid, sold, raised uint64) ir.Commit {
	t.Helper()
	payload := ir.PurchasedPayload(testBuyer, ir.Units(amount), ir.Units(paid), ir.Units(sold), ir.Units(raised))
	return ir.Commit{
		TxToken: token,
		Op:      "buy",
		Events:  []ir.Event{mustEvent(t, ir.EventPurchased, seq, token, asset, payload)},
		Sales: []ir.Sale{{
			Asset:   asset,
			Creator: testCreator,
			Sold:    ir.Units(sold),
			Raised:  ir.Units(raised),
			Held:    ir.Units(raised),
			Open:    true,
		}},
		Balances: []ir.Balance{
			{Asset: asset, Holder: ir.EscrowAddress, Amount: ir.Units(1000 - sold)},
			{Asset: asset, Holder: testBuyer, Amount: ir.Units(sold)},
		},
	}
}

func writeCommits(t *testing.T, s *Store, commits ...ir.Commit) {
	t.Helper()
	for _, c := range commits {
		if err := s.WriteCommit(context.Background(), c); err != nil {
			t.Fatalf("WriteCommit(%s) failed: %v", c.TxToken, err)
		}
	}
}
