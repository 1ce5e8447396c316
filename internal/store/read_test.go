package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/roach88/tokensale/internal/ir"
)

func TestReadEvents_Empty(t *testing.T) {
	s := createTestStore(t)

	events, err := s.ReadEvents(context.Background(), 0)
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if events == nil {
		t.Error("ReadEvents() returned nil, want empty slice")
	}
	if len(events) != 0 {
		t.Errorf("len(events) = %d, want 0", len(events))
	}
}

func TestReadEvents_SeqOrderAndAfterSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c0, a0 := createTestCommit(t, 1, "tx-0001", 0)
	c1, _ := createTestCommit(t, 2, "tx-0002", 1)
	buy := buyTestCommit(t, 3, "tx-0003", a0.Address, 100, 1, 100, 1)
	// Written out of order; reads still come back by seq.
	writeCommits(t, s, c0, buy, c1)

	events, err := s.ReadEvents(ctx, 0)
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(events))
	}
	for i, ev := range events {
		if ev.Seq != int64(i+1) {
			t.Errorf("events[%d].Seq = %d, want %d", i, ev.Seq, i+1)
		}
		if err := ev.VerifyID(); err != nil {
			t.Errorf("events[%d]: %v", i, err)
		}
	}

	tail, err := s.ReadEvents(ctx, 2)
	if err != nil {
		t.Fatalf("ReadEvents(after 2) failed: %v", err)
	}
	if len(tail) != 1 || tail[0].TxToken != "tx-0003" {
		t.Errorf("ReadEvents(after 2) = %+v, want only tx-0003", tail)
	}
}

func TestReadEvents_PayloadRoundTrip(t *testing.T) {
	s := createTestStore(t)

	c, asset := createTestCommit(t, 1, "tx-0001", 0)
	writeCommits(t, s, c)

	events, err := s.ReadEvents(context.Background(), 0)
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}

	ev := events[0]
	if ev.Asset != asset.Address {
		t.Errorf("Asset = %s, want %s", ev.Asset, asset.Address)
	}
	supply, err := ev.Payload.Amount("supply")
	if err != nil {
		t.Fatalf("payload supply: %v", err)
	}
	if !supply.Equal(ir.Units(1000)) {
		t.Errorf("supply = %s, want %s", supply, ir.Units(1000))
	}
	name, err := ev.Payload.String("name")
	if err != nil || name != "Dapp Uni" {
		t.Errorf("name = %q (%v), want %q", name, err, "Dapp Uni")
	}
}

func TestReadEventsByTxAndAsset(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c0, a0 := createTestCommit(t, 1, "tx-0001", 0)
	c1, a1 := createTestCommit(t, 2, "tx-0002", 1)
	buy := buyTestCommit(t, 3, "tx-0003", a0.Address, 100, 1, 100, 1)
	writeCommits(t, s, c0, c1, buy)

	byTx, err := s.ReadEventsByTx(ctx, "tx-0002")
	if err != nil {
		t.Fatalf("ReadEventsByTx() failed: %v", err)
	}
	if len(byTx) != 1 || byTx[0].Asset != a1.Address {
		t.Errorf("ReadEventsByTx(tx-0002) = %+v", byTx)
	}

	byAsset, err := s.ReadEventsByAsset(ctx, a0.Address)
	if err != nil {
		t.Fatalf("ReadEventsByAsset() failed: %v", err)
	}
	if len(byAsset) != 2 {
		t.Fatalf("len(ReadEventsByAsset) = %d, want 2", len(byAsset))
	}
	if byAsset[0].Kind != ir.EventCreated || byAsset[1].Kind != ir.EventPurchased {
		t.Errorf("kinds = %s, %s", byAsset[0].Kind, byAsset[1].Kind)
	}
}

func TestLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.LastSeq(ctx)
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if seq != 0 {
		t.Errorf("LastSeq() on empty store = %d, want 0", seq)
	}

	c, asset := createTestCommit(t, 1, "tx-0001", 0)
	writeCommits(t, s, c, buyTestCommit(t, 2, "tx-0002", asset.Address, 10, 1, 10, 1))

	seq, err = s.LastSeq(ctx)
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if seq != 2 {
		t.Errorf("LastSeq() = %d, want 2", seq)
	}
}

func TestReadAssetsAndSales_RegistryOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c0, a0 := createTestCommit(t, 1, "tx-0001", 0)
	c1, a1 := createTestCommit(t, 2, "tx-0002", 1)
	writeCommits(t, s, c1, c0)

	assets, err := s.ReadAssets(ctx)
	if err != nil {
		t.Fatalf("ReadAssets() failed: %v", err)
	}
	if len(assets) != 2 || assets[0].Address != a0.Address || assets[1].Address != a1.Address {
		t.Fatalf("ReadAssets() = %+v, want [%s %s]", assets, a0.Address, a1.Address)
	}
	if assets[1].Index != 1 || assets[1].Symbol != "DAPP" || !assets[1].TotalSupply.Equal(a1.TotalSupply) {
		t.Errorf("assets[1] = %+v", assets[1])
	}

	sales, err := s.ReadSales(ctx)
	if err != nil {
		t.Fatalf("ReadSales() failed: %v", err)
	}
	if len(sales) != 2 || sales[0].Asset != a0.Address || sales[1].Asset != a1.Address {
		t.Fatalf("ReadSales() out of registry order: %+v", sales)
	}
	if !sales[0].Open || !sales[0].Sold.IsZero() {
		t.Errorf("fresh sale = %+v, want open with nothing sold", sales[0])
	}
}

func TestReadAsset_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadAsset(context.Background(), testCreator)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadAsset() error = %v, want sql.ErrNoRows", err)
	}
}

func TestReadSale_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadSale(context.Background(), testCreator)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadSale() error = %v, want sql.ErrNoRows", err)
	}
}

func TestReadSale_AfterBuy(t *testing.T) {
	s := createTestStore(t)

	c, asset := createTestCommit(t, 1, "tx-0001", 0)
	writeCommits(t, s, c, buyTestCommit(t, 2, "tx-0002", asset.Address, 100, 1, 100, 1))

	sale, err := s.ReadSale(context.Background(), asset.Address)
	if err != nil {
		t.Fatalf("ReadSale() failed: %v", err)
	}
	if !sale.Sold.Equal(ir.Units(100)) || !sale.Raised.Equal(ir.Units(1)) || !sale.Held.Equal(ir.Units(1)) {
		t.Errorf("sale = %+v, want sold 100 raised 1 held 1", sale)
	}
	if sale.Creator != testCreator {
		t.Errorf("creator = %s, want %s", sale.Creator, testCreator)
	}
}

func TestReadBalances_SkipsZero(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c, asset := createTestCommit(t, 1, "tx-0001", 0)
	// Buying the whole supply empties escrow.
	writeCommits(t, s, c, buyTestCommit(t, 2, "tx-0002", asset.Address, 1000, 1, 1000, 1))

	balances, err := s.ReadBalances(ctx, asset.Address)
	if err != nil {
		t.Fatalf("ReadBalances() failed: %v", err)
	}
	if len(balances) != 1 {
		t.Fatalf("len(balances) = %d, want 1 (escrow is zero)", len(balances))
	}
	if balances[0].Holder != testBuyer {
		t.Errorf("holder = %s, want %s", balances[0].Holder, testBuyer)
	}

	escrow, err := s.ReadBalance(ctx, asset.Address, ir.EscrowAddress)
	if err != nil {
		t.Fatalf("ReadBalance() failed: %v", err)
	}
	if !escrow.IsZero() {
		t.Errorf("escrow = %s, want 0", escrow)
	}
}

func TestReadBalance_Missing(t *testing.T) {
	s := createTestStore(t)

	bal, err := s.ReadBalance(context.Background(), testCreator, testBuyer)
	if err != nil {
		t.Fatalf("ReadBalance() failed: %v", err)
	}
	if !bal.IsZero() {
		t.Errorf("ReadBalance() = %s, want 0", bal)
	}
}

func TestReadVault_Empty(t *testing.T) {
	s := createTestStore(t)

	_, ok, err := s.ReadVault(context.Background())
	if err != nil {
		t.Fatalf("ReadVault() failed: %v", err)
	}
	if ok {
		t.Error("ReadVault() ok = true on empty store")
	}
}

func TestReadSnapshot(t *testing.T) {
	s := createTestStore(t)

	c0, a0 := createTestCommit(t, 1, "tx-0001", 0)
	c1, a1 := createTestCommit(t, 2, "tx-0002", 1)
	c1.Vault.Balance = ir.MustParseUnits("0.02")
	writeCommits(t, s, c0, c1, buyTestCommit(t, 3, "tx-0003", a0.Address, 100, 1, 100, 1))

	snap, err := s.ReadSnapshot(context.Background())
	if err != nil {
		t.Fatalf("ReadSnapshot() failed: %v", err)
	}
	if snap.Seq != 3 {
		t.Errorf("Seq = %d, want 3", snap.Seq)
	}
	if len(snap.Assets) != 2 || len(snap.Sales) != 2 {
		t.Errorf("assets/sales = %d/%d, want 2/2", len(snap.Assets), len(snap.Sales))
	}
	if len(snap.Balances[a0.Address]) != 2 {
		t.Errorf("holders of %s = %d, want 2", a0.Address, len(snap.Balances[a0.Address]))
	}
	if len(snap.Balances[a1.Address]) != 1 {
		t.Errorf("holders of %s = %d, want 1", a1.Address, len(snap.Balances[a1.Address]))
	}
	if !snap.HasVault || ir.FormatUnits(snap.Vault.Balance) != "0.02" {
		t.Errorf("vault = %+v (has %v), want 0.02", snap.Vault, snap.HasVault)
	}
}
