package store

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/tokensale/internal/ir"
)

func TestWriteCommit_Basic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c, asset := createTestCommit(t, 1, "tx-0001", 0)
	if err := s.WriteCommit(ctx, c); err != nil {
		t.Fatalf("WriteCommit() failed: %v", err)
	}

	// Verify stored correctly
	var id, token, kind, assetCol string
	var seq int64
	err := s.db.QueryRow(`
		SELECT seq, id, tx_token, kind, asset FROM events WHERE seq = 1
	`).Scan(&seq, &id, &token, &kind, &assetCol)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if id != c.Events[0].ID {
		t.Errorf("id = %q, want %q", id, c.Events[0].ID)
	}
	if token != "tx-0001" {
		t.Errorf("tx_token = %q, want %q", token, "tx-0001")
	}
	if kind != string(ir.EventCreated) {
		t.Errorf("kind = %q, want %q", kind, ir.EventCreated)
	}
	if assetCol != asset.Address.String() {
		t.Errorf("asset = %q, want %q", assetCol, asset.Address)
	}

	var createdSeq int64
	if err := s.db.QueryRow(`SELECT created_seq FROM assets WHERE address = ?`, asset.Address.String()).Scan(&createdSeq); err != nil {
		t.Fatalf("query asset failed: %v", err)
	}
	if createdSeq != 1 {
		t.Errorf("created_seq = %d, want 1", createdSeq)
	}

	escrow, err := s.ReadBalance(ctx, asset.Address, ir.EscrowAddress)
	if err != nil {
		t.Fatalf("ReadBalance() failed: %v", err)
	}
	if !escrow.Equal(ir.Units(1000)) {
		t.Errorf("escrow = %s, want %s", escrow, ir.Units(1000))
	}

	v, ok, err := s.ReadVault(ctx)
	if err != nil || !ok {
		t.Fatalf("ReadVault() = ok %v, err %v", ok, err)
	}
	if ir.FormatUnits(v.Balance) != "0.01" {
		t.Errorf("vault balance = %s, want 0.01", ir.FormatUnits(v.Balance))
	}
	if v.Owner != testOwner {
		t.Errorf("vault owner = %s, want %s", v.Owner, testOwner)
	}
}

func TestWriteCommit_CanonicalPayload(t *testing.T) {
	s := createTestStore(t)

	c, _ := createTestCommit(t, 1, "tx-0001", 0)
	writeCommits(t, s, c)

	var payload string
	if err := s.db.QueryRow(`SELECT payload FROM events WHERE seq = 1`).Scan(&payload); err != nil {
		t.Fatalf("query failed: %v", err)
	}

	want, err := ir.MarshalCanonical(c.Events[0].Payload)
	if err != nil {
		t.Fatalf("MarshalCanonical() failed: %v", err)
	}
	if payload != string(want) {
		t.Errorf("payload = %s, want canonical %s", payload, want)
	}
}

func TestWriteCommit_Empty(t *testing.T) {
	s := createTestStore(t)

	if err := s.WriteCommit(context.Background(), ir.Commit{Op: "deposit"}); err != nil {
		t.Fatalf("WriteCommit() of empty commit failed: %v", err)
	}

	seq, err := s.LastSeq(context.Background())
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if seq != 0 {
		t.Errorf("LastSeq() = %d, want 0", seq)
	}
}

func TestWriteCommit_Idempotent(t *testing.T) {
	s := createTestStore(t)

	c, asset := createTestCommit(t, 1, "tx-0001", 0)
	buy := buyTestCommit(t, 2, "tx-0002", asset.Address, 100, 1, 100, 1)
	writeCommits(t, s, c, buy, c, buy)

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&count); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if count != 2 {
		t.Errorf("event count = %d, want 2", count)
	}

	bal, err := s.ReadBalance(context.Background(), asset.Address, testBuyer)
	if err != nil {
		t.Fatalf("ReadBalance() failed: %v", err)
	}
	if !bal.Equal(ir.Units(100)) {
		t.Errorf("buyer balance = %s, want %s", bal, ir.Units(100))
	}
}

func TestWriteCommit_StaleProjectionIgnored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	c, asset := createTestCommit(t, 1, "tx-0001", 0)
	buy := buyTestCommit(t, 2, "tx-0002", asset.Address, 100, 1, 100, 1)
	writeCommits(t, s, c, buy)

	// Rewriting the older commit must not roll the sale back.
	writeCommits(t, s, c)

	sale, err := s.ReadSale(ctx, asset.Address)
	if err != nil {
		t.Fatalf("ReadSale() failed: %v", err)
	}
	if !sale.Sold.Equal(ir.Units(100)) {
		t.Errorf("sold = %s, want %s", sale.Sold, ir.Units(100))
	}
	escrow, err := s.ReadBalance(ctx, asset.Address, ir.EscrowAddress)
	if err != nil {
		t.Fatalf("ReadBalance() failed: %v", err)
	}
	if !escrow.Equal(ir.Units(900)) {
		t.Errorf("escrow = %s, want %s", escrow, ir.Units(900))
	}
}

func TestWriteCommit_Atomic(t *testing.T) {
	s := createTestStore(t)

	// A balance row for an unknown asset violates the foreign key after the
	// event was inserted; the whole commit must roll back.
	orphan, err := ir.AssetAddress(testCreator, 7, "Ghost", "GST")
	if err != nil {
		t.Fatalf("AssetAddress() failed: %v", err)
	}
	c := buyTestCommit(t, 1, "tx-0001", orphan, 10, 1, 10, 1)
	c.Sales = nil

	if err := s.WriteCommit(context.Background(), c); err == nil {
		t.Fatal("expected WriteCommit() to fail on foreign key violation")
	}

	seq, err := s.LastSeq(context.Background())
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if seq != 0 {
		t.Errorf("LastSeq() = %d after failed commit, want 0", seq)
	}
}

func TestWriteConfig(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.ReadConfig(ctx); err == nil {
		t.Error("expected ReadConfig() to fail before WriteConfig()")
	}

	body := []byte(`{"owner":"0x01"}`)
	if err := s.WriteConfig(ctx, body); err != nil {
		t.Fatalf("WriteConfig() failed: %v", err)
	}

	err := s.WriteConfig(ctx, []byte(`{"owner":"0x02"}`))
	if !errors.Is(err, ErrConfigExists) {
		t.Errorf("second WriteConfig() = %v, want ErrConfigExists", err)
	}

	got, err := s.ReadConfig(ctx)
	if err != nil {
		t.Fatalf("ReadConfig() failed: %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("ReadConfig() = %s, want %s", got, body)
	}

	var engineVersion, eventVersion string
	if err := s.db.QueryRow(`SELECT engine_version, event_version FROM config`).Scan(&engineVersion, &eventVersion); err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if engineVersion != ir.EngineVersion || eventVersion != ir.EventVersion {
		t.Errorf("versions = (%s, %s), want (%s, %s)", engineVersion, eventVersion, ir.EngineVersion, ir.EventVersion)
	}
}

func TestMemoryStore(t *testing.T) {
	s, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("Open(MemoryPath) failed: %v", err)
	}
	defer s.Close()

	c, _ := createTestCommit(t, 1, "tx-0001", 0)
	writeCommits(t, s, c)

	events, err := s.ReadEvents(context.Background(), 0)
	if err != nil {
		t.Fatalf("ReadEvents() failed: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("len(events) = %d, want 1", len(events))
	}
}
