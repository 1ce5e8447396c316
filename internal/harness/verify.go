package harness

import (
	"context"
	"fmt"

	"github.com/roach88/tokensale/internal/engine"
	"github.com/roach88/tokensale/internal/ir"
	"github.com/roach88/tokensale/internal/store"
)

// VerifyReport is the outcome of Verify.
type VerifyReport struct {
	Log      store.LogReport `json:"log"`
	Seq      int64           `json:"seq"`
	Sales    int             `json:"sales"`
	Problems []string        `json:"problems,omitempty"`
}

// OK reports whether verification found nothing wrong.
func (r *VerifyReport) OK() bool {
	return len(r.Problems) == 0
}

func (r *VerifyReport) addf(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// Verify audits a store: the event log must be intact, replaying it must
// succeed and satisfy the ledger invariants, and every projection table
// must equal the replayed state.
//
// Problems are collected in the report. A returned error means the store
// could not be read.
func Verify(ctx context.Context, params engine.Params, st *store.Store) (*VerifyReport, error) {
	log, err := st.CheckLog(ctx)
	if err != nil {
		return nil, err
	}
	report := &VerifyReport{Log: log, Seq: log.LastSeq}
	for _, gap := range log.Gaps {
		report.addf("event log: missing seq %s", gap)
	}
	for _, seq := range log.BadIDs {
		report.addf("event log: seq %d id does not match content", seq)
	}
	for _, token := range log.Split {
		report.addf("event log: tx %s is not contiguous", token)
	}
	if !log.OK() {
		return report, nil
	}

	eng, err := engine.Replay(ctx, params, st)
	if err != nil {
		report.addf("%v", err)
		return report, nil
	}
	report.Seq = eng.Seq()
	report.Sales = eng.SaleCount()

	if err := eng.CheckInvariants(); err != nil {
		report.addf("invariants: %v", err)
	}

	snap, err := st.ReadSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	report.Problems = append(report.Problems, compareSnapshot(eng, snap)...)
	return report, nil
}

// compareSnapshot lists every difference between the projections and a
// replayed engine.
func compareSnapshot(eng *engine.Engine, snap store.Snapshot) []string {
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if snap.Seq != eng.Seq() {
		addf("seq: store %d, replay %d", snap.Seq, eng.Seq())
	}

	assets := eng.Assets()
	if len(snap.Assets) != len(assets) {
		addf("assets: store has %d, replay has %d", len(snap.Assets), len(assets))
	}
	for _, want := range assets {
		got, ok := findAsset(snap.Assets, want.Address)
		switch {
		case !ok:
			addf("asset %s: missing from store", want.Address)
		case got.Index != want.Index || got.Name != want.Name || got.Symbol != want.Symbol ||
			got.Creator != want.Creator || !got.TotalSupply.Equal(want.TotalSupply):
			addf("asset %s: store %+v, replay %+v", want.Address, got, want)
		}
	}

	for _, want := range eng.Sales() {
		got, ok := findSale(snap.Sales, want.Asset)
		switch {
		case !ok:
			addf("sale %s: missing from store", want.Asset)
		case got.Open != want.Open || got.Creator != want.Creator || !got.Sold.Equal(want.Sold) ||
			!got.Raised.Equal(want.Raised) || !got.Held.Equal(want.Held):
			addf("sale %s: store sold=%s raised=%s held=%s open=%t, replay sold=%s raised=%s held=%s open=%t",
				want.Asset, got.Sold, got.Raised, got.Held, got.Open,
				want.Sold, want.Raised, want.Held, want.Open)
		}

		stored := make(map[ir.Address]ir.Amount)
		for _, b := range snap.Balances[want.Asset] {
			stored[b.Holder] = b.Amount
		}
		holders := eng.Holders(want.Asset)
		if len(stored) != len(holders) {
			addf("balances %s: store has %d holders, replay has %d", want.Asset, len(stored), len(holders))
		}
		for _, b := range holders {
			if amt, ok := stored[b.Holder]; !ok || !amt.Equal(b.Amount) {
				addf("balance %s/%s: store %s, replay %s", want.Asset, b.Holder, amt, b.Amount)
			}
		}
	}

	vault := eng.FeeVault()
	switch {
	case !snap.HasVault:
		if !vault.Balance.IsZero() || eng.Seq() != 0 {
			addf("vault: missing from store")
		}
	case !snap.Vault.Balance.Equal(vault.Balance) || snap.Vault.Owner != vault.Owner:
		addf("vault: store balance=%s owner=%s, replay balance=%s owner=%s",
			snap.Vault.Balance, snap.Vault.Owner, vault.Balance, vault.Owner)
	}
	return problems
}

func findAsset(assets []ir.Asset, addr ir.Address) (ir.Asset, bool) {
	for _, a := range assets {
		if a.Address == addr {
			return a, true
		}
	}
	return ir.Asset{}, false
}

func findSale(sales []ir.Sale, addr ir.Address) (ir.Sale, bool) {
	for _, s := range sales {
		if s.Asset == addr {
			return s, true
		}
	}
	return ir.Sale{}, false
}
