package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/roach88/tokensale/internal/ir"
)

// EventView is an event as shown to users: amounts in whole units.
type EventView struct {
	Seq     int64                  `json:"seq"`
	TxToken string                 `json:"tx_token"`
	Kind    string                 `json:"kind"`
	Asset   string                 `json:"asset,omitempty"`
	Fields  map[string]interface{} `json:"fields"`
}

// CommitView is the result of a mutating command.
type CommitView struct {
	Op      string      `json:"op"`
	TxToken string      `json:"tx_token,omitempty"`
	Events  []EventView `json:"events"`
}

// SaleView joins a sale with its asset.
type SaleView struct {
	Index       int64  `json:"index"`
	Asset       string `json:"asset"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Creator     string `json:"creator"`
	TotalSupply string `json:"total_supply"`
	Sold        string `json:"sold"`
	Raised      string `json:"raised"`
	Held        string `json:"held"`
	Open        bool   `json:"open"`
}

// HolderView is one balance of an asset.
type HolderView struct {
	Holder string `json:"holder"`
	Amount string `json:"amount"`
	Escrow bool   `json:"escrow,omitempty"`
}

func newEventView(ev ir.Event) EventView {
	v := EventView{
		Seq:     ev.Seq,
		TxToken: ev.TxToken,
		Kind:    string(ev.Kind),
		Fields:  renderPayload(ev.Payload),
	}
	if !ev.Asset.IsZero() {
		v.Asset = ev.Asset.String()
	}
	return v
}

func newCommitView(c ir.Commit) CommitView {
	v := CommitView{Op: c.Op, TxToken: c.TxToken, Events: make([]EventView, 0, len(c.Events))}
	for _, ev := range c.Events {
		v.Events = append(v.Events, newEventView(ev))
	}
	return v
}

func newSaleView(a ir.Asset, s ir.Sale) SaleView {
	return SaleView{
		Index:       a.Index,
		Asset:       a.Address.String(),
		Name:        a.Name,
		Symbol:      a.Symbol,
		Creator:     s.Creator.String(),
		TotalSupply: ir.FormatUnits(a.TotalSupply),
		Sold:        ir.FormatUnits(s.Sold),
		Raised:      ir.FormatUnits(s.Raised),
		Held:        ir.FormatUnits(s.Held),
		Open:        s.Open,
	}
}

// renderPayload converts payload amounts to whole units. Addresses and
// text stay as stored.
func renderPayload(p ir.IRObject) map[string]interface{} {
	out := make(map[string]interface{}, len(p))
	for k, v := range p {
		switch val := v.(type) {
		case ir.IRInt:
			out[k] = int64(val)
		case ir.IRBool:
			out[k] = bool(val)
		case ir.IRString:
			out[k] = renderString(k, string(val))
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

func renderString(key, s string) string {
	if ir.PayloadFieldKind(key) != ir.FieldAmount {
		return s
	}
	if amt, err := ir.ParseAmount(s); err == nil {
		return ir.FormatUnits(amt)
	}
	return s
}

func writeEvent(w io.Writer, ev EventView) {
	fmt.Fprintf(w, "  [%d] %s", ev.Seq, ev.Kind)
	if ev.Asset != "" {
		fmt.Fprintf(w, " asset=%s", shortHex(ev.Asset))
	}
	keys := make([]string, 0, len(ev.Fields))
	for k := range ev.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		val := fmt.Sprint(ev.Fields[k])
		if ir.PayloadFieldKind(k) == ir.FieldAddress {
			val = shortHex(val)
		}
		fmt.Fprintf(w, " %s=%s", k, val)
	}
	fmt.Fprintln(w)
}

func writeCommit(w io.Writer, v CommitView) {
	if len(v.Events) == 0 {
		fmt.Fprintf(w, "%s: no changes\n", v.Op)
		return
	}
	fmt.Fprintf(w, "✓ %s committed (tx %s)\n", v.Op, v.TxToken)
	for _, ev := range v.Events {
		writeEvent(w, ev)
	}
}

// shortHex abbreviates a hex address for text output.
func shortHex(s string) string {
	if addr, err := ir.ParseAddress(s); err == nil {
		return addr.Short()
	}
	return s
}
