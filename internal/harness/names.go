package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/tokensale/internal/ir"
)

// names maps scenario aliases to addresses and back.
//
// Accounts are labels hashed with ir.AccountAddress (or literal 0x
// addresses). Assets are aliases bound by create steps. An asset alias that
// was never bound still resolves, to an address with no sale, so scenarios
// can exercise NOT_FOUND.
type names struct {
	assets map[string]ir.Address
	byAddr map[ir.Address]string
}

func newNames() *names {
	n := &names{
		assets: make(map[string]ir.Address),
		byAddr: make(map[ir.Address]string),
	}
	n.byAddr[ir.EscrowAddress] = "escrow"
	return n
}

// account resolves an account reference and remembers its label.
func (n *names) account(ref string) (ir.Address, error) {
	addr, err := ir.ResolveAccount(ref)
	if err != nil {
		return ir.Address{}, err
	}
	label := strings.TrimSpace(ref)
	if _, ok := n.byAddr[addr]; !ok && !isHex(label) {
		n.byAddr[addr] = label
	}
	return addr, nil
}

// asset resolves an asset alias or 0x address.
func (n *names) asset(ref string) (ir.Address, error) {
	ref = strings.TrimSpace(ref)
	if addr, ok := n.assets[ref]; ok {
		return addr, nil
	}
	if isHex(ref) {
		return ir.ParseAddress(ref)
	}
	if ref == "" {
		return ir.Address{}, fmt.Errorf("asset reference is empty")
	}
	addr := ir.AccountAddress("asset:" + ref)
	n.byAddr[addr] = ref
	return addr, nil
}

// bindAsset names a freshly created asset.
func (n *names) bindAsset(alias string, addr ir.Address) error {
	if prev, ok := n.assets[alias]; ok && prev != addr {
		return fmt.Errorf("asset alias %q already bound to %s", alias, n.render(prev))
	}
	n.assets[alias] = addr
	n.byAddr[addr] = alias
	return nil
}

// render returns the alias of addr, or its hex form. The zero address
// renders empty.
func (n *names) render(addr ir.Address) string {
	if addr.IsZero() {
		return ""
	}
	if label, ok := n.byAddr[addr]; ok {
		return label
	}
	return addr.String()
}

// lookup resolves any rendered name (account label, asset alias, 0x) back
// to an address. Used for final_state filters.
func (n *names) lookup(ref string) (ir.Address, error) {
	if addr, ok := n.assets[ref]; ok {
		return addr, nil
	}
	return ir.ResolveAccount(ref)
}

func isHex(s string) bool {
	return strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")
}

// renderPayload converts an event payload for the trace: addresses by
// alias, amounts in whole units, counters as integers.
func (n *names) renderPayload(p ir.IRObject) map[string]interface{} {
	out := make(map[string]interface{}, len(p))
	for k, v := range p {
		switch val := v.(type) {
		case ir.IRInt:
			out[k] = int64(val)
		case ir.IRBool:
			out[k] = bool(val)
		case ir.IRString:
			out[k] = n.renderString(k, string(val))
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}

func (n *names) renderString(key, s string) string {
	switch ir.PayloadFieldKind(key) {
	case ir.FieldText:
		return s
	case ir.FieldAddress:
		if addr, err := ir.ParseAddress(s); err == nil {
			return n.render(addr)
		}
		return s
	}
	if amt, err := ir.ParseAmount(s); err == nil {
		return ir.FormatUnits(amt)
	}
	return s
}
