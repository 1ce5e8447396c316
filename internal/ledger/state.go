package ledger

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/roach88/tokensale/internal/ir"
)

// State is the committed ledger.
type State struct {
	assets   map[ir.Address]ir.Asset
	order    []ir.Address // registry, in creation order
	sales    map[ir.Address]ir.Sale
	balances map[ir.Address]map[ir.Address]ir.Amount
	vault    ir.Vault
}

// New returns an empty ledger owned by owner.
func New(owner ir.Address) *State {
	return &State{
		assets:   make(map[ir.Address]ir.Asset),
		sales:    make(map[ir.Address]ir.Sale),
		balances: make(map[ir.Address]map[ir.Address]ir.Amount),
		vault:    ir.Vault{Balance: ir.ZeroAmount(), Owner: owner},
	}
}

// Asset returns the asset registered at addr.
func (s *State) Asset(addr ir.Address) (ir.Asset, bool) {
	a, ok := s.assets[addr]
	return a, ok
}

// Sale returns the sale record of asset.
func (s *State) Sale(asset ir.Address) (ir.Sale, bool) {
	sale, ok := s.sales[asset]
	return sale, ok
}

// SaleCount returns the number of registered sales.
func (s *State) SaleCount() int {
	return len(s.order)
}

// SaleAt returns the i-th sale in creation order.
func (s *State) SaleAt(i int) (ir.Sale, bool) {
	if i < 0 || i >= len(s.order) {
		return ir.Sale{}, false
	}
	return s.sales[s.order[i]], true
}

// Sales returns every sale in creation order.
func (s *State) Sales() []ir.Sale {
	out := make([]ir.Sale, 0, len(s.order))
	for _, addr := range s.order {
		out = append(out, s.sales[addr])
	}
	return out
}

// Assets returns every asset in creation order.
func (s *State) Assets() []ir.Asset {
	out := make([]ir.Asset, 0, len(s.order))
	for _, addr := range s.order {
		out = append(out, s.assets[addr])
	}
	return out
}

// Balance returns holder's balance of asset. Unknown pairs are zero.
func (s *State) Balance(asset, holder ir.Address) ir.Amount {
	if amt, ok := s.balances[asset][holder]; ok {
		return amt
	}
	return ir.ZeroAmount()
}

// Holders returns the non-zero balances of asset ordered by holder address.
func (s *State) Holders(asset ir.Address) []ir.Balance {
	out := make([]ir.Balance, 0, len(s.balances[asset]))
	for holder, amt := range s.balances[asset] {
		if amt.IsZero() {
			continue
		}
		out = append(out, ir.Balance{Asset: asset, Holder: holder, Amount: amt})
	}
	slices.SortFunc(out, func(a, b ir.Balance) int {
		return bytes.Compare(a.Holder[:], b.Holder[:])
	})
	return out
}

// Vault returns the fee vault.
func (s *State) Vault() ir.Vault {
	return s.vault
}

// CheckSupply verifies that the balances of every asset sum to its total
// supply and that no sale has sold more than it.
func (s *State) CheckSupply() error {
	for _, addr := range s.order {
		asset := s.assets[addr]
		sum := ir.ZeroAmount()
		for _, amt := range s.balances[addr] {
			var err error
			if sum, err = sum.Add(amt); err != nil {
				return fmt.Errorf("asset %s: %w", addr, err)
			}
		}
		if !sum.Equal(asset.TotalSupply) {
			return fmt.Errorf("%w: asset %s holds %s, supply %s", ErrSupplyMismatch, addr, sum, asset.TotalSupply)
		}
		if sale := s.sales[addr]; sale.Sold.GT(asset.TotalSupply) {
			return fmt.Errorf("%w: asset %s sold %s of %s", ErrSupplyMismatch, addr, sale.Sold, asset.TotalSupply)
		}
	}
	return nil
}

// Begin starts a transaction against s.
func (s *State) Begin() *Tx {
	return &Tx{
		base:     s,
		assets:   make(map[ir.Address]ir.Asset),
		sales:    make(map[ir.Address]ir.Sale),
		balances: make(map[balanceKey]ir.Amount),
	}
}
