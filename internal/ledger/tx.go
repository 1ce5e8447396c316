package ledger

import (
	"fmt"

	"github.com/roach88/tokensale/internal/ir"
)

type balanceKey struct {
	asset  ir.Address
	holder ir.Address
}

// Tx stages writes against a State. Reads see staged writes first.
// A Tx is single use: after Commit it must be discarded.
type Tx struct {
	base *State

	assets     map[ir.Address]ir.Asset
	newAssets  []ir.Address
	sales      map[ir.Address]ir.Sale
	saleOrder  []ir.Address
	balances   map[balanceKey]ir.Amount
	balanceOrd []balanceKey
	vault      *ir.Vault
}

// Changes lists the post-state of every row a Tx wrote, in first-write order.
type Changes struct {
	Assets   []ir.Asset
	Sales    []ir.Sale
	Balances []ir.Balance
	Vault    *ir.Vault
}

// Asset returns the asset at addr, including one registered in this Tx.
func (tx *Tx) Asset(addr ir.Address) (ir.Asset, bool) {
	if a, ok := tx.assets[addr]; ok {
		return a, true
	}
	return tx.base.Asset(addr)
}

// Sale returns the staged or committed sale of asset.
func (tx *Tx) Sale(asset ir.Address) (ir.Sale, bool) {
	if s, ok := tx.sales[asset]; ok {
		return s, true
	}
	return tx.base.Sale(asset)
}

// SaleCount includes assets registered in this Tx.
func (tx *Tx) SaleCount() int {
	return tx.base.SaleCount() + len(tx.newAssets)
}

// Balance returns the staged or committed balance.
func (tx *Tx) Balance(asset, holder ir.Address) ir.Amount {
	if amt, ok := tx.balances[balanceKey{asset, holder}]; ok {
		return amt
	}
	return tx.base.Balance(asset, holder)
}

// Vault returns the staged or committed fee vault.
func (tx *Tx) Vault() ir.Vault {
	if tx.vault != nil {
		return *tx.vault
	}
	return tx.base.Vault()
}

// Register adds a new asset with its sale and mints the entire supply to
// holder.
func (tx *Tx) Register(asset ir.Asset, sale ir.Sale, holder ir.Address) error {
	if _, ok := tx.Asset(asset.Address); ok {
		return fmt.Errorf("%w: asset %s", ErrAlreadyExists, asset.Address)
	}
	if sale.Asset != asset.Address {
		return fmt.Errorf("sale for %s registered under asset %s", sale.Asset, asset.Address)
	}
	tx.assets[asset.Address] = asset
	tx.newAssets = append(tx.newAssets, asset.Address)
	tx.putSale(sale)
	tx.setBalance(asset.Address, holder, asset.TotalSupply)
	return nil
}

// PutSale replaces the sale record of an existing asset.
func (tx *Tx) PutSale(sale ir.Sale) error {
	if _, ok := tx.Sale(sale.Asset); !ok {
		return fmt.Errorf("%w: sale %s", ErrNotFound, sale.Asset)
	}
	tx.putSale(sale)
	return nil
}

// Transfer moves amount units of asset from one holder to another. Both
// balances change together or not at all.
func (tx *Tx) Transfer(asset, from, to ir.Address, amount ir.Amount) error {
	if _, ok := tx.Asset(asset); !ok {
		return fmt.Errorf("%w: asset %s", ErrNotFound, asset)
	}
	if amount.IsZero() || from == to {
		return nil
	}
	fromBal, err := tx.Balance(asset, from).Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: %s holds %s of %s, needs %s",
			ErrInsufficientBalance, from, tx.Balance(asset, from), asset, amount)
	}
	toBal, err := tx.Balance(asset, to).Add(amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", to, err)
	}
	tx.setBalance(asset, from, fromBal)
	tx.setBalance(asset, to, toBal)
	return nil
}

// Credit adds amount to the fee vault.
func (tx *Tx) Credit(amount ir.Amount) error {
	v := tx.Vault()
	bal, err := v.Balance.Add(amount)
	if err != nil {
		return fmt.Errorf("credit vault: %w", err)
	}
	v.Balance = bal
	tx.vault = &v
	return nil
}

// Debit removes amount from the fee vault.
func (tx *Tx) Debit(amount ir.Amount) error {
	v := tx.Vault()
	bal, err := v.Balance.Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: vault holds %s, needs %s", ErrInsufficientFunds, v.Balance, amount)
	}
	v.Balance = bal
	tx.vault = &v
	return nil
}

// SetOwner reassigns the vault owner.
func (tx *Tx) SetOwner(owner ir.Address) {
	v := tx.Vault()
	v.Owner = owner
	tx.vault = &v
}

// Changes returns the rows written so far without committing.
func (tx *Tx) Changes() Changes {
	var ch Changes
	for _, addr := range tx.newAssets {
		ch.Assets = append(ch.Assets, tx.assets[addr])
	}
	for _, addr := range tx.saleOrder {
		ch.Sales = append(ch.Sales, tx.sales[addr])
	}
	for _, k := range tx.balanceOrd {
		ch.Balances = append(ch.Balances, ir.Balance{Asset: k.asset, Holder: k.holder, Amount: tx.balances[k]})
	}
	if tx.vault != nil {
		v := *tx.vault
		ch.Vault = &v
	}
	return ch
}

// Commit applies every staged write to the base State and returns them.
func (tx *Tx) Commit() Changes {
	s := tx.base
	for _, addr := range tx.newAssets {
		s.assets[addr] = tx.assets[addr]
		s.order = append(s.order, addr)
	}
	for addr, sale := range tx.sales {
		s.sales[addr] = sale
	}
	for k, amt := range tx.balances {
		m, ok := s.balances[k.asset]
		if !ok {
			m = make(map[ir.Address]ir.Amount)
			s.balances[k.asset] = m
		}
		m[k.holder] = amt
	}
	if tx.vault != nil {
		s.vault = *tx.vault
	}
	return tx.Changes()
}

func (tx *Tx) putSale(sale ir.Sale) {
	if _, ok := tx.sales[sale.Asset]; !ok {
		tx.saleOrder = append(tx.saleOrder, sale.Asset)
	}
	tx.sales[sale.Asset] = sale
}

func (tx *Tx) setBalance(asset, holder ir.Address, amt ir.Amount) {
	k := balanceKey{asset, holder}
	if _, ok := tx.balances[k]; !ok {
		tx.balanceOrd = append(tx.balanceOrd, k)
	}
	tx.balances[k] = amt
}
