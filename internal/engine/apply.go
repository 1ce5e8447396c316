package engine

import (
	"fmt"

	"github.com/roach88/tokensale/internal/ir"
	"github.com/roach88/tokensale/internal/ledger"
)

// apply folds one event into a ledger transaction. It is the only code that
// mutates the ledger: live operations emit events through it and Replay
// feeds it the persisted log, so both paths produce the same state.
//
// apply checks consistency (balances, counters) but not authorization or
// payment; those are the operation's job before it emits.
func apply(tx *ledger.Tx, kind ir.EventKind, asset ir.Address, p ir.IRObject) error {
	switch kind {
	case ir.EventCreated:
		return applyCreated(tx, asset, p)
	case ir.EventPurchased:
		return applyPurchased(tx, asset, p)
	case ir.EventSaleClosed:
		return applySaleClosed(tx, asset)
	case ir.EventDeposited:
		return applyDeposited(tx, asset, p)
	case ir.EventFeeWithdrawn:
		amount, err := p.Amount("amount")
		if err != nil {
			return err
		}
		return tx.Debit(amount)
	case ir.EventOwnershipTransferred:
		to, err := p.Address("to")
		if err != nil {
			return err
		}
		tx.SetOwner(to)
		return nil
	case ir.EventTransferred:
		from, err := p.Address("from")
		if err != nil {
			return err
		}
		to, err := p.Address("to")
		if err != nil {
			return err
		}
		amount, err := p.Amount("amount")
		if err != nil {
			return err
		}
		return tx.Transfer(asset, from, to, amount)
	}
	return fmt.Errorf("apply: unknown event kind %q", kind)
}

func applyCreated(tx *ledger.Tx, addr ir.Address, p ir.IRObject) error {
	creator, err := p.Address("creator")
	if err != nil {
		return err
	}
	name, err := p.String("name")
	if err != nil {
		return err
	}
	symbol, err := p.String("symbol")
	if err != nil {
		return err
	}
	supply, err := p.Amount("supply")
	if err != nil {
		return err
	}
	index, err := p.Int("index")
	if err != nil {
		return err
	}
	fee, err := p.Amount("fee")
	if err != nil {
		return err
	}
	if index != int64(tx.SaleCount()) {
		return fmt.Errorf("apply Created: registry index %d, expected %d", index, tx.SaleCount())
	}

	asset := ir.Asset{
		Address:     addr,
		Index:       index,
		Name:        name,
		Symbol:      symbol,
		TotalSupply: supply,
		Creator:     creator,
	}
	sale := ir.Sale{
		Asset:   addr,
		Creator: creator,
		Sold:    ir.ZeroAmount(),
		Raised:  ir.ZeroAmount(),
		Held:    ir.ZeroAmount(),
		Open:    true,
	}
	if err := tx.Register(asset, sale, ir.EscrowAddress); err != nil {
		return err
	}
	return tx.Credit(fee)
}

func applyPurchased(tx *ledger.Tx, asset ir.Address, p ir.IRObject) error {
	sale, ok := tx.Sale(asset)
	if !ok {
		return fmt.Errorf("%w: sale %s", ledger.ErrNotFound, asset)
	}
	if !sale.Open {
		return fmt.Errorf("apply Purchased: sale %s is closed", asset)
	}
	buyer, err := p.Address("buyer")
	if err != nil {
		return err
	}
	amount, err := p.Amount("amount")
	if err != nil {
		return err
	}
	paid, err := p.Amount("paid")
	if err != nil {
		return err
	}

	sold, err := sale.Sold.Add(amount)
	if err != nil {
		return err
	}
	raised, err := sale.Raised.Add(paid)
	if err != nil {
		return err
	}
	held, err := sale.Held.Add(paid)
	if err != nil {
		return err
	}
	if err := checkCounter(p, "sold", sold); err != nil {
		return err
	}
	if err := checkCounter(p, "raised", raised); err != nil {
		return err
	}

	if err := tx.Transfer(asset, ir.EscrowAddress, buyer, amount); err != nil {
		return err
	}
	sale.Sold, sale.Raised, sale.Held = sold, raised, held
	return tx.PutSale(sale)
}

func applySaleClosed(tx *ledger.Tx, asset ir.Address) error {
	sale, ok := tx.Sale(asset)
	if !ok {
		return fmt.Errorf("%w: sale %s", ledger.ErrNotFound, asset)
	}
	if !sale.Open {
		return fmt.Errorf("apply SaleClosed: sale %s already closed", asset)
	}
	sale.Open = false
	return tx.PutSale(sale)
}

func applyDeposited(tx *ledger.Tx, asset ir.Address, p ir.IRObject) error {
	sale, ok := tx.Sale(asset)
	if !ok {
		return fmt.Errorf("%w: sale %s", ledger.ErrNotFound, asset)
	}
	if sale.Open {
		return fmt.Errorf("apply Deposited: sale %s is open", asset)
	}
	creator, err := p.Address("creator")
	if err != nil {
		return err
	}
	amount, err := p.Amount("amount")
	if err != nil {
		return err
	}
	proceeds, err := p.Amount("proceeds")
	if err != nil {
		return err
	}
	held, err := sale.Held.Sub(proceeds)
	if err != nil {
		return fmt.Errorf("apply Deposited: proceeds %s exceed held %s", proceeds, sale.Held)
	}
	if err := tx.Transfer(asset, ir.EscrowAddress, creator, amount); err != nil {
		return err
	}
	sale.Held = held
	return tx.PutSale(sale)
}

// checkCounter verifies a post-state counter recorded in a payload.
func checkCounter(p ir.IRObject, key string, want ir.Amount) error {
	got, err := p.Amount(key)
	if err != nil {
		return err
	}
	if !got.Equal(want) {
		return fmt.Errorf("apply: %s recorded %s, computed %s", key, got, want)
	}
	return nil
}
