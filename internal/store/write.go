package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tokensale/internal/ir"
)

// ErrConfigExists is returned when initializing an already initialized store.
var ErrConfigExists = errors.New("store: config already written")

// WriteCommit writes one committed operation (its events and every row it
// touched) in a single transaction. Either all of it is durable or none.
//
// Idempotent: events use ON CONFLICT(id) DO NOTHING, and projection rows
// only move forward (a row is replaced only by one from an equal or later
// seq), so writing the same commit twice is a no-op.
func (s *Store) WriteCommit(ctx context.Context, c ir.Commit) error {
	if len(c.Events) == 0 {
		return nil
	}
	seq := c.LastSeq()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write commit: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, ev := range c.Events {
		if err := writeEvent(ctx, tx, ev); err != nil {
			return err
		}
	}
	for _, a := range c.Assets {
		if err := writeAsset(ctx, tx, a, seq); err != nil {
			return err
		}
	}
	for _, sale := range c.Sales {
		if err := writeSale(ctx, tx, sale, seq); err != nil {
			return err
		}
	}
	for _, b := range c.Balances {
		if err := writeBalance(ctx, tx, b, seq); err != nil {
			return err
		}
	}
	if c.Vault != nil {
		if err := writeVault(ctx, tx, *c.Vault, seq); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write commit: commit tx: %w", err)
	}
	return nil
}

func writeEvent(ctx context.Context, tx *sql.Tx, ev ir.Event) error {
	payload, err := marshalPayload(ev.Payload)
	if err != nil {
		return fmt.Errorf("write event seq=%d: %w", ev.Seq, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (seq, id, tx_token, kind, asset, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, ev.Seq, ev.ID, ev.TxToken, string(ev.Kind), ev.Asset.String(), payload)
	if err != nil {
		return fmt.Errorf("write event seq=%d: %w", ev.Seq, err)
	}
	return nil
}

func writeAsset(ctx context.Context, tx *sql.Tx, a ir.Asset, seq int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO assets (address, idx, name, symbol, total_supply, creator, created_seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(address) DO NOTHING
	`, a.Address.String(), a.Index, a.Name, a.Symbol, a.TotalSupply.String(), a.Creator.String(), seq)
	if err != nil {
		return fmt.Errorf("write asset %s: %w", a.Address, err)
	}
	return nil
}

func writeSale(ctx context.Context, tx *sql.Tx, sale ir.Sale, seq int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO sales (asset, creator, sold, raised, held, is_open, updated_seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(asset) DO UPDATE SET
			sold = excluded.sold,
			raised = excluded.raised,
			held = excluded.held,
			is_open = excluded.is_open,
			updated_seq = excluded.updated_seq
		WHERE excluded.updated_seq >= sales.updated_seq
	`, sale.Asset.String(), sale.Creator.String(), sale.Sold.String(), sale.Raised.String(),
		sale.Held.String(), boolToInt(sale.Open), seq)
	if err != nil {
		return fmt.Errorf("write sale %s: %w", sale.Asset, err)
	}
	return nil
}

func writeBalance(ctx context.Context, tx *sql.Tx, b ir.Balance, seq int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO balances (asset, holder, amount, updated_seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(asset, holder) DO UPDATE SET
			amount = excluded.amount,
			updated_seq = excluded.updated_seq
		WHERE excluded.updated_seq >= balances.updated_seq
	`, b.Asset.String(), b.Holder.String(), b.Amount.String(), seq)
	if err != nil {
		return fmt.Errorf("write balance %s/%s: %w", b.Asset, b.Holder, err)
	}
	return nil
}

func writeVault(ctx context.Context, tx *sql.Tx, v ir.Vault, seq int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO vault (id, balance, owner, updated_seq)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			balance = excluded.balance,
			owner = excluded.owner,
			updated_seq = excluded.updated_seq
		WHERE excluded.updated_seq >= vault.updated_seq
	`, v.Balance.String(), v.Owner.String(), seq)
	if err != nil {
		return fmt.Errorf("write vault: %w", err)
	}
	return nil
}

// WriteConfig stores the deployment configuration. A store holds exactly
// one configuration for its whole life; a second write fails with
// ErrConfigExists.
func (s *Store) WriteConfig(ctx context.Context, body []byte) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO config (id, body, engine_version, event_version)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, string(body), ir.EngineVersion, ir.EventVersion)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if n == 0 {
		return ErrConfigExists
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
