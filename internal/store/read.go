package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tokensale/internal/ir"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// ReadEvents returns every event with seq > afterSeq in seq order.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ReadEvents(ctx context.Context, afterSeq int64) ([]ir.Event, error) {
	return s.queryEvents(ctx, `
		SELECT seq, id, tx_token, kind, asset, payload
		FROM events
		WHERE seq > ?
		ORDER BY seq ASC
	`, afterSeq)
}

// ReadEventsByTx returns the events of one operation in seq order.
func (s *Store) ReadEventsByTx(ctx context.Context, txToken string) ([]ir.Event, error) {
	return s.queryEvents(ctx, `
		SELECT seq, id, tx_token, kind, asset, payload
		FROM events
		WHERE tx_token = ?
		ORDER BY seq ASC
	`, txToken)
}

// ReadEventsByAsset returns the events about one asset in seq order.
func (s *Store) ReadEventsByAsset(ctx context.Context, asset ir.Address) ([]ir.Event, error) {
	return s.queryEvents(ctx, `
		SELECT seq, id, tx_token, kind, asset, payload
		FROM events
		WHERE asset = ?
		ORDER BY seq ASC
	`, asset.String())
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]ir.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []ir.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func scanEvent(row rowScanner) (ir.Event, error) {
	var (
		ev      ir.Event
		kind    string
		asset   string
		payload string
	)
	if err := row.Scan(&ev.Seq, &ev.ID, &ev.TxToken, &kind, &asset, &payload); err != nil {
		return ir.Event{}, fmt.Errorf("scan event: %w", err)
	}
	ev.Kind = ir.EventKind(kind)

	var err error
	if ev.Asset, err = parseAddress("asset", asset); err != nil {
		return ir.Event{}, fmt.Errorf("event seq=%d: %w", ev.Seq, err)
	}
	if ev.Payload, err = unmarshalPayload(payload); err != nil {
		return ir.Event{}, fmt.Errorf("event seq=%d: %w", ev.Seq, err)
	}
	return ev, nil
}

// LastSeq returns the highest persisted seq, or 0 for an empty log.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM events`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

// ReadAssets returns every asset in registry order.
func (s *Store) ReadAssets(ctx context.Context) ([]ir.Asset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT address, idx, name, symbol, total_supply, creator
		FROM assets
		ORDER BY idx ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	assets := []ir.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return assets, nil
}

// ReadAsset returns one asset. The error wraps sql.ErrNoRows if not found.
func (s *Store) ReadAsset(ctx context.Context, addr ir.Address) (ir.Asset, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT address, idx, name, symbol, total_supply, creator
		FROM assets
		WHERE address = ?
	`, addr.String())
	return scanAsset(row)
}

func scanAsset(row rowScanner) (ir.Asset, error) {
	var (
		a                     ir.Asset
		addr, supply, creator string
	)
	if err := row.Scan(&addr, &a.Index, &a.Name, &a.Symbol, &supply, &creator); err != nil {
		return ir.Asset{}, fmt.Errorf("scan asset: %w", err)
	}
	var err error
	if a.Address, err = parseAddress("address", addr); err != nil {
		return ir.Asset{}, err
	}
	if a.TotalSupply, err = parseAmount("total_supply", supply); err != nil {
		return ir.Asset{}, err
	}
	if a.Creator, err = parseAddress("creator", creator); err != nil {
		return ir.Asset{}, err
	}
	return a, nil
}

// ReadSales returns every sale in registry order.
func (s *Store) ReadSales(ctx context.Context) ([]ir.Sale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.asset, s.creator, s.sold, s.raised, s.held, s.is_open
		FROM sales s
		JOIN assets a ON a.address = s.asset
		ORDER BY a.idx ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	sales := []ir.Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sales: %w", err)
	}
	return sales, nil
}

// ReadSale returns one sale. The error wraps sql.ErrNoRows if not found.
func (s *Store) ReadSale(ctx context.Context, asset ir.Address) (ir.Sale, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT asset, creator, sold, raised, held, is_open
		FROM sales
		WHERE asset = ?
	`, asset.String())
	return scanSale(row)
}

func scanSale(row rowScanner) (ir.Sale, error) {
	var (
		sale                               ir.Sale
		asset, creator, sold, raised, held string
		open                               int
	)
	if err := row.Scan(&asset, &creator, &sold, &raised, &held, &open); err != nil {
		return ir.Sale{}, fmt.Errorf("scan sale: %w", err)
	}
	var err error
	if sale.Asset, err = parseAddress("asset", asset); err != nil {
		return ir.Sale{}, err
	}
	if sale.Creator, err = parseAddress("creator", creator); err != nil {
		return ir.Sale{}, err
	}
	if sale.Sold, err = parseAmount("sold", sold); err != nil {
		return ir.Sale{}, err
	}
	if sale.Raised, err = parseAmount("raised", raised); err != nil {
		return ir.Sale{}, err
	}
	if sale.Held, err = parseAmount("held", held); err != nil {
		return ir.Sale{}, err
	}
	sale.Open = open == 1
	return sale, nil
}

// ReadBalances returns the non-zero balances of asset ordered by holder.
func (s *Store) ReadBalances(ctx context.Context, asset ir.Address) ([]ir.Balance, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asset, holder, amount
		FROM balances
		WHERE asset = ? AND amount != '0'
		ORDER BY holder COLLATE BINARY ASC
	`, asset.String())
	if err != nil {
		return nil, fmt.Errorf("query balances: %w", err)
	}
	defer rows.Close()

	balances := []ir.Balance{}
	for rows.Next() {
		var assetCol, holder, amount string
		if err := rows.Scan(&assetCol, &holder, &amount); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		var b ir.Balance
		if b.Asset, err = parseAddress("asset", assetCol); err != nil {
			return nil, err
		}
		if b.Holder, err = parseAddress("holder", holder); err != nil {
			return nil, err
		}
		if b.Amount, err = parseAmount("amount", amount); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}
	return balances, nil
}

// ReadBalance returns holder's balance of asset, zero if none was written.
func (s *Store) ReadBalance(ctx context.Context, asset, holder ir.Address) (ir.Amount, error) {
	var amount string
	err := s.db.QueryRowContext(ctx, `
		SELECT amount FROM balances WHERE asset = ? AND holder = ?
	`, asset.String(), holder.String()).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.ZeroAmount(), nil
	}
	if err != nil {
		return ir.Amount{}, fmt.Errorf("read balance: %w", err)
	}
	return parseAmount("amount", amount)
}

// ReadVault returns the fee vault. ok is false until the first commit that
// touches the vault.
func (s *Store) ReadVault(ctx context.Context) (v ir.Vault, ok bool, err error) {
	var balance, owner string
	err = s.db.QueryRowContext(ctx, `SELECT balance, owner FROM vault WHERE id = 1`).Scan(&balance, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Vault{}, false, nil
	}
	if err != nil {
		return ir.Vault{}, false, fmt.Errorf("read vault: %w", err)
	}
	if v.Balance, err = parseAmount("balance", balance); err != nil {
		return ir.Vault{}, false, err
	}
	if v.Owner, err = parseAddress("owner", owner); err != nil {
		return ir.Vault{}, false, err
	}
	return v, true, nil
}

// ReadConfig returns the stored deployment configuration.
// The error wraps sql.ErrNoRows if the store was never initialized.
func (s *Store) ReadConfig(ctx context.Context) ([]byte, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM config WHERE id = 1`).Scan(&body)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return []byte(body), nil
}

// Snapshot is every projection table at one point in time.
type Snapshot struct {
	Seq      int64
	Assets   []ir.Asset
	Sales    []ir.Sale
	Balances map[ir.Address][]ir.Balance
	Vault    ir.Vault
	HasVault bool
}

// ReadSnapshot reads all projections. The view is consistent only while
// no commit is being written.
func (s *Store) ReadSnapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	var err error
	if snap.Seq, err = s.LastSeq(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Assets, err = s.ReadAssets(ctx); err != nil {
		return Snapshot{}, err
	}
	if snap.Sales, err = s.ReadSales(ctx); err != nil {
		return Snapshot{}, err
	}
	snap.Balances = make(map[ir.Address][]ir.Balance, len(snap.Assets))
	for _, a := range snap.Assets {
		if snap.Balances[a.Address], err = s.ReadBalances(ctx, a.Address); err != nil {
			return Snapshot{}, err
		}
	}
	if snap.Vault, snap.HasVault, err = s.ReadVault(ctx); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
