package store

import (
	"context"
	"fmt"

	"github.com/roach88/tokensale/internal/ir"
)

// TxSummary describes one committed operation as recorded in the log.
type TxSummary struct {
	TxToken  string
	FirstSeq int64
	LastSeq  int64
	Kinds    []ir.EventKind // In seq order
}

// ListTxs returns the operations whose first event has seq > afterSeq,
// in commit order. limit <= 0 means no limit.
func (s *Store) ListTxs(ctx context.Context, afterSeq int64, limit int) ([]TxSummary, error) {
	query := `
		SELECT tx_token, MIN(seq) AS first_seq, MAX(seq)
		FROM events
		GROUP BY tx_token
		HAVING first_seq > ?
		ORDER BY first_seq ASC
	`
	args := []any{afterSeq}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list txs: %w", err)
	}
	defer rows.Close()

	txs := []TxSummary{}
	for rows.Next() {
		var tx TxSummary
		if err := rows.Scan(&tx.TxToken, &tx.FirstSeq, &tx.LastSeq); err != nil {
			return nil, fmt.Errorf("scan tx: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate txs: %w", err)
	}

	// Second pass after rows is drained: the store runs on one connection.
	for i := range txs {
		events, err := s.ReadEventsByTx(ctx, txs[i].TxToken)
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			txs[i].Kinds = append(txs[i].Kinds, ev.Kind)
		}
	}
	return txs, nil
}

// SeqRange is an inclusive run of seqs.
type SeqRange struct {
	First int64 `json:"first"`
	Last  int64 `json:"last"`
}

func (r SeqRange) String() string {
	if r.First == r.Last {
		return fmt.Sprintf("%d", r.First)
	}
	return fmt.Sprintf("%d-%d", r.First, r.Last)
}

// LogReport is the result of CheckLog.
type LogReport struct {
	Events  int
	Txs     int
	LastSeq int64
	Gaps    []SeqRange // Missing seqs, one entry per run
	BadIDs  []int64    // Seqs whose stored id does not match the content
	Split   []string   // Tx tokens whose events are not contiguous
}

// OK reports whether the log passed every check.
func (r LogReport) OK() bool {
	return len(r.Gaps) == 0 && len(r.BadIDs) == 0 && len(r.Split) == 0
}

// CheckLog walks the whole event log and verifies that seqs are gap-free
// from 1, that every id matches its content, and that each operation's
// events are contiguous.
func (s *Store) CheckLog(ctx context.Context) (LogReport, error) {
	events, err := s.ReadEvents(ctx, 0)
	if err != nil {
		return LogReport{}, fmt.Errorf("check log: %w", err)
	}

	var report LogReport
	report.Events = len(events)

	seen := make(map[string]bool)
	split := make(map[string]bool)
	prevToken := ""
	next := int64(1)
	for _, ev := range events {
		if ev.Seq > next {
			report.Gaps = append(report.Gaps, SeqRange{First: next, Last: ev.Seq - 1})
		}
		next = ev.Seq + 1
		report.LastSeq = ev.Seq

		if err := ev.VerifyID(); err != nil {
			report.BadIDs = append(report.BadIDs, ev.Seq)
		}

		if ev.TxToken != prevToken {
			if seen[ev.TxToken] && !split[ev.TxToken] {
				split[ev.TxToken] = true
				report.Split = append(report.Split, ev.TxToken)
			}
			seen[ev.TxToken] = true
			prevToken = ev.TxToken
		}
	}
	report.Txs = len(seen)
	return report, nil
}
