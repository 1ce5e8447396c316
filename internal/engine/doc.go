// Package engine implements the tokensale ledger engine: asset creation,
// curve-priced purchases, the one-way sale lifecycle, deposit to the
// creator and the owner-gated fee vault.
//
// ARCHITECTURE:
//
// Serialized operations:
// Every mutating operation runs under one engine-wide write lock, validates
// against the current ledger, stages its events in a ledger.Tx and commits
// all of them or none. No I/O happens under the lock.
//
// Event sourcing:
// Operations never write the ledger directly. They emit events, and apply()
// folds each event into the transaction. Replay feeds the persisted log
// through the same apply(), so a rebuilt engine matches the original.
//
// Single-writer persistence:
//  1. A committed operation is queued as an ir.Commit
//  2. Engine.Run() dequeues commits one at a time, in seq order
//  3. The CommitWriter (SQLite store) writes each commit in one transaction
//  4. Subscribers are notified
//
// Logical clock:
// Events are stamped with a gap-free monotonic seq from Clock.Next(), never
// wall-clock time.
package engine
