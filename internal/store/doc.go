// Package store provides SQLite-backed durable storage for the tokensale
// event log and its projections.
//
// The events table is append-only and ordered by seq, the engine's logical
// clock. Every other table (assets, sales, balances, vault) is a projection
// written in the same transaction as the events that produced it, so a
// reader never sees a projection ahead of or behind the log.
//
// # Patterns
//
// Idempotent writes:
//   - Events insert with ON CONFLICT(id) DO NOTHING
//   - Projection rows only move forward: an upsert applies only when its
//     updated_seq is at least the stored one
//
// Logical time:
//   - All ordering uses seq, never timestamps
//   - Queries always ORDER BY seq (or registry index for assets)
//
// Exact amounts:
//   - Amounts are TEXT base-unit integers; SQLite INTEGER is 64-bit and
//     too narrow for 256-bit balances
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Event ids are computed in internal/ir/hash.go from RFC 8785 canonical
// JSON and SHA-256 with domain separation. Payloads are stored in the same
// canonical form so CheckLog can recompute them.
package store
