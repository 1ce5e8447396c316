// Package ledger holds the in-memory book of a tokensale engine: the asset
// registry, sale records, per-(asset, holder) balances and the fee vault.
//
// State is mutated only through a Tx. A Tx stages every write in an overlay
// and applies nothing until Commit, so an operation that fails half way
// leaves State untouched. State has no lock of its own; the engine
// serializes access.
package ledger
