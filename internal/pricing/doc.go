// Package pricing holds the pure pricing functions of a sale: the curve
// mapping cumulative units sold to a unit price, the cost policy turning a
// price into the exact payment for a batch, and the release policy deciding
// how much escrow a creator receives after close.
//
// Every function is deterministic and overflow checked. Nothing here reads
// or mutates ledger state.
package pricing
