// Package harness runs token-sale conformance scenarios against a real
// engine backed by an in-memory store.
//
// # Scenario Format
//
// Scenarios are YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	config:                 # optional, merged over config.Default()
//	  funding_target: "3"
//	setup:                  # optional, must succeed, not traced
//	  - op: create
//	    from: alice
//	    args: { name: "Dapp Uni", symbol: DAPP, fee: "0.01" }
//	    as: dapp
//	steps:
//	  - op: buy
//	    from: bob
//	    args: { asset: dapp, amount: "1000", paid: "1" }
//	  - op: buy
//	    from: bob
//	    args: { asset: dapp, amount: "1", paid: quote }
//	    expect:
//	      error: SALE_CLOSED
//	assertions:
//	  - type: trace_count
//	    kind: Purchased
//	    count: 1
//	  - type: final_state
//	    table: sales
//	    where: { asset: dapp }
//	    expect: { is_open: true, raised: "1" }
//
// Accounts are labels (resolved with ir.ResolveAccount) or 0x addresses.
// Assets are referred to by the alias given with `as` (default: the
// symbol). Amounts are whole-unit decimal strings; `paid: quote` pays
// whatever the engine quotes.
//
// # Assertion Types
//
//   - trace_contains: an event of the kind with matching fields exists
//   - trace_order: event kinds appear in the given order
//   - trace_count: an event kind appears exactly N times
//   - final_state: a store table row matches (amounts in whole units,
//     addresses by alias)
//   - invariants: ledger invariants hold and the store replays to the
//     engine's state
//
// # Deterministic Testing
//
// Every scenario runs with sequential tx tokens, a fresh logical clock and
// a private in-memory SQLite database. Traces render addresses by alias and
// amounts in whole units, so they are stable across runs and suitable for
// golden file comparison.
package harness
