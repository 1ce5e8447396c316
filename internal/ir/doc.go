// Package ir provides the canonical record types shared by every tokensale
// package: addresses, fixed-point amounts, assets, sales, events and the
// commit records handed from the engine to the store.
//
// This package imports nothing internal. All other internal packages import
// ir, which keeps it the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - amounts are integers scaled by 10^Decimals
//   - Every amount operation is overflow checked (ErrOverflow, ErrUnderflow)
//   - Logical clocks (seq) only, never wall-clock timestamps
//   - All JSON tags use snake_case
//   - Event payloads and ids use RFC 8785 canonical JSON
package ir
