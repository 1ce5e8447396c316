// Package testutil provides deterministic helpers shared by tests and the
// scenario harness.
package testutil
