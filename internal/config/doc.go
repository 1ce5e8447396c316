// Package config loads the deployment configuration of a tokensale engine.
//
// A configuration is written once, by `tokensale init`, and stored in the
// database next to the event log it governs. Files may be YAML (strict:
// unknown keys are errors) or CUE, unified with the embedded #Config schema
// so constraints and defaults live in one place.
//
// All amounts are human decimal strings in whole units ("0.01", "1000000");
// accounts are 0x addresses or labels (see ir.ResolveAccount).
package config
