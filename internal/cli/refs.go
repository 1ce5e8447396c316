package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/tokensale/internal/ir"
)

// resolveAsset finds an asset by address, registry index or symbol.
// Symbols are compared case-insensitively and must be unique.
func resolveAsset(ref string, assets []ir.Asset) (ir.Asset, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ir.Asset{}, NewExitError(ExitCommandError, "empty asset reference")
	}

	if strings.HasPrefix(ref, "0x") || strings.HasPrefix(ref, "0X") {
		addr, err := ir.ParseAddress(ref)
		if err != nil {
			return ir.Asset{}, WrapExitError(ExitCommandError, "invalid asset address", err)
		}
		for _, a := range assets {
			if a.Address == addr {
				return a, nil
			}
		}
		// Unknown addresses go to the engine, which reports NOT_FOUND.
		return ir.Asset{Address: addr}, nil
	}

	if idx, err := strconv.ParseInt(ref, 10, 64); err == nil {
		for _, a := range assets {
			if a.Index == idx {
				return a, nil
			}
		}
		return ir.Asset{}, NewExitError(ExitCommandError, fmt.Sprintf("no asset at index %d", idx))
	}

	var found []ir.Asset
	for _, a := range assets {
		if strings.EqualFold(a.Symbol, ref) {
			found = append(found, a)
		}
	}
	switch len(found) {
	case 0:
		return ir.Asset{}, NewExitError(ExitCommandError, fmt.Sprintf("no asset with symbol %q", ref))
	case 1:
		return found[0], nil
	}
	return ir.Asset{}, NewExitError(ExitCommandError,
		fmt.Sprintf("symbol %q matches %d assets; use the address or index", ref, len(found)))
}

// resolveAccount wraps ir.ResolveAccount with a flag-aware message.
func resolveAccount(flag, ref string) (ir.Address, error) {
	addr, err := ir.ResolveAccount(ref)
	if err != nil {
		return ir.Address{}, WrapExitError(ExitCommandError, fmt.Sprintf("invalid %s", flag), err)
	}
	return addr, nil
}

// parseUnits parses a whole-unit decimal argument.
func parseUnits(name, s string) (ir.Amount, error) {
	amt, err := ir.ParseUnits(s)
	if err != nil {
		return ir.Amount{}, WrapExitError(ExitCommandError, fmt.Sprintf("invalid %s", name), err)
	}
	return amt, nil
}
