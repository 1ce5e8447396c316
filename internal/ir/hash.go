package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix enables future algorithm migration.
const (
	DomainEvent   = "tokensale/event/v1"
	DomainAsset   = "tokensale/asset/v1"
	DomainAccount = "tokensale/account/v1"
)

// hashWithDomain computes SHA256(domain || 0x00 || data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) []byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return h.Sum(nil)
}

// EventID computes the content-addressed id of an event. The id is stable
// across restarts and replays given the same inputs.
func EventID(kind EventKind, seq int64, txToken string, asset Address, payload IRObject) (string, error) {
	obj := IRObject{
		"kind":     IRString(kind),
		"seq":      IRInt(seq),
		"tx_token": IRString(txToken),
		"asset":    AddressValue(asset),
		"payload":  payload,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}
	return hex.EncodeToString(hashWithDomain(DomainEvent, canonical)), nil
}

// AssetAddress derives the address of the index-th asset registered by the
// engine. The registry index makes every derivation unique even when the
// same creator reuses a name and symbol.
func AssetAddress(creator Address, index int64, name, symbol string) (Address, error) {
	obj := IRObject{
		"creator": AddressValue(creator),
		"index":   IRInt(index),
		"name":    IRString(name),
		"symbol":  IRString(symbol),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return Address{}, fmt.Errorf("AssetAddress: failed to marshal: %w", err)
	}
	var a Address
	copy(a[:], hashWithDomain(DomainAsset, canonical))
	return a, nil
}

// AccountAddress derives a stable account address from a label. Used for
// the engine's own escrow account and for named accounts in scenarios.
func AccountAddress(label string) Address {
	var a Address
	copy(a[:], hashWithDomain(DomainAccount, []byte(label)))
	return a
}

// EscrowAddress is the holder of every unit not yet sold or released.
var EscrowAddress = AccountAddress("escrow")
