package ir

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the byte length of an Address.
const AddressLength = 20

// Address is a 20-byte handle identifying an asset or an account.
// Rendered as "0x" followed by 40 lowercase hex digits.
type Address [AddressLength]byte

// ZeroAddress is the unset address. It never owns anything.
var ZeroAddress Address

// ParseAddress parses a "0x"-prefixed (or bare) 40-digit hex address.
// Hex digits are case-insensitive.
func ParseAddress(s string) (Address, error) {
	raw := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(raw) != 2*AddressLength {
		return Address{}, fmt.Errorf("invalid address %q: want %d hex digits, got %d", s, 2*AddressLength, len(raw))
	}
	var a Address
	if _, err := hex.Decode(a[:], []byte(raw)); err != nil {
		return Address{}, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return a, nil
}

// MustParseAddress is like ParseAddress but panics on error.
// Use only in tests or with literal inputs.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the 0x-prefixed lowercase hex form.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// Short returns an abbreviated form ("0xf39f...2266") for log lines.
func (a Address) Short() string {
	s := a.String()
	return s[:6] + "..." + s[len(s)-4:]
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// MarshalText implements encoding.TextMarshaler (used by JSON and YAML).
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ResolveAccount turns a CLI or scenario account reference into an address.
// A "0x" prefix means a literal address; anything else is a label resolved
// with AccountAddress.
func ResolveAccount(ref string) (Address, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return Address{}, fmt.Errorf("empty account reference")
	case strings.HasPrefix(ref, "0x"), strings.HasPrefix(ref, "0X"):
		return ParseAddress(ref)
	}
	return AccountAddress(ref), nil
}
