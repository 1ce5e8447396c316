package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"
)

// IRValue is a sealed interface over the value types allowed in event
// payloads. There is no float type: amounts travel as IRString base units.
type IRValue interface {
	irValue()
}

// IRString represents a string value.
type IRString string

func (IRString) irValue() {}

// IRInt represents an integer value. Always int64, never float64.
type IRInt int64

func (IRInt) irValue() {}

// IRBool represents a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRObject represents a map of string keys to IRValue elements.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// AmountValue encodes an amount as a base-unit IRString.
func AmountValue(a Amount) IRString {
	return IRString(a.String())
}

// AddressValue encodes an address as its hex IRString.
func AddressValue(a Address) IRString {
	return IRString(a.String())
}

// String returns the string stored under key.
func (obj IRObject) String(key string) (string, error) {
	v, ok := obj[key]
	if !ok {
		return "", fmt.Errorf("field %q missing", key)
	}
	s, ok := v.(IRString)
	if !ok {
		return "", fmt.Errorf("field %q: want string, got %T", key, v)
	}
	return string(s), nil
}

// Int returns the integer stored under key.
func (obj IRObject) Int(key string) (int64, error) {
	v, ok := obj[key]
	if !ok {
		return 0, fmt.Errorf("field %q missing", key)
	}
	n, ok := v.(IRInt)
	if !ok {
		return 0, fmt.Errorf("field %q: want int, got %T", key, v)
	}
	return int64(n), nil
}

// Amount returns the base-unit amount stored under key.
func (obj IRObject) Amount(key string) (Amount, error) {
	s, err := obj.String(key)
	if err != nil {
		return Amount{}, err
	}
	a, err := ParseAmount(s)
	if err != nil {
		return Amount{}, fmt.Errorf("field %q: %w", key, err)
	}
	return a, nil
}

// Address returns the address stored under key.
func (obj IRObject) Address(key string) (Address, error) {
	s, err := obj.String(key)
	if err != nil {
		return Address{}, err
	}
	a, err := ParseAddress(s)
	if err != nil {
		return Address{}, fmt.Errorf("field %q: %w", key, err)
	}
	return a, nil
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 byte order, which differs for some inputs.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	for i := 0; i < min(len(a16), len(b16)); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	return len(a16) - len(b16)
}

// MarshalJSON encodes the object with sorted keys.
// NOTE: not canonical (HTML escaping applies). Use MarshalCanonical for ids.
func (obj IRObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		var valBytes []byte
		switch val := obj[k].(type) {
		case IRString:
			valBytes, err = json.Marshal(string(val))
		case IRInt:
			valBytes, err = json.Marshal(int64(val))
		case IRBool:
			valBytes, err = json.Marshal(bool(val))
		case IRObject:
			valBytes, err = val.MarshalJSON()
		default:
			err = fmt.Errorf("unknown IRValue type: %T", val)
		}
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object, rejecting floats and nulls.
func (obj *IRObject) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out, err := toIRObject(raw)
	if err != nil {
		return err
	}
	*obj = out
	return nil
}

func toIRObject(raw map[string]any) (IRObject, error) {
	obj := make(IRObject, len(raw))
	for k, v := range raw {
		val, err := toIRValue(v)
		if err != nil {
			return nil, fmt.Errorf("object[%q]: %w", k, err)
		}
		obj[k] = val
	}
	return obj, nil
}

// toIRValue converts a decoded JSON value (with UseNumber) or a Go literal.
func toIRValue(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden")
	case IRValue:
		return val, nil
	case string:
		return IRString(val), nil
	case bool:
		return IRBool(val), nil
	case int:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case json.Number:
		s := string(val)
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are forbidden: %s", s)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("number out of int64 range: %s", s)
		}
		return IRInt(n), nil
	case map[string]any:
		return toIRObject(val)
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden: %v", val)
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}
