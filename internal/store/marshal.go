package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/tokensale/internal/ir"
)

// marshalPayload converts an event payload to canonical JSON TEXT.
// Uses RFC 8785 canonical JSON so stored payloads hash to the stored id.
func marshalPayload(p ir.IRObject) (string, error) {
	if p == nil {
		p = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// unmarshalPayload parses canonical JSON TEXT to IRObject.
// ir.IRObject.UnmarshalJSON decodes numbers via json.Number, so ints past
// 2^53 keep their precision.
func unmarshalPayload(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return obj, nil
}

// parseAddress and parseAmount decode projection columns, naming the
// column on failure.
func parseAddress(column, s string) (ir.Address, error) {
	a, err := ir.ParseAddress(s)
	if err != nil {
		return ir.Address{}, fmt.Errorf("column %s: %w", column, err)
	}
	return a, nil
}

func parseAmount(column, s string) (ir.Amount, error) {
	a, err := ir.ParseAmount(s)
	if err != nil {
		return ir.Amount{}, fmt.Errorf("column %s: %w", column, err)
	}
	return a, nil
}
