package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	buyer := AccountAddress("bob")
	asset := AccountAddress("asset")
	payload := PurchasedPayload(buyer, Units(1000), Units(1), Units(1000), Units(1))

	ev, err := NewEvent(EventPurchased, 7, "tx-7", asset, payload)
	require.NoError(t, err)
	assert.Equal(t, int64(7), ev.Seq)
	assert.NoError(t, ev.VerifyID())

	got, err := ev.Payload.Address("buyer")
	require.NoError(t, err)
	assert.Equal(t, buyer, got)

	amount, err := ev.Payload.Amount("amount")
	require.NoError(t, err)
	assert.True(t, amount.Equal(Units(1000)))
}

func TestNewEventRejectsUnknownKind(t *testing.T) {
	_, err := NewEvent("Minted", 1, "tx", ZeroAddress, IRObject{})
	assert.Error(t, err)
}

func TestVerifyIDDetectsTampering(t *testing.T) {
	ev, err := NewEvent(EventFeeWithdrawn, 1, "tx", ZeroAddress, FeeWithdrawnPayload(Units(1), AccountAddress("owner")))
	require.NoError(t, err)

	ev.Payload["amount"] = AmountValue(Units(2))
	assert.Error(t, ev.VerifyID())
}

func TestEventJSONRoundTrip(t *testing.T) {
	ev, err := NewEvent(EventCreated, 1, "tx", AccountAddress("asset"),
		CreatedPayload(AccountAddress("alice"), "Dapp Uni", "DAPP", Units(1_000_000), 0, MustParseUnits("0.01")))
	require.NoError(t, err)

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var back Event
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ev, back)
	assert.NoError(t, back.VerifyID())
}

func TestIRObjectAccessorErrors(t *testing.T) {
	obj := IRObject{"n": IRInt(1), "s": IRString("x")}

	_, err := obj.String("missing")
	assert.Error(t, err)
	_, err = obj.String("n")
	assert.Error(t, err)
	_, err = obj.Int("s")
	assert.Error(t, err)
	_, err = obj.Amount("s")
	assert.Error(t, err)
	_, err = obj.Address("s")
	assert.Error(t, err)

	n, err := obj.Int("n")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestIRObjectUnmarshalRejectsFloats(t *testing.T) {
	var obj IRObject
	assert.Error(t, json.Unmarshal([]byte(`{"x":1.5}`), &obj))
	assert.Error(t, json.Unmarshal([]byte(`{"x":null}`), &obj))
	require.NoError(t, json.Unmarshal([]byte(`{"x":2,"y":"z","b":true}`), &obj))
	assert.Equal(t, IRObject{"x": IRInt(2), "y": IRString("z"), "b": IRBool(true)}, obj)
}

func TestPayloadFieldKind(t *testing.T) {
	assert.Equal(t, FieldAddress, PayloadFieldKind("buyer"))
	assert.Equal(t, FieldAddress, PayloadFieldKind("to"))
	assert.Equal(t, FieldText, PayloadFieldKind("symbol"))
	assert.Equal(t, FieldCounter, PayloadFieldKind("index"))
	assert.Equal(t, FieldAmount, PayloadFieldKind("proceeds"))
	assert.Equal(t, FieldAmount, PayloadFieldKind("anything-else"))

	// Every key of every payload is classified so it renders correctly.
	p := CreatedPayload(AccountAddress("alice"), "Gamma", "GAM", Units(1), 0, Units(1))
	for k, v := range p {
		switch PayloadFieldKind(k) {
		case FieldCounter:
			assert.IsType(t, IRInt(0), v, k)
		case FieldAddress:
			_, err := p.Address(k)
			assert.NoError(t, err, k)
		case FieldAmount:
			_, err := p.Amount(k)
			assert.NoError(t, err, k)
		}
	}
}
