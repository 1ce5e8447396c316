package ir

import "fmt"

// EventKind names one state transition of the engine.
type EventKind string

const (
	EventCreated              EventKind = "Created"
	EventPurchased            EventKind = "Purchased"
	EventSaleClosed           EventKind = "SaleClosed"
	EventDeposited            EventKind = "Deposited"
	EventFeeWithdrawn         EventKind = "FeeWithdrawn"
	EventOwnershipTransferred EventKind = "OwnershipTransferred"
	EventTransferred          EventKind = "Transferred"
)

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventCreated, EventPurchased, EventSaleClosed, EventDeposited,
		EventFeeWithdrawn, EventOwnershipTransferred, EventTransferred:
		return true
	}
	return false
}

// Event is one entry in the append-only event log.
//
// Payload fields are flat: amounts as base-unit strings, addresses as hex
// strings, counters as ints. Events sharing a TxToken were produced by the
// same operation and commit together.
type Event struct {
	ID      string    `json:"id"` // Content-addressed via EventID()
	Seq     int64     `json:"seq"`
	TxToken string    `json:"tx_token"`
	Kind    EventKind `json:"kind"`
	Asset   Address   `json:"asset"` // ZeroAddress for vault and ownership events
	Payload IRObject  `json:"payload"`
}

// NewEvent builds an event and computes its id.
func NewEvent(kind EventKind, seq int64, txToken string, asset Address, payload IRObject) (Event, error) {
	if !kind.Valid() {
		return Event{}, fmt.Errorf("unknown event kind %q", kind)
	}
	id, err := EventID(kind, seq, txToken, asset, payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:      id,
		Seq:     seq,
		TxToken: txToken,
		Kind:    kind,
		Asset:   asset,
		Payload: payload,
	}, nil
}

// VerifyID recomputes the event id and compares it with the stored one.
func (e Event) VerifyID() error {
	want, err := EventID(e.Kind, e.Seq, e.TxToken, e.Asset, e.Payload)
	if err != nil {
		return err
	}
	if want != e.ID {
		return fmt.Errorf("event seq=%d: id mismatch (stored %s, computed %s)", e.Seq, e.ID, want)
	}
	return nil
}

// Payload constructors. Keeping them here pins the field names shared by
// the engine (writer), replay (reader) and the harness (renderer).

// CreatedPayload records a new asset and its sale.
func CreatedPayload(creator Address, name, symbol string, supply Amount, index int64, fee Amount) IRObject {
	return IRObject{
		"creator": AddressValue(creator),
		"name":    IRString(name),
		"symbol":  IRString(symbol),
		"supply":  AmountValue(supply),
		"index":   IRInt(index),
		"fee":     AmountValue(fee),
	}
}

// PurchasedPayload records one buy and the sale counters after it.
func PurchasedPayload(buyer Address, amount, paid, sold, raised Amount) IRObject {
	return IRObject{
		"buyer":  AddressValue(buyer),
		"amount": AmountValue(amount),
		"paid":   AmountValue(paid),
		"sold":   AmountValue(sold),
		"raised": AmountValue(raised),
	}
}

// SaleClosedPayload records the final sale counters.
func SaleClosedPayload(sold, raised Amount) IRObject {
	return IRObject{
		"sold":   AmountValue(sold),
		"raised": AmountValue(raised),
	}
}

// DepositedPayload records the escrow units and proceeds released to the
// creator. Both may be zero on a repeated deposit.
func DepositedPayload(creator Address, amount, proceeds Amount) IRObject {
	return IRObject{
		"creator":  AddressValue(creator),
		"amount":   AmountValue(amount),
		"proceeds": AmountValue(proceeds),
	}
}

// FeeWithdrawnPayload records a fee vault debit.
func FeeWithdrawnPayload(amount Amount, to Address) IRObject {
	return IRObject{
		"amount": AmountValue(amount),
		"to":     AddressValue(to),
	}
}

// OwnershipTransferredPayload records an owner change.
func OwnershipTransferredPayload(from, to Address) IRObject {
	return IRObject{
		"from": AddressValue(from),
		"to":   AddressValue(to),
	}
}

// TransferredPayload records a holder-to-holder unit transfer.
func TransferredPayload(from, to Address, amount Amount) IRObject {
	return IRObject{
		"from":   AddressValue(from),
		"to":     AddressValue(to),
		"amount": AmountValue(amount),
	}
}

// FieldKind tells renderers how to display a payload field.
type FieldKind int

const (
	FieldAmount FieldKind = iota
	FieldAddress
	FieldText
	FieldCounter
)

// PayloadFieldKind classifies a payload key of any event kind. Keys not
// listed are amounts.
func PayloadFieldKind(key string) FieldKind {
	switch key {
	case "creator", "buyer", "from", "to":
		return FieldAddress
	case "name", "symbol":
		return FieldText
	case "index":
		return FieldCounter
	}
	return FieldAmount
}
