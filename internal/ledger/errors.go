package ledger

import "errors"

// Sentinel errors returned by State and Tx.
var (
	ErrNotFound            = errors.New("ledger: not found")
	ErrAlreadyExists       = errors.New("ledger: already exists")
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")
	ErrInsufficientFunds   = errors.New("ledger: insufficient funds")
	ErrSupplyMismatch      = errors.New("ledger: supply mismatch")
)
