package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/tokensale/internal/ir"
	"github.com/roach88/tokensale/internal/ledger"
)

// ErrStopped is returned by mutating operations after Stop.
var ErrStopped = errors.New("engine stopped")

// Error is a rejected operation. A rejected operation never changes state.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op is the operation that failed ("create", "buy", ...).
	Op string

	// Asset is the affected asset, if any.
	Asset ir.Address

	// Message is a human-readable description.
	Message string

	err error
}

// ErrorCode categorizes rejections.
type ErrorCode string

const (
	ErrCodeInsufficientFee     ErrorCode = "INSUFFICIENT_FEE"
	ErrCodePaymentMismatch     ErrorCode = "PAYMENT_MISMATCH"
	ErrCodeSaleClosed          ErrorCode = "SALE_CLOSED"
	ErrCodeSaleStillOpen       ErrorCode = "SALE_STILL_OPEN"
	ErrCodeInsufficientSupply  ErrorCode = "INSUFFICIENT_SUPPLY"
	ErrCodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	ErrCodeInsufficientFunds   ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeInvalidAmount       ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidInput        ErrorCode = "INVALID_INPUT"
	ErrCodeOverflow            ErrorCode = "OVERFLOW"
)

// Codes lists every error code.
func Codes() []ErrorCode {
	return []ErrorCode{
		ErrCodeInsufficientFee, ErrCodePaymentMismatch, ErrCodeSaleClosed,
		ErrCodeSaleStillOpen, ErrCodeInsufficientSupply, ErrCodeInsufficientBalance,
		ErrCodeInsufficientFunds, ErrCodeUnauthorized, ErrCodeNotFound,
		ErrCodeInvalidAmount, ErrCodeInvalidInput, ErrCodeOverflow,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if !e.Asset.IsZero() {
		return fmt.Sprintf("%s: %s: %s (asset=%s)", e.Op, e.Code, e.Message, e.Asset)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Message)
}

// Unwrap returns the underlying ledger or amount error, if any.
func (e *Error) Unwrap() error {
	return e.err
}

// CodeOf returns the code of an engine error, or "" for any other error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err is an engine error with the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

func newError(code ErrorCode, op string, asset ir.Address, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Asset:   asset,
		Message: fmt.Sprintf(format, args...),
	}
}

// wrapError classifies a ledger or amount failure.
func wrapError(op string, asset ir.Address, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	code := ErrCodeInvalidInput
	switch {
	case errors.Is(err, ledger.ErrInsufficientBalance):
		code = ErrCodeInsufficientBalance
	case errors.Is(err, ledger.ErrInsufficientFunds):
		code = ErrCodeInsufficientFunds
	case errors.Is(err, ledger.ErrNotFound):
		code = ErrCodeNotFound
	case errors.Is(err, ir.ErrOverflow), errors.Is(err, ir.ErrUnderflow):
		code = ErrCodeOverflow
	case errors.Is(err, ir.ErrInvalidAmount):
		code = ErrCodeInvalidAmount
	}
	return &Error{Code: code, Op: op, Asset: asset, Message: err.Error(), err: err}
}
