package swap

import (
	"errors"
	"fmt"
)

// Code is a machine-readable settlement failure code.
type Code string

const (
	CodeInvalidRequest      Code = "INVALID_REQUEST"
	CodeRouteUnavailable    Code = "ROUTE_UNAVAILABLE"
	CodeSlippageExceeded    Code = "SLIPPAGE_EXCEEDED"
	CodeMinReceiveNotMet    Code = "MIN_RECEIVE_NOT_MET"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodePartialFailure      Code = "PARTIAL_FAILURE"
	CodeInternal            Code = "INTERNAL_ERROR"
)

// Error is a settlement failure with enough structured detail for the
// caller to decide whether to retry, re-quote, or escalate.
type Error struct {
	Code    Code
	Message string
	Detail  map[string]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates a settlement error with the given code.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Detail: map[string]string{}}
}

// WithDetail attaches a structured detail field and returns the error.
func (e *Error) WithDetail(key, value string) *Error {
	e.Detail[key] = value
	return e
}

// CodeOf extracts the failure code from any error. Errors that are not
// settlement errors map to CodeInternal: they are transient infra failures,
// safe to retry with the same idempotency key.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeInternal
}
