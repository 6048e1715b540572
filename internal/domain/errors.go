package domain

import (
	"errors"
	"fmt"
)

// Code identifies a failure kind known to the billing domain.
type Code string

const (
	CodeUserNotFound                Code = "USER_NOT_FOUND"
	CodeSubscriptionNotFound        Code = "SUBSCRIPTION_NOT_FOUND"
	CodeDuplicateActiveSubscription Code = "DUPLICATE_ACTIVE_SUBSCRIPTION"
	CodeInvalidCoupon               Code = "INVALID_COUPON"
	CodeForbidden                   Code = "FORBIDDEN"
	CodeInvalidInput                Code = "INVALID_INPUT"
	CodeInvalidState                Code = "INVALID_STATE"
	CodeGatewayError                Code = "GATEWAY_ERROR"
	CodeGatewayTimeout              Code = "GATEWAY_TIMEOUT"
	CodeInternal                    Code = "INTERNAL"
)

// Error is a typed domain failure surfaced to callers.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the domain code from an error chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

func NewUserNotFound(ref string) *Error {
	return &Error{Code: CodeUserNotFound, Message: fmt.Sprintf("user %s not found", ref)}
}

func NewSubscriptionNotFound(ref string) *Error {
	return &Error{Code: CodeSubscriptionNotFound, Message: fmt.Sprintf("subscription %s not found", ref)}
}

func NewDuplicateActiveSubscription() *Error {
	return &Error{Code: CodeDuplicateActiveSubscription, Message: "user already has an active subscription"}
}

func NewInvalidCoupon() *Error {
	return &Error{Code: CodeInvalidCoupon, Message: "invalid academy coupon code"}
}

func NewForbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

func NewInvalidInput(msg string) *Error {
	return &Error{Code: CodeInvalidInput, Message: msg}
}

func NewInvalidState(from, to string) *Error {
	return &Error{Code: CodeInvalidState, Message: fmt.Sprintf("cannot transition from %s to %s", from, to)}
}

// NewGatewayError wraps a payment provider failure. The message must stay
// free of provider response bodies and credentials.
func NewGatewayError(msg string, err error) *Error {
	return &Error{Code: CodeGatewayError, Message: msg, Err: err}
}

func NewGatewayTimeout(op string) *Error {
	return &Error{Code: CodeGatewayTimeout, Message: fmt.Sprintf("payment gateway %s timed out", op)}
}
