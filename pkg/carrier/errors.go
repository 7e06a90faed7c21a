package carrier

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies a carrier failure for the orchestration loop.
type FailureKind string

const (
	// KindUnreachable is a transient network or timeout failure. The
	// carrier may still be viable on a later attempt.
	KindUnreachable FailureKind = "unreachable"

	// KindRejected means the carrier explicitly refused the input
	// (unsupported route, invalid weight). Retrying with the same
	// input will not help.
	KindRejected FailureKind = "rejected"
)

// Error represents a failure from a shipping carrier.
type Error struct {
	Carrier string
	Kind    FailureKind
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s (%s): %s: %v", e.Carrier, e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s (%s): %s", e.Carrier, e.Kind, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// Unreachable creates a transient carrier error.
func Unreachable(carrier, code, message string) *Error {
	return &Error{Carrier: carrier, Kind: KindUnreachable, Code: code, Message: message}
}

// Rejected creates a permanent carrier refusal.
func Rejected(carrier, code, message string) *Error {
	return &Error{Carrier: carrier, Kind: KindRejected, Code: code, Message: message}
}

// Sentinel errors for common carrier scenarios.
var (
	// ErrCarrierNotFound indicates the requested carrier is not registered.
	ErrCarrierNotFound = errors.New("carrier not found")

	// ErrShipmentNotFound indicates the tracking ID was not found.
	ErrShipmentNotFound = errors.New("shipment not found")
)

// IsUnreachable returns true if the error is a transient carrier failure.
// Context deadline and cancellation are treated as unreachable so that a
// timed-out call lets the loop proceed to the next carrier.
func IsUnreachable(err error) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind == KindUnreachable
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// IsRejected returns true if the carrier explicitly refused the input.
func IsRejected(err error) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind == KindRejected
	}
	return false
}
