// Package apperr provides the closed error taxonomy shared across the core.
//
// Each category is a distinct type carrying only the fields it needs.
// Callers classify with errors.As rather than string matching.
package apperr

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ValidationError reports malformed user input. It is resolved at the
// originating screen and never reaches the core state machines.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AuthError reports an identity provider rejection. Message is displayed
// verbatim to the end user.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return "auth: " + e.Message
}

// NetworkError reports an unreachable or misbehaving remote endpoint.
type NetworkError struct {
	Op      string // operation that failed, e.g. "list videos"
	Offline bool   // true when the device had no connectivity to begin with
	Err     error  // underlying cause (nil for offline fast-fail)
}

func (e *NetworkError) Error() string {
	if e.Offline {
		return e.Op + ": offline"
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Offline returns a NetworkError for an operation that was never attempted
// because the connectivity probe reported no connection.
func Offline(op string) *NetworkError {
	return &NetworkError{Op: op, Offline: true}
}

// IsOffline reports whether err is a NetworkError caused by missing
// connectivity.
func IsOffline(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne) && ne.Offline
}

// PlaybackError reports a load or play failure scoped to a single video.
// It never aborts unrelated videos.
type PlaybackError struct {
	VideoID string
	Message string
	Timeout bool // true when the load timed out
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("playback %s: %s", e.VideoID, e.Message)
}

// PersistenceError reports a durable storage failure. Reads fail open to
// defaults; writes surface this error with the previous state intact.
type PersistenceError struct {
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Payment error codes.
const (
	PaymentCodeCanceled = "canceled" // user dismissed the payment sheet
	PaymentCodeRejected = "rejected" // processor rejected the payment
)

// PaymentError reports a payment processor rejection or a user
// cancellation of the payment sheet.
type PaymentError struct {
	Code    string
	Message string
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment (%s): %s", e.Code, e.Message)
}

// Canceled reports whether the error is a user cancellation, which is
// treated as a silent no-op by callers.
func (e *PaymentError) Canceled() bool {
	return e.Code == PaymentCodeCanceled
}

// IsPaymentCanceled reports whether err is a user-canceled payment.
func IsPaymentCanceled(err error) bool {
	var pe *PaymentError
	return errors.As(err, &pe) && pe.Canceled()
}
