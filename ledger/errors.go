/*
errors.go - Centralized error types for the ledger and the wider engine.

Carries the teacher's two-tier design (generic/errors.go): sentinel errors
usable with errors.Is, plus structured wrapper types that carry the context
needed to build an API error response, with Unwrap() back to the sentinel.

SEE ALSO:
  - store.go: AppendHistory reports a duplicate event ID with these
  - engine package: maps these to the loyaltyerrors taxonomy, which the api
    package maps to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateEvent is returned when an EventID has already been
	// appended to history. EventID doubles as the idempotency key.
	ErrDuplicateEvent = errors.New("duplicate event id")

	// ErrConsumerLockTimeout is returned when the per-consumer lock could
	// not be acquired before the caller's context deadline.
	ErrConsumerLockTimeout = errors.New("timed out waiting for consumer lock")

	// ErrStoreUnavailable wraps an underlying persistence failure.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// DuplicateEventError carries the detail needed for a 409 response.
type DuplicateEventError struct {
	EventID EventID
}

func (e *DuplicateEventError) Error() string {
	return fmt.Sprintf("event %q already processed", e.EventID)
}

func (e *DuplicateEventError) Unwrap() error { return ErrDuplicateEvent }

// StoreError wraps a persistence failure encountered while appending
// history or updating a balance.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return errors.Join(ErrStoreUnavailable, e.Err) }

// IsDuplicate reports whether err indicates a duplicate event submission.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateEvent)
}

// IsStoreFailure reports whether err indicates a persistence-layer failure.
func IsStoreFailure(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
