package service

import (
	"errors"
	"fmt"
)

// ValidationError reports a client-fixable input problem.  Handlers
// surface it inline with the offending field; it never reaches the
// ledger.
type ValidationError struct {
	Field  string // request field at fault
	Reason string // human-readable reason
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CapacityError reports that a booking would exceed a stage's seat
// limit.  It carries the counts so the guest can adjust their party
// size or pick another stage; there is no automatic retry.
type CapacityError struct {
	Available int // seats still admissible at the time of the check
	Requested int // party size that was asked for
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("insufficient seats: %d requested, %d available", e.Requested, e.Available)
}

// BackendError wraps a storage or broker failure behind a stable
// type so handlers can map it to a generic retry prompt without
// leaking driver details.  The booking write is never retried
// automatically: a transient failure may have committed server-side
// and a retry would double-book.
type BackendError struct {
	Op  string // operation that failed, e.g. "create reservation"
	Err error
}

func (e *BackendError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *BackendError) Unwrap() error { return e.Err }

// ErrReservationCancelled is returned when a check-in toggle targets
// a cancelled reservation.  The presentation layer renders this as a
// disabled action, not a failure.
var ErrReservationCancelled = errors.New("reservation is cancelled")
