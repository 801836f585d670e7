// Package repository defines error values shared across the data
// access layer. These sentinel values let handlers and services
// distinguish failure scenarios without inspecting SQL errors:
// ErrReservationNotFound covers both an unknown ID and an unknown
// cancellation credential, ErrCapacityExceeded is raised by the
// commit-time re-check inside the booking transaction, and
// ErrForbidden signals that a troupe touched a performance it does
// not own.
package repository

import "errors"

// ErrPerformanceNotFound indicates that no performance row exists
// for the requested ID. Handlers should translate this into an
// HTTP 404 response.
var ErrPerformanceNotFound = errors.New("performance not found")

// ErrStageNotFound indicates that a stage index does not exist on
// an otherwise valid performance. Handlers should translate this
// into an HTTP 404 response.
var ErrStageNotFound = errors.New("stage not found")

// ErrReservationNotFound indicates that a reservation could not be
// located, whether looked up by ID or by cancellation credential.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrCapacityExceeded is returned by the ledger when the
// commit-time re-check finds that the requested party no longer
// fits within the stage's seat limit. The booking service wraps it
// with the computed counts for display.
var ErrCapacityExceeded = errors.New("capacity exceeded")

// ErrForbidden is returned when a troupe attempts an operation on
// a performance owned by a different troupe. Handlers should
// translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")
