package model

import "time"

// Reservation status values.  Cancellation is logical: cancelled
// rows stay in the ledger and are merely excluded from capacity
// sums, so check-in history and reporting keep seeing them.
const (
	StatusActive    = "ACTIVE"    // reservation counts toward capacity
	StatusCancelled = "CANCELLED" // reservation released its seats
)

// Reservation records an audience booking for a specific stage of a
// performance.  The guest is anonymous (no account); the only way a
// holder can find their own reservation later is the cancellation
// credential issued at booking time, of which only a SHA-256 hash is
// stored.
//
// Fields:
//  ID             – primary key identifier.
//  PerformanceID  – performance being attended.
//  StageIdx       – index into the performance's stage list.
//  PartySize      – number of seats taken (>= 1; legacy rows may
//                   carry 0 and are counted as 1 at the boundary).
//  GuestName      – name given at booking time.
//  GuestEmail     – contact address notifications are sent to.
//  GuestNote      – freeform note from the booking form.
//  Status         – ACTIVE or CANCELLED.
//  CredentialHash – SHA-256 hex of the cancellation credential.
//  CheckedIn      – staff-recorded attendance flag.
//  CheckedInAt    – when the guest was checked in (nil when not).
//  CancelledAt    – when the reservation was cancelled (nil when active).
//  CreatedAt      – creation timestamp.
type Reservation struct {
	ID             uint64     `json:"id"`                      // reservations.id
	PerformanceID  uint64     `json:"performance_id"`          // reservations.performance_id
	StageIdx       int        `json:"stage_idx"`               // reservations.stage_idx
	PartySize      int        `json:"party_size"`              // reservations.party_size
	GuestName      string     `json:"guest_name"`              // reservations.guest_name
	GuestEmail     string     `json:"guest_email"`             // reservations.guest_email
	GuestNote      string     `json:"guest_note"`              // reservations.guest_note
	Status         string     `json:"status"`                  // reservations.status
	CredentialHash string     `json:"-"`                       // reservations.credential_hash (never serialized)
	CheckedIn      bool       `json:"checked_in"`              // reservations.checked_in
	CheckedInAt    *time.Time `json:"checked_in_at,omitempty"` // reservations.checked_in_at (nullable)
	CancelledAt    *time.Time `json:"cancelled_at,omitempty"`  // reservations.cancelled_at (nullable)
	CreatedAt      time.Time  `json:"created_at"`              // reservations.created_at
}

// Cancelled reports whether the reservation has been logically
// cancelled and therefore no longer counts toward capacity.
func (r *Reservation) Cancelled() bool { return r.Status == StatusCancelled }

// Seats returns the party size this reservation occupies for
// capacity accounting.  Legacy rows written before party_size was
// enforced may carry zero; those count as one seat.
func (r *Reservation) Seats() int {
	if r.PartySize < 1 {
		return 1
	}
	return r.PartySize
}
