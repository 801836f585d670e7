// Package capacity derives seat availability for a stage from the
// reservation ledger.  All functions are pure and synchronous so the
// same arithmetic serves the booking pre-check, the commit-time
// re-check inside the ledger transaction, the troupe dashboard and
// the public listing.
package capacity

import (
	"time"

	"github.com/hiraku/stagebook/internal/model"
)

// Occupancy classifies the remaining seats of a capped stage for
// audience-facing display.  Uncapped stages are always Available.
type Occupancy string

const (
	Available Occupancy = "available" // plenty of seats left, or uncapped
	Few       Occupancy = "few"       // 1..FewThreshold seats left
	Full      Occupancy = "full"      // no seats left
)

// FewThreshold is the largest remaining-seat count that is still
// shown to audiences as "few".
const FewThreshold = 5

// ReservedCount sums the party sizes of all reservations that have
// not been cancelled.  Rows with a missing or non-positive party
// size count as one seat (legacy records predating validation).
func ReservedCount(reservations []model.Reservation) int {
	total := 0
	for i := range reservations {
		if reservations[i].Cancelled() {
			continue
		}
		total += reservations[i].Seats()
	}
	return total
}

// SeatLimitTotal sums the seat limits of all capped stages.
// Uncapped stages (limit 0) are skipped so a mix of capped and
// uncapped stages does not understate the aggregate cap.
func SeatLimitTotal(stages []model.Stage) int {
	total := 0
	for i := range stages {
		if stages[i].SeatLimit > 0 {
			total += stages[i].SeatLimit
		}
	}
	return total
}

// Remaining returns the number of seats still admissible for a
// stage with the given limit and reserved count.  The boolean is
// false when the stage is uncapped, in which case the count is
// meaningless.  The count may be negative when a stage was
// over-seated (e.g. the limit was lowered after bookings existed).
func Remaining(limit, reserved int) (int, bool) {
	if limit <= 0 {
		return 0, false
	}
	return limit - reserved, true
}

// Classify maps a reserved count against a seat limit onto the
// audience-facing occupancy label.  A limit of zero always yields
// Available.
func Classify(reserved, limit int) Occupancy {
	remaining, capped := Remaining(limit, reserved)
	if !capped {
		return Available
	}
	switch {
	case remaining <= 0:
		return Full
	case remaining <= FewThreshold:
		return Few
	default:
		return Available
	}
}

// Snapshot is the derived capacity view for one stage.  It is what
// the occupancy refresher stores in Redis and what availability
// endpoints serve; it is never persisted to the primary store.
type Snapshot struct {
	PerformanceID uint64    `json:"performance_id"`
	StageIdx      int       `json:"stage_idx"`
	SeatLimit     int       `json:"seat_limit"`
	Reserved      int       `json:"reserved"`
	Remaining     *int      `json:"remaining,omitempty"` // nil when uncapped
	Occupancy     Occupancy `json:"occupancy"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewSnapshot computes the capacity view of one stage from the
// current ledger contents for that stage.
func NewSnapshot(stage model.Stage, reservations []model.Reservation, at time.Time) Snapshot {
	reserved := ReservedCount(reservations)
	snap := Snapshot{
		PerformanceID: stage.PerformanceID,
		StageIdx:      stage.Idx,
		SeatLimit:     stage.SeatLimit,
		Reserved:      reserved,
		Occupancy:     Classify(reserved, stage.SeatLimit),
		UpdatedAt:     at,
	}
	if remaining, capped := Remaining(stage.SeatLimit, reserved); capped {
		snap.Remaining = &remaining
	}
	return snap
}
