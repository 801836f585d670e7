package capacity

import (
	"testing"
	"time"

	"github.com/hiraku/stagebook/internal/model"
)

func active(party int) model.Reservation {
	return model.Reservation{PartySize: party, Status: model.StatusActive}
}

func cancelled(party int) model.Reservation {
	return model.Reservation{PartySize: party, Status: model.StatusCancelled}
}

func TestReservedCount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   []model.Reservation
		want int
	}{
		{"empty ledger", nil, 0},
		{"sums active parties", []model.Reservation{active(2), active(3)}, 5},
		{"skips cancelled", []model.Reservation{active(2), cancelled(4), active(1)}, 3},
		{"legacy zero party counts as one", []model.Reservation{active(0), active(2)}, 3},
		{"legacy negative party counts as one", []model.Reservation{{PartySize: -1, Status: model.StatusActive}}, 1},
		{"all cancelled", []model.Reservation{cancelled(1), cancelled(9)}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ReservedCount(tc.in); got != tc.want {
				t.Fatalf("ReservedCount = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestSeatLimitTotal(t *testing.T) {
	t.Parallel()

	stages := []model.Stage{
		{Idx: 0, SeatLimit: 30},
		{Idx: 1, SeatLimit: 0}, // uncapped, skipped
		{Idx: 2, SeatLimit: 12},
	}
	if got := SeatLimitTotal(stages); got != 42 {
		t.Fatalf("SeatLimitTotal = %d, want 42", got)
	}
	if got := SeatLimitTotal(nil); got != 0 {
		t.Fatalf("SeatLimitTotal(nil) = %d, want 0", got)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		reserved int
		limit    int
		want     Occupancy
	}{
		{"uncapped is always available", 1000, 0, Available},
		{"plenty left", 4, 30, Available},
		{"boundary just above few", 24, 30, Available},
		{"exactly few threshold", 25, 30, Few},
		{"one seat left", 29, 30, Few},
		{"exactly full", 30, 30, Full},
		{"over-seated", 31, 30, Full},
		{"empty capped stage", 0, 5, Few},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.reserved, tc.limit); got != tc.want {
				t.Fatalf("Classify(%d, %d) = %q, want %q", tc.reserved, tc.limit, got, tc.want)
			}
		})
	}
}

func TestRemaining(t *testing.T) {
	t.Parallel()

	if n, capped := Remaining(10, 4); !capped || n != 6 {
		t.Fatalf("Remaining(10, 4) = (%d, %v), want (6, true)", n, capped)
	}
	if _, capped := Remaining(0, 4); capped {
		t.Fatalf("Remaining(0, 4) reported a capped stage")
	}
	// limit lowered below existing bookings: remaining goes negative
	if n, _ := Remaining(3, 5); n != -2 {
		t.Fatalf("Remaining(3, 5) = %d, want -2", n)
	}
}

// A stage with limit 2 and one active single-seat party: one more
// seat fills it.
func TestSnapshotFillsStage(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)
	stage := model.Stage{PerformanceID: 7, Idx: 1, SeatLimit: 2}

	snap := NewSnapshot(stage, []model.Reservation{active(1)}, now)
	if snap.Reserved != 1 || snap.Occupancy != Few {
		t.Fatalf("one of two seats taken: got reserved=%d occupancy=%q", snap.Reserved, snap.Occupancy)
	}
	if snap.Remaining == nil || *snap.Remaining != 1 {
		t.Fatalf("expected remaining=1, got %v", snap.Remaining)
	}

	snap = NewSnapshot(stage, []model.Reservation{active(1), active(1)}, now)
	if snap.Occupancy != Full {
		t.Fatalf("both seats taken: occupancy = %q, want full", snap.Occupancy)
	}
	if snap.Remaining == nil || *snap.Remaining != 0 {
		t.Fatalf("expected remaining=0, got %v", snap.Remaining)
	}

	uncapped := model.Stage{PerformanceID: 7, Idx: 2, SeatLimit: 0}
	snap = NewSnapshot(uncapped, []model.Reservation{active(40)}, now)
	if snap.Remaining != nil || snap.Occupancy != Available {
		t.Fatalf("uncapped stage: got remaining=%v occupancy=%q", snap.Remaining, snap.Occupancy)
	}
}
