package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hiraku/stagebook/internal/queue"
	"github.com/hiraku/stagebook/internal/repository"
)

// ToggleResult reports the outcome of a check-in toggle.
type ToggleResult struct {
	ReservationID uint64     `json:"reservation_id"`
	CheckedIn     bool       `json:"checked_in"`
	CheckedInAt   *time.Time `json:"checked_in_at,omitempty"`
	Ignored       bool       `json:"ignored"` // a write was already in flight; this toggle was dropped
}

// CheckInTracker toggles the attendance flag of reservations during
// admission.  It keeps an optimistic per-reservation view of the
// flag so the dashboard flips immediately, reverts that view when
// the write fails, and ignores toggles that arrive while a write for
// the same reservation is still in flight (rapid double-clicks).
// Cancelled reservations are never toggled.
type CheckInTracker struct {
	ledger Ledger
	events Events // may be nil
	now    func() time.Time

	mu       sync.Mutex
	inflight map[uint64]struct{} // reservations with a pending write
	view     map[uint64]bool     // optimistic checked-in state
}

// NewCheckInTracker constructs a CheckInTracker.
func NewCheckInTracker(ledger Ledger, events Events) *CheckInTracker {
	if ledger == nil {
		panic("nil ledger passed to NewCheckInTracker")
	}
	return &CheckInTracker{
		ledger:   ledger,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
		inflight: make(map[uint64]struct{}),
		view:     make(map[uint64]bool),
	}
}

// View returns the tracker's optimistic checked-in state for a
// reservation, falling back to the given persisted value when the
// tracker has not touched the reservation this session.
func (t *CheckInTracker) View(reservationID uint64, persisted bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.view[reservationID]; ok {
		return v
	}
	return persisted
}

// Toggle sets the attendance flag of an active reservation to
// desired.  Asking for the state the reservation is already in is
// success, not an error, so retries and duplicate clicks stay
// harmless.  Errors: repository.ErrReservationNotFound,
// ErrReservationCancelled, or *BackendError when the write fails
// (in which case the optimistic view has been reverted).
func (t *CheckInTracker) Toggle(ctx context.Context, reservationID uint64, desired bool) (*ToggleResult, error) {
	res, err := t.ledger.GetByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return nil, err
		}
		return nil, &BackendError{Op: "load reservation", Err: err}
	}
	if res.Cancelled() {
		return nil, ErrReservationCancelled
	}

	t.mu.Lock()
	if _, busy := t.inflight[reservationID]; busy {
		current, tracked := t.view[reservationID]
		t.mu.Unlock()
		if !tracked {
			current = res.CheckedIn
		}
		return &ToggleResult{ReservationID: reservationID, CheckedIn: current, Ignored: true}, nil
	}
	t.inflight[reservationID] = struct{}{}
	prev, hadPrev := t.view[reservationID]
	t.view[reservationID] = desired // optimistic flip
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.inflight, reservationID)
		t.mu.Unlock()
	}()

	at := t.now()
	if desired != res.CheckedIn {
		if err := t.ledger.SetCheckIn(ctx, reservationID, desired, at); err != nil {
			// Revert the optimistic view to the pre-toggle truth.
			t.mu.Lock()
			if hadPrev {
				t.view[reservationID] = prev
			} else {
				delete(t.view, reservationID)
			}
			t.mu.Unlock()
			return nil, &BackendError{Op: "write check-in", Err: err}
		}
		t.publishToggled(ctx, res.PerformanceID, res.StageIdx, reservationID, res.PartySize, desired)
	}

	result := &ToggleResult{ReservationID: reservationID, CheckedIn: desired}
	if desired {
		if res.CheckedIn && res.CheckedInAt != nil {
			result.CheckedInAt = res.CheckedInAt // already in target state, keep original time
		} else {
			result.CheckedInAt = &at
		}
	}
	return result, nil
}

func (t *CheckInTracker) publishToggled(ctx context.Context, performanceID uint64, stageIdx int, reservationID uint64, partySize int, checkedIn bool) {
	if t.events == nil {
		return
	}
	ev := queue.LedgerEvent{
		EventID:       uuid.NewString(),
		Kind:          queue.KindCheckInToggled,
		ReservationID: reservationID,
		PerformanceID: performanceID,
		StageIdx:      stageIdx,
		PartySize:     partySize,
		CheckedIn:     checkedIn,
		OccurredAt:    t.now().Format(time.RFC3339),
	}
	if err := t.events.PublishLedgerEvent(ctx, ev); err != nil {
		log.Printf("checkin: publish ledger event for reservation %d failed: %v", reservationID, err)
	}
}
