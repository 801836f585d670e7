package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/hiraku/stagebook/internal/model"
	"github.com/hiraku/stagebook/internal/queue"
	"github.com/hiraku/stagebook/internal/repository"
	"github.com/hiraku/stagebook/internal/utils"
)

// CancellationService resolves reservations by their cancellation
// credential and transitions them to CANCELLED exactly once.  The
// credential stays valid for repeated lookups after cancellation so
// the guest can reload the confirmation page, but it never again
// permits any mutation of party size or contact details.
type CancellationService struct {
	ledger Ledger
	events Events // may be nil
	now    func() time.Time
}

// NewCancellationService constructs a CancellationService.
func NewCancellationService(ledger Ledger, events Events) *CancellationService {
	if ledger == nil {
		panic("nil ledger passed to NewCancellationService")
	}
	return &CancellationService{
		ledger: ledger,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ResolveByCredential looks up the reservation that was issued the
// given raw credential.  Unknown tokens yield
// repository.ErrReservationNotFound; everything else is a
// *BackendError.
func (s *CancellationService) ResolveByCredential(ctx context.Context, raw string) (*model.Reservation, error) {
	res, err := s.ledger.FindByCredentialHash(ctx, utils.HashCredential(raw))
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return nil, err
		}
		return nil, &BackendError{Op: "resolve credential", Err: err}
	}
	return res, nil
}

// Cancel resolves the credential and cancels the reservation.  An
// already cancelled reservation is an idempotent no-op returning the
// row unchanged, so duplicate clicks and retries are harmless.  The
// freed seats leave the capacity sums on the very next computation.
func (s *CancellationService) Cancel(ctx context.Context, raw string) (*model.Reservation, error) {
	res, err := s.ResolveByCredential(ctx, raw)
	if err != nil {
		return nil, err
	}
	if res.Cancelled() {
		return res, nil
	}
	at := s.now()
	changed, err := s.ledger.Cancel(ctx, res.ID, at)
	if err != nil {
		return nil, &BackendError{Op: "cancel reservation", Err: err}
	}
	if changed {
		res.Status = model.StatusCancelled
		res.CancelledAt = &at
		s.publishCancelled(ctx, res)
	} else {
		// Lost a race against another cancel of the same credential;
		// the target state is reached either way.
		if fresh, err := s.ledger.GetByID(ctx, res.ID); err == nil {
			res = fresh
		}
	}
	return res, nil
}

func (s *CancellationService) publishCancelled(ctx context.Context, res *model.Reservation) {
	if s.events == nil {
		return
	}
	ev := queue.LedgerEvent{
		EventID:       uuid.NewString(),
		Kind:          queue.KindReservationCancelled,
		ReservationID: res.ID,
		PerformanceID: res.PerformanceID,
		StageIdx:      res.StageIdx,
		PartySize:     res.PartySize,
		OccurredAt:    s.now().Format(time.RFC3339),
	}
	if err := s.events.PublishLedgerEvent(ctx, ev); err != nil {
		log.Printf("cancellation: publish ledger event for reservation %d failed: %v", res.ID, err)
	}
}
