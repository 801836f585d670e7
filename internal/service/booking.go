package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hiraku/stagebook/internal/capacity"
	"github.com/hiraku/stagebook/internal/model"
	"github.com/hiraku/stagebook/internal/queue"
	"github.com/hiraku/stagebook/internal/repository"
	"github.com/hiraku/stagebook/internal/utils"
)

// BookingRequest carries the booking form contents.  The email is
// entered twice on the form; both values travel to the service so
// the equality check lives with the rest of the validation.
type BookingRequest struct {
	PerformanceID     uint64
	StageIdx          int
	PartySize         int
	GuestName         string
	GuestEmail        string
	GuestEmailConfirm string
	GuestNote         string
}

// BookingResult is returned on a successful booking.  Credential is
// the raw cancellation token; it is not recoverable later, so the
// caller must surface it (and the CancelURL built from it) to the
// guest immediately.
type BookingResult struct {
	Reservation *model.Reservation
	Credential  string
	CancelURL   string
	Occupancy   capacity.Occupancy // classification after this booking
}

// BookingService orchestrates the create-reservation use case:
// validate the form, check capacity against the ledger, insert with
// a commit-time re-check, then issue the cancellation credential and
// queue the confirmation mail.
type BookingService struct {
	performances PerformanceStore
	ledger       Ledger
	outbox       Outbox
	events       Events // may be nil; publishing is best-effort
	baseURL      string
	now          func() time.Time
}

// NewBookingService constructs a BookingService.  baseURL is the
// public origin used to build cancellation URLs.  events and outbox
// may be nil, which disables the corresponding side effects.
func NewBookingService(performances PerformanceStore, ledger Ledger, outbox Outbox, events Events, baseURL string) *BookingService {
	if performances == nil || ledger == nil {
		panic("nil store passed to NewBookingService")
	}
	return &BookingService{
		performances: performances,
		ledger:       ledger,
		outbox:       outbox,
		events:       events,
		baseURL:      strings.TrimRight(baseURL, "/"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Create books seats on a stage.  The capacity check runs twice: an
// advisory pass against the current ledger read, then a re-check
// inside the insert transaction so concurrent bookings for the last
// seats serialize at the store.  On success the reservation is
// ACTIVE, a confirmation mail is queued and a ledger event is
// published.
//
// Errors: *ValidationError for bad input,
// repository.ErrPerformanceNotFound / repository.ErrStageNotFound
// for stale links, *CapacityError when the party does not fit, and
// *BackendError for storage failures (never auto-retried).
func (s *BookingService) Create(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	perf, err := s.performances.GetByID(ctx, req.PerformanceID)
	if err != nil {
		if errors.Is(err, repository.ErrPerformanceNotFound) {
			return nil, err
		}
		return nil, &BackendError{Op: "load performance", Err: err}
	}
	if req.StageIdx < 0 || req.StageIdx >= len(perf.Stages) {
		return nil, repository.ErrStageNotFound
	}
	stage := perf.Stages[req.StageIdx]

	// Advisory check against the latest read.  This is the answer the
	// form showed the guest; a concurrent booking can still invalidate
	// it before we commit, which the re-check below catches.
	current, err := s.ledger.ActiveByStage(ctx, req.PerformanceID, req.StageIdx)
	if err != nil {
		return nil, &BackendError{Op: "read ledger", Err: err}
	}
	reserved := capacity.ReservedCount(current)
	if remaining, capped := capacity.Remaining(stage.SeatLimit, reserved); capped && req.PartySize > remaining {
		if remaining < 0 {
			remaining = 0
		}
		return nil, &CapacityError{Available: remaining, Requested: req.PartySize}
	}

	cred, err := utils.NewCredential()
	if err != nil {
		return nil, &BackendError{Op: "generate credential", Err: err}
	}

	res := &model.Reservation{
		PerformanceID:  req.PerformanceID,
		StageIdx:       req.StageIdx,
		PartySize:      req.PartySize,
		GuestName:      strings.TrimSpace(req.GuestName),
		GuestEmail:     strings.TrimSpace(req.GuestEmail),
		GuestNote:      req.GuestNote,
		CredentialHash: cred.Hash,
	}

	// Commit-time re-check: the ledger repeats the capacity sum inside
	// its transaction and inserts only when the party still fits.
	available, err := s.ledger.CreateWithinLimit(ctx, res, stage.SeatLimit)
	if err != nil {
		if errors.Is(err, repository.ErrCapacityExceeded) {
			return nil, &CapacityError{Available: available, Requested: req.PartySize}
		}
		return nil, &BackendError{Op: "create reservation", Err: err}
	}

	cancelURL := fmt.Sprintf("%s/cancel?token=%s", s.baseURL, cred.Raw)
	s.notify(ctx, perf, stage, res, cancelURL)
	s.publishCreated(ctx, res)

	return &BookingResult{
		Reservation: res,
		Credential:  cred.Raw,
		CancelURL:   cancelURL,
		Occupancy:   capacity.Classify(reserved+res.Seats(), stage.SeatLimit),
	}, nil
}

func validate(req BookingRequest) error {
	if strings.TrimSpace(req.GuestName) == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	email := strings.TrimSpace(req.GuestEmail)
	if email == "" {
		return &ValidationError{Field: "email", Reason: "required"}
	}
	if !strings.Contains(email, "@") {
		return &ValidationError{Field: "email", Reason: "not an email address"}
	}
	if email != strings.TrimSpace(req.GuestEmailConfirm) {
		return &ValidationError{Field: "email_confirm", Reason: "does not match email"}
	}
	if req.PartySize < 1 {
		return &ValidationError{Field: "party_size", Reason: "must be at least 1"}
	}
	return nil
}

// notify queues the confirmation mail.  A failure here is logged and
// swallowed: the booking already committed and must stand.
func (s *BookingService) notify(ctx context.Context, perf *model.Performance, stage model.Stage, res *model.Reservation, cancelURL string) {
	if s.outbox == nil {
		return
	}
	subject := fmt.Sprintf("Reservation confirmed: %s (%s)", perf.Title, stage.PerformedOn.Format("2006-01-02"))
	body := fmt.Sprintf(
		"Dear %s,\n\nYour reservation for %q at %s on %s (doors %s) is confirmed for a party of %d.\n\nTo cancel, open:\n%s\n\nPlease keep this mail; the link is the only way to manage the reservation.\n",
		res.GuestName, perf.Title, perf.Venue,
		stage.PerformedOn.Format("2006-01-02"), stage.StartsAt.Format("15:04"),
		res.PartySize, cancelURL,
	)
	n := &model.MailNotification{
		ReservationID: res.ID,
		Kind:          "booking.confirmed",
		Recipient:     res.GuestEmail,
		Subject:       subject,
		Body:          body,
	}
	if err := s.outbox.Enqueue(ctx, n); err != nil {
		log.Printf("booking: enqueue notification for reservation %d failed: %v", res.ID, err)
		return
	}
	if s.events != nil {
		ev := queue.MailQueuedEvent{
			EventID:        uuid.NewString(),
			NotificationID: n.ID,
			ReservationID:  res.ID,
			Recipient:      n.Recipient,
			Subject:        n.Subject,
			Body:           n.Body,
			QueuedAt:       s.now().Format(time.RFC3339),
		}
		if err := s.events.PublishMailQueued(ctx, ev); err != nil {
			log.Printf("booking: publish mail event for reservation %d failed: %v", res.ID, err)
		}
	}
}

func (s *BookingService) publishCreated(ctx context.Context, res *model.Reservation) {
	if s.events == nil {
		return
	}
	ev := queue.LedgerEvent{
		EventID:       uuid.NewString(),
		Kind:          queue.KindReservationCreated,
		ReservationID: res.ID,
		PerformanceID: res.PerformanceID,
		StageIdx:      res.StageIdx,
		PartySize:     res.PartySize,
		OccurredAt:    s.now().Format(time.RFC3339),
	}
	if err := s.events.PublishLedgerEvent(ctx, ev); err != nil {
		log.Printf("booking: publish ledger event for reservation %d failed: %v", res.ID, err)
	}
}
