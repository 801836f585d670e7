// Package service implements the reservation use cases: booking,
// cancellation and check-in tracking.  Services depend on small
// interfaces satisfied by the repository layer so the logic can be
// exercised against in-memory fakes.
package service

import (
	"context"
	"time"

	"github.com/hiraku/stagebook/internal/model"
	"github.com/hiraku/stagebook/internal/queue"
)

// PerformanceStore supplies performance and stage definitions.  The
// reservation core only ever reads them.
type PerformanceStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Performance, error)
}

// Ledger is the reservation ledger as the services see it.
// CreateWithinLimit must re-check capacity atomically with the
// insert and return the remaining seat count alongside
// repository.ErrCapacityExceeded when the party no longer fits.
type Ledger interface {
	ActiveByStage(ctx context.Context, performanceID uint64, stageIdx int) ([]model.Reservation, error)
	CreateWithinLimit(ctx context.Context, res *model.Reservation, seatLimit int) (int, error)
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	FindByCredentialHash(ctx context.Context, hash string) (*model.Reservation, error)
	Cancel(ctx context.Context, id uint64, at time.Time) (bool, error)
	SetCheckIn(ctx context.Context, id uint64, checkedIn bool, at time.Time) error
}

// Outbox persists mail notifications for the external delivery
// collaborator.
type Outbox interface {
	Enqueue(ctx context.Context, n *model.MailNotification) error
}

// Events publishes domain events to the message broker.  Services
// treat publish failures as non-fatal: the mutation already
// committed and the consumers recover from the ledger itself.
type Events interface {
	PublishLedgerEvent(ctx context.Context, ev queue.LedgerEvent) error
	PublishMailQueued(ctx context.Context, ev queue.MailQueuedEvent) error
}
