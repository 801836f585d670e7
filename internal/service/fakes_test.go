package service

// In-memory fakes backing the service tests.  The fake ledger
// mirrors the repository contracts, including the serialized
// commit-time capacity re-check, so the booking race test exercises
// the same decision the MySQL transaction makes.

import (
	"context"
	"sync"
	"time"

	"github.com/hiraku/stagebook/internal/capacity"
	"github.com/hiraku/stagebook/internal/model"
	"github.com/hiraku/stagebook/internal/queue"
	"github.com/hiraku/stagebook/internal/repository"
)

type fakePerformanceStore struct {
	perfs map[uint64]*model.Performance
}

func newFakePerformanceStore(perfs ...*model.Performance) *fakePerformanceStore {
	m := make(map[uint64]*model.Performance, len(perfs))
	for _, p := range perfs {
		m[p.ID] = p
	}
	return &fakePerformanceStore{perfs: m}
}

func (f *fakePerformanceStore) GetByID(_ context.Context, id uint64) (*model.Performance, error) {
	p, ok := f.perfs[id]
	if !ok {
		return nil, repository.ErrPerformanceNotFound
	}
	return p, nil
}

type fakeLedger struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*model.Reservation

	createErr       error         // forced failure for CreateWithinLimit
	setCheckInErr   error         // forced failure for SetCheckIn
	blockSetCheckIn chan struct{} // when non-nil, SetCheckIn waits for a send
	checkInWrites   int
}

func newFakeLedger(rows ...model.Reservation) *fakeLedger {
	f := &fakeLedger{rows: make(map[uint64]*model.Reservation)}
	for _, r := range rows {
		cp := r
		if cp.ID == 0 {
			f.nextID++
			cp.ID = f.nextID
		} else if cp.ID > f.nextID {
			f.nextID = cp.ID
		}
		f.rows[cp.ID] = &cp
	}
	return f
}

func (f *fakeLedger) activeLocked(performanceID uint64, stageIdx int) []model.Reservation {
	out := make([]model.Reservation, 0)
	for _, r := range f.rows {
		if r.PerformanceID == performanceID && r.StageIdx == stageIdx && !r.Cancelled() {
			out = append(out, *r)
		}
	}
	return out
}

func (f *fakeLedger) ActiveByStage(_ context.Context, performanceID uint64, stageIdx int) ([]model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeLocked(performanceID, stageIdx), nil
}

func (f *fakeLedger) CreateWithinLimit(_ context.Context, res *model.Reservation, seatLimit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}
	if seatLimit > 0 {
		reserved := capacity.ReservedCount(f.activeLocked(res.PerformanceID, res.StageIdx))
		available := seatLimit - reserved
		if res.Seats() > available {
			if available < 0 {
				available = 0
			}
			return available, repository.ErrCapacityExceeded
		}
	}
	f.nextID++
	res.ID = f.nextID
	res.Status = model.StatusActive
	res.CreatedAt = time.Now().UTC()
	cp := *res
	f.rows[res.ID] = &cp
	return 0, nil
}

func (f *fakeLedger) GetByID(_ context.Context, id uint64) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeLedger) FindByCredentialHash(_ context.Context, hash string) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.CredentialHash == hash {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrReservationNotFound
}

func (f *fakeLedger) Cancel(_ context.Context, id uint64, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.Cancelled() {
		return false, nil
	}
	r.Status = model.StatusCancelled
	t := at.UTC()
	r.CancelledAt = &t
	return true, nil
}

func (f *fakeLedger) SetCheckIn(_ context.Context, id uint64, checkedIn bool, at time.Time) error {
	if f.blockSetCheckIn != nil {
		<-f.blockSetCheckIn
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setCheckInErr != nil {
		return f.setCheckInErr
	}
	r, ok := f.rows[id]
	if !ok || r.Cancelled() {
		return nil // mirrors the UPDATE matching no rows
	}
	f.checkInWrites++
	r.CheckedIn = checkedIn
	if checkedIn {
		t := at.UTC()
		r.CheckedInAt = &t
	} else {
		r.CheckedInAt = nil
	}
	return nil
}

func (f *fakeLedger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeOutbox struct {
	mu    sync.Mutex
	rows  []model.MailNotification
	fail  error
	calls int
}

func (f *fakeOutbox) Enqueue(_ context.Context, n *model.MailNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil {
		return f.fail
	}
	if n.ID == "" {
		n.ID = "notif-1"
	}
	n.Status = model.MailPending
	f.rows = append(f.rows, *n)
	return nil
}

type fakeEvents struct {
	mu     sync.Mutex
	ledger []queue.LedgerEvent
	mail   []queue.MailQueuedEvent
}

func (f *fakeEvents) PublishLedgerEvent(_ context.Context, ev queue.LedgerEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ledger = append(f.ledger, ev)
	return nil
}

func (f *fakeEvents) PublishMailQueued(_ context.Context, ev queue.MailQueuedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mail = append(f.mail, ev)
	return nil
}
