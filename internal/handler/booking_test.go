package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hiraku/stagebook/internal/model"
	"github.com/hiraku/stagebook/internal/repository"
	"github.com/hiraku/stagebook/internal/service"
)

// memPerformances is a fixed in-memory performance catalogue.
type memPerformances struct {
	perfs map[uint64]*model.Performance
}

func (m *memPerformances) GetByID(_ context.Context, id uint64) (*model.Performance, error) {
	p, ok := m.perfs[id]
	if !ok {
		return nil, repository.ErrPerformanceNotFound
	}
	return p, nil
}

// memLedger is an in-memory reservation ledger honouring the
// CreateWithinLimit contract: the capacity re-check and the insert
// happen under one lock.
type memLedger struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*model.Reservation
}

func newMemLedger() *memLedger {
	return &memLedger{nextID: 1, rows: make(map[uint64]*model.Reservation)}
}

func (m *memLedger) ActiveByStage(_ context.Context, performanceID uint64, stageIdx int) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeLocked(performanceID, stageIdx), nil
}

func (m *memLedger) activeLocked(performanceID uint64, stageIdx int) []model.Reservation {
	out := make([]model.Reservation, 0)
	for _, r := range m.rows {
		if r.PerformanceID == performanceID && r.StageIdx == stageIdx && !r.Cancelled() {
			out = append(out, *r)
		}
	}
	return out
}

func (m *memLedger) CreateWithinLimit(_ context.Context, res *model.Reservation, seatLimit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seatLimit > 0 {
		reserved := 0
		for _, r := range m.activeLocked(res.PerformanceID, res.StageIdx) {
			reserved += r.Seats()
		}
		available := seatLimit - reserved
		if res.Seats() > available {
			if available < 0 {
				available = 0
			}
			return available, repository.ErrCapacityExceeded
		}
	}
	res.ID = m.nextID
	m.nextID++
	res.Status = model.StatusActive
	res.CreatedAt = time.Now().UTC()
	cp := *res
	m.rows[res.ID] = &cp
	return 0, nil
}

func (m *memLedger) GetByID(_ context.Context, id uint64) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memLedger) FindByCredentialHash(_ context.Context, hash string) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.CredentialHash == hash {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrReservationNotFound
}

func (m *memLedger) Cancel(_ context.Context, id uint64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok || r.Cancelled() {
		return false, nil
	}
	r.Status = model.StatusCancelled
	t := at.UTC()
	r.CancelledAt = &t
	return true, nil
}

func (m *memLedger) SetCheckIn(_ context.Context, id uint64, checkedIn bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rows[id]; ok && !r.Cancelled() {
		r.CheckedIn = checkedIn
		if checkedIn {
			t := at.UTC()
			r.CheckedInAt = &t
		} else {
			r.CheckedInAt = nil
		}
	}
	return nil
}

func bookingFixture() (*service.BookingService, *memLedger) {
	perfs := &memPerformances{perfs: map[uint64]*model.Performance{
		7: {
			ID:    7,
			Title: "The Tempest",
			Venue: "Harbor Hall",
			Stages: []model.Stage{
				{ID: 1, PerformanceID: 7, Idx: 0, SeatLimit: 2},
				{ID: 2, PerformanceID: 7, Idx: 1, SeatLimit: 0},
			},
		},
	}}
	ledger := newMemLedger()
	svc := service.NewBookingService(perfs, ledger, nil, nil, "https://tickets.example.org")
	return svc, ledger
}

func postBooking(t *testing.T, h *BookingHandler, perfID, idx, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/performances/:id/stages/:idx/reservations")
	c.SetParamNames("id", "idx")
	c.SetParamValues(perfID, idx)
	if err := h.Create(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func TestBookingHandler_Create(t *testing.T) {
	t.Parallel()

	validBody := `{"party_size":1,"name":"Aoi","email":"aoi@example.org","email_confirm":"aoi@example.org"}`

	t.Run("creates a reservation", func(t *testing.T) {
		t.Parallel()
		svc, _ := bookingFixture()
		rec := postBooking(t, NewBookingHandler(svc), "7", "0", validBody)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusCreated, rec.Body)
		}
		var resp struct {
			ReservationID uint64 `json:"reservation_id"`
			CancelURL     string `json:"cancel_url"`
			Occupancy     string `json:"occupancy"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		if resp.ReservationID == 0 {
			t.Error("reservation_id missing from response")
		}
		if !strings.HasPrefix(resp.CancelURL, "https://tickets.example.org/cancel?token=") {
			t.Errorf("cancel_url = %q, want cancellation link on the configured origin", resp.CancelURL)
		}
		if resp.Occupancy != "few" {
			t.Errorf("occupancy = %q, want %q (one of two seats taken)", resp.Occupancy, "few")
		}
	})

	t.Run("rejects a mismatched email confirmation", func(t *testing.T) {
		t.Parallel()
		svc, ledger := bookingFixture()
		body := `{"party_size":1,"name":"Aoi","email":"aoi@example.org","email_confirm":"typo@example.org"}`
		rec := postBooking(t, NewBookingHandler(svc), "7", "0", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
		if got := len(ledger.rows); got != 0 {
			t.Errorf("ledger has %d rows after rejected booking, want 0", got)
		}
	})

	t.Run("404 for an unknown performance", func(t *testing.T) {
		t.Parallel()
		svc, _ := bookingFixture()
		rec := postBooking(t, NewBookingHandler(svc), "99", "0", validBody)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("409 with the available count when full", func(t *testing.T) {
		t.Parallel()
		svc, _ := bookingFixture()
		h := NewBookingHandler(svc)
		first := `{"party_size":2,"name":"Aoi","email":"aoi@example.org","email_confirm":"aoi@example.org"}`
		if rec := postBooking(t, h, "7", "0", first); rec.Code != http.StatusCreated {
			t.Fatalf("seed booking status = %d, want %d", rec.Code, http.StatusCreated)
		}
		rec := postBooking(t, h, "7", "0", validBody)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusConflict, rec.Body)
		}
		var resp struct {
			Available int `json:"available"`
			Requested int `json:"requested"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response: %v", err)
		}
		if resp.Available != 0 || resp.Requested != 1 {
			t.Errorf("available/requested = %d/%d, want 0/1", resp.Available, resp.Requested)
		}
	})

	t.Run("uncapped stage accepts any party", func(t *testing.T) {
		t.Parallel()
		svc, _ := bookingFixture()
		body := `{"party_size":300,"name":"Aoi","email":"aoi@example.org","email_confirm":"aoi@example.org"}`
		rec := postBooking(t, NewBookingHandler(svc), "7", "1", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want %d (%s)", rec.Code, http.StatusCreated, rec.Body)
		}
	})
}
