package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hiraku/stagebook/internal/capacity"
	"github.com/hiraku/stagebook/internal/model"
	"github.com/hiraku/stagebook/internal/repository"
	"github.com/hiraku/stagebook/internal/service"
)

// TroupeHandler bundles the dependencies of the authenticated troupe
// endpoints: the per-performance dashboard and the admission check-in
// toggle.  Unlike the public endpoints it exposes raw seat counts.
type TroupeHandler struct {
	PerformanceRepo *repository.PerformanceRepo
	ReservationRepo *repository.ReservationRepo
	Tracker         *service.CheckInTracker
}

// NewTroupeHandler constructs a TroupeHandler and panics if any dependency is nil.
func NewTroupeHandler(perfRepo *repository.PerformanceRepo, resRepo *repository.ReservationRepo, tracker *service.CheckInTracker) *TroupeHandler {
	if perfRepo == nil || resRepo == nil || tracker == nil {
		panic("nil dependency passed to NewTroupeHandler")
	}
	return &TroupeHandler{PerformanceRepo: perfRepo, ReservationRepo: resRepo, Tracker: tracker}
}

// getTroupeID extracts the troupe_id placed on the context by the JWT
// middleware and converts it to uint64.
func getTroupeID(c echo.Context) (uint64, error) {
	v := c.Get("troupe_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid troupe_id in context")
}

// ListPerformances handles GET /v1/troupe/performances.  It returns
// the calling troupe's own performances with their stages.
func (h *TroupeHandler) ListPerformances(c echo.Context) error {
	troupeID, err := getTroupeID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	perfs, err := h.PerformanceRepo.ListByTroupe(c.Request().Context(), troupeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": perfs})
}

// stageSummary is the per-stage capacity block on the dashboard.
// Unlike the public occupancy label it carries the raw numbers.
type stageSummary struct {
	Idx       int                `json:"idx"`
	SeatLimit int                `json:"seat_limit"` // 0 means uncapped
	Reserved  int                `json:"reserved"`
	Remaining *int               `json:"remaining,omitempty"` // omitted when uncapped
	Occupancy capacity.Occupancy `json:"occupancy"`
}

// reservationRow is one dashboard row.  checked_in reflects the
// tracker's optimistic view so a toggle shows up before its write
// lands.
type reservationRow struct {
	ID          uint64  `json:"id"`
	StageIdx    int     `json:"stage_idx"`
	PartySize   int     `json:"party_size"`
	GuestName   string  `json:"guest_name"`
	GuestEmail  string  `json:"guest_email"`
	GuestNote   string  `json:"guest_note,omitempty"`
	Status      string  `json:"status"`
	CheckedIn   bool    `json:"checked_in"`
	CheckedInAt *string `json:"checked_in_at,omitempty"`
	CancelledAt *string `json:"cancelled_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// ListReservations handles GET /v1/troupe/performances/:id/reservations.
// It returns every reservation of the performance, cancelled rows
// included, together with a capacity summary per stage.  Performances
// owned by a different troupe yield 403.
func (h *TroupeHandler) ListReservations(c echo.Context) error {
	troupeID, err := getTroupeID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	perfID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || perfID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid performance id"})
	}
	ctx := c.Request().Context()
	reservations, err := h.ReservationRepo.ListByPerformanceForTroupe(ctx, perfID, troupeID)
	if err != nil {
		switch err {
		case repository.ErrPerformanceNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "performance not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "performance belongs to another troupe"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
	}
	perf, err := h.PerformanceRepo.GetByID(ctx, perfID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	summaries, seatLimitTotal, reservedTotal := dashboardSummary(perf.Stages, reservations)

	rows := make([]reservationRow, 0, len(reservations))
	for i := range reservations {
		rows = append(rows, h.row(&reservations[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"performance_id":   perfID,
		"stages":           summaries,
		"seat_limit_total": seatLimitTotal, // capped stages only; 0 when every stage is uncapped
		"reserved_total":   reservedTotal,
		"reservations":     rows,
	})
}

// dashboardSummary derives the per-stage capacity blocks and the
// performance-wide totals from the full reservation listing.
// Cancelled rows stay in the listing but not in the sums.
func dashboardSummary(stages []model.Stage, reservations []model.Reservation) ([]stageSummary, int, int) {
	reservedByStage := make(map[int]int)
	reservedTotal := 0
	for i := range reservations {
		if reservations[i].Cancelled() {
			continue
		}
		reservedByStage[reservations[i].StageIdx] += reservations[i].Seats()
		reservedTotal += reservations[i].Seats()
	}
	summaries := make([]stageSummary, 0, len(stages))
	for _, stage := range stages {
		reserved := reservedByStage[stage.Idx]
		s := stageSummary{
			Idx:       stage.Idx,
			SeatLimit: stage.SeatLimit,
			Reserved:  reserved,
			Occupancy: capacity.Classify(reserved, stage.SeatLimit),
		}
		if remaining, capped := capacity.Remaining(stage.SeatLimit, reserved); capped {
			s.Remaining = &remaining
		}
		summaries = append(summaries, s)
	}
	return summaries, capacity.SeatLimitTotal(stages), reservedTotal
}

func (h *TroupeHandler) row(res *model.Reservation) reservationRow {
	row := reservationRow{
		ID:         res.ID,
		StageIdx:   res.StageIdx,
		PartySize:  res.Seats(),
		GuestName:  res.GuestName,
		GuestEmail: res.GuestEmail,
		GuestNote:  res.GuestNote,
		Status:     res.Status,
		CheckedIn:  h.Tracker.View(res.ID, res.CheckedIn),
		CreatedAt:  res.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if res.CheckedInAt != nil {
		s := res.CheckedInAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		row.CheckedInAt = &s
	}
	if res.CancelledAt != nil {
		s := res.CancelledAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		row.CancelledAt = &s
	}
	return row
}

type checkInBody struct {
	Desired bool `json:"desired"`
}

// ToggleCheckIn handles POST /v1/troupe/reservations/:id/checkin.
// The body names the desired state; asking for the state the
// reservation is already in succeeds without a write, and a toggle
// arriving while another write for the same reservation is in flight
// is reported back with ignored=true.  Cancelled reservations yield
// 409.
func (h *TroupeHandler) ToggleCheckIn(c echo.Context) error {
	troupeID, err := getTroupeID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || resID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var body checkInBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx := c.Request().Context()

	res, err := h.ReservationRepo.GetByID(ctx, resID)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	perf, err := h.PerformanceRepo.GetByID(ctx, res.PerformanceID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if perf.TroupeID != troupeID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "reservation belongs to another troupe"})
	}

	result, err := h.Tracker.Toggle(ctx, resID, body.Desired)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrReservationNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		case errors.Is(err, service.ErrReservationCancelled):
			return c.JSON(http.StatusConflict, echo.Map{"error": "reservation is cancelled"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "check-in failed"})
		}
	}
	return c.JSON(http.StatusOK, result)
}
