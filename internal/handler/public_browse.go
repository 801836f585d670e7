// Package handler exposes HTTP handlers for both guest-facing and
// troupe-facing endpoints.  This file defines the public browsing
// API: unauthenticated audiences see performances, their stages and
// the occupancy label, but never the raw reserved counts — those are
// reserved for the troupe dashboard.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hiraku/stagebook/internal/capacity"
	"github.com/hiraku/stagebook/internal/model"
	"github.com/hiraku/stagebook/internal/repository"
)

// PublicHandler aggregates the read-side dependencies of the public
// browsing endpoints.  Occupancy is served from the Redis snapshot
// store when a snapshot exists and recomputed from the ledger
// otherwise.
type PublicHandler struct {
	PerformanceRepo *repository.PerformanceRepo
	ReservationRepo *repository.ReservationRepo
	Snapshots       *repository.OccupancyStore
}

// NewPublicHandler constructs a PublicHandler.  Repositories must be
// non-nil; Snapshots may be backed by a nil Redis client.
func NewPublicHandler(perfRepo *repository.PerformanceRepo, resRepo *repository.ReservationRepo, snapshots *repository.OccupancyStore) *PublicHandler {
	if perfRepo == nil || resRepo == nil {
		panic("nil repository passed to NewPublicHandler")
	}
	return &PublicHandler{PerformanceRepo: perfRepo, ReservationRepo: resRepo, Snapshots: snapshots}
}

// PublicStage is a stage as audiences see it: schedule plus the
// occupancy label, no counts.
type PublicStage struct {
	Idx         int                `json:"idx"`
	PerformedOn string             `json:"performed_on"`
	StartsAt    string             `json:"starts_at"`
	EndsAt      string             `json:"ends_at"`
	Occupancy   capacity.Occupancy `json:"occupancy"`
}

// PublicPerformance is a performance in public responses.
type PublicPerformance struct {
	ID     uint64        `json:"id"`
	Title  string        `json:"title"`
	Venue  string        `json:"venue"`
	Stages []PublicStage `json:"stages"`
}

// ListPerformances handles GET /v1/performances.  It returns all
// performances that still have an upcoming stage, chronologically,
// each stage carrying its occupancy label.
func (h *PublicHandler) ListPerformances(c echo.Context) error {
	ctx := c.Request().Context()
	today := time.Now().UTC().Format("2006-01-02")
	perfs, err := h.PerformanceRepo.ListUpcoming(ctx, today)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]PublicPerformance, 0, len(perfs))
	for i := range perfs {
		view, err := h.publicView(c, &perfs[i])
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
		}
		out = append(out, *view)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetPerformance handles GET /v1/performances/:id.  It returns one
// performance with the occupancy label of every stage.
func (h *PublicHandler) GetPerformance(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid performance id"})
	}
	perf, err := h.PerformanceRepo.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrPerformanceNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "performance not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	view, err := h.publicView(c, perf)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": view})
}

// publicView assembles the sanitized response for one performance,
// resolving each stage's occupancy from snapshot or ledger.
func (h *PublicHandler) publicView(c echo.Context, perf *model.Performance) (*PublicPerformance, error) {
	out := PublicPerformance{ID: perf.ID, Title: perf.Title, Venue: perf.Venue, Stages: make([]PublicStage, 0, len(perf.Stages))}
	for _, stage := range perf.Stages {
		occ, err := h.occupancyOf(c, stage)
		if err != nil {
			return nil, err
		}
		out.Stages = append(out.Stages, PublicStage{
			Idx:         stage.Idx,
			PerformedOn: stage.PerformedOn.Format("2006-01-02"),
			StartsAt:    stage.StartsAt.UTC().Format(time.RFC3339),
			EndsAt:      stage.EndsAt.UTC().Format(time.RFC3339),
			Occupancy:   occ,
		})
	}
	return &out, nil
}

// occupancyOf prefers the event-refreshed snapshot and falls back to
// recomputing from the ledger when none is stored yet.
func (h *PublicHandler) occupancyOf(c echo.Context, stage model.Stage) (capacity.Occupancy, error) {
	ctx := c.Request().Context()
	if h.Snapshots != nil {
		if snap, err := h.Snapshots.Get(ctx, stage.PerformanceID, stage.Idx); err == nil && snap != nil {
			return snap.Occupancy, nil
		}
		// snapshot miss or redis error: fall through to the ledger
	}
	ledger, err := h.ReservationRepo.ActiveByStage(ctx, stage.PerformanceID, stage.Idx)
	if err != nil {
		return capacity.Available, err
	}
	return capacity.Classify(capacity.ReservedCount(ledger), stage.SeatLimit), nil
}
