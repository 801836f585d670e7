package handler

import (
	"errors"   // for errors.Is/As comparisons
	"net/http" // HTTP status codes
	"strconv"  // parsing path parameters

	"github.com/labstack/echo/v4"

	"github.com/hiraku/stagebook/internal/repository"
	"github.com/hiraku/stagebook/internal/service"
)

// BookingHandler exposes the audience-facing booking endpoint.  All
// validation and capacity logic lives in the booking service; the
// handler only binds the form, forwards it, and maps the error
// taxonomy onto HTTP statuses.
type BookingHandler struct {
	Booking *service.BookingService
}

// NewBookingHandler constructs a BookingHandler.  The service must be non-nil.
func NewBookingHandler(booking *service.BookingService) *BookingHandler {
	if booking == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Booking: booking}
}

// bookingBody mirrors the booking form.  The email is entered twice
// and both values are forwarded so the equality check happens with
// the rest of the validation.
type bookingBody struct {
	PartySize    int    `json:"party_size"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	EmailConfirm string `json:"email_confirm"`
	Note         string `json:"note"`
}

// Create handles POST /v1/performances/:id/stages/:idx/reservations.
// On success it returns 201 with the reservation ID, the one-time
// cancellation URL and the stage's occupancy after the booking.
// Error mapping: 400 for validation problems, 404 for a stale
// performance or stage link, 409 with the current available count
// when the party does not fit, 500 otherwise.  The client must not
// retry a 500 blindly: the write may have committed.
func (h *BookingHandler) Create(c echo.Context) error {
	performanceID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || performanceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid performance id"})
	}
	stageIdx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || stageIdx < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid stage index"})
	}
	var body bookingBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	result, err := h.Booking.Create(c.Request().Context(), service.BookingRequest{
		PerformanceID:     performanceID,
		StageIdx:          stageIdx,
		PartySize:         body.PartySize,
		GuestName:         body.Name,
		GuestEmail:        body.Email,
		GuestEmailConfirm: body.EmailConfirm,
		GuestNote:         body.Note,
	})
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Reason, "field": verr.Field})
		}
		if errors.Is(err, repository.ErrPerformanceNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "performance not found"})
		}
		if errors.Is(err, repository.ErrStageNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "stage not found"})
		}
		var cerr *service.CapacityError
		if errors.As(err, &cerr) {
			return c.JSON(http.StatusConflict, echo.Map{
				"error":     "insufficient seats",
				"available": cerr.Available,
				"requested": cerr.Requested,
			})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create reservation"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": result.Reservation.ID,
		"stage_idx":      result.Reservation.StageIdx,
		"party_size":     result.Reservation.PartySize,
		"cancel_url":     result.CancelURL,
		"occupancy":      result.Occupancy,
	})
}
