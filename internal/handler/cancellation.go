package handler

// This file defines the guest-facing cancellation endpoints.  A
// guest has no account: the unguessable credential from the
// confirmation mail is the only proof of ownership, so these routes
// carry no authentication middleware at all.  Lookups stay valid
// after cancellation so the confirmation page survives reloads.

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/hiraku/stagebook/internal/repository"
	"github.com/hiraku/stagebook/internal/service"
)

// CancellationHandler exposes resolve, cancel and door-slip QR
// endpoints keyed by the cancellation credential.
type CancellationHandler struct {
	Cancellation *service.CancellationService
	BaseURL      string // public origin, used to rebuild the cancel URL for the QR slip
}

// NewCancellationHandler constructs a CancellationHandler.  The
// service must be non-nil.
func NewCancellationHandler(cancellation *service.CancellationService, baseURL string) *CancellationHandler {
	if cancellation == nil {
		panic("nil service passed to NewCancellationHandler")
	}
	return &CancellationHandler{Cancellation: cancellation, BaseURL: baseURL}
}

// Resolve handles GET /v1/cancel/:token.  It returns the reservation
// bound to the credential so the cancellation page can render it.
// Unknown tokens yield 404; the response never includes other
// guests' data regardless of how many reservations exist.
func (h *CancellationHandler) Resolve(c echo.Context) error {
	res, err := h.Cancellation.ResolveByCredential(c.Request().Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to resolve reservation"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": res})
}

// Cancel handles POST /v1/cancel/:token.  The transition happens at
// most once; cancelling an already cancelled reservation returns 200
// with the unchanged record, so duplicate clicks and retries are
// safe.  The freed seats are available to other guests immediately.
func (h *CancellationHandler) Cancel(c echo.Context) error {
	res, err := h.Cancellation.Cancel(c.Request().Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel reservation"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":       res.Status,
		"cancelled_at": res.CancelledAt,
	})
}

// QR handles GET /v1/cancel/:token/qr.  It renders the cancellation
// URL as a PNG QR code the guest can keep on their phone as a door
// slip; staff scanning it land on the same reservation the guest
// sees.  The token is validated first so unknown credentials still
// yield 404 instead of a dead QR image.
func (h *CancellationHandler) QR(c echo.Context) error {
	token := c.Param("token")
	if _, err := h.Cancellation.ResolveByCredential(c.Request().Context(), token); err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to resolve reservation"})
	}
	png, err := qrcode.Encode(h.BaseURL+"/cancel?token="+token, qrcode.Medium, 256)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to render qr code"})
	}
	return c.Blob(http.StatusOK, "image/png", png)
}
