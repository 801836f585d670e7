package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/hiraku/stagebook/internal/handler"    // import the handlers that implement business logic
	"github.com/hiraku/stagebook/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// The health endpoint can be used by load balancers or monitoring
	// systems to verify that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the guest-facing endpoints: browsing
// performances, booking seats and the credential-based cancellation
// flow.  None of these apply JWT or role middleware; possession of
// the cancellation credential is the only authorization a guest ever
// needs.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, b *handler.BookingHandler, c *handler.CancellationHandler) {
	// Browse upcoming performances with per-stage occupancy labels.
	e.GET("/v1/performances", p.ListPerformances)
	// Detail view of one performance.
	e.GET("/v1/performances/:id", p.GetPerformance)
	// Book seats for one stage of a performance.
	e.POST("/v1/performances/:id/stages/:idx/reservations", b.Create)
	// Resolve a reservation by its cancellation credential.
	e.GET("/v1/cancel/:token", c.Resolve)
	// Cancel the reservation the credential belongs to.  Idempotent.
	e.POST("/v1/cancel/:token", c.Cancel)
	// PNG QR code encoding the cancellation link, for confirmation mails.
	e.GET("/v1/cancel/:token/qr", c.QR)
}

// RegisterTroupe registers the authenticated troupe endpoints behind
// the JWT and role middleware: the reservation dashboard and the
// admission check-in toggle.
func RegisterTroupe(e *echo.Echo, t *handler.TroupeHandler, jwtSecret string) {
	g := e.Group("/v1/troupe")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("TROUPE"))
	// The troupe's own performances.
	g.GET("/performances", t.ListPerformances)
	// Dashboard: all reservations of a performance plus per-stage capacity.
	g.GET("/performances/:id/reservations", t.ListReservations)
	// Toggle the attendance flag of a reservation during admission.
	g.POST("/reservations/:id/checkin", t.ToggleCheckIn)
}
