package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/adventure-site-booking/internal/handler"
	"github.com/iliyamo/adventure-site-booking/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health
// check.
func RegisterRoutes(e *echo.Echo) {
	// Used by load balancers or monitoring systems to verify that the
	// service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints under /v1/auth.
// Neither requires an existing session; the rate limiter guards them
// against credential stuffing.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limiter)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
}

// RegisterPublic registers unauthenticated read endpoints.  The
// availability read is the hottest path in the service, so the caller
// may pass a response-cache middleware to absorb repeat reads; a nil
// middleware registers the route uncached.
func RegisterPublic(e *echo.Echo, av *handler.AvailabilityHandler, cache echo.MiddlewareFunc) {
	if cache != nil {
		e.GET("/v1/items/:id/availability", av.GetAvailability, cache)
		return
	}
	e.GET("/v1/items/:id/availability", av.GetAvailability)
}

// RegisterPayments registers the gateway callback endpoint.  The
// webhook is authenticated by checkout-reference lookup rather than by
// JWT, and it is deliberately registered without the rate-limit
// middleware: throttling gateway retries would only delay
// reconciliation.
func RegisterPayments(e *echo.Echo, p *handler.PaymentHandler) {
	e.POST("/v1/payments/callback", p.Callback)
}

// RegisterGuest registers guest-scoped booking endpoints under /v1.
// All routes require a valid JWT and the GUEST role.
func RegisterGuest(e *echo.Echo, b *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		limiter,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("GUEST"),
	)
	g.POST("/items/:id/bookings", b.CreateBooking)
	g.POST("/bookings/:id/reschedule", b.RescheduleBooking)
	g.DELETE("/bookings/:id", b.CancelBooking)
	g.GET("/my-bookings", b.ListBookings)
	g.GET("/bookings/:id", b.GetBooking)
}

// RegisterHost registers host-scoped endpoints under /v1.  All routes
// require a valid JWT and the HOST role.  Hosts triage their inbox,
// list the bookings of their items and verify guest arrivals.
func RegisterHost(e *echo.Echo, b *handler.BookingHandler, ci *handler.CheckInHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		limiter,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("HOST"),
	)
	g.POST("/bookings/:id/seen", b.MarkHostSeen)
	g.GET("/items/:id/bookings", b.ListItemBookings)
	g.POST("/bookings/:id/checkin", ci.CheckIn)
}
