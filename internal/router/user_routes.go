package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/visit-queue-reservation/internal/handler"
	"github.com/iliyamo/visit-queue-reservation/internal/middleware"
)

// RegisterUser registers the visitor-scoped booking endpoints under
// /v1. All routes require a valid JWT with the USER role. Visitors can
// reserve a slot, withdraw their own reservation, list their
// reservations and poll their live queue position.
func RegisterUser(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("USER"),
	)
	g.POST("/reservations", h.CreateReservation)
	g.DELETE("/reservations/:id", h.WithdrawReservation)
	g.GET("/my-reservations", h.ListMyReservations)
	g.GET("/reservations/:id/position", h.GetPosition)
}
