package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/visit-queue-reservation/internal/handler"
	"github.com/iliyamo/visit-queue-reservation/internal/middleware"
)

// RegisterOrg registers ORG-scoped endpoints under /v1/org. All routes
// require a valid JWT with the ORG role. Organizations manage their
// profile and window catalog, view the daily queue board, clear
// no-shows and run the check-in desk.
func RegisterOrg(e *echo.Echo, o *handler.OrganizationHandler, w *handler.WindowHandler, q *handler.OrgQueueHandler, jwtSecret string) {
	g := e.Group(
		"/v1/org",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("ORG"),
	)

	// ---- Profile ----
	g.POST("", o.CreateOrganization)
	g.GET("", o.GetOrganization)

	// ---- Window catalog ----
	g.POST("/windows", w.CreateWindow)
	g.GET("/windows", w.ListWindows)
	g.PUT("/windows/:id", w.UpdateWindow)
	g.PATCH("/windows/:id", w.UpdateWindow)
	g.DELETE("/windows/:id", w.DeleteWindow)

	// ---- Queue board ----
	g.GET("/queue", q.ListQueue)
	// Organization-initiated withdrawal, e.g. clearing a no-show.
	g.DELETE("/reservations/:id", q.WithdrawReservation)

	// ---- Check-in desk ----
	g.POST("/checkin/scan", q.ScanToken)
	g.POST("/checkin/confirm", q.ConfirmCheckin)
}
