// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/visit-queue-reservation/internal/handler"
	"github.com/iliyamo/visit-queue-reservation/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication at
// all. Currently that is only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication routes and the shared /v1/me
// endpoint. Unauthenticated session operations live under /v1/auth;
// /v1/me requires a valid access token with either role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token and issues a new access token.
	g.POST("/refresh", a.Refresh)
	// Issues a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("USER", "ORG"),
	)
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated browse endpoints: the
// organization directory and each organization's bookable windows.
// browseCache is the response cache middleware; pass nil middleware when
// caching is disabled.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, browseCache echo.MiddlewareFunc) {
	g := e.Group("")
	if browseCache != nil {
		g.Use(browseCache)
	}
	g.GET("/v1/organizations", p.ListOrganizations)
	g.GET("/v1/organizations/:id/windows", p.ListOrganizationWindows)
}
