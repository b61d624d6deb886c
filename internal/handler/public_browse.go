package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/visit-queue-reservation/internal/repository"
)

// PublicHandler serves the unauthenticated browse endpoints visitors
// use before logging in: the organization directory and each
// organization's bookable windows.
type PublicHandler struct {
	Orgs    *repository.OrganizationRepo
	Windows *repository.WindowRepo
}

// NewPublicHandler constructs a PublicHandler.
func NewPublicHandler(orgs *repository.OrganizationRepo, windows *repository.WindowRepo) *PublicHandler {
	return &PublicHandler{Orgs: orgs, Windows: windows}
}

// ListOrganizations returns all active organizations ordered by name.
func (h *PublicHandler) ListOrganizations(c echo.Context) error {
	orgs, err := h.Orgs.ListActive(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}
	out := make([]echo.Map, 0, len(orgs))
	for i := range orgs {
		o := &orgs[i]
		out = append(out, echo.Map{
			"id":          o.ID,
			"name":        o.Name,
			"description": o.Description,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"organizations": out})
}

// ListOrganizationWindows returns the active windows of one
// organization, the set a visitor can reserve into.
func (h *PublicHandler) ListOrganizationWindows(c echo.Context) error {
	orgID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid organization id"})
	}
	org, err := h.Orgs.GetByID(c.Request().Context(), orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "organization not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}
	if !org.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "organization not found"})
	}
	ws, err := h.Windows.ListByOrg(c.Request().Context(), org.ID, true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}
	out := make([]echo.Map, 0, len(ws))
	for i := range ws {
		out = append(out, windowResponse(&ws[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"organization": echo.Map{"id": org.ID, "name": org.Name},
		"windows":      out,
	})
}
