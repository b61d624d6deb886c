package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/visit-queue-reservation/internal/repository"
)

// OrganizationHandler exposes the organization profile endpoints for
// authenticated ORG users. Each ORG user owns at most one organization;
// the profile is the anchor every window and queue endpoint resolves
// the acting organization from.
type OrganizationHandler struct {
	Orgs *repository.OrganizationRepo
}

// NewOrganizationHandler constructs an OrganizationHandler.
func NewOrganizationHandler(orgs *repository.OrganizationRepo) *OrganizationHandler {
	return &OrganizationHandler{Orgs: orgs}
}

// CreateOrganization registers the caller's organization profile.
// A second profile for the same owner or a duplicate name is rejected
// with 409.
func (h *OrganizationHandler) CreateOrganization(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	if _, err := h.Orgs.GetByOwner(c.Request().Context(), uid); err == nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "organization already exists"})
	} else if !errors.Is(err, sql.ErrNoRows) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}

	org := &repository.Organization{OwnerID: uid, Name: req.Name, Description: req.Description}
	if err := h.Orgs.Create(c.Request().Context(), org); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "organization name already taken"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create organization"})
	}

	return c.JSON(http.StatusCreated, orgResponse(org))
}

// GetOrganization returns the caller's own organization profile.
func (h *OrganizationHandler) GetOrganization(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	org, err := h.Orgs.GetByOwner(c.Request().Context(), uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "organization not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}
	return c.JSON(http.StatusOK, orgResponse(org))
}

func orgResponse(o *repository.Organization) echo.Map {
	return echo.Map{
		"id":          o.ID,
		"name":        o.Name,
		"description": o.Description,
		"is_active":   o.IsActive,
		"created_at":  o.CreatedAt,
	}
}

// requireOrg resolves the acting organization for an authenticated ORG
// user. Shared by the window, queue and check-in handlers.
func requireOrg(c echo.Context, orgs *repository.OrganizationRepo) (*repository.Organization, error) {
	uid, err := getUserID(c)
	if err != nil {
		return nil, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	org, err := orgs.GetByOwner(c.Request().Context(), uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "organization not found"})
		}
		return nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}
	return org, nil
}
