package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/visit-queue-reservation/internal/repository"
)

// WindowHandler exposes the slot window catalog management endpoints
// for ORG users. Windows define the bookable time ranges and the
// per-partition capacity limit.
type WindowHandler struct {
	Orgs    *repository.OrganizationRepo
	Windows *repository.WindowRepo
}

// NewWindowHandler constructs a WindowHandler.
func NewWindowHandler(orgs *repository.OrganizationRepo, windows *repository.WindowRepo) *WindowHandler {
	return &WindowHandler{Orgs: orgs, Windows: windows}
}

// parseClock validates an "HH:MM" time of day and normalizes it to the
// "HH:MM:SS" form the database stores.
func parseClock(s string) (string, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return "", err
	}
	return t.Format("15:04:05"), nil
}

// CreateWindow adds a window to the caller's catalog.
func (h *WindowHandler) CreateWindow(c echo.Context) error {
	org, err := requireOrg(c, h.Orgs)
	if err != nil {
		return err
	}

	var req struct {
		Label    string `json:"label"`
		StartsAt string `json:"starts_at"`
		EndsAt   string `json:"ends_at"`
		Capacity uint32 `json:"capacity"`
	}
	if err := c.Bind(&req); err != nil || req.Label == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "label, starts_at, ends_at and capacity are required"})
	}
	if req.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be at least 1"})
	}
	starts, err := parseClock(req.StartsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be HH:MM"})
	}
	ends, err := parseClock(req.EndsAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be HH:MM"})
	}
	if ends <= starts {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be after starts_at"})
	}

	w := &repository.SlotWindow{
		OrganizationID: org.ID,
		Label:          req.Label,
		StartsAt:       starts,
		EndsAt:         ends,
		Capacity:       req.Capacity,
	}
	if err := h.Windows.Create(c.Request().Context(), w); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create window"})
	}
	return c.JSON(http.StatusCreated, windowResponse(w))
}

// ListWindows returns the caller's full catalog, active and inactive.
func (h *WindowHandler) ListWindows(c echo.Context) error {
	org, err := requireOrg(c, h.Orgs)
	if err != nil {
		return err
	}
	ws, err := h.Windows.ListByOrg(c.Request().Context(), org.ID, false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}
	out := make([]echo.Map, 0, len(ws))
	for i := range ws {
		out = append(out, windowResponse(&ws[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"windows": out})
}

// UpdateWindow changes label, times, capacity or the active flag.
// Shrinking capacity below the current number of active reservations is
// allowed; existing reservations are unaffected and only new admissions
// see the lower limit.
func (h *WindowHandler) UpdateWindow(c echo.Context) error {
	org, err := requireOrg(c, h.Orgs)
	if err != nil {
		return err
	}
	windowID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid window id"})
	}

	w, err := h.Windows.GetForOrg(c.Request().Context(), windowID, org.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "window not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}

	var req struct {
		Label    *string `json:"label"`
		StartsAt *string `json:"starts_at"`
		EndsAt   *string `json:"ends_at"`
		Capacity *uint32 `json:"capacity"`
		IsActive *bool   `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Label != nil {
		if *req.Label == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "label cannot be empty"})
		}
		w.Label = *req.Label
	}
	if req.StartsAt != nil {
		starts, err := parseClock(*req.StartsAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at must be HH:MM"})
		}
		w.StartsAt = starts
	}
	if req.EndsAt != nil {
		ends, err := parseClock(*req.EndsAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be HH:MM"})
		}
		w.EndsAt = ends
	}
	if w.EndsAt <= w.StartsAt {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ends_at must be after starts_at"})
	}
	if req.Capacity != nil {
		if *req.Capacity == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "capacity must be at least 1"})
		}
		w.Capacity = *req.Capacity
	}
	if req.IsActive != nil {
		w.IsActive = *req.IsActive
	}

	if err := h.Windows.Update(c.Request().Context(), w); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "window not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update window"})
	}
	return c.JSON(http.StatusOK, windowResponse(w))
}

// DeleteWindow removes a window that has no active reservations left.
func (h *WindowHandler) DeleteWindow(c echo.Context) error {
	org, err := requireOrg(c, h.Orgs)
	if err != nil {
		return err
	}
	windowID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid window id"})
	}
	if err := h.Windows.Delete(c.Request().Context(), windowID, org.ID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "window not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "window has active reservations"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not delete window"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}

func windowResponse(w *repository.SlotWindow) echo.Map {
	return echo.Map{
		"id":        w.ID,
		"label":     w.Label,
		"starts_at": w.StartsAt,
		"ends_at":   w.EndsAt,
		"capacity":  w.Capacity,
		"is_active": w.IsActive,
	}
}
