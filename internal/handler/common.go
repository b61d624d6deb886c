package handler // handler defines http handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/visit-queue-reservation/internal/repository"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// parseVisitDate parses the "YYYY-MM-DD" date format used by all
// booking endpoints.
func parseVisitDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// formatVisitDate renders a visit date back to "YYYY-MM-DD".
func formatVisitDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// bookingError maps the booking core's error taxonomy to distinct,
// stable HTTP responses. Every expected rejection keeps its own status
// and message so clients can decide whether to pick another window,
// refresh, or stop; only storage failures collapse to a 500.
func bookingError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrDuplicateReservation):
		return c.JSON(http.StatusConflict, echo.Map{"error": "duplicate reservation"})
	case errors.Is(err, repository.ErrCapacityExceeded):
		return c.JSON(http.StatusConflict, echo.Map{"error": "capacity exceeded"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrAlreadyWithdrawn):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already withdrawn"})
	case errors.Is(err, repository.ErrAlreadyValidated):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already validated"})
	case errors.Is(err, repository.ErrAlreadyCheckedIn):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already checked in"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}
}
