package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/visit-queue-reservation/internal/repository"
)

func TestBookingErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{repository.ErrNotFound, http.StatusNotFound},
		{repository.ErrDuplicateReservation, http.StatusConflict},
		{repository.ErrCapacityExceeded, http.StatusConflict},
		{repository.ErrForbidden, http.StatusForbidden},
		{repository.ErrAlreadyWithdrawn, http.StatusConflict},
		{repository.ErrAlreadyValidated, http.StatusConflict},
		{repository.ErrAlreadyCheckedIn, http.StatusConflict},
		{repository.ErrConflict, http.StatusConflict},
		{repository.ErrStorage, http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", repository.ErrCapacityExceeded), http.StatusConflict},
	}
	e := echo.New()
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		require.NoError(t, bookingError(c, tc.err))
		assert.Equal(t, tc.want, rec.Code, "error %v", tc.err)
	}
}

func TestGetUserIDAcceptsNumericClaimTypes(t *testing.T) {
	e := echo.New()
	for _, v := range []interface{}{uint64(9), int(9), int64(9), float64(9), "9"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.Set("user_id", v)
		id, err := getUserID(c)
		require.NoError(t, err, "value %T", v)
		assert.Equal(t, uint64(9), id)
	}
}

func TestGetUserIDRejectsGarbage(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set("user_id", "not-a-number")
	_, err := getUserID(c)
	assert.Error(t, err)
}

func TestVisitDateRoundTrip(t *testing.T) {
	d, err := parseVisitDate("2026-09-01")
	require.NoError(t, err)
	assert.Equal(t, "2026-09-01", formatVisitDate(d))

	_, err = parseVisitDate("01.09.2026")
	assert.Error(t, err)
}
