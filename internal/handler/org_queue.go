package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/visit-queue-reservation/internal/booking"
	"github.com/iliyamo/visit-queue-reservation/internal/queue"
	"github.com/iliyamo/visit-queue-reservation/internal/repository"
)

// OrgQueueHandler exposes the organization-side operational endpoints:
// the daily queue board, organization-initiated withdrawal and the
// two-step check-in flow.
type OrgQueueHandler struct {
	Orgs      *repository.OrganizationRepo
	Queue     *repository.QueueRepo
	Canceller *booking.Canceller
	Validator *booking.Validator
}

// NewOrgQueueHandler constructs an OrgQueueHandler.
func NewOrgQueueHandler(orgs *repository.OrganizationRepo, q *repository.QueueRepo, canceller *booking.Canceller, validator *booking.Validator) *OrgQueueHandler {
	return &OrgQueueHandler{Orgs: orgs, Queue: q, Canceller: canceller, Validator: validator}
}

// ListQueue returns the organization's queues for one date, every
// window's entries in position order. The board reflects committed
// state only.
func (h *OrgQueueHandler) ListQueue(c echo.Context) error {
	org, err := requireOrg(c, h.Orgs)
	if err != nil {
		return err
	}
	dateStr := c.QueryParam("date")
	if dateStr == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date query parameter is required"})
	}
	date, err := parseVisitDate(dateStr)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	}
	rows, err := h.Queue.ListForOrgDate(c.Request().Context(), org.ID, date)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"date":    formatVisitDate(date),
		"entries": rows,
	})
}

// WithdrawReservation cancels a reservation on behalf of the
// organization, e.g. a no-show cleared from the queue. Queue positions
// renumber atomically, same as a visitor-initiated withdrawal.
func (h *OrgQueueHandler) WithdrawReservation(c echo.Context) error {
	org, err := requireOrg(c, h.Orgs)
	if err != nil {
		return err
	}
	reservationID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	if err := h.Canceller.Withdraw(c.Request().Context(), reservationID, booking.Requester{OrgID: org.ID}); err != nil {
		return bookingError(c, err)
	}

	go publishReservationEvent(queue.ReservationEvent{
		Type:           queue.EventReservationWithdrawn,
		ReservationID:  reservationID,
		OrganizationID: org.ID,
		OccurredAt:     time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "reservation withdrawn"})
}

// ScanToken resolves a presented check-in token and returns the
// confirmation prompt. Scanning never consumes the token; operators may
// scan the same code repeatedly before confirming.
func (h *OrgQueueHandler) ScanToken(c echo.Context) error {
	org, err := requireOrg(c, h.Orgs)
	if err != nil {
		return err
	}
	var req struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
	}
	d, err := h.Validator.Scan(c.Request().Context(), req.Token, org.ID)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, checkinResponse(d))
}

// ConfirmCheckin consumes a scanned token and marks the reservation as
// validated and checked in. Exactly one of any number of racing
// confirms succeeds; the rest get 409.
func (h *OrgQueueHandler) ConfirmCheckin(c echo.Context) error {
	org, err := requireOrg(c, h.Orgs)
	if err != nil {
		return err
	}
	var req struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token is required"})
	}
	d, err := h.Validator.Confirm(c.Request().Context(), req.Token, org.ID)
	if err != nil {
		return bookingError(c, err)
	}

	go publishReservationEvent(queue.ReservationEvent{
		Type:             queue.EventReservationCheckedIn,
		ReservationID:    d.ReservationID,
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
		WindowLabel:      d.WindowLabel,
		VisitDate:        formatVisitDate(d.VisitDate),
		OccurredAt:       time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, checkinResponse(d))
}

func checkinResponse(d *repository.CheckinDetail) echo.Map {
	return echo.Map{
		"reservation_id": d.ReservationID,
		"display_name":   d.DisplayName,
		"window_label":   d.WindowLabel,
		"visit_date":     formatVisitDate(d.VisitDate),
		"status":         d.Status,
		"validated":      d.Validated,
		"checked_in":     d.CheckedIn,
		"position":       d.Position,
	}
}
