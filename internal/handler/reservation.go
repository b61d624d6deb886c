package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/visit-queue-reservation/internal/booking"
	"github.com/iliyamo/visit-queue-reservation/internal/queue"
	"github.com/iliyamo/visit-queue-reservation/internal/repository"
	queue_publisher "github.com/iliyamo/visit-queue-reservation/internal/service"
)

// ReservationHandler exposes the visitor-side booking endpoints. All
// admission and withdrawal logic lives in the booking core; the handler
// only parses requests, maps the core's error taxonomy to HTTP and
// publishes post-commit events.
type ReservationHandler struct {
	Ledger       *booking.Ledger
	Canceller    *booking.Canceller
	Reservations *repository.ReservationRepo
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(ledger *booking.Ledger, canceller *booking.Canceller, reservations *repository.ReservationRepo) *ReservationHandler {
	return &ReservationHandler{Ledger: ledger, Canceller: canceller, Reservations: reservations}
}

// CreateReservation admits the caller into a slot window's queue for a
// visit date. On success the response carries the assigned queue
// position and the single-use check-in token the visitor presents at
// the door.
func (h *ReservationHandler) CreateReservation(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req struct {
		OrganizationID uint64 `json:"organization_id"`
		WindowID       uint64 `json:"window_id"`
		VisitDate      string `json:"visit_date"`
	}
	if err := c.Bind(&req); err != nil || req.OrganizationID == 0 || req.WindowID == 0 || req.VisitDate == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "organization_id, window_id and visit_date are required"})
	}
	date, err := parseVisitDate(req.VisitDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "visit_date must be YYYY-MM-DD"})
	}

	adm, err := h.Ledger.Admit(c.Request().Context(), uid, req.OrganizationID, req.WindowID, date)
	if err != nil {
		return bookingError(c, err)
	}

	go publishReservationEvent(queue.ReservationEvent{
		Type:           queue.EventReservationCreated,
		ReservationID:  adm.Reservation.ID,
		UserID:         uid,
		OrganizationID: req.OrganizationID,
		WindowID:       req.WindowID,
		VisitDate:      formatVisitDate(date),
		Position:       adm.Position,
		OccurredAt:     time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": adm.Reservation.ID,
		"position":       adm.Position,
		"visit_date":     formatVisitDate(date),
		"status":         adm.Reservation.Status,
		"checkin_token":  adm.Reservation.CheckinToken,
	})
}

// WithdrawReservation cancels the caller's own reservation. Later queue
// positions shift down atomically with the withdrawal.
func (h *ReservationHandler) WithdrawReservation(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	reservationID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}

	if err := h.Canceller.Withdraw(c.Request().Context(), reservationID, booking.Requester{UserID: uid}); err != nil {
		return bookingError(c, err)
	}

	go publishReservationEvent(queue.ReservationEvent{
		Type:          queue.EventReservationWithdrawn,
		ReservationID: reservationID,
		UserID:        uid,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "reservation withdrawn"})
}

// ListMyReservations returns all of the caller's reservations, newest
// visit date first, including each one's check-in token.
func (h *ReservationHandler) ListMyReservations(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	details, err := h.Reservations.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
	}
	out := make([]echo.Map, 0, len(details))
	for i := range details {
		d := &details[i]
		out = append(out, echo.Map{
			"id":                d.ID,
			"organization_id":   d.OrganizationID,
			"organization_name": d.OrganizationName,
			"window_id":         d.WindowID,
			"window_label":      d.WindowLabel,
			"visit_date":        formatVisitDate(d.VisitDate),
			"status":            d.Status,
			"checked_in":        d.CheckedIn,
			"position":          d.Position,
			"checkin_token":     d.CheckinToken,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": out})
}

// GetPosition returns the live queue position of one reservation owned
// by the caller.
func (h *ReservationHandler) GetPosition(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	reservationID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	pos, err := h.Ledger.Position(c.Request().Context(), reservationID, booking.Requester{UserID: uid})
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservation_id": reservationID, "position": pos})
}

// publishReservationEvent fires an event at the broker without blocking
// the request. Publish failures are already logged by the publisher.
func publishReservationEvent(ev queue.ReservationEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = queue_publisher.PublishReservationEvent(ctx, ev)
}
