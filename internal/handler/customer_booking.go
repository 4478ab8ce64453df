package handler

import (
	"errors"   // for errors.Is comparisons against service and repository sentinels
	"net/http" // HTTP status codes

	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/starevents/ticketing/internal/booking"
	"github.com/starevents/ticketing/internal/repository"
)

// BookingHandler exposes the customer-facing booking workflow.  All
// methods assume that JWT authentication and role validation has
// already been performed by middleware and delegate state changes to
// the booking service, which owns the transactional logic.
type BookingHandler struct {
	Svc *booking.Service
}

// NewBookingHandler constructs a BookingHandler.  The service must be
// non-nil.
func NewBookingHandler(svc *booking.Service) *BookingHandler {
	if svc == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Svc: svc}
}

// QuoteBooking handles POST /v1/bookings/quote.  It prices a
// prospective booking (promo code and loyalty redemption included)
// without reserving anything, and reports how many tickets the
// customer may still buy for the event.  Used by the checkout screen.
func (h *BookingHandler) QuoteBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req booking.CreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	quote, remaining, err := h.Svc.Quote(c.Request().Context(), userID, req)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"quote":         quote,
		"remaining_cap": remaining,
	})
}

// CreateBooking handles POST /v1/bookings.  It reserves seats for the
// customer: the booking is created PENDING with a reservation deadline
// and the event's seat counter is decremented atomically.  Returns 201
// with the booking and its price breakdown.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req booking.CreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	res, err := h.Svc.Create(c.Request().Context(), userID, req)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// GetBooking handles GET /v1/bookings/:id.  It returns the booking
// summary.  When the reservation deadline has passed the booking is
// lazily expired first and the response reports 410 Gone with the
// updated (EXPIRED) booking attached so the client can render it.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Svc.Summary(c.Request().Context(), userID, id)
	if err != nil {
		if errors.Is(err, booking.ErrReservationExpired) {
			return c.JSON(http.StatusGone, echo.Map{
				"error":   "reservation expired",
				"booking": b,
			})
		}
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// ConfirmBooking handles POST /v1/bookings/:id/confirm.  It finalises
// payment: loyalty points settle, the booking transitions to PAID and
// the ticket QR is generated.  Confirming an already-paid booking is
// idempotent and returns the existing booking with 200.
func (h *BookingHandler) ConfirmBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	res, err := h.Svc.Confirm(c.Request().Context(), userID, id)
	if err != nil {
		if errors.Is(err, booking.ErrAlreadyPaid) {
			return c.JSON(http.StatusOK, echo.Map{
				"message": "already paid",
				"booking": res.Booking,
			})
		}
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// CancelBooking handles DELETE /v1/bookings/:id.  Only PENDING
// bookings may be cancelled; seats return to the event.  Returns 200
// with the cancelled booking.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	b, err := h.Svc.Cancel(c.Request().Context(), userID, id)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// ListBookings handles GET /v1/my-bookings.  It returns all bookings
// of the current customer, newest first, joined with event and venue
// details.
func (h *BookingHandler) ListBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Svc.ListForCustomer(c.Request().Context(), userID, false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// BookingHistory handles GET /v1/my-bookings/history.  It returns only
// the customer's PAID bookings (the purchase history view).
func (h *BookingHandler) BookingHistory(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Svc.ListForCustomer(c.Request().Context(), userID, true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// bookingError maps service and repository errors onto HTTP responses.
// Unknown errors become opaque 500s.
func bookingError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, booking.ErrInvalidQuantity):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity must be at least 1"})
	case errors.Is(err, booking.ErrEventNotBookable):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event is not open for booking"})
	case errors.Is(err, booking.ErrPurchaseLimit):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket limit for this event reached"})
	case errors.Is(err, repository.ErrInsufficientSeats):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "not enough seats available"})
	case errors.Is(err, repository.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, booking.ErrStateConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking is not pending"})
	case errors.Is(err, booking.ErrReservationExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": "reservation expired"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
