package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/starevents/ticketing/internal/model"
	"github.com/starevents/ticketing/internal/repository"
)

// OrganizerHandler lets organizers manage their own events.  New and
// edited events go through the admin moderation queue before they are
// bookable; the stats endpoint feeds the organizer dashboard.
type OrganizerHandler struct {
	EventRepo *repository.EventRepo
}

// NewOrganizerHandler constructs an OrganizerHandler.
func NewOrganizerHandler(repo *repository.EventRepo) *OrganizerHandler {
	if repo == nil {
		panic("nil repository passed to NewOrganizerHandler")
	}
	return &OrganizerHandler{EventRepo: repo}
}

// eventRequest is the create/update payload for an event.
type eventRequest struct {
	Title            string    `json:"title"`
	Description      *string   `json:"description"`
	VenueID          uint64    `json:"venue_id"`
	CategoryID       uint64    `json:"category_id"`
	TicketPriceCents int64     `json:"ticket_price_cents"`
	TotalSeats       int       `json:"total_seats"`
	StartsAt         time.Time `json:"starts_at"`
	EndsAt           time.Time `json:"ends_at"`
}

// validate normalizes the payload and reports the first problem found.
// forCreate additionally requires a capacity; capacity is immutable on
// update and ignored there.
func (r *eventRequest) validate(forCreate bool) string {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return "title is required"
	}
	if r.VenueID == 0 {
		return "venue_id is required"
	}
	if r.CategoryID == 0 {
		return "category_id is required"
	}
	if r.TicketPriceCents < 0 {
		return "ticket_price_cents must not be negative"
	}
	if forCreate && r.TotalSeats < 1 {
		return "total_seats must be at least 1"
	}
	if r.StartsAt.IsZero() || r.EndsAt.IsZero() || !r.EndsAt.After(r.StartsAt) {
		return "ends_at must be after starts_at"
	}
	return ""
}

// ListMyEvents handles GET /v1/organizer/events.  It returns the
// organizer's events in every moderation state, newest first.
func (h *OrganizerHandler) ListMyEvents(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	events, err := h.EventRepo.ListByOrganizer(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": events})
}

// CreateEvent handles POST /v1/organizer/events.  New events start
// PENDING with the full capacity available and wait for admin review.
func (h *OrganizerHandler) CreateEvent(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := req.validate(true); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ev := &model.Event{
		Title:            req.Title,
		Description:      req.Description,
		VenueID:          req.VenueID,
		CategoryID:       req.CategoryID,
		OrganizerID:      userID,
		TicketPriceCents: req.TicketPriceCents,
		TotalSeats:       req.TotalSeats,
		StartsAt:         req.StartsAt.UTC(),
		EndsAt:           req.EndsAt.UTC(),
	}
	if err := h.EventRepo.Create(c.Request().Context(), ev); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create event"})
	}
	return c.JSON(http.StatusCreated, ev)
}

// UpdateEvent handles PUT /v1/organizer/events/:id.  Only descriptive
// fields may change; capacity is fixed at creation because the seat
// counter is owned by the booking workflow.
func (h *OrganizerHandler) UpdateEvent(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := req.validate(false); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ev := &model.Event{
		ID:               id,
		Title:            req.Title,
		Description:      req.Description,
		VenueID:          req.VenueID,
		CategoryID:       req.CategoryID,
		TicketPriceCents: req.TicketPriceCents,
		StartsAt:         req.StartsAt.UTC(),
		EndsAt:           req.EndsAt.UTC(),
	}
	if err := h.EventRepo.UpdateForOrganizer(c.Request().Context(), ev, userID); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		if errors.Is(err, repository.ErrForbidden) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update event"})
	}
	return c.JSON(http.StatusOK, ev)
}

// DeleteEvent handles DELETE /v1/organizer/events/:id.  Events with
// bookings cannot be deleted and answer 409.
func (h *OrganizerHandler) DeleteEvent(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.EventRepo.DeleteForOrganizer(c.Request().Context(), id, userID); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		if errors.Is(err, repository.ErrForbidden) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "event has bookings"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete event"})
	}
	return c.NoContent(http.StatusNoContent)
}

// GetStats handles GET /v1/organizer/stats.  Per-event paid booking
// counts, tickets sold and revenue for the organizer dashboard.
func (h *OrganizerHandler) GetStats(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	stats, err := h.EventRepo.StatsByOrganizer(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": stats})
}
