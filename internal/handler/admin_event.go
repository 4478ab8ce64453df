package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/starevents/ticketing/internal/model"
	"github.com/starevents/ticketing/internal/repository"
)

// AdminEventHandler implements the moderation queue: admins review
// organizer submissions and approve or reject them.  Only approved
// events become visible and bookable.
type AdminEventHandler struct {
	EventRepo *repository.EventRepo
}

// NewAdminEventHandler constructs an AdminEventHandler.
func NewAdminEventHandler(repo *repository.EventRepo) *AdminEventHandler {
	if repo == nil {
		panic("nil repository passed to NewAdminEventHandler")
	}
	return &AdminEventHandler{EventRepo: repo}
}

// ListEvents handles GET /v1/admin/events.  The optional status query
// parameter narrows the listing to one moderation state; without it
// all events are returned.
func (h *AdminEventHandler) ListEvents(c echo.Context) error {
	var status model.EventStatus
	if v := strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))); v != "" {
		switch model.EventStatus(v) {
		case model.EventPending, model.EventApproved, model.EventRejected:
			status = model.EventStatus(v)
		default:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
		}
	}
	events, err := h.EventRepo.ListByStatus(c.Request().Context(), status)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": events})
}

// ApproveEvent handles POST /v1/admin/events/:id/approve.
func (h *AdminEventHandler) ApproveEvent(c echo.Context) error {
	return h.setStatus(c, model.EventApproved)
}

// RejectEvent handles POST /v1/admin/events/:id/reject.  Rejected
// events disappear from the public catalogue; existing paid bookings
// are untouched.
func (h *AdminEventHandler) RejectEvent(c echo.Context) error {
	return h.setStatus(c, model.EventRejected)
}

func (h *AdminEventHandler) setStatus(c echo.Context, status model.EventStatus) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.EventRepo.SetStatus(c.Request().Context(), id, status); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update event"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"event_id": id,
		"status":   status,
	})
}
