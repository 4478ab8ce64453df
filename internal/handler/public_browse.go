// Package handler exposes HTTP handlers for both authenticated and public endpoints.
// This file defines handlers for the public browsing API. These routes allow
// unauthenticated users to browse approved events, venues and categories without
// requiring authentication. Sensitive fields (organizer IDs, moderation
// timestamps) are filtered from responses.

package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/starevents/ticketing/internal/model"
	"github.com/starevents/ticketing/internal/repository"
)

// PublicHandler aggregates repositories needed for unauthenticated browsing.
// It produces sanitized responses suitable for public consumption.
type PublicHandler struct {
	EventRepo    *repository.EventRepo    // provides access to event data
	VenueRepo    *repository.VenueRepo    // provides access to venue data
	CategoryRepo *repository.CategoryRepo // provides access to category data
}

// PublicEvent represents an event exposed via the public API. It contains
// only safe fields; the organizer ID and moderation state are omitted
// (only approved events are ever listed).
type PublicEvent struct {
	ID               uint64    `json:"id"`
	Title            string    `json:"title"`
	Description      *string   `json:"description,omitempty"`
	VenueID          uint64    `json:"venue_id"`
	CategoryID       uint64    `json:"category_id"`
	TicketPriceCents int64     `json:"ticket_price_cents"`
	AvailableSeats   int       `json:"available_seats"`
	StartsAt         time.Time `json:"starts_at"`
	EndsAt           time.Time `json:"ends_at"`
}

// ListEvents handles GET /v1/events.  It returns approved events,
// optionally filtered by keyword (q), category_id, venue_id and a
// from/to window on the start time (RFC 3339).  Invalid filter values
// are rejected rather than silently ignored.
func (h *PublicHandler) ListEvents(c echo.Context) error {
	var f repository.BrowseFilter
	f.Keyword = c.QueryParam("q")
	if v := c.QueryParam("category_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid category_id"})
		}
		f.CategoryID = id
	}
	if v := c.QueryParam("venue_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue_id"})
		}
		f.VenueID = id
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from timestamp"})
		}
		f.From = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to timestamp"})
		}
		f.To = &t
	}

	events, err := h.EventRepo.Browse(c.Request().Context(), f)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	out := make([]PublicEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, PublicEvent{
			ID:               ev.ID,
			Title:            ev.Title,
			Description:      ev.Description,
			VenueID:          ev.VenueID,
			CategoryID:       ev.CategoryID,
			TicketPriceCents: ev.TicketPriceCents,
			AvailableSeats:   ev.AvailableSeats,
			StartsAt:         ev.StartsAt,
			EndsAt:           ev.EndsAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetEvent handles GET /v1/events/:id.  Only approved events are
// visible; pending and rejected events answer 404 exactly like missing
// ones so their existence is not leaked.
func (h *PublicHandler) GetEvent(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ev, err := h.EventRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if ev.Status != model.EventApproved {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	return c.JSON(http.StatusOK, PublicEvent{
		ID:               ev.ID,
		Title:            ev.Title,
		Description:      ev.Description,
		VenueID:          ev.VenueID,
		CategoryID:       ev.CategoryID,
		TicketPriceCents: ev.TicketPriceCents,
		AvailableSeats:   ev.AvailableSeats,
		StartsAt:         ev.StartsAt,
		EndsAt:           ev.EndsAt,
	})
}

// ListVenues handles GET /v1/venues.  Venues are open reference data.
func (h *PublicHandler) ListVenues(c echo.Context) error {
	venues, err := h.VenueRepo.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": venues})
}

// ListCategories handles GET /v1/categories.
func (h *PublicHandler) ListCategories(c echo.Context) error {
	cats, err := h.CategoryRepo.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": cats})
}
