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

// AdminDiscountHandler manages promo codes.  All routes require the
// ADMIN role; customers only ever see discounts indirectly through the
// price quote.
type AdminDiscountHandler struct {
	DiscountRepo *repository.DiscountRepo
}

// NewAdminDiscountHandler constructs an AdminDiscountHandler.
func NewAdminDiscountHandler(repo *repository.DiscountRepo) *AdminDiscountHandler {
	if repo == nil {
		panic("nil repository passed to NewAdminDiscountHandler")
	}
	return &AdminDiscountHandler{DiscountRepo: repo}
}

// discountRequest is the create/update payload.  Timestamps are
// RFC 3339; event_id scopes the code to one event when present.
type discountRequest struct {
	Code     string    `json:"code"`
	Percent  int       `json:"percent"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	EventID  *uint64   `json:"event_id"`
	IsActive bool      `json:"is_active"`
}

// validate normalizes the payload and reports the first problem found.
func (r *discountRequest) validate() string {
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
	if r.Code == "" {
		return "code is required"
	}
	if r.Percent < 1 || r.Percent > 100 {
		return "percent must be between 1 and 100"
	}
	if r.StartsAt.IsZero() || r.EndsAt.IsZero() || !r.EndsAt.After(r.StartsAt) {
		return "ends_at must be after starts_at"
	}
	return ""
}

// ListDiscounts handles GET /v1/admin/discounts.
func (h *AdminDiscountHandler) ListDiscounts(c echo.Context) error {
	items, err := h.DiscountRepo.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetDiscount handles GET /v1/admin/discounts/:id.
func (h *AdminDiscountHandler) GetDiscount(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	d, err := h.DiscountRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrDiscountNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "discount not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, d)
}

// CreateDiscount handles POST /v1/admin/discounts.  Codes are stored
// upper-cased; a duplicate code answers 409.
func (h *AdminDiscountHandler) CreateDiscount(c echo.Context) error {
	var req discountRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	d := &model.Discount{
		Code:     req.Code,
		Percent:  req.Percent,
		StartsAt: req.StartsAt.UTC(),
		EndsAt:   req.EndsAt.UTC(),
		EventID:  req.EventID,
		IsActive: req.IsActive,
	}
	if err := h.DiscountRepo.Create(c.Request().Context(), d); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "code already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create discount"})
	}
	return c.JSON(http.StatusCreated, d)
}

// UpdateDiscount handles PUT /v1/admin/discounts/:id.  The whole
// record is replaced; deactivating a code takes effect on the next
// quote, existing PENDING bookings keep their locked-in price.
func (h *AdminDiscountHandler) UpdateDiscount(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req discountRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	d := &model.Discount{
		ID:       id,
		Code:     req.Code,
		Percent:  req.Percent,
		StartsAt: req.StartsAt.UTC(),
		EndsAt:   req.EndsAt.UTC(),
		EventID:  req.EventID,
		IsActive: req.IsActive,
	}
	if err := h.DiscountRepo.Update(c.Request().Context(), d); err != nil {
		if errors.Is(err, repository.ErrDiscountNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "discount not found"})
		}
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "code already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update discount"})
	}
	return c.JSON(http.StatusOK, d)
}

// DeleteDiscount handles DELETE /v1/admin/discounts/:id.
func (h *AdminDiscountHandler) DeleteDiscount(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.DiscountRepo.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrDiscountNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "discount not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete discount"})
	}
	return c.NoContent(http.StatusNoContent)
}
