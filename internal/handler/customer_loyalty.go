package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/starevents/ticketing/internal/loyalty"
)

// LoyaltyHandler exposes the customer's loyalty portal: current
// balance and the append-only transaction history.  Balances change
// only through payment confirmation, so both endpoints are read-only.
type LoyaltyHandler struct {
	Ledger *loyalty.Ledger
}

// NewLoyaltyHandler constructs a LoyaltyHandler.  The ledger must be
// non-nil.
func NewLoyaltyHandler(ledger *loyalty.Ledger) *LoyaltyHandler {
	if ledger == nil {
		panic("nil ledger passed to NewLoyaltyHandler")
	}
	return &LoyaltyHandler{Ledger: ledger}
}

// GetBalance handles GET /v1/loyalty/balance.  Customers with no
// loyalty row yet see a zero balance.
func (h *LoyaltyHandler) GetBalance(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	balance, err := h.Ledger.Balance(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load balance"})
	}
	return c.JSON(http.StatusOK, echo.Map{"points": balance})
}

// GetHistory handles GET /v1/loyalty/history.  It returns the
// customer's earn/redeem audit records, newest first.
func (h *LoyaltyHandler) GetHistory(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Ledger.History(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load history"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
