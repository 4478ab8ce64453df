package model

import "time"

// LoyaltyTransactionType classifies an audit log entry.
type LoyaltyTransactionType string

const (
	LoyaltyEarn   LoyaltyTransactionType = "EARN"
	LoyaltyRedeem LoyaltyTransactionType = "REDEEM"
)

// LoyaltyPoint holds a customer's current reward balance, one row per
// customer.  It is mutated only by the loyalty ledger during payment
// confirmation, always together with a matching LoyaltyTransaction.
type LoyaltyPoint struct {
	UserID      string    `json:"user_id"`      // loyalty_points.user_id
	Points      int       `json:"points"`       // loyalty_points.points
	LastUpdated time.Time `json:"last_updated"` // loyalty_points.last_updated
}

// LoyaltyTransaction is an append-only audit record of a balance
// change.  PointsChange is positive for EARN and negative for REDEEM.
// Rows are never mutated after creation.
type LoyaltyTransaction struct {
	ID           uint64                 `json:"id"`                   // loyalty_transactions.id
	UserID       string                 `json:"user_id"`              // loyalty_transactions.user_id
	BookingID    *uint64                `json:"booking_id,omitempty"` // loyalty_transactions.booking_id (nullable)
	PointsChange int                    `json:"points_change"`        // loyalty_transactions.points_change
	Type         LoyaltyTransactionType `json:"type"`                 // loyalty_transactions.type
	Description  string                 `json:"description"`          // loyalty_transactions.description
	CreatedAt    time.Time              `json:"created_at"`           // loyalty_transactions.created_at
}
