// Package loyalty implements the loyalty-point ledger.  Points are
// earned on paid spend and redeemed for discounts; every balance
// change is paired with an audit record in the same transaction.
package loyalty

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starevents/ticketing/internal/model"
	"github.com/starevents/ticketing/internal/pricing"
	"github.com/starevents/ticketing/internal/repository"
)

// Ledger settles loyalty points for paid bookings and serves the
// customer-facing balance and history reads.
type Ledger struct {
	repo *repository.LoyaltyRepo
}

// NewLedger returns a Ledger backed by the given repository.
func NewLedger(repo *repository.LoyaltyRepo) *Ledger {
	if repo == nil {
		panic("nil repository passed to NewLedger")
	}
	return &Ledger{repo: repo}
}

// Settlement reports the outcome of settling one booking.
type Settlement struct {
	Earned   int `json:"earned"`
	Redeemed int `json:"redeemed"`
}

// SettleTx settles the loyalty side of a paid booking inside the
// caller's transaction.  It locks the customer's balance row (creating
// it at zero if absent), deducts the points the booking redeemed
// without ever driving the balance negative, credits points earned on
// the final spend and appends one audit record per change.
func (l *Ledger) SettleTx(ctx context.Context, tx *sql.Tx, b *model.Booking) (Settlement, error) {
	balance, err := l.repo.BalanceForUpdateTx(ctx, tx, b.CustomerID)
	if err != nil {
		return Settlement{}, err
	}

	var s Settlement
	if b.PointsRedeemed > 0 {
		s.Redeemed = b.PointsRedeemed
		if s.Redeemed > balance {
			s.Redeemed = balance // floor the balance at zero
		}
		balance -= s.Redeemed
		if err := l.repo.ApplyDeltaTx(ctx, tx, &model.LoyaltyTransaction{
			UserID:       b.CustomerID,
			BookingID:    &b.ID,
			PointsChange: -s.Redeemed,
			Type:         model.LoyaltyRedeem,
			Description:  fmt.Sprintf("Redeemed on booking #%d", b.ID),
		}, balance); err != nil {
			return Settlement{}, err
		}
	}

	s.Earned = pricing.EarnedPoints(b.FinalPriceCents)
	if s.Earned > 0 {
		balance += s.Earned
		if err := l.repo.ApplyDeltaTx(ctx, tx, &model.LoyaltyTransaction{
			UserID:       b.CustomerID,
			BookingID:    &b.ID,
			PointsChange: s.Earned,
			Type:         model.LoyaltyEarn,
			Description:  fmt.Sprintf("Earned on booking #%d", b.ID),
		}, balance); err != nil {
			return Settlement{}, err
		}
	}
	return s, nil
}

// BalanceTx reads the customer's balance inside a transaction without
// locking or creating the row.
func (l *Ledger) BalanceTx(ctx context.Context, tx *sql.Tx, userID string) (int, error) {
	return l.repo.BalanceTx(ctx, tx, userID)
}

// Balance returns the customer's current point balance.
func (l *Ledger) Balance(ctx context.Context, userID string) (int, error) {
	return l.repo.Balance(ctx, userID)
}

// History returns the customer's audit log, newest first.
func (l *Ledger) History(ctx context.Context, userID string) ([]model.LoyaltyTransaction, error) {
	return l.repo.History(ctx, userID)
}
