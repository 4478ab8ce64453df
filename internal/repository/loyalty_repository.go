package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/starevents/ticketing/internal/model"
)

// LoyaltyRepo provides data access to the loyalty_points balance table
// and the append-only loyalty_transactions audit log.  Balance
// mutations go through ApplyDeltaTx, which writes the audit row in the
// same transaction so the two tables cannot drift apart.
type LoyaltyRepo struct {
	db *sql.DB
}

// NewLoyaltyRepo returns a new LoyaltyRepo bound to the given database.
func NewLoyaltyRepo(db *sql.DB) *LoyaltyRepo { return &LoyaltyRepo{db: db} }

// Balance returns the customer's current point balance; customers
// without a row yet have a balance of zero.
func (r *LoyaltyRepo) Balance(ctx context.Context, userID string) (int, error) {
	var points int
	err := r.db.QueryRowContext(ctx,
		`SELECT points FROM loyalty_points WHERE user_id = ?`, userID,
	).Scan(&points)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return points, err
}

// BalanceTx reads the balance inside a transaction without locking or
// creating the row.
func (r *LoyaltyRepo) BalanceTx(ctx context.Context, tx *sql.Tx, userID string) (int, error) {
	var points int
	err := tx.QueryRowContext(ctx,
		`SELECT points FROM loyalty_points WHERE user_id = ?`, userID,
	).Scan(&points)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return points, err
}

// BalanceForUpdateTx ensures a loyalty_points row exists for the
// customer (created with a zero balance if absent) and returns the
// current balance with the row locked.  The lock serializes
// concurrent settles for the same customer.
func (r *LoyaltyRepo) BalanceForUpdateTx(ctx context.Context, tx *sql.Tx, userID string) (int, error) {
	const ins = `INSERT INTO loyalty_points (user_id, points, last_updated)
				 VALUES (?, 0, UTC_TIMESTAMP())
				 ON DUPLICATE KEY UPDATE user_id = user_id`
	if _, err := tx.ExecContext(ctx, ins, userID); err != nil {
		return 0, err
	}
	var points int
	err := tx.QueryRowContext(ctx,
		`SELECT points FROM loyalty_points WHERE user_id = ? FOR UPDATE`, userID,
	).Scan(&points)
	return points, err
}

// ApplyDeltaTx adjusts the customer's balance by delta and appends the
// matching audit record, both inside the caller's transaction.  The
// balance is floored at zero by the caller; this method persists
// exactly what it is given.
func (r *LoyaltyRepo) ApplyDeltaTx(ctx context.Context, tx *sql.Tx, t *model.LoyaltyTransaction, newBalance int) error {
	const upd = `UPDATE loyalty_points SET points = ?, last_updated = UTC_TIMESTAMP() WHERE user_id = ?`
	if _, err := tx.ExecContext(ctx, upd, newBalance, t.UserID); err != nil {
		return err
	}
	const ins = `INSERT INTO loyalty_transactions (user_id, booking_id, points_change, type, description)
				 VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, ins, t.UserID, t.BookingID, t.PointsChange, t.Type, t.Description)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// History returns the customer's audit log, newest first.
func (r *LoyaltyRepo) History(ctx context.Context, userID string) ([]model.LoyaltyTransaction, error) {
	const q = `SELECT id, user_id, booking_id, points_change, type, description, created_at
			   FROM loyalty_transactions
			   WHERE user_id = ?
			   ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := make([]model.LoyaltyTransaction, 0)
	for rows.Next() {
		var t model.LoyaltyTransaction
		var bookingID sql.NullInt64
		if err := rows.Scan(&t.ID, &t.UserID, &bookingID, &t.PointsChange, &t.Type, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		if bookingID.Valid {
			id := uint64(bookingID.Int64)
			t.BookingID = &id
		}
		entries = append(entries, t)
	}
	return entries, rows.Err()
}
