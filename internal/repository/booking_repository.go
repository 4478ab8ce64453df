package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/starevents/ticketing/internal/model"
)

// BookingRepo provides data access to the bookings table.  Lifecycle
// transitions are persisted through the status-guarded methods below
// so a row already moved into a terminal state can never be moved
// again, whichever request or sweeper tick gets there first.  All
// timestamp fields are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `booking_id, event_id, customer_id, quantity,
		total_price_cents, final_price_cents, promo_code, discount_cents,
		points_redeemed, points_discount_cents, status, booked_at,
		reservation_expires_at, qr_code_path`

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	var promo, qr sql.NullString
	var expires sql.NullTime
	err := row.Scan(
		&b.ID, &b.EventID, &b.CustomerID, &b.Quantity,
		&b.TotalPriceCents, &b.FinalPriceCents, &promo, &b.DiscountCents,
		&b.PointsRedeemed, &b.PointsDiscountCents, &b.Status, &b.BookedAt,
		&expires, &qr,
	)
	if err != nil {
		return nil, err
	}
	if promo.Valid {
		p := promo.String
		b.PromoCode = &p
	}
	if qr.Valid {
		q := qr.String
		b.QRCodePath = &q
	}
	if expires.Valid {
		t := expires.Time
		b.ReservationExpiresAt = &t
	}
	return &b, nil
}

// CreateTx inserts a new PENDING booking within the given transaction
// and populates the generated ID.  The caller is responsible for the
// matching seat decrement and for committing or rolling back.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings
			   (event_id, customer_id, quantity, total_price_cents, final_price_cents,
				promo_code, discount_cents, points_redeemed, points_discount_cents,
				status, booked_at, reservation_expires_at)
			   VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var expires any
	if b.ReservationExpiresAt != nil {
		expires = b.ReservationExpiresAt.UTC()
	}
	res, err := tx.ExecContext(ctx, q,
		b.EventID, b.CustomerID, b.Quantity, b.TotalPriceCents, b.FinalPriceCents,
		b.PromoCode, b.DiscountCents, b.PointsRedeemed, b.PointsDiscountCents,
		b.Status, b.BookedAt.UTC(), expires,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetForCustomerTx loads a booking inside the given transaction,
// locking the row, and enforces ownership.  It returns
// ErrBookingNotFound both when the row does not exist and when it
// belongs to a different customer, so callers cannot probe for other
// customers' booking IDs.
func (r *BookingRepo) GetForCustomerTx(ctx context.Context, tx *sql.Tx, bookingID uint64, customerID string) (*model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings WHERE booking_id = ? FOR UPDATE`
	b, err := scanBooking(tx.QueryRowContext(ctx, q, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	if b.CustomerID != customerID {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

// SumPaidQuantityTx returns the total quantity across the customer's
// PAID bookings for an event, optionally excluding one booking ID
// (pass 0 to exclude nothing).  The purchase cap is checked against
// this figure both at creation and again at confirmation.
func (r *BookingRepo) SumPaidQuantityTx(ctx context.Context, tx *sql.Tx, customerID string, eventID, excludeBookingID uint64) (int, error) {
	const q = `SELECT COALESCE(SUM(quantity), 0) FROM bookings
			   WHERE customer_id = ? AND event_id = ? AND status = ? AND booking_id <> ?`
	var total int
	err := tx.QueryRowContext(ctx, q, customerID, eventID, model.BookingPaid, excludeBookingID).Scan(&total)
	return total, err
}

// SumPaidQuantity is the non-transactional variant used by the
// read-only checkout quote.
func (r *BookingRepo) SumPaidQuantity(ctx context.Context, customerID string, eventID uint64) (int, error) {
	const q = `SELECT COALESCE(SUM(quantity), 0) FROM bookings
			   WHERE customer_id = ? AND event_id = ? AND status = ?`
	var total int
	err := r.db.QueryRowContext(ctx, q, customerID, eventID, model.BookingPaid).Scan(&total)
	return total, err
}

// TransitionTx moves a booking out of PENDING into the given terminal
// state.  The guard on the current status makes the transition
// idempotent under races: whichever caller updates the row first wins
// and all others see ErrConflict.  The reservation deadline is cleared
// on any terminal transition.
func (r *BookingRepo) TransitionTx(ctx context.Context, tx *sql.Tx, bookingID uint64, next model.BookingStatus) error {
	const q = `UPDATE bookings SET status = ?, reservation_expires_at = NULL
			   WHERE booking_id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, next, bookingID, model.BookingPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// SetQRPathTx stores the ticket artifact path produced on payment.
// Written once, immediately after the PAID transition.
func (r *BookingRepo) SetQRPathTx(ctx context.Context, tx *sql.Tx, bookingID uint64, path string) error {
	const q = `UPDATE bookings SET qr_code_path = ? WHERE booking_id = ?`
	_, err := tx.ExecContext(ctx, q, path, bookingID)
	return err
}

// ExpiredPendingTx selects and locks up to limit PENDING bookings
// whose reservation deadline has passed, oldest deadline first.  The
// row locks act as the claim step: a second sweeper instance blocks on
// the same rows and, once they have transitioned, its own guarded
// update matches nothing.
func (r *BookingRepo) ExpiredPendingTx(ctx context.Context, tx *sql.Tx, limit int) ([]model.Booking, error) {
	const q = `SELECT ` + bookingColumns + ` FROM bookings
			   WHERE status = ? AND reservation_expires_at IS NOT NULL
				 AND reservation_expires_at < UTC_TIMESTAMP()
			   ORDER BY reservation_expires_at
			   LIMIT ?
			   FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, model.BookingPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var due []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, *b)
	}
	return due, rows.Err()
}

// ExpireBatchTx transitions the given bookings to EXPIRED in a single
// guarded statement and returns how many rows actually changed.  Rows
// no longer PENDING are skipped, keeping repeated sweeps idempotent.
func (r *BookingRepo) ExpireBatchTx(ctx context.Context, tx *sql.Tx, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := make([]string, 0, len(ids))
	args := []any{model.BookingExpired}
	for _, id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	args = append(args, model.BookingPending)
	q := `UPDATE bookings SET status = ?, reservation_expires_at = NULL
		  WHERE booking_id IN (` + strings.Join(placeholders, ",") + `) AND status = ?`
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// BookingDetail is a booking joined with its event for display in the
// customer's booking list.
type BookingDetail struct {
	model.Booking
	EventTitle    string    `json:"event_title"`
	EventStartsAt time.Time `json:"event_starts_at"`
	VenueName     string    `json:"venue_name"`
}

// ListByCustomer returns the customer's bookings newest first.  When
// paidOnly is set, only PAID bookings are returned (the history view).
func (r *BookingRepo) ListByCustomer(ctx context.Context, customerID string, paidOnly bool) ([]BookingDetail, error) {
	q := `SELECT b.booking_id, b.event_id, b.customer_id, b.quantity,
				 b.total_price_cents, b.final_price_cents, b.promo_code, b.discount_cents,
				 b.points_redeemed, b.points_discount_cents, b.status, b.booked_at,
				 b.reservation_expires_at, b.qr_code_path,
				 e.title, e.starts_at, v.name
		  FROM bookings b
		  JOIN events e ON e.event_id = b.event_id
		  JOIN venues v ON v.venue_id = e.venue_id
		  WHERE b.customer_id = ?`
	args := []any{customerID}
	if paidOnly {
		q += ` AND b.status = ?`
		args = append(args, model.BookingPaid)
	}
	q += ` ORDER BY b.booked_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]BookingDetail, 0)
	for rows.Next() {
		var d BookingDetail
		var promo, qr sql.NullString
		var expires sql.NullTime
		if err := rows.Scan(
			&d.ID, &d.EventID, &d.CustomerID, &d.Quantity,
			&d.TotalPriceCents, &d.FinalPriceCents, &promo, &d.DiscountCents,
			&d.PointsRedeemed, &d.PointsDiscountCents, &d.Status, &d.BookedAt,
			&expires, &qr,
			&d.EventTitle, &d.EventStartsAt, &d.VenueName,
		); err != nil {
			return nil, err
		}
		if promo.Valid {
			p := promo.String
			d.PromoCode = &p
		}
		if qr.Valid {
			s := qr.String
			d.QRCodePath = &s
		}
		if expires.Valid {
			t := expires.Time
			d.ReservationExpiresAt = &t
		}
		details = append(details, d)
	}
	return details, rows.Err()
}
