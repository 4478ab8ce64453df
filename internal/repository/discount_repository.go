package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/starevents/ticketing/internal/model"
)

// DiscountRepo provides data access to the discounts table.  The
// booking workflow only reads discounts; the admin portal owns the
// CRUD side.  Codes are unique (schema constraint); duplicate writes
// surface as ErrConflict.
type DiscountRepo struct {
	db *sql.DB
}

// NewDiscountRepo returns a new DiscountRepo bound to the given database.
func NewDiscountRepo(db *sql.DB) *DiscountRepo { return &DiscountRepo{db: db} }

const discountColumns = `discount_id, code, percent, starts_at, ends_at, event_id, is_active`

func scanDiscount(row interface{ Scan(...any) error }) (*model.Discount, error) {
	var d model.Discount
	var eventID sql.NullInt64
	err := row.Scan(&d.ID, &d.Code, &d.Percent, &d.StartsAt, &d.EndsAt, &eventID, &d.IsActive)
	if err != nil {
		return nil, err
	}
	if eventID.Valid {
		id := uint64(eventID.Int64)
		d.EventID = &id
	}
	return &d, nil
}

// FindActiveByCodeTx looks up an active discount by code inside the
// booking transaction: the code must match, the active flag must be
// set and the current time must fall inside the validity window.  A
// miss returns (nil, nil); unknown or lapsed codes degrade to a zero
// discount rather than erroring.
func (r *DiscountRepo) FindActiveByCodeTx(ctx context.Context, tx *sql.Tx, code string) (*model.Discount, error) {
	const q = `SELECT ` + discountColumns + ` FROM discounts
			   WHERE code = ? AND is_active = 1
				 AND starts_at <= UTC_TIMESTAMP() AND ends_at >= UTC_TIMESTAMP()
			   LIMIT 1`
	d, err := scanDiscount(tx.QueryRowContext(ctx, q, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

// FindActiveByCode is the non-transactional variant used by the
// read-only checkout quote.
func (r *DiscountRepo) FindActiveByCode(ctx context.Context, code string) (*model.Discount, error) {
	const q = `SELECT ` + discountColumns + ` FROM discounts
			   WHERE code = ? AND is_active = 1
				 AND starts_at <= UTC_TIMESTAMP() AND ends_at >= UTC_TIMESTAMP()
			   LIMIT 1`
	d, err := scanDiscount(r.db.QueryRowContext(ctx, q, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

// List returns all discounts, newest first.
func (r *DiscountRepo) List(ctx context.Context) ([]model.Discount, error) {
	const q = `SELECT ` + discountColumns + ` FROM discounts ORDER BY discount_id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	discounts := make([]model.Discount, 0)
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		discounts = append(discounts, *d)
	}
	return discounts, rows.Err()
}

// GetByID returns a single discount or ErrDiscountNotFound.
func (r *DiscountRepo) GetByID(ctx context.Context, id uint64) (*model.Discount, error) {
	const q = `SELECT ` + discountColumns + ` FROM discounts WHERE discount_id = ?`
	d, err := scanDiscount(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDiscountNotFound
	}
	return d, err
}

// Create inserts a new discount and populates the generated ID.
func (r *DiscountRepo) Create(ctx context.Context, d *model.Discount) error {
	const q = `INSERT INTO discounts (code, percent, starts_at, ends_at, event_id, is_active)
			   VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		d.Code, d.Percent, d.StartsAt.UTC(), d.EndsAt.UTC(), d.EventID, d.IsActive)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return nil
}

// Update overwrites a discount's fields.  Returns ErrDiscountNotFound
// when no row matches.
func (r *DiscountRepo) Update(ctx context.Context, d *model.Discount) error {
	const q = `UPDATE discounts
			   SET code = ?, percent = ?, starts_at = ?, ends_at = ?, event_id = ?, is_active = ?
			   WHERE discount_id = ?`
	res, err := r.db.ExecContext(ctx, q,
		d.Code, d.Percent, d.StartsAt.UTC(), d.EndsAt.UTC(), d.EventID, d.IsActive, d.ID)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports zero changed rows for a no-change update;
		// only a missing row is an error.
		if _, err := r.GetByID(ctx, d.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a discount.  Returns ErrDiscountNotFound when no row
// matches.
func (r *DiscountRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM discounts WHERE discount_id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDiscountNotFound
	}
	return nil
}
