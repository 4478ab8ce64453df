package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/starevents/ticketing/internal/model"
)

// EventRepo provides data access to the events table.  It doubles as
// the seat inventory ledger: ReserveSeatsTx and ReleaseSeatsTx are the
// only mutation entry points for the available_seats counter, so all
// seat arithmetic is serialized by the database row lock taken by the
// conditional UPDATE.  All timestamps are stored in UTC.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// that span several repositories.
func (r *EventRepo) DB() *sql.DB { return r.db }

const eventColumns = `event_id, title, description, venue_id, category_id, organizer_id,
		ticket_price_cents, total_seats, available_seats, starts_at, ends_at, status,
		created_at, updated_at`

func scanEvent(row interface{ Scan(...any) error }) (*model.Event, error) {
	var ev model.Event
	var desc sql.NullString
	err := row.Scan(
		&ev.ID, &ev.Title, &desc, &ev.VenueID, &ev.CategoryID, &ev.OrganizerID,
		&ev.TicketPriceCents, &ev.TotalSeats, &ev.AvailableSeats,
		&ev.StartsAt, &ev.EndsAt, &ev.Status, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		ev.Description = &d
	}
	return &ev, nil
}

// GetByID returns a single event or ErrEventNotFound.
func (r *EventRepo) GetByID(ctx context.Context, eventID uint64) (*model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE event_id = ?`
	ev, err := scanEvent(r.db.QueryRowContext(ctx, q, eventID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	return ev, err
}

// GetForUpdateTx loads an event inside the given transaction and locks
// its row.  The booking workflow uses this to pin the seat counter and
// the approval status for the duration of a reserve or release.
func (r *EventRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, eventID uint64) (*model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE event_id = ? FOR UPDATE`
	ev, err := scanEvent(tx.QueryRowContext(ctx, q, eventID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	return ev, err
}

// ReserveSeatsTx atomically decrements available_seats by quantity.
// The decrement is conditional on enough seats remaining, so two
// concurrent reservations for the last seats cannot both succeed.
// When the condition fails no row is touched and ErrInsufficientSeats
// is returned.
func (r *EventRepo) ReserveSeatsTx(ctx context.Context, tx *sql.Tx, eventID uint64, quantity int) error {
	const q = `UPDATE events
			   SET available_seats = available_seats - ?, updated_at = UTC_TIMESTAMP()
			   WHERE event_id = ? AND available_seats >= ?`
	res, err := tx.ExecContext(ctx, q, quantity, eventID, quantity)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientSeats
	}
	return nil
}

// ReleaseSeatsTx returns quantity seats to the event.  It always
// succeeds; the counter is capped at total_seats so repeated releases
// can never push availability past capacity.
func (r *EventRepo) ReleaseSeatsTx(ctx context.Context, tx *sql.Tx, eventID uint64, quantity int) error {
	const q = `UPDATE events
			   SET available_seats = LEAST(total_seats, available_seats + ?), updated_at = UTC_TIMESTAMP()
			   WHERE event_id = ?`
	_, err := tx.ExecContext(ctx, q, quantity, eventID)
	return err
}

// BrowseFilter narrows the public event listing.  Zero values mean
// "no filter".  Only approved events are ever returned.
type BrowseFilter struct {
	Keyword    string
	CategoryID uint64
	VenueID    uint64
	From       *time.Time
	To         *time.Time
}

// Browse returns approved events matching the filter, soonest first.
func (r *EventRepo) Browse(ctx context.Context, f BrowseFilter) ([]model.Event, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + eventColumns + ` FROM events WHERE status = ?`)
	args := []any{model.EventApproved}
	if f.Keyword != "" {
		sb.WriteString(` AND (title LIKE ? OR description LIKE ?)`)
		kw := "%" + f.Keyword + "%"
		args = append(args, kw, kw)
	}
	if f.CategoryID != 0 {
		sb.WriteString(` AND category_id = ?`)
		args = append(args, f.CategoryID)
	}
	if f.VenueID != 0 {
		sb.WriteString(` AND venue_id = ?`)
		args = append(args, f.VenueID)
	}
	if f.From != nil {
		sb.WriteString(` AND starts_at >= ?`)
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		sb.WriteString(` AND starts_at <= ?`)
		args = append(args, f.To.UTC())
	}
	sb.WriteString(` ORDER BY starts_at ASC`)
	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

// ListByStatus returns events in the given moderation state, newest
// first.  An empty status returns all events.  Used by the admin
// moderation screens.
func (r *EventRepo) ListByStatus(ctx context.Context, status model.EventStatus) ([]model.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events`
	args := []any{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

// ListByOrganizer returns all events created by the given organizer,
// newest first.
func (r *EventRepo) ListByOrganizer(ctx context.Context, organizerID string) ([]model.Event, error) {
	const q = `SELECT ` + eventColumns + ` FROM events WHERE organizer_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

// Create inserts a new event in PENDING state with the full capacity
// available and populates the generated ID and timestamps.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
	const q = `INSERT INTO events
			   (title, description, venue_id, category_id, organizer_id,
				ticket_price_cents, total_seats, available_seats, starts_at, ends_at, status)
			   VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		ev.Title, ev.Description, ev.VenueID, ev.CategoryID, ev.OrganizerID,
		ev.TicketPriceCents, ev.TotalSeats, ev.TotalSeats,
		ev.StartsAt.UTC(), ev.EndsAt.UTC(), model.EventPending,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	ev.AvailableSeats = ev.TotalSeats
	ev.Status = model.EventPending
	return nil
}

// UpdateForOrganizer modifies the descriptive fields of an event owned
// by the given organizer.  Capacity and the seat counter are not
// editable once the event exists; changing them would bypass the
// inventory ledger.  Returns ErrEventNotFound when the event does not
// exist and ErrForbidden when it belongs to someone else.
func (r *EventRepo) UpdateForOrganizer(ctx context.Context, ev *model.Event, organizerID string) error {
	owner, err := r.ownerOf(ctx, ev.ID)
	if err != nil {
		return err
	}
	if owner != organizerID {
		return ErrForbidden
	}
	const q = `UPDATE events
			   SET title = ?, description = ?, venue_id = ?, category_id = ?,
				   ticket_price_cents = ?, starts_at = ?, ends_at = ?, updated_at = UTC_TIMESTAMP()
			   WHERE event_id = ?`
	_, err = r.db.ExecContext(ctx, q,
		ev.Title, ev.Description, ev.VenueID, ev.CategoryID,
		ev.TicketPriceCents, ev.StartsAt.UTC(), ev.EndsAt.UTC(), ev.ID,
	)
	return err
}

// DeleteForOrganizer removes an event owned by the organizer.  Events
// that already have bookings cannot be deleted and yield ErrConflict.
func (r *EventRepo) DeleteForOrganizer(ctx context.Context, eventID uint64, organizerID string) error {
	owner, err := r.ownerOf(ctx, eventID)
	if err != nil {
		return err
	}
	if owner != organizerID {
		return ErrForbidden
	}
	var n int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE event_id = ?`, eventID,
	).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	_, err = r.db.ExecContext(ctx, `DELETE FROM events WHERE event_id = ?`, eventID)
	return err
}

// SetStatus moves an event into a moderation state (approve/reject).
// Re-applying the current state is a no-op, not an error.  Returns
// ErrEventNotFound when the event does not exist.
func (r *EventRepo) SetStatus(ctx context.Context, eventID uint64, status model.EventStatus) error {
	const q = `UPDATE events SET status = ?, updated_at = UTC_TIMESTAMP()
			   WHERE event_id = ? AND status <> ?`
	res, err := r.db.ExecContext(ctx, q, status, eventID, status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either already in the target state or missing; only the
		// latter is an error.
		if _, err := r.ownerOf(ctx, eventID); err != nil {
			return err
		}
	}
	return nil
}

func (r *EventRepo) ownerOf(ctx context.Context, eventID uint64) (string, error) {
	var owner string
	err := r.db.QueryRowContext(ctx,
		`SELECT organizer_id FROM events WHERE event_id = ?`, eventID,
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrEventNotFound
	}
	return owner, err
}

// EventStats aggregates booking figures for one event.  Consumed by
// the organizer dashboard and the external report exporter.
type EventStats struct {
	EventID      uint64 `json:"event_id"`
	Title        string `json:"title"`
	Bookings     int    `json:"bookings"`
	TicketsSold  int    `json:"tickets_sold"`
	RevenueCents int64  `json:"revenue_cents"`
}

// StatsByOrganizer returns per-event paid booking aggregates for all
// events owned by the organizer.
func (r *EventRepo) StatsByOrganizer(ctx context.Context, organizerID string) ([]EventStats, error) {
	const q = `SELECT e.event_id, e.title,
					  COUNT(b.booking_id),
					  COALESCE(SUM(b.quantity), 0),
					  COALESCE(SUM(b.final_price_cents), 0)
			   FROM events e
			   LEFT JOIN bookings b ON b.event_id = e.event_id AND b.status = 'PAID'
			   WHERE e.organizer_id = ?
			   GROUP BY e.event_id, e.title
			   ORDER BY e.event_id`
	rows, err := r.db.QueryContext(ctx, q, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stats := make([]EventStats, 0)
	for rows.Next() {
		var s EventStats
		if err := rows.Scan(&s.EventID, &s.Title, &s.Bookings, &s.TicketsSold, &s.RevenueCents); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
