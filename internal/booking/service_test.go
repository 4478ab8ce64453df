package booking

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starevents/ticketing/internal/config"
	"github.com/starevents/ticketing/internal/loyalty"
	"github.com/starevents/ticketing/internal/model"
	"github.com/starevents/ticketing/internal/repository"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// newTestService wires a Service against a sqlmock database with a
// fixed clock, no ticket generator and no publisher.
func newTestService(t *testing.T, settings Settings) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewService(db,
		repository.NewEventRepo(db),
		repository.NewBookingRepo(db),
		repository.NewDiscountRepo(db),
		loyalty.NewLedger(repository.NewLoyaltyRepo(db)),
		nil, nil, settings)
	svc.now = func() time.Time { return testNow }
	return svc, mock
}

func approvedEventRow(id uint64, priceCents int64, available int) *sqlmock.Rows {
	cols := []string{
		"event_id", "title", "description", "venue_id", "category_id", "organizer_id",
		"ticket_price_cents", "total_seats", "available_seats", "starts_at", "ends_at", "status",
		"created_at", "updated_at",
	}
	return sqlmock.NewRows(cols).AddRow(
		id, "Summer Gala", nil, 1, 1, "org-1",
		priceCents, 200, available, testNow.Add(48*time.Hour), testNow.Add(52*time.Hour), "APPROVED",
		testNow.Add(-24*time.Hour), testNow.Add(-24*time.Hour),
	)
}

func bookingRow(id uint64, customerID string, qty int, finalCents int64, redeemed int, status model.BookingStatus, expires *time.Time) *sqlmock.Rows {
	cols := []string{
		"booking_id", "event_id", "customer_id", "quantity",
		"total_price_cents", "final_price_cents", "promo_code", "discount_cents",
		"points_redeemed", "points_discount_cents", "status", "booked_at",
		"reservation_expires_at", "qr_code_path",
	}
	var expVal any
	if expires != nil {
		expVal = *expires
	}
	return sqlmock.NewRows(cols).AddRow(
		id, 7, customerID, qty,
		finalCents, finalCents, nil, 0,
		redeemed, 0, string(status), testNow.Add(-time.Minute),
		expVal, nil,
	)
}

func TestCreateReservesSeatsAndHoldsTenMinutes(t *testing.T) {
	svc, mock := newTestService(t, Settings{})

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE event_id = ? FOR UPDATE")).
		WithArgs(uint64(7)).
		WillReturnRows(approvedEventRow(7, 5000, 100))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(quantity), 0) FROM bookings")).
		WithArgs("cust-1", uint64(7), "PAID", uint64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT points FROM loyalty_points WHERE user_id = ?")).
		WithArgs("cust-1").
		WillReturnRows(sqlmock.NewRows([]string{"points"}).AddRow(30))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET available_seats = available_seats - ?")).
		WithArgs(2, uint64(7), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Create(context.Background(), "cust-1", CreateRequest{EventID: 7, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, uint64(41), res.Booking.ID)
	assert.Equal(t, model.BookingPending, res.Booking.Status)
	require.NotNil(t, res.Booking.ReservationExpiresAt)
	assert.Equal(t, testNow.Add(10*time.Minute), *res.Booking.ReservationExpiresAt)
	assert.Equal(t, int64(10000), res.Quote.FinalCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRejectsInvalidQuantity(t *testing.T) {
	svc, mock := newTestService(t, Settings{})

	_, err := svc.Create(context.Background(), "cust-1", CreateRequest{EventID: 7, Quantity: 0})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInsufficientSeats(t *testing.T) {
	svc, mock := newTestService(t, Settings{})

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE event_id = ? FOR UPDATE")).
		WithArgs(uint64(7)).
		WillReturnRows(approvedEventRow(7, 5000, 1))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), "cust-1", CreateRequest{EventID: 7, Quantity: 3})
	assert.ErrorIs(t, err, repository.ErrInsufficientSeats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOversellRaceRejectedBySeatGuard(t *testing.T) {
	svc, mock := newTestService(t, Settings{})

	// The event row showed enough seats when read, but a concurrent
	// reservation takes them before our conditional decrement runs: the
	// update matches nothing and the whole transaction, booking insert
	// included, rolls back.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE event_id = ? FOR UPDATE")).
		WithArgs(uint64(7)).
		WillReturnRows(approvedEventRow(7, 5000, 100))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(quantity), 0) FROM bookings")).
		WithArgs("cust-1", uint64(7), "PAID", uint64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT points FROM loyalty_points WHERE user_id = ?")).
		WithArgs("cust-1").
		WillReturnRows(sqlmock.NewRows([]string{"points"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET available_seats = available_seats - ?")).
		WithArgs(2, uint64(7), 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), "cust-1", CreateRequest{EventID: 7, Quantity: 2})
	assert.ErrorIs(t, err, repository.ErrInsufficientSeats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEnforcesPurchaseCap(t *testing.T) {
	svc, mock := newTestService(t, Settings{})

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM events WHERE event_id = ? FOR UPDATE")).
		WithArgs(uint64(7)).
		WillReturnRows(approvedEventRow(7, 5000, 100))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(quantity), 0) FROM bookings")).
		WithArgs("cust-1", uint64(7), "PAID", uint64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(3))
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), "cust-1", CreateRequest{EventID: 7, Quantity: 2})
	assert.ErrorIs(t, err, ErrPurchaseLimit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmSettlesPointsAndTransitionsToPaid(t *testing.T) {
	svc, mock := newTestService(t, Settings{})

	expires := testNow.Add(5 * time.Minute)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE booking_id = ? FOR UPDATE")).
		WithArgs(uint64(41)).
		WillReturnRows(bookingRow(41, "cust-1", 2, 40000, 0, model.BookingPending, &expires))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(quantity), 0) FROM bookings")).
		WithArgs("cust-1", uint64(7), "PAID", uint64(41)).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO loyalty_points")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT points FROM loyalty_points WHERE user_id = ? FOR UPDATE")).
		WithArgs("cust-1").
		WillReturnRows(sqlmock.NewRows([]string{"points"}).AddRow(100))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE loyalty_points SET points = ?")).
		WithArgs(104, "cust-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO loyalty_transactions")).
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ?")).
		WithArgs("PAID", uint64(41), "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := svc.Confirm(context.Background(), "cust-1", 41)
	require.NoError(t, err)
	assert.Equal(t, model.BookingPaid, res.Booking.Status)
	assert.Nil(t, res.Booking.ReservationExpiresAt)
	assert.Equal(t, 4, res.Settlement.Earned)
	assert.Equal(t, 0, res.Settlement.Redeemed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmAlreadyPaidIsIdempotent(t *testing.T) {
	svc, mock := newTestService(t, Settings{})

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE booking_id = ? FOR UPDATE")).
		WithArgs(uint64(41)).
		WillReturnRows(bookingRow(41, "cust-1", 2, 40000, 0, model.BookingPaid, nil))
	mock.ExpectCommit()

	res, err := svc.Confirm(context.Background(), "cust-1", 41)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	require.NotNil(t, res)
	assert.Equal(t, model.BookingPaid, res.Booking.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmExpiredHoldReleasesSeats(t *testing.T) {
	svc, mock := newTestService(t, Settings{})

	expires := testNow.Add(-time.Minute)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE booking_id = ? FOR UPDATE")).
		WithArgs(uint64(41)).
		WillReturnRows(bookingRow(41, "cust-1", 2, 40000, 0, model.BookingPending, &expires))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ?")).
		WithArgs("EXPIRED", uint64(41), "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("LEAST(total_seats, available_seats + ?)")).
		WithArgs(2, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The expiry must survive even though the confirmation fails.
	mock.ExpectCommit()

	_, err := svc.Confirm(context.Background(), "cust-1", 41)
	assert.ErrorIs(t, err, ErrReservationExpired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmCapBreachCancelPolicy(t *testing.T) {
	svc, mock := newTestService(t, Settings{ConfirmCapPolicy: config.CapPolicyCancel})

	expires := testNow.Add(5 * time.Minute)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE booking_id = ? FOR UPDATE")).
		WithArgs(uint64(41)).
		WillReturnRows(bookingRow(41, "cust-1", 2, 40000, 0, model.BookingPending, &expires))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(quantity), 0) FROM bookings")).
		WithArgs("cust-1", uint64(7), "PAID", uint64(41)).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(4))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ?")).
		WithArgs("CANCELLED", uint64(41), "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("LEAST(total_seats, available_seats + ?)")).
		WithArgs(2, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := svc.Confirm(context.Background(), "cust-1", 41)
	assert.ErrorIs(t, err, ErrPurchaseLimit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmCapBreachHoldPolicyKeepsBookingPending(t *testing.T) {
	svc, mock := newTestService(t, Settings{}) // default policy is hold

	expires := testNow.Add(5 * time.Minute)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE booking_id = ? FOR UPDATE")).
		WithArgs(uint64(41)).
		WillReturnRows(bookingRow(41, "cust-1", 2, 40000, 0, model.BookingPending, &expires))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(quantity), 0) FROM bookings")).
		WithArgs("cust-1", uint64(7), "PAID", uint64(41)).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(4))
	// No transition, no seat release: the booking stays PENDING.
	mock.ExpectCommit()

	_, err := svc.Confirm(context.Background(), "cust-1", 41)
	assert.ErrorIs(t, err, ErrPurchaseLimit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelRequiresPendingState(t *testing.T) {
	svc, mock := newTestService(t, Settings{})

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE booking_id = ? FOR UPDATE")).
		WithArgs(uint64(41)).
		WillReturnRows(bookingRow(41, "cust-1", 2, 40000, 0, model.BookingExpired, nil))
	mock.ExpectRollback()

	_, err := svc.Cancel(context.Background(), "cust-1", 41)
	assert.ErrorIs(t, err, ErrStateConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelReleasesSeats(t *testing.T) {
	svc, mock := newTestService(t, Settings{})

	expires := testNow.Add(5 * time.Minute)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE booking_id = ? FOR UPDATE")).
		WithArgs(uint64(41)).
		WillReturnRows(bookingRow(41, "cust-1", 2, 40000, 0, model.BookingPending, &expires))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ?")).
		WithArgs("CANCELLED", uint64(41), "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("LEAST(total_seats, available_seats + ?)")).
		WithArgs(2, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b, err := svc.Cancel(context.Background(), "cust-1", 41)
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, b.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelUnknownBooking(t *testing.T) {
	svc, mock := newTestService(t, Settings{})

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE booking_id = ? FOR UPDATE")).
		WithArgs(uint64(99)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := svc.Cancel(context.Background(), "cust-1", 99)
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireDueBatchesSeatReturns(t *testing.T) {
	svc, mock := newTestService(t, Settings{})

	cols := []string{
		"booking_id", "event_id", "customer_id", "quantity",
		"total_price_cents", "final_price_cents", "promo_code", "discount_cents",
		"points_redeemed", "points_discount_cents", "status", "booked_at",
		"reservation_expires_at", "qr_code_path",
	}
	overdue := testNow.Add(-2 * time.Minute)
	due := sqlmock.NewRows(cols).
		AddRow(11, 7, "cust-1", 2, 10000, 10000, nil, 0, 0, 0, "PENDING", testNow.Add(-time.Hour), overdue, nil).
		AddRow(12, 7, "cust-2", 1, 5000, 5000, nil, 0, 0, 0, "PENDING", testNow.Add(-time.Hour), overdue, nil)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("reservation_expires_at < UTC_TIMESTAMP()")).
		WithArgs("PENDING", 50).
		WillReturnRows(due)
	mock.ExpectExec(regexp.QuoteMeta("WHERE booking_id IN (?,?)")).
		WithArgs("EXPIRED", uint64(11), uint64(12), "PENDING").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("LEAST(total_seats, available_seats + ?)")).
		WithArgs(3, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, err := svc.ExpireDue(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExpireDueNoWork(t *testing.T) {
	svc, mock := newTestService(t, Settings{})

	cols := []string{
		"booking_id", "event_id", "customer_id", "quantity",
		"total_price_cents", "final_price_cents", "promo_code", "discount_cents",
		"points_redeemed", "points_discount_cents", "status", "booked_at",
		"reservation_expires_at", "qr_code_path",
	}
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("reservation_expires_at < UTC_TIMESTAMP()")).
		WithArgs("PENDING", 50).
		WillReturnRows(sqlmock.NewRows(cols))
	mock.ExpectCommit()

	n, err := svc.ExpireDue(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
