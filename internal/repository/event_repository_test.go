package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveSeatsRejectsOversellAtUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewEventRepo(db)

	// The conditional decrement matches no row when another transaction
	// took the last seats between the event read and this update.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET available_seats = available_seats - ?")).
		WithArgs(3, uint64(7), 3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := db.Begin()
	require.NoError(t, err)
	err = repo.ReserveSeatsTx(context.Background(), tx, 7, 3)
	assert.ErrorIs(t, err, ErrInsufficientSeats)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveSeatsDecrementsOnMatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewEventRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET available_seats = available_seats - ?")).
		WithArgs(2, uint64(7), 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, repo.ReserveSeatsTx(context.Background(), tx, 7, 2))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseSeatsIsCappedAtCapacity(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewEventRepo(db)

	// The LEAST(total_seats, ...) guard lives in the statement itself;
	// the release succeeds regardless of how many rows change.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("LEAST(total_seats, available_seats + ?)")).
		WithArgs(5, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, repo.ReleaseSeatsTx(context.Background(), tx, 7, 5))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}
