package loyalty

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starevents/ticketing/internal/model"
	"github.com/starevents/ticketing/internal/repository"
)

func TestSettleRedeemsThenEarns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	ledger := NewLedger(repository.NewLoyaltyRepo(db))

	b := &model.Booking{
		ID:              41,
		CustomerID:      "cust-1",
		FinalPriceCents: 90000, // earns 9 points
		PointsRedeemed:  20,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO loyalty_points")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT points FROM loyalty_points WHERE user_id = ? FOR UPDATE")).
		WithArgs("cust-1").
		WillReturnRows(sqlmock.NewRows([]string{"points"}).AddRow(50))
	// Redeem: 50 - 20 = 30, with the matching audit row.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE loyalty_points SET points = ?")).
		WithArgs(30, "cust-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO loyalty_transactions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	// Earn: 30 + 9 = 39, with the matching audit row.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE loyalty_points SET points = ?")).
		WithArgs(39, "cust-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO loyalty_transactions")).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	s, err := ledger.SettleTx(context.Background(), tx, b)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, 20, s.Redeemed)
	assert.Equal(t, 9, s.Earned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettleFloorsRedemptionAtBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	ledger := NewLedger(repository.NewLoyaltyRepo(db))

	b := &model.Booking{
		ID:              42,
		CustomerID:      "cust-2",
		FinalPriceCents: 5000, // earns 0 points
		PointsRedeemed:  100,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO loyalty_points")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT points FROM loyalty_points WHERE user_id = ? FOR UPDATE")).
		WithArgs("cust-2").
		WillReturnRows(sqlmock.NewRows([]string{"points"}).AddRow(60))
	// Only 60 points exist; redemption is floored, balance hits zero.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE loyalty_points SET points = ?")).
		WithArgs(0, "cust-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO loyalty_transactions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	s, err := ledger.SettleTx(context.Background(), tx, b)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, 60, s.Redeemed)
	assert.Equal(t, 0, s.Earned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettleNothingToDo(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	ledger := NewLedger(repository.NewLoyaltyRepo(db))

	b := &model.Booking{
		ID:              43,
		CustomerID:      "cust-3",
		FinalPriceCents: 900, // below the earn threshold
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO loyalty_points")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT points FROM loyalty_points WHERE user_id = ? FOR UPDATE")).
		WithArgs("cust-3").
		WillReturnRows(sqlmock.NewRows([]string{"points"}).AddRow(5))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	s, err := ledger.SettleTx(context.Background(), tx, b)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.Equal(t, Settlement{}, s)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBalanceDefaultsToZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	ledger := NewLedger(repository.NewLoyaltyRepo(db))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT points FROM loyalty_points WHERE user_id = ?")).
		WithArgs("new-customer").
		WillReturnRows(sqlmock.NewRows([]string{"points"}))

	balance, err := ledger.Balance(context.Background(), "new-customer")
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}
