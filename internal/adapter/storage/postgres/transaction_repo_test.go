package postgres

import (
	"context"
	"testing"
	"time"

	"campus-store/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transactionColumns() []string {
	return []string{"id", "wallet_id", "tx_type", "amount", "order_number", "metadata", "created_at"}
}

func TestTransactionRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	entry := &domain.WalletTransaction{
		WalletID:    42,
		TxType:      domain.TxTypePay,
		Amount:      decimal.RequireFromString("-30.00"),
		OrderNumber: "A1B2C3D4E5F6",
		Metadata:    map[string]any{"order_id": float64(9)},
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO wallet_transactions").
		WithArgs(entry.WalletID, "PAY", "-30.00", entry.OrderNumber, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(101), time.Now()))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), tx, entry)
	require.NoError(t, err)
	assert.Equal(t, int64(101), entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_ListByWallet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	now := time.Now()

	rows := pgxmock.NewRows(transactionColumns()).
		AddRow(int64(2), int64(42), "REFUND", "30.00", "A1B2C3D4E5F6", []byte(`{"forced": true}`), now).
		AddRow(int64(1), int64(42), "PAY", "-30.00", "A1B2C3D4E5F6", []byte(`{}`), now.Add(-time.Minute))

	mock.ExpectQuery("SELECT .+ FROM wallet_transactions WHERE wallet_id").
		WithArgs(int64(42), 20).
		WillReturnRows(rows)

	out, err := repo.ListByWallet(context.Background(), 42, 20)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, domain.TxTypeRefund, out[0].TxType)
	assert.Equal(t, true, out[0].Metadata["forced"])
	assert.True(t, out[1].Amount.Equal(decimal.RequireFromString("-30.00")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_SumByWallet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow("125.50"))

	total, err := repo.SumByWallet(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("125.50")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_HasPendingMarker(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	pending, err := repo.HasPendingMarker(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, pending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepo_GetPendingMarker_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM wallet_transactions WHERE order_number").
		WithArgs("A1B2C3D4E5F6").
		WillReturnRows(pgxmock.NewRows(transactionColumns()))

	entry, err := repo.GetPendingMarker(context.Background(), "A1B2C3D4E5F6")
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.NoError(t, mock.ExpectationsWereMet())
}
