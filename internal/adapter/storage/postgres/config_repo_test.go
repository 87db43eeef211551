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

func configColumns() []string {
	return []string{"low_tier_limit", "enable_tiers", "high_tier_requires_review", "updated_at"}
}

func TestWalletConfigRepo_GetOrCreate_Existing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletConfigRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM wallet_config WHERE id = 1").
		WillReturnRows(pgxmock.NewRows(configColumns()).
			AddRow("300.00", true, false, time.Now()))

	cfg, err := repo.GetOrCreate(context.Background())
	require.NoError(t, err)
	assert.True(t, cfg.LowTierLimit.Equal(decimal.RequireFromString("300.00")))
	assert.True(t, cfg.EnableTiers)
	assert.False(t, cfg.HighTierRequiresReview)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletConfigRepo_GetOrCreate_SeedsDefaults(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletConfigRepo(mock)
	def := domain.DefaultWalletConfig()

	mock.ExpectQuery("SELECT .+ FROM wallet_config WHERE id = 1").
		WillReturnRows(pgxmock.NewRows(configColumns()))
	mock.ExpectExec("INSERT INTO wallet_config").
		WithArgs(def.LowTierLimit.StringFixed(2), def.EnableTiers, def.HighTierRequiresReview).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT .+ FROM wallet_config WHERE id = 1").
		WillReturnRows(pgxmock.NewRows(configColumns()).
			AddRow("200.00", true, true, time.Now()))

	cfg, err := repo.GetOrCreate(context.Background())
	require.NoError(t, err)
	assert.True(t, cfg.LowTierLimit.Equal(decimal.RequireFromString("200.00")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletConfigRepo_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletConfigRepo(mock)
	cfg := &domain.WalletConfig{
		LowTierLimit:           decimal.RequireFromString("500.00"),
		EnableTiers:            false,
		HighTierRequiresReview: true,
	}

	mock.ExpectExec("UPDATE wallet_config").
		WithArgs("500.00", false, true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err = repo.Update(context.Background(), cfg)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
