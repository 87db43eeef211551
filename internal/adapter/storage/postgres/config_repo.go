package postgres

import (
	"context"
	"errors"
	"fmt"

	"campus-store/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletConfigRepo implements ports.WalletConfigRepository. The table
// holds exactly one row (id = 1) enforced by a CHECK constraint.
type WalletConfigRepo struct {
	pool Pool
}

// NewWalletConfigRepo creates a new WalletConfigRepo.
func NewWalletConfigRepo(pool Pool) *WalletConfigRepo {
	return &WalletConfigRepo{pool: pool}
}

const configSelect = `SELECT low_tier_limit::text, enable_tiers, high_tier_requires_review, updated_at
	FROM wallet_config WHERE id = 1`

// GetOrCreate reads the singleton row, seeding it with defaults on first
// access so callers never see an empty table.
func (r *WalletConfigRepo) GetOrCreate(ctx context.Context) (*domain.WalletConfig, error) {
	cfg, err := r.scanConfig(r.pool.QueryRow(ctx, configSelect))
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get wallet config: %w", err)
	}

	def := domain.DefaultWalletConfig()
	insert := `INSERT INTO wallet_config (id, low_tier_limit, enable_tiers, high_tier_requires_review)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, insert,
		def.LowTierLimit.StringFixed(2), def.EnableTiers, def.HighTierRequiresReview); err != nil {
		return nil, fmt.Errorf("seed wallet config: %w", err)
	}

	cfg, err = r.scanConfig(r.pool.QueryRow(ctx, configSelect))
	if err != nil {
		return nil, fmt.Errorf("get wallet config after seed: %w", err)
	}
	return cfg, nil
}

// Update overwrites the singleton row with the given values.
func (r *WalletConfigRepo) Update(ctx context.Context, cfg *domain.WalletConfig) error {
	query := `UPDATE wallet_config
		SET low_tier_limit = $1, enable_tiers = $2, high_tier_requires_review = $3, updated_at = NOW()
		WHERE id = 1`

	tag, err := r.pool.Exec(ctx, query,
		cfg.LowTierLimit.StringFixed(2), cfg.EnableTiers, cfg.HighTierRequiresReview)
	if err != nil {
		return fmt.Errorf("update wallet config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New("wallet config row missing")
	}
	return nil
}

func (r *WalletConfigRepo) scanConfig(row pgx.Row) (*domain.WalletConfig, error) {
	cfg := &domain.WalletConfig{}
	var limit string
	if err := row.Scan(&limit, &cfg.EnableTiers, &cfg.HighTierRequiresReview, &cfg.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	cfg.LowTierLimit, err = decimal.NewFromString(limit)
	if err != nil {
		return nil, fmt.Errorf("parse low tier limit: %w", err)
	}
	return cfg, nil
}
