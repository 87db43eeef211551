package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campus-store/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepo implements ports.WalletRepository.
//
// NUMERIC columns travel as text on the wire; balances are parsed into
// decimal.Decimal so no monetary value ever passes through a float.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	var balance string
	if err := row.Scan(&w.ID, &w.UserID, &balance, &w.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	w.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("parse balance: %w", err)
	}
	return w, nil
}

// Ensure returns the user's wallet, creating a zero-balance one on first
// access. Idempotent: the insert is a no-op when the wallet already exists.
func (r *WalletRepo) Ensure(ctx context.Context, userID int64) (*domain.Wallet, error) {
	w, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w != nil {
		return w, nil
	}

	query := `INSERT INTO wallets (user_id, balance, updated_at)
		VALUES ($1, 0, $2)
		ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, query, userID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("ensure wallet: %w", err)
	}

	w, err = r.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("ensure wallet: wallet missing after insert for user %d", userID)
	}
	return w, nil
}

// GetByUserID fetches a wallet by owner (non-locking read).
func (r *WalletRepo) GetByUserID(ctx context.Context, userID int64) (*domain.Wallet, error) {
	query := `SELECT id, user_id, balance::text, updated_at FROM wallets WHERE user_id = $1`

	w, err := scanWallet(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet by user id: %w", err)
	}
	return w, nil
}

// GetByUserIDForUpdate fetches a wallet by owner with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID int64) (*domain.Wallet, error) {
	query := `SELECT id, user_id, balance::text, updated_at FROM wallets WHERE user_id = $1 FOR UPDATE`

	w, err := scanWallet(tx.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wallet for update: %w", err)
	}
	return w, nil
}

// AdjustBalance applies balance = balance + delta within a transaction and
// returns the new balance. The caller holds the row lock and has already
// checked sufficiency when debiting; no validation happens here.
func (r *WalletRepo) AdjustBalance(ctx context.Context, tx pgx.Tx, walletID int64, delta decimal.Decimal) (decimal.Decimal, error) {
	query := `UPDATE wallets
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING balance::text`

	var balance string
	if err := tx.QueryRow(ctx, query, delta.StringFixed(2), walletID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("wallet not found: %d", walletID)
		}
		return decimal.Zero, fmt.Errorf("adjust balance: %w", err)
	}

	newBalance, err := decimal.NewFromString(balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse adjusted balance: %w", err)
	}
	return newBalance, nil
}
