package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campus-store/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// ErrDuplicateCode signals a unique-constraint collision on a voucher code.
// Callers regenerate the code and retry the insert.
var ErrDuplicateCode = errors.New("voucher code already exists")

const uniqueViolation = "23505"

// VoucherRepo implements ports.VoucherRepository.
type VoucherRepo struct {
	pool Pool
}

// NewVoucherRepo creates a new VoucherRepo.
func NewVoucherRepo(pool Pool) *VoucherRepo {
	return &VoucherRepo{pool: pool}
}

// Create inserts a voucher within the caller's transaction.
func (r *VoucherRepo) Create(ctx context.Context, tx pgx.Tx, v *domain.WalletVoucher) error {
	query := `INSERT INTO wallet_vouchers (code, amount, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := tx.QueryRow(ctx, query, v.Code, v.Amount.StringFixed(2), v.CreatedBy).
		Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateCode
		}
		return fmt.Errorf("insert voucher: %w", err)
	}
	return nil
}

// GetByCode fetches a voucher by code (non-locking read).
func (r *VoucherRepo) GetByCode(ctx context.Context, code string) (*domain.WalletVoucher, error) {
	query := voucherSelect + ` WHERE code = $1`

	v, err := scanVoucher(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get voucher by code: %w", err)
	}
	return v, nil
}

// GetByCodeForUpdate fetches a voucher with an exclusive row lock so the
// read-check-redeem sequence serializes across concurrent redeemers.
// This MUST be called within a transaction.
func (r *VoucherRepo) GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*domain.WalletVoucher, error) {
	query := voucherSelect + ` WHERE code = $1 FOR UPDATE`

	v, err := scanVoucher(tx.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get voucher for update: %w", err)
	}
	return v, nil
}

// MarkRedeemed records the one-way redemption transition within the caller's
// transaction. The guard on is_redeemed makes the transition irreversible
// even if a caller skips the row lock.
func (r *VoucherRepo) MarkRedeemed(ctx context.Context, tx pgx.Tx, voucherID int64, redeemedBy int64, at time.Time) error {
	query := `UPDATE wallet_vouchers
		SET is_redeemed = TRUE, redeemed_by = $1, redeemed_at = $2
		WHERE id = $3 AND is_redeemed = FALSE`

	tag, err := tx.Exec(ctx, query, redeemedBy, at, voucherID)
	if err != nil {
		return fmt.Errorf("mark voucher redeemed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("voucher %d already redeemed or missing", voucherID)
	}
	return nil
}

// List returns vouchers most recent first, capped at limit.
func (r *VoucherRepo) List(ctx context.Context, limit int) ([]domain.WalletVoucher, error) {
	query := voucherSelect + ` ORDER BY created_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	defer rows.Close()

	var out []domain.WalletVoucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vouchers: %w", err)
	}
	return out, nil
}

const voucherSelect = `SELECT id, code, amount::text, is_redeemed, created_by, redeemed_by, redeemed_at, created_at
	FROM wallet_vouchers`

func scanVoucher(row pgx.Row) (*domain.WalletVoucher, error) {
	v := &domain.WalletVoucher{}
	var amount string
	if err := row.Scan(&v.ID, &v.Code, &amount, &v.IsRedeemed,
		&v.CreatedBy, &v.RedeemedBy, &v.RedeemedAt, &v.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	v.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse voucher amount: %w", err)
	}
	return v, nil
}
