package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"campus-store/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TransactionRepo implements ports.TransactionRepository. Entries are
// append-only; there is no update or delete path.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create appends a ledger entry within the caller's transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, entry *domain.WalletTransaction) error {
	metadata := entry.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal tx metadata: %w", err)
	}

	query := `INSERT INTO wallet_transactions (wallet_id, tx_type, amount, order_number, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err = tx.QueryRow(ctx, query,
		entry.WalletID, string(entry.TxType), entry.Amount.StringFixed(2),
		entry.OrderNumber, metaJSON,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert wallet transaction: %w", err)
	}
	return nil
}

// ListByWallet returns the wallet's entries, most recent first.
func (r *TransactionRepo) ListByWallet(ctx context.Context, walletID int64, limit int) ([]domain.WalletTransaction, error) {
	query := `SELECT id, wallet_id, tx_type, amount::text, order_number, metadata, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, walletID, limit)
	if err != nil {
		return nil, fmt.Errorf("list wallet transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.WalletTransaction
	for rows.Next() {
		entry, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet transactions: %w", err)
	}
	return out, nil
}

// SumByWallet returns the sum of all entry amounts for the wallet. Used by
// reconciliation checks against the denormalized balance.
func (r *TransactionRepo) SumByWallet(ctx context.Context, walletID int64) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount), 0)::text FROM wallet_transactions WHERE wallet_id = $1`

	var sum string
	if err := r.pool.QueryRow(ctx, query, walletID).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum wallet transactions: %w", err)
	}
	total, err := decimal.NewFromString(sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse transaction sum: %w", err)
	}
	return total, nil
}

// HasPendingMarker reports whether the wallet has a pending-review PAY marker
// whose order is still awaiting settlement.
func (r *TransactionRepo) HasPendingMarker(ctx context.Context, walletID int64) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM wallet_transactions t
		JOIN orders o ON o.order_number = t.order_number
		WHERE t.wallet_id = $1
		  AND t.tx_type = 'PAY'
		  AND t.amount = 0
		  AND t.metadata @> '{"pending_review": true}'
		  AND o.status = 'CREATED'
	)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, walletID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check pending marker: %w", err)
	}
	return exists, nil
}

// GetPendingMarker returns the pending-review marker correlated to the order
// number, or nil if none was recorded.
func (r *TransactionRepo) GetPendingMarker(ctx context.Context, orderNumber string) (*domain.WalletTransaction, error) {
	query := `SELECT id, wallet_id, tx_type, amount::text, order_number, metadata, created_at
		FROM wallet_transactions
		WHERE order_number = $1
		  AND tx_type = 'PAY'
		  AND amount = 0
		  AND metadata @> '{"pending_review": true}'
		ORDER BY created_at DESC
		LIMIT 1`

	entry, err := scanTransaction(r.pool.QueryRow(ctx, query, orderNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get pending marker: %w", err)
	}
	return entry, nil
}

func scanTransaction(row pgx.Row) (*domain.WalletTransaction, error) {
	entry := &domain.WalletTransaction{}
	var (
		txType   string
		amount   string
		metaJSON []byte
	)
	if err := row.Scan(&entry.ID, &entry.WalletID, &txType, &amount,
		&entry.OrderNumber, &metaJSON, &entry.CreatedAt); err != nil {
		return nil, err
	}
	entry.TxType = domain.TxType(txType)

	var err error
	entry.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse tx amount: %w", err)
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &entry.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal tx metadata: %w", err)
		}
	}
	return entry, nil
}
