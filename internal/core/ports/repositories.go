package ports

import (
	"context"
	"time"

	"campus-store/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// UserRepository defines persistence operations for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic
// locking; AdjustBalance must only ever be called with the row locked.
type WalletRepository interface {
	// Ensure returns the user's wallet, creating a zero-balance one if absent.
	// Idempotent and side-effect-free on repeated calls.
	Ensure(ctx context.Context, userID int64) (*domain.Wallet, error)
	GetByUserID(ctx context.Context, userID int64) (*domain.Wallet, error)
	GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID int64) (*domain.Wallet, error)
	// AdjustBalance applies balance = balance + delta and returns the new
	// balance. It performs no sign or sufficiency validation; callers check
	// sufficiency under the row lock before debiting.
	AdjustBalance(ctx context.Context, tx pgx.Tx, walletID int64, delta decimal.Decimal) (decimal.Decimal, error)
}

// TransactionRepository defines persistence for the append-only ledger.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.WalletTransaction) error
	ListByWallet(ctx context.Context, walletID int64, limit int) ([]domain.WalletTransaction, error)
	// SumByWallet returns the sum of all entry amounts for reconciliation
	// against the wallet's denormalized balance.
	SumByWallet(ctx context.Context, walletID int64) (decimal.Decimal, error)
	// HasPendingMarker reports whether the wallet carries a zero-amount PAY
	// entry tagged pending_review for an order that is still unsettled.
	HasPendingMarker(ctx context.Context, walletID int64) (bool, error)
	// GetPendingMarker returns the pending-review marker for an order number,
	// or nil if none exists.
	GetPendingMarker(ctx context.Context, orderNumber string) (*domain.WalletTransaction, error)
}

// VoucherRepository defines persistence for prepaid codes.
type VoucherRepository interface {
	// Create inserts a voucher. A unique-constraint collision on the code is
	// surfaced as ErrDuplicateCode so callers can regenerate and retry.
	Create(ctx context.Context, tx pgx.Tx, voucher *domain.WalletVoucher) error
	GetByCode(ctx context.Context, code string) (*domain.WalletVoucher, error)
	GetByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*domain.WalletVoucher, error)
	MarkRedeemed(ctx context.Context, tx pgx.Tx, voucherID int64, redeemedBy int64, at time.Time) error
	List(ctx context.Context, limit int) ([]domain.WalletVoucher, error)
}

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	// Create inserts the order and its line items.
	Create(ctx context.Context, tx pgx.Tx, order *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByIDForConsumer(ctx context.Context, id int64, consumerID int64) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Order, error)
	SetStatus(ctx context.Context, tx pgx.Tx, id int64, status domain.OrderStatus) error
	SetRefundStatus(ctx context.Context, tx pgx.Tx, id int64, status domain.RefundStatus) error
	SetPaymentMethod(ctx context.Context, tx pgx.Tx, id int64, method string) error
	// ListForUser returns the user's orders: as consumer for consumers, as
	// storefront owner for merchants, everything for admins.
	ListForUser(ctx context.Context, user *domain.User, limit int) ([]domain.Order, error)
}

// ProductRepository is the catalog slice the order gateway consumes.
type ProductRepository interface {
	GetActiveByID(ctx context.Context, id int64) (*domain.Product, error)
	GetActiveByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Product, error)
	// DecrementInventory reduces stock by qty, floor-clamped at zero.
	DecrementInventory(ctx context.Context, tx pgx.Tx, id int64, qty int) error
}

// WalletConfigRepository manages the single payment-policy row.
type WalletConfigRepository interface {
	// GetOrCreate returns the config row, creating it with defaults if absent.
	GetOrCreate(ctx context.Context) (*domain.WalletConfig, error)
	Update(ctx context.Context, cfg *domain.WalletConfig) error
}

// AuditRepository persists the audit trail. Writes are best-effort and
// happen outside the money-moving transaction.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditEntry) error
}

// DBTransactor provides database transaction management. WithinTransaction
// wraps fn in a transaction that commits on nil and rolls back on error or
// panic; it is the only way service code opens an atomic unit of work.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	WithinTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
}
