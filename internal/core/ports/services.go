package ports

import (
	"context"
	"time"

	"campus-store/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// SessionStore persists opaque session tokens with a TTL.
type SessionStore interface {
	Save(ctx context.Context, session *domain.Session, ttl time.Duration) error
	Get(ctx context.Context, token string) (*domain.Session, error)
	Delete(ctx context.Context, token string) error
}

// ConfigCache caches the wallet policy row with explicit invalidation on
// update, so the engine rereads fresh policy after an admin change.
type ConfigCache interface {
	Get(ctx context.Context) (*domain.WalletConfig, error)
	Set(ctx context.Context, cfg *domain.WalletConfig) error
	Invalidate(ctx context.Context) error
}

// AuditService records audit entries. Record is fire-and-forget: audit
// failures never fail the audited request.
type AuditService interface {
	Record(ctx context.Context, entry *domain.AuditEntry)
}

// HashService handles password hashing.
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// --- Service Ports (Business Logic) ---

// AuthService defines account and session business logic.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.User, error)
	// Login returns the opaque session token and its expiry.
	Login(ctx context.Context, username, password string) (string, time.Time, error)
	Logout(ctx context.Context, token string) error
	// Resolve maps a session token back to its active user.
	Resolve(ctx context.Context, token string) (*domain.User, error)
}

// RegisterRequest holds validated input for account registration.
type RegisterRequest struct {
	Username  string
	Password  string
	Role      domain.Role
	StoreName string
	Headline  string
}

// CartItem is one client-submitted cart line. Prices are never taken from
// the client; the gateway reads them from the catalog.
type CartItem struct {
	ProductID     int64
	Quantity      int
	CustomDetails string
}

// OrderGateway is the wallet engine's contract with the commerce subsystem.
// CreateFromCart takes the caller's transaction so a failed payment rolls
// back order creation and inventory decrements with it.
type OrderGateway interface {
	CreateFromCart(ctx context.Context, tx pgx.Tx, consumerID int64, items []CartItem, note, shippingAddress string) (*domain.Order, error)
	GetByIDForConsumer(ctx context.Context, id int64, consumerID int64) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListForUser(ctx context.Context, user *domain.User, limit int) ([]domain.Order, error)
}

// PayRequest holds validated input for a wallet payment.
type PayRequest struct {
	Amount          decimal.Decimal // client-submitted, informational only
	OrderID         *int64
	Items           []CartItem
	ShippingAddress string
	Note            string
}

// PaymentResult is the stable response shape shared by every payment
// outcome so one client-side handler covers PAID, PENDING_REVIEW and errors.
type PaymentResult struct {
	Status                 string          `json:"status"` // PAID | PENDING_REVIEW
	PendingReview          bool            `json:"pending_review"`
	Balance                decimal.Decimal `json:"balance"`
	LowTierLimit           decimal.Decimal `json:"low_tier_limit"`
	OrderNumber            string          `json:"order_number"`
	Detail                 string          `json:"detail"`
	EnableTiers            bool            `json:"enable_tiers"`
	HighTierRequiresReview bool            `json:"high_tier_requires_review"`
}

// RefundRequest holds validated input for the refund state machine.
type RefundRequest struct {
	OrderID     *int64
	OrderNumber string
	Action      domain.RefundAction
}

// RefundResult reports the executed refund transition.
type RefundResult struct {
	Status  string           `json:"status"` // REQUESTED | REFUNDED | REJECTED
	Detail  string           `json:"detail"`
	Balance *decimal.Decimal `json:"balance,omitempty"` // consumer balance after credit
}

// ReviewRequest identifies a pending-review payment and the verdict.
type ReviewRequest struct {
	OrderNumber string
	Approve     bool
}

// WalletOverview is the wallet dashboard payload.
type WalletOverview struct {
	Balance                decimal.Decimal `json:"balance"`
	Tier                   string          `json:"tier"`
	LowTierLimit           decimal.Decimal `json:"low_tier_limit"`
	PendingReview          bool            `json:"pending_review"`
	EnableTiers            bool            `json:"enable_tiers"`
	HighTierRequiresReview bool            `json:"high_tier_requires_review"`
}

// ConfigUpdate is a partial policy update; nil fields are left unchanged.
type ConfigUpdate struct {
	LowTierLimit           *decimal.Decimal
	HighTierRequiresReview *bool
	EnableTiers            *bool
}

// WalletService is the wallet engine: payment, refund, recharge, review and
// policy configuration, each inside a single atomic unit of work.
type WalletService interface {
	Overview(ctx context.Context, userID int64) (*WalletOverview, error)
	Pay(ctx context.Context, user *domain.User, req PayRequest) (*PaymentResult, error)
	Refund(ctx context.Context, user *domain.User, req RefundRequest) (*RefundResult, error)
	ReviewPendingPayment(ctx context.Context, req ReviewRequest) (*PaymentResult, error)
	Recharge(ctx context.Context, userID int64, amount decimal.Decimal) (decimal.Decimal, error)
	Transactions(ctx context.Context, userID int64, limit int) ([]domain.WalletTransaction, error)
	GetConfig(ctx context.Context) (*domain.WalletConfig, error)
	UpdateConfig(ctx context.Context, update ConfigUpdate) (*domain.WalletConfig, error)
}

// IssueResult reports freshly issued vouchers and the issuer's new balance.
type IssueResult struct {
	Balance  decimal.Decimal        `json:"balance"`
	Vouchers []domain.WalletVoucher `json:"codes"`
}

// RedeemResult reports a successful redemption.
type RedeemResult struct {
	Amount  decimal.Decimal `json:"amount"`
	Balance decimal.Decimal `json:"balance"`
}

// VoucherService issues and redeems prepaid codes.
type VoucherService interface {
	Issue(ctx context.Context, issuer *domain.User, amount decimal.Decimal, count int) (*IssueResult, error)
	Redeem(ctx context.Context, userID int64, code string) (*RedeemResult, error)
	List(ctx context.Context) ([]domain.WalletVoucher, error)
}
