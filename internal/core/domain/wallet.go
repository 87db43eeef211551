package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds a user's balance. One wallet per user, created lazily on
// first access. Balance is denormalized for fast reads; the transaction log
// is the authoritative history and their sum must always reconcile.
type Wallet struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// WalletConfig is the process-wide payment review policy. Exactly one row
// exists; it is created with defaults on first access and only ever updated
// in place.
type WalletConfig struct {
	LowTierLimit           decimal.Decimal `json:"low_tier_limit"`
	HighTierRequiresReview bool            `json:"high_tier_requires_review"`
	EnableTiers            bool            `json:"enable_tiers"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// DefaultWalletConfig returns the documented policy defaults.
func DefaultWalletConfig() *WalletConfig {
	return &WalletConfig{
		LowTierLimit:           decimal.NewFromFloat(200.00),
		HighTierRequiresReview: true,
		EnableTiers:            true,
	}
}

// NeedsReview reports whether a payment of amount must be parked for manual
// review instead of being debited immediately. An amount exactly at the
// limit does not require review.
func (c *WalletConfig) NeedsReview(amount decimal.Decimal) bool {
	return c.EnableTiers && c.HighTierRequiresReview && amount.GreaterThan(c.LowTierLimit)
}
