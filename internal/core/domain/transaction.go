package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxType represents the kind of ledger movement.
type TxType string

const (
	TxTypePay    TxType = "PAY"
	TxTypeRefund TxType = "REFUND"
	TxTypeAdjust TxType = "ADJUST"
)

// WalletTransaction is an immutable, append-only ledger entry. Amount is
// signed: negative for debits. OrderNumber is a correlation key, not a
// foreign key; entries such as recharges have no associated order.
type WalletTransaction struct {
	ID          int64           `json:"id"`
	WalletID    int64           `json:"wallet_id"`
	TxType      TxType          `json:"tx_type"`
	Amount      decimal.Decimal `json:"amount"`
	OrderNumber string          `json:"order_number,omitempty"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// IsPendingReviewMarker reports whether the entry is the zero-amount audit
// marker written when a payment is parked for tiered review.
func (t *WalletTransaction) IsPendingReviewMarker() bool {
	if t.TxType != TxTypePay || !t.Amount.IsZero() {
		return false
	}
	pending, ok := t.Metadata["pending_review"].(bool)
	return ok && pending
}
