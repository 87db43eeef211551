package domain

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// voucherAlphabet excludes easily-confused characters (0/O, 1/I/L).
const voucherAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// VoucherCodeLength is the normalized code length.
const VoucherCodeLength = 12

// WalletVoucher is a prepaid code redeemable exactly once for a fixed wallet
// credit. Redemption is a one-way transition: once IsRedeemed is set,
// RedeemedBy and RedeemedAt never change again.
type WalletVoucher struct {
	ID         int64           `json:"-"`
	Code       string          `json:"code"`
	Amount     decimal.Decimal `json:"amount"`
	IsRedeemed bool            `json:"is_redeemed"`
	CreatedBy  int64           `json:"created_by"`
	RedeemedBy *int64          `json:"redeemed_by,omitempty"`
	RedeemedAt *time.Time      `json:"redeemed_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// MarkRedeemed records the one-way redemption transition.
func (v *WalletVoucher) MarkRedeemed(userID int64, at time.Time) {
	v.IsRedeemed = true
	v.RedeemedBy = &userID
	v.RedeemedAt = &at
}

// NewVoucherCode generates a fresh code from the high-entropy alphabet.
// Uniqueness is enforced by the store; callers retry on collision.
func NewVoucherCode() (string, error) {
	buf := make([]byte, VoucherCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating voucher code: %w", err)
	}
	for i, b := range buf {
		buf[i] = voucherAlphabet[int(b)%len(voucherAlphabet)]
	}
	return string(buf), nil
}
