package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the catalog slice the order gateway prices against. The backend
// price is always authoritative; client-submitted prices are ignored.
type Product struct {
	ID         int64           `json:"id"`
	MerchantID int64           `json:"merchant_id"`
	Title      string          `json:"title"`
	Price      decimal.Decimal `json:"price"`
	Inventory  int             `json:"inventory"`
	IsActive   bool            `json:"is_active"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
