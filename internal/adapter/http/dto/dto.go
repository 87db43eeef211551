package dto

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password  string `json:"password" binding:"required,min=8,max=128"`
	Role      string `json:"role" binding:"omitempty,oneof=CONSUMER MERCHANT"`
	StoreName string `json:"store_name" binding:"max=100"`
	Headline  string `json:"headline" binding:"max=200"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// CartItemRequest is one cart line in a payment request.
type CartItemRequest struct {
	ProductID     int64  `json:"product_id" binding:"required,gt=0"`
	Quantity      int    `json:"quantity" binding:"required,gt=0"`
	CustomDetails string `json:"custom_details" binding:"max=500"`
}

// PayRequest is the request body for a wallet payment. Either order_id or a
// non-empty cart must be present; amounts are informational only and always
// re-priced server-side.
type PayRequest struct {
	Amount          string            `json:"amount"`
	OrderID         *int64            `json:"order_id,omitempty"`
	Items           []CartItemRequest `json:"items,omitempty" binding:"omitempty,dive"`
	ShippingAddress string            `json:"shipping_address" binding:"max=300"`
	Note            string            `json:"note" binding:"max=500"`
}

// RefundRequest is the request body for a refund transition. Action is
// optional: an absent action falls back to the role's default transition
// (consumers request, admins force approval).
type RefundRequest struct {
	OrderID     *int64 `json:"order_id,omitempty"`
	OrderNumber string `json:"order_number,omitempty" binding:"omitempty,safe_id"`
	Action      string `json:"action" binding:"omitempty,oneof=REQUEST APPROVE REJECT FORCE"`
}

// ReviewRequest is the request body for a pending-payment verdict.
type ReviewRequest struct {
	OrderNumber string `json:"order_number" binding:"required,safe_id"`
	Approve     *bool  `json:"approve" binding:"required"`
}

// RechargeRequest is the request body for a wallet recharge.
type RechargeRequest struct {
	Amount string `json:"amount" binding:"required,money"`
}

// ConfigUpdateRequest is a partial payment-policy update.
type ConfigUpdateRequest struct {
	LowTierLimit           *string `json:"low_tier_limit,omitempty" binding:"omitempty,money"`
	EnableTiers            *bool   `json:"enable_tiers,omitempty"`
	HighTierRequiresReview *bool   `json:"high_tier_requires_review,omitempty"`
}

// GenerateVouchersRequest is the request body for voucher issuance.
type GenerateVouchersRequest struct {
	Amount string `json:"amount" binding:"required,money"`
	Count  int    `json:"count" binding:"required,min=1,max=50"`
}

// RedeemVoucherRequest is the request body for voucher redemption.
type RedeemVoucherRequest struct {
	Code string `json:"code" binding:"required,len=12,safe_id"`
}

// BalanceResponse is the response for balance-changing operations that
// return nothing but the new balance.
type BalanceResponse struct {
	Balance string `json:"balance"`
}
