package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the order lifecycle state. Status transitions double as the
// mutual-exclusion token between paying and refunding the same order:
// operations that do not find the order in the expected starting state fail
// without touching the ledger.
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "CREATED"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusFulfilled OrderStatus = "FULFILLED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// PaymentMethodWallet tags orders settled (or parked for settlement) from
// the campus wallet.
const PaymentMethodWallet = "wallet"

// RefundStatus is the refund approval state.
type RefundStatus string

const (
	RefundStatusNone      RefundStatus = "NONE"
	RefundStatusRequested RefundStatus = "REQUESTED"
	RefundStatusApproved  RefundStatus = "APPROVED"
	RefundStatusRejected  RefundStatus = "REJECTED"
)

// Order is the commerce entity the wallet core reads and transitions. Item
// composition and pricing belong to the order gateway.
type Order struct {
	ID              int64           `json:"id"`
	OrderNumber     string          `json:"order_number"`
	ConsumerID      int64           `json:"consumer_id"`
	MerchantID      int64           `json:"merchant_id"`
	Status          OrderStatus     `json:"status"`
	RefundStatus    RefundStatus    `json:"refund_status"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Note            string          `json:"note,omitempty"`
	ShippingAddress string          `json:"shipping_address,omitempty"`
	PaymentMethod   string          `json:"payment_method,omitempty"`
	Items           []OrderItem     `json:"items,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem is a priced line item. UnitPrice is always the server-side
// product price at order creation, never a client-submitted value.
type OrderItem struct {
	ID            int64           `json:"id"`
	OrderID       int64           `json:"-"`
	ProductID     int64           `json:"product_id"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	CustomDetails string          `json:"custom_details,omitempty"`
}

// NewOrderNumber generates an externally-unique 12-character order number.
func NewOrderNumber() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:12])
}

// IsRefunded reports whether the refund already went through.
func (o *Order) IsRefunded() bool {
	return o.Status == OrderStatusCancelled && o.RefundStatus == RefundStatusApproved
}

// CanRefund reports whether the order status admits a non-forced refund.
func (o *Order) CanRefund() bool {
	switch o.Status {
	case OrderStatusPaid, OrderStatusShipped, OrderStatusFulfilled, OrderStatusCompleted:
		return true
	}
	return false
}

// RefundAction is a caller-requested refund step.
type RefundAction string

const (
	RefundActionRequest RefundAction = "REQUEST"
	RefundActionApprove RefundAction = "APPROVE"
	RefundActionReject  RefundAction = "REJECT"
	RefundActionForce   RefundAction = "FORCE"
)

// RefundOutcome is the decision the engine executes for a (role, action) pair.
type RefundOutcome int

const (
	// RefundOutcomeRequest marks the order's refund as REQUESTED, no ledger movement.
	RefundOutcomeRequest RefundOutcome = iota
	// RefundOutcomeApply credits the consumer, subject to the order-status precondition.
	RefundOutcomeApply
	// RefundOutcomeApplyForced credits the consumer, bypassing the status precondition.
	RefundOutcomeApplyForced
	// RefundOutcomeReject marks the refund REJECTED, no ledger movement.
	RefundOutcomeReject
	// RefundOutcomeInvalid rejects the request as unsupported for the role.
	RefundOutcomeInvalid
)

// DecideRefund is the refund transition table: (role, action) -> outcome.
// Consumers can only request; merchants approve or reject; admins approve,
// force, or reject, defaulting to a forced approval for any other action.
func DecideRefund(role Role, action RefundAction) RefundOutcome {
	switch role {
	case RoleConsumer:
		return RefundOutcomeRequest
	case RoleMerchant:
		switch action {
		case RefundActionApprove:
			return RefundOutcomeApply
		case RefundActionReject:
			return RefundOutcomeReject
		}
		return RefundOutcomeInvalid
	case RoleAdmin:
		switch action {
		case RefundActionReject:
			return RefundOutcomeReject
		default:
			return RefundOutcomeApplyForced
		}
	}
	return RefundOutcomeInvalid
}
