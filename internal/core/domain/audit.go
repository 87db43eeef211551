package domain

import "time"

// AuditAction classifies an audited operation.
type AuditAction string

const (
	AuditActionPayment       AuditAction = "PAYMENT"
	AuditActionRefund        AuditAction = "REFUND"
	AuditActionRecharge      AuditAction = "RECHARGE"
	AuditActionPaymentReview AuditAction = "PAYMENT_REVIEW"
	AuditActionConfigUpdate  AuditAction = "CONFIG_UPDATE"
	AuditActionVoucherIssue  AuditAction = "VOUCHER_ISSUE"
	AuditActionVoucherRedeem AuditAction = "VOUCHER_REDEEM"
)

// AuditEntry records one successful money-moving or policy operation for the
// admin trail. The ledger stays the financial source of truth; the trail
// captures who did what from where.
type AuditEntry struct {
	ID        int64       `json:"id"`
	ActorID   *int64      `json:"actor_id,omitempty"`
	Action    AuditAction `json:"action"`
	Resource  string      `json:"resource"`
	Details   string      `json:"details,omitempty"` // JSON string
	IPAddress string      `json:"ip_address"`
	CreatedAt time.Time   `json:"created_at"`
}
