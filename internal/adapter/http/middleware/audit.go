package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"campus-store/internal/core/domain"
	"campus-store/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// AuditTrail records successful money-moving and policy writes. Reads and
// failed requests are not audited; the ledger already carries the financial
// record, the trail adds who acted and from where.
func AuditTrail(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			return
		}

		action, resource := auditActionFor(c.Request.Method, c.Request.URL.Path)
		if action == "" {
			return
		}

		var actorID *int64
		if v, exists := c.Get(CtxUserID); exists {
			if id, ok := v.(int64); ok {
				actorID = &id
			}
		}

		details, _ := json.Marshal(map[string]any{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Record(c.Request.Context(), &domain.AuditEntry{
			ActorID:   actorID,
			Action:    action,
			Resource:  resource,
			Details:   string(details),
			IPAddress: c.ClientIP(),
			CreatedAt: time.Now(),
		})
	}
}

func auditActionFor(method, path string) (domain.AuditAction, string) {
	if method != http.MethodPost && method != http.MethodPut {
		return "", ""
	}
	switch {
	case path == "/api/v1/wallet/pay":
		return domain.AuditActionPayment, "order"
	case path == "/api/v1/wallet/refund":
		return domain.AuditActionRefund, "order"
	case path == "/api/v1/wallet/recharge":
		return domain.AuditActionRecharge, "wallet"
	case path == "/api/v1/wallet/payments/review":
		return domain.AuditActionPaymentReview, "order"
	case path == "/api/v1/wallet/config" && method == http.MethodPut:
		return domain.AuditActionConfigUpdate, "wallet_config"
	case path == "/api/v1/wallet/vouchers/generate":
		return domain.AuditActionVoucherIssue, "voucher"
	case path == "/api/v1/wallet/vouchers/redeem":
		return domain.AuditActionVoucherRedeem, "voucher"
	}
	return "", ""
}
