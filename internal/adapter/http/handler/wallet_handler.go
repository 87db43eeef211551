package handler

import (
	"strconv"

	"campus-store/internal/adapter/http/dto"
	"campus-store/internal/adapter/http/middleware"
	"campus-store/internal/core/domain"
	"campus-store/internal/core/ports"
	"campus-store/pkg/apperror"
	"campus-store/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// WalletHandler handles wallet engine endpoints: overview, payment, refund,
// recharge, history, pending-payment review and policy configuration.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// Overview handles GET /api/v1/wallet/overview.
func (h *WalletHandler) Overview(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	overview, err := h.walletSvc.Overview(c.Request.Context(), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, overview)
}

// Pay handles POST /api/v1/wallet/pay.
func (h *WalletHandler) Pay(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	payReq := ports.PayRequest{
		OrderID:         req.OrderID,
		ShippingAddress: req.ShippingAddress,
		Note:            req.Note,
	}
	for _, item := range req.Items {
		payReq.Items = append(payReq.Items, ports.CartItem{
			ProductID:     item.ProductID,
			Quantity:      item.Quantity,
			CustomDetails: item.CustomDetails,
		})
	}
	if req.Amount != "" {
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			response.Error(c, apperror.Validation("amount must be a decimal string"))
			return
		}
		payReq.Amount = amount
	}

	result, err := h.walletSvc.Pay(c.Request.Context(), user, payReq)
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.PendingReview {
		response.Accepted(c, result)
		return
	}
	response.OK(c, result)
}

// Refund handles POST /api/v1/wallet/refund.
func (h *WalletHandler) Refund(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.walletSvc.Refund(c.Request.Context(), user, ports.RefundRequest{
		OrderID:     req.OrderID,
		OrderNumber: req.OrderNumber,
		Action:      domain.RefundAction(req.Action),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	if result.Status == "REQUESTED" {
		response.Accepted(c, result)
		return
	}
	response.OK(c, result)
}

// Recharge handles POST /api/v1/wallet/recharge.
func (h *WalletHandler) Recharge(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.RechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.Validation("amount must be a decimal string"))
		return
	}

	balance, err := h.walletSvc.Recharge(c.Request.Context(), user.ID, amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.BalanceResponse{Balance: balance.StringFixed(2)})
}

// Transactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) Transactions(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	entries, err := h.walletSvc.Transactions(c.Request.Context(), user.ID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"items": entries})
}

// GetConfig handles GET /api/v1/wallet/config.
func (h *WalletHandler) GetConfig(c *gin.Context) {
	cfg, err := h.walletSvc.GetConfig(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cfg)
}

// UpdateConfig handles PUT /api/v1/wallet/config.
func (h *WalletHandler) UpdateConfig(c *gin.Context) {
	var req dto.ConfigUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	update := ports.ConfigUpdate{
		EnableTiers:            req.EnableTiers,
		HighTierRequiresReview: req.HighTierRequiresReview,
	}
	if req.LowTierLimit != nil {
		limit, err := decimal.NewFromString(*req.LowTierLimit)
		if err != nil {
			response.Error(c, apperror.Validation("low_tier_limit must be a decimal string"))
			return
		}
		update.LowTierLimit = &limit
	}

	cfg, err := h.walletSvc.UpdateConfig(c.Request.Context(), update)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, cfg)
}

// ReviewPayment handles POST /api/v1/wallet/payments/review.
func (h *WalletHandler) ReviewPayment(c *gin.Context) {
	var req dto.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.walletSvc.ReviewPendingPayment(c.Request.Context(), ports.ReviewRequest{
		OrderNumber: req.OrderNumber,
		Approve:     *req.Approve,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
