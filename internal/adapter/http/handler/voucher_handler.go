package handler

import (
	"campus-store/internal/adapter/http/dto"
	"campus-store/internal/adapter/http/middleware"
	"campus-store/internal/core/ports"
	"campus-store/pkg/apperror"
	"campus-store/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// VoucherHandler handles prepaid voucher endpoints.
type VoucherHandler struct {
	voucherSvc ports.VoucherService
}

// NewVoucherHandler creates a new VoucherHandler.
func NewVoucherHandler(voucherSvc ports.VoucherService) *VoucherHandler {
	return &VoucherHandler{voucherSvc: voucherSvc}
}

// Generate handles POST /api/v1/wallet/vouchers/generate.
func (h *VoucherHandler) Generate(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.GenerateVouchersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.Validation("amount must be a decimal string"))
		return
	}

	result, err := h.voucherSvc.Issue(c.Request.Context(), user, amount, req.Count)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Redeem handles POST /api/v1/wallet/vouchers/redeem.
func (h *VoucherHandler) Redeem(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.RedeemVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.voucherSvc.Redeem(c.Request.Context(), user.ID, req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// List handles GET /api/v1/wallet/vouchers.
func (h *VoucherHandler) List(c *gin.Context) {
	vouchers, err := h.voucherSvc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"items": vouchers})
}
