package handler

import (
	"strconv"

	"campus-store/internal/adapter/http/middleware"
	"campus-store/internal/core/domain"
	"campus-store/internal/core/ports"
	"campus-store/pkg/apperror"
	"campus-store/pkg/response"

	"github.com/gin-gonic/gin"
)

// OrderHandler handles read-only order endpoints. Orders are created and
// mutated through the wallet payment and refund flows, not here.
type OrderHandler struct {
	orderGw ports.OrderGateway
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderGw ports.OrderGateway) *OrderHandler {
	return &OrderHandler{orderGw: orderGw}
}

// List handles GET /api/v1/orders.
func (h *OrderHandler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	orders, err := h.orderGw.ListForUser(c.Request.Context(), user, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"items": orders})
}

// Get handles GET /api/v1/orders/:id. Consumers only see their own orders;
// merchants only their storefront's; admins see everything.
func (h *OrderHandler) Get(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, apperror.Validation("order id must be a positive integer"))
		return
	}

	var order *domain.Order
	switch user.Role {
	case domain.RoleConsumer:
		order, err = h.orderGw.GetByIDForConsumer(c.Request.Context(), id, user.ID)
	default:
		order, err = h.orderGw.GetByID(c.Request.Context(), id)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	if order == nil || (user.Role == domain.RoleMerchant && order.MerchantID != user.ID) {
		response.Error(c, apperror.ErrNotFound("Order"))
		return
	}
	response.OK(c, order)
}
