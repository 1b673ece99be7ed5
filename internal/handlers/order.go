// internal/handlers/order.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/levaja/levaja-backend/internal/i18n"
	"github.com/levaja/levaja-backend/internal/repository"
	"github.com/levaja/levaja-backend/internal/services"
	"github.com/levaja/levaja-backend/internal/utils"
)

type OrderHandler struct {
	orders   *services.OrderService
	payments *services.PaymentService
}

func NewOrderHandler(orders *services.OrderService, payments *services.PaymentService) *OrderHandler {
	return &OrderHandler{orders: orders, payments: payments}
}

// Create handles POST /v1/orders. Only cash-on-delivery orders are
// created here; gateway-paid orders materialize through the payment flow.
func (h *OrderHandler) Create(c *gin.Context) {
	buyerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}
	req.BuyerID = buyerID

	order, err := h.orders.PlaceOrder(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFoundResponse(c, "establishment")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.CreatedResponse(c, order)
}

// Confirm handles POST /v1/orders/confirm. It materializes the order row
// for a payment created earlier with a pre-allocated order id; the payment
// must already be approved.
func (h *OrderHandler) Confirm(c *gin.Context) {
	buyerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req struct {
		services.CreateOrderRequest
		OrderID   uuid.UUID `json:"order_id" validate:"required"`
		PaymentID string    `json:"payment_id" validate:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}
	req.CreateOrderRequest.BuyerID = buyerID
	req.CreateOrderRequest.OrderID = &req.OrderID

	payment, err := h.payments.GetPayment(c.Request.Context(), req.PaymentID)
	if err != nil {
		utils.NotFoundResponse(c, "payment")
		return
	}

	order, err := h.orders.PlacePaidOrder(c.Request.Context(), &req.CreateOrderRequest, payment)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPaymentNotApproved):
			lang := utils.GetLangFromContext(c)
			utils.UnprocessableResponse(c, "PAYMENT_NOT_APPROVED", i18n.T(lang, i18n.KeyPaymentPending))
		case errors.Is(err, repository.ErrNotFound):
			utils.NotFoundResponse(c, "establishment")
		default:
			utils.InternalErrorResponse(c, "")
		}
		return
	}

	utils.CreatedResponse(c, order)
}

// List handles GET /v1/orders
func (h *OrderHandler) List(c *gin.Context) {
	buyerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)
	orders, total, err := h.orders.ListByBuyer(c.Request.Context(), buyerID, params)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(orders, total, params))
}

// Get handles GET /v1/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "", "invalid order id")
		return
	}

	order, err := h.orders.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.NotFoundResponse(c, "order")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, order)
}

// Advance handles POST /v1/orders/:id/advance
func (h *OrderHandler) Advance(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "", "invalid order id")
		return
	}

	order, err := h.orders.Advance(c.Request.Context(), id)
	if err != nil {
		h.transitionError(c, err)
		return
	}

	utils.SuccessResponse(c, order)
}

// Cancel handles POST /v1/orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "", "invalid order id")
		return
	}

	order, err := h.orders.Cancel(c.Request.Context(), id)
	if err != nil {
		h.transitionError(c, err)
		return
	}

	utils.SuccessResponse(c, order)
}

func (h *OrderHandler) transitionError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)
	var terr *services.InvalidStateTransitionError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		utils.NotFoundResponse(c, "order")
	case errors.As(err, &terr):
		utils.UnprocessableResponse(c, "INVALID_TRANSITION", i18n.T(lang, i18n.KeyOrderInvalidTransition))
	default:
		utils.InternalErrorResponse(c, "")
	}
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	raw, ok := utils.GetUserIDFromContext(c)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
