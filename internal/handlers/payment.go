// internal/handlers/payment.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/levaja/levaja-backend/internal/gateway"
	"github.com/levaja/levaja-backend/internal/i18n"
	"github.com/levaja/levaja-backend/internal/repository"
	"github.com/levaja/levaja-backend/internal/services"
	"github.com/levaja/levaja-backend/internal/utils"
)

// PaymentHandler exposes split-payment creation per method, status polling,
// the PIX approval wait, and refunds.
type PaymentHandler struct {
	payments *services.PaymentService
	refunds  *services.RefundService
	webhooks *services.WebhookService
}

func NewPaymentHandler(payments *services.PaymentService, refunds *services.RefundService, webhooks *services.WebhookService) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		refunds:  refunds,
		webhooks: webhooks,
	}
}

// CreatePix handles POST /v1/marketplace/payment/pix
func (h *PaymentHandler) CreatePix(c *gin.Context) {
	var req services.CreatePixPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	result, err := h.payments.CreatePixPayment(c.Request.Context(), &req)
	if err != nil {
		h.paymentError(c, err)
		return
	}
	utils.CreatedResponse(c, result)
}

// CreateCard handles POST /v1/marketplace/payment/card
func (h *PaymentHandler) CreateCard(c *gin.Context) {
	var req services.CreateCardPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	result, err := h.payments.CreateCardPayment(c.Request.Context(), &req)
	if err != nil {
		h.paymentError(c, err)
		return
	}
	utils.CreatedResponse(c, result)
}

// CreateBoleto handles POST /v1/marketplace/payment/boleto
func (h *PaymentHandler) CreateBoleto(c *gin.Context) {
	var req services.CreateBoletoPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	result, err := h.payments.CreateBoletoPayment(c.Request.Context(), &req)
	if err != nil {
		h.paymentError(c, err)
		return
	}
	utils.CreatedResponse(c, result)
}

// Status handles GET /v1/marketplace/payment/:paymentId/status. The client
// polling loop and the webhook race against each other, so each poll applies
// the canonical snapshot through the same reconciliation path the webhook
// uses before answering.
func (h *PaymentHandler) Status(c *gin.Context) {
	paymentID := c.Param("paymentId")
	payment, err := h.payments.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		var gerr *gateway.Error
		if errors.As(err, &gerr) && gerr.StatusCode == 404 {
			utils.NotFoundResponse(c, "payment")
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	if err := h.webhooks.ReconcilePayment(c.Request.Context(), payment); err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"payment_id":    payment.ID,
		"status":        payment.Status,
		"status_detail": payment.StatusDetail,
		"amount":        payment.TransactionAmount,
	})
}

// WaitPix handles GET /v1/marketplace/payment/pix/:paymentId/wait. It blocks until
// the payment reaches a terminal status or the wait window closes, then
// reconciles the final snapshot.
func (h *PaymentHandler) WaitPix(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	paymentID := c.Param("paymentId")

	payment, err := h.payments.WaitForApproval(c.Request.Context(), paymentID)
	if payment != nil {
		// persist whatever terminal state the wait observed
		if rerr := h.webhooks.ReconcilePayment(c.Request.Context(), payment); rerr != nil {
			utils.InternalErrorResponse(c, "")
			return
		}
	}
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPaymentExpired):
			utils.ErrorResponse(c, 408, "PAYMENT_EXPIRED", i18n.T(lang, i18n.KeyPaymentExpired), nil)
		case errors.Is(err, services.ErrPaymentNotApproved):
			utils.UnprocessableResponse(c, "PAYMENT_NOT_APPROVED", i18n.T(lang, i18n.KeyPaymentFailed))
		default:
			utils.InternalErrorResponse(c, "")
		}
		return
	}

	utils.SuccessResponse(c, gin.H{
		"payment_id": payment.ID,
		"status":     payment.Status,
	})
}

// Refund handles POST /v1/marketplace/payment/refund/:paymentId. An absent
// amount requests a full refund; establishment_id, when present, must match
// the establishment recorded at charge time.
func (h *PaymentHandler) Refund(c *gin.Context) {
	var req struct {
		Amount          *float64   `json:"amount" validate:"omitempty,gt=0"`
		EstablishmentID *uuid.UUID `json:"establishment_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ValidationErrorResponse(c, utils.GetValidationErrors(err))
		return
	}

	lang := utils.GetLangFromContext(c)
	breakdown, err := h.refunds.Refund(c.Request.Context(), c.Param("paymentId"), req.Amount, req.EstablishmentID)
	if err != nil {
		var rerr *services.RefundNotAllowedError
		if errors.As(err, &rerr) {
			utils.UnprocessableResponse(c, "REFUND_NOT_ALLOWED", i18n.T(lang, i18n.KeyRefundNotAllowed, rerr.Reason))
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, breakdown)
}

func (h *PaymentHandler) paymentError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		utils.NotFoundResponse(c, "establishment")
	case errors.Is(err, services.ErrEstablishmentNotConnected):
		utils.UnprocessableResponse(c, "SELLER_NOT_CONNECTED", i18n.T(lang, i18n.KeyPaymentSellerNotConnected))
	case errors.Is(err, services.ErrInvalidFeeConfiguration):
		utils.UnprocessableResponse(c, "INVALID_FEE", i18n.T(lang, i18n.KeyPaymentInvalidFee))
	case errors.Is(err, services.ErrCardTokenRequired):
		utils.BadRequestResponse(c, "", "card token is required")
	default:
		var gerr *gateway.Error
		if errors.As(err, &gerr) && !gerr.Retryable {
			utils.UnprocessableResponse(c, "PAYMENT_REJECTED", gerr.Message)
			return
		}
		utils.InternalErrorResponse(c, i18n.T(lang, i18n.KeyPaymentFailed))
	}
}
