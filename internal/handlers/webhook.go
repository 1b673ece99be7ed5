// internal/handlers/webhook.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/levaja/levaja-backend/internal/gateway"
	"github.com/levaja/levaja-backend/internal/services"
)

// WebhookHandler receives gateway notifications. The contract is coarse on
// purpose: 200 acknowledges, 500 requests redelivery. Anything the gateway
// cannot fix by resending is acknowledged.
type WebhookHandler struct {
	webhooks *services.WebhookService
}

func NewWebhookHandler(webhooks *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// Receive handles POST /v1/webhook/gateway
func (h *WebhookHandler) Receive(c *gin.Context) {
	var event gateway.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		// malformed bodies are acknowledged; redelivery would not help
		logrus.WithField("error", err.Error()).Warn("Malformed webhook body")
		c.Status(http.StatusOK)
		return
	}

	if err := h.webhooks.ProcessEvent(c.Request.Context(), event); err != nil {
		logrus.WithFields(logrus.Fields{
			"type":  event.Type,
			"id":    event.Data.ID.String(),
			"error": err.Error(),
		}).Error("Webhook processing failed, requesting redelivery")
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Status(http.StatusOK)
}
