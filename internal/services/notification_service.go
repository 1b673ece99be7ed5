// internal/services/notification_service.go
package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/levaja/levaja-backend/internal/models"
	"github.com/levaja/levaja-backend/internal/repository"
)

// NotificationService records status-change notifications as pending rows.
// Writes are fire and forget: a failure is logged and never propagates into
// the flow that triggered it.
type NotificationService struct {
	notifications repository.NotificationRepository
}

func NewNotificationService(notifications repository.NotificationRepository) *NotificationService {
	return &NotificationService{notifications: notifications}
}

func (s *NotificationService) NotifyOrderPlaced(ctx context.Context, order *models.Order) {
	s.record(ctx, order, "order_placed", "Pedido recebido",
		fmt.Sprintf("Seu pedido de R$ %.2f foi recebido", order.TotalAmount))
}

func (s *NotificationService) NotifyOrderStatus(ctx context.Context, order *models.Order) {
	s.record(ctx, order, "order_status", "Pedido atualizado",
		fmt.Sprintf("Seu pedido agora está %s", order.Status))
}

func (s *NotificationService) NotifyPaymentStatus(ctx context.Context, order *models.Order) {
	s.record(ctx, order, "payment_status", "Pagamento atualizado",
		fmt.Sprintf("O pagamento do seu pedido está %s", order.PaymentStatus))
}

func (s *NotificationService) record(ctx context.Context, order *models.Order, kind, title, message string) {
	orderID := order.ID
	n := &models.Notification{
		UserID:  order.BuyerID,
		OrderID: &orderID,
		Type:    kind,
		Title:   title,
		Message: message,
		Data: models.JSONB{
			"order_id": order.ID.String(),
			"status":   string(order.Status),
		},
		Status: models.NotificationStatusPending,
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		logrus.WithFields(logrus.Fields{
			"order_id": order.ID,
			"type":     kind,
			"error":    err.Error(),
		}).Warn("Failed to record notification")
	}
}
