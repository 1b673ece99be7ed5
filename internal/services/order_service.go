// internal/services/order_service.go
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/levaja/levaja-backend/internal/gateway"
	"github.com/levaja/levaja-backend/internal/models"
	"github.com/levaja/levaja-backend/internal/repository"
	"github.com/levaja/levaja-backend/internal/utils"
)

// OrderService drives the order lifecycle: pendente -> preparo -> entregue,
// with cancelado reachable from the two non-terminal states. Cancelling a
// paid order triggers a full refund, but a refund failure never blocks the
// cancellation itself.
type OrderService struct {
	orders         repository.OrderRepository
	establishments repository.EstablishmentRepository
	refunds        *RefundService
	notifications  *NotificationService
}

type CreateOrderRequest struct {
	BuyerID         uuid.UUID              `json:"-"`
	EstablishmentID uuid.UUID              `json:"establishment_id" validate:"required"`
	Items           map[string]interface{} `json:"items" validate:"required"`
	DeliveryAddress map[string]interface{} `json:"delivery_address" validate:"required"`
	TotalAmount     float64                `json:"total_amount" validate:"required,gt=0"`
	PaymentMethod   models.PaymentMethod   `json:"payment_method" validate:"required,oneof=pix credit_card boleto dinheiro"`
	// OrderID is set when the id was pre-allocated for a gateway payment.
	OrderID *uuid.UUID `json:"-"`
}

func NewOrderService(orders repository.OrderRepository, establishments repository.EstablishmentRepository, refunds *RefundService, notifications *NotificationService) *OrderService {
	return &OrderService{
		orders:         orders,
		establishments: establishments,
		refunds:        refunds,
		notifications:  notifications,
	}
}

// PlaceOrder creates a cash-on-delivery order. It starts pendente with no
// payment attached.
func (s *OrderService) PlaceOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	if _, err := s.establishments.ByID(ctx, req.EstablishmentID); err != nil {
		return nil, err
	}

	order := &models.Order{
		BuyerID:         req.BuyerID,
		EstablishmentID: req.EstablishmentID,
		Status:          models.OrderStatusPendente,
		Items:           models.JSONB(req.Items),
		DeliveryAddress: models.JSONB(req.DeliveryAddress),
		TotalAmount:     req.TotalAmount,
		PaymentMethod:   req.PaymentMethod,
	}
	if req.OrderID != nil {
		order.ID = *req.OrderID
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id":         order.ID,
		"establishment_id": order.EstablishmentID,
		"total_amount":     order.TotalAmount,
		"payment_method":   order.PaymentMethod,
	}).Info("Order placed")

	if s.notifications != nil {
		s.notifications.NotifyOrderPlaced(ctx, order)
	}
	return order, nil
}

// PlacePaidOrder creates the order row for an approved gateway payment. The
// id was pre-allocated when the payment was submitted, so the webhook
// metadata and this row agree.
func (s *OrderService) PlacePaidOrder(ctx context.Context, req *CreateOrderRequest, payment *gateway.Payment) (*models.Order, error) {
	if models.PaymentStatus(payment.Status) != models.PaymentStatusApproved {
		return nil, ErrPaymentNotApproved
	}

	order, err := s.PlaceOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	order.PaymentID = &payment.ID
	order.PaymentStatus = models.PaymentStatus(payment.Status)
	order.ApplicationFeeAmount = &payment.ApplicationFee
	amt := round2(payment.TransactionAmount - payment.ApplicationFee)
	order.EstablishmentAmount = &amt

	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.orders.ByID(ctx, id)
}

func (s *OrderService) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params utils.PaginationParams) ([]models.Order, int64, error) {
	return s.orders.ListByBuyer(ctx, buyerID, params)
}

// Advance moves the order to its next lifecycle status. Terminal states and
// skipped steps are rejected.
func (s *OrderService) Advance(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.orders.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next, ok := order.Status.Next()
	if !ok {
		return nil, &InvalidStateTransitionError{From: order.Status, To: order.Status}
	}

	order.Status = next
	if next == models.OrderStatusEntregue {
		now := time.Now()
		order.DeliveredAt = &now
	}

	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order_id": order.ID,
		"status":   order.Status,
	}).Info("Order advanced")

	if s.notifications != nil {
		s.notifications.NotifyOrderStatus(ctx, order)
	}
	return order, nil
}

// Cancel cancels an order from pendente or preparo. When the payment was
// approved, a full refund is attempted first; if the refund fails, the
// failure is recorded on the order and the cancellation still completes.
func (s *OrderService) Cancel(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.orders.ByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !order.Status.Cancellable() {
		return nil, &InvalidStateTransitionError{From: order.Status, To: models.OrderStatusCancelado}
	}

	if order.PaymentID != nil && order.PaymentStatus == models.PaymentStatusApproved {
		if _, err := s.refunds.Refund(ctx, *order.PaymentID, nil, nil); err != nil {
			order.RefundError = err.Error()
			logrus.WithFields(logrus.Fields{
				"order_id":   order.ID,
				"payment_id": *order.PaymentID,
				"error":      err.Error(),
			}).Error("Refund failed during cancellation, order cancelled anyway")
		} else {
			// the refund already wrote its fields to the order row
			if fresh, err := s.orders.ByID(ctx, id); err == nil {
				fresh.RefundError = ""
				order = fresh
			}
		}
	}

	now := time.Now()
	order.Status = models.OrderStatusCancelado
	order.CancelledAt = &now

	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	logrus.WithField("order_id", order.ID).Info("Order cancelled")

	if s.notifications != nil {
		s.notifications.NotifyOrderStatus(ctx, order)
	}
	return order, nil
}
