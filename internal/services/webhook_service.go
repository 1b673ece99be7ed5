// internal/services/webhook_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/levaja/levaja-backend/internal/gateway"
	"github.com/levaja/levaja-backend/internal/models"
	"github.com/levaja/levaja-backend/internal/repository"
)

// WebhookService reconciles gateway notifications against local state. It
// never trusts amounts carried in the notification body: every event triggers
// a fetch of the canonical payment, and only that object is persisted.
type WebhookService struct {
	gateway       PaymentGateway
	feeRecords    repository.FeeRecordRepository
	orders        repository.OrderRepository
	notifications *NotificationService
}

func NewWebhookService(gw PaymentGateway, feeRecords repository.FeeRecordRepository, orders repository.OrderRepository, notifications *NotificationService) *WebhookService {
	return &WebhookService{
		gateway:       gw,
		feeRecords:    feeRecords,
		orders:        orders,
		notifications: notifications,
	}
}

// ProcessEvent handles one webhook delivery. A nil return acknowledges the
// event; a non-nil return tells the handler to answer 500 so the gateway
// redelivers. Only retryable canonical-fetch failures propagate: unknown
// event types, malformed ids and missing orders are acknowledged, since
// redelivery cannot fix them.
func (s *WebhookService) ProcessEvent(ctx context.Context, event gateway.WebhookEvent) error {
	switch ev := event.ParseEvent().(type) {
	case gateway.PaymentEvent:
		return s.reconcileByID(ctx, ev.PaymentID)
	case gateway.RefundEvent:
		return s.reconcileByID(ctx, ev.PaymentID)
	case gateway.UnknownEvent:
		logrus.WithField("type", ev.Type).Debug("Ignoring unknown webhook event type")
		return nil
	default:
		return nil
	}
}

func (s *WebhookService) reconcileByID(ctx context.Context, paymentID string) error {
	if paymentID == "" || paymentID == "0" {
		logrus.Warn("Webhook event carried no payment id")
		return nil
	}

	payment, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		if gateway.IsRetryable(err) {
			return fmt.Errorf("failed to fetch canonical payment %s: %w", paymentID, err)
		}
		logrus.WithFields(logrus.Fields{
			"payment_id": paymentID,
			"error":      err.Error(),
		}).Warn("Canonical payment fetch failed permanently, acknowledging event")
		return nil
	}

	return s.ReconcilePayment(ctx, payment)
}

// ReconcilePayment applies one canonical payment snapshot: the fee record is
// upserted on payment_id and the status is propagated to the linked order.
// Both the webhook path and the PIX polling path funnel through here, so
// concurrent deliveries for the same payment converge on the same row.
func (s *WebhookService) ReconcilePayment(ctx context.Context, payment *gateway.Payment) error {
	record := s.buildFeeRecord(payment)
	if err := s.feeRecords.Upsert(ctx, record); err != nil {
		return fmt.Errorf("failed to upsert fee record for payment %s: %w", payment.ID, err)
	}

	logrus.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"status":     payment.Status,
		"amount":     payment.TransactionAmount,
	}).Info("Payment reconciled")

	return s.propagateToOrder(ctx, payment)
}

func (s *WebhookService) buildFeeRecord(payment *gateway.Payment) *models.FeeRecord {
	record := &models.FeeRecord{
		PaymentID:         payment.ID,
		TransactionAmount: payment.TransactionAmount,
		ApplicationFee:    payment.ApplicationFee,
		EstablishmentAmt:  round2(payment.TransactionAmount - payment.ApplicationFee),
		PaymentMethod:     models.PaymentMethod(payment.PaymentTypeID),
		Status:            models.PaymentStatus(payment.Status),
	}
	if payment.TransactionAmount > 0 {
		record.FeePercent = round2(payment.ApplicationFee / payment.TransactionAmount * 100)
	}
	if id, err := uuid.Parse(payment.Metadata.EstablishmentID); err == nil {
		record.EstablishmentID = id
	}
	if id, err := uuid.Parse(payment.Metadata.OrderID); err == nil {
		record.OrderID = &id
	}
	if len(payment.Refunds) > 0 {
		last := payment.Refunds[len(payment.Refunds)-1]
		refundID := last.ID.String()
		amount := totalRefunded(payment.Refunds)
		record.RefundID = &refundID
		record.RefundStatus = last.Status
		record.RefundAmount = &amount
		record.RefundedAt = last.DateCreated
	}
	return record
}

// propagateToOrder mirrors the payment status onto the order. For PIX the
// order row may not exist yet (it is created only after approval); that is
// acknowledged, not retried, because the polling path will pick it up.
func (s *WebhookService) propagateToOrder(ctx context.Context, payment *gateway.Payment) error {
	order, err := s.orders.ByPaymentID(ctx, payment.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logrus.WithField("payment_id", payment.ID).Debug("No order linked to payment yet")
			return nil
		}
		return err
	}

	previous := order.PaymentStatus
	order.PaymentStatus = models.PaymentStatus(payment.Status)
	if payment.PaymentTypeID != "" {
		order.PaymentMethod = models.PaymentMethod(payment.PaymentTypeID)
	}
	order.ApplicationFeeAmount = &payment.ApplicationFee
	amt := round2(payment.TransactionAmount - payment.ApplicationFee)
	order.EstablishmentAmount = &amt

	if len(payment.Refunds) > 0 {
		last := payment.Refunds[len(payment.Refunds)-1]
		refundID := last.ID.String()
		refunded := totalRefunded(payment.Refunds)
		order.RefundID = &refundID
		order.RefundStatus = last.Status
		order.RefundAmount = &refunded
		if order.RefundDate == nil {
			order.RefundDate = last.DateCreated
			if order.RefundDate == nil {
				now := time.Now()
				order.RefundDate = &now
			}
		}
	}

	if err := s.orders.Save(ctx, order); err != nil {
		return fmt.Errorf("failed to update order %s: %w", order.ID, err)
	}

	if previous != order.PaymentStatus && s.notifications != nil {
		s.notifications.NotifyPaymentStatus(ctx, order)
	}
	return nil
}

func totalRefunded(refunds []gateway.Refund) float64 {
	var total float64
	for _, r := range refunds {
		total += r.Amount
	}
	return round2(total)
}
