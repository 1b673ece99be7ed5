// internal/services/refund_service.go
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

// RefundGateway is the slice of the gateway client the refund coordinator
// consumes. PIX refunds ride a distinct contract and never share the
// card/boleto code path.
type RefundGateway interface {
	RefundPayment(ctx context.Context, paymentID string, amount *float64, idempotencyKey string) (*gateway.Refund, error)
	RefundPixPayment(ctx context.Context, paymentID string, amount *float64, idempotencyKey string) (*gateway.Refund, error)
}

// RefundService issues full and partial refunds while preserving the split
// proportions recorded at charge time. The fee record is the source of truth
// for the original split; current establishment configuration is never
// consulted, so a fee change between charge and refund cannot skew the split.
type RefundService struct {
	gateway    RefundGateway
	feeRecords repository.FeeRecordRepository
	orders     repository.OrderRepository
}

// RefundBreakdown reports how a refund divides between the platform and the
// establishment.
type RefundBreakdown struct {
	RefundID            string  `json:"refund_id"`
	PaymentID           string  `json:"payment_id"`
	Status              string  `json:"status"`
	Amount              float64 `json:"amount"`
	ApplicationFee      float64 `json:"application_fee"`
	EstablishmentAmount float64 `json:"establishment_amount"`
	Partial             bool    `json:"partial"`
}

func NewRefundService(gw RefundGateway, feeRecords repository.FeeRecordRepository, orders repository.OrderRepository) *RefundService {
	return &RefundService{
		gateway:    gw,
		feeRecords: feeRecords,
		orders:     orders,
	}
}

// Refund refunds a payment. A nil amount requests a full refund, which
// returns the recorded split amounts verbatim. A partial amount is split in
// the original proportions, each side rounded to cents independently. A
// non-nil establishmentID must match the one recorded at charge time.
func (s *RefundService) Refund(ctx context.Context, paymentID string, amount *float64, establishmentID *uuid.UUID) (*RefundBreakdown, error) {
	record, err := s.feeRecords.ByPaymentID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, &RefundNotAllowedError{Reason: "no fee record for payment " + paymentID}
		}
		return nil, err
	}

	if establishmentID != nil && *establishmentID != record.EstablishmentID {
		return nil, &RefundNotAllowedError{Reason: "payment belongs to another establishment"}
	}
	if record.Status != models.PaymentStatusApproved {
		return nil, &RefundNotAllowedError{Reason: fmt.Sprintf("payment status is %s", record.Status)}
	}
	if amount != nil {
		if *amount <= 0 {
			return nil, &RefundNotAllowedError{Reason: "refund amount must be positive"}
		}
		if *amount > record.TransactionAmount {
			return nil, &RefundNotAllowedError{Reason: "refund amount exceeds transaction amount"}
		}
	}

	breakdown := s.computeBreakdown(record, amount)

	idempotencyKey, err := newIdempotencyKey(record.EstablishmentID)
	if err != nil {
		return nil, err
	}

	var refund *gateway.Refund
	if record.PaymentMethod == models.PaymentMethodPix {
		refund, err = s.gateway.RefundPixPayment(ctx, paymentID, amount, idempotencyKey)
	} else {
		refund, err = s.gateway.RefundPayment(ctx, paymentID, amount, idempotencyKey)
	}
	if err != nil {
		var gerr *gateway.Error
		if errors.As(err, &gerr) && !gerr.Retryable {
			return nil, &RefundNotAllowedError{Reason: gerr.Message}
		}
		return nil, err
	}

	breakdown.RefundID = refund.ID.String()
	breakdown.Status = refund.Status

	if err := s.recordRefund(ctx, record, refund, breakdown); err != nil {
		// the gateway refund went through; persistence failure is logged and
		// reconciliation via webhook will converge the ledger
		logrus.WithFields(logrus.Fields{
			"payment_id": paymentID,
			"refund_id":  breakdown.RefundID,
			"error":      err.Error(),
		}).Error("Failed to persist refund, awaiting webhook reconciliation")
	}

	logrus.WithFields(logrus.Fields{
		"payment_id":           paymentID,
		"refund_id":            breakdown.RefundID,
		"amount":               breakdown.Amount,
		"application_fee":      breakdown.ApplicationFee,
		"establishment_amount": breakdown.EstablishmentAmount,
		"partial":              breakdown.Partial,
	}).Info("Refund issued")

	return breakdown, nil
}

// computeBreakdown splits the refund in the proportions recorded at charge
// time. Full refunds reuse the recorded amounts verbatim so no rounding can
// reintroduce drift.
func (s *RefundService) computeBreakdown(record *models.FeeRecord, amount *float64) *RefundBreakdown {
	if amount == nil || *amount == record.TransactionAmount {
		return &RefundBreakdown{
			PaymentID:           record.PaymentID,
			Amount:              record.TransactionAmount,
			ApplicationFee:      record.ApplicationFee,
			EstablishmentAmount: record.EstablishmentAmt,
		}
	}
	return &RefundBreakdown{
		PaymentID:           record.PaymentID,
		Amount:              *amount,
		ApplicationFee:      round2(*amount * record.ApplicationFee / record.TransactionAmount),
		EstablishmentAmount: round2(*amount * record.EstablishmentAmt / record.TransactionAmount),
		Partial:             true,
	}
}

func (s *RefundService) recordRefund(ctx context.Context, record *models.FeeRecord, refund *gateway.Refund, breakdown *RefundBreakdown) error {
	now := time.Now()
	refundID := refund.ID.String()

	record.RefundID = &refundID
	record.RefundStatus = refund.Status
	record.RefundAmount = &breakdown.Amount
	record.RefundedAt = &now
	if !breakdown.Partial {
		record.Status = models.PaymentStatusRefunded
	}
	if err := s.feeRecords.Save(ctx, record); err != nil {
		return err
	}

	order, err := s.orders.ByPaymentID(ctx, record.PaymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	order.RefundID = &refundID
	order.RefundStatus = refund.Status
	order.RefundAmount = &breakdown.Amount
	order.RefundDate = &now
	if !breakdown.Partial {
		order.PaymentStatus = models.PaymentStatusRefunded
	}
	return s.orders.Save(ctx, order)
}
