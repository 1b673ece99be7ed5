// internal/services/webhook_service_test.go
package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levaja/levaja-backend/internal/gateway"
	"github.com/levaja/levaja-backend/internal/models"
)

func paymentEvent(id string) gateway.WebhookEvent {
	var event gateway.WebhookEvent
	event.Type = "payment"
	event.Data.ID = json.Number(id)
	return event
}

func canonicalPayment(id string, status string, amount, fee float64, estID, orderID uuid.UUID) *gateway.Payment {
	p := &gateway.Payment{
		ID:                id,
		Status:            status,
		PaymentTypeID:     "pix",
		TransactionAmount: amount,
		ApplicationFee:    fee,
	}
	p.Metadata.EstablishmentID = estID.String()
	p.Metadata.OrderID = orderID.String()
	return p
}

func TestProcessEventDuplicateDeliveryKeepsOneRecord(t *testing.T) {
	estID, orderID := uuid.New(), uuid.New()
	gw := &fakeGateway{getResp: canonicalPayment("777", "approved", 100.00, 12.00, estID, orderID)}
	fees := newFakeFeeRecordRepo()
	orders := newFakeOrderRepo()
	svc := NewWebhookService(gw, fees, orders, nil)

	event := paymentEvent("777")
	require.NoError(t, svc.ProcessEvent(context.Background(), event))
	require.NoError(t, svc.ProcessEvent(context.Background(), event))

	assert.Len(t, fees.data, 1)
	record, err := fees.ByPaymentID(context.Background(), "777")
	require.NoError(t, err)
	assert.Equal(t, 100.00, record.TransactionAmount)
	assert.Equal(t, 12.00, record.ApplicationFee)
	assert.Equal(t, 88.00, record.EstablishmentAmt)
	assert.Equal(t, models.PaymentStatusApproved, record.Status)
	assert.Equal(t, estID, record.EstablishmentID)
}

func TestProcessEventNeverTrustsEventAmounts(t *testing.T) {
	// the webhook body carries only an id; amounts come from the canonical
	// fetch regardless of what the sender claims
	estID := uuid.New()
	gw := &fakeGateway{getResp: canonicalPayment("888", "approved", 250.00, 30.00, estID, uuid.New())}
	fees := newFakeFeeRecordRepo()
	svc := NewWebhookService(gw, fees, newFakeOrderRepo(), nil)

	require.NoError(t, svc.ProcessEvent(context.Background(), paymentEvent("888")))
	assert.Equal(t, 1, gw.getCalls)

	record, err := fees.ByPaymentID(context.Background(), "888")
	require.NoError(t, err)
	assert.Equal(t, 250.00, record.TransactionAmount)
	assert.Equal(t, 30.00, record.ApplicationFee)
	assert.Equal(t, 220.00, record.EstablishmentAmt)
	assert.Equal(t, 12.00, record.FeePercent)
}

func TestProcessEventMissingOrderIsAcknowledged(t *testing.T) {
	gw := &fakeGateway{getResp: canonicalPayment("999", "approved", 60.00, 7.20, uuid.New(), uuid.New())}
	fees := newFakeFeeRecordRepo()
	svc := NewWebhookService(gw, fees, newFakeOrderRepo(), nil)

	// no order row exists for this payment yet (PIX pre-approval window)
	assert.NoError(t, svc.ProcessEvent(context.Background(), paymentEvent("999")))
	assert.Len(t, fees.data, 1)
}

func TestProcessEventRetryableFetchFailurePropagates(t *testing.T) {
	gw := &fakeGateway{getErr: &gateway.Error{StatusCode: 503, Message: "unavailable", Retryable: true}}
	svc := NewWebhookService(gw, newFakeFeeRecordRepo(), newFakeOrderRepo(), nil)

	err := svc.ProcessEvent(context.Background(), paymentEvent("123"))
	assert.Error(t, err)
}

func TestProcessEventPermanentFetchFailureIsAcknowledged(t *testing.T) {
	gw := &fakeGateway{getErr: &gateway.Error{StatusCode: 404, Message: "not found"}}
	svc := NewWebhookService(gw, newFakeFeeRecordRepo(), newFakeOrderRepo(), nil)

	assert.NoError(t, svc.ProcessEvent(context.Background(), paymentEvent("123")))
}

func TestProcessEventUnknownTypeIsAcknowledged(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewWebhookService(gw, newFakeFeeRecordRepo(), newFakeOrderRepo(), nil)

	var event gateway.WebhookEvent
	event.Type = "plan"
	assert.NoError(t, svc.ProcessEvent(context.Background(), event))
	assert.Equal(t, 0, gw.getCalls)
}

func TestProcessEventPropagatesStatusToOrder(t *testing.T) {
	estID, orderID := uuid.New(), uuid.New()
	orders := newFakeOrderRepo()
	paymentID := "555"
	order := &models.Order{
		BuyerID:         uuid.New(),
		EstablishmentID: estID,
		Status:          models.OrderStatusPendente,
		TotalAmount:     100.00,
		PaymentID:       &paymentID,
		PaymentStatus:   models.PaymentStatusPending,
		// client claimed card; the canonical payment says pix and wins
		PaymentMethod: models.PaymentMethodCard,
	}
	order.ID = orderID
	require.NoError(t, orders.Create(context.Background(), order))

	gw := &fakeGateway{getResp: canonicalPayment(paymentID, "approved", 100.00, 12.00, estID, orderID)}
	svc := NewWebhookService(gw, newFakeFeeRecordRepo(), orders, nil)

	require.NoError(t, svc.ProcessEvent(context.Background(), paymentEvent(paymentID)))

	updated, err := orders.ByID(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusApproved, updated.PaymentStatus)
	assert.Equal(t, models.PaymentMethodPix, updated.PaymentMethod)
	require.NotNil(t, updated.ApplicationFeeAmount)
	assert.Equal(t, 12.00, *updated.ApplicationFeeAmount)
	require.NotNil(t, updated.EstablishmentAmount)
	assert.Equal(t, 88.00, *updated.EstablishmentAmount)
}

func TestRefundEventMarksRecordAndOrder(t *testing.T) {
	estID, orderID := uuid.New(), uuid.New()
	paymentID := "666"

	fees := newFakeFeeRecordRepo()
	require.NoError(t, fees.Upsert(context.Background(), &models.FeeRecord{
		PaymentID:         paymentID,
		EstablishmentID:   estID,
		TransactionAmount: 100.00,
		ApplicationFee:    12.00,
		EstablishmentAmt:  88.00,
		Status:            models.PaymentStatusApproved,
	}))

	orders := newFakeOrderRepo()
	order := &models.Order{
		BuyerID:         uuid.New(),
		EstablishmentID: estID,
		Status:          models.OrderStatusPreparo,
		TotalAmount:     100.00,
		PaymentID:       &paymentID,
		PaymentStatus:   models.PaymentStatusApproved,
	}
	order.ID = orderID
	require.NoError(t, orders.Create(context.Background(), order))

	payment := canonicalPayment(paymentID, "refunded", 100.00, 12.00, estID, orderID)
	payment.Refunds = []gateway.Refund{{ID: json.Number("42"), Amount: 100.00, Status: "approved"}}
	gw := &fakeGateway{getResp: payment}
	svc := NewWebhookService(gw, fees, orders, nil)

	var event gateway.WebhookEvent
	event.Type = "refund"
	event.Data.ID = json.Number(paymentID)
	require.NoError(t, svc.ProcessEvent(context.Background(), event))

	record, err := fees.ByPaymentID(context.Background(), paymentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, record.Status)
	require.NotNil(t, record.RefundID)
	assert.Equal(t, "42", *record.RefundID)

	updated, err := orders.ByID(context.Background(), orderID)
	require.NoError(t, err)
	require.NotNil(t, updated.RefundAmount)
	assert.Equal(t, 100.00, *updated.RefundAmount)
	assert.Equal(t, models.PaymentStatusRefunded, updated.PaymentStatus)
}
