// internal/services/payment_service_test.go
package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levaja/levaja-backend/internal/config"
	"github.com/levaja/levaja-backend/internal/gateway"
	"github.com/levaja/levaja-backend/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		Payment: config.PaymentConfig{
			DefaultFeePercent:    12.0,
			PixExpirationMinutes: 10,
			BoletoExpirationDays: 3,
			PixPollIntervalSecs:  1,
			PixPollWindowMinutes: 10,
		},
	}
}

func connectedEstablishment(repo *fakeEstablishmentRepo, feePercent float64) *models.Establishment {
	est := &models.Establishment{
		Name:       "Cantina da Praça",
		Slug:       "cantina-da-praca",
		Connected:  true,
		FeePercent: feePercent,
	}
	est.ID = uuid.New()
	repo.Save(context.Background(), est)
	return est
}

func TestComputeSplit(t *testing.T) {
	fee, seller, err := ComputeSplit(100.00, 12.0)
	require.NoError(t, err)
	assert.Equal(t, 12.00, fee)
	assert.Equal(t, 88.00, seller)

	fee, seller, err = ComputeSplit(33.33, 10.0)
	require.NoError(t, err)
	assert.Equal(t, 3.33, fee)
	assert.Equal(t, 30.00, seller)
	assert.Equal(t, 33.33, fee+seller)

	// the two sides always sum back to the amount
	for _, amount := range []float64{0.01, 9.99, 57.41, 123.45} {
		fee, seller, err := ComputeSplit(amount, 12.5)
		require.NoError(t, err)
		assert.InDelta(t, amount, fee+seller, 1e-9)
	}
}

func TestComputeSplitRejectsBadFee(t *testing.T) {
	for _, percent := range []float64{0, -1, 100.01} {
		_, _, err := ComputeSplit(100, percent)
		assert.ErrorIs(t, err, ErrInvalidFeeConfiguration)
	}

	_, _, err := ComputeSplit(100, 100)
	assert.NoError(t, err)
}

func TestCreatePixPaymentAppliesSplitAndDefaults(t *testing.T) {
	ests := newFakeEstablishmentRepo()
	est := connectedEstablishment(ests, 12.0)

	gw := &fakeGateway{createResp: &gateway.Payment{
		ID:                "pay-1",
		Status:            "pending",
		TransactionAmount: 100.00,
		ApplicationFee:    12.00,
	}}
	svc := NewPaymentService(ests, gw, testConfig())

	orderID := uuid.New()
	result, err := svc.CreatePixPayment(context.Background(), &CreatePixPaymentRequest{
		EstablishmentID: est.ID,
		OrderID:         orderID,
		Amount:          100.00,
		Payer:           PayerInfo{Email: "buyer@example.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, "pay-1", result.PaymentID)
	assert.Equal(t, 12.00, result.ApplicationFee)
	assert.Equal(t, 88.00, result.EstablishmentAmount)
	assert.Equal(t, "pix", result.Method)

	require.Len(t, gw.createReqs, 1)
	req := gw.createReqs[0]
	assert.Equal(t, 12.00, req.ApplicationFee)
	assert.Equal(t, est.ID.String(), req.Metadata.EstablishmentID)
	assert.Equal(t, orderID.String(), req.Metadata.OrderID)

	pix, ok := req.Method.(gateway.Pix)
	require.True(t, ok)
	require.NotNil(t, pix.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), *pix.ExpiresAt, 5*time.Second)
}

func TestCreatePaymentRequiresConnectedEstablishment(t *testing.T) {
	ests := newFakeEstablishmentRepo()
	est := connectedEstablishment(ests, 12.0)
	est.Connected = false
	ests.Save(context.Background(), est)

	svc := NewPaymentService(ests, &fakeGateway{}, testConfig())
	_, err := svc.CreatePixPayment(context.Background(), &CreatePixPaymentRequest{
		EstablishmentID: est.ID,
		OrderID:         uuid.New(),
		Amount:          50.00,
		Payer:           PayerInfo{Email: "buyer@example.com"},
	})
	assert.ErrorIs(t, err, ErrEstablishmentNotConnected)
}

func TestCreateCardPaymentDefaultsInstallments(t *testing.T) {
	ests := newFakeEstablishmentRepo()
	est := connectedEstablishment(ests, 10.0)

	gw := &fakeGateway{createResp: &gateway.Payment{ID: "pay-2", Status: "approved", TransactionAmount: 80.00}}
	svc := NewPaymentService(ests, gw, testConfig())

	result, err := svc.CreateCardPayment(context.Background(), &CreateCardPaymentRequest{
		EstablishmentID: est.ID,
		OrderID:         uuid.New(),
		Amount:          80.00,
		Payer:           PayerInfo{Email: "buyer@example.com"},
		Token:           "tok_abc",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Installments)

	card, ok := gw.createReqs[0].Method.(gateway.Card)
	require.True(t, ok)
	assert.Equal(t, "tok_abc", card.Token)
	assert.Equal(t, 1, card.Installments)
}

func TestCreateCardPaymentRequiresToken(t *testing.T) {
	svc := NewPaymentService(newFakeEstablishmentRepo(), &fakeGateway{}, testConfig())
	_, err := svc.CreateCardPayment(context.Background(), &CreateCardPaymentRequest{
		EstablishmentID: uuid.New(),
		OrderID:         uuid.New(),
		Amount:          80.00,
		Payer:           PayerInfo{Email: "buyer@example.com"},
	})
	assert.ErrorIs(t, err, ErrCardTokenRequired)
}

func TestCreateBoletoPaymentDefaultsExpiration(t *testing.T) {
	ests := newFakeEstablishmentRepo()
	est := connectedEstablishment(ests, 12.0)

	gw := &fakeGateway{createResp: &gateway.Payment{ID: "pay-3", Status: "pending", TransactionAmount: 45.00}}
	svc := NewPaymentService(ests, gw, testConfig())

	_, err := svc.CreateBoletoPayment(context.Background(), &CreateBoletoPaymentRequest{
		EstablishmentID: est.ID,
		OrderID:         uuid.New(),
		Amount:          45.00,
		Payer:           PayerInfo{Email: "buyer@example.com", Document: "12345678901"},
	})
	require.NoError(t, err)

	boleto, ok := gw.createReqs[0].Method.(gateway.Boleto)
	require.True(t, ok)
	require.NotNil(t, boleto.ExpiresAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 3), *boleto.ExpiresAt, 5*time.Second)

	assert.Equal(t, "CPF", gw.createReqs[0].Payer.Identification.Type)
}

func TestWaitForApprovalReturnsOnApproved(t *testing.T) {
	gw := &fakeGateway{getQueue: []getResult{
		{payment: &gateway.Payment{ID: "pay-4", Status: "pending"}},
		{payment: &gateway.Payment{ID: "pay-4", Status: "approved"}},
	}}
	cfg := testConfig()
	svc := NewPaymentService(newFakeEstablishmentRepo(), gw, cfg)

	payment, err := svc.WaitForApproval(context.Background(), "pay-4")
	require.NoError(t, err)
	assert.Equal(t, "approved", payment.Status)
	assert.Equal(t, 2, gw.getCalls)
}

func TestWaitForApprovalRejectedPayment(t *testing.T) {
	gw := &fakeGateway{getResp: &gateway.Payment{ID: "pay-5", Status: "rejected"}}
	svc := NewPaymentService(newFakeEstablishmentRepo(), gw, testConfig())

	payment, err := svc.WaitForApproval(context.Background(), "pay-5")
	assert.ErrorIs(t, err, ErrPaymentNotApproved)
	require.NotNil(t, payment)
	assert.Equal(t, "rejected", payment.Status)
}

func TestWaitForApprovalWindowExpires(t *testing.T) {
	gw := &fakeGateway{getResp: &gateway.Payment{ID: "pay-6", Status: "pending"}}
	cfg := testConfig()
	cfg.Payment.PixPollWindowMinutes = 0 // window closes immediately
	svc := NewPaymentService(newFakeEstablishmentRepo(), gw, cfg)

	_, err := svc.WaitForApproval(context.Background(), "pay-6")
	assert.ErrorIs(t, err, ErrPaymentExpired)
}

func TestWaitForApprovalStopsOnNonRetryableError(t *testing.T) {
	gw := &fakeGateway{getErr: &gateway.Error{StatusCode: 404, Message: "not found"}}
	svc := NewPaymentService(newFakeEstablishmentRepo(), gw, testConfig())

	_, err := svc.WaitForApproval(context.Background(), "missing")
	var gerr *gateway.Error
	assert.ErrorAs(t, err, &gerr)
	assert.Equal(t, 1, gw.getCalls)
}
