// internal/services/payment_service.go
package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/levaja/levaja-backend/internal/config"
	"github.com/levaja/levaja-backend/internal/gateway"
	"github.com/levaja/levaja-backend/internal/models"
	"github.com/levaja/levaja-backend/internal/repository"
	"github.com/levaja/levaja-backend/internal/utils"
)

// PaymentGateway is the slice of the gateway client the orchestrator and
// reconciler consume.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, req gateway.PaymentRequest, idempotencyKey string) (*gateway.Payment, error)
	GetPayment(ctx context.Context, id string) (*gateway.Payment, error)
}

// PaymentService builds split-payment requests for PIX, card and boleto and
// normalizes the gateway's heterogeneous per-method responses into one
// result shape.
type PaymentService struct {
	establishments repository.EstablishmentRepository
	gateway        PaymentGateway
	config         *config.Config
}

type PayerInfo struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Document  string `json:"document,omitempty" validate:"omitempty,cpf_cnpj"`
}

type CreatePixPaymentRequest struct {
	EstablishmentID uuid.UUID  `json:"establishment_id" validate:"required"`
	OrderID         uuid.UUID  `json:"order_id" validate:"required"`
	Amount          float64    `json:"amount" validate:"required,gt=0"`
	Description     string     `json:"description,omitempty"`
	Payer           PayerInfo  `json:"payer" validate:"required"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

type CreateCardPaymentRequest struct {
	EstablishmentID uuid.UUID `json:"establishment_id" validate:"required"`
	OrderID         uuid.UUID `json:"order_id" validate:"required"`
	Amount          float64   `json:"amount" validate:"required,gt=0"`
	Description     string    `json:"description,omitempty"`
	Payer           PayerInfo `json:"payer" validate:"required"`
	Token           string    `json:"token" validate:"required"`
	Installments    int       `json:"installments" validate:"omitempty,min=1"`
	IssuerID        string    `json:"issuer_id,omitempty"`
	Brand           string    `json:"brand,omitempty"`
}

type CreateBoletoPaymentRequest struct {
	EstablishmentID uuid.UUID  `json:"establishment_id" validate:"required"`
	OrderID         uuid.UUID  `json:"order_id" validate:"required"`
	Amount          float64    `json:"amount" validate:"required,gt=0"`
	Description     string     `json:"description,omitempty"`
	Payer           PayerInfo  `json:"payer" validate:"required"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

// PaymentResult is the unified response for every method. Method-specific
// fields are populated only when the gateway returned them.
type PaymentResult struct {
	PaymentID           string     `json:"payment_id"`
	Status              string     `json:"status"`
	StatusDetail        string     `json:"status_detail,omitempty"`
	Method              string     `json:"method"`
	TransactionAmount   float64    `json:"transaction_amount"`
	ApplicationFee      float64    `json:"application_fee"`
	EstablishmentAmount float64    `json:"establishment_amount"`
	Installments        int        `json:"installments,omitempty"`
	QRCode              string     `json:"qr_code,omitempty"`
	QRCodeBase64        string     `json:"qr_code_base64,omitempty"`
	TicketURL           string     `json:"ticket_url,omitempty"`
	Expiration          *time.Time `json:"expiration,omitempty"`
}

func NewPaymentService(establishments repository.EstablishmentRepository, gw PaymentGateway, cfg *config.Config) *PaymentService {
	return &PaymentService{
		establishments: establishments,
		gateway:        gw,
		config:         cfg,
	}
}

// ComputeSplit derives the platform fee and the establishment's remainder.
// The remainder is the exact complement so both sides always sum back to the
// transaction amount.
func ComputeSplit(amount, feePercent float64) (applicationFee, establishmentAmount float64, err error) {
	if feePercent <= 0 || feePercent > 100 {
		return 0, 0, ErrInvalidFeeConfiguration
	}
	applicationFee = round2(amount * feePercent / 100)
	establishmentAmount = round2(amount - applicationFee)
	return applicationFee, establishmentAmount, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s *PaymentService) CreatePixPayment(ctx context.Context, req *CreatePixPaymentRequest) (*PaymentResult, error) {
	expires := req.ExpiresAt
	if expires == nil {
		t := time.Now().Add(time.Duration(s.config.Payment.PixExpirationMinutes) * time.Minute)
		expires = &t
	}
	return s.create(ctx, req.EstablishmentID, req.OrderID, req.Amount, req.Description, req.Payer,
		gateway.Pix{ExpiresAt: expires})
}

func (s *PaymentService) CreateCardPayment(ctx context.Context, req *CreateCardPaymentRequest) (*PaymentResult, error) {
	if req.Token == "" {
		return nil, ErrCardTokenRequired
	}
	installments := req.Installments
	if installments < 1 {
		installments = 1
	}
	return s.create(ctx, req.EstablishmentID, req.OrderID, req.Amount, req.Description, req.Payer,
		gateway.Card{
			Token:        req.Token,
			Installments: installments,
			IssuerID:     req.IssuerID,
			Brand:        req.Brand,
		})
}

func (s *PaymentService) CreateBoletoPayment(ctx context.Context, req *CreateBoletoPaymentRequest) (*PaymentResult, error) {
	expires := req.ExpiresAt
	if expires == nil {
		t := time.Now().AddDate(0, 0, s.config.Payment.BoletoExpirationDays)
		expires = &t
	}
	return s.create(ctx, req.EstablishmentID, req.OrderID, req.Amount, req.Description, req.Payer,
		gateway.Boleto{ExpiresAt: expires})
}

func (s *PaymentService) create(ctx context.Context, establishmentID, orderID uuid.UUID, amount float64, description string, payer PayerInfo, method gateway.PaymentMethod) (*PaymentResult, error) {
	est, err := s.establishments.ByID(ctx, establishmentID)
	if err != nil {
		return nil, err
	}
	if !est.Connected {
		return nil, ErrEstablishmentNotConnected
	}

	applicationFee, establishmentAmount, err := ComputeSplit(amount, est.FeePercent)
	if err != nil {
		return nil, err
	}

	gwPayer := gateway.Payer{
		Email:     payer.Email,
		FirstName: payer.FirstName,
		LastName:  payer.LastName,
	}
	if payer.Document != "" {
		gwPayer.Identification.Type = documentType(payer.Document)
		gwPayer.Identification.Number = payer.Document
	}

	idempotencyKey, err := newIdempotencyKey(establishmentID)
	if err != nil {
		return nil, err
	}

	payment, err := s.gateway.CreatePayment(ctx, gateway.PaymentRequest{
		Amount:         amount,
		Description:    description,
		Payer:          gwPayer,
		Method:         method,
		ApplicationFee: applicationFee,
		Metadata: gateway.Metadata{
			EstablishmentID: establishmentID.String(),
			OrderID:         orderID.String(),
		},
	}, idempotencyKey)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"payment_id":       payment.ID,
		"establishment_id": establishmentID,
		"order_id":         orderID,
		"method":           method.MethodID(),
		"amount":           amount,
		"application_fee":  applicationFee,
	}).Info("Split payment created")

	return toResult(payment, method, applicationFee, establishmentAmount), nil
}

// GetPayment fetches the canonical payment for a single client poll.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID string) (*gateway.Payment, error) {
	return s.gateway.GetPayment(ctx, paymentID)
}

// WaitForApproval polls the canonical payment on a fixed interval until it
// reaches a terminal status or the hard expiration window elapses. The loop
// is bounded by the caller's context plus the configured window; when the
// window closes with the payment still pending, ErrPaymentExpired is
// returned, the reservation is dropped, and no order is created.
func (s *PaymentService) WaitForApproval(ctx context.Context, paymentID string) (*gateway.Payment, error) {
	interval := time.Duration(s.config.Payment.PixPollIntervalSecs) * time.Second
	window := time.Duration(s.config.Payment.PixPollWindowMinutes) * time.Minute

	ctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		payment, err := s.gateway.GetPayment(ctx, paymentID)
		if err != nil {
			if !gateway.IsRetryable(err) {
				return nil, err
			}
			// transient fetch failures keep polling until the window closes
		} else {
			switch models.PaymentStatus(payment.Status) {
			case models.PaymentStatusApproved:
				return payment, nil
			case models.PaymentStatusRejected, models.PaymentStatusCancelled:
				return payment, ErrPaymentNotApproved
			}
			if payment.DateOfExpiration != nil && time.Now().After(*payment.DateOfExpiration) {
				return payment, ErrPaymentExpired
			}
		}

		select {
		case <-ctx.Done():
			logrus.WithField("payment_id", paymentID).Info("PIX approval wait expired")
			return nil, ErrPaymentExpired
		case <-ticker.C:
		}
	}
}

// newIdempotencyKey derives a key from the establishment, the current time
// and a random nonce so client retries after timeouts cannot double-charge.
func newIdempotencyKey(establishmentID uuid.UUID) (string, error) {
	nonce, err := utils.GenerateRandomString(8)
	if err != nil {
		return "", fmt.Errorf("failed to generate idempotency nonce: %w", err)
	}
	return fmt.Sprintf("%s-%d-%s", establishmentID, time.Now().UnixNano(), nonce), nil
}

func toResult(p *gateway.Payment, method gateway.PaymentMethod, applicationFee, establishmentAmount float64) *PaymentResult {
	result := &PaymentResult{
		PaymentID:           p.ID,
		Status:              p.Status,
		StatusDetail:        p.StatusDetail,
		Method:              method.MethodID(),
		TransactionAmount:   p.TransactionAmount,
		ApplicationFee:      applicationFee,
		EstablishmentAmount: establishmentAmount,
		Expiration:          p.DateOfExpiration,
	}

	switch m := method.(type) {
	case gateway.Pix:
		result.QRCode = p.PointOfInteraction.TransactionData.QRCode
		result.QRCodeBase64 = p.PointOfInteraction.TransactionData.QRCodeBase64
		result.TicketURL = p.PointOfInteraction.TransactionData.TicketURL
	case gateway.Card:
		result.Installments = m.Installments
	case gateway.Boleto:
		result.TicketURL = p.TransactionDetails.ExternalResourceURL
	}
	return result
}

func documentType(document string) string {
	digits := 0
	for _, r := range document {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits == 14 {
		return "CNPJ"
	}
	return "CPF"
}
