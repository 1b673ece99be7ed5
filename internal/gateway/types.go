// internal/gateway/types.go
package gateway

import (
	"encoding/json"
	"time"
)

// PaymentMethod is a closed set of per-method payloads. Parsing happens at
// the HTTP boundary; business logic switches on the concrete type instead of
// ad hoc string fields.
type PaymentMethod interface {
	MethodID() string
}

type Pix struct {
	ExpiresAt *time.Time
}

func (Pix) MethodID() string { return "pix" }

type Card struct {
	Token        string
	Installments int
	IssuerID     string
	Brand        string
}

func (c Card) MethodID() string {
	if c.Brand != "" {
		return c.Brand
	}
	return "credit_card"
}

type Boleto struct {
	ExpiresAt *time.Time
}

func (Boleto) MethodID() string { return "bolbradesco" }

// Payer identifies the buyer on the gateway side.
type Payer struct {
	Email          string `json:"email"`
	FirstName      string `json:"first_name,omitempty"`
	LastName       string `json:"last_name,omitempty"`
	Identification struct {
		Type   string `json:"type,omitempty"`
		Number string `json:"number,omitempty"`
	} `json:"identification,omitempty"`
}

// Metadata binds a gateway payment back to marketplace entities. The order id
// may refer to an order that does not exist yet (PIX flow pre-allocates it).
type Metadata struct {
	EstablishmentID string `json:"store_id"`
	OrderID         string `json:"order_id,omitempty"`
}

// PaymentRequest is the ephemeral split-payment submission. It is never
// persisted; the canonical record always comes back from the gateway.
type PaymentRequest struct {
	Amount         float64
	Description    string
	Payer          Payer
	Method         PaymentMethod
	ApplicationFee float64
	Metadata       Metadata
}

// Payment is the canonical payment object fetched from the gateway. Amounts
// reported here are authoritative; webhook bodies are never trusted.
type Payment struct {
	ID                string     `json:"-"`
	Status            string     `json:"status"`
	StatusDetail      string     `json:"status_detail"`
	PaymentMethodID   string     `json:"payment_method_id"`
	PaymentTypeID     string     `json:"payment_type_id"`
	TransactionAmount float64    `json:"transaction_amount"`
	ApplicationFee    float64    `json:"application_fee"`
	DateOfExpiration  *time.Time `json:"date_of_expiration,omitempty"`
	DateApproved      *time.Time `json:"date_approved,omitempty"`
	Metadata          Metadata   `json:"metadata"`

	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code,omitempty"`
			QRCodeBase64 string `json:"qr_code_base64,omitempty"`
			TicketURL    string `json:"ticket_url,omitempty"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`

	TransactionDetails struct {
		ExternalResourceURL string `json:"external_resource_url,omitempty"`
	} `json:"transaction_details"`

	Refunds []Refund `json:"refunds,omitempty"`
}

// rawPayment exists because the gateway serializes the id as a number.
type rawPayment struct {
	Payment
	RawID json.Number `json:"id"`
}

// Refund is a gateway refund object.
type Refund struct {
	ID          json.Number `json:"id"`
	PaymentID   json.Number `json:"payment_id"`
	Amount      float64     `json:"amount"`
	Status      string      `json:"status"`
	DateCreated *time.Time  `json:"date_created,omitempty"`
}

// TokenResponse is the OAuth token endpoint response. RefreshToken may be
// absent when the gateway chooses not to rotate it.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	CollectorID  int64  `json:"user_id"`
	TokenType    string `json:"token_type"`
}

// UserInfo is the gateway "who am I" response used for liveness checks.
type UserInfo struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
}

// WebhookEvent is the untrusted webhook body: {type, data:{id}}.
type WebhookEvent struct {
	Type string `json:"type"`
	Data struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// Event is the closed tagged form of a webhook notification.
type Event interface {
	eventKind() string
}

type PaymentEvent struct{ PaymentID string }

func (PaymentEvent) eventKind() string { return "payment" }

type RefundEvent struct{ PaymentID string }

func (RefundEvent) eventKind() string { return "refund" }

type UnknownEvent struct{ Type string }

func (UnknownEvent) eventKind() string { return "unknown" }

// ParseEvent classifies a webhook body into a tagged event. Unknown types are
// preserved so the reconciler can acknowledge them without side effects.
func (e WebhookEvent) ParseEvent() Event {
	switch e.Type {
	case "payment":
		return PaymentEvent{PaymentID: e.Data.ID.String()}
	case "refund":
		return RefundEvent{PaymentID: e.Data.ID.String()}
	default:
		return UnknownEvent{Type: e.Type}
	}
}
