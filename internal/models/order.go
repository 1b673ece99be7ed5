// internal/models/order.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Order is created before payment for cash-on-delivery and only after
// gateway approval for PIX/card. Rows are never deleted.
type Order struct {
	BaseModel
	BuyerID         uuid.UUID   `json:"buyer_id" gorm:"type:uuid;not null;index"`
	EstablishmentID uuid.UUID   `json:"establishment_id" gorm:"type:uuid;not null;index"`
	Status          OrderStatus `json:"status" gorm:"type:varchar(20);default:'pendente';index"`
	Items           JSONB       `json:"items" gorm:"type:jsonb"`
	DeliveryAddress JSONB       `json:"delivery_address" gorm:"type:jsonb"`
	TotalAmount     float64     `json:"total_amount" gorm:"type:decimal(10,2);not null"`

	PaymentID            *string       `json:"payment_id,omitempty" gorm:"size:64;index"`
	PaymentStatus        PaymentStatus `json:"payment_status,omitempty" gorm:"type:varchar(20)"`
	PaymentMethod        PaymentMethod `json:"payment_method,omitempty" gorm:"type:varchar(20)"`
	ApplicationFeeAmount *float64      `json:"application_fee_amount,omitempty" gorm:"type:decimal(10,2)"`
	EstablishmentAmount  *float64      `json:"establishment_amount,omitempty" gorm:"type:decimal(10,2)"`

	RefundID     *string    `json:"refund_id,omitempty" gorm:"size:64"`
	RefundStatus string     `json:"refund_status,omitempty" gorm:"size:32"`
	RefundAmount *float64   `json:"refund_amount,omitempty" gorm:"type:decimal(10,2)"`
	RefundDate   *time.Time `json:"refund_date,omitempty"`
	// RefundError records a failed refund attempt during cancellation so the
	// order is not left stuck; operators follow up manually.
	RefundError string `json:"refund_error,omitempty" gorm:"type:text"`

	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`

	// Relationships
	Buyer         User          `json:"buyer,omitempty" gorm:"foreignKey:BuyerID"`
	Establishment Establishment `json:"establishment,omitempty" gorm:"foreignKey:EstablishmentID"`
}
