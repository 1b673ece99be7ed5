// internal/models/fee_record.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// FeeRecord is the split ledger entry for one gateway payment. The unique
// payment_id key is the idempotency boundary: duplicated webhook deliveries
// converge onto a single row, and the numeric split fields are written once.
type FeeRecord struct {
	BaseModel
	PaymentID         string        `json:"payment_id" gorm:"uniqueIndex;size:64;not null"`
	OrderID           *uuid.UUID    `json:"order_id,omitempty" gorm:"type:uuid;index"`
	EstablishmentID   uuid.UUID     `json:"establishment_id" gorm:"type:uuid;not null;index"`
	TransactionAmount float64       `json:"transaction_amount" gorm:"type:decimal(10,2);not null"`
	ApplicationFee    float64       `json:"application_fee" gorm:"type:decimal(10,2);not null"`
	EstablishmentAmt  float64       `json:"establishment_amount" gorm:"column:establishment_amount;type:decimal(10,2);not null"`
	FeePercent        float64       `json:"fee_percent" gorm:"type:decimal(5,2);not null"`
	PaymentMethod     PaymentMethod `json:"payment_method" gorm:"type:varchar(20)"`
	Status            PaymentStatus `json:"status" gorm:"type:varchar(20);index"`

	RefundID     *string    `json:"refund_id,omitempty" gorm:"size:64"`
	RefundStatus string     `json:"refund_status,omitempty" gorm:"size:32"`
	RefundAmount *float64   `json:"refund_amount,omitempty" gorm:"type:decimal(10,2)"`
	RefundedAt   *time.Time `json:"refunded_at,omitempty"`
}
