// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserType string

const (
	UserTypeBuyer   UserType = "buyer"
	UserTypeCourier UserType = "courier"
	UserTypeAdmin   UserType = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

// OrderStatus follows the lifecycle pendente -> preparo -> entregue, with
// cancelado reachable from pendente or preparo only.
type OrderStatus string

const (
	OrderStatusPendente  OrderStatus = "pendente"
	OrderStatusPreparo   OrderStatus = "preparo"
	OrderStatusEntregue  OrderStatus = "entregue"
	OrderStatusCancelado OrderStatus = "cancelado"
)

// Next returns the single legal forward transition, if any.
func (s OrderStatus) Next() (OrderStatus, bool) {
	switch s {
	case OrderStatusPendente:
		return OrderStatusPreparo, true
	case OrderStatusPreparo:
		return OrderStatusEntregue, true
	default:
		return "", false
	}
}

// Terminal reports whether no transition may leave the status.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusEntregue || s == OrderStatusCancelado
}

// Cancellable reports whether the cancel transition is legal.
func (s OrderStatus) Cancellable() bool {
	return s == OrderStatusPendente || s == OrderStatusPreparo
}

// Gateway-reported payment statuses. Only PaymentStatusApproved carries
// behavior in this codebase; the rest mirror the gateway contract.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusApproved   PaymentStatus = "approved"
	PaymentStatusInProcess  PaymentStatus = "in_process"
	PaymentStatusRejected   PaymentStatus = "rejected"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusChargeback PaymentStatus = "charged_back"
)

type PaymentMethod string

const (
	PaymentMethodPix    PaymentMethod = "pix"
	PaymentMethodCard   PaymentMethod = "credit_card"
	PaymentMethodBoleto PaymentMethod = "boleto"
	PaymentMethodCash   PaymentMethod = "dinheiro"
)

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)
