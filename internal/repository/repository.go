// internal/repository/repository.go
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/levaja/levaja-backend/internal/models"
	"github.com/levaja/levaja-backend/internal/utils"
)

// ErrNotFound is returned when a record does not exist. Gorm's sentinel is
// wrapped here so services never import gorm.
var ErrNotFound = errors.New("record not found")

// Repositories are injected as interfaces so each service is independently
// testable; gorm implementations live in this package.

type UserRepository interface {
	ByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Save(ctx context.Context, user *models.User) error
}

type EstablishmentRepository interface {
	ByID(ctx context.Context, id uuid.UUID) (*models.Establishment, error)
	Save(ctx context.Context, est *models.Establishment) error
}

type OrderRepository interface {
	ByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ByPaymentID(ctx context.Context, paymentID string) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	Save(ctx context.Context, order *models.Order) error
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, params utils.PaginationParams) ([]models.Order, int64, error)
}

// FeeRecordRepository is the split ledger. Upsert is keyed by payment_id and
// must leave numeric fields untouched on conflict; it is the serialization
// point for concurrent webhook and polling deliveries.
type FeeRecordRepository interface {
	ByPaymentID(ctx context.Context, paymentID string) (*models.FeeRecord, error)
	Upsert(ctx context.Context, record *models.FeeRecord) error
	Save(ctx context.Context, record *models.FeeRecord) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
}
