// internal/repository/gorm_repos.go
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/levaja/levaja-backend/internal/models"
	"github.com/levaja/levaja-backend/internal/utils"
)

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// --- users ---

type gormUserRepo struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &gormUserRepo{db: db} }

func (r *gormUserRepo) ByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &user, nil
}

func (r *gormUserRepo) ByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &user, nil
}

func (r *gormUserRepo) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *gormUserRepo) Save(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// --- establishments ---

type gormEstablishmentRepo struct{ db *gorm.DB }

func NewEstablishmentRepository(db *gorm.DB) EstablishmentRepository {
	return &gormEstablishmentRepo{db: db}
}

func (r *gormEstablishmentRepo) ByID(ctx context.Context, id uuid.UUID) (*models.Establishment, error) {
	var est models.Establishment
	if err := r.db.WithContext(ctx).First(&est, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &est, nil
}

func (r *gormEstablishmentRepo) Save(ctx context.Context, est *models.Establishment) error {
	return r.db.WithContext(ctx).Save(est).Error
}

// --- orders ---

type gormOrderRepo struct{ db *gorm.DB }

func NewOrderRepository(db *gorm.DB) OrderRepository { return &gormOrderRepo{db: db} }

func (r *gormOrderRepo) ByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &order, nil
}

func (r *gormOrderRepo) ByPaymentID(ctx context.Context, paymentID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "payment_id = ?", paymentID).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &order, nil
}

func (r *gormOrderRepo) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *gormOrderRepo) Save(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

func (r *gormOrderRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, params utils.PaginationParams) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("buyer_id = ?", buyerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	allowedSortFields := []string{"created_at", "total_amount", "status"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// --- fee records ---

type gormFeeRecordRepo struct{ db *gorm.DB }

func NewFeeRecordRepository(db *gorm.DB) FeeRecordRepository {
	return &gormFeeRecordRepo{db: db}
}

func (r *gormFeeRecordRepo) ByPaymentID(ctx context.Context, paymentID string) (*models.FeeRecord, error) {
	var record models.FeeRecord
	if err := r.db.WithContext(ctx).First(&record, "payment_id = ?", paymentID).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &record, nil
}

// Upsert inserts or updates by the payment_id unique key. Only mutable fields
// are touched on conflict; the recorded split amounts are written once and
// concurrent deliveries converge on the last canonical state.
func (r *gormFeeRecordRepo) Upsert(ctx context.Context, record *models.FeeRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "payment_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "order_id", "refund_id", "refund_status",
			"refund_amount", "refunded_at", "updated_at",
		}),
	}).Create(record).Error
}

func (r *gormFeeRecordRepo) Save(ctx context.Context, record *models.FeeRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// --- notifications ---

type gormNotificationRepo struct{ db *gorm.DB }

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &gormNotificationRepo{db: db}
}

func (r *gormNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}
