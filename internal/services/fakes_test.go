// internal/services/fakes_test.go
package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/levaja/levaja-backend/internal/gateway"
	"github.com/levaja/levaja-backend/internal/models"
	"github.com/levaja/levaja-backend/internal/repository"
	"github.com/levaja/levaja-backend/internal/utils"
)

// In-memory repository fakes. They mirror the gorm implementations'
// contracts, including the fee-record upsert semantics.

type fakeEstablishmentRepo struct {
	mu   sync.Mutex
	data map[uuid.UUID]*models.Establishment
}

func newFakeEstablishmentRepo() *fakeEstablishmentRepo {
	return &fakeEstablishmentRepo{data: make(map[uuid.UUID]*models.Establishment)}
}

func (r *fakeEstablishmentRepo) ByID(_ context.Context, id uuid.UUID) (*models.Establishment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	est, ok := r.data[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *est
	return &copied, nil
}

func (r *fakeEstablishmentRepo) Save(_ context.Context, est *models.Establishment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *est
	r.data[est.ID] = &copied
	return nil
}

type fakeOrderRepo struct {
	mu   sync.Mutex
	data map[uuid.UUID]*models.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{data: make(map[uuid.UUID]*models.Order)}
}

func (r *fakeOrderRepo) ByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.data[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (r *fakeOrderRepo) ByPaymentID(_ context.Context, paymentID string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, order := range r.data {
		if order.PaymentID != nil && *order.PaymentID == paymentID {
			copied := *order
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeOrderRepo) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	copied := *order
	r.data[order.ID] = &copied
	return nil
}

func (r *fakeOrderRepo) Save(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *order
	r.data[order.ID] = &copied
	return nil
}

func (r *fakeOrderRepo) ListByBuyer(_ context.Context, buyerID uuid.UUID, _ utils.PaginationParams) ([]models.Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, order := range r.data {
		if order.BuyerID == buyerID {
			out = append(out, *order)
		}
	}
	return out, int64(len(out)), nil
}

type fakeFeeRecordRepo struct {
	mu      sync.Mutex
	data    map[string]*models.FeeRecord
	upserts int
}

func newFakeFeeRecordRepo() *fakeFeeRecordRepo {
	return &fakeFeeRecordRepo{data: make(map[string]*models.FeeRecord)}
}

func (r *fakeFeeRecordRepo) ByPaymentID(_ context.Context, paymentID string) (*models.FeeRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.data[paymentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

// Upsert mirrors the gorm OnConflict clause: on an existing payment_id only
// the mutable columns change, the numeric split fields stay as first written.
func (r *fakeFeeRecordRepo) Upsert(_ context.Context, record *models.FeeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++

	existing, ok := r.data[record.PaymentID]
	if !ok {
		copied := *record
		r.data[record.PaymentID] = &copied
		return nil
	}
	existing.Status = record.Status
	existing.OrderID = record.OrderID
	existing.RefundID = record.RefundID
	existing.RefundStatus = record.RefundStatus
	existing.RefundAmount = record.RefundAmount
	existing.RefundedAt = record.RefundedAt
	return nil
}

func (r *fakeFeeRecordRepo) Save(_ context.Context, record *models.FeeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *record
	r.data[record.PaymentID] = &copied
	return nil
}

type fakeNotificationRepo struct {
	mu   sync.Mutex
	rows []*models.Notification
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, n)
	return nil
}

type fakeUserRepo struct {
	mu   sync.Mutex
	data map[uuid.UUID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{data: make(map[uuid.UUID]*models.User)}
}

func (r *fakeUserRepo) ByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.data[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) ByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.data {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	copied := *user
	r.data[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Save(_ context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.data[user.ID] = &copied
	return nil
}

// fakeGateway implements PaymentGateway, RefundGateway and OAuthGateway with
// scriptable responses and call recording.
type fakeGateway struct {
	mu sync.Mutex

	createResp *gateway.Payment
	createErr  error
	createReqs []gateway.PaymentRequest

	getResp  *gateway.Payment
	getErr   error
	getQueue []getResult
	getCalls int

	refundResp     *gateway.Refund
	refundErr      error
	refundCalls    int
	pixRefundCalls int
	lastRefundAmt  *float64

	exchangeResp *gateway.TokenResponse
	exchangeErr  error

	refreshResp  *gateway.TokenResponse
	refreshErr   error
	refreshCalls int
	refreshGate  chan struct{}

	userResp *gateway.UserInfo
	userErr  error
}

type getResult struct {
	payment *gateway.Payment
	err     error
}

func (g *fakeGateway) CreatePayment(_ context.Context, req gateway.PaymentRequest, _ string) (*gateway.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createReqs = append(g.createReqs, req)
	return g.createResp, g.createErr
}

func (g *fakeGateway) GetPayment(_ context.Context, _ string) (*gateway.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.getCalls++
	if len(g.getQueue) > 0 {
		next := g.getQueue[0]
		g.getQueue = g.getQueue[1:]
		return next.payment, next.err
	}
	return g.getResp, g.getErr
}

func (g *fakeGateway) RefundPayment(_ context.Context, _ string, amount *float64, _ string) (*gateway.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refundCalls++
	g.lastRefundAmt = amount
	return g.refundResp, g.refundErr
}

func (g *fakeGateway) RefundPixPayment(_ context.Context, _ string, amount *float64, _ string) (*gateway.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pixRefundCalls++
	g.lastRefundAmt = amount
	return g.refundResp, g.refundErr
}

func (g *fakeGateway) AuthorizationURL(state string) string {
	return "https://gateway.test/authorization?state=" + state
}

func (g *fakeGateway) ExchangeCode(_ context.Context, _ string) (*gateway.TokenResponse, error) {
	return g.exchangeResp, g.exchangeErr
}

func (g *fakeGateway) RefreshToken(_ context.Context, _ string) (*gateway.TokenResponse, error) {
	g.mu.Lock()
	g.refreshCalls++
	gate := g.refreshGate
	g.mu.Unlock()
	if gate != nil {
		<-gate
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refreshResp, g.refreshErr
}

func (g *fakeGateway) CurrentUser(_ context.Context, _ string) (*gateway.UserInfo, error) {
	return g.userResp, g.userErr
}
