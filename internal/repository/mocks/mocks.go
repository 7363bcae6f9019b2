// Package mocks provides testify mocks for repository interfaces, used by
// service-layer unit tests.
package mocks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/voxline/core/internal/models"
)

// MockTenantRepository mocks repository.TenantRepository
type MockTenantRepository struct {
	mock.Mock
}

// NewMockTenantRepository creates a mock registered for cleanup assertions
func NewMockTenantRepository(t *testing.T) *MockTenantRepository {
	m := &MockTenantRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

func (m *MockTenantRepository) SetBalance(ctx context.Context, tenantID uuid.UUID, balanceCents int64) error {
	args := m.Called(ctx, tenantID, balanceCents)
	return args.Error(0)
}

// MockTransactionRepository mocks repository.TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

// NewMockTransactionRepository creates a mock registered for cleanup assertions
func NewMockTransactionRepository(t *testing.T) *MockTransactionRepository {
	m := &MockTransactionRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByIdempotencyKey(ctx context.Context, key string, direction models.TransactionDirection) (*models.Transaction, error) {
	args := m.Called(ctx, key, direction)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByExternalRef(ctx context.Context, externalRef string) (*models.Transaction, error) {
	args := m.Called(ctx, externalRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]*models.Transaction, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) SumDeltas(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

// MockAppointmentRepository mocks repository.AppointmentRepository
type MockAppointmentRepository struct {
	mock.Mock
}

// NewMockAppointmentRepository creates a mock registered for cleanup assertions
func NewMockAppointmentRepository(t *testing.T) *MockAppointmentRepository {
	m := &MockAppointmentRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAppointmentRepository) TryLockSlot(ctx context.Context, tenantID uuid.UUID, scheduledAt time.Time) (bool, error) {
	args := m.Called(ctx, tenantID, scheduledAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockAppointmentRepository) Create(ctx context.Context, appt *models.Appointment) error {
	args := m.Called(ctx, appt)
	return args.Error(0)
}

func (m *MockAppointmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) FindConfirmedAt(ctx context.Context, tenantID uuid.UUID, scheduledAt time.Time) (*models.Appointment, error) {
	args := m.Called(ctx, tenantID, scheduledAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) ListConfirmedBetween(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]time.Time, error) {
	args := m.Called(ctx, tenantID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]time.Time), args.Error(1)
}

func (m *MockAppointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.AppointmentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// MockAuditRepository mocks repository.AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

// NewMockAuditRepository creates a mock registered for cleanup assertions
func NewMockAuditRepository(t *testing.T) *MockAuditRepository {
	m := &MockAuditRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAuditRepository) Append(ctx context.Context, entry *models.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockMarkerRepository mocks repository.MarkerRepository
type MockMarkerRepository struct {
	mock.Mock
}

// NewMockMarkerRepository creates a mock registered for cleanup assertions
func NewMockMarkerRepository(t *testing.T) *MockMarkerRepository {
	m := &MockMarkerRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockMarkerRepository) Insert(ctx context.Context, externalEventID string) (bool, error) {
	args := m.Called(ctx, externalEventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMarkerRepository) Exists(ctx context.Context, externalEventID string) (bool, error) {
	args := m.Called(ctx, externalEventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMarkerRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockIdempotencyRepository mocks repository.IdempotencyRepository
type MockIdempotencyRepository struct {
	mock.Mock
}

// NewMockIdempotencyRepository creates a mock registered for cleanup assertions
func NewMockIdempotencyRepository(t *testing.T) *MockIdempotencyRepository {
	m := &MockIdempotencyRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockIdempotencyRepository) Get(ctx context.Context, key, requestPath string) (*models.IdempotencyKey, error) {
	args := m.Called(ctx, key, requestPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IdempotencyKey), args.Error(1)
}

func (m *MockIdempotencyRepository) Store(ctx context.Context, idemKey *models.IdempotencyKey) error {
	args := m.Called(ctx, idemKey)
	return args.Error(0)
}

// MockWebhookEventRepository mocks repository.WebhookEventRepository
type MockWebhookEventRepository struct {
	mock.Mock
}

// NewMockWebhookEventRepository creates a mock registered for cleanup assertions
func NewMockWebhookEventRepository(t *testing.T) *MockWebhookEventRepository {
	m := &MockWebhookEventRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockWebhookEventRepository) Enqueue(ctx context.Context, ev *models.WebhookEvent) (bool, error) {
	args := m.Called(ctx, ev)
	return args.Bool(0), args.Error(1)
}

func (m *MockWebhookEventRepository) ClaimDue(ctx context.Context, limit int) ([]*models.WebhookEvent, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WebhookEvent), args.Error(1)
}

func (m *MockWebhookEventRepository) FindByExternalID(ctx context.Context, externalEventID string) (*models.WebhookEvent, error) {
	args := m.Called(ctx, externalEventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WebhookEvent), args.Error(1)
}

func (m *MockWebhookEventRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockWebhookEventRepository) Reschedule(ctx context.Context, id uuid.UUID, nextAttemptAt time.Time, lastError string) error {
	args := m.Called(ctx, id, nextAttemptAt, lastError)
	return args.Error(0)
}

func (m *MockWebhookEventRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	args := m.Called(ctx, id, lastError)
	return args.Error(0)
}

func (m *MockWebhookEventRepository) MarkDeadLetter(ctx context.Context, id uuid.UUID, lastError string) error {
	args := m.Called(ctx, id, lastError)
	return args.Error(0)
}

func (m *MockWebhookEventRepository) RequeueStuck(ctx context.Context, maxAge time.Duration) (int64, error) {
	args := m.Called(ctx, maxAge)
	return args.Get(0).(int64), args.Error(1)
}
