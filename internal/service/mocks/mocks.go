// Package mocks provides testify mocks for service interfaces, used by
// handler-layer unit tests.
package mocks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/voxline/core/internal/models"
	"github.com/voxline/core/internal/service"
)

// MockLedger mocks service.Ledger
type MockLedger struct {
	mock.Mock
}

// NewMockLedger creates a mock registered for cleanup assertions
func NewMockLedger(t *testing.T) *MockLedger {
	m := &MockLedger{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockLedger) Authorize(ctx context.Context, tenantID uuid.UUID, amountCents int64) (*service.AuthorizationResult, error) {
	args := m.Called(ctx, tenantID, amountCents)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AuthorizationResult), args.Error(1)
}

func (m *MockLedger) Debit(ctx context.Context, req service.LedgerRequest) (*models.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockLedger) Credit(ctx context.Context, req service.LedgerRequest) (*models.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockLedger) Balance(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tenant), args.Error(1)
}

// MockBooker mocks service.Booker
type MockBooker struct {
	mock.Mock
}

// NewMockBooker creates a mock registered for cleanup assertions
func NewMockBooker(t *testing.T) *MockBooker {
	m := &MockBooker{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockBooker) Book(ctx context.Context, req service.BookingRequest) (*models.Appointment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *MockBooker) Cancel(ctx context.Context, tenantID, bookingID uuid.UUID) (*models.Appointment, error) {
	args := m.Called(ctx, tenantID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *MockBooker) Reschedule(ctx context.Context, tenantID, bookingID uuid.UUID, newTime time.Time) (*models.Appointment, error) {
	args := m.Called(ctx, tenantID, bookingID, newTime)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *MockBooker) GetBooking(ctx context.Context, tenantID, bookingID uuid.UUID) (*models.Appointment, error) {
	args := m.Called(ctx, tenantID, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

// MockIngestor mocks service.Ingestor
type MockIngestor struct {
	mock.Mock
}

// NewMockIngestor creates a mock registered for cleanup assertions
func NewMockIngestor(t *testing.T) *MockIngestor {
	m := &MockIngestor{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockIngestor) Ingest(ctx context.Context, provider string, body []byte, signature string) (*service.IngestResult, error) {
	args := m.Called(ctx, provider, body, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestResult), args.Error(1)
}

// MockHealthChecker mocks service.HealthChecker
type MockHealthChecker struct {
	mock.Mock
}

// NewMockHealthChecker creates a mock registered for cleanup assertions
func NewMockHealthChecker(t *testing.T) *MockHealthChecker {
	m := &MockHealthChecker{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockHealthChecker) PingContext(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
