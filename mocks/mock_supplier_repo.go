package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"rateintake/internal/domain"
)

// MockSupplierRepo is a mock implementation of port.SupplierRepository.
type MockSupplierRepo struct {
	mock.Mock
}

func (m *MockSupplierRepo) UpsertBySession(ctx context.Context, supplier *domain.Supplier) error {
	args := m.Called(ctx, supplier)
	return args.Error(0)
}

func (m *MockSupplierRepo) AttachRateCard(ctx context.Context, supplierID uuid.UUID, rateCardID string, rowsProcessed int) error {
	args := m.Called(ctx, supplierID, rateCardID, rowsProcessed)
	return args.Error(0)
}

func (m *MockSupplierRepo) AddDocuments(ctx context.Context, docs []domain.SupplierDocument) error {
	args := m.Called(ctx, docs)
	return args.Error(0)
}
