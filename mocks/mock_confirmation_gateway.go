package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"rateintake/internal/domain"
	"rateintake/internal/port"
)

// MockConfirmationGateway is a mock implementation of port.ConfirmationGateway.
type MockConfirmationGateway struct {
	mock.Mock
}

func (m *MockConfirmationGateway) Submit(ctx context.Context, sub port.Submission) (*domain.ConfirmationResult, error) {
	args := m.Called(ctx, sub)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConfirmationResult), args.Error(1)
}
