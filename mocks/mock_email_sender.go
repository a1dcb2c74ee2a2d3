package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"rateintake/internal/port"
)

// MockEmailSender is a mock implementation of port.EmailSender.
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendConfirmationNotice(ctx context.Context, notice port.ConfirmationNotice) error {
	args := m.Called(ctx, notice)
	return args.Error(0)
}
