package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"rateintake/internal/domain"
	"rateintake/internal/port"
)

// MockExtractionClient is a mock implementation of port.ExtractionClient and
// port.RateCardProcessor.
type MockExtractionClient struct {
	mock.Mock
}

func (m *MockExtractionClient) ExtractDocument(ctx context.Context, input port.ExtractDocumentInput) (domain.ExtractionResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.ExtractionResult), args.Error(1)
}

func (m *MockExtractionClient) ExtractRateCard(ctx context.Context, input port.ExtractRateCardInput) (*port.RateCardExtraction, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.RateCardExtraction), args.Error(1)
}

func (m *MockExtractionClient) ProcessCompleteRateCard(ctx context.Context, input port.ProcessRateCardInput) (*port.ProcessRateCardOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.ProcessRateCardOutput), args.Error(1)
}
