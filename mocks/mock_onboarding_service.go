package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"rateintake/internal/domain"
	"rateintake/internal/rateexport"
	"rateintake/internal/service"
	"rateintake/internal/session"
)

// MockOnboardingService is a mock implementation of service.OnboardingService.
type MockOnboardingService struct {
	mock.Mock
}

func (m *MockOnboardingService) snapshot(args mock.Arguments) (*session.Snapshot, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*session.Snapshot), args.Error(1)
}

func (m *MockOnboardingService) CreateSession(ctx context.Context, input service.CreateSessionInput) (*session.Snapshot, error) {
	return m.snapshot(m.Called(ctx, input))
}

func (m *MockOnboardingService) GetSession(ctx context.Context, id uuid.UUID) (*session.Snapshot, error) {
	return m.snapshot(m.Called(ctx, id))
}

func (m *MockOnboardingService) DiscardSession(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOnboardingService) ResetSession(ctx context.Context, id uuid.UUID) (*session.Snapshot, error) {
	return m.snapshot(m.Called(ctx, id))
}

func (m *MockOnboardingService) UploadDocument(ctx context.Context, input service.UploadDocumentInput) (*session.Snapshot, error) {
	return m.snapshot(m.Called(ctx, input))
}

func (m *MockOnboardingService) RemoveDocument(ctx context.Context, id uuid.UUID, category domain.DocumentCategory, index int) (*session.Snapshot, error) {
	return m.snapshot(m.Called(ctx, id, category, index))
}

func (m *MockOnboardingService) RetryDocument(ctx context.Context, id uuid.UUID, category domain.DocumentCategory, index int) (*session.Snapshot, error) {
	return m.snapshot(m.Called(ctx, id, category, index))
}

func (m *MockOnboardingService) DocumentURL(ctx context.Context, id uuid.UUID, category domain.DocumentCategory, index int) (string, error) {
	args := m.Called(ctx, id, category, index)
	return args.String(0), args.Error(1)
}

func (m *MockOnboardingService) UpdateRecord(ctx context.Context, id uuid.UUID, fields map[string]string) (*session.Snapshot, error) {
	return m.snapshot(m.Called(ctx, id, fields))
}

func (m *MockOnboardingService) EditRateCell(ctx context.Context, id uuid.UUID, row int, column, value string) (*session.Snapshot, error) {
	return m.snapshot(m.Called(ctx, id, row, column, value))
}

func (m *MockOnboardingService) AddRateRow(ctx context.Context, id uuid.UUID) (*session.Snapshot, error) {
	return m.snapshot(m.Called(ctx, id))
}

func (m *MockOnboardingService) RemoveRateRow(ctx context.Context, id uuid.UUID, row int) (*session.Snapshot, error) {
	return m.snapshot(m.Called(ctx, id, row))
}

func (m *MockOnboardingService) ExportRates(ctx context.Context, id uuid.UUID, format rateexport.Format) (*service.RateExport, error) {
	args := m.Called(ctx, id, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RateExport), args.Error(1)
}

func (m *MockOnboardingService) Confirm(ctx context.Context, id uuid.UUID) (*domain.ConfirmationResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConfirmationResult), args.Error(1)
}

func (m *MockOnboardingService) ResumeDraft(ctx context.Context, id uuid.UUID) (*session.Snapshot, error) {
	return m.snapshot(m.Called(ctx, id))
}

func (m *MockOnboardingService) ListDrafts(ctx context.Context, limit int64) ([]service.DraftSummary, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.DraftSummary), args.Error(1)
}

func (m *MockOnboardingService) Shutdown(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
