package port

import (
	"context"

	"github.com/google/uuid"

	"rateintake/internal/domain"
)

// SubmittedDocument is an archived upload handed over at confirmation.
type SubmittedDocument struct {
	Category domain.DocumentCategory `json:"category"`
	File     domain.FileRef          `json:"file"`
}

// Submission is the immutable snapshot of a session taken at confirmation.
type Submission struct {
	SessionID        uuid.UUID
	ProviderID       string
	CustomerID       string
	Record           domain.NormalizedRecord
	Rates            []domain.RateRow
	EstimatedTotal   int
	RateCardFileName string
	Documents        []SubmittedDocument
}

// ConfirmationGateway persists a confirmed session. Submitting the same
// session twice must not create a second supplier.
type ConfirmationGateway interface {
	Submit(ctx context.Context, sub Submission) (*domain.ConfirmationResult, error)
}
