package port

import (
	"context"

	"rateintake/internal/domain"
)

// ExtractDocumentInput carries one file plus category/context metadata for
// document-level field extraction.
type ExtractDocumentInput struct {
	File         domain.FileRef
	DocumentType domain.DocumentCategory
	ProviderID   string
	Scope        domain.ExtractionScope
}

// ExtractRateCardInput carries one file for tabular rate extraction.
type ExtractRateCardInput struct {
	File         domain.FileRef
	CardType     string
	DocumentType domain.DocumentCategory
	ProviderID   string
	CustomerID   string
}

// RateCardExtraction is the result of a rate extraction. PreviewItems may be a
// bounded preview of EstimatedTotal rows.
type RateCardExtraction struct {
	PreviewItems   []domain.RateRow `json:"previewItems"`
	EstimatedTotal int              `json:"estimatedTotal"`
}

// ExtractionClient sends a single file to the external extraction service.
// Each call performs exactly one network request and never retries; failures
// wrap domain.ErrTransport or domain.ErrUnprocessableDocument.
type ExtractionClient interface {
	ExtractDocument(ctx context.Context, input ExtractDocumentInput) (domain.ExtractionResult, error)
	ExtractRateCard(ctx context.Context, input ExtractRateCardInput) (*RateCardExtraction, error)
}

// ProcessRateCardInput is the confirmed relationship plus all rate rows.
type ProcessRateCardInput struct {
	Relationship     domain.NormalizedRecord
	Rates            []domain.RateRow
	ProviderID       string
	CustomerID       string
	EstimatedTotal   int
	RateCardFileName string
}

// ProcessRateCardOutput identifies the persisted rate card.
type ProcessRateCardOutput struct {
	RateCardID     string `json:"rateCardId"`
	TotalProcessed int    `json:"totalProcessed"`
}

// RateCardProcessor performs the final persistence of a confirmed rate card
// on the extraction service side.
type RateCardProcessor interface {
	ProcessCompleteRateCard(ctx context.Context, input ProcessRateCardInput) (*ProcessRateCardOutput, error)
}
