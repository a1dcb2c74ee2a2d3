// Package fixture is an extraction strategy that answers with canned data
// instead of calling the extraction service. It backs local development and
// demos, selected with extraction.provider=fixture.
package fixture

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"rateintake/internal/config"
	"rateintake/internal/domain"
	"rateintake/internal/extraction"
	"rateintake/internal/port"
)

// ProviderName is the registry name of this strategy.
const ProviderName = "fixture"

// Client implements extraction.Client with deterministic canned responses.
type Client struct{}

// New is the ProviderFactory for the fixture strategy.
func New(_ *config.ExtractionConfig) (extraction.Client, error) {
	return &Client{}, nil
}

// ExtractDocument returns a canned result for the document type and scope.
func (c *Client) ExtractDocument(ctx context.Context, input port.ExtractDocumentInput) (domain.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, extraction.NewTransportError("extract-document-data", 0, nil, err)
	}

	if input.DocumentType == domain.CategoryAmendment {
		return amendmentResult(input.Scope), nil
	}
	if input.Scope == domain.ScopeDetails {
		return domain.ExtractionResult{
			"provider": map[string]any{
				"contactName":  "Jordan Lee",
				"contactEmail": "jordan.lee@northwind-staffing.example",
				"contactPhone": "+1 312 555 0142",
				"address":      "400 N Michigan Ave, Chicago, IL 60611",
				"taxId":        "36-4187723",
			},
			"masterAgreement": map[string]any{
				"paymentTerms":     "Net 45",
				"currency":         "USD",
				"noticePeriodDays": 60,
				"autoRenewal":      true,
			},
		}, nil
	}
	return domain.ExtractionResult{
		"provider": map[string]any{
			"name":             "Northwind Staffing LLC",
			"providerCategory": "staffing",
			"website":          "https://northwind-staffing.example",
		},
		"masterAgreement": map[string]any{
			"reference":     "MSA-2024-0117",
			"effectiveDate": "2024-03-01",
			"termEndDate":   "2027-02-28",
			"status":        "active",
		},
	}, nil
}

func amendmentResult(scope domain.ExtractionScope) domain.ExtractionResult {
	if scope == domain.ScopeDetails {
		return domain.ExtractionResult{
			"amendment": map[string]any{
				"paymentTerms": "Net 30",
			},
		}
	}
	return domain.ExtractionResult{
		"amendment": map[string]any{
			"number":        "AMD-02",
			"effectiveDate": "2025-01-15",
		},
	}
}

// ExtractRateCard returns a canned rate table. The region 3 column is all
// zeros, as real cards often carry an unused region.
func (c *Client) ExtractRateCard(ctx context.Context, input port.ExtractRateCardInput) (*port.RateCardExtraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, extraction.NewTransportError("extract-rate-card", 0, nil, err)
	}

	rows := []domain.RateRow{
		{"job_code": "DEV-1", "job_title": "Software Engineer I", "region1_rate": 85.0, "region2_rate": 78.5, "region3_rate": 0.0, "offshore_rate": 32.0},
		{"job_code": "DEV-2", "job_title": "Software Engineer II", "region1_rate": 105.0, "region2_rate": 96.25, "region3_rate": 0.0, "offshore_rate": 41.0},
		{"job_code": "PM-1", "job_title": "Project Manager", "region1_rate": 120.0, "region2_rate": 110.0, "region3_rate": "$0.00", "offshore_rate": nil},
		{"job_code": "QA-1", "job_title": "QA Analyst", "region1_rate": 70.0, "region2_rate": 64.75, "region3_rate": nil, "offshore_rate": 28.5},
	}
	if input.DocumentType == domain.CategoryAmendment {
		rows = rows[:2]
	}
	return &port.RateCardExtraction{PreviewItems: rows, EstimatedTotal: len(rows)}, nil
}

// ProcessCompleteRateCard pretends to persist the rate card.
func (c *Client) ProcessCompleteRateCard(ctx context.Context, input port.ProcessRateCardInput) (*port.ProcessRateCardOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, extraction.NewTransportError("process-complete-rate-card", 0, nil, err)
	}
	total := len(input.Rates)
	if input.EstimatedTotal > total {
		total = input.EstimatedTotal
	}
	return &port.ProcessRateCardOutput{
		RateCardID:     fmt.Sprintf("rc-%s", uuid.New().String()[:8]),
		TotalProcessed: total,
	}, nil
}
