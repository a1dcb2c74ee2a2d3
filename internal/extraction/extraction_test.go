package extraction_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rateintake/internal/config"
	"rateintake/internal/domain"
	"rateintake/internal/extraction"
	"rateintake/internal/port"
)

func TestFactory_RegisterAndCreate(t *testing.T) {
	extraction.Register("test-provider", func(cfg *config.ExtractionConfig) (extraction.Client, error) {
		return &stubClient{cardType: cfg.CardType}, nil
	})

	c, err := extraction.NewClient(&config.ExtractionConfig{Provider: "test-provider", CardType: "premium"})
	require.NoError(t, err)
	assert.Equal(t, "premium", c.(*stubClient).cardType)
	assert.Contains(t, extraction.Registered(), "test-provider")
}

func TestFactory_UnknownProvider(t *testing.T) {
	c, err := extraction.NewClient(&config.ExtractionConfig{Provider: "nonexistent-provider-xyz"})

	assert.Nil(t, c)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Contains(t, err.Error(), "unknown extraction provider")
}

func TestStatusError_Classification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, domain.ErrUnprocessableDocument},
		{http.StatusUnprocessableEntity, domain.ErrUnprocessableDocument},
		{http.StatusNotFound, domain.ErrUnprocessableDocument},
		{http.StatusRequestTimeout, domain.ErrTransport},
		{http.StatusTooManyRequests, domain.ErrTransport},
		{http.StatusInternalServerError, domain.ErrTransport},
		{http.StatusBadGateway, domain.ErrTransport},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := extraction.StatusError("extract-document-data", tt.status, []byte(`{"error":"x"}`))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.status, err.StatusCode)
		})
	}
}

func TestServiceError_UnwrapsKindAndCause(t *testing.T) {
	cause := context.DeadlineExceeded
	err := extraction.NewTransportError("extract-rate-card", 0, nil, cause)

	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, domain.ErrUnprocessableDocument)

	var svcErr *extraction.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "extract-rate-card", svcErr.Operation)
}

func TestServiceError_TruncatesBody(t *testing.T) {
	body := []byte(strings.Repeat("x", 2000))
	err := extraction.NewUnprocessableError("extract-document-data", 422, body, nil)

	assert.LessOrEqual(t, len(err.Body), 515)
	assert.True(t, strings.HasSuffix(err.Body, "..."))
	assert.Contains(t, err.Error(), "status 422")
}

// stubClient is a minimal Client for testing the factory.
type stubClient struct {
	cardType string
}

func (s *stubClient) ExtractDocument(context.Context, port.ExtractDocumentInput) (domain.ExtractionResult, error) {
	return domain.ExtractionResult{}, nil
}

func (s *stubClient) ExtractRateCard(context.Context, port.ExtractRateCardInput) (*port.RateCardExtraction, error) {
	return &port.RateCardExtraction{}, nil
}

func (s *stubClient) ProcessCompleteRateCard(context.Context, port.ProcessRateCardInput) (*port.ProcessRateCardOutput, error) {
	return &port.ProcessRateCardOutput{RateCardID: "rc-stub"}, nil
}
