package httpapi_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rateintake/internal/config"
	"rateintake/internal/domain"
	"rateintake/internal/extraction/httpapi"
	"rateintake/internal/port"
)

func newTestClient(serverURL string) *httpapi.Client {
	return httpapi.NewClient(&config.ExtractionConfig{
		Provider:          httpapi.ProviderName,
		BaseURL:           serverURL,
		APIKey:            "test-extraction-key",
		TimeoutSecs:       5,
		RequestsPerSecond: 1000,
		Burst:             10,
		CardType:          "standard",
	}, nil)
}

func testFile() domain.FileRef {
	return domain.FileRef{
		ID:          uuid.New(),
		Name:        "msa.pdf",
		ContentType: "application/pdf",
		Content:     []byte("%PDF-1.4 test content"),
	}
}

func TestNew_RequiresBaseURL(t *testing.T) {
	c, err := httpapi.New(&config.ExtractionConfig{Provider: httpapi.ProviderName})
	assert.Nil(t, c)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestClient_ExtractDocument_BareObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extract-document-data", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-extraction-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "msa.pdf", body["fileName"])
		assert.Equal(t, "application/pdf", body["contentType"])
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 test content")), body["fileBase64"])
		assert.Equal(t, "master_agreement", body["documentType"])
		assert.Equal(t, "prov-1", body["providerId"])
		assert.Equal(t, "relationship", body["scope"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"provider":{"name":"Northwind"},"msaNumber":"MSA-1"}`))
	}))
	defer server.Close()

	res, err := newTestClient(server.URL).ExtractDocument(context.Background(), port.ExtractDocumentInput{
		File:         testFile(),
		DocumentType: domain.CategoryMasterAgreement,
		ProviderID:   "prov-1",
		Scope:        domain.ScopeRelationship,
	})
	require.NoError(t, err)
	assert.Equal(t, "MSA-1", res["msaNumber"])
	provider, ok := res["provider"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Northwind", provider["name"])
}

func TestClient_ExtractDocument_Envelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"name":"Acme"}}`))
	}))
	defer server.Close()

	res, err := newTestClient(server.URL).ExtractDocument(context.Background(), port.ExtractDocumentInput{File: testFile()})
	require.NoError(t, err)
	assert.Equal(t, domain.ExtractionResult{"name": "Acme"}, res)
}

func TestClient_ExtractDocument_EnvelopeFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"OCR_FAILED","message":"no readable text"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ExtractDocument(context.Background(), port.ExtractDocumentInput{File: testFile()})
	assert.ErrorIs(t, err, domain.ErrUnprocessableDocument)
	assert.Contains(t, err.Error(), "OCR_FAILED: no readable text")
}

func TestClient_ExtractDocument_NullData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":null}`))
	}))
	defer server.Close()

	res, err := newTestClient(server.URL).ExtractDocument(context.Background(), port.ExtractDocumentInput{File: testFile()})
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestClient_ExtractDocument_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ExtractDocument(context.Background(), port.ExtractDocumentInput{File: testFile()})
	assert.ErrorIs(t, err, domain.ErrUnprocessableDocument)
}

func TestClient_ExtractDocument_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnprocessableEntity, domain.ErrUnprocessableDocument},
		{http.StatusServiceUnavailable, domain.ErrTransport},
		{http.StatusTooManyRequests, domain.ErrTransport},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"failed"}`))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).ExtractDocument(context.Background(), port.ExtractDocumentInput{File: testFile()})
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, int32(1), calls.Load(), "the client never retries")
		})
	}
}

func TestClient_ExtractDocument_ServerUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).ExtractDocument(context.Background(), port.ExtractDocumentInput{File: testFile()})
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestClient_ExtractDocument_ContextDeadline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := newTestClient(server.URL).ExtractDocument(ctx, port.ExtractDocumentInput{File: testFile()})
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_ExtractRateCard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extract-rate-card", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "standard", body["cardType"])
		assert.Equal(t, "rate_card", body["documentType"])
		_, hasCustomer := body["customerId"]
		assert.False(t, hasCustomer, "empty customerId is omitted")

		_, _ = w.Write([]byte(`{"previewItems":[{"job_title":"Developer","region1_rate":95.5},{"job_title":"Analyst","region1_rate":"-"}],"estimatedTotal":40}`))
	}))
	defer server.Close()

	out, err := newTestClient(server.URL).ExtractRateCard(context.Background(), port.ExtractRateCardInput{
		File:         testFile(),
		DocumentType: domain.CategoryRateCard,
		ProviderID:   "prov-1",
	})
	require.NoError(t, err)
	require.Len(t, out.PreviewItems, 2)
	assert.Equal(t, 95.5, out.PreviewItems[0]["region1_rate"])
	assert.Equal(t, 40, out.EstimatedTotal)
}

func TestClient_ExtractRateCard_EstimatedTotalNeverBelowPreview(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "premium", body["cardType"])
		assert.Equal(t, "cust-9", body["customerId"])
		_, _ = w.Write([]byte(`{"previewItems":[{"a":1},{"a":2},{"a":3}]}`))
	}))
	defer server.Close()

	out, err := newTestClient(server.URL).ExtractRateCard(context.Background(), port.ExtractRateCardInput{
		File:       testFile(),
		CardType:   "premium",
		CustomerID: "cust-9",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, out.EstimatedTotal)
}

func TestClient_ProcessCompleteRateCard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/process-complete-rate-card", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		rel := body["relationship"].(map[string]any)
		assert.Equal(t, "Northwind", rel["name"])
		assert.Equal(t, []any{}, body["rates"], "nil rates are sent as an empty list")
		assert.Equal(t, float64(12), body["estimatedTotal"])
		assert.Equal(t, "rates.xlsx", body["rateCardFileName"])

		_, _ = w.Write([]byte(`{"success":true,"data":{"rateCardId":"rc-123","totalProcessed":12}}`))
	}))
	defer server.Close()

	out, err := newTestClient(server.URL).ProcessCompleteRateCard(context.Background(), port.ProcessRateCardInput{
		Relationship:     domain.NormalizedRecord{Name: "Northwind"},
		ProviderID:       "prov-1",
		EstimatedTotal:   12,
		RateCardFileName: "rates.xlsx",
	})
	require.NoError(t, err)
	assert.Equal(t, "rc-123", out.RateCardID)
	assert.Equal(t, 12, out.TotalProcessed)
}

func TestClient_ProcessCompleteRateCard_MissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"totalProcessed":3}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ProcessCompleteRateCard(context.Background(), port.ProcessRateCardInput{})
	assert.ErrorIs(t, err, domain.ErrUnprocessableDocument)
}

func TestClient_NoAuthHeaderWithoutKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	c := httpapi.NewClient(&config.ExtractionConfig{BaseURL: server.URL}, server.Client())
	_, err := c.ExtractDocument(context.Background(), port.ExtractDocumentInput{File: testFile()})
	require.NoError(t, err)
}
