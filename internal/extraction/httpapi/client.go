// Package httpapi talks to the extraction service over JSON/HTTP.
package httpapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"rateintake/internal/config"
	"rateintake/internal/domain"
	"rateintake/internal/extraction"
	"rateintake/internal/logger"
	"rateintake/internal/port"
)

// ProviderName is the registry name of this strategy.
const ProviderName = "http"

const (
	opExtractDocument  = "extract-document-data"
	opExtractRateCard  = "extract-rate-card"
	opProcessRateCard  = "process-complete-rate-card"
	maxResponseBytes   = 32 << 20
	defaultCardType    = "standard"
	defaultRequestRate = rate.Limit(5)
)

// Client implements extraction.Client against the extraction service's HTTP
// endpoints. Every method performs exactly one request and never retries.
type Client struct {
	baseURL  string
	apiKey   string
	cardType string
	client   *http.Client
	limiter  *rate.Limiter
}

// New is the ProviderFactory for the http strategy.
func New(cfg *config.ExtractionConfig) (extraction.Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: extraction.base_url is required for the http provider", domain.ErrConfiguration)
	}
	return NewClient(cfg, nil), nil
}

// NewClient creates a Client. A nil httpClient gets one with cfg's timeout.
func NewClient(cfg *config.ExtractionConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout()}
	}
	limit := defaultRequestRate
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	cardType := cfg.CardType
	if cardType == "" {
		cardType = defaultCardType
	}
	return &Client{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		cardType: cardType,
		client:   httpClient,
		limiter:  rate.NewLimiter(limit, burst),
	}
}

type extractDocumentRequest struct {
	FileName     string `json:"fileName"`
	ContentType  string `json:"contentType"`
	FileBase64   string `json:"fileBase64"`
	DocumentType string `json:"documentType"`
	ProviderID   string `json:"providerId"`
	Scope        string `json:"scope"`
}

type extractRateCardRequest struct {
	FileName     string `json:"fileName"`
	ContentType  string `json:"contentType"`
	FileBase64   string `json:"fileBase64"`
	CardType     string `json:"cardType"`
	DocumentType string `json:"documentType"`
	ProviderID   string `json:"providerId"`
	CustomerID   string `json:"customerId,omitempty"`
}

type processRateCardRequest struct {
	Relationship     domain.NormalizedRecord `json:"relationship"`
	Rates            []domain.RateRow        `json:"rates"`
	ProviderID       string                  `json:"providerId"`
	CustomerID       string                  `json:"customerId"`
	EstimatedTotal   int                     `json:"estimatedTotal"`
	RateCardFileName string                  `json:"rateCardFileName"`
}

// ExtractDocument sends one document for field extraction.
func (c *Client) ExtractDocument(ctx context.Context, input port.ExtractDocumentInput) (domain.ExtractionResult, error) {
	req := extractDocumentRequest{
		FileName:     input.File.Name,
		ContentType:  input.File.ContentType,
		FileBase64:   base64.StdEncoding.EncodeToString(input.File.Content),
		DocumentType: string(input.DocumentType),
		ProviderID:   input.ProviderID,
		Scope:        string(input.Scope),
	}

	data, err := c.post(ctx, opExtractDocument, req)
	if err != nil {
		return nil, err
	}

	var result domain.ExtractionResult
	if err := json.Unmarshal(data, &result); err != nil || result == nil {
		return nil, extraction.NewUnprocessableError(opExtractDocument, http.StatusOK, data,
			fmt.Errorf("expected a JSON object: %w", errOrEmpty(err)))
	}
	return result, nil
}

// ExtractRateCard sends one document for tabular rate extraction. A card type
// on the input overrides the configured default.
func (c *Client) ExtractRateCard(ctx context.Context, input port.ExtractRateCardInput) (*port.RateCardExtraction, error) {
	cardType := input.CardType
	if cardType == "" {
		cardType = c.cardType
	}
	req := extractRateCardRequest{
		FileName:     input.File.Name,
		ContentType:  input.File.ContentType,
		FileBase64:   base64.StdEncoding.EncodeToString(input.File.Content),
		CardType:     cardType,
		DocumentType: string(input.DocumentType),
		ProviderID:   input.ProviderID,
		CustomerID:   input.CustomerID,
	}

	data, err := c.post(ctx, opExtractRateCard, req)
	if err != nil {
		return nil, err
	}

	var out port.RateCardExtraction
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, extraction.NewUnprocessableError(opExtractRateCard, http.StatusOK, data,
			fmt.Errorf("decoding rate card: %w", err))
	}
	if out.EstimatedTotal < len(out.PreviewItems) {
		out.EstimatedTotal = len(out.PreviewItems)
	}
	return &out, nil
}

// ProcessCompleteRateCard persists a confirmed relationship and its rates.
func (c *Client) ProcessCompleteRateCard(ctx context.Context, input port.ProcessRateCardInput) (*port.ProcessRateCardOutput, error) {
	rates := input.Rates
	if rates == nil {
		rates = []domain.RateRow{}
	}
	req := processRateCardRequest{
		Relationship:     input.Relationship,
		Rates:            rates,
		ProviderID:       input.ProviderID,
		CustomerID:       input.CustomerID,
		EstimatedTotal:   input.EstimatedTotal,
		RateCardFileName: input.RateCardFileName,
	}

	data, err := c.post(ctx, opProcessRateCard, req)
	if err != nil {
		return nil, err
	}

	var out port.ProcessRateCardOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, extraction.NewUnprocessableError(opProcessRateCard, http.StatusOK, data,
			fmt.Errorf("decoding rate card result: %w", err))
	}
	if out.RateCardID == "" {
		return nil, extraction.NewUnprocessableError(opProcessRateCard, http.StatusOK, data,
			errors.New("response has no rateCardId"))
	}
	return &out, nil
}

// post performs one throttled request and returns the response payload with
// any {success, data, error} envelope removed.
func (c *Client) post(ctx context.Context, op string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: marshaling request: %w", op, err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, extraction.NewTransportError(op, 0, nil, fmt.Errorf("waiting for rate limiter: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+op, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, extraction.NewTransportError(op, 0, nil, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, extraction.NewTransportError(op, resp.StatusCode, nil, fmt.Errorf("reading response: %w", err))
	}

	logger.FromContext(ctx).Debug("extractionClient.post: response received",
		"operation", op,
		"status", resp.StatusCode,
		"bytes", len(respBody),
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, extraction.StatusError(op, resp.StatusCode, respBody)
	}
	return unwrapEnvelope(op, resp.StatusCode, respBody)
}

// unwrapEnvelope accepts either a bare JSON object or a
// {success, data, error} envelope. success:false is an unprocessable document.
func unwrapEnvelope(op string, status int, body []byte) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, extraction.NewUnprocessableError(op, status, body, fmt.Errorf("invalid JSON response: %w", err))
	}

	rawSuccess, ok := fields["success"]
	if !ok {
		return body, nil
	}
	var success bool
	if err := json.Unmarshal(rawSuccess, &success); err != nil {
		// not an envelope, just a field named success
		return body, nil
	}
	if !success {
		return nil, extraction.NewUnprocessableError(op, status, body, fmt.Errorf("service reported failure: %s", envelopeMessage(fields["error"])))
	}

	data, ok := fields["data"]
	if !ok || string(data) == "null" {
		return []byte("{}"), nil
	}
	return data, nil
}

// envelopeMessage extracts a message from an envelope error that is either a
// string or an object with a message field.
func envelopeMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "no error detail"
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}
	var obj struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		if obj.Code != "" {
			return obj.Code + ": " + obj.Message
		}
		return obj.Message
	}
	return extraction.Truncate(string(raw), 200)
}

func errOrEmpty(err error) error {
	if err != nil {
		return err
	}
	return errors.New("empty result")
}
