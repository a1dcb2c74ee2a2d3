package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rateintake/internal/domain"
	"rateintake/internal/handler"
	"rateintake/internal/rateexport"
	"rateintake/internal/router"
	"rateintake/internal/service"
	"rateintake/internal/session"
	"rateintake/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newOnboardingRouter() (*gin.Engine, *mocks.MockOnboardingService) {
	mockSvc := new(mocks.MockOnboardingService)
	r := router.Setup(
		handler.NewOnboardingHandler(mockSvc),
		handler.NewHealthHandler(nil),
		[]string{"https://ops.example.com"},
	)
	return r, mockSvc
}

func serve(r *gin.Engine, method, path string, body []byte, contentType string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == nil {
		req, _ = http.NewRequest(method, path, http.NoBody)
	} else {
		req, _ = http.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", contentType)
	}
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) handler.APIResponse {
	t.Helper()
	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	resp := decode(t, w)
	require.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	return resp.Error.Code
}

func TestOnboardingHandler_CreateSession(t *testing.T) {
	r, mockSvc := newOnboardingRouter()
	id := uuid.New()

	mockSvc.On("CreateSession", mock.Anything, service.CreateSessionInput{
		ProviderID: "prov-1",
		CustomerID: "cust-1",
		Fields:     map[string]string{"name": "Acme"},
	}).Return(&session.Snapshot{ID: id, ProviderID: "prov-1"}, nil).Once()

	w := serve(r, http.MethodPost, "/api/v1/sessions",
		[]byte(`{"provider_id":" prov-1 ","customer_id":"cust-1","fields":{"name":"Acme"}}`), "application/json")

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decode(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, id.String(), resp.Data.(map[string]any)["id"])
	mockSvc.AssertExpectations(t)
}

func TestOnboardingHandler_CreateSession_Validation(t *testing.T) {
	r, mockSvc := newOnboardingRouter()

	w := serve(r, http.MethodPost, "/api/v1/sessions", []byte(`{"customer_id":"c"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, w))

	mockSvc.On("CreateSession", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("%w: \"shoe\"", domain.ErrUnknownField)).Once()
	w = serve(r, http.MethodPost, "/api/v1/sessions", []byte(`{"provider_id":"p","fields":{"shoe":"9"}}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNKNOWN_FIELD", errorCode(t, w))
}

func TestOnboardingHandler_GetSession(t *testing.T) {
	r, mockSvc := newOnboardingRouter()

	w := serve(r, http.MethodGet, "/api/v1/sessions/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", errorCode(t, w))

	missing := uuid.New()
	mockSvc.On("GetSession", mock.Anything, missing).Return(nil, domain.ErrSessionNotFound).Once()
	w = serve(r, http.MethodGet, "/api/v1/sessions/"+missing.String(), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", errorCode(t, w))

	id := uuid.New()
	mockSvc.On("GetSession", mock.Anything, id).Return(&session.Snapshot{ID: id, Processing: true}, nil).Once()
	w = serve(r, http.MethodGet, "/api/v1/sessions/"+id.String(), nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w).Data.(map[string]any)["processing"])
}

func TestOnboardingHandler_UploadDocument(t *testing.T) {
	r, mockSvc := newOnboardingRouter()
	id := uuid.New()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", "rates.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("job,rate\nEngineer,100\n"))
	require.NoError(t, mw.Close())

	mockSvc.On("UploadDocument", mock.Anything, mock.MatchedBy(func(in service.UploadDocumentInput) bool {
		return in.SessionID == id && in.Category == domain.CategoryRateCard && in.Header.Filename == "rates.csv"
	})).Return(&session.Snapshot{ID: id, Processing: true}, nil).Once()

	w := serve(r, http.MethodPost, "/api/v1/sessions/"+id.String()+"/slots/rate_card/files", body.Bytes(), mw.FormDataContentType())
	assert.Equal(t, http.StatusAccepted, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestOnboardingHandler_UploadDocument_Errors(t *testing.T) {
	r, mockSvc := newOnboardingRouter()
	id := uuid.New()

	w := serve(r, http.MethodPost, "/api/v1/sessions/"+id.String()+"/slots/purchase_order/files", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNKNOWN_CATEGORY", errorCode(t, w))

	w = serve(r, http.MethodPost, "/api/v1/sessions/"+id.String()+"/slots/rate_card/files", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "MISSING_FILE", errorCode(t, w))

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, _ := mw.CreateFormFile("file", "huge.pdf")
	_, _ = fw.Write([]byte("%PDF-1.7"))
	_ = mw.Close()
	mockSvc.On("UploadDocument", mock.Anything, mock.Anything).Return(nil, domain.ErrFileTooLarge).Once()
	w = serve(r, http.MethodPost, "/api/v1/sessions/"+id.String()+"/slots/master_agreement/files", body.Bytes(), mw.FormDataContentType())
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "FILE_TOO_LARGE", errorCode(t, w))
}

func TestOnboardingHandler_FileAddressing(t *testing.T) {
	r, mockSvc := newOnboardingRouter()
	id := uuid.New()
	base := "/api/v1/sessions/" + id.String() + "/slots/amendment/files/"

	w := serve(r, http.MethodDelete, base+"-1", nil, "")
	assert.Equal(t, "INVALID_INDEX", errorCode(t, w))

	mockSvc.On("RemoveDocument", mock.Anything, id, domain.CategoryAmendment, 1).Return(&session.Snapshot{ID: id}, nil).Once()
	w = serve(r, http.MethodDelete, base+"1", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	mockSvc.On("RetryDocument", mock.Anything, id, domain.CategoryAmendment, 0).Return(&session.Snapshot{ID: id}, nil).Once()
	w = serve(r, http.MethodPost, base+"0/retry", nil, "")
	assert.Equal(t, http.StatusAccepted, w.Code)

	mockSvc.On("DocumentURL", mock.Anything, id, domain.CategoryAmendment, 0).Return("https://archive.example/a.pdf", nil).Once()
	w = serve(r, http.MethodGet, base+"0/url", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://archive.example/a.pdf", decode(t, w).Data.(map[string]any)["download_url"])

	mockSvc.On("DocumentURL", mock.Anything, id, domain.CategoryAmendment, 3).Return("", domain.ErrNotFound).Once()
	w = serve(r, http.MethodGet, base+"3/url", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestOnboardingHandler_UpdateRecord(t *testing.T) {
	r, mockSvc := newOnboardingRouter()
	id := uuid.New()
	path := "/api/v1/sessions/" + id.String() + "/record"

	w := serve(r, http.MethodPatch, path, []byte(`{}`), "application/json")
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, w))

	mockSvc.On("UpdateRecord", mock.Anything, id, map[string]string{"auto_renewal": "maybe"}).
		Return(nil, fmt.Errorf("%w: auto_renewal", domain.ErrInvalidFieldValue)).Once()
	w = serve(r, http.MethodPatch, path, []byte(`{"fields":{"auto_renewal":"maybe"}}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FIELD_VALUE", errorCode(t, w))
}

func TestOnboardingHandler_RateEdits(t *testing.T) {
	r, mockSvc := newOnboardingRouter()
	id := uuid.New()
	base := "/api/v1/sessions/" + id.String() + "/rates"

	w := serve(r, http.MethodPut, base+"/x/us_rate", []byte(`{"value":"1"}`), "application/json")
	assert.Equal(t, "INVALID_ROW", errorCode(t, w))

	w = serve(r, http.MethodPut, base+"/0/us_rate", []byte(`{}`), "application/json")
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, w))

	mockSvc.On("EditRateCell", mock.Anything, id, 0, "us_rate", "").Return(&session.Snapshot{ID: id}, nil).Once()
	w = serve(r, http.MethodPut, base+"/0/us_rate", []byte(`{"value":""}`), "application/json")
	assert.Equal(t, http.StatusOK, w.Code)

	mockSvc.On("EditRateCell", mock.Anything, id, 0, "us_rate", "1.2.3").Return(nil, domain.ErrInvalidCellValue).Once()
	w = serve(r, http.MethodPut, base+"/0/us_rate", []byte(`{"value":"1.2.3"}`), "application/json")
	assert.Equal(t, "INVALID_CELL_VALUE", errorCode(t, w))

	mockSvc.On("AddRateRow", mock.Anything, id).Return(&session.Snapshot{ID: id}, nil).Once()
	w = serve(r, http.MethodPost, base, nil, "")
	assert.Equal(t, http.StatusCreated, w.Code)

	mockSvc.On("RemoveRateRow", mock.Anything, id, 2).Return(&session.Snapshot{ID: id}, nil).Once()
	w = serve(r, http.MethodDelete, base+"/2", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestOnboardingHandler_ExportRates(t *testing.T) {
	r, mockSvc := newOnboardingRouter()
	id := uuid.New()
	path := "/api/v1/sessions/" + id.String() + "/rates/export"

	w := serve(r, http.MethodGet, path+"?format=pdf", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FORMAT", errorCode(t, w))

	mockSvc.On("ExportRates", mock.Anything, id, rateexport.FormatXLSX).Return(&service.RateExport{
		FileName:    "Acme_rates_2026-01-02.xlsx",
		ContentType: rateexport.FormatXLSX.ContentType(),
		Data:        []byte("PK\x03\x04"),
	}, nil).Once()

	w = serve(r, http.MethodGet, path+"?format=xlsx", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, rateexport.FormatXLSX.ContentType(), w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Acme_rates_2026-01-02.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "PK\x03\x04", w.Body.String())
}

func TestOnboardingHandler_Confirm(t *testing.T) {
	r, mockSvc := newOnboardingRouter()
	id := uuid.New()
	path := "/api/v1/sessions/" + id.String() + "/confirm"

	mockSvc.On("Confirm", mock.Anything, id).Return(nil, &domain.NotReadyError{
		MissingFields: []string{"msa_reference"},
		MissingRates:  true,
	}).Once()
	w := serve(r, http.MethodPost, path, nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_READY", resp.Error.Code)
	details := resp.Error.Details.(map[string]any)
	assert.Equal(t, []any{"msa_reference"}, details["missing_fields"])
	assert.Equal(t, true, details["missing_rates"])

	mockSvc.On("Confirm", mock.Anything, id).Return(nil, domain.ErrConfirmInProgress).Once()
	w = serve(r, http.MethodPost, path, nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	supplierID := uuid.New()
	mockSvc.On("Confirm", mock.Anything, id).Return(&domain.ConfirmationResult{SupplierID: supplierID, RateCardID: "rc-1"}, nil).Once()
	w = serve(r, http.MethodPost, path, nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, supplierID.String(), decode(t, w).Data.(map[string]any)["supplier_id"])
}

func TestOnboardingHandler_Drafts(t *testing.T) {
	r, mockSvc := newOnboardingRouter()

	mockSvc.On("ListDrafts", mock.Anything, int64(20)).Return([]service.DraftSummary{{SessionID: uuid.New()}}, nil).Twice()
	w := serve(r, http.MethodGet, "/api/v1/drafts", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = serve(r, http.MethodGet, "/api/v1/drafts?limit=5000", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	mockSvc.On("ListDrafts", mock.Anything, int64(5)).Return([]service.DraftSummary{}, nil).Once()
	w = serve(r, http.MethodGet, "/api/v1/drafts?limit=5", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	id := uuid.New()
	mockSvc.On("ResumeDraft", mock.Anything, id).Return(nil, domain.ErrSessionNotFound).Once()
	w = serve(r, http.MethodPost, "/api/v1/drafts/"+id.String()+"/resume", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestOnboardingHandler_DiscardAndReset(t *testing.T) {
	r, mockSvc := newOnboardingRouter()
	id := uuid.New()

	mockSvc.On("DiscardSession", mock.Anything, id).Return(nil).Once()
	w := serve(r, http.MethodDelete, "/api/v1/sessions/"+id.String(), nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	mockSvc.On("ResetSession", mock.Anything, id).Return(nil, errors.New("boom")).Once()
	w = serve(r, http.MethodPost, "/api/v1/sessions/"+id.String()+"/reset", nil, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, w))
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrSessionNotFound, http.StatusNotFound, "SESSION_NOT_FOUND"},
		{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{&domain.NotReadyError{MissingRates: true}, http.StatusUnprocessableEntity, "NOT_READY"},
		{domain.ErrConfirmInProgress, http.StatusConflict, "CONFIRM_IN_PROGRESS"},
		{domain.ErrUnknownCategory, http.StatusBadRequest, "UNKNOWN_CATEGORY"},
		{domain.ErrUnsupportedFileType, http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE"},
		{domain.ErrUnprocessableDocument, http.StatusUnprocessableEntity, "UNPROCESSABLE_DOCUMENT"},
		{fmt.Errorf("confirming: %w", domain.ErrTransport), http.StatusBadGateway, "SERVICE_UNAVAILABLE"},
		{fmt.Errorf("%w: %w", domain.ErrConfiguration, domain.ErrUnknownCategory), http.StatusInternalServerError, "CONFIGURATION_ERROR"},
		{errors.New("unexpected"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code, msg := handler.MapDomainError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, msg)
		})
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func TestHealthHandler(t *testing.T) {
	healthy := router.Setup(handler.NewOnboardingHandler(new(mocks.MockOnboardingService)),
		handler.NewHealthHandler(map[string]handler.Pinger{"database": fakePinger{}}), nil)
	w := serve(healthy, http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w = serve(healthy, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	down := router.Setup(handler.NewOnboardingHandler(new(mocks.MockOnboardingService)),
		handler.NewHealthHandler(map[string]handler.Pinger{"redis": fakePinger{err: errors.New("refused")}}), nil)
	w = serve(down, http.MethodGet, "/readyz", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "redis not reachable"))
}
