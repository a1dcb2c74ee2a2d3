package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rateintake/internal/domain"
	"rateintake/internal/logger"
	"rateintake/internal/rateexport"
	"rateintake/internal/service"
)

// OnboardingHandler handles onboarding session endpoints.
type OnboardingHandler struct {
	onboardingService service.OnboardingService
}

// NewOnboardingHandler creates a new OnboardingHandler.
func NewOnboardingHandler(onboardingService service.OnboardingService) *OnboardingHandler {
	return &OnboardingHandler{onboardingService: onboardingService}
}

type createSessionRequest struct {
	ProviderID string            `json:"provider_id" binding:"required"`
	CustomerID string            `json:"customer_id"`
	Fields     map[string]string `json:"fields"`
}

type updateRecordRequest struct {
	Fields map[string]string `json:"fields" binding:"required"`
}

type editCellRequest struct {
	Value *string `json:"value" binding:"required"`
}

// CreateSession handles POST /api/v1/sessions
func (h *OnboardingHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "provider_id is required")
		return
	}

	snap, err := h.onboardingService.CreateSession(c.Request.Context(), service.CreateSessionInput{
		ProviderID: strings.TrimSpace(req.ProviderID),
		CustomerID: strings.TrimSpace(req.CustomerID),
		Fields:     req.Fields,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, snap)
}

// GetSession handles GET /api/v1/sessions/:id
func (h *OnboardingHandler) GetSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	snap, err := h.onboardingService.GetSession(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, snap)
}

// DiscardSession handles DELETE /api/v1/sessions/:id
func (h *OnboardingHandler) DiscardSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := h.onboardingService.DiscardSession(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"message": "session discarded"})
}

// ResetSession handles POST /api/v1/sessions/:id/reset
func (h *OnboardingHandler) ResetSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	snap, err := h.onboardingService.ResetSession(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, snap)
}

// UploadDocument handles POST /api/v1/sessions/:id/slots/:category/files.
// Extraction continues after the response; poll the session for progress.
func (h *OnboardingHandler) UploadDocument(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	category, ok := slotCategory(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	snap, err := h.onboardingService.UploadDocument(c.Request.Context(), service.UploadDocumentInput{
		SessionID: id,
		Category:  category,
		File:      file,
		Header:    header,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondAccepted(c, snap)
}

// RemoveDocument handles DELETE /api/v1/sessions/:id/slots/:category/files/:index
func (h *OnboardingHandler) RemoveDocument(c *gin.Context) {
	id, category, index, ok := fileAddress(c)
	if !ok {
		return
	}
	snap, err := h.onboardingService.RemoveDocument(c.Request.Context(), id, category, index)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, snap)
}

// RetryDocument handles POST /api/v1/sessions/:id/slots/:category/files/:index/retry
func (h *OnboardingHandler) RetryDocument(c *gin.Context) {
	id, category, index, ok := fileAddress(c)
	if !ok {
		return
	}
	snap, err := h.onboardingService.RetryDocument(c.Request.Context(), id, category, index)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondAccepted(c, snap)
}

// DocumentURL handles GET /api/v1/sessions/:id/slots/:category/files/:index/url
func (h *OnboardingHandler) DocumentURL(c *gin.Context) {
	id, category, index, ok := fileAddress(c)
	if !ok {
		return
	}
	url, err := h.onboardingService.DocumentURL(c.Request.Context(), id, category, index)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"download_url": url})
}

// UpdateRecord handles PATCH /api/v1/sessions/:id/record
func (h *OnboardingHandler) UpdateRecord(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req updateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "fields is required")
		return
	}
	snap, err := h.onboardingService.UpdateRecord(c.Request.Context(), id, req.Fields)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, snap)
}

// EditRateCell handles PUT /api/v1/sessions/:id/rates/:row/:column
func (h *OnboardingHandler) EditRateCell(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	row, ok := rowIndex(c)
	if !ok {
		return
	}
	var req editCellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "value is required")
		return
	}
	snap, err := h.onboardingService.EditRateCell(c.Request.Context(), id, row, c.Param("column"), *req.Value)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, snap)
}

// AddRateRow handles POST /api/v1/sessions/:id/rates
func (h *OnboardingHandler) AddRateRow(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	snap, err := h.onboardingService.AddRateRow(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, snap)
}

// RemoveRateRow handles DELETE /api/v1/sessions/:id/rates/:row
func (h *OnboardingHandler) RemoveRateRow(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	row, ok := rowIndex(c)
	if !ok {
		return
	}
	snap, err := h.onboardingService.RemoveRateRow(c.Request.Context(), id, row)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, snap)
}

// ExportRates handles GET /api/v1/sessions/:id/rates/export?format=csv|xlsx
func (h *OnboardingHandler) ExportRates(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	format, err := rateexport.ParseFormat(c.Query("format"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be csv or xlsx")
		return
	}

	out, err := h.onboardingService.ExportRates(c.Request.Context(), id, format)
	if err != nil {
		HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.FileName))
	c.Data(http.StatusOK, out.ContentType, out.Data)
}

// Confirm handles POST /api/v1/sessions/:id/confirm
func (h *OnboardingHandler) Confirm(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	res, err := h.onboardingService.Confirm(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, res)
}

// ListDrafts handles GET /api/v1/drafts?limit=N
func (h *OnboardingHandler) ListDrafts(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "20"), 10, 64)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	drafts, err := h.onboardingService.ListDrafts(c.Request.Context(), limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, drafts)
}

// ResumeDraft handles POST /api/v1/drafts/:id/resume
func (h *OnboardingHandler) ResumeDraft(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	snap, err := h.onboardingService.ResumeDraft(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, snap)
}

// sessionID parses the :id path parameter and tags the request context with
// it. Returns false if the ID is invalid (error response already written).
func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid session ID")
		return uuid.Nil, false
	}
	c.Request = c.Request.WithContext(logger.WithSessionID(c.Request.Context(), id.String()))
	return id, true
}

func slotCategory(c *gin.Context) (domain.DocumentCategory, bool) {
	category := domain.DocumentCategory(c.Param("category"))
	if !category.IsValid() {
		RespondError(c, http.StatusBadRequest, "UNKNOWN_CATEGORY", "unknown document category")
		return "", false
	}
	return category, true
}

func fileAddress(c *gin.Context) (uuid.UUID, domain.DocumentCategory, int, bool) {
	id, ok := sessionID(c)
	if !ok {
		return uuid.Nil, "", 0, false
	}
	category, ok := slotCategory(c)
	if !ok {
		return uuid.Nil, "", 0, false
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		RespondError(c, http.StatusBadRequest, "INVALID_INDEX", "file index must be a non-negative integer")
		return uuid.Nil, "", 0, false
	}
	return id, category, index, true
}

func rowIndex(c *gin.Context) (int, bool) {
	row, err := strconv.Atoi(c.Param("row"))
	if err != nil || row < 0 {
		RespondError(c, http.StatusBadRequest, "INVALID_ROW", "row must be a non-negative integer")
		return 0, false
	}
	return row, true
}
