package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rateintake/internal/domain"
	"rateintake/internal/logger"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// NotReadyDetails lists what blocks confirmation.
type NotReadyDetails struct {
	MissingFields []string `json:"missing_fields"`
	MissingRates  bool     `json:"missing_rates"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondAccepted sends a 202 success response for work that continues in
// the background.
func RespondAccepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, APIResponse{Success: true, Data: data})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "SESSION_NOT_FOUND", "session not found"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrNotReady):
		return http.StatusUnprocessableEntity, "NOT_READY", "session is not ready for confirmation"
	case errors.Is(err, domain.ErrConfirmInProgress):
		return http.StatusConflict, "CONFIRM_IN_PROGRESS", "confirmation already in progress"
	case errors.Is(err, domain.ErrUnknownCategory):
		return http.StatusBadRequest, "UNKNOWN_CATEGORY", "unknown document category"
	case errors.Is(err, domain.ErrUnknownField):
		return http.StatusBadRequest, "UNKNOWN_FIELD", "unknown record field"
	case errors.Is(err, domain.ErrInvalidFieldValue):
		return http.StatusBadRequest, "INVALID_FIELD_VALUE", "invalid record field value"
	case errors.Is(err, domain.ErrInvalidCellValue):
		return http.StatusBadRequest, "INVALID_CELL_VALUE", "rate cell value is not a number"
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; allowed: pdf, jpg, png, xlsx, docx, csv"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrUnprocessableDocument):
		return http.StatusUnprocessableEntity, "UNPROCESSABLE_DOCUMENT", "document could not be processed"
	case errors.Is(err, domain.ErrTransport):
		return http.StatusBadGateway, "SERVICE_UNAVAILABLE", "extraction or persistence service unavailable; retry later"
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusInternalServerError, "CONFIGURATION_ERROR", "invalid slot configuration"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		logger.FromContext(c.Request.Context()).Error("handler.HandleError: request failed",
			"status", status, "error", err)
	}

	apiErr := &APIError{Code: code, Message: msg}
	var notReady *domain.NotReadyError
	if errors.As(err, &notReady) {
		apiErr.Details = NotReadyDetails{
			MissingFields: notReady.MissingFields,
			MissingRates:  notReady.MissingRates,
		}
	}
	c.JSON(status, APIResponse{Success: false, Error: apiErr})
}
