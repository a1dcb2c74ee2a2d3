// Package extraction holds the provider registry and error model shared by the
// extraction service clients.
package extraction

import (
	"fmt"
	"net/http"

	"rateintake/internal/domain"
)

// maxBodyInError bounds how much of a response body an error carries.
const maxBodyInError = 512

// ServiceError is a failed call to the extraction service. Kind is
// domain.ErrTransport or domain.ErrUnprocessableDocument; errors.Is matches
// both Kind and the underlying Err.
type ServiceError struct {
	Kind       error
	Operation  string
	StatusCode int
	Body       string
	Err        error
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Operation, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Body != "" {
		msg += " [body: " + e.Body + "]"
	}
	return msg
}

func (e *ServiceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewTransportError reports that the service could not be reached or answered
// with a retryable status.
func NewTransportError(operation string, statusCode int, body []byte, err error) *ServiceError {
	return &ServiceError{
		Kind:       domain.ErrTransport,
		Operation:  operation,
		StatusCode: statusCode,
		Body:       Truncate(string(body), maxBodyInError),
		Err:        err,
	}
}

// NewUnprocessableError reports that the service was reached but could not
// produce a usable result for the document.
func NewUnprocessableError(operation string, statusCode int, body []byte, err error) *ServiceError {
	return &ServiceError{
		Kind:       domain.ErrUnprocessableDocument,
		Operation:  operation,
		StatusCode: statusCode,
		Body:       Truncate(string(body), maxBodyInError),
		Err:        err,
	}
}

// StatusError classifies a non-2xx response. 408, 429 and 5xx are transport
// failures; every other status is an unprocessable document.
func StatusError(operation string, statusCode int, body []byte) *ServiceError {
	err := fmt.Errorf("unexpected status %s", http.StatusText(statusCode))
	if IsTransientStatus(statusCode) {
		return NewTransportError(operation, statusCode, body, err)
	}
	return NewUnprocessableError(operation, statusCode, body, err)
}

// IsTransientStatus reports whether a status code means the service itself
// failed rather than the document.
func IsTransientStatus(statusCode int) bool {
	return statusCode == http.StatusRequestTimeout ||
		statusCode == http.StatusTooManyRequests ||
		statusCode >= http.StatusInternalServerError
}

// Truncate shortens s to at most maxLen bytes, marking the cut.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
