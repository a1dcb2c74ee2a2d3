package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration         = errors.New("invalid slot configuration")
	ErrTransport             = errors.New("extraction or persistence service unavailable")
	ErrUnprocessableDocument = errors.New("document could not be processed")
	ErrNotReady              = errors.New("session is not ready for confirmation")
	ErrNotFound              = errors.New("resource not found")
	ErrSessionNotFound       = errors.New("session not found")
	ErrUnknownField          = errors.New("unknown record field")
	ErrInvalidFieldValue     = errors.New("invalid record field value")
	ErrInvalidCellValue      = errors.New("invalid rate cell value")
	ErrConfirmInProgress     = errors.New("confirmation already in progress")
	ErrUnsupportedFileType   = errors.New("unsupported file type")
	ErrFileTooLarge          = errors.New("file exceeds maximum allowed size")
	ErrUnknownCategory       = errors.New("unknown document category")
)

// NotReadyError lists what is still missing before a session can be confirmed.
type NotReadyError struct {
	MissingFields []string
	MissingRates  bool
}

func (e *NotReadyError) Error() string {
	var parts []string
	if len(e.MissingFields) > 0 {
		parts = append(parts, "missing fields: "+strings.Join(e.MissingFields, ", "))
	}
	if e.MissingRates {
		parts = append(parts, "at least one rate row is required")
	}
	return fmt.Sprintf("%v (%s)", ErrNotReady, strings.Join(parts, "; "))
}

func (e *NotReadyError) Unwrap() error {
	return ErrNotReady
}
