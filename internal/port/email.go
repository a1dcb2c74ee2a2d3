package port

import "context"

// ConfirmationNotice describes a confirmed onboarding for notification.
type ConfirmationNotice struct {
	SupplierName  string
	SupplierID    string
	RateCardID    string
	RowsProcessed int
	Recipients    []string
}

// EmailSender defines the contract for sending emails.
type EmailSender interface {
	SendConfirmationNotice(ctx context.Context, notice ConfirmationNotice) error
}
