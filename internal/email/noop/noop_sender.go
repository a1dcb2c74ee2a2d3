package noop

import (
	"context"
	"log/slog"
	"strings"

	"rateintake/internal/email"
	"rateintake/internal/port"
)

type noopSender struct {
	frontendURL string
}

// NewNoopSender creates a no-op EmailSender that logs notices instead of
// sending them.
func NewNoopSender(frontendURL string) port.EmailSender {
	return &noopSender{frontendURL: frontendURL}
}

func (s *noopSender) SendConfirmationNotice(_ context.Context, notice port.ConfirmationNotice) error {
	msg := email.RenderConfirmationNotice(notice, s.frontendURL)
	slog.Info("[NOOP EMAIL] confirmation notice",
		"to", strings.Join(notice.Recipients, ","),
		"subject", msg.Subject,
		"supplier_id", notice.SupplierID,
	)
	return nil
}
