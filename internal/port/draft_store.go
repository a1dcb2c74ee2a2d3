package port

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Draft is a saved snapshot of an unconfirmed session. State is the
// session's own encoding; SupplierName and ProviderCategory are copied out
// for listings.
type Draft struct {
	SessionID        uuid.UUID       `json:"session_id"`
	ProviderID       string          `json:"provider_id"`
	CustomerID       string          `json:"customer_id"`
	SupplierName     string          `json:"supplier_name,omitempty"`
	ProviderCategory string          `json:"provider_category"`
	State            json.RawMessage `json:"state"`
	SavedAt          time.Time       `json:"saved_at"`
}

// DraftStore persists session drafts so editing can resume after a restart.
// Get returns domain.ErrNotFound when no draft exists.
type DraftStore interface {
	Save(ctx context.Context, draft *Draft) error
	Get(ctx context.Context, sessionID uuid.UUID) (*Draft, error)
	Delete(ctx context.Context, sessionID uuid.UUID) error
	// Recent lists session IDs with a saved draft, newest first.
	Recent(ctx context.Context, limit int64) ([]uuid.UUID, error)
}
