package port

import (
	"context"

	"github.com/google/uuid"

	"rateintake/internal/domain"
)

// SupplierRepository defines the contract for confirmed supplier persistence.
type SupplierRepository interface {
	// UpsertBySession creates the supplier for a session or updates the one a
	// previous, failed confirmation attempt already created. A rate card that
	// attempt attached is loaded into supplier.
	UpsertBySession(ctx context.Context, supplier *domain.Supplier) error
	AttachRateCard(ctx context.Context, supplierID uuid.UUID, rateCardID string, rowsProcessed int) error
	AddDocuments(ctx context.Context, docs []domain.SupplierDocument) error
}
