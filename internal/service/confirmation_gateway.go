package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"rateintake/internal/domain"
	"rateintake/internal/logger"
	"rateintake/internal/port"
)

type confirmationGateway struct {
	supplierRepo port.SupplierRepository
	processor    port.RateCardProcessor
	timeout      time.Duration

	// rate cards processed for a session but not yet attached to its supplier
	mu        sync.Mutex
	processed map[uuid.UUID]port.ProcessRateCardOutput
}

// NewConfirmationGateway creates the gateway that persists confirmed sessions:
// it upserts the supplier, has the extraction service process the complete
// rate card, then attaches the rate card and archived documents to the
// supplier. Each external call is bounded by timeout.
func NewConfirmationGateway(
	supplierRepo port.SupplierRepository,
	processor port.RateCardProcessor,
	timeout time.Duration,
) port.ConfirmationGateway {
	return &confirmationGateway{
		supplierRepo: supplierRepo,
		processor:    processor,
		timeout:      timeout,
		processed:    make(map[uuid.UUID]port.ProcessRateCardOutput),
	}
}

func (g *confirmationGateway) Submit(ctx context.Context, sub port.Submission) (*domain.ConfirmationResult, error) {
	log := logger.FromContext(ctx).With("session_id", sub.SessionID)

	supplier := &domain.Supplier{
		ID:               uuid.New(),
		SessionID:        sub.SessionID,
		ProviderID:       sub.ProviderID,
		CustomerID:       sub.CustomerID,
		NormalizedRecord: sub.Record,
	}
	// retries of the same session resolve to the supplier created first
	if err := g.supplierRepo.UpsertBySession(ctx, supplier); err != nil {
		log.Error("confirmationGateway.Submit: failed to upsert supplier", "error", err)
		return nil, persistenceError("upserting supplier", err)
	}

	var out *port.ProcessRateCardOutput
	if supplier.RateCardID != nil && *supplier.RateCardID != "" {
		log.Info("confirmationGateway.Submit: rate card already attached, skipping processing",
			"supplier_id", supplier.ID, "rate_card_id", *supplier.RateCardID)
		out = &port.ProcessRateCardOutput{RateCardID: *supplier.RateCardID, TotalProcessed: supplier.RowsProcessed}
	} else {
		var err error
		if out, err = g.processRateCard(ctx, sub); err != nil {
			log.Error("confirmationGateway.Submit: rate card processing failed", "supplier_id", supplier.ID, "error", err)
			return nil, fmt.Errorf("processing rate card: %w", err)
		}
		if err := g.supplierRepo.AttachRateCard(ctx, supplier.ID, out.RateCardID, out.TotalProcessed); err != nil {
			log.Error("confirmationGateway.Submit: failed to attach rate card", "supplier_id", supplier.ID, "error", err)
			return nil, persistenceError("attaching rate card", err)
		}
	}
	g.mu.Lock()
	delete(g.processed, sub.SessionID)
	g.mu.Unlock()

	if docs := supplierDocuments(supplier.ID, sub.Documents); len(docs) > 0 {
		if err := g.supplierRepo.AddDocuments(ctx, docs); err != nil {
			log.Error("confirmationGateway.Submit: failed to record documents", "supplier_id", supplier.ID, "error", err)
			return nil, persistenceError("recording documents", err)
		}
	}

	log.Info("confirmationGateway.Submit: session confirmed",
		"supplier_id", supplier.ID,
		"rate_card_id", out.RateCardID,
		"rows_processed", out.TotalProcessed,
	)
	return &domain.ConfirmationResult{
		SupplierID:    supplier.ID,
		RateCardID:    out.RateCardID,
		RowsProcessed: out.TotalProcessed,
	}, nil
}

// processRateCard calls the processor at most once per session: a result
// whose attachment failed is reused by the next attempt.
func (g *confirmationGateway) processRateCard(ctx context.Context, sub port.Submission) (*port.ProcessRateCardOutput, error) {
	g.mu.Lock()
	prev, ok := g.processed[sub.SessionID]
	g.mu.Unlock()
	if ok {
		return &prev, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	out, err := g.processor.ProcessCompleteRateCard(callCtx, port.ProcessRateCardInput{
		Relationship:     sub.Record,
		Rates:            sub.Rates,
		ProviderID:       sub.ProviderID,
		CustomerID:       sub.CustomerID,
		EstimatedTotal:   sub.EstimatedTotal,
		RateCardFileName: sub.RateCardFileName,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrTransport) {
			err = fmt.Errorf("%w: %w", domain.ErrTransport, err)
		}
		return nil, err
	}

	g.mu.Lock()
	g.processed[sub.SessionID] = *out
	g.mu.Unlock()
	return out, nil
}

func supplierDocuments(supplierID uuid.UUID, submitted []port.SubmittedDocument) []domain.SupplierDocument {
	docs := make([]domain.SupplierDocument, 0, len(submitted))
	for _, d := range submitted {
		if d.File.StorageKey == "" {
			continue
		}
		docs = append(docs, domain.SupplierDocument{
			ID:         d.File.ID,
			SupplierID: supplierID,
			Category:   d.Category,
			FileName:   d.File.Name,
			StorageKey: d.File.StorageKey,
			Size:       d.File.Size,
		})
	}
	return docs
}

// persistenceError tags database failures as transport failures unless they
// already carry a domain kind.
func persistenceError(op string, err error) error {
	if errors.Is(err, domain.ErrTransport) || errors.Is(err, domain.ErrUnprocessableDocument) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrTransport, err)
}
