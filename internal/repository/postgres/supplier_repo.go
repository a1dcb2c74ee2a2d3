package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"rateintake/internal/domain"
	"rateintake/internal/port"
)

type supplierRepo struct {
	db *sqlx.DB
}

// NewSupplierRepo creates a new PostgreSQL-backed SupplierRepository.
func NewSupplierRepo(db *sqlx.DB) port.SupplierRepository {
	return &supplierRepo{db: db}
}

// UpsertBySession inserts the supplier, or refreshes the record of the
// supplier already created for the same session. supplier.ID, the attached
// rate card and timestamps are set to the stored row's values.
func (r *supplierRepo) UpsertBySession(ctx context.Context, supplier *domain.Supplier) error {
	if supplier.ID == uuid.Nil {
		supplier.ID = uuid.New()
	}
	now := time.Now().UTC()
	supplier.CreatedAt = now
	supplier.UpdatedAt = now

	query := `INSERT INTO suppliers (
			id, session_id, provider_id, customer_id,
			name, provider_category, website, msa_reference, effective_date, term_end_date,
			auto_renewal, status, contact_name, contact_email, contact_phone, address,
			tax_id, payment_terms, currency, notice_period_days,
			amendment_reference, amendment_effective_date,
			rows_processed, created_at, updated_at
		) VALUES (
			:id, :session_id, :provider_id, :customer_id,
			:name, :provider_category, :website, :msa_reference, :effective_date, :term_end_date,
			:auto_renewal, :status, :contact_name, :contact_email, :contact_phone, :address,
			:tax_id, :payment_terms, :currency, :notice_period_days,
			:amendment_reference, :amendment_effective_date,
			:rows_processed, :created_at, :updated_at
		)
		ON CONFLICT (session_id) DO UPDATE SET
			provider_id = EXCLUDED.provider_id,
			customer_id = EXCLUDED.customer_id,
			name = EXCLUDED.name,
			provider_category = EXCLUDED.provider_category,
			website = EXCLUDED.website,
			msa_reference = EXCLUDED.msa_reference,
			effective_date = EXCLUDED.effective_date,
			term_end_date = EXCLUDED.term_end_date,
			auto_renewal = EXCLUDED.auto_renewal,
			status = EXCLUDED.status,
			contact_name = EXCLUDED.contact_name,
			contact_email = EXCLUDED.contact_email,
			contact_phone = EXCLUDED.contact_phone,
			address = EXCLUDED.address,
			tax_id = EXCLUDED.tax_id,
			payment_terms = EXCLUDED.payment_terms,
			currency = EXCLUDED.currency,
			notice_period_days = EXCLUDED.notice_period_days,
			amendment_reference = EXCLUDED.amendment_reference,
			amendment_effective_date = EXCLUDED.amendment_effective_date,
			updated_at = EXCLUDED.updated_at
		RETURNING id, rate_card_id, rows_processed, created_at, updated_at`

	rows, err := r.db.NamedQueryContext(ctx, query, supplier)
	if err != nil {
		return fmt.Errorf("supplierRepo.UpsertBySession: %w", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("supplierRepo.UpsertBySession: %w", err)
		}
		return fmt.Errorf("supplierRepo.UpsertBySession: no row returned")
	}
	if err := rows.Scan(&supplier.ID, &supplier.RateCardID, &supplier.RowsProcessed, &supplier.CreatedAt, &supplier.UpdatedAt); err != nil {
		return fmt.Errorf("supplierRepo.UpsertBySession scan: %w", err)
	}
	return nil
}

func (r *supplierRepo) AttachRateCard(ctx context.Context, supplierID uuid.UUID, rateCardID string, rowsProcessed int) error {
	query := `UPDATE suppliers SET rate_card_id = $1, rows_processed = $2, updated_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, rateCardID, rowsProcessed, time.Now().UTC(), supplierID)
	if err != nil {
		return fmt.Errorf("supplierRepo.AttachRateCard: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("supplierRepo.AttachRateCard rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddDocuments records archived documents. Documents already recorded by a
// previous attempt are left as they are.
func (r *supplierRepo) AddDocuments(ctx context.Context, docs []domain.SupplierDocument) error {
	if len(docs) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range docs {
		if docs[i].ID == uuid.Nil {
			docs[i].ID = uuid.New()
		}
		docs[i].CreatedAt = now
	}

	query := `INSERT INTO supplier_documents (id, supplier_id, category, file_name, storage_key, size, created_at)
		VALUES (:id, :supplier_id, :category, :file_name, :storage_key, :size, :created_at)
		ON CONFLICT (id) DO NOTHING`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("supplierRepo.AddDocuments begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range docs {
		if _, err := tx.NamedExecContext(ctx, query, docs[i]); err != nil {
			return fmt.Errorf("supplierRepo.AddDocuments insert %s: %w", docs[i].FileName, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("supplierRepo.AddDocuments commit: %w", err)
	}
	return nil
}
