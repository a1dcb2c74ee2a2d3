package domain

import (
	"time"

	"github.com/google/uuid"
)

// FileRef is an uploaded document. It is immutable once created; Content is
// the opaque binary handle passed to the extraction service.
type FileRef struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	PageCount   int       `json:"page_count,omitempty"`
	StorageKey  string    `json:"storage_key,omitempty"`
	Content     []byte    `json:"-"`
}

// ExtractionResult is the raw, loosely-structured payload returned by the
// extraction service for one file. Values may be strings, numbers, booleans,
// nested maps, or sequences of rate rows.
type ExtractionResult map[string]any

// RateRow maps a column key to a value (string, number, or nil).
type RateRow map[string]any

// Clone returns a shallow copy of the row. Values are scalars so this is a
// full copy in practice.
func (r RateRow) Clone() RateRow {
	out := make(RateRow, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// CloneRows copies a row sequence, preserving order.
func CloneRows(rows []RateRow) []RateRow {
	if rows == nil {
		return nil
	}
	out := make([]RateRow, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out
}

// NormalizedRecord is the canonical, flat supplier/provider record produced by
// merging all extraction sources and operator edits.
type NormalizedRecord struct {
	Name                   string `json:"name" db:"name"`
	ProviderCategory       string `json:"provider_category" db:"provider_category"`
	Website                string `json:"website" db:"website"`
	MSAReference           string `json:"msa_reference" db:"msa_reference"`
	EffectiveDate          string `json:"effective_date" db:"effective_date"`
	TermEndDate            string `json:"term_end_date" db:"term_end_date"`
	AutoRenewal            *bool  `json:"auto_renewal" db:"auto_renewal"`
	Status                 string `json:"status" db:"status"`
	ContactName            string `json:"contact_name" db:"contact_name"`
	ContactEmail           string `json:"contact_email" db:"contact_email"`
	ContactPhone           string `json:"contact_phone" db:"contact_phone"`
	Address                string `json:"address" db:"address"`
	TaxID                  string `json:"tax_id" db:"tax_id"`
	PaymentTerms           string `json:"payment_terms" db:"payment_terms"`
	Currency               string `json:"currency" db:"currency"`
	NoticePeriodDays       string `json:"notice_period_days" db:"notice_period_days"`
	AmendmentReference     string `json:"amendment_reference" db:"amendment_reference"`
	AmendmentEffectiveDate string `json:"amendment_effective_date" db:"amendment_effective_date"`
}

// Clone returns a deep copy of the record.
func (r NormalizedRecord) Clone() NormalizedRecord {
	out := r
	if r.AutoRenewal != nil {
		v := *r.AutoRenewal
		out.AutoRenewal = &v
	}
	return out
}

// CategoryProfile configures how a document category is stored and which
// extraction stages it goes through.
type CategoryProfile struct {
	Category       DocumentCategory `json:"category"`
	Multiplicity   Multiplicity     `json:"multiplicity"`
	CarriesDetails bool             `json:"carries_details"`
	CarriesRates   bool             `json:"carries_rates"`
}

// DefaultCategoryProfiles returns the built-in slot configuration.
func DefaultCategoryProfiles() []CategoryProfile {
	return []CategoryProfile{
		{Category: CategoryMasterAgreement, Multiplicity: MultiplicitySingle, CarriesDetails: true, CarriesRates: true},
		{Category: CategoryAmendment, Multiplicity: MultiplicityMultiple, CarriesDetails: true, CarriesRates: true},
		{Category: CategoryRateCard, Multiplicity: MultiplicitySingle, CarriesRates: true},
		{Category: CategoryServiceOrder, Multiplicity: MultiplicityMultiple},
		{Category: CategoryStatementOfWork, Multiplicity: MultiplicityMultiple},
	}
}

// ConfirmationResult identifies the entities created by a confirmation.
type ConfirmationResult struct {
	SupplierID    uuid.UUID `json:"supplier_id"`
	RateCardID    string    `json:"rate_card_id"`
	RowsProcessed int       `json:"rows_processed"`
}

// Supplier is the persisted form of a confirmed NormalizedRecord.
type Supplier struct {
	ID         uuid.UUID `db:"id" json:"id"`
	SessionID  uuid.UUID `db:"session_id" json:"session_id"`
	ProviderID string    `db:"provider_id" json:"provider_id"`
	CustomerID string    `db:"customer_id" json:"customer_id"`
	NormalizedRecord
	RateCardID    *string   `db:"rate_card_id" json:"rate_card_id"`
	RowsProcessed int       `db:"rows_processed" json:"rows_processed"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// SupplierDocument records an archived source document of a supplier.
type SupplierDocument struct {
	ID         uuid.UUID        `db:"id" json:"id"`
	SupplierID uuid.UUID        `db:"supplier_id" json:"supplier_id"`
	Category   DocumentCategory `db:"category" json:"category"`
	FileName   string           `db:"file_name" json:"file_name"`
	StorageKey string           `db:"storage_key" json:"storage_key"`
	Size       int64            `db:"size" json:"size"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
}
