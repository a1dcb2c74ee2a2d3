package mapper_test

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rateintake/internal/domain"
	"rateintake/internal/mapper"
)

func TestMerge_FlatFieldsKeepPriorValues(t *testing.T) {
	existing := domain.NormalizedRecord{Website: "https://acme.example.com", Currency: "USD"}

	rec := mapper.Merge(existing, domain.ExtractionResult{
		"name":          "Acme Corp",
		"msaReference":  "K-100",
		"effectiveDate": "2025-01-01",
	})

	assert.Equal(t, domain.NormalizedRecord{
		Name:          "Acme Corp",
		MSAReference:  "K-100",
		EffectiveDate: "2025-01-01",
		Website:       "https://acme.example.com",
		Currency:      "USD",
	}, rec)
	assert.Empty(t, existing.Name, "existing is not modified")
}

func TestMerge_FlatKeyBeatsAlias(t *testing.T) {
	rec := mapper.Merge(domain.NormalizedRecord{}, domain.ExtractionResult{
		"name":         "Acme Staffing",
		"providerName": "Other Name",
	})
	assert.Equal(t, "Acme Staffing", rec.Name)
}

func TestMerge_AliasUsedWhenCanonicalEmpty(t *testing.T) {
	rec := mapper.Merge(domain.NormalizedRecord{}, domain.ExtractionResult{
		"name":         "",
		"supplierName": "Acme Staffing",
	})
	assert.Equal(t, "Acme Staffing", rec.Name)
}

func TestMerge_FlatBeatsNested(t *testing.T) {
	rec := mapper.Merge(domain.NormalizedRecord{}, domain.ExtractionResult{
		"name":     "Flat Name",
		"provider": map[string]any{"name": "Nested Name", "website": "https://nested.example.com"},
	})
	assert.Equal(t, "Flat Name", rec.Name)
	assert.Equal(t, "https://nested.example.com", rec.Website)
}

func TestMerge_NestedContainers(t *testing.T) {
	rec := mapper.Merge(domain.NormalizedRecord{}, domain.ExtractionResult{
		"provider": map[string]any{"name": "Northwind", "providerCategory": "staffing"},
		"masterAgreement": map[string]any{
			"reference":     "MSA-9",
			"effectiveDate": "2024-03-01",
		},
	})
	assert.Equal(t, "Northwind", rec.Name)
	assert.Equal(t, "staffing", rec.ProviderCategory)
	assert.Equal(t, "MSA-9", rec.MSAReference)
	assert.Equal(t, "2024-03-01", rec.EffectiveDate)
}

func TestMerge_AmendmentNumberDoesNotLeakIntoMSAReference(t *testing.T) {
	rec := mapper.Merge(domain.NormalizedRecord{}, domain.ExtractionResult{
		"amendment": map[string]any{"number": "AMD-02", "effectiveDate": "2025-01-15"},
	})
	assert.Empty(t, rec.MSAReference)
	assert.Empty(t, rec.EffectiveDate)
	assert.Equal(t, "AMD-02", rec.AmendmentReference)
	assert.Equal(t, "2025-01-15", rec.AmendmentEffectiveDate)
}

func TestMerge_ExistingValuesWin(t *testing.T) {
	existing := domain.NormalizedRecord{Name: "Typed By Operator"}
	rec := mapper.Merge(existing, domain.ExtractionResult{"name": "Extracted", "currency": "USD"})

	assert.Equal(t, "Typed By Operator", rec.Name)
	assert.Equal(t, "USD", rec.Currency)
}

func TestMerge_DoesNotModifyExisting(t *testing.T) {
	existing := domain.NormalizedRecord{}
	_ = mapper.Merge(existing, domain.ExtractionResult{"name": "Acme", "autoRenew": true})

	assert.Empty(t, existing.Name)
	assert.Nil(t, existing.AutoRenewal)
}

func TestMerge_AutoRenewal(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want *bool
	}{
		{"bool true", true, boolPtr(true)},
		{"bool false", false, boolPtr(false)},
		{"yes string", "Yes", boolPtr(true)},
		{"manual string", "manual", boolPtr(false)},
		{"unparseable", "depends on notice", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := mapper.Merge(domain.NormalizedRecord{}, domain.ExtractionResult{"autoRenewal": tt.raw})
			assert.Equal(t, tt.want, rec.AutoRenewal)
		})
	}
}

func TestMerge_NumbersRenderedAsText(t *testing.T) {
	rec := mapper.Merge(domain.NormalizedRecord{}, domain.ExtractionResult{
		"noticePeriod": float64(30),
		"taxId":        float64(123456789),
	})
	assert.Equal(t, "30", rec.NoticePeriodDays)
	assert.Equal(t, "123456789", rec.TaxID)
}

func TestMerge_NilAndContainersAreNotCandidates(t *testing.T) {
	rec := mapper.Merge(domain.NormalizedRecord{}, domain.ExtractionResult{
		"name":         nil,
		"providerName": map[string]any{"value": "x"},
		"supplierName": "Fallback Co",
	})
	assert.Equal(t, "Fallback Co", rec.Name)
}

func TestMerge_Idempotent(t *testing.T) {
	faker := gofakeit.New(42)
	for i := 0; i < 50; i++ {
		raw := domain.ExtractionResult{
			"providerName": faker.Company(),
			"website":      faker.URL(),
			"email":        faker.Email(),
			"phone":        faker.Phone(),
			"autoRenew":    faker.Bool(),
			"masterAgreement": map[string]any{
				"reference":     faker.Numerify("MSA-####"),
				"effectiveDate": faker.Date().Format("2006-01-02"),
			},
			"amendment": map[string]any{"number": faker.Numerify("AMD-##")},
		}
		base := domain.NormalizedRecord{}
		if faker.Bool() {
			base.Name = faker.Company()
		}

		once := mapper.Merge(base, raw)
		twice := mapper.Merge(once, raw)
		assert.Equal(t, once, twice)
	}
}

func TestMergeAll_EarlierResultWins(t *testing.T) {
	rec := mapper.MergeAll(domain.NormalizedRecord{},
		domain.ExtractionResult{"name": "First"},
		domain.ExtractionResult{"name": "Second", "currency": "EUR"},
	)
	assert.Equal(t, "First", rec.Name)
	assert.Equal(t, "EUR", rec.Currency)
}

func TestResolved(t *testing.T) {
	got := mapper.Resolved(domain.ExtractionResult{
		"providerName": "Acme",
		"amendment":    map[string]any{"number": "AMD-1"},
		"unrelated":    "x",
	})
	assert.Equal(t, []string{"name", "amendment_reference"}, got)
}

func TestLookup_IgnoresCaseAndSeparators(t *testing.T) {
	f, ok := mapper.Lookup("msaReference")
	require.True(t, ok)
	assert.Equal(t, "msa_reference", f.Name)

	_, ok = mapper.Lookup("favourite_colour")
	assert.False(t, ok)
}

func TestField_Set(t *testing.T) {
	var rec domain.NormalizedRecord

	f, ok := mapper.Lookup("auto_renewal")
	require.True(t, ok)
	require.NoError(t, f.Set(&rec, "yes"))
	require.NotNil(t, rec.AutoRenewal)
	assert.True(t, *rec.AutoRenewal)
	assert.Equal(t, "true", f.Get(&rec))

	err := f.Set(&rec, "perhaps")
	assert.ErrorIs(t, err, domain.ErrInvalidFieldValue)

	require.NoError(t, f.Set(&rec, ""))
	assert.Nil(t, rec.AutoRenewal)
	assert.True(t, f.IsEmpty(&rec))

	name, ok := mapper.Lookup("name")
	require.True(t, ok)
	require.NoError(t, name.Set(&rec, "  Acme  "))
	assert.Equal(t, "Acme", rec.Name)
}

func boolPtr(b bool) *bool { return &b }
