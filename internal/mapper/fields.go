package mapper

import (
	"fmt"
	"strings"

	"rateintake/internal/domain"
)

// Containers are the nested objects an extraction result may group fields
// under, in resolution order.
var Containers = []string{"provider", "masterAgreement", "amendment", "rateCard"}

type fieldKind int

const (
	kindText fieldKind = iota
	kindBool
)

// Field describes one NormalizedRecord field and the keys it is resolved from.
type Field struct {
	Name    string
	Aliases []string
	// NestedOnly are keys only meaningful inside a container, e.g. "number"
	// inside "amendment".
	NestedOnly []string
	// Containers restricts nested resolution; nil means all Containers.
	Containers []string

	kind fieldKind
	text func(r *domain.NormalizedRecord) *string
}

// Fields is the NormalizedRecord schema in resolution order.
var Fields = []Field{
	textField("name", func(r *domain.NormalizedRecord) *string { return &r.Name },
		[]string{"providerName", "supplierName", "vendorName", "companyName", "legalName"}, nil, nil),
	textField("provider_category", func(r *domain.NormalizedRecord) *string { return &r.ProviderCategory },
		[]string{"supplierCategory", "serviceCategory", "category"}, nil, nil),
	textField("website", func(r *domain.NormalizedRecord) *string { return &r.Website },
		[]string{"websiteUrl", "url"}, nil, nil),
	textField("msa_reference", func(r *domain.NormalizedRecord) *string { return &r.MSAReference },
		[]string{"agreementReference", "agreementNumber", "contractNumber", "msaNumber"},
		[]string{"reference", "number"}, []string{"provider", "masterAgreement"}),
	textField("effective_date", func(r *domain.NormalizedRecord) *string { return &r.EffectiveDate },
		[]string{"startDate", "agreementDate", "msaEffectiveDate"}, nil, []string{"provider", "masterAgreement", "rateCard"}),
	textField("term_end_date", func(r *domain.NormalizedRecord) *string { return &r.TermEndDate },
		[]string{"expirationDate", "expiryDate", "endDate", "termEnd"}, nil, []string{"provider", "masterAgreement", "rateCard"}),
	{
		Name:    "auto_renewal",
		Aliases: []string{"autoRenew", "autoRenews", "autoRenewalFlag"},
		kind:    kindBool,
	},
	textField("status", func(r *domain.NormalizedRecord) *string { return &r.Status },
		[]string{"agreementStatus", "supplierStatus"}, nil, []string{"provider", "masterAgreement"}),
	textField("contact_name", func(r *domain.NormalizedRecord) *string { return &r.ContactName },
		[]string{"primaryContact", "primaryContactName"}, nil, nil),
	textField("contact_email", func(r *domain.NormalizedRecord) *string { return &r.ContactEmail },
		[]string{"email", "primaryContactEmail"}, nil, nil),
	textField("contact_phone", func(r *domain.NormalizedRecord) *string { return &r.ContactPhone },
		[]string{"phone", "primaryContactPhone"}, nil, nil),
	textField("address", func(r *domain.NormalizedRecord) *string { return &r.Address },
		[]string{"supplierAddress", "providerAddress", "headquarters"}, nil, nil),
	textField("tax_id", func(r *domain.NormalizedRecord) *string { return &r.TaxID },
		[]string{"ein", "vatNumber", "taxNumber"}, nil, nil),
	textField("payment_terms", func(r *domain.NormalizedRecord) *string { return &r.PaymentTerms },
		[]string{"paymentTerm", "netTerms"}, nil, nil),
	textField("currency", func(r *domain.NormalizedRecord) *string { return &r.Currency },
		[]string{"currencyCode"}, nil, nil),
	textField("notice_period_days", func(r *domain.NormalizedRecord) *string { return &r.NoticePeriodDays },
		[]string{"noticePeriod", "terminationNoticeDays"}, nil, nil),
	textField("amendment_reference", func(r *domain.NormalizedRecord) *string { return &r.AmendmentReference },
		[]string{"amendmentNumber", "amendmentId"}, []string{"reference", "number", "id"}, []string{"amendment"}),
	textField("amendment_effective_date", func(r *domain.NormalizedRecord) *string { return &r.AmendmentEffectiveDate },
		[]string{"amendmentDate"}, []string{"effectiveDate"}, []string{"amendment"}),
}

func textField(name string, text func(r *domain.NormalizedRecord) *string, aliases, nestedOnly, containers []string) Field {
	return Field{
		Name:       name,
		Aliases:    aliases,
		NestedOnly: nestedOnly,
		Containers: containers,
		kind:       kindText,
		text:       text,
	}
}

// Lookup finds a field by name. Matching ignores case and separators, so
// "msaReference" and "msa_reference" find the same field.
func Lookup(name string) (Field, bool) {
	want := normalizeKey(name)
	for _, f := range Fields {
		if normalizeKey(f.Name) == want {
			return f, true
		}
	}
	return Field{}, false
}

// Get renders the field's current value. An unset auto-renewal flag is "".
func (f Field) Get(r *domain.NormalizedRecord) string {
	if f.kind == kindBool {
		if r.AutoRenewal == nil {
			return ""
		}
		if *r.AutoRenewal {
			return "true"
		}
		return "false"
	}
	return *f.text(r)
}

// IsEmpty reports whether the field has no value in r.
func (f Field) IsEmpty(r *domain.NormalizedRecord) bool {
	return strings.TrimSpace(f.Get(r)) == ""
}

// Set assigns a value given in its string form. An empty value clears the field.
func (f Field) Set(r *domain.NormalizedRecord, value string) error {
	value = strings.TrimSpace(value)
	if f.kind == kindBool {
		if value == "" {
			r.AutoRenewal = nil
			return nil
		}
		b, ok := parseBool(value)
		if !ok {
			return fmt.Errorf("%w: %s expects a yes/no value, got %q", domain.ErrInvalidFieldValue, f.Name, value)
		}
		r.AutoRenewal = &b
		return nil
	}
	*f.text(r) = value
	return nil
}

// flatKeys returns the keys tried at the top level, in priority order.
func (f Field) flatKeys() []string {
	keys := make([]string, 0, 1+len(f.Aliases))
	keys = append(keys, f.Name)
	keys = append(keys, f.Aliases...)
	return keys
}

// nestedKeys returns the keys tried inside a container, in priority order.
func (f Field) nestedKeys() []string {
	return append(f.flatKeys(), f.NestedOnly...)
}

func (f Field) containers() []string {
	if f.Containers != nil {
		return f.Containers
	}
	return Containers
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1", "auto-renew", "auto renew", "automatic":
		return true, true
	case "false", "no", "n", "0", "none", "manual":
		return false, true
	}
	return false, false
}

// normalizeKey lower-cases a key and drops separators so snake_case,
// camelCase and spaced keys compare equal.
func normalizeKey(k string) string {
	var b strings.Builder
	b.Grow(len(k))
	for _, r := range strings.ToLower(k) {
		switch r {
		case '_', '-', ' ', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
