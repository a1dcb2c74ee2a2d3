package session

import (
	"fmt"
	"slices"
	"strings"

	"rateintake/internal/config"
	"rateintake/internal/domain"
	"rateintake/internal/mapper"
)

// Policy is the per-deployment workflow configuration: slot layout, which
// categories go through which extraction stages, and what confirmation
// requires.
type Policy struct {
	Profiles                       []domain.CategoryProfile
	RequiredFields                 []string
	RateRequiredProviderCategories []string
}

// DefaultPolicy returns the built-in profiles with the default confirmation
// requirements.
func DefaultPolicy() Policy {
	return Policy{
		Profiles:                       domain.DefaultCategoryProfiles(),
		RequiredFields:                 []string{"name", "provider_category", "msa_reference", "effective_date"},
		RateRequiredProviderCategories: []string{"staffing", "professional_services", "consulting"},
	}
}

// PolicyFromConfig builds a Policy from pipeline config. Detail and rate
// categories replace the defaults' CarriesDetails/CarriesRates flags; unknown
// categories and fields are configuration errors.
func PolicyFromConfig(cfg *config.PipelineConfig) (Policy, error) {
	detail, err := parseCategories(cfg.DetailCategories)
	if err != nil {
		return Policy{}, err
	}
	rates, err := parseCategories(cfg.RateCategories)
	if err != nil {
		return Policy{}, err
	}

	profiles := domain.DefaultCategoryProfiles()
	for i := range profiles {
		profiles[i].CarriesDetails = slices.Contains(detail, profiles[i].Category)
		profiles[i].CarriesRates = slices.Contains(rates, profiles[i].Category)
	}

	required := make([]string, 0, len(cfg.RequiredFields))
	for _, name := range cfg.RequiredFields {
		f, ok := mapper.Lookup(name)
		if !ok {
			return Policy{}, fmt.Errorf("%w: required field %q: %w", domain.ErrConfiguration, name, domain.ErrUnknownField)
		}
		required = append(required, f.Name)
	}

	return Policy{
		Profiles:                       profiles,
		RequiredFields:                 required,
		RateRequiredProviderCategories: cfg.RateRequiredProviderCategories,
	}, nil
}

func parseCategories(names []string) ([]domain.DocumentCategory, error) {
	out := make([]domain.DocumentCategory, 0, len(names))
	for _, n := range names {
		c := domain.DocumentCategory(strings.TrimSpace(n))
		if !c.IsValid() {
			return nil, fmt.Errorf("%w: %w %q", domain.ErrConfiguration, domain.ErrUnknownCategory, n)
		}
		out = append(out, c)
	}
	return out, nil
}

// Profile returns the profile of a category.
func (p Policy) Profile(category domain.DocumentCategory) (domain.CategoryProfile, bool) {
	for _, prof := range p.Profiles {
		if prof.Category == category {
			return prof, true
		}
	}
	return domain.CategoryProfile{}, false
}

// RequiresRates reports whether a provider category must carry at least one
// rate row. Matching ignores case and separators.
func (p Policy) RequiresRates(providerCategory string) bool {
	want := categoryKey(providerCategory)
	if want == "" {
		return false
	}
	for _, c := range p.RateRequiredProviderCategories {
		if categoryKey(c) == want {
			return true
		}
	}
	return false
}

func categoryKey(s string) string {
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
}
