package extraction

import (
	"fmt"
	"sort"

	"rateintake/internal/config"
	"rateintake/internal/domain"
	"rateintake/internal/port"
)

// Client is a full extraction service strategy: document and rate extraction
// plus final rate card processing.
type Client interface {
	port.ExtractionClient
	port.RateCardProcessor
}

// ProviderFactory creates a Client from the extraction config.
type ProviderFactory func(cfg *config.ExtractionConfig) (Client, error)

// registry of extraction strategies, populated explicitly via Register.
var providers = map[string]ProviderFactory{}

// Register registers an extraction strategy by name.
func Register(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewClient creates the Client named by cfg.Provider.
func NewClient(cfg *config.ExtractionConfig) (Client, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: unknown extraction provider %q (registered: %v)",
			domain.ErrConfiguration, cfg.Provider, Registered())
	}
	return factory(cfg)
}

// Registered lists the registered provider names in sorted order.
func Registered() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
