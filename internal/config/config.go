package config

import "fmt"

// Initialize is defined in loader.go.

// Stats summarizes loaded configuration for a startup log line.
type Stats struct {
	HubEndpoints     int
	ProvidersEnabled int
	MaterializedViews int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() Stats {
	return Stats{
		HubEndpoints:       len(c.Hub.Endpoints),
		ProvidersEnabled:   countEnabled(c.Providers),
		MaterializedViews:  len(c.Retention.MaterializedViews),
	}
}

// Provider returns the named provider's configuration. This is a
// convenience method wrapping a map lookup against Providers.
func (c *Config) Provider(name string) (ProviderConfig, error) {
	p, ok := c.Providers[name]
	if !ok {
		return ProviderConfig{}, fmt.Errorf("%w: provider %q", ErrMissingField, name)
	}
	return p, nil
}
