package config

import (
	"fmt"

	"dario.cat/mergo"
)

// mergeProviders merges built-in provider defaults with user-defined
// provider blocks, the way the teacher's mergeMCPServers overlays
// user-defined servers onto a built-in map (pkg/config/merge.go).
// A provider present only in defaults keeps its zero-enabled state; a
// provider present in both has its non-zero user fields win.
func mergeProviders(defaults, user map[string]ProviderConfig) (map[string]ProviderConfig, error) {
	result := make(map[string]ProviderConfig, len(defaults))
	for name, d := range defaults {
		result[name] = d
	}
	for name, u := range user {
		base, ok := result[name]
		if !ok {
			result[name] = u
			continue
		}
		merged := base
		if err := mergo.Merge(&merged, u, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge provider %q: %w", name, err)
		}
		result[name] = merged
	}
	return result, nil
}

// defaultProviders enumerates the six providers named in spec.md §4, each
// disabled until a providers.yaml block turns it on.
func defaultProviders() map[string]ProviderConfig {
	names := []string{"weather", "carbon_intensity", "energy_pricing", "air_quality", "calendar", "smart_meter"}
	out := make(map[string]ProviderConfig, len(names))
	for _, n := range names {
		out[n] = ProviderConfig{Enabled: false}
	}
	return out
}
