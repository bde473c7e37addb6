package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Initialize loads, merges, defaults, and validates every YAML file under
// configDir, mirroring the teacher's pkg/config.Initialize entrypoint shape.
//
// Steps:
//  1. Load hub.yaml, ingestion.yaml, enrichment.yaml, providers.yaml,
//     store.yaml, retention.yaml, logging.yaml (any file may be absent)
//  2. Merge providers.yaml over the built-in disabled-provider set
//  3. Apply zero-value defaults
//  4. Validate, accumulating every violation
func Initialize(_ context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("loading configuration")

	l := &loader{configDir: configDir}

	var hub HubConfig
	if err := l.loadYAML("hub.yaml", &hub); err != nil {
		return nil, err
	}
	var ingestion IngestionConfig
	if err := l.loadYAML("ingestion.yaml", &ingestion); err != nil {
		return nil, err
	}
	var enrichment EnrichmentConfig
	if err := l.loadYAML("enrichment.yaml", &enrichment); err != nil {
		return nil, err
	}
	var providerDoc struct {
		Providers map[string]ProviderConfig `yaml:"providers"`
	}
	if err := l.loadYAML("providers.yaml", &providerDoc); err != nil {
		return nil, err
	}
	var store StoreConfig
	if err := l.loadYAML("store.yaml", &store); err != nil {
		return nil, err
	}
	var retention RetentionConfig
	if err := l.loadYAML("retention.yaml", &retention); err != nil {
		return nil, err
	}
	var logging LoggingConfig
	if err := l.loadYAML("logging.yaml", &logging); err != nil {
		return nil, err
	}

	providers, err := mergeProviders(defaultProviders(), providerDoc.Providers)
	if err != nil {
		return nil, fmt.Errorf("merge providers: %w", err)
	}

	cfg := &Config{
		configDir:  configDir,
		Hub:        hub,
		Ingestion:  ingestion,
		Enrichment: enrichment,
		Providers:  providers,
		Store:      store,
		Retention:  retention,
		Logging:    logging,
	}

	applyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	log.Info("configuration loaded",
		"hub_endpoints", len(cfg.Hub.Endpoints),
		"providers_enabled", countEnabled(cfg.Providers))

	return cfg, nil
}

type loader struct {
	configDir string
}

// loadYAML reads filename under configDir, expands environment references,
// and unmarshals into target. A missing file is not an error: every section
// falls back to its zero value and applyDefaults fills it in, so a minimal
// deployment can supply only the files it needs to override.
func (l *loader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: %s: %v", ErrConfigNotFound, path, err)
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidYAML, path, err)
	}
	return nil
}

func countEnabled(providers map[string]ProviderConfig) int {
	n := 0
	for _, p := range providers {
		if p.Enabled {
			n++
		}
	}
	return n
}
