// Package config loads and validates the process-wide configuration
// recognized by spec.md §6.5. Configuration is read once at start;
// changes require a restart, matching the teacher's pkg/config design.
package config

import "time"

// HubEndpoint is one entry in the hub's ordered endpoint list.
type HubEndpoint struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Token    string `yaml:"token"`
	Priority int    `yaml:"priority"`
}

// HubConfig configures the IngestionClient's connection to the hub.
type HubConfig struct {
	Endpoints                  []HubEndpoint `yaml:"endpoints"`
	ReconnectToPrimaryInterval time.Duration `yaml:"reconnect_to_primary_interval"`
	EventSilenceThreshold      time.Duration `yaml:"event_silence_threshold"`
	AuthTimeout                time.Duration `yaml:"auth_timeout"`
	SubscribeTimeout           time.Duration `yaml:"subscribe_timeout"`
	SubscribeSettleDelay       time.Duration `yaml:"subscribe_settle_delay"`
}

// IngestionConfig configures dispatch from IngestionClient to EnrichmentService.
type IngestionConfig struct {
	EnrichmentBaseURL string        `yaml:"enrichment_base_url"`
	QueueCapacity     int           `yaml:"queue_capacity"`
	DispatchWorkers   int           `yaml:"dispatch_workers"`
	DispatchRetries   int           `yaml:"dispatch_retries"`
	DispatchTimeout   time.Duration `yaml:"dispatch_timeout"`
}

// EnrichmentConfig configures the EnrichmentService's HTTP intake and
// batch writer.
type EnrichmentConfig struct {
	ListenAddr           string        `yaml:"listen_addr"`
	IntakeQueue          int           `yaml:"intake_queue"`
	IntakeWorkers        int           `yaml:"intake_workers"`
	HighWaterMarkPercent float64       `yaml:"high_water_mark_percent"`
	BatchSize            int           `yaml:"batch_size"`
	BatchTimeout         time.Duration `yaml:"batch_timeout"`
	FlushTimeout         time.Duration `yaml:"flush_timeout"`
	GracefulDrainTimeout time.Duration `yaml:"graceful_drain_timeout"`
	DeadLetterPath       string        `yaml:"dead_letter_path"`
	WarnDurationThreshold time.Duration `yaml:"warn_duration_threshold"`
}

// ProviderConfig configures one EnrichmentProvider instance.
type ProviderConfig struct {
	Enabled            bool              `yaml:"enabled"`
	RefreshEvery        time.Duration     `yaml:"refresh_every"`
	TTL                 time.Duration     `yaml:"ttl"`
	RateLimitPerMinute  int               `yaml:"rate_limit_per_minute"`
	URL                 string            `yaml:"url"`
	Credentials         map[string]string `yaml:"credentials,omitempty"`
	Location            string            `yaml:"location,omitempty"`
}

// StoreConfig configures the TimeSeriesStore client.
type StoreConfig struct {
	URL          string        `yaml:"url"`
	Token        string        `yaml:"token"`
	Org          string        `yaml:"org"`
	Bucket       string        `yaml:"bucket"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// TierConfig describes one retention tier's schedule and destination.
type TierConfig struct {
	RetentionHorizon time.Duration `yaml:"retention_horizon"`
	DownsampleWindow time.Duration `yaml:"downsample_window"`
	MeasurementName  string        `yaml:"measurement_name"`
}

// ArchiveConfig configures the cold→archive off-load step.
type ArchiveConfig struct {
	ObjectStoreBucket string `yaml:"object_store_bucket"`
	Prefix            string `yaml:"prefix"`
	CredentialsFile   string `yaml:"credentials_file,omitempty"`
}

// MaterializedView is one named pre-aggregate definition. Query is a
// Flux-style source that must group by at least entity_id and produce a
// single `_value` column per group; the refresher writes one point per
// group to DestMeasurement.
type MaterializedView struct {
	Name            string        `yaml:"name"`
	Query           string        `yaml:"query"`
	DestMeasurement string        `yaml:"dest_measurement"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// RetentionConfig configures the RetentionEngine's tiers and jobs.
type RetentionConfig struct {
	Hot                TierConfig          `yaml:"hot"`
	Warm               TierConfig          `yaml:"warm"`
	Cold               TierConfig          `yaml:"cold"`
	Archive            ArchiveConfig       `yaml:"archive"`
	MaterializedViews  []MaterializedView  `yaml:"materialized_views"`
	AnalyticsInterval  time.Duration       `yaml:"analytics_interval"`
}

// LoggingConfig configures structured log output.
type LoggingConfig struct {
	Level                 string `yaml:"log_level"`
	CorrelationHeaderName string `yaml:"correlation_header_name"`
}

// Config is the fully loaded, validated, ready-to-use configuration root.
type Config struct {
	configDir string

	Hub        HubConfig                 `yaml:"-"`
	Ingestion  IngestionConfig           `yaml:"-"`
	Enrichment EnrichmentConfig          `yaml:"-"`
	Providers  map[string]ProviderConfig `yaml:"-"`
	Store      StoreConfig               `yaml:"-"`
	Retention  RetentionConfig           `yaml:"-"`
	Logging    LoggingConfig             `yaml:"-"`
}

// ConfigDir returns the directory configuration was loaded from.
func (c *Config) ConfigDir() string { return c.configDir }
