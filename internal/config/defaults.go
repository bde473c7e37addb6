package config

import "time"

// defaultRefreshEvery holds each provider's polling cadence, per spec.md
// §4.3: weather 10 min, carbon 15 min, pricing 60 min, air-quality 60 min,
// calendar 15 min, smart-meter 5 min. A provider missing from this map
// (e.g. one added later) falls back to a generic 15-minute default below.
var defaultRefreshEvery = map[string]time.Duration{
	"weather":          10 * time.Minute,
	"carbon_intensity": 15 * time.Minute,
	"energy_pricing":   60 * time.Minute,
	"air_quality":      60 * time.Minute,
	"calendar":         15 * time.Minute,
	"smart_meter":      5 * time.Minute,
}

// applyDefaults fills zero-valued fields left unset by YAML, mirroring the
// teacher's built-in-defaults-then-override layering in pkg/config/loader.go.
func applyDefaults(cfg *Config) {
	if cfg.Hub.ReconnectToPrimaryInterval == 0 {
		cfg.Hub.ReconnectToPrimaryInterval = 60 * time.Second
	}
	if cfg.Hub.EventSilenceThreshold == 0 {
		cfg.Hub.EventSilenceThreshold = 2 * time.Minute
	}
	if cfg.Hub.AuthTimeout == 0 {
		cfg.Hub.AuthTimeout = 10 * time.Second
	}
	if cfg.Hub.SubscribeTimeout == 0 {
		cfg.Hub.SubscribeTimeout = 10 * time.Second
	}
	if cfg.Hub.SubscribeSettleDelay == 0 {
		cfg.Hub.SubscribeSettleDelay = 500 * time.Millisecond
	}

	if cfg.Ingestion.QueueCapacity == 0 {
		cfg.Ingestion.QueueCapacity = 2000
	}
	if cfg.Ingestion.DispatchWorkers == 0 {
		cfg.Ingestion.DispatchWorkers = 4
	}
	if cfg.Ingestion.DispatchRetries == 0 {
		cfg.Ingestion.DispatchRetries = 3
	}
	if cfg.Ingestion.DispatchTimeout == 0 {
		cfg.Ingestion.DispatchTimeout = 5 * time.Second
	}

	if cfg.Enrichment.ListenAddr == "" {
		cfg.Enrichment.ListenAddr = ":8090"
	}
	if cfg.Enrichment.IntakeQueue == 0 {
		cfg.Enrichment.IntakeQueue = 5000
	}
	if cfg.Enrichment.IntakeWorkers == 0 {
		cfg.Enrichment.IntakeWorkers = 8
	}
	if cfg.Enrichment.HighWaterMarkPercent == 0 {
		cfg.Enrichment.HighWaterMarkPercent = 0.9
	}
	if cfg.Enrichment.BatchSize == 0 {
		cfg.Enrichment.BatchSize = 500
	}
	if cfg.Enrichment.BatchTimeout == 0 {
		cfg.Enrichment.BatchTimeout = 5 * time.Second
	}
	if cfg.Enrichment.FlushTimeout == 0 {
		cfg.Enrichment.FlushTimeout = 10 * time.Second
	}
	if cfg.Enrichment.GracefulDrainTimeout == 0 {
		cfg.Enrichment.GracefulDrainTimeout = 30 * time.Second
	}
	if cfg.Enrichment.DeadLetterPath == "" {
		cfg.Enrichment.DeadLetterPath = "./data/deadletter.jsonl"
	}
	if cfg.Enrichment.WarnDurationThreshold == 0 {
		cfg.Enrichment.WarnDurationThreshold = 7 * 24 * time.Hour
	}

	for name, p := range cfg.Providers {
		if p.RefreshEvery == 0 {
			p.RefreshEvery = defaultRefreshEvery[name]
			if p.RefreshEvery == 0 {
				p.RefreshEvery = 15 * time.Minute
			}
		}
		if p.TTL == 0 {
			p.TTL = 2 * p.RefreshEvery
		}
		if p.RateLimitPerMinute == 0 {
			p.RateLimitPerMinute = 30
		}
		cfg.Providers[name] = p
	}

	if cfg.Store.WriteTimeout == 0 {
		cfg.Store.WriteTimeout = 10 * time.Second
	}

	if cfg.Retention.Hot.MeasurementName == "" {
		cfg.Retention.Hot.MeasurementName = "home_assistant_events"
	}
	if cfg.Retention.Hot.RetentionHorizon == 0 {
		cfg.Retention.Hot.RetentionHorizon = 7 * 24 * time.Hour
	}
	if cfg.Retention.Warm.DownsampleWindow == 0 {
		cfg.Retention.Warm.DownsampleWindow = time.Hour
	}
	if cfg.Retention.Warm.RetentionHorizon == 0 {
		cfg.Retention.Warm.RetentionHorizon = 90 * 24 * time.Hour
	}
	if cfg.Retention.Warm.MeasurementName == "" {
		cfg.Retention.Warm.MeasurementName = "home_assistant_events_hourly"
	}
	if cfg.Retention.Cold.DownsampleWindow == 0 {
		cfg.Retention.Cold.DownsampleWindow = 24 * time.Hour
	}
	if cfg.Retention.Cold.RetentionHorizon == 0 {
		cfg.Retention.Cold.RetentionHorizon = 365 * 24 * time.Hour
	}
	if cfg.Retention.Cold.MeasurementName == "" {
		cfg.Retention.Cold.MeasurementName = "home_assistant_events_daily"
	}
	if cfg.Retention.Archive.Prefix == "" {
		cfg.Retention.Archive.Prefix = "homegraph-ingestor"
	}
	if cfg.Retention.AnalyticsInterval == 0 {
		cfg.Retention.AnalyticsInterval = 15 * time.Minute
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.CorrelationHeaderName == "" {
		cfg.Logging.CorrelationHeaderName = "X-Correlation-ID"
	}
}
