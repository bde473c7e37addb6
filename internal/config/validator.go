package config

import (
	"net/url"
	"strconv"
	"strings"
)

// Validate checks every configuration section and accumulates every
// violation found, rather than stopping at the first one as the teacher's
// ValidateAll does — operators fixing a fresh deployment get the whole list
// in one pass instead of one error per restart.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	errs = append(errs, validateHub(cfg.Hub)...)
	errs = append(errs, validateIngestion(cfg.Ingestion)...)
	errs = append(errs, validateEnrichment(cfg.Enrichment)...)
	errs = append(errs, validateProviders(cfg.Providers)...)
	errs = append(errs, validateStore(cfg.Store)...)
	errs = append(errs, validateRetention(cfg.Retention)...)
	errs = append(errs, validateLogging(cfg.Logging)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func field(section, f string, err error) *ValidationError {
	return &ValidationError{Section: section, Field: f, Err: err}
}

func validateHub(h HubConfig) ValidationErrors {
	var errs ValidationErrors
	if len(h.Endpoints) == 0 {
		errs = append(errs, field("hub", "endpoints", ErrMissingField))
		return errs
	}
	seenPriority := make(map[int]string)
	for i, e := range h.Endpoints {
		if e.Name == "" {
			errs = append(errs, field("hub", "endpoints["+strconv.Itoa(i)+"].name", ErrMissingField))
		}
		if e.URL == "" {
			errs = append(errs, field("hub", "endpoints["+strconv.Itoa(i)+"].url", ErrMissingField))
		} else if _, err := url.Parse(e.URL); err != nil {
			errs = append(errs, field("hub", "endpoints["+strconv.Itoa(i)+"].url", ErrInvalidValue))
		}
		if e.Token == "" {
			errs = append(errs, field("hub", "endpoints["+strconv.Itoa(i)+"].token", ErrMissingField))
		}
		if prior, ok := seenPriority[e.Priority]; ok {
			errs = append(errs, field("hub", "endpoints["+strconv.Itoa(i)+"].priority", ErrInvalidValue))
			_ = prior
		}
		seenPriority[e.Priority] = e.Name
	}
	if h.EventSilenceThreshold > 0 && h.EventSilenceThreshold < h.AuthTimeout {
		errs = append(errs, field("hub", "event_silence_threshold", ErrInvalidValue))
	}
	return errs
}

func validateIngestion(i IngestionConfig) ValidationErrors {
	var errs ValidationErrors
	if i.EnrichmentBaseURL == "" {
		errs = append(errs, field("ingestion", "enrichment_base_url", ErrMissingField))
	}
	if i.QueueCapacity < 1 {
		errs = append(errs, field("ingestion", "queue_capacity", ErrInvalidValue))
	}
	if i.DispatchWorkers < 1 {
		errs = append(errs, field("ingestion", "dispatch_workers", ErrInvalidValue))
	}
	if i.DispatchRetries < 0 {
		errs = append(errs, field("ingestion", "dispatch_retries", ErrInvalidValue))
	}
	return errs
}

func validateEnrichment(e EnrichmentConfig) ValidationErrors {
	var errs ValidationErrors
	if e.ListenAddr == "" {
		errs = append(errs, field("enrichment", "listen_addr", ErrMissingField))
	}
	if e.IntakeQueue < 1 {
		errs = append(errs, field("enrichment", "intake_queue", ErrInvalidValue))
	}
	if e.HighWaterMarkPercent <= 0 || e.HighWaterMarkPercent > 1 {
		errs = append(errs, field("enrichment", "high_water_mark_percent", ErrInvalidValue))
	}
	if e.BatchSize < 1 {
		errs = append(errs, field("enrichment", "batch_size", ErrInvalidValue))
	}
	if e.BatchTimeout <= 0 {
		errs = append(errs, field("enrichment", "batch_timeout", ErrInvalidValue))
	}
	if e.DeadLetterPath == "" {
		errs = append(errs, field("enrichment", "dead_letter_path", ErrMissingField))
	}
	return errs
}

func validateProviders(providers map[string]ProviderConfig) ValidationErrors {
	var errs ValidationErrors
	for name, p := range providers {
		if !p.Enabled {
			continue
		}
		if p.RefreshEvery <= 0 {
			errs = append(errs, field("providers."+name, "refresh_every", ErrInvalidValue))
		}
		if p.TTL <= 0 {
			errs = append(errs, field("providers."+name, "ttl", ErrInvalidValue))
		}
		if p.TTL > 0 && p.RefreshEvery > 0 && p.TTL < p.RefreshEvery {
			errs = append(errs, field("providers."+name, "ttl", ErrInvalidValue))
		}
		if p.RateLimitPerMinute < 1 {
			errs = append(errs, field("providers."+name, "rate_limit_per_minute", ErrInvalidValue))
		}
		if name != "calendar" && p.URL == "" {
			errs = append(errs, field("providers."+name, "url", ErrMissingField))
		}
	}
	return errs
}

func validateStore(s StoreConfig) ValidationErrors {
	var errs ValidationErrors
	if s.URL == "" {
		errs = append(errs, field("store", "url", ErrMissingField))
	}
	if s.Bucket == "" {
		errs = append(errs, field("store", "bucket", ErrMissingField))
	}
	if s.Org == "" {
		errs = append(errs, field("store", "org", ErrMissingField))
	}
	return errs
}

func validateRetention(r RetentionConfig) ValidationErrors {
	var errs ValidationErrors
	if r.Warm.RetentionHorizon > 0 && r.Hot.RetentionHorizon > 0 && r.Warm.RetentionHorizon < r.Hot.RetentionHorizon {
		errs = append(errs, field("retention", "warm.retention_horizon", ErrInvalidValue))
	}
	if r.Cold.RetentionHorizon > 0 && r.Warm.RetentionHorizon > 0 && r.Cold.RetentionHorizon < r.Warm.RetentionHorizon {
		errs = append(errs, field("retention", "cold.retention_horizon", ErrInvalidValue))
	}
	if r.Archive.ObjectStoreBucket != "" && r.Archive.Prefix == "" {
		errs = append(errs, field("retention", "archive.prefix", ErrMissingField))
	}
	for i, mv := range r.MaterializedViews {
		if mv.Name == "" {
			errs = append(errs, field("retention", "materialized_views["+strconv.Itoa(i)+"].name", ErrMissingField))
		}
		if mv.Query == "" {
			errs = append(errs, field("retention", "materialized_views["+strconv.Itoa(i)+"].query", ErrMissingField))
		}
		if mv.DestMeasurement == "" {
			errs = append(errs, field("retention", "materialized_views["+strconv.Itoa(i)+"].dest_measurement", ErrMissingField))
		}
	}
	return errs
}

func validateLogging(l LoggingConfig) ValidationErrors {
	var errs ValidationErrors
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, field("logging", "log_level", ErrInvalidValue))
	}
	return errs
}

