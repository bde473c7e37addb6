package model

import "time"

// Reading is a single provider's cached result: a flat field set plus
// whether it was served past its TTL.
type Reading struct {
	Timestamp time.Time
	Stale     bool
	Fields    map[string]interface{}
}

// Health is the status block every EnrichmentProvider exposes on its
// /health surface.
type Health struct {
	LastSuccessAt time.Time `json:"last_success_at"`
	LastError     string    `json:"last_error,omitempty"`
	PollCount     int64     `json:"poll_count"`
	FailureCount  int64     `json:"failure_count"`
	CacheHitRate  float64   `json:"cache_hit_rate"`
	TTLSeconds    float64   `json:"ttl_seconds"`
	Stale         bool      `json:"stale"`
}
