package model

import "time"

// Measurement is the canonical time-series measurement name written by
// the enrichment service.
const Measurement = "home_assistant_events"

// TimeSeriesPoint is one row written to the store: a closed tag set, an
// open field set, and a nanosecond UTC timestamp.
type TimeSeriesPoint struct {
	Measurement string
	Tags        map[string]string
	Fields      map[string]interface{}
	Timestamp   time.Time
}

// WriteBatch is an ordered, immutable-once-flushed sequence of points
// sharing a batch id and the time the first point was enqueued.
type WriteBatch struct {
	ID           string
	Points       []TimeSeriesPoint
	FirstEnqueue time.Time
}

// RetentionTierName enumerates the named storage tiers.
type RetentionTierName string

// Named retention tiers, coarsest-last.
const (
	TierHot     RetentionTierName = "hot"
	TierWarm    RetentionTierName = "warm"
	TierCold    RetentionTierName = "cold"
	TierArchive RetentionTierName = "archive"
)

// RetentionTier describes one tier's source/destination measurements,
// downsample window, and retention horizon.
type RetentionTier struct {
	Name               RetentionTierName
	SourceMeasurement  string
	DestMeasurement    string
	DownsampleWindow   time.Duration
	RetentionHorizon   time.Duration
	AggregationFuncs   []string
}
