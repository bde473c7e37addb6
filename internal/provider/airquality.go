package provider

import (
	"context"

	"github.com/homegraph/ingestor/internal/config"
	"github.com/homegraph/ingestor/internal/telemetry"
)

// NewAirQuality builds the air-quality provider (spec.md §4.3): AQI and
// pollutant concentrations for the configured location.
func NewAirQuality(cfg config.ProviderConfig, metrics *telemetry.Metrics) *Poller {
	fetch := func(ctx context.Context) (map[string]interface{}, error) {
		raw, err := getJSON(ctx, cfg.URL+"?location="+cfg.Location, apiKeyHeader(cfg))
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"aqi":     numeric(raw, "aqi"),
			"pm25":    numeric(raw, "pm25"),
			"pm10":    numeric(raw, "pm10"),
			"o3":      numeric(raw, "o3"),
			"no2":     numeric(raw, "no2"),
		}, nil
	}
	return NewPoller("air_quality", cfg, fetch, metrics)
}
