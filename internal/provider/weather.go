package provider

import (
	"context"
	"fmt"

	"github.com/homegraph/ingestor/internal/config"
	"github.com/homegraph/ingestor/internal/telemetry"
)

// NewWeather builds the weather provider (spec.md §4.3): temperature,
// humidity, pressure, wind, and condition for the configured location.
func NewWeather(cfg config.ProviderConfig, metrics *telemetry.Metrics) *Poller {
	fetch := func(ctx context.Context) (map[string]interface{}, error) {
		url := fmt.Sprintf("%s?location=%s", cfg.URL, cfg.Location)
		raw, err := getJSON(ctx, url, apiKeyHeader(cfg))
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"temperature_c": numeric(raw, "temperature_c"),
			"humidity_pct":  numeric(raw, "humidity_pct"),
			"pressure_hpa":  numeric(raw, "pressure_hpa"),
			"wind_speed_ms": numeric(raw, "wind_speed_ms"),
			"condition":     stringField(raw, "condition"),
			"description":   stringField(raw, "description"),
		}, nil
	}
	return NewPoller("weather", cfg, fetch, metrics)
}

func apiKeyHeader(cfg config.ProviderConfig) map[string]string {
	if key := cfg.Credentials["api_key"]; key != "" {
		return map[string]string{"Authorization": "Bearer " + key}
	}
	return nil
}

func numeric(raw map[string]interface{}, key string) float64 {
	if v, ok := raw[key]; ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return 0
}

func stringField(raw map[string]interface{}, key string) string {
	if v, ok := raw[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
