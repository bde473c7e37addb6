package provider

import (
	"context"

	"github.com/homegraph/ingestor/internal/config"
	"github.com/homegraph/ingestor/internal/telemetry"
)

// NewCarbonIntensity builds the regional carbon-intensity provider
// (spec.md §4.3): gCO2/kWh plus renewable share.
func NewCarbonIntensity(cfg config.ProviderConfig, metrics *telemetry.Metrics) *Poller {
	fetch := func(ctx context.Context) (map[string]interface{}, error) {
		raw, err := getJSON(ctx, cfg.URL, apiKeyHeader(cfg))
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"intensity_gco2_kwh": numeric(raw, "intensity_gco2_kwh"),
			"renewable_pct":      numeric(raw, "renewable_pct"),
		}, nil
	}
	return NewPoller("carbon_intensity", cfg, fetch, metrics)
}
