package provider

import (
	"context"

	"github.com/homegraph/ingestor/internal/config"
	"github.com/homegraph/ingestor/internal/telemetry"
)

// NewEnergyPricing builds the electricity-pricing provider (spec.md §4.3):
// current price per kWh plus a forecast window up to 24h out.
func NewEnergyPricing(cfg config.ProviderConfig, metrics *telemetry.Metrics) *Poller {
	fetch := func(ctx context.Context) (map[string]interface{}, error) {
		raw, err := getJSON(ctx, cfg.URL, apiKeyHeader(cfg))
		if err != nil {
			return nil, err
		}
		fields := map[string]interface{}{
			"price_per_kwh": numeric(raw, "price_per_kwh"),
			"currency":      stringField(raw, "currency"),
		}
		if forecast, ok := raw["forecast"]; ok {
			fields["forecast"] = forecast
		}
		return fields, nil
	}
	return NewPoller("energy_pricing", cfg, fetch, metrics)
}
