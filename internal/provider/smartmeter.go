package provider

import (
	"context"

	"github.com/homegraph/ingestor/internal/config"
	"github.com/homegraph/ingestor/internal/telemetry"
)

// NewSmartMeter builds the smart-meter provider (spec.md §4.3): whole-home
// power draw and, when the upstream exposes it, per-circuit breakdown.
func NewSmartMeter(cfg config.ProviderConfig, metrics *telemetry.Metrics) *Poller {
	fetch := func(ctx context.Context) (map[string]interface{}, error) {
		raw, err := getJSON(ctx, cfg.URL, apiKeyHeader(cfg))
		if err != nil {
			return nil, err
		}
		fields := map[string]interface{}{
			"power_w": numeric(raw, "power_w"),
		}
		if circuits, ok := raw["circuits"]; ok {
			fields["circuits"] = circuits
		}
		return fields, nil
	}
	return NewPoller("smart_meter", cfg, fetch, metrics)
}
