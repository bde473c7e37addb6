// Package enrichment implements EnrichmentService: HTTP intake, the
// validate→normalize→enrich→shape→batch pipeline, and the batched
// TimeSeriesStore writer (spec.md §4.2).
package enrichment

import (
	"context"
	"log/slog"
	"time"

	"github.com/homegraph/ingestor/internal/config"
	"github.com/homegraph/ingestor/internal/model"
	"github.com/homegraph/ingestor/internal/normalize"
	"github.com/homegraph/ingestor/internal/provider"
	"github.com/homegraph/ingestor/internal/telemetry"
	"github.com/homegraph/ingestor/internal/validate"
)

// Pipeline wires the four in-process stages that turn a validated RawEvent
// into a TimeSeriesPoint handed to the BatchWriter.
type Pipeline struct {
	providers             map[string]provider.Provider
	batch                 *BatchWriter
	metrics               *telemetry.Metrics
	warnDurationThreshold time.Duration
}

// NewPipeline constructs a Pipeline over the given provider set.
func NewPipeline(cfg config.EnrichmentConfig, providers map[string]provider.Provider, batch *BatchWriter, metrics *telemetry.Metrics) *Pipeline {
	return &Pipeline{
		providers:             providers,
		batch:                 batch,
		metrics:               metrics,
		warnDurationThreshold: cfg.WarnDurationThreshold,
	}
}

// Process runs one RawEvent through validate, normalize, enrich, and shape,
// then hands the resulting point to the BatchWriter. The returned error, if
// any, is a *validate.ErrValidation suitable for a 400 response.
func (p *Pipeline) Process(ctx context.Context, raw *model.RawEvent, inboundCorrelationID string) error {
	if err := validate.Event(raw); err != nil {
		if p.metrics != nil {
			p.metrics.ValidationErrors.Add(ctx, 1)
		}
		return err
	}

	normalized, err := normalize.Event(raw, inboundCorrelationID)
	if err != nil {
		if p.metrics != nil {
			p.metrics.ValidationErrors.Add(ctx, 1)
		}
		return &validate.ErrValidation{Code: validate.CodeMalformedTimestamp, Field: "time_fired"}
	}

	if normalized.DurationInState != nil && time.Duration(*normalized.DurationInState*float64(time.Second)) > p.warnDurationThreshold {
		slog.Warn("duration_in_state_seconds exceeds warn threshold",
			"correlation_id", normalized.CorrelationID,
			"entity_id", normalized.EntityID,
			"duration_seconds", *normalized.DurationInState)
	}

	enriched := p.enrich(normalized)
	point := BuildPoint(enriched)
	p.batch.Add(point)
	return nil
}

// enrich copies each configured provider's current snapshot onto the
// event. Enrichment never blocks on network I/O — Latest() only reads an
// atomic cache slot (spec.md §4.2 stage 3).
func (p *Pipeline) enrich(n *model.NormalizedEvent) *model.EnrichedEvent {
	e := &model.EnrichedEvent{
		NormalizedEvent: *n,
		Providers:       make(map[string]model.ProviderSnapshot, len(p.providers)),
	}
	for name, prov := range p.providers {
		reading := prov.Latest()
		e.Providers[name] = model.ProviderSnapshot{
			Name:      name,
			Timestamp: reading.Timestamp,
			Stale:     reading.Stale,
			Fields:    reading.Fields,
		}
	}
	return e
}
