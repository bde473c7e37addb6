package retention

import (
	"context"
	"time"

	"github.com/homegraph/ingestor/internal/model"
	"github.com/homegraph/ingestor/internal/retrywrap"
	"github.com/homegraph/ingestor/internal/store"
)

// analyticsMeasurement is the measurement the cardinality/growth collector
// writes its own observations to, separate from the telemetry data itself.
const analyticsMeasurement = "ingestor_storage_analytics"

// runAnalytics counts the entity_id series seen in each tier's measurement
// over the trailing hour and records those counts as a point in
// analyticsMeasurement; row counts and storage growth are not recorded,
// giving operators a cheap signal for unplanned cardinality growth
// (spec.md §4.4, "Materialized-view refresher" sibling job).
func (e *Engine) runAnalytics(ctx context.Context) error {
	now := time.Now().UTC()
	start := now.Add(-time.Hour)

	fields := map[string]interface{}{}
	for _, tier := range []struct {
		name        string
		measurement string
	}{
		{"hot", e.cfg.Hot.MeasurementName},
		{"warm", e.cfg.Warm.MeasurementName},
		{"cold", e.cfg.Cold.MeasurementName},
	} {
		rq := store.RangeQuery{
			Bucket:         e.store.Bucket(),
			Measurement:    tier.measurement,
			Start:          start,
			Stop:           now,
			GroupBy:        []string{"entity_id"},
			AggregateFuncs: []string{"count"},
		}
		var rows []store.Row
		err := retrywrap.Do(ctx, retrywrap.RetentionJob(), func() error {
			var qErr error
			rows, qErr = e.store.Query(ctx, rq.Build())
			return qErr
		})
		if err != nil {
			continue // one tier's query failing must not block the others
		}
		fields[tier.name+"_series_cardinality"] = float64(len(rows))
	}

	if len(fields) == 0 {
		return nil
	}

	point := model.TimeSeriesPoint{
		Measurement: analyticsMeasurement,
		Tags:        map[string]string{},
		Fields:      fields,
		Timestamp:   now,
	}
	batch := model.WriteBatch{ID: "analytics-" + now.Format(time.RFC3339), Points: []model.TimeSeriesPoint{point}, FirstEnqueue: now}
	return retrywrap.Do(ctx, retrywrap.RetentionJob(), func() error {
		return e.store.WriteBatch(ctx, batch)
	})
}
