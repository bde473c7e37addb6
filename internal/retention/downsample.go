package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/homegraph/ingestor/internal/model"
	"github.com/homegraph/ingestor/internal/retrywrap"
	"github.com/homegraph/ingestor/internal/store"
)

// aggregateFuncs is the fixed aggregate set spec.md §4.4 names for every
// downsample and tier-move sweep.
var aggregateFuncs = []string{"count", "mean", "min", "max", "last"}

// runDownsample computes count/mean/min/max/last of state_numeric per
// (entity_id, domain) for the previous full hour and writes one point per
// group to the warm measurement. The window's start timestamp is the
// point's timestamp, so re-running the same hour overwrites the same rows
// rather than appending duplicates (spec.md §8 Testable Properties #6).
func (e *Engine) runDownsample(ctx context.Context) error {
	end := time.Now().UTC().Truncate(time.Hour)
	start := end.Add(-time.Hour)
	return e.runAggregateSweep(ctx, "downsample_hourly", model.TierHot, model.TierWarm, start, end)
}

// runTierMove applies the identical aggregate sweep at day granularity,
// reading warm's already-downsampled rows and writing to cold.
func (e *Engine) runTierMove(ctx context.Context) error {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.Add(-24 * time.Hour)
	return e.runAggregateSweep(ctx, "tier_move_daily", model.TierWarm, model.TierCold, start, end)
}

func (e *Engine) runAggregateSweep(ctx context.Context, jobName string, from, to model.RetentionTierName, start, end time.Time) error {
	tier := e.tier(from, to)

	groups := map[string]model.TimeSeriesPoint{}
	for _, fn := range aggregateFuncs {
		rq := store.RangeQuery{
			Bucket:         e.store.Bucket(),
			Measurement:    tier.SourceMeasurement,
			Start:          start,
			Stop:           end,
			GroupBy:        []string{"entity_id", "domain"},
			AggregateFuncs: []string{fn},
		}

		var rows []store.Row
		err := retrywrap.Do(ctx, retrywrap.RetentionJob(), func() error {
			var qErr error
			rows, qErr = e.store.Query(ctx, rq.Build())
			return qErr
		})
		if err != nil {
			return fmt.Errorf("%s: query %s: %w", jobName, fn, err)
		}

		for _, row := range rows {
			key := row["entity_id"] + "|" + row["domain"]
			pt, ok := groups[key]
			if !ok {
				pt = model.TimeSeriesPoint{
					Measurement: tier.DestMeasurement,
					Tags: map[string]string{
						"entity_id": row["entity_id"],
						"domain":    row["domain"],
					},
					Fields:    map[string]interface{}{},
					Timestamp: start,
				}
			}
			if v, ok := parseRowValue(row); ok {
				pt.Fields["state_numeric_"+fn] = v
			}
			groups[key] = pt
		}
	}

	if len(groups) == 0 {
		return nil
	}

	points := make([]model.TimeSeriesPoint, 0, len(groups))
	for _, pt := range groups {
		points = append(points, pt)
	}

	batch := model.WriteBatch{ID: jobName + "-" + start.Format(time.RFC3339), Points: points, FirstEnqueue: start}
	return retrywrap.Do(ctx, retrywrap.RetentionJob(), func() error {
		return e.store.WriteBatch(ctx, batch)
	})
}

// parseRowValue extracts the numeric aggregate value from a decoded query
// row. The store's annotated-CSV response carries it under "_value".
func parseRowValue(row store.Row) (float64, bool) {
	raw, ok := row["_value"]
	if !ok || raw == "" {
		return 0, false
	}
	var f float64
	if _, err := fmt.Sscanf(raw, "%g", &f); err != nil {
		return 0, false
	}
	return f, true
}

func (e *Engine) tier(from, to model.RetentionTierName) model.RetentionTier {
	switch {
	case from == model.TierHot && to == model.TierWarm:
		return model.RetentionTier{
			Name:              model.TierWarm,
			SourceMeasurement: e.cfg.Hot.MeasurementName,
			DestMeasurement:   e.cfg.Warm.MeasurementName,
			DownsampleWindow:  e.cfg.Warm.DownsampleWindow,
			RetentionHorizon:  e.cfg.Warm.RetentionHorizon,
			AggregationFuncs:  aggregateFuncs,
		}
	default:
		return model.RetentionTier{
			Name:              model.TierCold,
			SourceMeasurement: e.cfg.Warm.MeasurementName,
			DestMeasurement:   e.cfg.Cold.MeasurementName,
			DownsampleWindow:  e.cfg.Cold.DownsampleWindow,
			RetentionHorizon:  e.cfg.Cold.RetentionHorizon,
			AggregationFuncs:  aggregateFuncs,
		}
	}
}
