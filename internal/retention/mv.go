package retention

import (
	"context"
	"time"

	"github.com/homegraph/ingestor/internal/model"
	"github.com/homegraph/ingestor/internal/retrywrap"
	"github.com/homegraph/ingestor/internal/store"
)

// refreshView re-executes one materialized view's query and persists its
// result as one point per grouped row to dest, so the view is a genuine
// pre-computed aggregate rather than a throwaway query. Each view runs on
// its own scheduled job (see Engine.jobs), so one view's failure never
// blocks another's (spec.md §4.4, "failure of one view must not block
// others").
func (e *Engine) refreshView(ctx context.Context, name, query, dest string) error {
	now := time.Now().UTC()

	var rows []store.Row
	err := retrywrap.Do(ctx, retrywrap.RetentionJob(), func() error {
		var qErr error
		rows, qErr = e.store.Query(ctx, query)
		return qErr
	})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	points := make([]model.TimeSeriesPoint, 0, len(rows))
	for _, row := range rows {
		v, ok := parseRowValue(row)
		if !ok {
			continue
		}
		tags := map[string]string{}
		for k, val := range row {
			if k == "_value" || k == "_time" || k == "_start" || k == "_stop" || k == "_field" || k == "_measurement" || k == "result" || k == "table" {
				continue
			}
			tags[k] = val
		}
		points = append(points, model.TimeSeriesPoint{
			Measurement: dest,
			Tags:        tags,
			Fields:      map[string]interface{}{"value": v},
			Timestamp:   now,
		})
	}
	if len(points) == 0 {
		return nil
	}

	batch := model.WriteBatch{ID: "mv-" + name + "-" + now.Format(time.RFC3339), Points: points, FirstEnqueue: now}
	return retrywrap.Do(ctx, retrywrap.RetentionJob(), func() error {
		return e.store.WriteBatch(ctx, batch)
	})
}
