package retention

import (
	"bytes"
	"context"
	"fmt"
	"time"

	gcs "cloud.google.com/go/storage"

	"github.com/homegraph/ingestor/internal/retrywrap"
	"github.com/homegraph/ingestor/internal/store"
)

// runArchive serializes cold rows older than the cold retention horizon as
// newline-delimited key=value rows (see encodeArchiveRows) and uploads them
// to object storage under a time-partitioned
// key, then deletes the source rows from the store only once the upload is
// confirmed (spec.md §4.4, "a failed archive step must not delete source
// rows").
func (e *Engine) runArchive(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-e.cfg.Cold.RetentionHorizon)
	windowEnd := cutoff.Truncate(24 * time.Hour)
	windowStart := windowEnd.Add(-24 * time.Hour)

	rq := store.RangeQuery{
		Bucket:      e.store.Bucket(),
		Measurement: e.cfg.Cold.MeasurementName,
		Start:       windowStart,
		Stop:        windowEnd,
		GroupBy:     []string{"entity_id", "domain"},
	}

	var rows []store.Row
	err := retrywrap.Do(ctx, retrywrap.RetentionJob(), func() error {
		var qErr error
		rows, qErr = e.store.Query(ctx, rq.Build())
		return qErr
	})
	if err != nil {
		return fmt.Errorf("archive: query cold rows: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	body := encodeArchiveRows(rows)
	key := archiveObjectKey(e.cfg.Archive.Prefix, windowStart, e.cfg.Cold.MeasurementName)

	if err := e.uploadArchive(ctx, key, body); err != nil {
		return fmt.Errorf("archive: upload %s: %w", key, err)
	}

	err = retrywrap.Do(ctx, retrywrap.RetentionJob(), func() error {
		return e.store.Delete(ctx, e.cfg.Cold.MeasurementName, windowStart, windowEnd)
	})
	if err != nil {
		return fmt.Errorf("archive: delete archived rows for %s: %w", key, err)
	}
	return nil
}

// archiveObjectKey builds the yyyy/mm/dd/{bucket}.ext key spec.md §4.4
// requires, using measurement as the object's base name.
func archiveObjectKey(prefix string, windowStart time.Time, measurement string) string {
	return fmt.Sprintf("%s/%s/%s.lp", prefix, windowStart.Format("2006/01/02"), measurement)
}

// encodeArchiveRows renders query result rows as a compact newline-delimited
// form; it carries whatever columns the query returned rather than
// re-deriving TimeSeriesPoints, since archived data is for cold storage and
// audit, not replay.
func encodeArchiveRows(rows []store.Row) []byte {
	var buf bytes.Buffer
	for _, row := range rows {
		first := true
		for k, v := range row {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			buf.WriteString(k)
			buf.WriteByte('=')
			buf.WriteString(v)
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func (e *Engine) uploadArchive(ctx context.Context, key string, body []byte) error {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("open object store client: %w", err)
	}
	defer client.Close()

	uploadCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	w := client.Bucket(e.cfg.Archive.ObjectStoreBucket).Object(key).NewWriter(uploadCtx)
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return fmt.Errorf("write object: %w", err)
	}
	return w.Close()
}
