package enrichment

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/homegraph/ingestor/internal/config"
	"github.com/homegraph/ingestor/internal/model"
	"github.com/homegraph/ingestor/internal/retrywrap"
	"github.com/homegraph/ingestor/internal/store"
	"github.com/homegraph/ingestor/internal/telemetry"
)

// BatchWriter accumulates TimeSeriesPoints and flushes them as a whole
// batch either when batch_size is reached or batch_timeout elapses,
// whichever comes first (spec.md §4.2 stage 5). A flush failure retries
// whole-batch with exponential backoff; exhaustion falls through to the
// dead-letter log.
type BatchWriter struct {
	cfg        config.EnrichmentConfig
	store      *store.Client
	deadLetter *DeadLetterWriter
	metrics    *telemetry.Metrics

	mu      sync.Mutex
	pending []model.TimeSeriesPoint
	first   time.Time

	flushCh chan struct{}
	done    chan struct{}
}

// NewBatchWriter constructs a BatchWriter.
func NewBatchWriter(cfg config.EnrichmentConfig, storeClient *store.Client, deadLetter *DeadLetterWriter, metrics *telemetry.Metrics) *BatchWriter {
	return &BatchWriter{
		cfg:        cfg,
		store:      storeClient,
		deadLetter: deadLetter,
		metrics:    metrics,
		flushCh:    make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Add appends a point, triggering an immediate flush if batch_size is
// reached. Safe for concurrent use by intake workers.
func (w *BatchWriter) Add(p model.TimeSeriesPoint) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.first = time.Now()
	}
	w.pending = append(w.pending, p)
	full := len(w.pending) >= w.cfg.BatchSize
	w.mu.Unlock()

	if full {
		w.requestFlush()
	}
}

func (w *BatchWriter) requestFlush() {
	select {
	case w.flushCh <- struct{}{}:
	default:
	}
}

// Run drives the timeout-triggered flush loop until ctx is cancelled, at
// which point it performs one final flush of whatever remains.
func (w *BatchWriter) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.BatchTimeout)
	defer ticker.Stop()
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			w.flush(context.Background())
			return
		case <-ticker.C:
			w.flush(ctx)
		case <-w.flushCh:
			w.flush(ctx)
		}
	}
}

// Drained blocks until Run's final flush has completed.
func (w *BatchWriter) Drained() <-chan struct{} { return w.done }

func (w *BatchWriter) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := model.WriteBatch{
		ID:           uuid.New().String(),
		Points:       w.pending,
		FirstEnqueue: w.first,
	}
	w.pending = nil
	w.mu.Unlock()

	err := retrywrap.Do(ctx, retrywrap.BatchFlush(), func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, w.cfg.FlushTimeout)
		defer cancel()
		return w.store.WriteBatch(attemptCtx, batch)
	})

	if err != nil {
		slog.Error("batch flush exhausted retries, dead-lettering", "batch_id", batch.ID, "points", len(batch.Points), "error", err)
		if w.metrics != nil {
			w.metrics.BatchFlushFailures.Add(ctx, 1)
			w.metrics.DeadLettered.Add(ctx, int64(len(batch.Points)))
		}
		if dlErr := w.deadLetter.Write(batch, err); dlErr != nil {
			slog.Error("failed to write dead-letter entry", "batch_id", batch.ID, "error", dlErr)
		}
		return
	}

	if w.metrics != nil {
		w.metrics.BatchFlushes.Add(ctx, 1)
	}
}
