package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/homegraph/ingestor/internal/config"
	"github.com/homegraph/ingestor/internal/model"
	"github.com/homegraph/ingestor/internal/retrywrap"
	"github.com/homegraph/ingestor/internal/telemetry"
	"github.com/homegraph/ingestor/internal/version"
)

// Dispatcher owns the bounded channel between the hub read loop and the
// pool of workers POSTing events to the EnrichmentService (spec.md §4.1,
// "Downstream dispatch"). Modeled on the teacher's pkg/queue.WorkerPool.
type Dispatcher struct {
	cfg     config.IngestionConfig
	metrics *telemetry.Metrics
	client  *http.Client

	queue chan *model.RawEvent

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewDispatcher constructs a Dispatcher. Call Start before Enqueue, and
// Stop to shut the workers down.
func NewDispatcher(cfg config.IngestionConfig, metrics *telemetry.Metrics) *Dispatcher {
	return &Dispatcher{
		cfg:     cfg,
		metrics: metrics,
		client:  &http.Client{Timeout: cfg.DispatchTimeout},
		queue:   make(chan *model.RawEvent, cfg.QueueCapacity),
	}
}

// Start launches the configured number of dispatch workers.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	for i := 0; i < d.cfg.DispatchWorkers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop cancels the workers' context and waits for the workers to exit. A
// POST in progress is aborted with that context, and events still in the
// queue are not sent.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

// Enqueue hands a raw event to a dispatch worker without blocking. When the
// queue is full, the oldest queued event is dropped to make room — the
// documented overflow policy (spec.md §4.1, §9 Open Questions). Returns
// true if the event was accepted (queued, not necessarily forwarded).
func (d *Dispatcher) Enqueue(e *model.RawEvent) bool {
	select {
	case d.queue <- e:
		return true
	default:
	}

	select {
	case <-d.queue:
		if d.metrics != nil {
			d.metrics.DroppedEvents.Add(context.Background(), 1)
		}
	default:
	}

	select {
	case d.queue <- e:
		return true
	default:
		return false
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	log := slog.With("dispatcher_worker", id)
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-d.queue:
			if !ok {
				return
			}
			if err := d.send(ctx, e); err != nil {
				log.Warn("event dispatch failed permanently", "entity_id", e.EntityID, "error", err)
				if d.metrics != nil {
					d.metrics.DispatchFailed.Add(ctx, 1)
				}
			}
		}
	}
}

// send POSTs a single event to the EnrichmentService, retrying transient
// failures per spec.md §4.1: 2xx accepted, 4xx poison (not retried), 5xx
// and network errors retried with backoff.
func (d *Dispatcher) send(ctx context.Context, e *model.RawEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	policy := retrywrap.Dispatch()
	return retrywrap.Do(ctx, policy, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.EnrichmentBaseURL+"/events", bytes.NewReader(body))
		if err != nil {
			return retrywrap.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Correlation-ID", e.Context.ID)
		req.Header.Set("User-Agent", version.Full())

		resp, err := d.client.Do(req)
		if err != nil {
			return err
		}
		defer func() {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return nil
		case resp.StatusCode == http.StatusServiceUnavailable:
			return fmt.Errorf("enrichment service saturated: %d", resp.StatusCode)
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return retrywrap.Permanent(fmt.Errorf("enrichment service rejected event: %d", resp.StatusCode))
		default:
			return fmt.Errorf("enrichment service error: %d", resp.StatusCode)
		}
	})
}
