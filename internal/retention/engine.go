// Package retention implements RetentionEngine: scheduled, idempotent
// sweeps that move data through the hot→warm→cold→archive lifecycle and
// refresh materialized views (spec.md §4.4). Modeled on the teacher's
// pkg/cleanup.Service — one ticker-driven loop per job, each run computing
// its own window from wall-clock time rather than tracking progress, so a
// missed tick is simply caught up by the next one.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/homegraph/ingestor/internal/config"
	"github.com/homegraph/ingestor/internal/store"
	"github.com/homegraph/ingestor/internal/telemetry"
)

// Engine owns the five scheduled jobs named in spec.md §4.4: hourly
// downsample, daily tier-move, daily archive, configurable materialized
// view refresh, and the 15-minute analytics collector.
type Engine struct {
	cfg     config.RetentionConfig
	store   *store.Client
	metrics *telemetry.Metrics
	locks   *jobLock

	cancel context.CancelFunc
}

// job is one named, independently scheduled sweep.
type job struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error
}

// New constructs a RetentionEngine against the given TimeSeriesStore client.
func New(cfg config.RetentionConfig, storeClient *store.Client, metrics *telemetry.Metrics) *Engine {
	return &Engine{
		cfg:     cfg,
		store:   storeClient,
		metrics: metrics,
		locks:   newJobLock(),
	}
}

// Start launches every job's ticker loop. Each job also runs once
// immediately so a freshly started engine doesn't wait a full interval
// before its first sweep.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	for _, j := range e.jobs() {
		j := j
		go e.runLoop(ctx, j)
	}
}

// Stop cancels all job loops. In-flight jobs are given no special grace
// period: each sweep is individually retried and idempotent, so an
// interrupted run is simply repeated on next start.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
}

func (e *Engine) jobs() []job {
	jobs := []job{
		{name: "downsample_hourly", interval: time.Hour, run: e.runDownsample},
		{name: "tier_move_daily", interval: 24 * time.Hour, run: e.runTierMove},
		{name: "archive_daily", interval: 24 * time.Hour, run: e.runArchive},
		{name: "analytics", interval: e.cfg.AnalyticsInterval, run: e.runAnalytics},
	}
	for _, view := range e.cfg.MaterializedViews {
		view := view
		jobs = append(jobs, job{
			name:     "materialized_view:" + view.Name,
			interval: view.RefreshInterval,
			run: func(ctx context.Context) error {
				return e.refreshView(ctx, view.Name, view.Query, view.DestMeasurement)
			},
		})
	}
	return jobs
}

func (e *Engine) runLoop(ctx context.Context, j job) {
	e.runOnce(ctx, j)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.runOnce(ctx, j)
		}
	}
}

func (e *Engine) runOnce(ctx context.Context, j job) {
	if !e.locks.tryAcquire(j.name) {
		slog.Warn("retention job still running, skipping this tick", "job", j.name)
		return
	}
	defer e.locks.release(j.name)

	if e.metrics != nil {
		e.metrics.RetentionJobRuns.Add(ctx, 1)
	}
	if err := j.run(ctx); err != nil {
		slog.Error("retention job failed", "job", j.name, "error", err)
		if e.metrics != nil {
			e.metrics.RetentionJobErrors.Add(ctx, 1)
		}
		return
	}
	slog.Info("retention job completed", "job", j.name)
}
