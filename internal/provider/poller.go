package provider

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/homegraph/ingestor/internal/config"
	"github.com/homegraph/ingestor/internal/model"
	"github.com/homegraph/ingestor/internal/telemetry"
)

// FetchFunc performs one upstream fetch and returns the flat field set for
// a Reading. It must respect ctx cancellation; Poller applies the provider
// poll timeout (spec.md §5, "provider poll 30s").
type FetchFunc func(ctx context.Context) (map[string]interface{}, error)

// Poller is the shared polling/cache/rate-limit engine used by every
// provider instance. It owns no knowledge of what it fetches.
type Poller struct {
	name    string
	cfg     config.ProviderConfig
	fetch   FetchFunc
	metrics *telemetry.Metrics

	cache   atomic.Pointer[model.Reading]
	group   singleflight.Group
	limiter *rate.Limiter

	pollCount     atomic.Int64
	failureCount  atomic.Int64
	lastSuccessAt atomic.Pointer[time.Time]
	lastError     atomic.Pointer[string]
}

const pollTimeout = 30 * time.Second

// NewPoller constructs a Poller for one provider instance.
func NewPoller(name string, cfg config.ProviderConfig, fetch FetchFunc, metrics *telemetry.Metrics) *Poller {
	limit := rate.Limit(float64(cfg.RateLimitPerMinute) / 60.0)
	if limit <= 0 {
		limit = rate.Inf
	}
	return &Poller{
		name:    name,
		cfg:     cfg,
		fetch:   fetch,
		metrics: metrics,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (p *Poller) Name() string { return p.name }

// Start begins the periodic refresh loop and blocks until ctx is cancelled.
// An initial refresh runs before the first tick, so Latest() has data
// without waiting a full RefreshEvery interval.
func (p *Poller) Start(ctx context.Context) error {
	p.refresh(ctx)

	ticker := time.NewTicker(p.cfg.RefreshEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

// Refresh forces an immediate poll, collapsing concurrent callers into a
// single in-flight fetch via singleflight (spec.md §3 invariant).
func (p *Poller) Refresh(ctx context.Context) {
	p.refresh(ctx)
}

func (p *Poller) refresh(ctx context.Context) {
	_, _, _ = p.group.Do(p.name, func() (interface{}, error) {
		p.pollCount.Add(1)
		if p.metrics != nil {
			p.metrics.ProviderPolls.Add(ctx, 1)
		}

		if err := p.limiter.Wait(ctx); err != nil {
			p.recordFailure(err)
			return nil, err
		}

		fetchCtx, cancel := context.WithTimeout(ctx, pollTimeout)
		defer cancel()

		fields, err := p.fetch(fetchCtx)
		if err != nil {
			p.recordFailure(err)
			return nil, err
		}

		now := time.Now().UTC()
		p.cache.Store(&model.Reading{Timestamp: now, Stale: false, Fields: fields})
		p.lastSuccessAt.Store(&now)
		p.lastError.Store(nil)
		return nil, nil
	})
}

func (p *Poller) recordFailure(err error) {
	p.failureCount.Add(1)
	msg := err.Error()
	p.lastError.Store(&msg)
	slog.Warn("provider poll failed", "provider", p.name, "error", err)
	if p.metrics != nil {
		p.metrics.ProviderFailures.Add(context.Background(), 1)
	}
}

// Latest returns the cached reading, marking it stale once older than TTL.
// Never blocks on network I/O.
func (p *Poller) Latest() model.Reading {
	r := p.cache.Load()
	if r == nil {
		return model.Reading{Stale: true}
	}
	out := *r
	out.Stale = time.Since(r.Timestamp) > p.cfg.TTL
	return out
}

// Health reports poll statistics for the /health surface.
func (p *Poller) Health() model.Health {
	h := model.Health{
		PollCount:    p.pollCount.Load(),
		FailureCount: p.failureCount.Load(),
		TTLSeconds:   p.cfg.TTL.Seconds(),
	}
	if t := p.lastSuccessAt.Load(); t != nil {
		h.LastSuccessAt = *t
		h.Stale = time.Since(*t) > p.cfg.TTL
	} else {
		h.Stale = true
	}
	if e := p.lastError.Load(); e != nil {
		h.LastError = *e
	}
	if p.pollCount.Load() > 0 {
		h.CacheHitRate = 1 - float64(p.failureCount.Load())/float64(p.pollCount.Load())
	}
	return h
}
