package provider

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homegraph/ingestor/internal/config"
)

func newTestPoller(t *testing.T, ttl time.Duration, fetch FetchFunc) *Poller {
	t.Helper()
	return NewPoller("test", config.ProviderConfig{
		RefreshEvery:       time.Hour, // large; tests drive refresh explicitly
		TTL:                ttl,
		RateLimitPerMinute: 6000,
	}, fetch, nil)
}

func TestPollerLatestIsStaleBeforeFirstSuccess(t *testing.T) {
	p := newTestPoller(t, time.Minute, func(ctx context.Context) (map[string]interface{}, error) {
		return nil, fmt.Errorf("upstream down")
	})
	r := p.Latest()
	assert.True(t, r.Stale)
}

func TestPollerLatestNotStaleWithinTTL(t *testing.T) {
	p := newTestPoller(t, time.Minute, func(ctx context.Context) (map[string]interface{}, error) {
		return map[string]interface{}{"temperature_c": 21.0}, nil
	})
	p.Refresh(context.Background())

	r := p.Latest()
	require.False(t, r.Stale)
	assert.Equal(t, 21.0, r.Fields["temperature_c"])
}

func TestPollerServesStaleReadingPastTTLOnFailure(t *testing.T) {
	var fail atomic.Bool
	p := newTestPoller(t, 20*time.Millisecond, func(ctx context.Context) (map[string]interface{}, error) {
		if fail.Load() {
			return nil, fmt.Errorf("upstream down")
		}
		return map[string]interface{}{"temperature_c": 18.0}, nil
	})

	p.Refresh(context.Background())
	require.False(t, p.Latest().Stale)

	fail.Store(true)
	time.Sleep(30 * time.Millisecond)
	p.Refresh(context.Background()) // fails; cached reading must be retained

	r := p.Latest()
	assert.True(t, r.Stale, "reading older than TTL after a failed refresh must be marked stale")
	assert.Equal(t, 18.0, r.Fields["temperature_c"], "previous reading is retained on failure, not cleared")
}

func TestPollerRefreshCollapsesConcurrentCallsViaSingleflight(t *testing.T) {
	var calls atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})

	p := newTestPoller(t, time.Minute, func(ctx context.Context) (map[string]interface{}, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release
		}
		return map[string]interface{}{"n": float64(calls.Load())}, nil
	})

	done := make(chan struct{}, 2)
	go func() { p.Refresh(context.Background()); done <- struct{}{} }()
	<-started
	go func() { p.Refresh(context.Background()); done <- struct{}{} }()

	close(release)
	<-done
	<-done

	assert.Equal(t, int64(1), calls.Load(), "concurrent Refresh calls must collapse into a single in-flight fetch")
}

func TestPollerHealthReflectsPollAndFailureCounts(t *testing.T) {
	attempt := 0
	p := newTestPoller(t, time.Minute, func(ctx context.Context) (map[string]interface{}, error) {
		attempt++
		if attempt == 1 {
			return nil, fmt.Errorf("boom")
		}
		return map[string]interface{}{"ok": true}, nil
	})

	p.Refresh(context.Background())
	p.Refresh(context.Background())

	h := p.Health()
	assert.Equal(t, int64(2), h.PollCount)
	assert.Equal(t, int64(1), h.FailureCount)
	assert.Equal(t, 0.5, h.CacheHitRate)
	assert.False(t, h.Stale)
}
