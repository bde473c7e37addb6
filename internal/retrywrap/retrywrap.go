// Package retrywrap centralizes the pipeline's retry policies. Every
// long-running component (hub reconnect, dispatch POST, batch flush,
// retention jobs) retries failures the same way: exponential backoff with
// jitter, a hard cap, and a bounded attempt count — the same shape the
// teacher's pkg/mcp/recovery.go and pkg/queue/worker.go hand-roll with
// math/rand/v2, expressed here with the ecosystem's own
// cenkalti/backoff/v4 instead of reimplementing it.
package retrywrap

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy configures one retry schedule.
type Policy struct {
	Initial    time.Duration
	Multiplier float64
	Max        time.Duration
	Jitter     float64 // fraction, e.g. 0.2 for ±20%
	MaxRetries int     // 0 means unlimited (bounded only by ctx)
}

// HubReconnect is the spec's §4.1 reconnect schedule: base 1s, factor 2,
// cap 60s, ±20% jitter, unbounded attempts (the watchdog/caller decides
// when to give up, not the policy).
func HubReconnect() Policy {
	return Policy{Initial: time.Second, Multiplier: 2, Max: 60 * time.Second, Jitter: 0.2}
}

// Dispatch is the spec's §4.1 dispatch POST schedule: waits of 1s, 2s, 4s,
// i.e. 3 retries after the first attempt.
func Dispatch() Policy {
	return Policy{Initial: time.Second, Multiplier: 2, Max: 4 * time.Second, Jitter: 0, MaxRetries: 3}
}

// BatchFlush is the spec's §4.2 batch flush schedule: 1/2/4/8s, ≤5 attempts.
func BatchFlush() Policy {
	return Policy{Initial: time.Second, Multiplier: 2, Max: 8 * time.Second, Jitter: 0, MaxRetries: 4}
}

// RetentionJob is the spec's §4.4 per-job retry schedule: 5 attempts,
// same exponential shape as batch flush but with jitter since multiple
// pods/processes may race on the same window.
func RetentionJob() Policy {
	return Policy{Initial: time.Second, Multiplier: 2, Max: 30 * time.Second, Jitter: 0.2, MaxRetries: 4}
}

func (p Policy) backoffImpl() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.Initial
	eb.Multiplier = p.Multiplier
	eb.MaxInterval = p.Max
	eb.RandomizationFactor = p.Jitter
	eb.MaxElapsedTime = 0 // bounded by MaxRetries/ctx instead
	var bo backoff.BackOff = eb
	if p.MaxRetries > 0 {
		bo = backoff.WithMaxRetries(bo, uint64(p.MaxRetries))
	}
	return bo
}

// Do runs fn under the policy, retrying on any non-nil error until success,
// attempts are exhausted, or ctx is cancelled. A *Permanent-wrapped error
// (see backoff.Permanent) stops retrying immediately — used for poison
// (4xx) responses that must not be retried.
func Do(ctx context.Context, p Policy, fn func() error) error {
	return backoff.Retry(fn, backoff.WithContext(p.backoffImpl(), ctx))
}

// Permanent marks err as non-retryable, matching the taxonomy in spec.md §7
// where validation/poison errors must not be retried.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
