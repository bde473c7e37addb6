// Package provider implements the EnrichmentProvider framework (spec.md
// §4.3): each instance runs a single polling loop, caches its latest
// reading in a single atomic slot, and serves it non-blocking with
// stale-on-failure semantics. Modeled on the teacher's pkg/mcp health
// monitor poll loop, generalized with a shared Poller instead of
// per-provider duplication.
package provider

import (
	"context"

	"github.com/homegraph/ingestor/internal/model"
)

// Provider is the narrow interface every enrichment provider implements —
// the spec's re-architecture of "deep inheritance and reflection" (§9) into
// one concrete struct per provider plus a shared helper.
type Provider interface {
	Name() string
	Start(ctx context.Context) error
	Latest() model.Reading
	Health() model.Health
}
