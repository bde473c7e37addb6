package hub

import (
	"sort"
	"sync"

	"github.com/homegraph/ingestor/internal/config"
)

// endpointSet holds the ordered, priority-sorted endpoint list and tracks
// which one is currently active, matching spec.md §4.1's failover model.
// activeIdx is guarded by mu: runLoop's rotate() on failure and
// watchForPrimary's setActive(0) reattempt run as concurrent goroutines
// against the same set.
type endpointSet struct {
	endpoints []config.HubEndpoint // sorted ascending by Priority

	mu        sync.Mutex
	activeIdx int
}

func newEndpointSet(cfg []config.HubEndpoint) *endpointSet {
	sorted := make([]config.HubEndpoint, len(cfg))
	copy(sorted, cfg)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority < sorted[j].Priority })
	return &endpointSet{endpoints: sorted}
}

func (es *endpointSet) active() config.HubEndpoint {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.endpoints[es.activeIdx]
}

func (es *endpointSet) isPrimary() bool {
	es.mu.Lock()
	defer es.mu.Unlock()
	return es.activeIdx == 0
}

// rotate advances to the next endpoint in priority order, wrapping back to
// the start. Called after a hard failure of the active endpoint.
func (es *endpointSet) rotate() config.HubEndpoint {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.activeIdx = (es.activeIdx + 1) % len(es.endpoints)
	return es.endpoints[es.activeIdx]
}

func (es *endpointSet) setActive(idx int) {
	es.mu.Lock()
	defer es.mu.Unlock()
	es.activeIdx = idx
}
