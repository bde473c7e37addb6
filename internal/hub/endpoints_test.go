package hub

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homegraph/ingestor/internal/config"
)

func threeEndpoints() []config.HubEndpoint {
	return []config.HubEndpoint{
		{Name: "b", Priority: 1},
		{Name: "a", Priority: 0},
		{Name: "c", Priority: 2},
	}
}

func TestNewEndpointSetSortsByPriority(t *testing.T) {
	es := newEndpointSet(threeEndpoints())
	require.Equal(t, "a", es.active().Name)
	assert.True(t, es.isPrimary())
}

func TestRotateWrapsAndAdvances(t *testing.T) {
	es := newEndpointSet(threeEndpoints())
	assert.Equal(t, "b", es.rotate().Name)
	assert.False(t, es.isPrimary())
	assert.Equal(t, "c", es.rotate().Name)
	assert.Equal(t, "a", es.rotate().Name, "rotate must wrap back to the first endpoint")
	assert.True(t, es.isPrimary())
}

func TestSetActiveReturnsToPrimary(t *testing.T) {
	es := newEndpointSet(threeEndpoints())
	es.rotate()
	require.False(t, es.isPrimary())
	es.setActive(0)
	assert.True(t, es.isPrimary())
	assert.Equal(t, "a", es.active().Name)
}

// TestEndpointSetConcurrentAccessDoesNotRace exercises rotate and
// setActive from concurrent goroutines, the same pattern runLoop and
// watchForPrimary use on a live *Client: this must pass under `go test
// -race` without the race detector flagging activeIdx.
func TestEndpointSetConcurrentAccessDoesNotRace(t *testing.T) {
	es := newEndpointSet(threeEndpoints())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() { defer wg.Done(); es.rotate() }()
		go func() { defer wg.Done(); es.setActive(0) }()
		go func() { defer wg.Done(); _ = es.active() }()
	}
	wg.Wait()

	// No assertion on final state: the point is the absence of a data
	// race, not a deterministic outcome from unordered concurrent writes.
	_ = es.active()
}
