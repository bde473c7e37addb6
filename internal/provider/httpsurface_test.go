package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homegraph/ingestor/internal/model"
)

// fakeProvider implements Provider directly, without a Poller, so the
// HTTPSurface routing can be tested in isolation.
type fakeProvider struct {
	name   string
	latest model.Reading
	health model.Health
}

func (f *fakeProvider) Name() string                   { return f.name }
func (f *fakeProvider) Start(ctx context.Context) error { <-ctx.Done(); return ctx.Err() }
func (f *fakeProvider) Latest() model.Reading           { return f.latest }
func (f *fakeProvider) Health() model.Health            { return f.health }

func TestHTTPSurfaceRoutesPerProviderHealthAndLatest(t *testing.T) {
	weather := &fakeProvider{
		name:   "weather",
		latest: model.Reading{Timestamp: time.Now(), Fields: map[string]interface{}{"temperature_c": 21.0}},
		health: model.Health{PollCount: 5, CacheHitRate: 1},
	}
	carbon := &fakeProvider{
		name:   "carbon_intensity",
		latest: model.Reading{Stale: true},
		health: model.Health{Stale: true},
	}

	surface := NewHTTPSurface(":0", map[string]Provider{
		"weather":          weather,
		"carbon_intensity": carbon,
	})

	srv := httptest.NewServer(surface.engine)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/weather/latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reading model.Reading
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reading))
	assert.Equal(t, 21.0, reading.Fields["temperature_c"])

	resp2, err := http.Get(srv.URL + "/carbon_intensity/health")
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var health model.Health
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&health))
	assert.True(t, health.Stale)
}

func TestHTTPSurfaceUnknownProviderPath404s(t *testing.T) {
	surface := NewHTTPSurface(":0", map[string]Provider{
		"weather": &fakeProvider{name: "weather"},
	})
	srv := httptest.NewServer(surface.engine)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/smart_meter/latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
