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

	"github.com/homegraph/ingestor/internal/config"
)

func TestWeatherProviderFetchesAndShapesUpstreamFields(t *testing.T) {
	var gotQuery string
	var gotAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"temperature_c": 19.5,
			"humidity_pct":  60.0,
			"pressure_hpa":  1013.0,
			"wind_speed_ms": 3.2,
			"condition":     "Rain",
			"description":   "light rain",
		})
	}))
	t.Cleanup(upstream.Close)

	cfg := config.ProviderConfig{
		URL:         upstream.URL,
		Location:    "52.5,13.4",
		TTL:         time.Minute,
		Credentials: map[string]string{"api_key": "secret-token"},
	}
	poller := NewWeather(cfg, nil)

	poller.Refresh(context.Background())
	reading := poller.Latest()

	require.False(t, reading.Stale)
	assert.Equal(t, "location=52.5,13.4", gotQuery)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, 19.5, reading.Fields["temperature_c"])
	assert.Equal(t, "Rain", reading.Fields["condition"])
}

func TestWeatherProviderUpstreamErrorLeavesReadingStale(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(upstream.Close)

	poller := NewWeather(config.ProviderConfig{URL: upstream.URL}, nil)
	poller.Refresh(context.Background())

	assert.True(t, poller.Latest().Stale)
}
