package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homegraph/ingestor/internal/config"
)

func writeJSONFrame(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

// testEventFrame mirrors frame's anonymous Event field shape so tests can
// construct event messages without reaching into frame's unexported
// anonymous struct type.
type testEventFrame struct {
	Type  string `json:"type"`
	Event struct {
		EventType string          `json:"event_type"`
		Data      eventData       `json:"data"`
		TimeFired string          `json:"time_fired"`
		Origin    string          `json:"origin"`
		Context   contextEnvelope `json:"context"`
	} `json:"event"`
}

func newFakeHubServer(t *testing.T, handler func(ctx context.Context, conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		handler(r.Context(), conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(httpURL string) string {
	return "ws" + httpURL[len("http"):]
}

// performHandshake runs the server side of auth + subscribe, returning once
// the client's subscribe_events has been acknowledged. If reject is true,
// auth_invalid is sent instead of auth_ok regardless of the token the
// client presents, and the function returns false without subscribing.
func performHandshake(t *testing.T, ctx context.Context, conn *websocket.Conn, reject bool) bool {
	t.Helper()
	require.NoError(t, writeFrame(ctx, conn, frame{Type: "auth_required"}))

	var authFrame frame
	require.NoError(t, readFrame(ctx, conn, &authFrame))
	require.Equal(t, "auth", authFrame.Type)

	if reject {
		_ = writeFrame(ctx, conn, frame{Type: "auth_invalid"})
		return false
	}
	require.NoError(t, writeFrame(ctx, conn, frame{Type: "auth_ok"}))

	var subFrame frame
	require.NoError(t, readFrame(ctx, conn, &subFrame))
	require.Equal(t, "subscribe_events", subFrame.Type)
	require.NoError(t, writeFrame(ctx, conn, frame{Type: "result", ID: subFrame.ID, Success: true}))
	return true
}

func baseHubConfig(endpoints ...config.HubEndpoint) config.HubConfig {
	return config.HubConfig{
		Endpoints:                  endpoints,
		ReconnectToPrimaryInterval: time.Hour, // don't let watchForPrimary interfere
		EventSilenceThreshold:      2 * time.Second,
		AuthTimeout:                time.Second,
		SubscribeTimeout:           time.Second,
		SubscribeSettleDelay:       time.Millisecond,
	}
}

func TestClientConnectsAuthenticatesSubscribesAndForwardsEvent(t *testing.T) {
	srv := newFakeHubServer(t, func(ctx context.Context, conn *websocket.Conn) {
		if !performHandshake(t, ctx, conn, false) {
			return
		}
		ev := testEventFrame{Type: "event"}
		ev.Event.EventType = "state_changed"
		ev.Event.Data.EntityID = "light.kitchen"
		ev.Event.Data.NewState = &stateEnvelope{State: "on"}
		ev.Event.TimeFired = time.Now().UTC().Format(time.RFC3339)
		ev.Event.Origin = "LOCAL"
		ev.Event.Context = contextEnvelope{ID: "ctx-1"}
		require.NoError(t, writeJSONFrame(ctx, conn, ev))

		<-ctx.Done() // keep the connection open past the event
	})

	cfg := baseHubConfig(config.HubEndpoint{Name: "primary", URL: wsURL(srv.URL), Token: "tok-primary", Priority: 0})
	dispatcher := NewDispatcher(dispatchConfigForTest(), nil)
	client := New(cfg, dispatcher, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, client.Start(ctx))
	t.Cleanup(client.Stop)

	require.Eventually(t, func() bool {
		return client.Health().EventsReceived == 1
	}, time.Second, 10*time.Millisecond)

	h := client.Health()
	assert.True(t, h.Connected)
	assert.True(t, h.Authenticated)
	assert.Equal(t, "running", h.State)
	assert.Equal(t, "primary", h.ActiveEndpoint)
	assert.Equal(t, int64(1), h.EventsForwarded)
}

func TestClientRotatesToSecondaryOnAuthInvalid(t *testing.T) {
	primary := newFakeHubServer(t, func(ctx context.Context, conn *websocket.Conn) {
		performHandshake(t, ctx, conn, true)
	})
	secondary := newFakeHubServer(t, func(ctx context.Context, conn *websocket.Conn) {
		performHandshake(t, ctx, conn, false)
		<-ctx.Done()
	})

	cfg := baseHubConfig(
		config.HubEndpoint{Name: "primary", URL: wsURL(primary.URL), Token: "tok-primary", Priority: 0},
		config.HubEndpoint{Name: "secondary", URL: wsURL(secondary.URL), Token: "tok-secondary", Priority: 1},
	)
	dispatcher := NewDispatcher(dispatchConfigForTest(), nil)
	client := New(cfg, dispatcher, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, client.Start(ctx))
	t.Cleanup(client.Stop)

	require.Eventually(t, func() bool {
		return client.Health().ActiveEndpoint == "secondary" && client.Health().Connected
	}, 4*time.Second, 20*time.Millisecond, "client must rotate off an endpoint that rejects credentials")
}

func TestClientReconnectsAfterSilenceExceedsThreshold(t *testing.T) {
	var attempts atomic.Int64
	srv := newFakeHubServer(t, func(ctx context.Context, conn *websocket.Conn) {
		attempts.Add(1)
		if !performHandshake(t, ctx, conn, false) {
			return
		}
		<-ctx.Done() // never sends another frame; the client's watchdog must fire
	})

	cfg := baseHubConfig(config.HubEndpoint{Name: "primary", URL: wsURL(srv.URL), Token: "tok", Priority: 0})
	cfg.EventSilenceThreshold = 50 * time.Millisecond
	dispatcher := NewDispatcher(dispatchConfigForTest(), nil)
	client := New(cfg, dispatcher, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, client.Start(ctx))
	t.Cleanup(client.Stop)

	require.Eventually(t, func() bool {
		return attempts.Load() >= 2
	}, 3*time.Second, 10*time.Millisecond, "a silent connection past EventSilenceThreshold must be dropped and retried")

	assert.GreaterOrEqual(t, client.Health().ReconnectCount, int64(1))
}

func dispatchConfigForTest() config.IngestionConfig {
	return config.IngestionConfig{
		EnrichmentBaseURL: "http://127.0.0.1:0", // never actually dialed in these tests
		QueueCapacity:     10,
		DispatchWorkers:   0,
		DispatchRetries:   1,
		DispatchTimeout:   time.Second,
	}
}
