// Package hub implements IngestionClient: a long-lived authenticated
// WebSocket subscriber to the home-automation hub, with reconnection,
// multi-endpoint failover, and backpressured downstream dispatch
// (spec.md §4.1). Modeled on the teacher's pkg/events.ConnectionManager,
// inverted from server to client role.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"

	"github.com/homegraph/ingestor/internal/config"
	"github.com/homegraph/ingestor/internal/correlation"
	"github.com/homegraph/ingestor/internal/model"
	"github.com/homegraph/ingestor/internal/telemetry"
)

// maxConsecutiveFailures bounds how many times the active endpoint is
// retried before the client rotates to the next one, per spec.md §4.1
// ("repeated connect failures within the backoff ceiling").
const maxConsecutiveFailures = 5

// initialConnectBudget bounds how long Start waits for the first successful
// connection before returning an error, so a misconfigured deployment fails
// fast instead of hanging forever.
const initialConnectBudget = 2 * time.Minute

var errAuthInvalid = errors.New("hub rejected credentials")

// Client maintains exactly one live session to the hub at a time.
type Client struct {
	cfg       config.HubConfig
	endpoints *endpointSet
	dispatch  *Dispatcher
	metrics   *telemetry.Metrics

	mu             sync.RWMutex
	state          State
	connected      bool
	authenticated  bool
	subscribed     int
	lastEventAt    time.Time
	activeEndpoint string

	eventsReceived  atomic.Int64
	eventsForwarded atomic.Int64
	reconnectCount  atomic.Int64
	subscribeSeq    atomic.Int64

	cancelConn context.CancelFunc
	connMu     sync.Mutex
}

// New constructs a Client. dispatch is the dispatcher events are handed to
// after receipt; it is started independently by the caller.
func New(cfg config.HubConfig, dispatch *Dispatcher, metrics *telemetry.Metrics) *Client {
	return &Client{
		cfg:       cfg,
		endpoints: newEndpointSet(cfg.Endpoints),
		dispatch:  dispatch,
		metrics:   metrics,
	}
}

// Start begins the session and blocks until the first connection and
// subscription succeed, or until every endpoint has been exhausted within
// initialConnectBudget. Once started, reconnection continues in the
// background until ctx is cancelled or Stop is called.
func (c *Client) Start(ctx context.Context) error {
	ready := make(chan error, 1)
	go c.runLoop(ctx, ready)

	select {
	case err := <-ready:
		return err
	case <-time.After(initialConnectBudget):
		return fmt.Errorf("hub: no endpoint reachable within %s", initialConnectBudget)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop cancels the active connection; the caller is expected to also cancel
// the context passed to Start so the background reconnect loop exits.
func (c *Client) Stop() {
	c.connMu.Lock()
	if c.cancelConn != nil {
		c.cancelConn()
	}
	c.connMu.Unlock()
}

func (c *Client) runLoop(ctx context.Context, ready chan<- error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.Multiplier = 2
	bo.MaxInterval = 60 * time.Second
	bo.RandomizationFactor = 0.2
	bo.MaxElapsedTime = 0

	failures := 0
	reportedReady := false

	primaryTicker := time.NewTicker(c.cfg.ReconnectToPrimaryInterval)
	defer primaryTicker.Stop()
	go c.watchForPrimary(ctx, primaryTicker)

	for {
		if ctx.Err() != nil {
			if !reportedReady {
				ready <- ctx.Err()
			}
			return
		}

		ep := c.endpoints.active()
		connCtx, cancel := context.WithCancel(ctx)
		c.connMu.Lock()
		c.cancelConn = cancel
		c.connMu.Unlock()

		err := c.connectAndServe(connCtx, ep, func() {
			if !reportedReady {
				reportedReady = true
				ready <- nil
			}
			failures = 0
			bo.Reset()
		})
		cancel()

		c.markDisconnected()
		if ctx.Err() != nil {
			if !reportedReady {
				ready <- ctx.Err()
			}
			return
		}

		c.reconnectCount.Add(1)
		failures++

		switch {
		case errors.Is(err, errAuthInvalid):
			slog.Warn("hub endpoint rejected credentials, rotating", "endpoint", ep.Name)
			c.endpoints.rotate()
			failures = 0
			bo.Reset()
		case failures >= maxConsecutiveFailures && len(c.endpoints.endpoints) > 1:
			slog.Warn("hub endpoint exceeded failure budget, rotating", "endpoint", ep.Name, "failures", failures)
			c.endpoints.rotate()
			failures = 0
			bo.Reset()
		default:
			slog.Warn("hub connection attempt failed", "endpoint", ep.Name, "error", err)
		}

		d := bo.NextBackOff()
		select {
		case <-time.After(d):
		case <-ctx.Done():
			if !reportedReady {
				ready <- ctx.Err()
			}
			return
		}
	}
}

// watchForPrimary periodically attempts to switch back to the
// highest-priority endpoint when a lower-priority one is active, per
// spec.md §4.1.
func (c *Client) watchForPrimary(ctx context.Context, ticker *time.Ticker) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.endpoints.isPrimary() {
				continue
			}
			slog.Info("attempting to reconnect to primary hub endpoint")
			c.endpoints.setActive(0)
			c.Stop()
		}
	}
}

// connectAndServe performs one full connection lifecycle against ep: dial,
// authenticate, subscribe, then read frames until the connection drops or
// goes silent. onRunning is invoked once the subscription is confirmed.
func (c *Client) connectAndServe(ctx context.Context, ep config.HubEndpoint, onRunning func()) error {
	c.setState(StateConnecting)
	conn, _, err := websocket.Dial(ctx, ep.URL, nil)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	c.setActiveEndpointName(ep.Name)

	c.setState(StateAuthenticating)
	if err := c.authenticate(ctx, conn, ep); err != nil {
		return err
	}
	c.mu.Lock()
	c.authenticated = true
	c.mu.Unlock()

	time.Sleep(c.cfg.SubscribeSettleDelay)

	c.setState(StateSubscribing)
	if err := c.subscribe(ctx, conn); err != nil {
		return err
	}
	c.mu.Lock()
	c.connected = true
	c.subscribed = 1
	c.mu.Unlock()
	c.setState(StateRunning)

	onRunning()
	return c.readLoop(ctx, conn)
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) authenticate(ctx context.Context, conn *websocket.Conn, ep config.HubEndpoint) error {
	authCtx, cancel := context.WithTimeout(ctx, c.cfg.AuthTimeout)
	defer cancel()

	// First frame from the hub must be auth_required; any other frame type
	// is a protocol error that fails this connection attempt.
	var f frame
	if err := readFrame(authCtx, conn, &f); err != nil {
		return fmt.Errorf("waiting for auth_required: %w", err)
	}
	if f.Type != "auth_required" {
		return fmt.Errorf("protocol: expected auth_required, got %q", f.Type)
	}

	if err := writeFrame(authCtx, conn, frame{Type: "auth", AccessToken: ep.Token}); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}

	var resp frame
	if err := readFrame(authCtx, conn, &resp); err != nil {
		return fmt.Errorf("waiting for auth response: %w", err)
	}
	switch resp.Type {
	case "auth_ok":
		return nil
	case "auth_invalid":
		return errAuthInvalid
	default:
		return fmt.Errorf("protocol: unexpected auth response %q", resp.Type)
	}
}

func (c *Client) subscribe(ctx context.Context, conn *websocket.Conn) error {
	subCtx, cancel := context.WithTimeout(ctx, c.cfg.SubscribeTimeout)
	defer cancel()

	id := c.subscribeSeq.Add(1)
	if err := writeFrame(subCtx, conn, frame{Type: "subscribe_events", ID: id, EventType: "state_changed"}); err != nil {
		return fmt.Errorf("send subscribe_events: %w", err)
	}

	for {
		var resp frame
		if err := readFrame(subCtx, conn, &resp); err != nil {
			return fmt.Errorf("waiting for subscription result: %w", err)
		}
		if resp.Type == "result" && resp.ID == id {
			if resp.Success {
				return nil
			}
			return fmt.Errorf("subscription rejected: %s", resp.Message)
		}
		// Any other frame arriving before the result is ignored; the hub
		// may emit events for other subscriptions already active.
	}
}

// readLoop consumes frames until the connection errors or goes silent for
// longer than EventSilenceThreshold, matching the liveness watchdog in
// spec.md §4.1.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		readCtx, cancel := context.WithTimeout(ctx, c.cfg.EventSilenceThreshold)
		var f frame
		err := readFrame(readCtx, conn, &f)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("hub connection silent or closed: %w", err)
		}

		c.mu.Lock()
		c.lastEventAt = time.Now()
		c.mu.Unlock()

		switch f.Type {
		case "event":
			c.handleEvent(ctx, &f)
		case "pong":
			// no-op
		case "auth_invalid":
			return errAuthInvalid
		case "result":
			slog.Debug("hub result frame received outside subscription handshake", "id", f.ID, "success", f.Success)
		default:
			slog.Debug("unhandled hub frame", "type", f.Type)
		}
	}
}

func (c *Client) handleEvent(ctx context.Context, f *frame) {
	if f.Event == nil {
		return
	}
	c.eventsReceived.Add(1)
	if c.metrics != nil {
		c.metrics.EventsReceived.Add(ctx, 1)
	}

	raw := &model.RawEvent{
		EventType: f.Event.EventType,
		EntityID:  f.Event.Data.EntityID,
		TimeFired: f.Event.TimeFired,
		Origin:    f.Event.Origin,
		Context: model.Context{
			ID:       f.Event.Context.ID,
			ParentID: f.Event.Context.ParentID,
			UserID:   f.Event.Context.UserID,
		},
	}
	if f.Event.Data.OldState != nil {
		raw.OldState = toModelState(f.Event.Data.OldState)
	}
	if f.Event.Data.NewState != nil {
		raw.NewState = toModelState(f.Event.Data.NewState)
	}
	if raw.Context.ID == "" {
		raw.Context.ID = correlation.New()
	}

	if c.dispatch.Enqueue(raw) {
		c.eventsForwarded.Add(1)
		if c.metrics != nil {
			c.metrics.EventsForwarded.Add(ctx, 1)
		}
	} else if c.metrics != nil {
		c.metrics.DroppedEvents.Add(ctx, 1)
	}
}

func toModelState(s *stateEnvelope) *model.State {
	return &model.State{
		State:       s.State,
		Attributes:  s.Attributes,
		LastChanged: s.LastChanged,
		LastUpdated: s.LastUpdated,
	}
}

func (c *Client) setActiveEndpointName(name string) {
	c.mu.Lock()
	c.activeEndpoint = name
	c.mu.Unlock()
}

func (c *Client) markDisconnected() {
	c.mu.Lock()
	c.connected = false
	c.authenticated = false
	c.subscribed = 0
	c.state = StateDisconnected
	c.mu.Unlock()
}

func readFrame(ctx context.Context, conn *websocket.Conn, v any) error {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeFrame(ctx context.Context, conn *websocket.Conn, f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
