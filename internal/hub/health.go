package hub

import "time"

// Health is the IngestionClient status surface (spec.md §4.1).
type Health struct {
	Connected       bool      `json:"connected"`
	Authenticated   bool      `json:"authenticated"`
	SubscribedCount int       `json:"subscribed_count"`
	EventsReceived  int64     `json:"events_received"`
	EventsForwarded int64     `json:"events_forwarded"`
	LastEventAt     time.Time `json:"last_event_at,omitempty"`
	ReconnectCount  int64     `json:"reconnect_count"`
	ActiveEndpoint  string    `json:"active_endpoint"`
	State           string    `json:"state"`
}

// Health reports the current connection status.
func (c *Client) Health() Health {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Health{
		Connected:       c.connected,
		Authenticated:   c.authenticated,
		SubscribedCount: c.subscribed,
		EventsReceived:  c.eventsReceived.Load(),
		EventsForwarded: c.eventsForwarded.Load(),
		LastEventAt:     c.lastEventAt,
		ReconnectCount:  c.reconnectCount.Load(),
		ActiveEndpoint:  c.activeEndpoint,
		State:           c.state.String(),
	}
}
