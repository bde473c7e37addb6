// Package model defines the data entities that flow through the pipeline:
// RawEvent as received from the hub, NormalizedEvent after timezone and
// type coercion, and EnrichedEvent once provider snapshots are attached.
package model

import "time"

// Context carries the hub's per-event causation chain.
type Context struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
}

// State is a snapshot of an entity's state as reported by the hub.
type State struct {
	State       string                 `json:"state"`
	Attributes  map[string]interface{} `json:"attributes,omitempty"`
	LastChanged string                 `json:"last_changed,omitempty"`
	LastUpdated string                 `json:"last_updated,omitempty"`
}

// RawEvent is the hub's wire representation of a state_changed notification.
// It is never persisted; it exists only for the span between WebSocket
// receipt and successful normalization.
type RawEvent struct {
	EventType string  `json:"event_type"`
	EntityID  string  `json:"entity_id,omitempty"`
	OldState  *State  `json:"old_state,omitempty"`
	NewState  *State  `json:"new_state,omitempty"`
	TimeFired string  `json:"time_fired"`
	Origin    string  `json:"origin,omitempty"`
	Context   Context `json:"context,omitempty"`
}

// EntityCategory classifies an entity for the entity_category tag.
type EntityCategory string

// Entity categories recognized by the normalizer.
const (
	EntityCategoryRegular    EntityCategory = "regular"
	EntityCategoryDiagnostic EntityCategory = "diagnostic"
	EntityCategoryConfig     EntityCategory = "config"
)

// NormalizedEvent is RawEvent with timestamps normalized to UTC, numeric
// coercion attempted on state, and entity metadata derived from attributes.
type NormalizedEvent struct {
	EventType       string
	EntityID        string
	Domain          string
	DeviceClass     string
	DeviceID        string
	AreaID          string
	FriendlyName    string
	UnitOfMeasure   string
	Icon            string
	Manufacturer    string
	Model           string
	SWVersion       string
	EntityCategory  EntityCategory
	Integration     string
	OldStateStr     string
	NewStateStr     string
	NewStateNumeric *float64
	Attributes      map[string]interface{}
	ContextID       string
	ContextParentID string
	ContextUserID   string
	TimeFired       time.Time
	NewLastChanged  time.Time
	OldLastChanged  time.Time
	HasOldState     bool
	DurationInState *float64 // seconds; nil when no prior state
	CorrelationID   string
}

// ProviderSnapshot is a copy of a single provider's latest reading taken at
// enrichment time — never a live reference into the provider's cache.
type ProviderSnapshot struct {
	Name      string
	Timestamp time.Time
	Stale     bool
	Fields    map[string]interface{}
}

// EnrichedEvent is a NormalizedEvent plus a snapshot from each configured
// provider available at enrichment time.
type EnrichedEvent struct {
	NormalizedEvent
	Providers map[string]ProviderSnapshot
}
