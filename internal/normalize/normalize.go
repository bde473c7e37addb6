// Package normalize turns a validated RawEvent into a NormalizedEvent:
// UTC timestamps, derived entity metadata, numeric coercion, and duration
// computation (spec.md §4.2 stage 2, §3 invariants).
package normalize

import (
	"strconv"
	"strings"
	"time"

	"github.com/homegraph/ingestor/internal/correlation"
	"github.com/homegraph/ingestor/internal/model"
)

// WarnDurationThreshold is the default above which a duration_in_state is
// logged but not rejected (spec.md §3).
const WarnDurationThreshold = 7 * 24 * time.Hour

// Event converts e into a NormalizedEvent. Apart from CorrelationID it is a
// pure function: the same input always produces the same output. When
// neither inboundCorrelationID nor e.Context.ID is set, CorrelationID is a
// freshly minted id that differs on every call. Normalizing an already
// normalized event's RawEvent form again yields an identical result
// (spec.md Testable Properties, "Normalize is idempotent").
func Event(e *model.RawEvent, inboundCorrelationID string) (*model.NormalizedEvent, error) {
	timeFired, err := parseTimestamp(e.TimeFired)
	if err != nil {
		return nil, err
	}

	n := &model.NormalizedEvent{
		EventType: e.EventType,
		EntityID:  e.EntityID,
		TimeFired: timeFired,
		Domain:    domainOf(e.EntityID),
	}

	if e.NewState != nil {
		n.NewStateStr = e.NewState.State
		n.NewStateNumeric = coerceNumeric(e.NewState.State)
		n.Attributes = e.NewState.Attributes
		if t, err := parseTimestamp(e.NewState.LastChanged); err == nil {
			n.NewLastChanged = t
		}
		n.DeviceClass = stringAttr(e.NewState.Attributes, "device_class")
		n.AreaID = stringAttr(e.NewState.Attributes, "area_id")
		n.DeviceID = stringAttr(e.NewState.Attributes, "device_id")
		n.FriendlyName = stringAttr(e.NewState.Attributes, "friendly_name")
		n.UnitOfMeasure = stringAttr(e.NewState.Attributes, "unit_of_measurement")
		n.Icon = stringAttr(e.NewState.Attributes, "icon")
		n.Manufacturer = stringAttr(e.NewState.Attributes, "manufacturer")
		n.Model = stringAttr(e.NewState.Attributes, "model")
		n.SWVersion = stringAttr(e.NewState.Attributes, "sw_version")
		n.Integration = stringAttr(e.NewState.Attributes, "integration")
	}

	if e.OldState != nil {
		n.OldStateStr = e.OldState.State
		n.HasOldState = true
		if t, err := parseTimestamp(e.OldState.LastChanged); err == nil {
			n.OldLastChanged = t
		}
	}

	if n.HasOldState && !n.NewLastChanged.IsZero() && !n.OldLastChanged.IsZero() {
		d := n.NewLastChanged.Sub(n.OldLastChanged).Seconds()
		if d >= 0 {
			n.DurationInState = &d
		}
	}

	n.EntityCategory = categoryOf(n.Attributes)
	n.ContextID = e.Context.ID
	n.ContextParentID = e.Context.ParentID
	n.ContextUserID = e.Context.UserID
	n.CorrelationID = correlation.FromContextID(firstNonEmpty(inboundCorrelationID, e.Context.ID))

	return n, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errMalformed(s)
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, errMalformed(s)
}

type malformedTimestampError struct{ value string }

func (e *malformedTimestampError) Error() string {
	return "malformed timestamp: " + e.value
}

func errMalformed(s string) error { return &malformedTimestampError{value: s} }

// domainOf derives the entity domain from the prefix before the first dot,
// e.g. "light.kitchen" → "light".
func domainOf(entityID string) string {
	if i := strings.IndexByte(entityID, '.'); i > 0 {
		return entityID[:i]
	}
	return ""
}

func stringAttr(attrs map[string]interface{}, key string) string {
	if attrs == nil {
		return ""
	}
	if v, ok := attrs[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// coerceNumeric attempts to parse state as a float64, matching the hub's
// convention of representing numeric sensor states as decimal strings.
// Non-numeric states (e.g. "on", "unavailable") retain their string form.
func coerceNumeric(state string) *float64 {
	if state == "" {
		return nil
	}
	f, err := strconv.ParseFloat(state, 64)
	if err != nil {
		return nil
	}
	return &f
}

// categoryOf derives entity_category from the entity_category attribute,
// defaulting to "regular" when absent, matching the hub's convention of
// only tagging diagnostic/config entities explicitly.
func categoryOf(attrs map[string]interface{}) model.EntityCategory {
	switch stringAttr(attrs, "entity_category") {
	case string(model.EntityCategoryDiagnostic):
		return model.EntityCategoryDiagnostic
	case string(model.EntityCategoryConfig):
		return model.EntityCategoryConfig
	default:
		return model.EntityCategoryRegular
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
