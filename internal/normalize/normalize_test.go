package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homegraph/ingestor/internal/model"
)

func TestEventDerivesDomainAndNumericState(t *testing.T) {
	raw := &model.RawEvent{
		EventType: "state_changed",
		EntityID:  "sensor.living_room_temperature",
		TimeFired: "2026-07-31T10:00:00.123456Z",
		NewState: &model.State{
			State: "21.5",
			Attributes: map[string]interface{}{
				"device_class":        "temperature",
				"unit_of_measurement": "°C",
				"area_id":             "living_room",
			},
			LastChanged: "2026-07-31T10:00:00Z",
		},
		OldState: &model.State{
			State:       "21.0",
			LastChanged: "2026-07-31T09:45:00Z",
		},
	}

	n, err := Event(raw, "")
	require.NoError(t, err)

	assert.Equal(t, "sensor", n.Domain)
	assert.Equal(t, "temperature", n.DeviceClass)
	assert.Equal(t, "living_room", n.AreaID)
	assert.Equal(t, "°C", n.UnitOfMeasure)
	require.NotNil(t, n.NewStateNumeric)
	assert.InDelta(t, 21.5, *n.NewStateNumeric, 0.0001)
	assert.Equal(t, model.EntityCategoryRegular, n.EntityCategory)
	require.NotNil(t, n.DurationInState)
	assert.InDelta(t, 15*60, *n.DurationInState, 0.001)
	assert.NotEmpty(t, n.CorrelationID)
	assert.True(t, n.TimeFired.Location() == time.UTC)
}

func TestEventNonNumericStateLeavesNumericNil(t *testing.T) {
	raw := &model.RawEvent{
		EventType: "state_changed",
		EntityID:  "light.kitchen",
		TimeFired: "2026-07-31T10:00:00Z",
		NewState:  &model.State{State: "on"},
	}

	n, err := Event(raw, "")
	require.NoError(t, err)
	assert.Nil(t, n.NewStateNumeric)
	assert.Equal(t, "on", n.NewStateStr)
}

func TestEventMalformedTimestampReturnsError(t *testing.T) {
	raw := &model.RawEvent{
		EventType: "state_changed",
		EntityID:  "light.kitchen",
		TimeFired: "not-a-time",
		NewState:  &model.State{State: "on"},
	}

	_, err := Event(raw, "")
	assert.Error(t, err)
}

func TestEventNegativeDurationIsOmitted(t *testing.T) {
	// A hub clock skew could report old_state changing after new_state;
	// the spec requires duration_in_state to be omitted rather than negative.
	raw := &model.RawEvent{
		EventType: "state_changed",
		EntityID:  "light.kitchen",
		TimeFired: "2026-07-31T10:00:00Z",
		NewState: &model.State{
			State:       "on",
			LastChanged: "2026-07-31T09:00:00Z",
		},
		OldState: &model.State{
			State:       "off",
			LastChanged: "2026-07-31T09:30:00Z",
		},
	}

	n, err := Event(raw, "")
	require.NoError(t, err)
	assert.Nil(t, n.DurationInState)
}

func TestEventPreservesInboundCorrelationID(t *testing.T) {
	raw := &model.RawEvent{
		EventType: "state_changed",
		EntityID:  "light.kitchen",
		TimeFired: "2026-07-31T10:00:00Z",
		NewState:  &model.State{State: "on"},
	}

	n, err := Event(raw, "req-123")
	require.NoError(t, err)
	assert.Equal(t, "req-123", n.CorrelationID)
}

func TestEventIsIdempotentAcrossRepeatedCalls(t *testing.T) {
	raw := &model.RawEvent{
		EventType: "state_changed",
		EntityID:  "light.kitchen",
		TimeFired: "2026-07-31T10:00:00Z",
		NewState:  &model.State{State: "on"},
	}

	first, err := Event(raw, "fixed-id")
	require.NoError(t, err)
	second, err := Event(raw, "fixed-id")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
