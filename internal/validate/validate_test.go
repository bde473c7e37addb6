package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homegraph/ingestor/internal/model"
)

func TestEvent(t *testing.T) {
	tests := []struct {
		name    string
		event   model.RawEvent
		wantErr *ErrValidation
	}{
		{
			name: "valid state_changed",
			event: model.RawEvent{
				EventType: "state_changed",
				EntityID:  "light.kitchen",
				TimeFired: "2026-07-31T10:00:00Z",
				NewState:  &model.State{State: "on"},
			},
		},
		{
			name:    "missing event_type",
			event:   model.RawEvent{TimeFired: "2026-07-31T10:00:00Z"},
			wantErr: &ErrValidation{Code: CodeMissingField, Field: "event_type"},
		},
		{
			name:    "unknown event_type",
			event:   model.RawEvent{EventType: "automation_triggered", TimeFired: "2026-07-31T10:00:00Z"},
			wantErr: &ErrValidation{Code: CodeUnknownEventType, Field: "event_type"},
		},
		{
			name:    "missing time_fired",
			event:   model.RawEvent{EventType: "state_changed", EntityID: "light.kitchen", NewState: &model.State{State: "on"}},
			wantErr: &ErrValidation{Code: CodeMissingField, Field: "time_fired"},
		},
		{
			name: "malformed time_fired",
			event: model.RawEvent{
				EventType: "state_changed",
				EntityID:  "light.kitchen",
				TimeFired: "not-a-timestamp",
				NewState:  &model.State{State: "on"},
			},
			wantErr: &ErrValidation{Code: CodeMalformedTimestamp, Field: "time_fired"},
		},
		{
			name: "missing entity_id",
			event: model.RawEvent{
				EventType: "state_changed",
				TimeFired: "2026-07-31T10:00:00Z",
				NewState:  &model.State{State: "on"},
			},
			wantErr: &ErrValidation{Code: CodeMissingField, Field: "entity_id"},
		},
		{
			name: "missing new_state",
			event: model.RawEvent{
				EventType: "state_changed",
				EntityID:  "light.kitchen",
				TimeFired: "2026-07-31T10:00:00Z",
			},
			wantErr: &ErrValidation{Code: CodeMissingField, Field: "new_state.state"},
		},
		{
			name: "RFC3339 without nanoseconds is accepted",
			event: model.RawEvent{
				EventType: "state_changed",
				EntityID:  "light.kitchen",
				TimeFired: "2026-07-31T10:00:00+02:00",
				NewState:  &model.State{State: "on"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Event(&tt.event)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			v, ok := AsValidation(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantErr.Code, v.Code)
			assert.Equal(t, tt.wantErr.Field, v.Field)
		})
	}
}
