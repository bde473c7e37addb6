// Package validate enforces the intake contract for inbound hub events
// (spec.md §4.2 stage 1) before anything reaches the normalizer.
package validate

import (
	"errors"
	"fmt"
	"time"

	"github.com/homegraph/ingestor/internal/model"
)

// Code is one of the closed set of structured validation error codes
// returned to the caller in a 400 response.
type Code string

const (
	CodeMissingField      Code = "missing_field"
	CodeMalformedTimestamp Code = "malformed_timestamp"
	CodeUnknownEventType  Code = "unknown_event_type"
)

// ErrValidation is returned by Event when the payload violates the intake
// contract. Callers compare via errors.As to recover the Code and Field.
type ErrValidation struct {
	Code  Code
	Field string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Field)
}

// knownEventTypes is the set of hub event types this pipeline understands.
// state_changed is the only type the spec enriches; anything else is
// rejected rather than silently dropped, so operators notice new event
// types arriving from the hub.
var knownEventTypes = map[string]bool{
	"state_changed": true,
}

// Event validates a RawEvent per spec.md §4.2 stage 1: event_type,
// time_fired, and — for state_changed — entity_id and new_state.state are
// all required. The first violation found is returned; EnrichmentService
// reports it verbatim as the 400 body.
func Event(e *model.RawEvent) error {
	if e.EventType == "" {
		return &ErrValidation{Code: CodeMissingField, Field: "event_type"}
	}
	if !knownEventTypes[e.EventType] {
		return &ErrValidation{Code: CodeUnknownEventType, Field: "event_type"}
	}
	if e.TimeFired == "" {
		return &ErrValidation{Code: CodeMissingField, Field: "time_fired"}
	}
	if _, err := time.Parse(time.RFC3339Nano, e.TimeFired); err != nil {
		if _, err2 := time.Parse(time.RFC3339, e.TimeFired); err2 != nil {
			return &ErrValidation{Code: CodeMalformedTimestamp, Field: "time_fired"}
		}
	}

	switch e.EventType {
	case "state_changed":
		if e.EntityID == "" {
			return &ErrValidation{Code: CodeMissingField, Field: "entity_id"}
		}
		if e.NewState == nil || e.NewState.State == "" {
			return &ErrValidation{Code: CodeMissingField, Field: "new_state.state"}
		}
	}
	return nil
}

// AsValidation unwraps err into an *ErrValidation, if any.
func AsValidation(err error) (*ErrValidation, bool) {
	var v *ErrValidation
	ok := errors.As(err, &v)
	return v, ok
}
