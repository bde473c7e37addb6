// Package correlation mints and propagates the opaque id that ties together
// every log record produced while handling one event (spec.md §3 invariant,
// Testable Property 2). Mirrors the teacher's pervasive use of
// github.com/google/uuid for session/connection ids.
package correlation

import "github.com/google/uuid"

// HeaderName is the HTTP header carrying the correlation id between
// IngestionClient and EnrichmentService. The dispatcher and the intake
// handler each use this same name as a literal;
// config.LoggingConfig.CorrelationHeaderName is loaded and defaulted but
// not consulted by either.
const HeaderName = "X-Correlation-ID"

// New mints a fresh correlation id.
func New() string {
	return uuid.New().String()
}

// FromContextID derives a correlation id from the hub event's context.id,
// falling back to a minted id when the inbound context carries none.
func FromContextID(contextID string) string {
	if contextID != "" {
		return contextID
	}
	return New()
}
