package enrichment

import (
	"strings"

	"github.com/homegraph/ingestor/internal/model"
)

// BuildPoint maps an EnrichedEvent to the canonical TimeSeriesPoint schema
// (spec.md §6.2): a closed, enumerated tag set and an open field set with
// attr_-prefixed attribute flattening.
func BuildPoint(e *model.EnrichedEvent) model.TimeSeriesPoint {
	tags := map[string]string{
		"entity_id":       e.EntityID,
		"domain":          e.Domain,
		"device_class":    e.DeviceClass,
		"event_type":      e.EventType,
		"device_id":       e.DeviceID,
		"area_id":         e.AreaID,
		"entity_category": string(e.EntityCategory),
		"integration":     e.Integration,
		"time_of_day":     timeOfDay(e.TimeFired.Hour()),
		"weather_condition": weatherCondition(e.Providers["weather"]),
	}

	fields := map[string]interface{}{
		"state":     e.NewStateStr,
		"old_state": e.OldStateStr,
	}
	if e.ContextID != "" {
		fields["context_id"] = e.ContextID
	}
	if e.ContextParentID != "" {
		fields["context_parent_id"] = e.ContextParentID
	}
	if e.ContextUserID != "" {
		fields["context_user_id"] = e.ContextUserID
	}
	if e.DurationInState != nil {
		fields["duration_in_state_seconds"] = *e.DurationInState
	}
	if e.FriendlyName != "" {
		fields["friendly_name"] = e.FriendlyName
	}
	if e.UnitOfMeasure != "" {
		fields["unit_of_measurement"] = e.UnitOfMeasure
	}
	if e.Icon != "" {
		fields["icon"] = e.Icon
	}
	if e.Manufacturer != "" {
		fields["manufacturer"] = e.Manufacturer
	}
	if e.Model != "" {
		fields["model"] = e.Model
	}
	if e.SWVersion != "" {
		fields["sw_version"] = e.SWVersion
	}
	if e.NewStateNumeric != nil {
		fields["state_numeric"] = *e.NewStateNumeric
	}

	for attr, v := range e.Attributes {
		switch attr {
		case "device_class", "area_id", "device_id", "friendly_name", "unit_of_measurement",
			"entity_category", "integration", "icon", "manufacturer", "model", "sw_version":
			continue // already promoted to a tag or dedicated field
		}
		fields["attr_"+attr] = v
	}

	applyWeatherFields(fields, e.Providers["weather"])
	applyProviderFields(fields, e.Providers)

	return model.TimeSeriesPoint{
		Measurement: model.Measurement,
		Tags:        tags,
		Fields:      fields,
		Timestamp:   e.TimeFired,
	}
}

// timeOfDay buckets a UTC hour into the coarse categories named in
// spec.md §6.2.
func timeOfDay(hour int) string {
	switch {
	case hour >= 5 && hour <= 11:
		return "morning"
	case hour >= 12 && hour <= 16:
		return "afternoon"
	case hour >= 17 && hour <= 20:
		return "evening"
	default:
		return "night"
	}
}

// weatherConditionGroups maps the weather provider's free-form condition
// string to the coarse tag categories used across the fleet (spec.md §6.2).
var weatherConditionGroups = map[string]string{
	"clear":        "Clear",
	"sunny":        "Clear",
	"clouds":       "Clouds",
	"cloudy":       "Clouds",
	"overcast":     "Clouds",
	"rain":         "Rain",
	"drizzle":      "Rain",
	"showers":      "Rain",
	"snow":         "Snow",
	"sleet":        "Snow",
	"thunderstorm": "Storm",
	"storm":        "Storm",
	"fog":          "Fog",
	"mist":         "Fog",
	"haze":         "Fog",
}

func weatherCondition(snapshot model.ProviderSnapshot) string {
	raw, _ := snapshot.Fields["condition"].(string)
	if group, ok := weatherConditionGroups[strings.ToLower(raw)]; ok {
		return group
	}
	if raw == "" {
		return ""
	}
	return "Other"
}

func applyWeatherFields(fields map[string]interface{}, weather model.ProviderSnapshot) {
	if weather.Fields == nil {
		return
	}
	if v, ok := weather.Fields["temperature_c"]; ok {
		fields["weather_temp"] = v
	}
	if v, ok := weather.Fields["humidity_pct"]; ok {
		fields["weather_humidity"] = v
	}
	if v, ok := weather.Fields["pressure_hpa"]; ok {
		fields["weather_pressure"] = v
	}
	if v, ok := weather.Fields["wind_speed_ms"]; ok {
		fields["wind_speed"] = v
	}
	if v, ok := weather.Fields["description"]; ok {
		fields["weather_description"] = v
	}
}

// applyProviderFields copies every other configured provider's primitive
// fields onto the point, prefixed by provider name, plus a per-provider
// staleness marker (spec.md Testable Scenario 2).
func applyProviderFields(fields map[string]interface{}, providers map[string]model.ProviderSnapshot) {
	for name, snap := range providers {
		if name == "weather" {
			continue
		}
		for k, v := range snap.Fields {
			fields[name+"_"+k] = v
		}
		if snap.Stale {
			fields[name+"_stale"] = true
		}
	}
}
