package enrichment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homegraph/ingestor/internal/model"
)

func TestBuildPointPromotesTagsAndFields(t *testing.T) {
	numeric := 21.5
	duration := 120.0
	e := &model.EnrichedEvent{
		NormalizedEvent: model.NormalizedEvent{
			EntityID:        "sensor.living_room_temperature",
			Domain:          "sensor",
			DeviceClass:     "temperature",
			EventType:       "state_changed",
			AreaID:          "living_room",
			EntityCategory:  model.EntityCategoryRegular,
			Integration:     "met",
			NewStateStr:     "21.5",
			OldStateStr:     "21.0",
			NewStateNumeric: &numeric,
			DurationInState: &duration,
			ContextID:       "ctx-1",
			FriendlyName:    "Living Room Temperature",
			UnitOfMeasure:   "°C",
			TimeFired:       time.Date(2026, 7, 31, 9, 0, 0, 0, time.UTC),
			Attributes: map[string]interface{}{
				"device_class": "temperature",
				"battery":      88,
			},
		},
		Providers: map[string]model.ProviderSnapshot{
			"weather": {Fields: map[string]interface{}{"condition": "Rain", "temperature_c": 18.2}},
		},
	}

	p := BuildPoint(e)

	assert.Equal(t, model.Measurement, p.Measurement)
	assert.Equal(t, "sensor.living_room_temperature", p.Tags["entity_id"])
	assert.Equal(t, "morning", p.Tags["time_of_day"])
	assert.Equal(t, "Rain", p.Tags["weather_condition"])
	assert.Equal(t, "21.5", p.Fields["state"])
	assert.Equal(t, 21.5, p.Fields["state_numeric"])
	assert.Equal(t, 120.0, p.Fields["duration_in_state_seconds"])
	assert.Equal(t, "ctx-1", p.Fields["context_id"])
	assert.Equal(t, 88, p.Fields["attr_battery"])
	assert.NotContains(t, p.Fields, "attr_device_class")
	assert.Equal(t, 18.2, p.Fields["weather_temp"])
	require.Equal(t, e.TimeFired, p.Timestamp)
}

func TestTimeOfDayBuckets(t *testing.T) {
	cases := map[int]string{
		0: "night", 4: "night", 5: "morning", 11: "morning",
		12: "afternoon", 16: "afternoon", 17: "evening", 20: "evening", 21: "night", 23: "night",
	}
	for hour, want := range cases {
		assert.Equal(t, want, timeOfDay(hour), "hour %d", hour)
	}
}

func TestWeatherConditionGroupsKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "Clear", weatherCondition(model.ProviderSnapshot{Fields: map[string]interface{}{"condition": "Sunny"}}))
	assert.Equal(t, "Rain", weatherCondition(model.ProviderSnapshot{Fields: map[string]interface{}{"condition": "drizzle"}}))
	assert.Equal(t, "Other", weatherCondition(model.ProviderSnapshot{Fields: map[string]interface{}{"condition": "tornado"}}))
	assert.Equal(t, "", weatherCondition(model.ProviderSnapshot{Fields: map[string]interface{}{}}))
}

func TestApplyProviderFieldsPrefixesAndMarksStale(t *testing.T) {
	fields := map[string]interface{}{}
	providers := map[string]model.ProviderSnapshot{
		"carbon_intensity": {Stale: true, Fields: map[string]interface{}{"grams_co2_per_kwh": 120}},
		"weather":          {Fields: map[string]interface{}{"condition": "Clear"}},
	}
	applyProviderFields(fields, providers)

	assert.Equal(t, 120, fields["carbon_intensity_grams_co2_per_kwh"])
	assert.Equal(t, true, fields["carbon_intensity_stale"])
	assert.NotContains(t, fields, "weather_condition")
}
