// FilePath: internal/ingest/mapper.go
package ingest

import (
	"strconv"
	"strings"
	"time"

	"github.com/greeneye-project/greeneye-hub/internal/models"
)

// imageKey marks a payload as a camera frame rather than a sensor sample.
const imageKey = "plant_img"

// Alias tables. Several firmware eras used different vocabularies for the
// same physical quantity; first present alias wins.
var fieldAliases = map[string][]string{
	models.FieldBattery:      {"battery", "bat_level", "bat"},
	models.FieldTemperature:  {"temperature", "amb_temp", "temp"},
	models.FieldHumidity:     {"humidity", "amb_humi", "hum"},
	models.FieldLightLux:     {"light_lux", "amb_light", "lux"},
	models.FieldSoilTemp:     {"soil_temp"},
	models.FieldSoilMoisture: {"soil_moisture", "soil_humi"},
	models.FieldSoilEC:       {"soil_ec"},
}

var timestampKeys = []string{"_time", "time", "timestamp"}

// SensorMessage is a classified sensor payload ready for the sink writer.
type SensorMessage struct {
	Reading *models.SensorReading
}

// ImageMessage is a classified camera frame. Origin holds the undecoded
// hex/base64 text exactly as received.
type ImageMessage struct {
	DeviceID   string
	Origin     string
	CapturedAt time.Time
}

// Classify maps a decoded payload onto either a sensor reading or an image
// frame. A sensor payload with zero coercible fields yields a reading whose
// HasFields() is false; the caller discards it.
func Classify(deviceID string, payload map[string]interface{}, now time.Time) (*SensorMessage, *ImageMessage) {
	if raw, ok := payload[imageKey]; ok {
		origin, _ := raw.(string)
		return nil, &ImageMessage{
			DeviceID:   deviceID,
			Origin:     origin,
			CapturedAt: now.UTC(),
		}
	}

	reading := &models.SensorReading{
		DeviceID:  deviceID,
		Timestamp: extractTimestamp(payload, now),
	}
	reading.Battery = coerceInt(pick(payload, fieldAliases[models.FieldBattery]))
	reading.Temperature = coerceFloat(pick(payload, fieldAliases[models.FieldTemperature]))
	reading.Humidity = coerceFloat(pick(payload, fieldAliases[models.FieldHumidity]))
	reading.LightLux = coerceFloat(pick(payload, fieldAliases[models.FieldLightLux]))
	reading.SoilTemp = coerceFloat(pick(payload, fieldAliases[models.FieldSoilTemp]))
	reading.SoilMoisture = coerceFloat(pick(payload, fieldAliases[models.FieldSoilMoisture]))
	reading.SoilEC = coerceFloat(pick(payload, fieldAliases[models.FieldSoilEC]))

	return &SensorMessage{Reading: reading}, nil
}

func pick(payload map[string]interface{}, keys []string) interface{} {
	for _, k := range keys {
		if v, ok := payload[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// coerceFloat accepts JSON numbers and numeric strings. Anything else is
// treated as absent, never as an error.
func coerceFloat(v interface{}) *float64 {
	switch x := v.(type) {
	case float64:
		return &x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// coerceInt goes through float so "40.0" still becomes 40.
func coerceInt(v interface{}) *int {
	f := coerceFloat(v)
	if f == nil {
		return nil
	}
	i := int(*f)
	return &i
}

// extractTimestamp honors the producer clock when it is usable and falls
// back to ingestion time. It never fails.
func extractTimestamp(payload map[string]interface{}, now time.Time) time.Time {
	for _, key := range timestampKeys {
		v, ok := payload[key]
		if !ok || v == nil {
			continue
		}
		if ts, ok := parseTimestamp(v); ok {
			return ts
		}
	}
	return now.UTC()
}

func parseTimestamp(v interface{}) (time.Time, bool) {
	switch x := v.(type) {
	case float64:
		return epochToTime(x), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		if isAllDigits(s) {
			iv, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return time.Time{}, false
			}
			return epochToTime(iv), true
		}
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts, true
		}
		// ISO-8601 without zone designator, assume UTC.
		for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// epochToTime treats values above 1e12 as milliseconds, else seconds.
func epochToTime(v float64) time.Time {
	if v > 1e12 {
		return time.UnixMilli(int64(v)).UTC()
	}
	return time.Unix(int64(v), 0).UTC()
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
