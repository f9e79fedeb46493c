// FilePath: internal/models/models.reading.go
package models

import "time"

// Canonical sensor field names. Incoming payloads use several firmware-era
// vocabularies; the ingest mapper folds them onto these keys.
const (
	FieldBattery      = "battery"
	FieldTemperature  = "temperature"
	FieldHumidity     = "humidity"
	FieldLightLux     = "light_lux"
	FieldSoilTemp     = "soil_temp"
	FieldSoilMoisture = "soil_moisture"
	FieldSoilEC       = "soil_ec"
)

// SensorReading is one canonicalized telemetry sample. Nil fields were
// absent (or failed coercion) in the producer payload.
type SensorReading struct {
	DeviceID     string    `json:"device_id"`
	MACAddress   string    `json:"mac_address,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
	Battery      *int      `json:"battery,omitempty"`
	Temperature  *float64  `json:"temperature,omitempty"`
	Humidity     *float64  `json:"humidity,omitempty"`
	LightLux     *float64  `json:"light_lux,omitempty"`
	SoilTemp     *float64  `json:"soil_temp,omitempty"`
	SoilMoisture *float64  `json:"soil_moisture,omitempty"`
	SoilEC       *float64  `json:"soil_ec,omitempty"`
}

// FieldMap returns the non-nil fields keyed by canonical name, suitable for
// a time-series point. An empty map means the reading must be discarded.
func (r *SensorReading) FieldMap() map[string]interface{} {
	fields := make(map[string]interface{})
	if r.Battery != nil {
		fields[FieldBattery] = *r.Battery
	}
	if r.Temperature != nil {
		fields[FieldTemperature] = *r.Temperature
	}
	if r.Humidity != nil {
		fields[FieldHumidity] = *r.Humidity
	}
	if r.LightLux != nil {
		fields[FieldLightLux] = *r.LightLux
	}
	if r.SoilTemp != nil {
		fields[FieldSoilTemp] = *r.SoilTemp
	}
	if r.SoilMoisture != nil {
		fields[FieldSoilMoisture] = *r.SoilMoisture
	}
	if r.SoilEC != nil {
		fields[FieldSoilEC] = *r.SoilEC
	}
	return fields
}

// HasFields reports whether at least one canonical field is present.
func (r *SensorReading) HasFields() bool {
	return len(r.FieldMap()) > 0
}

// Snapshot converts the reading into the latest-value cache document.
func (r *SensorReading) Snapshot() *LatestSnapshot {
	return &LatestSnapshot{
		Timestamp:    r.Timestamp.UTC().Format(time.RFC3339),
		Battery:      r.Battery,
		Temperature:  r.Temperature,
		Humidity:     r.Humidity,
		LightLux:     r.LightLux,
		SoilTemp:     r.SoilTemp,
		SoilMoisture: r.SoilMoisture,
		SoilEC:       r.SoilEC,
	}
}

// LatestSnapshot is the JSON document cached under
// latest_sensor_data:<device_id>. The evaluator reads it instead of hitting
// the time-series store.
type LatestSnapshot struct {
	Timestamp    string   `json:"timestamp"`
	Battery      *int     `json:"battery,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	Humidity     *float64 `json:"humidity,omitempty"`
	LightLux     *float64 `json:"light_lux,omitempty"`
	SoilTemp     *float64 `json:"soil_temp,omitempty"`
	SoilMoisture *float64 `json:"soil_moisture,omitempty"`
	SoilEC       *float64 `json:"soil_ec,omitempty"`
}

// ReadingRow is one record returned by a ranged time-series query.
type ReadingRow struct {
	Time     time.Time `json:"time"`
	Field    string    `json:"field"`
	Value    float64   `json:"value"`
	DeviceID string    `json:"device_id"`
}
