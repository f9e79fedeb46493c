// FilePath: internal/models/models.actuator.go
package models

// Actuator names used in cache keys and commands.
const (
	ActuatorWaterPump  = "water_pump"
	ActuatorFlash      = "flash"
	ActuatorHumidifier = "humidifier"
)

// ActuatorState is the cached last-commanded state of one actuator, stored
// under actuator_state:<device_id>:<actuator>. It is a cache of what we
// last told the device, not of what the device is actually doing.
type ActuatorState struct {
	TS         string `json:"ts"`
	Status     string `json:"status,omitempty"` // water pump / humidifier: "on" or "off"
	FlashEn    *int   `json:"flash_en,omitempty"`
	FlashNt    *int   `json:"flash_nt,omitempty"`
	FlashLevel *int   `json:"flash_level,omitempty"`
}

// PumpOn reports whether the cached pump state is "on". An absent state
// counts as off.
func (s *ActuatorState) PumpOn() bool {
	return s != nil && s.Status == "on"
}

// FlashOn reports whether the cached flash state is enabled.
func (s *ActuatorState) FlashOn() bool {
	return s != nil && s.FlashEn != nil && *s.FlashEn == 1
}
