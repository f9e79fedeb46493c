// FilePath: internal/control/evaluator.go
package control

import (
	"context"
	"time"

	"github.com/greeneye-project/greeneye-hub/internal/config"
	"github.com/greeneye-project/greeneye-hub/internal/errors"
	"github.com/greeneye-project/greeneye-hub/internal/models"
	"github.com/greeneye-project/greeneye-hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// ConfigSender publishes sanitized config commands to a device.
type ConfigSender interface {
	SendConfig(ctx context.Context, deviceID string, payload map[string]interface{}) (map[string]interface{}, error)
}

// Evaluator drives the irrigation and lighting actuators from the latest
// cached reading. Both actuators use low/high threshold hysteresis plus an
// idempotence check against the cached last-commanded state, so a stable
// condition never produces a command storm across polling cycles.
type Evaluator struct {
	cfg    config.ControlConfig
	cache  repository.LatestCache
	sender ConfigSender
	loc    *time.Location

	now func() time.Time
}

func NewEvaluator(cfg config.ControlConfig, cache repository.LatestCache, sender ConfigSender) (*Evaluator, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, errors.NewValidationError("invalid control timezone "+cfg.Timezone, err)
	}
	return &Evaluator{
		cfg:    cfg,
		cache:  cache,
		sender: sender,
		loc:    loc,
		now:    time.Now,
	}, nil
}

// Evaluate runs one control cycle for one device. It emits at most one
// command per actuator and never fails the cycle: publish errors are logged
// and leave the cached actuator state untouched.
func (e *Evaluator) Evaluate(ctx context.Context, deviceID string) error {
	latest, err := e.cache.GetLatestReading(ctx, deviceID)
	if err != nil {
		if err == repository.ErrNotFound {
			// Distinct from "conditions not met": the device has never
			// reported, or the cache was flushed.
			nuts.L.Infof("[AutoControl] No cached sensor data for %s, skipping cycle", deviceID)
			return errors.ErrNoCachedReading
		}
		return err
	}

	e.evaluateIrrigation(ctx, deviceID, latest.SoilMoisture)
	e.evaluateLighting(ctx, deviceID, latest.LightLux)
	return nil
}

func (e *Evaluator) evaluateIrrigation(ctx context.Context, deviceID string, soilMoisture *float64) {
	if soilMoisture == nil {
		return
	}

	pump, _ := e.cache.GetActuatorState(ctx, deviceID, models.ActuatorWaterPump)

	switch {
	case *soilMoisture < e.cfg.SoilMoistureLow && !pump.PumpOn():
		payload := map[string]interface{}{
			"water_pump_action":   1,
			"water_pump_duration": e.cfg.PumpDurationSec,
		}
		if _, err := e.sender.SendConfig(ctx, deviceID, payload); err != nil {
			nuts.L.Errorf("[AutoControl] Pump-on command failed for %s: %v", deviceID, err)
			return
		}
		e.setPumpState(ctx, deviceID, "on")

	case *soilMoisture > e.cfg.SoilMoistureHigh && pump.PumpOn():
		payload := map[string]interface{}{"water_pump_action": 0}
		if _, err := e.sender.SendConfig(ctx, deviceID, payload); err != nil {
			nuts.L.Errorf("[AutoControl] Pump-off command failed for %s: %v", deviceID, err)
			return
		}
		e.setPumpState(ctx, deviceID, "off")
	}
	// Within the dead band, or already in the implied state: no command.
}

func (e *Evaluator) evaluateLighting(ctx context.Context, deviceID string, lightLux *float64) {
	flash, _ := e.cache.GetActuatorState(ctx, deviceID, models.ActuatorFlash)

	hour := e.now().In(e.loc).Hour()
	inWindow := hour >= e.cfg.ActiveHourStart && hour <= e.cfg.ActiveHourEnd

	if lightLux != nil && inWindow {
		switch {
		case *lightLux < e.cfg.LightLuxLow && !flash.FlashOn():
			payload := map[string]interface{}{
				"flash_en":    1,
				"flash_level": e.cfg.FlashOnLevel,
			}
			if _, err := e.sender.SendConfig(ctx, deviceID, payload); err != nil {
				nuts.L.Errorf("[AutoControl] Light-on command failed for %s: %v", deviceID, err)
			}

		case *lightLux > e.cfg.LightLuxHigh && flash.FlashOn():
			payload := map[string]interface{}{"flash_en": 0}
			if _, err := e.sender.SendConfig(ctx, deviceID, payload); err != nil {
				nuts.L.Errorf("[AutoControl] Light-off command failed for %s: %v", deviceID, err)
			}
		}
		return
	}

	// Outside the active window (or lux unknown) the light is forced off.
	if flash.FlashOn() {
		payload := map[string]interface{}{
			"flash_en":    0,
			"flash_nt":    1,
			"flash_level": e.cfg.NightFlashLevel,
		}
		if _, err := e.sender.SendConfig(ctx, deviceID, payload); err != nil {
			nuts.L.Errorf("[AutoControl] Night light-off command failed for %s: %v", deviceID, err)
		}
	}
}

// setPumpState records the commanded pump state after a confirmed publish.
// The flash state is recorded by the publisher itself since flash keys also
// arrive via manual control and presets.
func (e *Evaluator) setPumpState(ctx context.Context, deviceID, status string) {
	state := &models.ActuatorState{
		TS:     e.now().UTC().Format(time.RFC3339),
		Status: status,
	}
	if err := e.cache.SetActuatorState(ctx, deviceID, models.ActuatorWaterPump, state); err != nil {
		nuts.L.Errorf("[AutoControl] Failed to cache pump state for %s: %v", deviceID, err)
	}
}
