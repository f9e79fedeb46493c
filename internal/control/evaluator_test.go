// FilePath: internal/control/evaluator_test.go
package control

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/greeneye-project/greeneye-hub/internal/config"
	"github.com/greeneye-project/greeneye-hub/internal/errors"
	"github.com/greeneye-project/greeneye-hub/internal/models"
	"github.com/greeneye-project/greeneye-hub/internal/repository"
)

type fakeCache struct {
	snapshots map[string]*models.LatestSnapshot
	actuators map[string]*models.ActuatorState
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		snapshots: map[string]*models.LatestSnapshot{},
		actuators: map[string]*models.ActuatorState{},
	}
}

func (f *fakeCache) SetLatestReading(ctx context.Context, id string, s *models.LatestSnapshot) error {
	f.snapshots[id] = s
	return nil
}
func (f *fakeCache) GetLatestReading(ctx context.Context, id string) (*models.LatestSnapshot, error) {
	if s, ok := f.snapshots[id]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}
func (f *fakeCache) SetActuatorState(ctx context.Context, id, actuator string, s *models.ActuatorState) error {
	f.actuators[id+":"+actuator] = s
	return nil
}
func (f *fakeCache) GetActuatorState(ctx context.Context, id, actuator string) (*models.ActuatorState, error) {
	if s, ok := f.actuators[id+":"+actuator]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}
func (f *fakeCache) SetLatestImage(ctx context.Context, id, filename string) error { return nil }
func (f *fakeCache) GetLatestImage(ctx context.Context, id string) (string, error) {
	return "", repository.ErrNotFound
}
func (f *fakeCache) SetDiagnosis(ctx context.Context, id string, d *models.Diagnosis) error {
	return nil
}
func (f *fakeCache) GetDiagnosis(ctx context.Context, id string) (*models.Diagnosis, error) {
	return nil, repository.ErrNotFound
}
func (f *fakeCache) Ping(ctx context.Context) error { return nil }
func (f *fakeCache) Close() error                   { return nil }

type fakeSender struct {
	sent  []map[string]interface{}
	fail  bool
	cache *fakeCache
}

func (f *fakeSender) SendConfig(ctx context.Context, deviceID string, payload map[string]interface{}) (map[string]interface{}, error) {
	if f.fail {
		return nil, errors.NewCommandPublishError("conf/"+deviceID, fmt.Errorf("broker unreachable"))
	}
	f.sent = append(f.sent, payload)

	// The real publisher records the flash state after a confirmed publish.
	if _, ok := payload["flash_en"]; ok {
		state := &models.ActuatorState{TS: time.Now().UTC().Format(time.RFC3339)}
		if v, ok := payload["flash_en"].(int); ok {
			state.FlashEn = &v
		}
		f.cacheFlash(ctx, deviceID, state)
	}
	return payload, nil
}

func (f *fakeSender) cacheFlash(ctx context.Context, deviceID string, state *models.ActuatorState) {
	if f.cache != nil {
		f.cache.SetActuatorState(ctx, deviceID, models.ActuatorFlash, state)
	}
}

func testConfig() config.ControlConfig {
	return config.ControlConfig{
		Interval:         time.Minute,
		Timezone:         "UTC",
		SoilMoistureLow:  300,
		SoilMoistureHigh: 700,
		LightLuxLow:      500,
		LightLuxHigh:     800,
		ActiveHourStart:  7,
		ActiveHourEnd:    20,
		PumpDurationSec:  5,
		FlashOnLevel:     128,
		NightFlashLevel:  180,
	}
}

type evalFixture struct {
	evaluator *Evaluator
	cache     *fakeCache
	sender    *fakeSender
}

func newEvalFixture(t *testing.T, hour int) *evalFixture {
	t.Helper()
	cache := newFakeCache()
	sender := &fakeSender{cache: cache}

	evaluator, err := NewEvaluator(testConfig(), cache, sender)
	if err != nil {
		t.Fatalf("Failed to create evaluator: %v", err)
	}
	evaluator.now = func() time.Time {
		return time.Date(2024, 6, 1, hour, 0, 0, 0, time.UTC)
	}
	return &evalFixture{evaluator: evaluator, cache: cache, sender: sender}
}

func (f *evalFixture) setMoisture(v float64) {
	f.cache.snapshots["6c18"] = &models.LatestSnapshot{
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		SoilMoisture: &v,
	}
}

func (f *evalFixture) setLux(v float64) {
	f.cache.snapshots["6c18"] = &models.LatestSnapshot{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		LightLux:  &v,
	}
}

func TestEvaluateNoCachedReading(t *testing.T) {
	f := newEvalFixture(t, 12)

	err := f.evaluator.Evaluate(context.Background(), "6c18")
	if err != errors.ErrNoCachedReading {
		t.Fatalf("Expected ErrNoCachedReading, got %v", err)
	}
	if len(f.sender.sent) != 0 {
		t.Errorf("No commands expected without cached data, got %d", len(f.sender.sent))
	}
}

func TestIrrigationHysteresis(t *testing.T) {
	f := newEvalFixture(t, 12)
	ctx := context.Background()

	// Dry -> one pump-on command.
	f.setMoisture(250)
	f.evaluator.Evaluate(ctx, "6c18")
	if len(f.sender.sent) != 1 {
		t.Fatalf("Expected pump-on command, got %d commands", len(f.sender.sent))
	}
	if f.sender.sent[0]["water_pump_action"] != 1 {
		t.Errorf("Expected water_pump_action=1, got %v", f.sender.sent[0])
	}
	if f.sender.sent[0]["water_pump_duration"] != 5 {
		t.Errorf("Expected water_pump_duration=5, got %v", f.sender.sent[0])
	}
	if pump := f.cache.actuators["6c18:water_pump"]; pump == nil || pump.Status != "on" {
		t.Fatalf("Expected cached pump state on, got %+v", pump)
	}

	// Still dry: state already "on", no duplicate command.
	f.evaluator.Evaluate(ctx, "6c18")
	// Dead band: no command either way.
	f.setMoisture(500)
	f.evaluator.Evaluate(ctx, "6c18")
	f.evaluator.Evaluate(ctx, "6c18")
	if len(f.sender.sent) != 1 {
		t.Fatalf("Expected no commands while stable, got %d total", len(f.sender.sent))
	}

	// Wet -> one pump-off command, then silence.
	f.setMoisture(750)
	f.evaluator.Evaluate(ctx, "6c18")
	f.evaluator.Evaluate(ctx, "6c18")
	if len(f.sender.sent) != 2 {
		t.Fatalf("Expected exactly two commands over the whole sequence, got %d", len(f.sender.sent))
	}
	if f.sender.sent[1]["water_pump_action"] != 0 {
		t.Errorf("Expected water_pump_action=0, got %v", f.sender.sent[1])
	}
	if pump := f.cache.actuators["6c18:water_pump"]; pump == nil || pump.Status != "off" {
		t.Errorf("Expected cached pump state off, got %+v", pump)
	}
}

func TestLightingHysteresisInWindow(t *testing.T) {
	f := newEvalFixture(t, 12)
	ctx := context.Background()

	f.setLux(400)
	f.evaluator.Evaluate(ctx, "6c18")
	if len(f.sender.sent) != 1 {
		t.Fatalf("Expected light-on command, got %d", len(f.sender.sent))
	}
	if f.sender.sent[0]["flash_en"] != 1 || f.sender.sent[0]["flash_level"] != 128 {
		t.Errorf("Expected flash_en=1 flash_level=128, got %v", f.sender.sent[0])
	}

	// Between thresholds: no command.
	f.setLux(650)
	f.evaluator.Evaluate(ctx, "6c18")
	if len(f.sender.sent) != 1 {
		t.Fatalf("Expected no command in dead band, got %d", len(f.sender.sent))
	}

	// Bright -> light off.
	f.setLux(900)
	f.evaluator.Evaluate(ctx, "6c18")
	if len(f.sender.sent) != 2 {
		t.Fatalf("Expected light-off command, got %d", len(f.sender.sent))
	}
	if f.sender.sent[1]["flash_en"] != 0 {
		t.Errorf("Expected flash_en=0, got %v", f.sender.sent[1])
	}
}

func TestLightingForcedOffOutsideWindow(t *testing.T) {
	f := newEvalFixture(t, 23)
	ctx := context.Background()

	// Light is on from earlier, lux is dark enough to keep it on.
	on := 1
	f.cache.actuators["6c18:flash"] = &models.ActuatorState{FlashEn: &on}
	f.setLux(100)

	f.evaluator.Evaluate(ctx, "6c18")
	if len(f.sender.sent) != 1 {
		t.Fatalf("Expected forced-off command outside active hours, got %d", len(f.sender.sent))
	}
	cmd := f.sender.sent[0]
	if cmd["flash_en"] != 0 || cmd["flash_nt"] != 1 || cmd["flash_level"] != 180 {
		t.Errorf("Unexpected night command: %v", cmd)
	}

	// Already off: stays silent.
	f.evaluator.Evaluate(ctx, "6c18")
	if len(f.sender.sent) != 1 {
		t.Errorf("Expected no duplicate forced-off, got %d", len(f.sender.sent))
	}
}

func TestFailedPublishLeavesStateUntouched(t *testing.T) {
	f := newEvalFixture(t, 12)
	ctx := context.Background()

	f.sender.fail = true
	f.setMoisture(250)

	f.evaluator.Evaluate(ctx, "6c18")
	if _, ok := f.cache.actuators["6c18:water_pump"]; ok {
		t.Error("Pump state must not be cached when the publish failed")
	}

	// Broker recovers: the next cycle emits the command.
	f.sender.fail = false
	f.evaluator.Evaluate(ctx, "6c18")
	if len(f.sender.sent) != 1 {
		t.Fatalf("Expected pump-on after broker recovery, got %d", len(f.sender.sent))
	}
	if pump := f.cache.actuators["6c18:water_pump"]; pump == nil || pump.Status != "on" {
		t.Errorf("Expected cached pump state on after successful publish, got %+v", pump)
	}
}

func TestMissingFieldSkipsActuator(t *testing.T) {
	f := newEvalFixture(t, 12)
	ctx := context.Background()

	// Moisture only: lighting branch must fall into forced-off (no-op,
	// light already off), irrigation fires.
	f.setMoisture(250)
	f.evaluator.Evaluate(ctx, "6c18")

	for _, cmd := range f.sender.sent {
		if _, ok := cmd["flash_en"]; ok {
			t.Errorf("No lighting command expected without lux, got %v", cmd)
		}
	}
}
