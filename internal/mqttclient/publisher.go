// FilePath: internal/mqttclient/publisher.go
package mqttclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/greeneye-project/greeneye-hub/internal/errors"
	"github.com/greeneye-project/greeneye-hub/internal/models"
	"github.com/greeneye-project/greeneye-hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// Allow-listed configuration keys. Anything else in a caller payload is
// silently dropped before publish so a compromised or buggy caller cannot
// push arbitrary settings to firmware.
var allowedIntKeys = map[string][2]int{
	"flash_en":            {0, 1},
	"flash_nt":            {0, 1},
	"flash_level":         {0, 255},
	"nht_mode":            {0, 1},
	"water_pump_action":   {0, 1},
	"water_pump_duration": {0, 3600},
	"humidifier_action":   {0, 1},
}

var allowedStrKeys = map[string]map[string]bool{
	"pwr_mode": {"Z": true, "L": true, "M": true, "H": true, "U": true},
}

// PresetModes are the firmware power profiles selectable from the app.
var PresetModes = map[string]map[string]interface{}{
	"Z": {"pwr_mode": "Z", "nht_mode": 1, "flash_en": 0, "flash_nt": 0, "flash_level": 0},
	"L": {"pwr_mode": "L", "nht_mode": 1, "flash_en": 1, "flash_nt": 0, "flash_level": 120},
	"M": {"pwr_mode": "M", "nht_mode": 1, "flash_en": 1, "flash_nt": 0, "flash_level": 160},
	"H": {"pwr_mode": "H", "nht_mode": 1, "flash_en": 1, "flash_nt": 1, "flash_level": 200},
	"U": {"pwr_mode": "U", "nht_mode": 0, "flash_en": 1, "flash_nt": 1, "flash_level": 255},
}

// Publisher sends device configuration commands. Messages are retained at
// QoS 1 so a device that was asleep picks up its latest config on reconnect.
type Publisher struct {
	client         mqtt.Client
	confTopic      string
	publishTimeout time.Duration
	cache          repository.LatestCache
}

func NewPublisher(client mqtt.Client, confTopic string, publishTimeout time.Duration, cache repository.LatestCache) *Publisher {
	return &Publisher{
		client:         client,
		confTopic:      confTopic,
		publishTimeout: publishTimeout,
		cache:          cache,
	}
}

// SanitizeConfig filters a raw payload down to allow-listed keys with
// in-range values. String mode values are uppercased.
func SanitizeConfig(payload map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for k, v := range payload {
		if bounds, ok := allowedIntKeys[k]; ok {
			if iv, ok := asInt(v); ok && iv >= bounds[0] && iv <= bounds[1] {
				out[k] = iv
			}
			continue
		}
		if allowed, ok := allowedStrKeys[k]; ok {
			if sv, ok := v.(string); ok && allowed[strings.ToUpper(sv)] {
				out[k] = strings.ToUpper(sv)
			}
		}
	}
	return out
}

// asInt accepts native ints and whole-valued JSON floats.
func asInt(v interface{}) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if x == float64(int(x)) {
			return int(x), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// SendConfig sanitizes and publishes a config payload to the device's conf
// topic. The cached flash actuator state is updated only after the broker
// acknowledges the publish, so the cache never records a command that was
// not delivered.
func (p *Publisher) SendConfig(ctx context.Context, deviceID string, payload map[string]interface{}) (map[string]interface{}, error) {
	toSend := SanitizeConfig(payload)
	if len(toSend) == 0 {
		return nil, errors.NewValidationError("no allowed config keys in payload", nil)
	}

	body, err := json.Marshal(toSend)
	if err != nil {
		return nil, errors.NewInternalError("failed to marshal config payload", err)
	}

	topic := p.confTopic + "/" + deviceID
	token := p.client.Publish(topic, 1, true, body)
	if !token.WaitTimeout(p.publishTimeout) {
		return nil, errors.NewCommandPublishError(topic, fmt.Errorf("publish timed out after %s", p.publishTimeout))
	}
	if token.Error() != nil {
		return nil, errors.NewCommandPublishError(topic, token.Error())
	}
	nuts.L.Infof("[Publisher] Sent config to %s: %s", topic, string(body))

	p.recordFlashState(ctx, deviceID, toSend)
	return toSend, nil
}

// SendMode publishes one of the preset power profiles.
func (p *Publisher) SendMode(ctx context.Context, deviceID, mode string) (map[string]interface{}, error) {
	preset, ok := PresetModes[strings.ToUpper(mode)]
	if !ok {
		return nil, errors.NewValidationError(fmt.Sprintf("invalid mode %q, must be one of Z, L, M, H, U", mode), nil)
	}
	return p.SendConfig(ctx, deviceID, preset)
}

func (p *Publisher) recordFlashState(ctx context.Context, deviceID string, sent map[string]interface{}) {
	_, hasEn := sent["flash_en"]
	_, hasNt := sent["flash_nt"]
	_, hasLevel := sent["flash_level"]
	if !hasEn && !hasNt && !hasLevel {
		return
	}

	state := &models.ActuatorState{TS: time.Now().UTC().Format(time.RFC3339)}
	if v, ok := sent["flash_en"].(int); ok {
		state.FlashEn = &v
	}
	if v, ok := sent["flash_nt"].(int); ok {
		state.FlashNt = &v
	}
	if v, ok := sent["flash_level"].(int); ok {
		state.FlashLevel = &v
	}

	if err := p.cache.SetActuatorState(ctx, deviceID, models.ActuatorFlash, state); err != nil {
		nuts.L.Errorf("[Publisher] Failed to cache flash state for %s: %v", deviceID, err)
	}
}
