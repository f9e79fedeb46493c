// FilePath: api/resources/api.resource.control.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/greeneye-project/greeneye-hub/internal/errors"
	"github.com/greeneye-project/greeneye-hub/internal/hubservice"
	nuts "github.com/vaudience/go-nuts"
)

// ControlHandlers encapsulates manual actuator control and preset modes
type ControlHandlers struct {
	hubservice *hubservice.HubService
}

type manualControlRequest struct {
	DeviceType  string `json:"device_type"` // water_pump, led, humidifier
	Action      string `json:"action"`      // on, off
	DurationSec int    `json:"duration_sec,omitempty"`
}

type modeRequest struct {
	Mode string `json:"mode"` // Z, L, M, H, U
}

// @Summary Manual actuator control
// @Description Send an on/off command to one actuator of a device
// @Tags control
// @Accept json
// @Produce json
// @Param id path string true "Canonical device ID"
// @Param command body manualControlRequest true "Actuator command"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errors.APIError
// @Router /devices/{id}/control [post]
// @Security BearerAuth
func (h *ControlHandlers) ControlDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	deviceID := mux.Vars(r)["id"]

	var req manualControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}
	if req.Action != "on" && req.Action != "off" {
		respondWithError(w, errors.NewValidationError("action must be 'on' or 'off'", nil).WithRequestID(requestID))
		return
	}

	onOff := 0
	if req.Action == "on" {
		onOff = 1
	}

	var payload map[string]interface{}
	switch req.DeviceType {
	case "water_pump":
		payload = map[string]interface{}{
			"water_pump_action":   onOff,
			"water_pump_duration": req.DurationSec,
		}
	case "led":
		payload = map[string]interface{}{"flash_en": onOff}
	case "humidifier":
		payload = map[string]interface{}{"humidifier_action": onOff}
	default:
		respondWithError(w, errors.NewValidationError("unknown device_type "+req.DeviceType, nil).WithRequestID(requestID))
		return
	}

	sent, err := h.hubservice.Commands.SendConfig(r.Context(), deviceID, payload)
	if err != nil {
		respondWithError(w, errors.NewInternalError("failed to send command", err).WithRequestID(requestID))
		return
	}

	nuts.L.Infof("[ControlHandler] Manual %s %s for %s", req.DeviceType, req.Action, deviceID)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "success",
		"device_id": deviceID,
		"sent":      sent,
	})
}

// @Summary Apply a preset mode
// @Description Push one of the firmware power profiles (Z, L, M, H, U) to a device
// @Tags control
// @Accept json
// @Produce json
// @Param id path string true "Canonical device ID"
// @Param mode body modeRequest true "Preset mode"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errors.APIError
// @Router /devices/{id}/mode [post]
// @Security BearerAuth
func (h *ControlHandlers) SetMode(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	deviceID := mux.Vars(r)["id"]

	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	sent, err := h.hubservice.Commands.SendMode(r.Context(), deviceID, req.Mode)
	if err != nil {
		if apiErr, ok := err.(*errors.APIError); ok {
			respondWithError(w, apiErr.WithRequestID(requestID))
			return
		}
		respondWithError(w, errors.NewInternalError("failed to send mode", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "success",
		"device_id": deviceID,
		"mode":      req.Mode,
		"sent":      sent,
	})
}

// @Summary Raw device configuration
// @Description Publish an arbitrary config payload; only allow-listed keys survive sanitization
// @Tags control
// @Accept json
// @Produce json
// @Param id path string true "Canonical device ID"
// @Param config body map[string]interface{} true "Config payload"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errors.APIError
// @Router /devices/{id}/config [post]
// @Security BearerAuth
func (h *ControlHandlers) SendConfig(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	deviceID := mux.Vars(r)["id"]

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	sent, err := h.hubservice.Commands.SendConfig(r.Context(), deviceID, payload)
	if err != nil {
		if apiErr, ok := err.(*errors.APIError); ok {
			respondWithError(w, apiErr.WithRequestID(requestID))
			return
		}
		respondWithError(w, errors.NewInternalError("failed to send config", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "success",
		"device_id": deviceID,
		"sent":      sent,
	})
}
