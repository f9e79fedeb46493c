// FilePath: api/resources/api.resource.devices.go
package resources

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/gorilla/mux"
	"github.com/greeneye-project/greeneye-hub/api/middleware"
	"github.com/greeneye-project/greeneye-hub/internal/errors"
	"github.com/greeneye-project/greeneye-hub/internal/hubservice"
	"github.com/greeneye-project/greeneye-hub/internal/models"
	"github.com/greeneye-project/greeneye-hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// Accepted device address shapes: "GE-SD-6C18" style device codes. The
// canonical device_id is the trailing 4 hex characters, lowercased.
var (
	deviceCodeRe = regexp.MustCompile(`^[A-Za-z0-9]{2}-[A-Za-z0-9]{2}-[0-9a-fA-F]{4}$`)
	shortCodeRe  = regexp.MustCompile(`^ge-sd-[0-9a-fA-F]{4}$`)
)

// DeviceHandlers encapsulates the device registry HTTP handlers
type DeviceHandlers struct {
	hubservice *hubservice.HubService
}

type registerDeviceRequest struct {
	MACAddress   string  `json:"mac_address"`
	FriendlyName string  `json:"friendly_name"`
	PlantType    *string `json:"plant_type,omitempty"`
	Room         *string `json:"room,omitempty"`
}

// @Summary Register a device
// @Description Claim a device for the authenticated user. First registration wins; a device owned by another user cannot be re-claimed.
// @Tags devices
// @Accept json
// @Produce json
// @Param device body registerDeviceRequest true "Device details"
// @Success 201 {object} models.Device
// @Failure 400 {object} errors.APIError
// @Failure 409 {object} errors.APIError
// @Router /devices [post]
// @Security BearerAuth
func (h *DeviceHandlers) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, errors.NewAuthError("not authenticated", nil).WithRequestID(requestID))
		return
	}

	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	mac := strings.TrimSpace(req.MACAddress)
	req.FriendlyName = strings.TrimSpace(req.FriendlyName)
	if mac == "" || req.FriendlyName == "" {
		respondWithError(w, errors.NewValidationError("mac_address and friendly_name are required", nil).WithRequestID(requestID))
		return
	}
	if !deviceCodeRe.MatchString(mac) && !shortCodeRe.MatchString(strings.ToLower(mac)) {
		respondWithError(w, errors.NewValidationError("mac_address must match 'ge-sd-0000' (4 hex)", nil).WithRequestID(requestID))
		return
	}

	macNorm := strings.ToUpper(mac)
	segments := strings.Split(macNorm, "-")
	deviceID := strings.ToLower(segments[len(segments)-1])

	device := &models.Device{
		DeviceID:     deviceID,
		MACAddress:   macNorm,
		FriendlyName: req.FriendlyName,
		OwnerUserID:  &userID,
		PlantType:    req.PlantType,
		Room:         req.Room,
	}

	if err := h.hubservice.Devices.Register(r.Context(), device); err != nil {
		if err == repository.ErrAlreadyClaimed {
			respondWithError(w, errors.NewConflictError("device already claimed", nil).
				WithRequestID(requestID).
				WithDetails(map[string]string{"mac_address": macNorm, "device_id": deviceID}))
			return
		}
		respondWithError(w, errors.NewInternalError("failed to register device", err).WithRequestID(requestID))
		return
	}

	// New devices join the auto-control rotation immediately.
	if h.hubservice.Control != nil {
		if err := h.hubservice.Control.EnsureDevice(r.Context(), deviceID); err != nil {
			nuts.L.Errorf("[DeviceHandler] Failed to schedule auto-control for %s: %v", deviceID, err)
		}
	}

	respondWithJSON(w, http.StatusCreated, device)
}

// @Summary List devices
// @Description List devices owned by the authenticated user
// @Tags devices
// @Produce json
// @Success 200 {array} models.Device
// @Router /devices [get]
// @Security BearerAuth
func (h *DeviceHandlers) ListDevices(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, errors.NewAuthError("not authenticated", nil).WithRequestID(requestID))
		return
	}

	devices, err := h.hubservice.Devices.ListByOwner(r.Context(), userID)
	if err != nil {
		respondWithError(w, errors.NewInternalError("failed to list devices", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, devices)
}

// @Summary Get one device
// @Tags devices
// @Produce json
// @Param id path string true "Canonical device ID"
// @Success 200 {object} models.Device
// @Failure 404 {object} errors.APIError
// @Router /devices/{id} [get]
// @Security BearerAuth
func (h *DeviceHandlers) GetDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	deviceID := mux.Vars(r)["id"]

	device, err := h.hubservice.Devices.GetByDeviceID(r.Context(), deviceID)
	if err != nil {
		if err == repository.ErrNotFound {
			respondWithError(w, errors.NewNotFoundError("device not found", nil).WithRequestID(requestID))
			return
		}
		respondWithError(w, errors.NewInternalError("failed to get device", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, device)
}

// @Summary Delete a device
// @Description Remove a device owned by the authenticated user and stop its auto-control
// @Tags devices
// @Produce json
// @Param id path string true "Canonical device ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} errors.APIError
// @Router /devices/{id} [delete]
// @Security BearerAuth
func (h *DeviceHandlers) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	deviceID := mux.Vars(r)["id"]

	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, errors.NewAuthError("not authenticated", nil).WithRequestID(requestID))
		return
	}

	if err := h.hubservice.Devices.Delete(r.Context(), deviceID, userID); err != nil {
		if err == repository.ErrNotFound {
			respondWithError(w, errors.NewNotFoundError("device not found", nil).WithRequestID(requestID))
			return
		}
		respondWithError(w, errors.NewInternalError("failed to delete device", err).WithRequestID(requestID))
		return
	}

	if h.hubservice.Control != nil {
		h.hubservice.Control.RemoveDevice(deviceID)
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted", "device_id": deviceID})
}
