// FilePath: api/resources/api.resource.readings.go
package resources

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	"github.com/greeneye-project/greeneye-hub/internal/errors"
	"github.com/greeneye-project/greeneye-hub/internal/hubservice"
	"github.com/greeneye-project/greeneye-hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

var queryDecoder = schema.NewDecoder()

func init() {
	queryDecoder.IgnoreUnknownKeys(true)
}

// ReadingHandlers serves cached snapshots, ranged history, image frames and
// diagnoses
type ReadingHandlers struct {
	hubservice *hubservice.HubService
}

type rangeQuery struct {
	Start string `schema:"start"`
	End   string `schema:"end"`
	Hours int    `schema:"hours"`
}

// @Summary Latest sensor snapshot
// @Description Return the latest cached reading for a device
// @Tags readings
// @Produce json
// @Param id path string true "Canonical device ID"
// @Success 200 {object} models.LatestSnapshot
// @Failure 404 {object} errors.APIError
// @Router /devices/{id}/latest [get]
// @Security BearerAuth
func (h *ReadingHandlers) GetLatest(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	deviceID := mux.Vars(r)["id"]

	snap, err := h.hubservice.Cache.GetLatestReading(r.Context(), deviceID)
	if err != nil {
		if err == repository.ErrNotFound {
			respondWithError(w, errors.NewNotFoundError("no data for device", nil).WithRequestID(requestID))
			return
		}
		respondWithError(w, errors.NewInternalError("failed to read cache", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, snap)
}

// @Summary Historical sensor data
// @Description Query raw sensor records for a device. Accepts start/end (RFC3339) or hours (relative window, default 24).
// @Tags readings
// @Produce json
// @Param id path string true "Canonical device ID"
// @Param start query string false "Start time (RFC3339)"
// @Param end query string false "End time (RFC3339)"
// @Param hours query int false "Relative window in hours"
// @Success 200 {array} models.ReadingRow
// @Failure 400 {object} errors.APIError
// @Router /devices/{id}/history [get]
// @Security BearerAuth
func (h *ReadingHandlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	deviceID := mux.Vars(r)["id"]

	var q rangeQuery
	if err := queryDecoder.Decode(&q, r.URL.Query()); err != nil {
		respondWithError(w, errors.NewValidationError("invalid query parameters", err).WithRequestID(requestID))
		return
	}

	start, end, err := resolveRange(q)
	if err != nil {
		respondWithError(w, errors.NewValidationError(err.Error(), nil).WithRequestID(requestID))
		return
	}

	rows, err := h.hubservice.Readings.QueryRange(r.Context(), deviceID, start, end)
	if err != nil {
		respondWithError(w, errors.NewInternalError("failed to query sensor history", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, rows)
}

func resolveRange(q rangeQuery) (time.Time, time.Time, error) {
	now := time.Now().UTC()

	if q.Start != "" || q.End != "" {
		start, err := time.Parse(time.RFC3339, q.Start)
		if err != nil {
			return time.Time{}, time.Time{}, errors.NewValidationError("start must be RFC3339", err)
		}
		end := now
		if q.End != "" {
			end, err = time.Parse(time.RFC3339, q.End)
			if err != nil {
				return time.Time{}, time.Time{}, errors.NewValidationError("end must be RFC3339", err)
			}
		}
		if !end.After(start) {
			return time.Time{}, time.Time{}, errors.NewValidationError("end must be after start", nil)
		}
		return start, end, nil
	}

	hours := q.Hours
	if hours <= 0 {
		hours = 24
	}
	return now.Add(-time.Duration(hours) * time.Hour), now, nil
}

// @Summary List image frames
// @Description List stored image metadata for a device, newest first
// @Tags readings
// @Produce json
// @Param id path string true "Canonical device ID"
// @Success 200 {array} models.PlantImage
// @Router /devices/{id}/images [get]
// @Security BearerAuth
func (h *ReadingHandlers) ListImages(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	deviceID := mux.Vars(r)["id"]

	images, err := h.hubservice.Images.ListByDevice(r.Context(), deviceID, 50)
	if err != nil {
		respondWithError(w, errors.NewInternalError("failed to list images", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, images)
}

// @Summary Latest image frame
// @Description Stream the newest stored JPEG for a device, resolved via the latest-image cache
// @Tags readings
// @Produce image/jpeg
// @Param id path string true "Canonical device ID"
// @Success 200 {file} binary
// @Failure 404 {object} errors.APIError
// @Router /devices/{id}/images/latest [get]
// @Security BearerAuth
func (h *ReadingHandlers) GetLatestImageFile(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	deviceID := mux.Vars(r)["id"]

	filename, err := h.hubservice.Cache.GetLatestImage(r.Context(), deviceID)
	if err != nil {
		if err == repository.ErrNotFound {
			respondWithError(w, errors.NewNotFoundError("no image for device", nil).WithRequestID(requestID))
			return
		}
		respondWithError(w, errors.NewInternalError("failed to read latest-image cache", err).WithRequestID(requestID))
		return
	}

	http.ServeFile(w, r, h.hubservice.Files.FramePath(filename))
}

// @Summary Serve an image frame
// @Description Stream a stored JPEG by filename
// @Tags readings
// @Produce image/jpeg
// @Param id path string true "Canonical device ID"
// @Param filename path string true "Stored filename"
// @Success 200 {file} binary
// @Failure 404 {object} errors.APIError
// @Router /devices/{id}/images/{filename} [get]
// @Security BearerAuth
func (h *ReadingHandlers) GetImageFile(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]
	http.ServeFile(w, r, h.hubservice.Files.FramePath(filename))
}

// @Summary Latest AI diagnosis
// @Description Return the cached inference result for a device's newest frame
// @Tags readings
// @Produce json
// @Param id path string true "Canonical device ID"
// @Success 200 {object} models.Diagnosis
// @Failure 404 {object} errors.APIError
// @Router /devices/{id}/diagnosis [get]
// @Security BearerAuth
func (h *ReadingHandlers) GetDiagnosis(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	deviceID := mux.Vars(r)["id"]

	diag, err := h.hubservice.Cache.GetDiagnosis(r.Context(), deviceID)
	if err != nil {
		if err == repository.ErrNotFound {
			respondWithError(w, errors.NewNotFoundError("no diagnosis for device", nil).WithRequestID(requestID))
			return
		}
		respondWithError(w, errors.NewInternalError("failed to read diagnosis", err).WithRequestID(requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, diag)
}
