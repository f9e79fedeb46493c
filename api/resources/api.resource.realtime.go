// FilePath: api/resources/api.resource.realtime.go
package resources

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/greeneye-project/greeneye-hub/internal/hubservice"
	"github.com/greeneye-project/greeneye-hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

const snapshotPushInterval = 5 * time.Second

// RealtimeHandlers streams latest-value snapshots over a websocket so the
// dashboard does not have to poll the REST endpoint.
type RealtimeHandlers struct {
	hubservice *hubservice.HubService
	upgrader   websocket.Upgrader
}

func NewRealtimeHandlers(svc *hubservice.HubService) *RealtimeHandlers {
	return &RealtimeHandlers{
		hubservice: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dashboard is served from a different origin in dev.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type realtimeFrame struct {
	DeviceID string      `json:"device_id"`
	Data     interface{} `json:"data,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// @Summary Realtime sensor stream
// @Description Upgrade to a websocket that pushes the latest cached snapshot for a device every few seconds
// @Tags readings
// @Param id path string true "Canonical device ID"
// @Router /devices/{id}/stream [get]
func (h *RealtimeHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		nuts.L.Warnf("[Realtime] Upgrade failed for %s: %v", deviceID, err)
		return
	}
	defer conn.Close()

	nuts.L.Infof("[Realtime] Client connected for device %s", deviceID)

	// Reader goroutine only to detect the client going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(snapshotPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			nuts.L.Infof("[Realtime] Client disconnected for device %s", deviceID)
			return
		case <-ticker.C:
			frame := realtimeFrame{DeviceID: deviceID}
			snap, err := h.hubservice.Cache.GetLatestReading(r.Context(), deviceID)
			switch {
			case err == repository.ErrNotFound:
				frame.Error = "no data"
			case err != nil:
				frame.Error = "cache unavailable"
			default:
				frame.Data = snap
			}

			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(frame); err != nil {
				nuts.L.Infof("[Realtime] Write failed for %s, closing: %v", deviceID, err)
				return
			}
		}
	}
}
