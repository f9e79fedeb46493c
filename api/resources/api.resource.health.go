// FilePath: api/resources/api.resource.health.go
package resources

import (
	"net/http"

	"github.com/greeneye-project/greeneye-hub/internal/hubservice"
)

// HealthHandlers reports dependency health
type HealthHandlers struct {
	hubservice *hubservice.HubService
}

type healthResponse struct {
	Status   string          `json:"status"`
	Services map[string]bool `json:"services"`
}

// @Summary Health check
// @Description Report reachability of the relational store, time-series store, cache and MQTT broker
// @Tags system
// @Produce json
// @Success 200 {object} healthResponse
// @Failure 503 {object} healthResponse
// @Router /health [get]
func (h *HealthHandlers) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	services := map[string]bool{
		"database": h.hubservice.Users.Ping(ctx) == nil,
		"influx":   h.hubservice.Readings.Ping(ctx) == nil,
		"redis":    h.hubservice.Cache.Ping(ctx) == nil,
		"mqtt":     h.hubservice.Broker.IsConnected(),
	}

	status := "ok"
	code := http.StatusOK
	for _, up := range services {
		if !up {
			status = "degraded"
			code = http.StatusServiceUnavailable
			break
		}
	}

	respondWithJSON(w, code, healthResponse{Status: status, Services: services})
}
