// FilePath: api/resources/resources.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/greeneye-project/greeneye-hub/api/middleware"
	"github.com/greeneye-project/greeneye-hub/internal/errors"
	"github.com/greeneye-project/greeneye-hub/internal/hubservice"
)

// Resources holds all HTTP resource handlers
type Resources struct {
	Auth     *AuthHandlers
	Devices  *DeviceHandlers
	Readings *ReadingHandlers
	Control  *ControlHandlers
	Realtime *RealtimeHandlers
	Health   *HealthHandlers
}

// NewResources creates a new Resources instance
func NewResources(svc *hubservice.HubService, auth *middleware.JWTMiddleware) *Resources {
	return &Resources{
		Auth:     &AuthHandlers{hubservice: svc, auth: auth},
		Devices:  &DeviceHandlers{hubservice: svc},
		Readings: &ReadingHandlers{hubservice: svc},
		Control:  &ControlHandlers{hubservice: svc},
		Realtime: NewRealtimeHandlers(svc),
		Health:   &HealthHandlers{hubservice: svc},
	}
}

func respondWithError(w http.ResponseWriter, err *errors.APIError) {
	respondWithJSON(w, err.Code, err)
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
