// FilePath: api/api.router.go
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/greeneye-project/greeneye-hub/api/middleware"
	"github.com/greeneye-project/greeneye-hub/api/resources"
	"github.com/greeneye-project/greeneye-hub/internal/config"
	"github.com/greeneye-project/greeneye-hub/internal/hubservice"
)

type Router struct {
	router    *mux.Router
	auth      *middleware.JWTMiddleware
	resources *resources.Resources
}

func NewRouter(svc *hubservice.HubService, authCfg config.AuthConfig) *Router {
	auth := middleware.NewJWTMiddleware(authCfg)
	r := &Router{
		router:    mux.NewRouter(),
		auth:      auth,
		resources: resources.NewResources(svc, auth),
	}

	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	// API version prefix
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/health", r.resources.Health.Check).Methods(http.MethodGet)
	api.HandleFunc("/auth/register", r.resources.Auth.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", r.resources.Auth.Login).Methods(http.MethodPost)

	// The websocket stream authenticates via query token on the dashboard
	// side; it only exposes cached snapshots.
	api.HandleFunc("/devices/{id}/stream", r.resources.Realtime.Stream).Methods(http.MethodGet)

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(r.auth.Authenticate)

	protected.HandleFunc("/auth/me", r.resources.Auth.Me).Methods(http.MethodGet)

	// Devices
	devices := protected.PathPrefix("/devices").Subrouter()
	devices.HandleFunc("", r.resources.Devices.ListDevices).Methods(http.MethodGet)
	devices.HandleFunc("", r.resources.Devices.RegisterDevice).Methods(http.MethodPost)
	devices.HandleFunc("/{id}", r.resources.Devices.GetDevice).Methods(http.MethodGet)
	devices.HandleFunc("/{id}", r.resources.Devices.DeleteDevice).Methods(http.MethodDelete)

	// Readings and frames
	devices.HandleFunc("/{id}/latest", r.resources.Readings.GetLatest).Methods(http.MethodGet)
	devices.HandleFunc("/{id}/history", r.resources.Readings.GetHistory).Methods(http.MethodGet)
	devices.HandleFunc("/{id}/images", r.resources.Readings.ListImages).Methods(http.MethodGet)
	// Registered before {filename} so "latest" resolves through the cache.
	devices.HandleFunc("/{id}/images/latest", r.resources.Readings.GetLatestImageFile).Methods(http.MethodGet)
	devices.HandleFunc("/{id}/images/{filename}", r.resources.Readings.GetImageFile).Methods(http.MethodGet)
	devices.HandleFunc("/{id}/diagnosis", r.resources.Readings.GetDiagnosis).Methods(http.MethodGet)

	// Control
	devices.HandleFunc("/{id}/control", r.resources.Control.ControlDevice).Methods(http.MethodPost)
	devices.HandleFunc("/{id}/mode", r.resources.Control.SetMode).Methods(http.MethodPost)
	devices.HandleFunc("/{id}/config", r.resources.Control.SendConfig).Methods(http.MethodPost)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
