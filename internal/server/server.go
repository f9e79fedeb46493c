// FilePath: internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/greeneye-project/greeneye-hub/api"
	"github.com/greeneye-project/greeneye-hub/internal/config"
	"github.com/greeneye-project/greeneye-hub/internal/control"
	"github.com/greeneye-project/greeneye-hub/internal/database"
	"github.com/greeneye-project/greeneye-hub/internal/hubservice"
	"github.com/greeneye-project/greeneye-hub/internal/inference"
	"github.com/greeneye-project/greeneye-hub/internal/ingest"
	"github.com/greeneye-project/greeneye-hub/internal/mqttclient"
	"github.com/greeneye-project/greeneye-hub/internal/repository/files"
	"github.com/greeneye-project/greeneye-hub/internal/repository/influx"
	"github.com/greeneye-project/greeneye-hub/internal/repository/rediscache"
	"github.com/greeneye-project/greeneye-hub/internal/repository/sqlite"
	nuts "github.com/vaudience/go-nuts"
)

// Server wires all services together and runs the HTTP listener.
type Server struct {
	config     *config.Config
	srv        *http.Server
	hubservice *hubservice.HubService

	mqtt      *mqttclient.Client
	scheduler *control.Scheduler
	cancelSub context.CancelFunc
}

// New creates a new server instance
func New(cfg *config.Config) *Server {
	return &Server{config: cfg}
}

// Start initializes all dependencies, subscribes to telemetry and serves
// HTTP until an interrupt arrives.
func (s *Server) Start() error {
	appDB := initAppDB(s.config.Database)

	users, err := sqlite.NewUserRepository(appDB)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize user repository: %v", err)
	}
	devices, err := sqlite.NewDeviceRepository(appDB)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize device repository: %v", err)
	}
	imageDB, err := sqlite.NewImageRepository(appDB)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize image repository: %v", err)
	}

	readings := influx.NewReadingRepository(s.config.Influx)
	cache := rediscache.New(s.config.Redis)

	fileStore, err := files.NewStorage(s.config.Images.UploadDir)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize file store: %v", err)
	}

	s.mqtt, err = mqttclient.NewClient(s.config.MQTT)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to connect to MQTT broker: %v", err)
	}
	publisher := mqttclient.NewPublisher(s.mqtt.Native(), s.config.MQTT.ConfTopic, s.config.MQTT.PublishTimeout, cache)

	// Ingestion pipeline behind the telemetry subscription
	pipeline := ingest.NewPipeline(devices, imageDB, readings, cache, fileStore, inference.NoopEngine{})
	subCtx, cancelSub := context.WithCancel(context.Background())
	s.cancelSub = cancelSub
	subscriber := mqttclient.NewSubscriber(s.mqtt.Native(), s.config.MQTT.DataTopic, pipeline)
	if err := subscriber.Subscribe(subCtx); err != nil {
		nuts.L.Fatalf("[Server] Failed to subscribe to telemetry topic: %v", err)
	}

	// Auto-control
	evaluator, err := control.NewEvaluator(s.config.Control, cache, publisher)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize evaluator: %v", err)
	}
	s.scheduler, err = control.NewScheduler(s.config.Control, evaluator)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to initialize control scheduler: %v", err)
	}
	if err := s.scheduler.Start(subCtx, devices); err != nil {
		nuts.L.Fatalf("[Server] Failed to start control scheduler: %v", err)
	}

	s.hubservice = hubservice.New(users, devices, imageDB, readings, cache, fileStore, publisher, s.mqtt, s.scheduler)
	if err := s.hubservice.Validate(); err != nil {
		nuts.L.Fatalf("[Server] Invalid service wiring: %v", err)
	}

	router := api.NewRouter(s.hubservice, s.config.Auth)
	handler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(handlers.RecoveryHandler()(router))

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      handler,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Server] Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	return s.waitForShutdown(readings, cache)
}

// waitForShutdown waits for interrupt signal and gracefully shuts everything
// down: HTTP first, then the scheduler, then the broker and stores.
func (s *Server) waitForShutdown(readings *influx.ReadingRepo, cache *rediscache.Cache) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Server] Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		nuts.L.Errorf("[Server] Error shutting down HTTP server: %v", err)
	}

	if err := s.scheduler.Shutdown(); err != nil {
		nuts.L.Errorf("[Server] Error shutting down control scheduler: %v", err)
	}

	s.cancelSub()
	s.mqtt.Close()
	readings.Close()
	if err := cache.Close(); err != nil {
		nuts.L.Errorf("[Server] Error closing cache: %v", err)
	}

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

func initAppDB(cfg config.DatabaseConfig) database.DB {
	wrappedDB, err := database.NewSQLiteDB(cfg)
	if err != nil {
		nuts.L.Fatalf("[Server] Failed to open app database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wrappedDB.Ping(ctx); err != nil {
		nuts.L.Fatalf("[Server] Failed to ping app database: %v", err)
	}
	return wrappedDB
}
