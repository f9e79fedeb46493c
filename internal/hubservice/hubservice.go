// FilePath: internal/hubservice/hubservice.go
package hubservice

import (
	"context"

	"github.com/greeneye-project/greeneye-hub/internal/control"
	"github.com/greeneye-project/greeneye-hub/internal/errors"
	"github.com/greeneye-project/greeneye-hub/internal/repository"
)

// Commander publishes configuration commands to devices.
type Commander interface {
	SendConfig(ctx context.Context, deviceID string, payload map[string]interface{}) (map[string]interface{}, error)
	SendMode(ctx context.Context, deviceID, mode string) (map[string]interface{}, error)
}

// BrokerStatus exposes broker connectivity for the health endpoint.
type BrokerStatus interface {
	IsConnected() bool
}

// HubService contains all repositories and service-wide dependencies
type HubService struct {
	Users    repository.UserRepository
	Devices  repository.DeviceRepository
	Images   repository.ImageRepository
	Readings repository.ReadingRepository
	Cache    repository.LatestCache
	Files    repository.FileStore
	Commands Commander
	Broker   BrokerStatus
	Control  *control.Scheduler
}

// New creates a new HubService instance
func New(
	users repository.UserRepository,
	devices repository.DeviceRepository,
	images repository.ImageRepository,
	readings repository.ReadingRepository,
	cache repository.LatestCache,
	files repository.FileStore,
	commands Commander,
	broker BrokerStatus,
	controlScheduler *control.Scheduler,
) *HubService {
	return &HubService{
		Users:    users,
		Devices:  devices,
		Images:   images,
		Readings: readings,
		Cache:    cache,
		Files:    files,
		Commands: commands,
		Broker:   broker,
		Control:  controlScheduler,
	}
}

// Validate checks if all required dependencies are initialized
func (s *HubService) Validate() error {
	if s.Users == nil {
		return ErrMissingDependency("users")
	}
	if s.Devices == nil {
		return ErrMissingDependency("devices")
	}
	if s.Images == nil {
		return ErrMissingDependency("images")
	}
	if s.Readings == nil {
		return ErrMissingDependency("readings")
	}
	if s.Cache == nil {
		return ErrMissingDependency("cache")
	}
	if s.Files == nil {
		return ErrMissingDependency("files")
	}
	if s.Commands == nil {
		return ErrMissingDependency("commands")
	}
	if s.Broker == nil {
		return ErrMissingDependency("broker")
	}
	return nil
}

func ErrMissingDependency(name string) error {
	return errors.NewInternalError("missing dependency: "+name, nil)
}
