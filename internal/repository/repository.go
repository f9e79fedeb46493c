// FilePath: internal/repository/repository.go
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/greeneye-project/greeneye-hub/internal/database"
	"github.com/greeneye-project/greeneye-hub/internal/models"
)

var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")
	// ErrDuplicate indicates that a resource already exists
	ErrDuplicate = errors.New("resource already exists")
	// ErrAlreadyClaimed indicates a device is owned by another user
	ErrAlreadyClaimed = errors.New("device already claimed")
	// ErrInvalidInput indicates that the input data is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// UserRepository defines the interface for user registry operations
type UserRepository interface {
	database.Repository
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// DeviceRepository defines the interface for device registry operations.
// Register implements first-registration-wins claim semantics: a device
// already owned by someone else cannot be claimed again.
type DeviceRepository interface {
	database.Repository
	Register(ctx context.Context, device *models.Device) error
	GetByDeviceID(ctx context.Context, deviceID string) (*models.Device, error)
	GetByMAC(ctx context.Context, mac string) (*models.Device, error)
	ListByOwner(ctx context.Context, ownerUserID int64) ([]*models.Device, error)
	ListAll(ctx context.Context) ([]*models.Device, error)
	UpdateImage(ctx context.Context, deviceID string, ownerUserID int64, imagePath *string) error
	Delete(ctx context.Context, deviceID string, ownerUserID int64) error
}

// ImageRepository defines the interface for image frame metadata
type ImageRepository interface {
	database.Repository
	Insert(ctx context.Context, image *models.PlantImage) error
	ListByDevice(ctx context.Context, deviceID string, limit int) ([]*models.PlantImage, error)
	GetLatest(ctx context.Context, deviceID string) (*models.PlantImage, error)
}

// ReadingRepository defines the interface for the time-series store
type ReadingRepository interface {
	WriteReading(ctx context.Context, reading *models.SensorReading) error
	QueryRange(ctx context.Context, deviceID string, start, end time.Time) ([]models.ReadingRow, error)
	Ping(ctx context.Context) error
	Close()
}

// LatestCache defines the interface for the latest-value cache
type LatestCache interface {
	SetLatestReading(ctx context.Context, deviceID string, snap *models.LatestSnapshot) error
	GetLatestReading(ctx context.Context, deviceID string) (*models.LatestSnapshot, error)
	SetActuatorState(ctx context.Context, deviceID, actuator string, state *models.ActuatorState) error
	GetActuatorState(ctx context.Context, deviceID, actuator string) (*models.ActuatorState, error)
	SetLatestImage(ctx context.Context, deviceID, filename string) error
	GetLatestImage(ctx context.Context, deviceID string) (string, error)
	SetDiagnosis(ctx context.Context, deviceID string, diag *models.Diagnosis) error
	GetDiagnosis(ctx context.Context, deviceID string) (*models.Diagnosis, error)
	Ping(ctx context.Context) error
	Close() error
}

// FileStore defines the interface for image frame files on disk
type FileStore interface {
	StoreFrame(deviceID string, capturedAt time.Time, jpeg []byte, origin []byte) (*StoredFrame, error)
	FramePath(filename string) string
}

// StoredFrame describes a frame written to the upload directory.
type StoredFrame struct {
	Filename   string
	Path       string
	OriginPath string
}
