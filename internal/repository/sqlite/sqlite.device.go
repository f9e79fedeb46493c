// FilePath: internal/repository/sqlite/sqlite.device.go
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/greeneye-project/greeneye-hub/internal/database"
	"github.com/greeneye-project/greeneye-hub/internal/errors"
	"github.com/greeneye-project/greeneye-hub/internal/models"
	"github.com/greeneye-project/greeneye-hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

type DeviceRepo struct {
	SQLiteBaseRepo
}

func NewDeviceRepository(db database.DB) (*DeviceRepo, error) {
	repo := &DeviceRepo{SQLiteBaseRepo: SQLiteBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *DeviceRepo) initializeSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS devices (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT UNIQUE NOT NULL,
			mac_address TEXT UNIQUE NOT NULL,
			friendly_name TEXT UNIQUE NOT NULL,
			owner_user_id INTEGER,
			plant_type TEXT,
			room TEXT,
			device_image TEXT,
			registered_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_devices_device_id_unique ON devices(device_id)`,
		`CREATE INDEX IF NOT EXISTS idx_devices_owner ON devices(owner_user_id)`,
	}

	for _, query := range queries {
		if _, err := r.db.GetDB().Exec(query); err != nil {
			return errors.NewDatabaseError("failed to initialize devices schema", err)
		}
	}
	return nil
}

// Register claims a device for device.OwnerUserID. Claim order:
//  1. update a device the caller already owns,
//  2. take over an unowned row (first-registration-wins),
//  3. insert a fresh row.
//
// A row owned by somebody else falls through all three and returns
// ErrAlreadyClaimed.
func (r *DeviceRepo) Register(ctx context.Context, device *models.Device) error {
	device.RegisteredAt = time.Now().UTC()

	own := `
		UPDATE devices SET
			mac_address = :mac_address,
			friendly_name = :friendly_name,
			device_image = COALESCE(:device_image, device_image),
			plant_type = COALESCE(:plant_type, plant_type),
			room = COALESCE(:room, room)
		WHERE device_id = :device_id AND owner_user_id = :owner_user_id`

	result, err := r.db.GetDB().NamedExecContext(ctx, own, device)
	if err != nil {
		return errors.NewDatabaseError("failed to update owned device", err)
	}
	if rows, _ := result.RowsAffected(); rows > 0 {
		return nil
	}

	claim := `
		UPDATE devices SET
			mac_address = :mac_address,
			friendly_name = :friendly_name,
			owner_user_id = :owner_user_id,
			device_image = COALESCE(:device_image, device_image),
			plant_type = COALESCE(:plant_type, plant_type),
			room = COALESCE(:room, room)
		WHERE device_id = :device_id AND owner_user_id IS NULL`

	result, err = r.db.GetDB().NamedExecContext(ctx, claim, device)
	if err != nil {
		return errors.NewDatabaseError("failed to claim device", err)
	}
	if rows, _ := result.RowsAffected(); rows > 0 {
		nuts.L.Infof("[DeviceRepo] Device %s claimed by user %d", device.DeviceID, *device.OwnerUserID)
		return nil
	}

	insert := `
		INSERT INTO devices (
			device_id, mac_address, friendly_name, owner_user_id,
			plant_type, room, device_image, registered_at
		) VALUES (
			:device_id, :mac_address, :friendly_name, :owner_user_id,
			:plant_type, :room, :device_image, :registered_at
		)`

	result, err = r.db.GetDB().NamedExecContext(ctx, insert, device)
	if err != nil {
		if isUniqueViolation(err) {
			// Row exists and is owned by another user.
			return repository.ErrAlreadyClaimed
		}
		return errors.NewDatabaseError("failed to insert device", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errors.NewDatabaseError("failed to get device id", err)
	}
	device.ID = id
	return nil
}

func (r *DeviceRepo) GetByDeviceID(ctx context.Context, deviceID string) (*models.Device, error) {
	device := &models.Device{}
	query := `SELECT * FROM devices WHERE device_id = ?`

	err := r.db.GetDB().GetContext(ctx, device, query, deviceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, errors.NewDatabaseError("failed to get device", err)
	}
	return device, nil
}

func (r *DeviceRepo) GetByMAC(ctx context.Context, mac string) (*models.Device, error) {
	device := &models.Device{}
	query := `SELECT * FROM devices WHERE mac_address = ?`

	err := r.db.GetDB().GetContext(ctx, device, query, mac)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, errors.NewDatabaseError("failed to get device by mac", err)
	}
	return device, nil
}

func (r *DeviceRepo) ListByOwner(ctx context.Context, ownerUserID int64) ([]*models.Device, error) {
	devices := []*models.Device{}
	query := `SELECT * FROM devices WHERE owner_user_id = ? ORDER BY device_id`

	err := r.db.GetDB().SelectContext(ctx, &devices, query, ownerUserID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list devices", err)
	}
	return devices, nil
}

func (r *DeviceRepo) ListAll(ctx context.Context) ([]*models.Device, error) {
	devices := []*models.Device{}
	query := `SELECT * FROM devices ORDER BY device_id`

	err := r.db.GetDB().SelectContext(ctx, &devices, query)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list devices", err)
	}
	return devices, nil
}

func (r *DeviceRepo) UpdateImage(ctx context.Context, deviceID string, ownerUserID int64, imagePath *string) error {
	query := `UPDATE devices SET device_image = ? WHERE device_id = ? AND owner_user_id = ?`

	result, err := r.db.GetDB().ExecContext(ctx, query, imagePath, deviceID, ownerUserID)
	if err != nil {
		return errors.NewDatabaseError("failed to update device image", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *DeviceRepo) Delete(ctx context.Context, deviceID string, ownerUserID int64) error {
	query := `DELETE FROM devices WHERE device_id = ? AND owner_user_id = ?`

	result, err := r.db.GetDB().ExecContext(ctx, query, deviceID, ownerUserID)
	if err != nil {
		return errors.NewDatabaseError("failed to delete device", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
