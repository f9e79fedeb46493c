// FilePath: internal/repository/sqlite/sqlite.image.go
package sqlite

import (
	"context"
	"database/sql"

	"github.com/greeneye-project/greeneye-hub/internal/database"
	"github.com/greeneye-project/greeneye-hub/internal/errors"
	"github.com/greeneye-project/greeneye-hub/internal/models"
	"github.com/greeneye-project/greeneye-hub/internal/repository"
)

type ImageRepo struct {
	SQLiteBaseRepo
}

func NewImageRepository(db database.DB) (*ImageRepo, error) {
	repo := &ImageRepo{SQLiteBaseRepo: SQLiteBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *ImageRepo) initializeSchema() error {
	// device_id and mac_address are NOT NULL: frames from unregistered
	// devices are written to disk but never recorded here.
	query := `
		CREATE TABLE IF NOT EXISTS plant_images (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			mac_address TEXT NOT NULL,
			filename TEXT NOT NULL UNIQUE,
			filepath TEXT NOT NULL,
			timestamp TIMESTAMP NOT NULL
		)`

	_, err := r.db.GetDB().Exec(query)
	if err != nil {
		return errors.NewDatabaseError("failed to initialize plant_images schema", err)
	}
	return nil
}

func (r *ImageRepo) Insert(ctx context.Context, image *models.PlantImage) error {
	query := `
		INSERT INTO plant_images (device_id, mac_address, filename, filepath, timestamp)
		VALUES (:device_id, :mac_address, :filename, :filepath, :timestamp)`

	result, err := r.db.GetDB().NamedExecContext(ctx, query, image)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return errors.NewDatabaseError("failed to insert image metadata", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errors.NewDatabaseError("failed to get image id", err)
	}
	image.ID = id
	return nil
}

func (r *ImageRepo) ListByDevice(ctx context.Context, deviceID string, limit int) ([]*models.PlantImage, error) {
	images := []*models.PlantImage{}
	query := `
		SELECT * FROM plant_images
		WHERE device_id = ?
		ORDER BY timestamp DESC
		LIMIT ?`

	err := r.db.GetDB().SelectContext(ctx, &images, query, deviceID, limit)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list images", err)
	}
	return images, nil
}

func (r *ImageRepo) GetLatest(ctx context.Context, deviceID string) (*models.PlantImage, error) {
	image := &models.PlantImage{}
	query := `
		SELECT * FROM plant_images
		WHERE device_id = ?
		ORDER BY timestamp DESC
		LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, image, query, deviceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, errors.NewDatabaseError("failed to get latest image", err)
	}
	return image, nil
}
