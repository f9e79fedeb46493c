// FilePath: internal/inference/inference.go
package inference

import (
	"context"

	"github.com/greeneye-project/greeneye-hub/internal/models"
)

// Engine analyzes a stored plant frame and produces a diagnosis. The
// ingestion pipeline calls it synchronously after every image write.
type Engine interface {
	Diagnose(ctx context.Context, deviceID, imagePath string) (*models.Diagnosis, error)
}

// NoopEngine returns an empty healthy diagnosis. It stands in until the
// real classifier service is deployed.
// TODO: replace with the HTTP client for the plant-disease classifier once
// that service has a stable endpoint.
type NoopEngine struct{}

func (NoopEngine) Diagnose(ctx context.Context, deviceID, imagePath string) (*models.Diagnosis, error) {
	return &models.Diagnosis{
		OK:        true,
		DeviceID:  deviceID,
		ImagePath: imagePath,
		Labels:    []string{},
		Score:     0,
	}, nil
}
