// FilePath: internal/ingest/pipeline.go
package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/greeneye-project/greeneye-hub/internal/images"
	"github.com/greeneye-project/greeneye-hub/internal/inference"
	"github.com/greeneye-project/greeneye-hub/internal/models"
	"github.com/greeneye-project/greeneye-hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// Pipeline processes every message arriving on the telemetry wildcard topic.
// Failures are logged and the message dropped; the consumer loop never dies
// on bad input.
type Pipeline struct {
	devices  repository.DeviceRepository
	imageDB  repository.ImageRepository
	readings repository.ReadingRepository
	cache    repository.LatestCache
	files    repository.FileStore
	infer    inference.Engine

	now func() time.Time
}

func NewPipeline(
	devices repository.DeviceRepository,
	imageDB repository.ImageRepository,
	readings repository.ReadingRepository,
	cache repository.LatestCache,
	files repository.FileStore,
	infer inference.Engine,
) *Pipeline {
	return &Pipeline{
		devices:  devices,
		imageDB:  imageDB,
		readings: readings,
		cache:    cache,
		files:    files,
		infer:    infer,
		now:      time.Now,
	}
}

// HandleMessage ingests one raw MQTT message. The trailing topic segment is
// the device identifier in whatever shape the producer uses.
func (p *Pipeline) HandleMessage(ctx context.Context, topic string, payload []byte) error {
	segments := strings.Split(topic, "/")
	deviceID := CanonicalDeviceID(segments[len(segments)-1])

	decoded, err := DecodePayload(payload)
	if err != nil {
		return err
	}

	// Registration is optional for telemetry; a registered device just
	// contributes its MAC tag and unlocks image metadata rows.
	var device *models.Device
	switch d, err := p.devices.GetByDeviceID(ctx, deviceID); {
	case err == nil:
		device = d
	case err != repository.ErrNotFound:
		// A registry outage is not the same as an unknown device.
		nuts.L.Warnf("[Pipeline] Device lookup failed for %s, continuing unregistered: %v", deviceID, err)
	}

	sensor, image := Classify(deviceID, decoded, p.now())
	if image != nil {
		return p.handleImage(ctx, image, device)
	}
	return p.handleSensor(ctx, sensor.Reading, device)
}

func (p *Pipeline) handleSensor(ctx context.Context, reading *models.SensorReading, device *models.Device) error {
	if !reading.HasFields() {
		nuts.L.Debugf("[Pipeline] Dropping empty reading from %s", reading.DeviceID)
		return nil
	}
	if device != nil {
		reading.MACAddress = device.MACAddress
	}

	if err := p.readings.WriteReading(ctx, reading); err != nil {
		// Cache still gets the snapshot so the dashboard and the
		// evaluator keep working through a sink outage.
		nuts.L.Errorf("[Pipeline] Time-series write failed for %s: %v", reading.DeviceID, err)
	}

	if err := p.cache.SetLatestReading(ctx, reading.DeviceID, reading.Snapshot()); err != nil {
		nuts.L.Errorf("[Pipeline] Cache update failed for %s: %v", reading.DeviceID, err)
	}

	nuts.L.Infof("[Pipeline] Sensor data processed for %s", reading.DeviceID)
	return nil
}

func (p *Pipeline) handleImage(ctx context.Context, msg *ImageMessage, device *models.Device) error {
	raw, err := images.DecodeFrame(msg.Origin)
	if err != nil {
		return err
	}

	enhanced, err := images.Enhance(raw)
	if err != nil {
		return err
	}

	frame, err := p.files.StoreFrame(msg.DeviceID, msg.CapturedAt, enhanced, []byte(msg.Origin))
	if err != nil {
		return err
	}

	if device != nil {
		meta := &models.PlantImage{
			DeviceID:   msg.DeviceID,
			MACAddress: device.MACAddress,
			Filename:   frame.Filename,
			Filepath:   frame.Path,
			Timestamp:  msg.CapturedAt,
		}
		if err := p.imageDB.Insert(ctx, meta); err != nil {
			nuts.L.Errorf("[Pipeline] Image metadata insert failed for %s: %v", msg.DeviceID, err)
		}
	} else {
		// Frame stays on disk; the metadata table requires a MAC.
		nuts.L.Infof("[Pipeline] Skipping metadata for unregistered device %s", msg.DeviceID)
	}

	if err := p.cache.SetLatestImage(ctx, msg.DeviceID, frame.Filename); err != nil {
		nuts.L.Errorf("[Pipeline] Latest-image cache update failed for %s: %v", msg.DeviceID, err)
	}

	diagnosis, err := p.infer.Diagnose(ctx, msg.DeviceID, frame.Path)
	if err != nil {
		nuts.L.Errorf("[Pipeline] Inference failed for %s: %v", msg.DeviceID, err)
		return nil
	}
	if err := p.cache.SetDiagnosis(ctx, msg.DeviceID, diagnosis); err != nil {
		nuts.L.Errorf("[Pipeline] Diagnosis cache update failed for %s: %v", msg.DeviceID, err)
	}

	nuts.L.Infof("[Pipeline] Image frame processed for %s: %s", msg.DeviceID, frame.Filename)
	return nil
}
