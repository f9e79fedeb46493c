// FilePath: internal/ingest/pipeline_test.go
package ingest

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"github.com/greeneye-project/greeneye-hub/internal/database"
	"github.com/greeneye-project/greeneye-hub/internal/inference"
	"github.com/greeneye-project/greeneye-hub/internal/models"
	"github.com/greeneye-project/greeneye-hub/internal/repository"
)

// --- fakes ---

type fakeDeviceRepo struct {
	devices   map[string]*models.Device
	lookupErr error
}

func (f *fakeDeviceRepo) BeginTx(ctx context.Context) (database.Transaction, error) { return nil, nil }
func (f *fakeDeviceRepo) Ping(ctx context.Context) error                            { return nil }
func (f *fakeDeviceRepo) Register(ctx context.Context, d *models.Device) error      { return nil }
func (f *fakeDeviceRepo) GetByDeviceID(ctx context.Context, id string) (*models.Device, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if d, ok := f.devices[id]; ok {
		return d, nil
	}
	return nil, repository.ErrNotFound
}
func (f *fakeDeviceRepo) GetByMAC(ctx context.Context, mac string) (*models.Device, error) {
	return nil, repository.ErrNotFound
}
func (f *fakeDeviceRepo) ListByOwner(ctx context.Context, owner int64) ([]*models.Device, error) {
	return nil, nil
}
func (f *fakeDeviceRepo) ListAll(ctx context.Context) ([]*models.Device, error) { return nil, nil }
func (f *fakeDeviceRepo) UpdateImage(ctx context.Context, id string, owner int64, path *string) error {
	return nil
}
func (f *fakeDeviceRepo) Delete(ctx context.Context, id string, owner int64) error { return nil }

type fakeImageRepo struct {
	inserted []*models.PlantImage
}

func (f *fakeImageRepo) BeginTx(ctx context.Context) (database.Transaction, error) { return nil, nil }
func (f *fakeImageRepo) Ping(ctx context.Context) error                            { return nil }
func (f *fakeImageRepo) Insert(ctx context.Context, img *models.PlantImage) error {
	f.inserted = append(f.inserted, img)
	return nil
}
func (f *fakeImageRepo) ListByDevice(ctx context.Context, id string, limit int) ([]*models.PlantImage, error) {
	return f.inserted, nil
}
func (f *fakeImageRepo) GetLatest(ctx context.Context, id string) (*models.PlantImage, error) {
	return nil, repository.ErrNotFound
}

type fakeReadingRepo struct {
	written []*models.SensorReading
}

func (f *fakeReadingRepo) WriteReading(ctx context.Context, r *models.SensorReading) error {
	f.written = append(f.written, r)
	return nil
}
func (f *fakeReadingRepo) QueryRange(ctx context.Context, id string, start, end time.Time) ([]models.ReadingRow, error) {
	return nil, nil
}
func (f *fakeReadingRepo) Ping(ctx context.Context) error { return nil }
func (f *fakeReadingRepo) Close()                         {}

type fakeCache struct {
	snapshots map[string]*models.LatestSnapshot
	actuators map[string]*models.ActuatorState
	images    map[string]string
	diagnoses map[string]*models.Diagnosis
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		snapshots: map[string]*models.LatestSnapshot{},
		actuators: map[string]*models.ActuatorState{},
		images:    map[string]string{},
		diagnoses: map[string]*models.Diagnosis{},
	}
}

func (f *fakeCache) SetLatestReading(ctx context.Context, id string, s *models.LatestSnapshot) error {
	f.snapshots[id] = s
	return nil
}
func (f *fakeCache) GetLatestReading(ctx context.Context, id string) (*models.LatestSnapshot, error) {
	if s, ok := f.snapshots[id]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}
func (f *fakeCache) SetActuatorState(ctx context.Context, id, actuator string, s *models.ActuatorState) error {
	f.actuators[id+":"+actuator] = s
	return nil
}
func (f *fakeCache) GetActuatorState(ctx context.Context, id, actuator string) (*models.ActuatorState, error) {
	if s, ok := f.actuators[id+":"+actuator]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}
func (f *fakeCache) SetLatestImage(ctx context.Context, id, filename string) error {
	f.images[id] = filename
	return nil
}
func (f *fakeCache) GetLatestImage(ctx context.Context, id string) (string, error) {
	if fn, ok := f.images[id]; ok {
		return fn, nil
	}
	return "", repository.ErrNotFound
}
func (f *fakeCache) SetDiagnosis(ctx context.Context, id string, d *models.Diagnosis) error {
	f.diagnoses[id] = d
	return nil
}
func (f *fakeCache) GetDiagnosis(ctx context.Context, id string) (*models.Diagnosis, error) {
	if d, ok := f.diagnoses[id]; ok {
		return d, nil
	}
	return nil, repository.ErrNotFound
}
func (f *fakeCache) Ping(ctx context.Context) error { return nil }
func (f *fakeCache) Close() error                   { return nil }

type fakeFileStore struct {
	frames []*repository.StoredFrame
}

func (f *fakeFileStore) StoreFrame(deviceID string, capturedAt time.Time, jpg []byte, origin []byte) (*repository.StoredFrame, error) {
	frame := &repository.StoredFrame{
		Filename: deviceID + "_" + capturedAt.UTC().Format("20060102150405") + ".jpg",
		Path:     "/tmp/" + deviceID + ".jpg",
	}
	f.frames = append(f.frames, frame)
	return frame, nil
}
func (f *fakeFileStore) FramePath(filename string) string { return "/tmp/" + filename }

type pipelineFixture struct {
	pipeline *Pipeline
	devices  *fakeDeviceRepo
	imageDB  *fakeImageRepo
	readings *fakeReadingRepo
	cache    *fakeCache
	files    *fakeFileStore
}

func newPipelineFixture(registered map[string]*models.Device) *pipelineFixture {
	f := &pipelineFixture{
		devices:  &fakeDeviceRepo{devices: registered},
		imageDB:  &fakeImageRepo{},
		readings: &fakeReadingRepo{},
		cache:    newFakeCache(),
		files:    &fakeFileStore{},
	}
	f.pipeline = NewPipeline(f.devices, f.imageDB, f.readings, f.cache, f.files, inference.NoopEngine{})
	f.pipeline.now = func() time.Time { return testNow }
	return f
}

// --- tests ---

func TestPipelineSensorMessage(t *testing.T) {
	f := newPipelineFixture(nil)

	err := f.pipeline.HandleMessage(context.Background(), "GreenEye/data/ge-sd-6c18",
		[]byte(`{"amb_temp": 24.5, "soil_humi": 250}`))
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}

	if len(f.readings.written) != 1 {
		t.Fatalf("Expected 1 time-series write, got %d", len(f.readings.written))
	}
	reading := f.readings.written[0]
	if reading.DeviceID != "6c18" {
		t.Errorf("Expected canonical device_id 6c18, got %s", reading.DeviceID)
	}
	if reading.MACAddress != "" {
		t.Errorf("Unregistered device must have empty MAC, got %s", reading.MACAddress)
	}
	if reading.Temperature == nil || *reading.Temperature != 24.5 {
		t.Errorf("Expected temperature=24.5, got %v", reading.Temperature)
	}

	snap, err := f.cache.GetLatestReading(context.Background(), "6c18")
	if err != nil {
		t.Fatalf("Expected cached snapshot: %v", err)
	}
	if snap.SoilMoisture == nil || *snap.SoilMoisture != 250.0 {
		t.Errorf("Expected soil_moisture=250 in snapshot, got %v", snap.SoilMoisture)
	}
}

func TestPipelineRegisteredDeviceGetsMACTag(t *testing.T) {
	f := newPipelineFixture(map[string]*models.Device{
		"6c18": {DeviceID: "6c18", MACAddress: "GE-SD-6C18"},
	})

	err := f.pipeline.HandleMessage(context.Background(), "GreenEye/data/6c18",
		[]byte(`{"temperature": 20}`))
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}

	if f.readings.written[0].MACAddress != "GE-SD-6C18" {
		t.Errorf("Expected MAC tag for registered device, got %q", f.readings.written[0].MACAddress)
	}
}

func TestPipelineEmptyReadingDiscarded(t *testing.T) {
	f := newPipelineFixture(nil)

	err := f.pipeline.HandleMessage(context.Background(), "GreenEye/data/6c18",
		[]byte(`{"unknown": "field"}`))
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}

	if len(f.readings.written) != 0 {
		t.Errorf("Empty reading must not reach the sink, got %d writes", len(f.readings.written))
	}
	if _, err := f.cache.GetLatestReading(context.Background(), "6c18"); err != repository.ErrNotFound {
		t.Error("Empty reading must not update the cache")
	}
}

func TestPipelineRegistryOutageDoesNotBlockIngest(t *testing.T) {
	f := newPipelineFixture(nil)
	f.devices.lookupErr = fmt.Errorf("database is locked")

	err := f.pipeline.HandleMessage(context.Background(), "GreenEye/data/6c18",
		[]byte(`{"temperature": 20}`))
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}

	// Degrades to unregistered: the reading still flows, without a MAC tag.
	if len(f.readings.written) != 1 {
		t.Fatalf("Expected 1 time-series write despite registry outage, got %d", len(f.readings.written))
	}
	if f.readings.written[0].MACAddress != "" {
		t.Errorf("Expected empty MAC during registry outage, got %q", f.readings.written[0].MACAddress)
	}
}

func TestPipelineDecodeErrorDoesNotPanic(t *testing.T) {
	f := newPipelineFixture(nil)

	err := f.pipeline.HandleMessage(context.Background(), "GreenEye/data/6c18",
		[]byte(`garbage {{{`))
	if err == nil {
		t.Fatal("Expected decode error")
	}
	if len(f.readings.written) != 0 {
		t.Error("Nothing must be written for an undecodable payload")
	}
}

func testJPEGHex(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 30), G: 120, B: uint8(y * 30), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("Failed to encode test JPEG: %v", err)
	}
	return hex.EncodeToString(buf.Bytes())
}

func TestPipelineImageMessageRegistered(t *testing.T) {
	f := newPipelineFixture(map[string]*models.Device{
		"6c18": {DeviceID: "6c18", MACAddress: "GE-SD-6C18"},
	})

	payload := `{"plant_img": "` + testJPEGHex(t) + `"}`
	err := f.pipeline.HandleMessage(context.Background(), "GreenEye/data/ge-sd-6c18", []byte(payload))
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}

	if len(f.files.frames) != 1 {
		t.Fatalf("Expected 1 stored frame, got %d", len(f.files.frames))
	}
	if len(f.imageDB.inserted) != 1 {
		t.Fatalf("Expected image metadata row for registered device, got %d", len(f.imageDB.inserted))
	}
	meta := f.imageDB.inserted[0]
	if meta.MACAddress != "GE-SD-6C18" {
		t.Errorf("Expected MAC in metadata, got %q", meta.MACAddress)
	}

	latest, err := f.cache.GetLatestImage(context.Background(), "6c18")
	if err != nil {
		t.Fatalf("Expected readable latest-image entry: %v", err)
	}
	if latest != f.files.frames[0].Filename {
		t.Errorf("Expected latest_image cache %q, got %q", f.files.frames[0].Filename, latest)
	}
	diag, err := f.cache.GetDiagnosis(context.Background(), "6c18")
	if err != nil {
		t.Fatalf("Expected cached diagnosis: %v", err)
	}
	if !diag.OK || diag.DeviceID != "6c18" {
		t.Errorf("Unexpected diagnosis: %+v", diag)
	}
}

func TestPipelineImageMessageUnregistered(t *testing.T) {
	f := newPipelineFixture(nil)

	payload := `{"plant_img": "` + testJPEGHex(t) + `"}`
	err := f.pipeline.HandleMessage(context.Background(), "GreenEye/data/6c18", []byte(payload))
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}

	// The frame lands on disk but no metadata row is written.
	if len(f.files.frames) != 1 {
		t.Fatalf("Expected stored frame for unregistered device, got %d", len(f.files.frames))
	}
	if len(f.imageDB.inserted) != 0 {
		t.Errorf("Unregistered device must not get a metadata row, got %d", len(f.imageDB.inserted))
	}
	if latest, err := f.cache.GetLatestImage(context.Background(), "6c18"); err != nil || latest == "" {
		t.Errorf("latest_image cache must still be set for unregistered devices, got %q, %v", latest, err)
	}
}
