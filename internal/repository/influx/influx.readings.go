// FilePath: internal/repository/influx/influx.readings.go
package influx

import (
	"context"
	"fmt"
	"time"

	"github.com/greeneye-project/greeneye-hub/internal/config"
	"github.com/greeneye-project/greeneye-hub/internal/errors"
	"github.com/greeneye-project/greeneye-hub/internal/models"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	nuts "github.com/vaudience/go-nuts"
)

// ReadingRepo writes canonicalized sensor readings to InfluxDB and serves
// ranged queries for the API.
//
// The client reference is recreated lazily after a failed write. This runs
// without locking: reconnection is idempotent, writes come from the single
// MQTT network thread, and a racing scheduled job at worst rebuilds the
// client twice. There is no local durable queue; telemetry loss on a
// sustained outage is accepted and documented behavior.
type ReadingRepo struct {
	cfg      config.InfluxConfig
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

func NewReadingRepository(cfg config.InfluxConfig) *ReadingRepo {
	r := &ReadingRepo{cfg: cfg}
	r.connect()
	return r
}

func (r *ReadingRepo) connect() {
	opts := influxdb2.DefaultOptions().
		SetHTTPRequestTimeout(uint(r.cfg.Timeout / time.Second))
	r.client = influxdb2.NewClientWithOptions(r.cfg.URL, r.cfg.Token, opts)
	r.writeAPI = r.client.WriteAPIBlocking(r.cfg.Org, r.cfg.Bucket)
	nuts.L.Infof("[Influx] Client initialized for %s org=%s bucket=%s", r.cfg.URL, r.cfg.Org, r.cfg.Bucket)
}

func (r *ReadingRepo) reconnect() {
	if r.client != nil {
		r.client.Close()
	}
	r.connect()
}

// WriteReading persists one point, tolerating a single stale-connection
// failure by reconnecting and retrying once. A second failure drops the
// point.
func (r *ReadingRepo) WriteReading(ctx context.Context, reading *models.SensorReading) error {
	tags := map[string]string{"device_id": reading.DeviceID}
	if reading.MACAddress != "" {
		tags["mac_address"] = reading.MACAddress
	}

	point := influxdb2.NewPoint(r.cfg.Measurement, tags, reading.FieldMap(), reading.Timestamp)

	writeCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	err := r.writeAPI.WritePoint(writeCtx, point)
	if err == nil {
		return nil
	}

	nuts.L.Warnf("[Influx] Write failed once, retrying with fresh client: %v", err)
	r.reconnect()

	retryCtx, cancel2 := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel2()

	if err := r.writeAPI.WritePoint(retryCtx, point); err != nil {
		return errors.NewSinkWriteError("influx", err)
	}
	nuts.L.Infof("[Influx] Write OK after reconnect for device %s", reading.DeviceID)
	return nil
}

// QueryRange returns raw records for one device between start and end.
func (r *ReadingRepo) QueryRange(ctx context.Context, deviceID string, start, end time.Time) ([]models.ReadingRow, error) {
	flux := fmt.Sprintf(`
		from(bucket: %q)
			|> range(start: %s, stop: %s)
			|> filter(fn: (r) => r._measurement == %q)
			|> filter(fn: (r) => r.device_id == %q)`,
		r.cfg.Bucket,
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339),
		r.cfg.Measurement,
		deviceID,
	)

	queryCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	result, err := r.client.QueryAPI(r.cfg.Org).Query(queryCtx, flux)
	if err != nil {
		return nil, errors.NewDatabaseError("influx query failed", err)
	}

	rows := []models.ReadingRow{}
	for result.Next() {
		record := result.Record()
		value, ok := record.Value().(float64)
		if !ok {
			if iv, isInt := record.Value().(int64); isInt {
				value, ok = float64(iv), true
			}
		}
		if !ok {
			continue
		}
		rows = append(rows, models.ReadingRow{
			Time:     record.Time(),
			Field:    record.Field(),
			Value:    value,
			DeviceID: deviceID,
		})
	}
	if result.Err() != nil {
		return nil, errors.NewDatabaseError("influx result iteration failed", result.Err())
	}
	return rows, nil
}

func (r *ReadingRepo) Ping(ctx context.Context) error {
	ok, err := r.client.Ping(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("influx not ready")
	}
	return nil
}

func (r *ReadingRepo) Close() {
	if r.client != nil {
		r.client.Close()
	}
}
