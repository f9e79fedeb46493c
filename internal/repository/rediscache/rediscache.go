// FilePath: internal/repository/rediscache/rediscache.go
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/greeneye-project/greeneye-hub/internal/config"
	"github.com/greeneye-project/greeneye-hub/internal/models"
	"github.com/greeneye-project/greeneye-hub/internal/repository"
	"github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"
)

const opTimeout = 3 * time.Second

// Cache is the Redis-backed latest-value store. Entries have no TTL: the
// latest reading for a device stays valid until the next one replaces it.
type Cache struct {
	client *redis.Client
}

func New(cfg config.RedisConfig) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	nuts.L.Infof("[Cache] Redis client initialized for %s:%d db=%d", cfg.Host, cfg.Port, cfg.DB)
	return &Cache{client: client}
}

func latestReadingKey(deviceID string) string {
	return "latest_sensor_data:" + deviceID
}

func actuatorStateKey(deviceID, actuator string) string {
	return "actuator_state:" + deviceID + ":" + actuator
}

func latestImageKey(deviceID string) string {
	return "latest_image:" + deviceID
}

func diagnosisKey(deviceID string) string {
	return "latest_ai_diagnosis:" + deviceID
}

func (c *Cache) setJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return c.client.Set(opCtx, key, data, 0).Err()
}

func (c *Cache) getJSON(ctx context.Context, key string, out interface{}) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := c.client.Get(opCtx, key).Bytes()
	if err == redis.Nil {
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func (c *Cache) SetLatestReading(ctx context.Context, deviceID string, snap *models.LatestSnapshot) error {
	return c.setJSON(ctx, latestReadingKey(deviceID), snap)
}

func (c *Cache) GetLatestReading(ctx context.Context, deviceID string) (*models.LatestSnapshot, error) {
	snap := &models.LatestSnapshot{}
	if err := c.getJSON(ctx, latestReadingKey(deviceID), snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (c *Cache) SetActuatorState(ctx context.Context, deviceID, actuator string, state *models.ActuatorState) error {
	return c.setJSON(ctx, actuatorStateKey(deviceID, actuator), state)
}

func (c *Cache) GetActuatorState(ctx context.Context, deviceID, actuator string) (*models.ActuatorState, error) {
	state := &models.ActuatorState{}
	if err := c.getJSON(ctx, actuatorStateKey(deviceID, actuator), state); err != nil {
		return nil, err
	}
	return state, nil
}

// latestImageDoc is the document under latest_image:<device_id>.
type latestImageDoc struct {
	Filename string `json:"filename"`
}

func (c *Cache) SetLatestImage(ctx context.Context, deviceID, filename string) error {
	return c.setJSON(ctx, latestImageKey(deviceID), latestImageDoc{Filename: filename})
}

func (c *Cache) GetLatestImage(ctx context.Context, deviceID string) (string, error) {
	doc := &latestImageDoc{}
	if err := c.getJSON(ctx, latestImageKey(deviceID), doc); err != nil {
		return "", err
	}
	return doc.Filename, nil
}

func (c *Cache) SetDiagnosis(ctx context.Context, deviceID string, diag *models.Diagnosis) error {
	return c.setJSON(ctx, diagnosisKey(deviceID), diag)
}

func (c *Cache) GetDiagnosis(ctx context.Context, deviceID string) (*models.Diagnosis, error) {
	diag := &models.Diagnosis{}
	if err := c.getJSON(ctx, diagnosisKey(deviceID), diag); err != nil {
		return nil, err
	}
	return diag, nil
}

func (c *Cache) Ping(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return c.client.Ping(opCtx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
