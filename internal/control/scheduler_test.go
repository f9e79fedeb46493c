// FilePath: internal/control/scheduler_test.go
package control

import (
	"context"
	"testing"
	"time"

	"github.com/greeneye-project/greeneye-hub/internal/models"
	"github.com/greeneye-project/greeneye-hub/internal/repository"
)

// ctxAwareCache refuses reads on a dead context, the way the real Redis
// client does.
type ctxAwareCache struct {
	*fakeCache
}

func (c *ctxAwareCache) GetLatestReading(ctx context.Context, id string) (*models.LatestSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.fakeCache.GetLatestReading(ctx, id)
}

type fakeDeviceList struct {
	repository.DeviceRepository
}

func (fakeDeviceList) ListAll(ctx context.Context) ([]*models.Device, error) {
	return nil, nil
}

// Evaluation cycles must keep running after the context that registered the
// device is gone: device registration arrives on request-scoped contexts
// that die as soon as the HTTP response is written.
func TestScheduledCyclesOutliveRegistrationContext(t *testing.T) {
	cache := newFakeCache()
	sender := &fakeSender{cache: cache}

	cfg := testConfig()
	cfg.Interval = 20 * time.Millisecond

	evaluator, err := NewEvaluator(cfg, &ctxAwareCache{fakeCache: cache}, sender)
	if err != nil {
		t.Fatalf("Failed to create evaluator: %v", err)
	}

	moisture := 250.0
	cache.snapshots["6c18"] = &models.LatestSnapshot{
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		SoilMoisture: &moisture,
	}

	sched, err := NewScheduler(cfg, evaluator)
	if err != nil {
		t.Fatalf("Failed to create scheduler: %v", err)
	}

	reqCtx, cancel := context.WithCancel(context.Background())
	if err := sched.EnsureDevice(reqCtx, "6c18"); err != nil {
		t.Fatalf("Failed to schedule device: %v", err)
	}
	cancel()

	if err := sched.Start(context.Background(), fakeDeviceList{}); err != nil {
		t.Fatalf("Failed to start scheduler: %v", err)
	}
	time.Sleep(250 * time.Millisecond)
	if err := sched.Shutdown(); err != nil {
		t.Fatalf("Failed to shut down scheduler: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("Expected exactly one pump-on command across cycles, got %d", len(sender.sent))
	}
	if sender.sent[0]["water_pump_action"] != 1 {
		t.Errorf("Expected water_pump_action=1, got %v", sender.sent[0])
	}
	if pump := cache.actuators["6c18:water_pump"]; pump == nil || pump.Status != "on" {
		t.Errorf("Expected cached pump state on, got %+v", pump)
	}
}
