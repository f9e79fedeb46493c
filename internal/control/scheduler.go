// FilePath: internal/control/scheduler.go
package control

import (
	"context"
	"sync"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/greeneye-project/greeneye-hub/internal/config"
	"github.com/greeneye-project/greeneye-hub/internal/errors"
	"github.com/greeneye-project/greeneye-hub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// Scheduler runs one periodic evaluation job per registered device. Jobs use
// singleton mode: if a cycle overruns the interval, the next run for that
// device is rescheduled instead of running in parallel, which would race on
// the cached actuator state.
type Scheduler struct {
	cfg       config.ControlConfig
	evaluator *Evaluator
	scheduler gocron.Scheduler

	mu      sync.Mutex
	baseCtx context.Context
	jobs    map[string]uuid.UUID
}

func NewScheduler(cfg config.ControlConfig, evaluator *Evaluator) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.NewInternalError("failed to create control scheduler", err)
	}
	return &Scheduler{
		cfg:       cfg,
		evaluator: evaluator,
		scheduler: s,
		baseCtx:   context.Background(),
		jobs:      make(map[string]uuid.UUID),
	}, nil
}

// Start begins evaluation for all currently registered devices and then
// runs the scheduler. ctx becomes the base context for all evaluation
// cycles, including those of devices registered later.
func (s *Scheduler) Start(ctx context.Context, devices repository.DeviceRepository) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	registered, err := devices.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, d := range registered {
		if err := s.EnsureDevice(ctx, d.DeviceID); err != nil {
			nuts.L.Errorf("[Scheduler] Failed to schedule device %s: %v", d.DeviceID, err)
		}
	}

	s.scheduler.Start()
	nuts.L.Infof("[Scheduler] Auto-control running for %d devices, interval %s", len(registered), s.cfg.Interval)
	return nil
}

// EnsureDevice schedules evaluation for a device. Idempotent. Cycles run
// on the scheduler's own context, never on ctx: callers pass request-scoped
// contexts that are canceled long before the next cycle fires.
func (s *Scheduler) EnsureDevice(ctx context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[deviceID]; ok {
		return nil
	}

	job, err := s.scheduler.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(func() {
			if err := s.evaluator.Evaluate(s.cycleCtx(), deviceID); err != nil && err != errors.ErrNoCachedReading {
				nuts.L.Errorf("[Scheduler] Evaluation failed for %s: %v", deviceID, err)
			}
		}),
		gocron.WithName("auto-control-"+deviceID),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return errors.NewInternalError("failed to schedule evaluation job", err)
	}

	s.jobs[deviceID] = job.ID()
	nuts.L.Infof("[Scheduler] Auto-control scheduled for device %s", deviceID)
	return nil
}

func (s *Scheduler) cycleCtx() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baseCtx
}

// RemoveDevice stops evaluation for a deleted device.
func (s *Scheduler) RemoveDevice(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.jobs[deviceID]
	if !ok {
		return
	}
	if err := s.scheduler.RemoveJob(id); err != nil {
		nuts.L.Warnf("[Scheduler] Failed to remove job for %s: %v", deviceID, err)
	}
	delete(s.jobs, deviceID)
}

// Shutdown stops the scheduler, waiting for in-flight cycles.
func (s *Scheduler) Shutdown() error {
	return s.scheduler.Shutdown()
}
