package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/metrics"
)

const defaultInterval = time.Minute

// ServiceParams configure one scheduler. RunOnStart runs a cycle before the
// first tick instead of waiting one interval.
type ServiceParams struct {
	Name       string
	Logger     *logger.Logger
	Registry   *Registry
	Lock       Lock
	Metrics    *metrics.JobMetrics
	Interval   time.Duration
	RunOnStart bool
}

// Service runs the jobs of one registry on a fixed cadence. Cycles never
// overlap: a tick that arrives while the previous cycle holds the lock is
// skipped and counted.
type Service struct {
	name       string
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    *metrics.JobMetrics
	interval   time.Duration
	runOnStart bool
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	s := &Service{
		name:       params.Name,
		logg:       params.Logger,
		registry:   params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   params.Interval,
		runOnStart: params.RunOnStart,
	}
	if s.name == "" {
		s.name = "scheduler"
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	if s.lock == nil {
		s.lock = NewLocalLock()
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	return s, nil
}

// Name identifies the scheduler in logs.
func (s *Service) Name() string { return s.name }

// Run blocks until ctx is done and returns its error.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"scheduler":        s.name,
		"interval_seconds": s.interval.Seconds(),
	})
	s.logg.Info(ctx, "scheduler started")

	if s.runOnStart {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	if err := s.runCycle(ctx); err != nil {
		s.logg.Error(ctx, "scheduled cycle failed", err)
	}
}

// runCycle runs every registered job once. A failing job does not stop the
// jobs after it.
func (s *Service) runCycle(ctx context.Context) error {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire %s lock: %w", s.name, err)
	}
	if !acquired {
		s.logg.Warn(ctx, "previous cycle still running, skipping")
		for _, job := range s.registry.Jobs() {
			s.metrics.ObserveSkip(job.Name())
		}
		return nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "release scheduler lock", err)
		}
	}()

	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.runJob(ctx, job)
	}
	return nil
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	start := time.Now()
	err := safeRun(jobCtx, job)
	took := time.Since(start)
	s.metrics.ObserveRun(job.Name(), took, err)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", took.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		return
	}
	s.logg.Debug(jobCtx, "job completed")
}

// safeRun turns a job panic into an error so one bad job cannot take the
// scheduler goroutine down.
func safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
		}
	}()
	return job.Run(ctx)
}
