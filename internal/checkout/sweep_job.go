package checkout

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-checkout/pkg/logger"
)

// SweepJob evicts abandoned checkout sessions. It implements cron.Job.
type SweepJob struct {
	manager *Manager
	logg    *logger.Logger
}

func NewSweepJob(manager *Manager, logg *logger.Logger) (*SweepJob, error) {
	if manager == nil {
		return nil, fmt.Errorf("checkout manager required")
	}
	return &SweepJob{manager: manager, logg: logg}, nil
}

func (j *SweepJob) Name() string { return "checkout_session_sweep" }

func (j *SweepJob) Run(ctx context.Context) error {
	evicted := j.manager.Sweep()
	if evicted > 0 {
		j.logg.Info(j.logg.WithField(ctx, "evicted", evicted), "abandoned checkout sessions evicted")
	}
	return nil
}
