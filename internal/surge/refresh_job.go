package surge

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-checkout/pkg/logger"
)

// RefreshJob recomputes every zone that has a live subscriber so displayed
// prices move without a buyer action. It implements cron.Job.
type RefreshJob struct {
	engine *Engine
	logg   *logger.Logger
}

// NewRefreshJob builds the periodic refresh job.
func NewRefreshJob(engine *Engine, logg *logger.Logger) (*RefreshJob, error) {
	if engine == nil {
		return nil, fmt.Errorf("surge engine required")
	}
	return &RefreshJob{engine: engine, logg: logg}, nil
}

func (j *RefreshJob) Name() string { return "surge_refresh" }

func (j *RefreshJob) Run(ctx context.Context) error {
	var errs error
	zones := j.engine.Zones()
	for _, zoneID := range zones {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		if _, err := j.engine.Refresh(ctx, zoneID); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("refresh zone %s: %w", zoneID, err))
		}
	}
	j.logg.Debug(j.logg.WithField(ctx, "zones", len(zones)), "surge refresh complete")
	return errs
}
