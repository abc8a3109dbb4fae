// Package jobs schedules background work.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/atlas-fitness/atlas-api/internal/push"
	"github.com/atlas-fitness/atlas-api/pkg/logger"
	"github.com/robfig/cron/v3"
)

const (
	DefaultPushSweepSchedule = "@every 5m"
	sweepTimeout             = 2 * time.Minute
)

// Sweeper runs one push delivery pass.
type Sweeper interface {
	Sweep(ctx context.Context) (push.SweepReport, error)
}

// InitCronJobs registers the push sweep on c. The caller starts and stops c.
func InitCronJobs(c *cron.Cron, schedule string, sweeper Sweeper, log *logger.Logger) error {
	if schedule == "" {
		schedule = DefaultPushSweepSchedule
	}
	_, err := c.AddFunc(schedule, func() {
		runSweep(sweeper, log)
	})
	if err != nil {
		return fmt.Errorf("schedule push sweep %q: %w", schedule, err)
	}
	log.Info("Push sweep scheduled: %s", schedule)
	return nil
}

func runSweep(sweeper Sweeper, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	report, err := sweeper.Sweep(ctx)
	switch {
	case err != nil:
		log.Error("push sweep: %v", err)
	case report.Skipped:
		log.Debug("push sweep skipped, previous pass still running")
	}
}
