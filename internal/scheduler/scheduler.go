// Package scheduler runs the documentation refresh on a fixed interval
// in a background goroutine, isolated from the request-serving path.
package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultInterval is used when no interval is configured.
const DefaultInterval = 7 * 24 * time.Hour

// RefreshFunc is the single operation the scheduler drives.
type RefreshFunc func(ctx context.Context) error

// Start launches the periodic refresh loop and returns immediately.
// The loop runs one refresh, waits interval, and repeats until ctx is
// cancelled. An interval <= 0 selects DefaultInterval.
func Start(ctx context.Context, interval time.Duration, refresh RefreshFunc, log *logrus.Entry) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	log = log.WithField("component", "scheduler")
	log.WithField("interval", interval).Info("Background refresh scheduler started")
	go loop(ctx, interval, refresh, log)
}

// loop invokes refresh, logs any failure, then sleeps for the interval
// before the next pass. A failed refresh never terminates the loop and
// never triggers an immediate retry: the next scheduled pass is the
// retry.
func loop(ctx context.Context, interval time.Duration, refresh RefreshFunc, log *logrus.Entry) {
	for {
		runOnce(ctx, refresh, log)

		select {
		case <-ctx.Done():
			log.Info("Background refresh scheduler stopped")
			return
		case <-time.After(interval):
		}
	}
}

func runOnce(ctx context.Context, refresh RefreshFunc, log *logrus.Entry) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Scheduled refresh panicked: %v", r)
		}
	}()

	if ctx.Err() != nil {
		return
	}

	log.Info("Triggering scheduled documentation refresh")
	if err := refresh(ctx); err != nil {
		log.WithError(err).Error("Scheduled documentation refresh failed")
		return
	}
	log.Info("Scheduled documentation refresh finished successfully")
}
