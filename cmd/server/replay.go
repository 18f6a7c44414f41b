package main

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/resumekit/pkg/logger"
	"github.com/dmitrymomot/resumekit/pkg/reconcile"
)

// newReplayScheduler schedules ReplayPending for events whose first delivery
// failed. Runs never overlap; a tick that finds the previous run still busy
// is skipped.
func newReplayScheduler(log *slog.Logger, r *reconcile.Reconciler, cfg appConfig) (*cron.Cron, error) {
	log = log.With(logger.Component("replay"))

	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	_, err := c.AddFunc(cfg.ReplaySchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ReplayTimeout)
		defer cancel()

		n, err := r.ReplayPending(ctx, cfg.ReplayBatchSize)
		if err != nil {
			log.ErrorContext(ctx, "pending event replay finished with errors",
				slog.Int("replayed", n), logger.Error(err))
			return
		}
		if n > 0 {
			log.InfoContext(ctx, "pending events replayed", slog.Int("replayed", n))
		}
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
