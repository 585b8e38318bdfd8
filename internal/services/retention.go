package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Retention runs Converter.Sweep on a cron schedule.
type Retention struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// StartRetention schedules a sweep of documents older than maxAge. The
// schedule uses the standard five-field cron syntax or descriptors such as
// "@hourly". Runs never overlap.
func StartRetention(conv *Converter, schedule string, maxAge time.Duration, logger *slog.Logger) (*Retention, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "retention")

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		removed, err := conv.Sweep(context.Background(), maxAge)
		if err != nil {
			logger.Error("Retention sweep incomplete.", "error", err, "removed", removed)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add retention schedule %q: %w", schedule, err)
	}
	c.Start()
	logger.Info("Retention sweep scheduled.", "schedule", schedule, "maxAge", maxAge.String())
	return &Retention{cron: c, logger: logger}, nil
}

// Stop prevents further runs and waits for a running sweep, up to ctx.
func (r *Retention) Stop(ctx context.Context) {
	if r == nil {
		return
	}
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
		r.logger.Warn("Retention sweep still running at shutdown.")
	}
}
