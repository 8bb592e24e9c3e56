// Package maintenance runs scheduled housekeeping over durable stores.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Purger deletes records created before cutoff and reports how many were removed.
type Purger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionJob purges the turn trail on a standard 5-field cron schedule
// (minute hour day-of-month month day-of-week).
type RetentionJob struct {
	purger    Purger
	schedule  cron.Schedule
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
	onRun     func(removed int64, err error)
}

func NewRetentionJob(p Purger, schedule string, retentionDays int, logger *slog.Logger) (*RetentionJob, error) {
	if p == nil {
		return nil, fmt.Errorf("retention job needs a purger")
	}
	if retentionDays <= 0 {
		return nil, fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(strings.TrimSpace(schedule))
	if err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetentionJob{
		purger:    p,
		schedule:  sched,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// SetRunHook is called after every purge.
func (j *RetentionJob) SetRunHook(fn func(removed int64, err error)) { j.onRun = fn }

// Next reports when the job fires after t.
func (j *RetentionJob) Next(t time.Time) time.Time { return j.schedule.Next(t) }

// RunOnce purges everything older than the retention window.
func (j *RetentionJob) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.retention)
	removed, err := j.purger.PurgeBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("turn retention purge failed", "cutoff", cutoff, "error", err)
	} else {
		j.logger.Info("turn retention purge complete", "cutoff", cutoff, "removed", removed)
	}
	if j.onRun != nil {
		j.onRun(removed, err)
	}
	return removed, err
}

// Run blocks until ctx is done, purging at each scheduled time.
func (j *RetentionJob) Run(ctx context.Context) error {
	for {
		now := j.now()
		next := j.schedule.Next(now)
		wait := next.Sub(now)
		j.logger.Debug("next turn retention purge", "at", next, "in", wait.Round(time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		_, _ = j.RunOnce(ctx)
	}
}
