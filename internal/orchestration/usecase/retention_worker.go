package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// scheduleParser accepts standard cron expressions with an optional leading seconds field
// and descriptors such as "@hourly" or "@every 1m".
var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ErrScheduleNeverFires is returned for a schedule with no future activation, such as "0 0 30 2 *".
var ErrScheduleNeverFires = errors.New("schedule has no future activation")

// ParseSchedule parses a retention sweep schedule and rejects schedules that never fire.
func ParseSchedule(spec string) (cron.Schedule, error) {
	schedule, err := scheduleParser.Parse(spec)
	if err != nil {
		return nil, err
	}
	if schedule.Next(time.Now()).IsZero() {
		return nil, ErrScheduleNeverFires
	}
	return schedule, nil
}

// RetentionWorker runs the retention sweep on a schedule until its context ends.
type RetentionWorker struct {
	schedule  cron.Schedule
	retention RetentionUseCase
	logger    *slog.Logger
}

// NewRetentionWorker creates a new RetentionWorker.
func NewRetentionWorker(schedule cron.Schedule, retention RetentionUseCase, logger *slog.Logger) *RetentionWorker {
	return &RetentionWorker{
		schedule:  schedule,
		retention: retention,
		logger:    logger,
	}
}

// Start blocks, sweeping at every scheduled activation. Sweep failures are logged and the
// worker waits for the next activation. Returns ErrScheduleNeverFires once the schedule has
// no further activation.
func (w *RetentionWorker) Start(ctx context.Context) error {
	w.logger.Info("starting retention worker")

	for {
		now := time.Now()
		next := w.schedule.Next(now)
		if next.IsZero() {
			w.logger.Error("retention schedule has no future activation, stopping retention worker")
			return ErrScheduleNeverFires
		}
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			w.logger.Info("stopping retention worker")
			return ctx.Err()
		case <-timer.C:
			if _, err := w.retention.Sweep(ctx); err != nil {
				w.logger.Error("failed to sweep orchestration processes", slog.Any("error", err))
			}
		}
	}
}
