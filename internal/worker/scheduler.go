package worker

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jimdaga/window-warmer/internal/config"
)

// StartScheduler creates and starts an Asynq Scheduler that runs the due
// scan every minute. Returns a stop function for graceful shutdown.
//
// Trigger precision is deliberately minute-grained: a wake-up only needs to
// land near its instant, never drift across DST boundaries.
func StartScheduler(cfg *config.Config) (stop func(), err error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := NewLogger(cfg.LogLevel, cfg.LogFormat)

	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
			Logger:   &asynqLoggerAdapter{logger: logger},
		},
	)

	task := asynq.NewTask(
		TaskScanDue,
		nil, // empty payload - handler scans the due index itself
		asynq.MaxRetry(1),
		asynq.Timeout(50*time.Second),
		asynq.Unique(time.Minute), // prevent duplicate if scheduler runs twice
	)

	entryID, err := scheduler.Register("@every 1m", task)
	if err != nil {
		return nil, fmt.Errorf("failed to register due scan: %w", err)
	}

	if err := scheduler.Start(); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	slog.Info("Scheduler started", "entry_id", entryID)

	return func() { scheduler.Shutdown() }, nil
}
