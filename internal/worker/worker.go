package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jimdaga/window-warmer/internal/actor"
	"github.com/jimdaga/window-warmer/internal/config"
	"github.com/jimdaga/window-warmer/internal/models"
)

// dueBatchSize caps how many due users one scan tick hands to the queue.
const dueBatchSize = 500

// DueLister is the slice of the store the scan needs.
type DueLister interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.UserScheduleState, error)
}

// Start starts the Asynq worker in non-blocking mode and returns a stop
// function so the caller can coordinate shutdown.
func Start(cfg *config.Config, svc *actor.Service, due DueLister) (stop func(), err error) {
	srv, mux, err := newServer(cfg, svc, due)
	if err != nil {
		return nil, err
	}
	if err := srv.Start(mux); err != nil {
		return nil, fmt.Errorf("failed to start worker: %w", err)
	}
	return func() { srv.Shutdown() }, nil
}

func newServer(cfg *config.Config, svc *actor.Service, due DueLister) (*asynq.Server, *asynq.ServeMux, error) {
	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	logger := NewLogger(cfg.LogLevel, cfg.LogFormat)

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     10,
			ShutdownTimeout: 30 * time.Second,
			ErrorHandler:    asynq.ErrorHandlerFunc(makeErrorHandler(logger)),
			Logger:          &asynqLoggerAdapter{logger: logger},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskPingExecute, handlePingExecute(logger, svc))
	mux.HandleFunc(TaskScanDue, handleScanDue(logger, due))

	logger.Info("Worker starting", "concurrency", 10, "redis", cfg.RedisURL)
	return srv, mux, nil
}

// handlePingExecute drives one user's wake-up through the actor.
func handlePingExecute(logger *slog.Logger, svc *actor.Service) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		var payload pingPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("invalid payload: %w", asynq.SkipRetry)
		}
		if payload.UserID == "" {
			return fmt.Errorf("empty user id: %w", asynq.SkipRetry)
		}

		logger.Info("Processing ping:execute task", "user_id", payload.UserID)

		if err := svc.HandleTimerFire(ctx, payload.UserID); err != nil {
			// The actor already arranged the next wake-up wherever it
			// could; surfacing the error here is for the dead-letter log.
			return fmt.Errorf("timer fire failed: %w", err)
		}
		return nil
	}
}

// handleScanDue runs one per-minute scan over the next_fire_at index and
// enqueues a wake-up task per due user.
func handleScanDue(logger *slog.Logger, due DueLister) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		now := time.Now().UTC()

		states, err := due.ListDue(ctx, now, dueBatchSize)
		if err != nil {
			return fmt.Errorf("failed to list due users: %w", err)
		}
		if len(states) == 0 {
			return nil
		}

		enqueued := 0
		var firstErr error
		for _, state := range states {
			if err := EnqueuePingExecute(state.UserID); err != nil {
				logger.Error("Failed to enqueue ping task", "user_id", state.UserID, "error", err.Error())
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			enqueued++
		}

		logger.Info("Due scan complete", "due", len(states), "enqueued", enqueued)
		if enqueued == 0 && firstErr != nil {
			return fmt.Errorf("failed to enqueue any due users: %w", firstErr)
		}
		return nil
	}
}

// makeErrorHandler creates an error handler function with logger closure.
func makeErrorHandler(logger *slog.Logger) func(context.Context, *asynq.Task, error) {
	return func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)

		logger.Error(
			"Task execution failed",
			"task_type", task.Type(),
			"error", err.Error(),
			"retry_count", retried,
			"max_retry", maxRetry,
		)

		if retried >= maxRetry {
			logger.Error(
				"Task moved to dead letter queue (all retries exhausted)",
				"task_type", task.Type(),
				"payload", string(task.Payload()),
			)
		}
	}
}
