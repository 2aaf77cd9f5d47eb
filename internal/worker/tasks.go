package worker

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	// TaskPingExecute fires one user's wake-up. Retries belong to the
	// escalation machine, not the queue, so the task itself never retries.
	TaskPingExecute = "ping:execute"

	// TaskScanDue is the per-minute scan of the next_fire_at index.
	TaskScanDue = "schedule:scan_due"
)

// Package-level Asynq client (singleton)
var client *asynq.Client

// InitClient initializes the global Asynq client for task enqueueing.
// Must be called before any EnqueueX functions.
func InitClient(redisURL string) error {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return err
	}

	client = asynq.NewClient(opt)
	return nil
}

// CloseClient closes the Asynq client connection gracefully.
func CloseClient() error {
	if client != nil {
		return client.Close()
	}
	return nil
}

// pingPayload carries the user whose timer fired.
type pingPayload struct {
	UserID string `json:"user_id"`
}

// EnqueuePingExecute enqueues a wake-up task for one user. Uniqueness over a
// short window keeps a slow handler from racing a second fire for the same
// user; the actor's dueness re-check under its lock covers the rest.
func EnqueuePingExecute(userID string) error {
	payload, err := json.Marshal(pingPayload{UserID: userID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(
		TaskPingExecute,
		payload,
		asynq.MaxRetry(0),
		asynq.Timeout(2*time.Minute),
		asynq.Unique(2*time.Minute),
		asynq.Retention(24*time.Hour),
	)

	_, err = client.Enqueue(task)
	return err
}
