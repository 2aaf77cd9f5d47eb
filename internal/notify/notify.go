// Package notify publishes outbound notifications to a Redis Stream for the
// mail dispatcher to consume. Delivery is fire-and-forget: the actor never
// waits on a notification before proceeding.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StreamNotifications is the outbound notification stream.
const StreamNotifications = "notify:outbound"

// SchemaVersionV1 tags message payloads for the consumer.
const SchemaVersionV1 = "v1"

// Message is one templated notification for one recipient.
type Message struct {
	ID        string `json:"id"`
	Recipient string `json:"recipient"`
	Template  string `json:"template"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// Success builds the ping-success notification.
func Success(recipient string, windowEndsAt time.Time) Message {
	return Message{
		ID:        uuid.New().String(),
		Recipient: recipient,
		Template:  "ping_success",
		Subject:   "Your window is warming up",
		Body: fmt.Sprintf("This morning's ping went through. Your usage window stays active until %s.",
			windowEndsAt.UTC().Format(time.RFC1123)),
	}
}

// Warning builds the one-time warning sent on the third consecutive failure.
func Warning(recipient string, failures int) Message {
	return Message{
		ID:        uuid.New().String(),
		Recipient: recipient,
		Template:  "token_warning",
		Subject:   "Your scheduled pings are failing",
		Body: fmt.Sprintf("The last %d pings failed in a row. We'll keep retrying, but your credential may need attention.",
			failures),
	}
}

// Critical builds the suspension notification sent on the fifth consecutive
// failure, after which automatic retries stop.
func Critical(recipient string) Message {
	return Message{
		ID:        uuid.New().String(),
		Recipient: recipient,
		Template:  "token_suspended",
		Subject:   "Scheduled pings suspended",
		Body:      "Five pings failed in a row, so we've paused your schedule. Reconnect your credential and resume from the dashboard.",
	}
}

// Publisher publishes notification messages to Redis Streams.
type Publisher struct {
	rdb *redis.Client
}

// NewPublisher creates a new Publisher instance.
func NewPublisher(redisURL string) (*Publisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return &Publisher{rdb: redis.NewClient(opts)}, nil
}

// Publish appends one message to the notification stream.
func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	result := p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamNotifications,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload":        string(payload),
			"published_at":   time.Now().Unix(),
			"schema_version": SchemaVersionV1,
		},
	})
	if result.Err() != nil {
		return fmt.Errorf("failed to publish to stream: %w", result.Err())
	}

	return nil
}

// Close closes the Redis client connection.
func (p *Publisher) Close() error {
	return p.rdb.Close()
}
