package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/openrescue/emergency_dispatch_system/internal/models"
)

const eventQueueKey = "incident_events"

// EventType names what happened to an incident.
type EventType string

const (
	EventIncidentReported EventType = "incident.reported"
	EventStatusChanged    EventType = "incident.status_changed"
)

// Event is the payload delivered to the configured webhook endpoint whenever
// an incident is created or moves through its lifecycle. It stands in for
// the mobile app's push notifications.
type Event struct {
	Type       EventType         `json:"type"`
	IncidentID uuid.UUID         `json:"incident_id"`
	Status     models.Status     `json:"status"`
	Categories []models.Category `json:"categories"`
	ActorID    uuid.UUID         `json:"actor_id"`
	Message    string            `json:"message"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Publisher enqueues lifecycle events for asynchronous delivery. Publishing
// must never block or fail an incident write; delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// RedisPublisher is a Publisher backed by a Redis list used as a queue.
type RedisPublisher struct {
	redisClient *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{
		redisClient: client,
	}
}

// Publish pushes the event onto the left of the queue; the worker pops from
// the right, so events deliver in publish order.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook event: %w", err)
	}

	if err := p.redisClient.LPush(ctx, eventQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish webhook event to Redis: %w", err)
	}
	return nil
}
