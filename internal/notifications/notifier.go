// Package notifications publishes engagement events to per-user Redis channels.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"resonance/internal/middleware"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Event types published to content owners.
const (
	EventLike   = "like"
	EventFollow = "follow"
)

// Event is the JSON payload delivered on a user's channel.
// ID lets subscribers drop duplicates after a reconnect.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	ActorID    uint      `json:"actor_id"`
	TargetKind string    `json:"target_kind,omitempty"`
	TargetID   uint      `json:"target_id"`
	At         time.Time `json:"at"`
}

// BreakerConfig tunes the breaker that guards publishing.
type BreakerConfig struct {
	FailureThreshold uint32
	Timeout          time.Duration
}

// DefaultBreakerConfig opens after five straight failures and retries after 30s.
var DefaultBreakerConfig = BreakerConfig{
	FailureThreshold: 5,
	Timeout:          30 * time.Second,
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
	cb  *gobreaker.CircuitBreaker[int64]
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client yields a notifier that drops every event.
func NewNotifier(rdb *redis.Client, cfg BreakerConfig) *Notifier {
	settings := gobreaker.Settings{
		Name:        "notifications",
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			middleware.Logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}
	return &Notifier{rdb: rdb, cb: gobreaker.NewCircuitBreaker[int64](settings)}
}

// UserChannel is the channel a user's client subscribes to.
func UserChannel(userID uint) string {
	return fmt.Sprintf("notifications:user:%d", userID)
}

// PublishUser sends ev to userID's channel. Delivery is best-effort: failures, including an
// open breaker, are logged and swallowed.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, ev Event) {
	if n == nil || n.rdb == nil || userID == 0 {
		return
	}

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "failed to encode notification", slog.String("error", err.Error()))
		return
	}

	_, err = n.cb.Execute(func() (int64, error) {
		return n.rdb.Publish(ctx, UserChannel(userID), payload).Result()
	})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish notification",
			slog.Uint64("recipient_id", uint64(userID)),
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
	}
}

// State reports the breaker state for health output.
func (n *Notifier) State() string {
	return n.cb.State().String()
}
