package service

import (
	"context"
	"log/slog"

	"resonance/internal/middleware"
	"resonance/internal/notifications"
	"resonance/internal/repository"
)

// Publisher delivers engagement events to a user. *notifications.Notifier satisfies it.
type Publisher interface {
	PublishUser(ctx context.Context, userID uint, ev notifications.Event)
}

// retryTransient runs fn and runs it once more when it fails with a transient store error.
// fn must re-read any state it depends on.
func retryTransient[T any](ctx context.Context, operation string, fn func() (T, error)) (T, error) {
	v, err := fn()
	if err == nil || !repository.IsTransient(err) || ctx.Err() != nil {
		return v, err
	}

	middleware.StoreRetries.WithLabelValues(operation).Inc()
	middleware.Logger.WarnContext(ctx, "retrying after transient store error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
	return fn()
}
