// Package guard is the single write-rate limiter shared by the flows that
// need one (offer submission, follows). The Redis check-and-increment is
// the source of truth; any count a client derives locally is a hint.
package guard

import (
	"context"

	"thrift-orders/internal/errs"
	"thrift-orders/internal/util"

	"go.uber.org/zap"
)

// Rate-limited action types.
const (
	ActionOfferSubmit = "offer_submit"
	ActionFollow      = "follow"
)

// Limits bounds an action per user. A zero value disables that window.
type Limits struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

// Counter is the atomic check-and-increment primitive the guard runs on.
// Implemented by redisclient.Client.
type Counter interface {
	CheckAndIncrementUsage(ctx context.Context, userID, action string, perMinute, perHour, perDay int) (string, error)
}

// UsageGuard enforces per-user, per-action write quotas.
type UsageGuard struct {
	counter Counter
	logger  *zap.Logger
}

// New creates a usage guard over an atomic counter.
func New(counter Counter) *UsageGuard {
	return &UsageGuard{
		counter: counter,
		logger:  util.GetLogger(),
	}
}

// CheckAndIncrement admits one write for (userID, action) or returns
// ErrRateLimitExceeded. Admission and counting are a single atomic step,
// so concurrent sessions cannot slip past the quota between check and
// increment.
func (g *UsageGuard) CheckAndIncrement(ctx context.Context, userID, action string, limits Limits) error {
	window, err := g.counter.CheckAndIncrementUsage(ctx, userID, action,
		limits.PerMinute, limits.PerHour, limits.PerDay)
	if err != nil {
		return err
	}
	if window != "" {
		util.RateLimitExceededTotal.WithLabelValues(action).Inc()
		g.logger.Info("Usage quota exhausted",
			zap.String("user_id", userID),
			zap.String("action", action),
			zap.String("window", window))
		return errs.NewRateLimitError(action, window)
	}
	return nil
}
