package quota

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrQuotaExceeded is returned when an identity has used up its auto-find
// quota for the current window.
var ErrQuotaExceeded = errors.New("auto-find quota exceeded, try again later")

// Window is the rolling quota period.
const Window = 24 * time.Hour

// CounterStore is the shared atomic increment-with-expiry primitive. The
// window must be applied only by the increment that creates the counter.
type CounterStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter enforces the per-identity auto-find quota. Counter store errors
// fail open: the request is admitted and a warning is logged.
type Limiter struct {
	store     CounterStore
	logger    *logrus.Logger
	anonLimit int64
	authLimit int64
}

func NewLimiter(store CounterStore, anonLimit, authLimit int, logger *logrus.Logger) *Limiter {
	return &Limiter{
		store:     store,
		logger:    logger,
		anonLimit: int64(anonLimit),
		authLimit: int64(authLimit),
	}
}

// Allow increments the identity's counter and checks it against the quota.
// Increment-then-check keeps concurrent bursts from bypassing the limit.
func (l *Limiter) Allow(ctx context.Context, identityKey string, authenticated bool) bool {
	count, err := l.store.Increment(ctx, identityKey, Window)
	if err != nil {
		l.logger.WithError(err).WithField("identity", identityKey).
			Warn("Counter store unavailable, failing open")
		return true
	}

	limit := l.anonLimit
	if authenticated {
		limit = l.authLimit
	}
	return count <= limit
}
