package quota

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

// memCounterStore is an in-process CounterStore with real expiry semantics.
type memCounterStore struct {
	mu       sync.Mutex
	counts   map[string]int64
	deadline map[string]time.Time
	now      time.Time
	err      error
}

func newMemCounterStore() *memCounterStore {
	return &memCounterStore{
		counts:   make(map[string]int64),
		deadline: make(map[string]time.Time),
		now:      time.Now(),
	}
}

func (s *memCounterStore) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return 0, s.err
	}
	if dl, ok := s.deadline[key]; ok && s.now.After(dl) {
		delete(s.counts, key)
		delete(s.deadline, key)
	}

	s.counts[key]++
	if s.counts[key] == 1 {
		s.deadline[key] = s.now.Add(window)
	}
	return s.counts[key], nil
}

func (s *memCounterStore) advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestAllow_AnonymousQuota(t *testing.T) {
	limiter := NewLimiter(newMemCounterStore(), 5, 50, testLogger())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow(ctx, "ip:abc", false), "attempt %d", i+1)
	}
	assert.False(t, limiter.Allow(ctx, "ip:abc", false), "attempt 6 must be denied")
}

func TestAllow_AuthenticatedQuota(t *testing.T) {
	limiter := NewLimiter(newMemCounterStore(), 5, 50, testLogger())
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		assert.True(t, limiter.Allow(ctx, "user:42", true), "attempt %d", i+1)
	}
	assert.False(t, limiter.Allow(ctx, "user:42", true))
}

func TestAllow_WindowReset(t *testing.T) {
	store := newMemCounterStore()
	limiter := NewLimiter(store, 5, 50, testLogger())
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		limiter.Allow(ctx, "ip:abc", false)
	}
	assert.False(t, limiter.Allow(ctx, "ip:abc", false))

	store.advance(25 * time.Hour)
	assert.True(t, limiter.Allow(ctx, "ip:abc", false), "fresh window must admit again")
}

func TestAllow_IdentitiesIndependent(t *testing.T) {
	limiter := NewLimiter(newMemCounterStore(), 1, 50, testLogger())
	ctx := context.Background()

	assert.True(t, limiter.Allow(ctx, "ip:a", false))
	assert.False(t, limiter.Allow(ctx, "ip:a", false))
	assert.True(t, limiter.Allow(ctx, "ip:b", false))
}

func TestAllow_FailsOpenOnStoreError(t *testing.T) {
	store := newMemCounterStore()
	store.err = errors.New("connection refused")
	limiter := NewLimiter(store, 5, 50, testLogger())

	assert.True(t, limiter.Allow(context.Background(), "ip:abc", false))
}

func TestAllow_ConcurrentBurstDoesNotBypassQuota(t *testing.T) {
	limiter := NewLimiter(newMemCounterStore(), 5, 50, testLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	allowed := make(chan bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- limiter.Allow(ctx, "ip:burst", false)
		}()
	}
	wg.Wait()
	close(allowed)

	admitted := 0
	for ok := range allowed {
		if ok {
			admitted++
		}
	}
	assert.Equal(t, 5, admitted)
}
