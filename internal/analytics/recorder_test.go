package analytics

import (
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishcovery/backend/internal/models"
)

type memSearchQueryRepo struct {
	mu      sync.Mutex
	rows    []models.SearchQuery
	err     error
	blocked chan struct{}
}

func (r *memSearchQueryRepo) Create(q *models.SearchQuery) error {
	if r.blocked != nil {
		<-r.blocked
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.rows = append(r.rows, *q)
	return nil
}

func (r *memSearchQueryRepo) GetRecent(limit int) ([]models.SearchQuery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > len(r.rows) {
		limit = len(r.rows)
	}
	out := make([]models.SearchQuery, limit)
	copy(out, r.rows[len(r.rows)-limit:])
	return out, nil
}

func (r *memSearchQueryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows)
}

type memPopularRepo struct {
	mu     sync.Mutex
	counts map[string]int
}

func newMemPopularRepo() *memPopularRepo {
	return &memPopularRepo{counts: make(map[string]int)}
}

func (r *memPopularRepo) IncrementCount(queryText string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[queryText]++
	return nil
}

func (r *memPopularRepo) GetTop(limit int) ([]models.PopularQuery, error) {
	return nil, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestRecorder_PersistsEvents(t *testing.T) {
	queries := &memSearchQueryRepo{}
	popular := newMemPopularRepo()
	recorder := NewRecorder(queries, popular, quietLogger())

	recorder.Record(models.SearchQuery{
		QueryText:      "Butter  Chicken",
		QueryCanonical: "butter chicken",
		MatchTier:      "exact",
		ResultsCount:   1,
	})
	recorder.Record(models.SearchQuery{
		QueryText:         "zzz dish",
		QueryCanonical:    "zzz dish",
		AutoFindTriggered: true,
	})
	recorder.Close()

	require.Equal(t, 2, queries.count())
	rows, err := queries.GetRecent(2)
	require.NoError(t, err)
	assert.Equal(t, "butter chicken", rows[0].QueryCanonical)
	assert.False(t, rows[0].SearchTimestamp.IsZero())
	assert.True(t, rows[1].AutoFindTriggered)

	assert.Equal(t, 1, popular.counts["butter chicken"])
	assert.Equal(t, 1, popular.counts["zzz dish"])
}

func TestRecorder_RepositoryErrorsAreSwallowed(t *testing.T) {
	queries := &memSearchQueryRepo{err: errors.New("db down")}
	recorder := NewRecorder(queries, newMemPopularRepo(), quietLogger())

	// Must not panic or block the caller.
	recorder.Record(models.SearchQuery{QueryText: "pho", QueryCanonical: "pho"})
	recorder.Close()

	assert.Equal(t, 0, queries.count())
}

func TestRecorder_DropsInsteadOfBlocking(t *testing.T) {
	release := make(chan struct{})
	queries := &memSearchQueryRepo{blocked: release}
	recorder := NewRecorder(queries, newMemPopularRepo(), quietLogger())

	// Fill the buffer plus the event the writer goroutine is stuck on, then
	// overflow it. Record must return immediately for every call.
	for i := 0; i < defaultBufferSize+10; i++ {
		recorder.Record(models.SearchQuery{QueryText: "pho", QueryCanonical: "pho"})
	}
	assert.Greater(t, recorder.Dropped(), int64(0))

	close(release)
	recorder.Close()
}
