package analytics

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dishcovery/backend/internal/models"
)

const defaultBufferSize = 512

// Recorder persists search analytics off the request path. Record never
// blocks: when the buffer is full the event is dropped and counted, since
// analytics must not slow down or fail a search.
type Recorder struct {
	queries  models.SearchQueryRepository
	popular  models.PopularQueryRepository
	logger   *logrus.Logger
	events   chan models.SearchQuery
	done     chan struct{}
	closing  sync.Once
	dropped  int64
	droppedM sync.Mutex
}

func NewRecorder(queries models.SearchQueryRepository, popular models.PopularQueryRepository, logger *logrus.Logger) *Recorder {
	r := &Recorder{
		queries: queries,
		popular: popular,
		logger:  logger,
		events:  make(chan models.SearchQuery, defaultBufferSize),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues one search event. Safe for concurrent use.
func (r *Recorder) Record(event models.SearchQuery) {
	if event.SearchTimestamp.IsZero() {
		event.SearchTimestamp = time.Now()
	}
	select {
	case r.events <- event:
	default:
		r.droppedM.Lock()
		r.dropped++
		n := r.dropped
		r.droppedM.Unlock()
		if n%100 == 1 {
			r.logger.WithField("dropped_total", n).Warn("Analytics buffer full, dropping events")
		}
	}
}

// Dropped reports how many events were discarded due to a full buffer.
func (r *Recorder) Dropped() int64 {
	r.droppedM.Lock()
	defer r.droppedM.Unlock()
	return r.dropped
}

// Close drains buffered events and stops the writer goroutine.
func (r *Recorder) Close() {
	r.closing.Do(func() {
		close(r.events)
		<-r.done
	})
}

func (r *Recorder) run() {
	defer close(r.done)
	for event := range r.events {
		if err := r.queries.Create(&event); err != nil {
			r.logger.WithError(err).Debug("Failed to record search query")
			continue
		}
		if event.QueryCanonical != "" {
			if err := r.popular.IncrementCount(event.QueryCanonical); err != nil {
				r.logger.WithError(err).Debug("Failed to bump popular query count")
			}
		}
	}
}
