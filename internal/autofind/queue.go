package autofind

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dishcovery/backend/internal/models"
)

// Job log event names.
const (
	EventQueued    = "queued"
	EventAttempt   = "attempt_started"
	EventRetry     = "retry_scheduled"
	EventPersisted = "recipes_persisted"
	EventSucceeded = "succeeded"
	EventFailed    = "failed"
)

const defaultQueueDepth = 256

// Queue accepts auto-find requests and hands them to the worker. Enqueue is
// idempotent per canonical query: while a job for the query is still queued
// or running, callers get that job back instead of a new one.
type Queue struct {
	jobs   models.AutoFindJobRepository
	logs   models.JobLogRepository
	logger *logrus.Logger
	wake   chan string
}

func NewQueue(jobs models.AutoFindJobRepository, logs models.JobLogRepository, logger *logrus.Logger) *Queue {
	return &Queue{
		jobs:   jobs,
		logs:   logs,
		logger: logger,
		wake:   make(chan string, defaultQueueDepth),
	}
}

// Enqueue records an auto-find job for the canonical query. The returned
// bool reports whether a new job was created; false means an active job for
// the same query was reused.
func (q *Queue) Enqueue(ctx context.Context, queryCanonical, originalText, identityKey string) (*models.AutoFindJob, bool, error) {
	existing, err := q.jobs.FindActiveByQuery(queryCanonical)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check for active job: %w", err)
	}
	if existing != nil {
		q.logger.WithFields(logrus.Fields{
			"job_id": existing.JobID,
			"query":  queryCanonical,
		}).Debug("Reusing active auto-find job")
		return existing, false, nil
	}

	job := &models.AutoFindJob{
		JobID:          uuid.New().String(),
		QueryCanonical: queryCanonical,
		OriginalText:   originalText,
		IdentityKey:    identityKey,
		Status:         models.JobStatusQueued,
	}
	if err := q.jobs.Create(job); err != nil {
		return nil, false, fmt.Errorf("failed to create auto-find job: %w", err)
	}

	q.appendLog(job.JobID, EventQueued, fmt.Sprintf("query=%q", queryCanonical))

	select {
	case q.wake <- job.JobID:
	default:
		// Worker also polls pending jobs, so a full wake channel only delays
		// pickup.
		q.logger.WithField("job_id", job.JobID).Warn("Auto-find wake channel full")
	}

	q.logger.WithFields(logrus.Fields{
		"job_id": job.JobID,
		"query":  queryCanonical,
	}).Info("Auto-find job queued")
	return job, true, nil
}

// Wake exposes the notification channel the worker listens on.
func (q *Queue) Wake() <-chan string {
	return q.wake
}

// appendLog writes an audit entry. Log failures never fail the job flow.
func (q *Queue) appendLog(jobID, event, detail string) {
	entry := &models.JobLogEntry{JobID: jobID, Event: event, Detail: detail}
	if err := q.logs.Append(entry); err != nil {
		q.logger.WithError(err).WithFields(logrus.Fields{
			"job_id": jobID,
			"event":  event,
		}).Warn("Failed to append job log entry")
	}
}
