package autofind

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dishcovery/backend/internal/models"
	"github.com/dishcovery/backend/internal/query"
	"github.com/dishcovery/backend/internal/repository"
	"github.com/dishcovery/backend/internal/synthesis"
)

// RetryConfig controls how often a job attempt is retried and how long the
// worker waits between attempts. The delay doubles after each failure.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
	}
}

// staleRunningAfter is how long a job may sit in running without an update
// before it is assumed orphaned by a dead worker and returned to the queue.
const staleRunningAfter = 5 * time.Minute

// Worker drains the auto-find queue: it asks the synthesis service for
// recipe drafts and persists them as pending_review records. Jobs left
// queued by a previous run are recovered through periodic polling.
type Worker struct {
	queue        *Queue
	jobs         models.AutoFindJobRepository
	logs         models.JobLogRepository
	recipes      repository.RecipeRepository
	synthesizer  synthesis.Synthesizer
	logger       *logrus.Logger
	retry        RetryConfig
	pollInterval time.Duration
}

func NewWorker(
	queue *Queue,
	jobs models.AutoFindJobRepository,
	logs models.JobLogRepository,
	recipes repository.RecipeRepository,
	synthesizer synthesis.Synthesizer,
	retry RetryConfig,
	logger *logrus.Logger,
) *Worker {
	return &Worker{
		queue:        queue,
		jobs:         jobs,
		logs:         logs,
		recipes:      recipes,
		synthesizer:  synthesizer,
		logger:       logger,
		retry:        retry,
		pollInterval: 30 * time.Second,
	}
}

// Run processes jobs until the context is cancelled. It blocks; callers run
// it on its own goroutine.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("Auto-find worker started")
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.drainPending(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Auto-find worker stopped")
			return
		case jobID := <-w.queue.Wake():
			w.processByID(ctx, jobID)
		case <-ticker.C:
			w.drainPending(ctx)
		}
	}
}

// drainPending picks up queued jobs the wake channel missed, including jobs
// persisted by a previous process. Jobs stranded in running by an
// interrupted worker are requeued first so they get drained too.
func (w *Worker) drainPending(ctx context.Context) {
	requeued, err := w.jobs.RequeueStale(time.Now().Add(-staleRunningAfter))
	if err != nil {
		w.logger.WithError(err).Warn("Failed to requeue stale auto-find jobs")
	} else if requeued > 0 {
		w.logger.WithField("count", requeued).Info("Requeued stale auto-find jobs")
	}

	pending, err := w.jobs.GetPending(50)
	if err != nil {
		w.logger.WithError(err).Warn("Failed to list pending auto-find jobs")
		return
	}
	for i := range pending {
		if ctx.Err() != nil {
			return
		}
		w.process(ctx, &pending[i])
	}
}

func (w *Worker) processByID(ctx context.Context, jobID string) {
	job, err := w.jobs.GetByJobID(jobID)
	if err != nil {
		w.logger.WithError(err).WithField("job_id", jobID).Warn("Failed to load auto-find job")
		return
	}
	if job.Status != models.JobStatusQueued {
		return
	}
	w.process(ctx, job)
}

func (w *Worker) process(ctx context.Context, job *models.AutoFindJob) {
	log := w.logger.WithFields(logrus.Fields{
		"job_id": job.JobID,
		"query":  job.QueryCanonical,
	})

	var lastErr error
	for attempt := 1; attempt <= w.retry.MaxAttempts; attempt++ {
		if err := w.jobs.MarkRunning(job.JobID, attempt); err != nil {
			log.WithError(err).Warn("Failed to mark job running")
		}
		w.appendLog(job.JobID, EventAttempt, fmt.Sprintf("attempt=%d", attempt))

		created, skipped, err := w.attempt(ctx, job)
		if err == nil {
			detail := fmt.Sprintf("created=%d skipped=%d", created, skipped)
			if err := w.jobs.MarkOutcome(job.JobID, models.JobStatusSucceeded, ""); err != nil {
				log.WithError(err).Warn("Failed to mark job succeeded")
			}
			w.appendLog(job.JobID, EventPersisted, detail)
			w.appendLog(job.JobID, EventSucceeded, detail)
			log.WithFields(logrus.Fields{
				"created": created,
				"skipped": skipped,
				"attempt": attempt,
			}).Info("Auto-find job succeeded")
			return
		}

		lastErr = err
		log.WithError(err).WithField("attempt", attempt).Warn("Auto-find attempt failed")

		if attempt < w.retry.MaxAttempts {
			delay := w.retry.BaseDelay * time.Duration(1<<(attempt-1))
			w.appendLog(job.JobID, EventRetry, fmt.Sprintf("attempt=%d delay=%s", attempt, delay))
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
	}

	if err := w.jobs.MarkOutcome(job.JobID, models.JobStatusFailed, lastErr.Error()); err != nil {
		log.WithError(err).Warn("Failed to mark job failed")
	}
	w.appendLog(job.JobID, EventFailed, lastErr.Error())
	log.WithError(lastErr).Error("Auto-find job failed after all attempts")
}

// attempt runs one synthesis call and persists whatever drafts came back.
// Zero drafts is a successful outcome.
func (w *Worker) attempt(ctx context.Context, job *models.AutoFindJob) (created, skipped int, err error) {
	text := job.OriginalText
	if text == "" {
		text = job.QueryCanonical
	}
	resp, err := w.synthesizer.Synthesize(ctx, synthesis.SynthesizeRequest{Query: text})
	if err != nil {
		return 0, 0, fmt.Errorf("synthesis request failed: %w", err)
	}

	for _, draft := range resp.Drafts {
		ok, err := w.persistDraft(ctx, draft)
		if err != nil {
			return created, skipped, err
		}
		if ok {
			created++
		} else {
			skipped++
		}
	}
	return created, skipped, nil
}

// persistDraft stores one draft as a pending_review recipe. Returns false
// when a recipe with the same canonical title and origin already exists.
func (w *Worker) persistDraft(ctx context.Context, draft synthesis.RecipeDraft) (bool, error) {
	normalized, err := query.Normalize(draft.Title)
	if err != nil {
		w.logger.WithField("title", draft.Title).Warn("Skipping draft with unusable title")
		return false, nil
	}

	if _, err := w.recipes.FindByTitleOrigin(ctx, normalized.Canonical, draft.OriginCountry); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrRecipeNotFound) {
		return false, fmt.Errorf("failed to check for existing recipe: %w", err)
	}

	recipe := &models.Recipe{
		Title:              draft.Title,
		OriginCountry:      draft.OriginCountry,
		CookingTimeMinutes: draft.CookingTimeMinutes,
		Difficulty:         draft.Difficulty,
		Ingredients:        models.StringArray(draft.Ingredients),
		Steps:              models.StringArray(draft.Steps),
		History:            draft.CulturalNotes,
		Authenticity:       models.AuthenticityPendingReview,
		Published:          true,
	}
	if err := w.recipes.Create(ctx, recipe); err != nil {
		// A concurrent writer winning the race is equivalent to the lookup
		// finding the recipe.
		if errors.Is(err, repository.ErrDuplicateRecipe) {
			return false, nil
		}
		return false, fmt.Errorf("failed to persist recipe: %w", err)
	}
	return true, nil
}

func (w *Worker) appendLog(jobID, event, detail string) {
	entry := &models.JobLogEntry{JobID: jobID, Event: event, Detail: detail}
	if err := w.logs.Append(entry); err != nil {
		w.logger.WithError(err).WithFields(logrus.Fields{
			"job_id": jobID,
			"event":  event,
		}).Warn("Failed to append job log entry")
	}
}
