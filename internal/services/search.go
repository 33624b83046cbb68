package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dishcovery/backend/internal/models"
	"github.com/dishcovery/backend/internal/query"
	"github.com/dishcovery/backend/internal/quota"
)

// Cache TTLs per outcome. Empty responses are cached briefly so repeated
// misses for the same query debounce instead of re-triggering auto-find.
const (
	ttlExact    = 5 * time.Minute
	ttlRanked   = 10 * time.Minute
	ttlEmpty    = 1 * time.Minute
	ttlAutoFind = 1 * time.Minute
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ErrQuotaExceeded is re-exported so handlers depend on one package.
var ErrQuotaExceeded = quota.ErrQuotaExceeded

// Matcher produces candidates for a normalized query.
type Matcher interface {
	Match(ctx context.Context, q query.Normalized, page, pageSize int) ([]models.MatchCandidate, int64, models.Tier)
}

// ResponseCache memoizes whole search responses.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*models.SearchResponse, bool)
	Set(ctx context.Context, key string, resp *models.SearchResponse, ttl time.Duration)
}

// QuotaLimiter gates auto-find admission per identity.
type QuotaLimiter interface {
	Allow(ctx context.Context, identityKey string, authenticated bool) bool
}

// Enqueuer accepts auto-find jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, queryCanonical, originalText, identityKey string) (*models.AutoFindJob, bool, error)
}

// Recorder accepts analytics events; implementations must not block.
type Recorder interface {
	Record(event models.SearchQuery)
}

// SearchRequest carries one search call through the service.
type SearchRequest struct {
	RawQuery      string
	Page          int
	Limit         int
	IdentityKey   string
	Authenticated bool
	UserAgent     string
	IPAddress     string
}

// SearchService is the query resolution pipeline: normalize, consult the
// cache, run the tiered matcher, and on a miss decide whether to trigger
// auto-find. Analytics are recorded best-effort for every resolved search.
type SearchService struct {
	matcher  Matcher
	cache    ResponseCache
	limiter  QuotaLimiter
	queue    Enqueuer
	recorder Recorder
	jobs     models.AutoFindJobRepository
	logs     models.JobLogRepository
	popular  models.PopularQueryRepository
	logger   *logrus.Logger
}

func NewSearchService(
	matcher Matcher,
	cache ResponseCache,
	limiter QuotaLimiter,
	queue Enqueuer,
	recorder Recorder,
	jobs models.AutoFindJobRepository,
	logs models.JobLogRepository,
	popular models.PopularQueryRepository,
	logger *logrus.Logger,
) *SearchService {
	return &SearchService{
		matcher:  matcher,
		cache:    cache,
		limiter:  limiter,
		queue:    queue,
		recorder: recorder,
		jobs:     jobs,
		logs:     logs,
		popular:  popular,
		logger:   logger,
	}
}

// Search resolves one query. It returns query.ErrInvalidQuery for blank
// input and quota.ErrQuotaExceeded when a zero-result query cannot be
// admitted to auto-find; every other failure degrades rather than erroring.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (*models.SearchResponse, error) {
	start := time.Now()

	q, err := query.Normalize(req.RawQuery)
	if err != nil {
		return nil, err
	}
	page, limit := clampWindow(req.Page, req.Limit)

	cacheKey := query.CacheKey(q.Canonical, page, limit)
	if cached, ok := s.cache.Get(ctx, cacheKey); ok {
		s.record(req, q, cached, start)
		return cached, nil
	}

	candidates, total, tier := s.matcher.Match(ctx, q, page, limit)
	if tier != models.TierNone {
		resp := &models.SearchResponse{
			Results: candidates,
			Total:   total,
			Page:    page,
			Limit:   limit,
			Tier:    tier,
		}
		s.cache.Set(ctx, cacheKey, resp, tierTTL(tier))
		s.record(req, q, resp, start)
		return resp, nil
	}

	resp, err := s.resolveEmpty(ctx, req, q, page, limit)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, cacheKey, resp, ttlFor(resp))
	s.record(req, q, resp, start)
	return resp, nil
}

// resolveEmpty handles the zero-result path: check the identity's quota,
// then hand the query to auto-find. An enqueue failure degrades to a plain
// empty response.
func (s *SearchService) resolveEmpty(ctx context.Context, req SearchRequest, q query.Normalized, page, limit int) (*models.SearchResponse, error) {
	empty := &models.SearchResponse{
		Results: []models.MatchCandidate{},
		Page:    page,
		Limit:   limit,
		Message: "No recipes found for this query.",
	}

	if !s.limiter.Allow(ctx, req.IdentityKey, req.Authenticated) {
		return nil, quota.ErrQuotaExceeded
	}

	job, created, err := s.queue.Enqueue(ctx, q.Canonical, q.Original, req.IdentityKey)
	if err != nil {
		s.logger.WithError(err).WithField("query", q.Canonical).
			Warn("Auto-find enqueue failed, returning empty results")
		return empty, nil
	}

	resp := *empty
	resp.AutoFindTriggered = true
	resp.JobID = job.JobID
	resp.Message = "No recipes found yet. We are looking for one now."
	if created {
		s.logger.WithFields(logrus.Fields{
			"job_id": job.JobID,
			"query":  q.Canonical,
		}).Info("Auto-find triggered by search miss")
	}
	return &resp, nil
}

// JobStatus reports an auto-find job with its audit log.
func (s *SearchService) JobStatus(ctx context.Context, jobID string) (*models.JobStatusResponse, error) {
	job, err := s.jobs.GetByJobID(jobID)
	if err != nil {
		return nil, err
	}

	entries, err := s.logs.GetByJobID(jobID)
	if err != nil {
		s.logger.WithError(err).WithField("job_id", jobID).Warn("Failed to load job log")
		entries = nil
	}

	resp := &models.JobStatusResponse{
		JobID:     job.JobID,
		Query:     job.QueryCanonical,
		Status:    job.Status,
		Attempts:  job.Attempts,
		LastError: job.LastError,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
		Log:       entries,
	}
	if job.CompletedAt != nil {
		resp.CompletedAt = job.CompletedAt.Format(time.RFC3339)
	}
	return resp, nil
}

// Suggestions returns the most-searched queries.
func (s *SearchService) Suggestions(limit int) ([]models.PopularQuery, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.popular.GetTop(limit)
}

func (s *SearchService) record(req SearchRequest, q query.Normalized, resp *models.SearchResponse, start time.Time) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(models.SearchQuery{
		QueryText:         req.RawQuery,
		QueryCanonical:    q.Canonical,
		IdentityKey:       req.IdentityKey,
		ResultsCount:      len(resp.Results),
		MatchTier:         string(resp.Tier),
		AutoFindTriggered: resp.AutoFindTriggered,
		ResponseTimeMs:    int(time.Since(start).Milliseconds()),
		UserAgent:         req.UserAgent,
		IPAddress:         req.IPAddress,
	})
}

func clampWindow(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func tierTTL(tier models.Tier) time.Duration {
	switch tier {
	case models.TierExact:
		return ttlExact
	case models.TierFulltext, models.TierFuzzy:
		return ttlRanked
	default:
		return ttlEmpty
	}
}

func ttlFor(resp *models.SearchResponse) time.Duration {
	if resp.AutoFindTriggered {
		return ttlAutoFind
	}
	return ttlEmpty
}
