package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/dishcovery/backend/internal/models"
)

// AutoFindJobRepositoryImpl implements AutoFindJobRepository
type AutoFindJobRepositoryImpl struct {
	db *gorm.DB
}

func NewAutoFindJobRepository(db *gorm.DB) models.AutoFindJobRepository {
	return &AutoFindJobRepositoryImpl{db: db}
}

func (r *AutoFindJobRepositoryImpl) Create(job *models.AutoFindJob) error {
	return r.db.Create(job).Error
}

func (r *AutoFindJobRepositoryImpl) GetByJobID(jobID string) (*models.AutoFindJob, error) {
	var job models.AutoFindJob
	err := r.db.Where("job_id = ?", jobID).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *AutoFindJobRepositoryImpl) FindActiveByQuery(queryCanonical string) (*models.AutoFindJob, error) {
	var job models.AutoFindJob
	err := r.db.Where("query_canonical = ? AND status IN ?",
		queryCanonical, []string{models.JobStatusQueued, models.JobStatusRunning}).
		Order("created_at DESC").
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *AutoFindJobRepositoryImpl) GetPending(limit int) ([]models.AutoFindJob, error) {
	var jobs []models.AutoFindJob
	err := r.db.Where("status = ?", models.JobStatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

func (r *AutoFindJobRepositoryImpl) RequeueStale(cutoff time.Time) (int64, error) {
	result := r.db.Model(&models.AutoFindJob{}).
		Where("status = ? AND updated_at < ?", models.JobStatusRunning, cutoff).
		Update("status", models.JobStatusQueued)
	return result.RowsAffected, result.Error
}

func (r *AutoFindJobRepositoryImpl) MarkRunning(jobID string, attempt int) error {
	return r.db.Model(&models.AutoFindJob{}).
		Where("job_id = ?", jobID).
		Updates(map[string]interface{}{
			"status":   models.JobStatusRunning,
			"attempts": attempt,
		}).Error
}

func (r *AutoFindJobRepositoryImpl) MarkOutcome(jobID, status, lastError string) error {
	now := time.Now()
	return r.db.Model(&models.AutoFindJob{}).
		Where("job_id = ?", jobID).
		Updates(map[string]interface{}{
			"status":       status,
			"last_error":   lastError,
			"completed_at": &now,
		}).Error
}

// JobLogRepositoryImpl implements JobLogRepository. The table is
// append-only: no update or delete methods exist.
type JobLogRepositoryImpl struct {
	db *gorm.DB
}

func NewJobLogRepository(db *gorm.DB) models.JobLogRepository {
	return &JobLogRepositoryImpl{db: db}
}

func (r *JobLogRepositoryImpl) Append(entry *models.JobLogEntry) error {
	return r.db.Create(entry).Error
}

func (r *JobLogRepositoryImpl) GetByJobID(jobID string) ([]models.JobLogEntry, error) {
	var entries []models.JobLogEntry
	err := r.db.Where("job_id = ?", jobID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// SearchQueryRepositoryImpl implements SearchQueryRepository
type SearchQueryRepositoryImpl struct {
	db *gorm.DB
}

func NewSearchQueryRepository(db *gorm.DB) models.SearchQueryRepository {
	return &SearchQueryRepositoryImpl{db: db}
}

func (r *SearchQueryRepositoryImpl) Create(q *models.SearchQuery) error {
	return r.db.Create(q).Error
}

func (r *SearchQueryRepositoryImpl) GetRecent(limit int) ([]models.SearchQuery, error) {
	var queries []models.SearchQuery
	err := r.db.Order("search_timestamp DESC").
		Limit(limit).
		Find(&queries).Error
	return queries, err
}

// PopularQueryRepositoryImpl implements PopularQueryRepository
type PopularQueryRepositoryImpl struct {
	db *gorm.DB
}

func NewPopularQueryRepository(db *gorm.DB) models.PopularQueryRepository {
	return &PopularQueryRepositoryImpl{db: db}
}

func (r *PopularQueryRepositoryImpl) IncrementCount(queryText string) error {
	return r.db.Exec(`
		INSERT INTO popular_queries (query_text, search_count, last_searched, created_at, updated_at)
		VALUES (?, 1, NOW(), NOW(), NOW())
		ON CONFLICT (query_text)
		DO UPDATE SET
			search_count = popular_queries.search_count + 1,
			last_searched = NOW(),
			updated_at = NOW()
	`, queryText).Error
}

func (r *PopularQueryRepositoryImpl) GetTop(limit int) ([]models.PopularQuery, error) {
	var queries []models.PopularQuery
	err := r.db.Order("search_count DESC").
		Limit(limit).
		Find(&queries).Error
	return queries, err
}

// SystemHealthRepositoryImpl implements SystemHealthRepository
type SystemHealthRepositoryImpl struct {
	db *gorm.DB
}

func NewSystemHealthRepository(db *gorm.DB) models.SystemHealthRepository {
	return &SystemHealthRepositoryImpl{db: db}
}

func (r *SystemHealthRepositoryImpl) UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error {
	return r.db.Exec(`
		INSERT INTO system_health (service_name, status, response_time_ms, error_message, checked_at)
		VALUES (?, ?, ?, ?, NOW())
	`, serviceName, status, responseTime, errorMsg).Error
}

func (r *SystemHealthRepositoryImpl) GetAllServicesHealth() ([]models.SystemHealth, error) {
	var health []models.SystemHealth
	err := r.db.Raw(`
		SELECT DISTINCT ON (service_name) *
		FROM system_health
		ORDER BY service_name, checked_at DESC
	`).Scan(&health).Error
	return health, err
}

// RepositoryManager bundles all repositories
type RepositoryManager struct {
	Recipe       RecipeRepository
	AutoFindJob  models.AutoFindJobRepository
	JobLog       models.JobLogRepository
	SearchQuery  models.SearchQueryRepository
	PopularQuery models.PopularQueryRepository
	SystemHealth models.SystemHealthRepository
}

func NewRepositoryManager(db *gorm.DB) *RepositoryManager {
	return &RepositoryManager{
		Recipe:       NewGormRecipeRepository(db),
		AutoFindJob:  NewAutoFindJobRepository(db),
		JobLog:       NewJobLogRepository(db),
		SearchQuery:  NewSearchQueryRepository(db),
		PopularQuery: NewPopularQueryRepository(db),
		SystemHealth: NewSystemHealthRepository(db),
	}
}
