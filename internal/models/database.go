package models

// GORM models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dishcovery/backend/internal/query"
)

// StringArray for PostgreSQL array support
type StringArray []string

func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "{}", nil
	}
	return fmt.Sprintf("{%s}", strings.Join(s, ",")), nil
}

func (s *StringArray) Scan(value interface{}) error {
	if value == nil {
		*s = StringArray{}
		return nil
	}

	switch v := value.(type) {
	case string:
		v = strings.Trim(v, "{}")
		if v == "" {
			*s = StringArray{}
			return nil
		}
		*s = StringArray(strings.Split(v, ","))
	case []byte:
		return s.Scan(string(v))
	default:
		return fmt.Errorf("cannot scan %T into StringArray", value)
	}
	return nil
}

// Base model with common fields
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Authenticity markers for recipes. "rejected" records are invisible to the
// fulltext and fuzzy tiers.
const (
	AuthenticityVerified      = "verified"
	AuthenticityCommunity     = "community"
	AuthenticityPendingReview = "pending_review"
	AuthenticityRejected      = "rejected"
)

// AuthenticityWeight orders candidates within the fulltext and fuzzy tiers:
// verified > community > everything else.
func AuthenticityWeight(authenticity string) int {
	switch authenticity {
	case AuthenticityVerified:
		return 3
	case AuthenticityCommunity:
		return 2
	case AuthenticityPendingReview:
		return 1
	default:
		return 0
	}
}

// Recipe is the persisted recipe record. TitleCanonical and TitleSkeleton
// are derived from Title on save and back the exact and fuzzy match tiers.
type Recipe struct {
	BaseModel
	Title              string      `json:"title" gorm:"not null"`
	TitleCanonical     string      `json:"title_canonical" gorm:"not null;uniqueIndex:idx_recipes_title_origin;index"`
	TitleSkeleton      string      `json:"-" gorm:"index"`
	OriginCountry      string      `json:"origin_country" gorm:"uniqueIndex:idx_recipes_title_origin"`
	ImageURL           string      `json:"image_url"`
	CookingTimeMinutes int         `json:"cooking_time_minutes"`
	Difficulty         string      `json:"difficulty" gorm:"check:difficulty IN ('','easy','medium','hard')"`
	Ingredients        StringArray `json:"ingredients" gorm:"type:text[]"`
	Steps              StringArray `json:"steps" gorm:"type:text[]"`
	History            string      `json:"history"`
	Authenticity       string      `json:"authenticity" gorm:"default:'community';check:authenticity IN ('verified','community','pending_review','rejected')"`
	Published          bool        `json:"published" gorm:"default:true"`
}

// Auto-find job lifecycle states.
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// AutoFindJob tracks one asynchronous "discover a recipe we don't have yet"
// request. Transitions are driven by the synthesis worker.
type AutoFindJob struct {
	BaseModel
	JobID          string     `json:"job_id" gorm:"uniqueIndex;not null"`
	QueryCanonical string     `json:"query_canonical" gorm:"not null;index"`
	OriginalText   string     `json:"original_text"`
	IdentityKey    string     `json:"identity_key"`
	Status         string     `json:"status" gorm:"default:'queued';check:status IN ('queued','running','succeeded','failed')"`
	Attempts       int        `json:"attempts" gorm:"default:0"`
	LastError      string     `json:"last_error"`
	CompletedAt    *time.Time `json:"completed_at"`
}

// JobLogEntry is an append-only audit row for an auto-find job. Entries are
// never updated or deleted.
type JobLogEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	JobID     string    `json:"job_id" gorm:"index;not null"`
	Event     string    `json:"event" gorm:"not null"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchQuery represents search analytics
type SearchQuery struct {
	BaseModel
	QueryText         string    `json:"query_text" gorm:"not null"`
	QueryCanonical    string    `json:"query_canonical" gorm:"index"`
	IdentityKey       string    `json:"identity_key"`
	ResultsCount      int       `json:"results_count" gorm:"default:0"`
	MatchTier         string    `json:"match_tier"`
	AutoFindTriggered bool      `json:"auto_find_triggered" gorm:"default:false"`
	SearchTimestamp   time.Time `json:"search_timestamp" gorm:"default:NOW()"`
	ResponseTimeMs    int       `json:"response_time_ms"`
	UserAgent         string    `json:"user_agent"`
	IPAddress         string    `json:"ip_address"`
}

// PopularQuery represents frequently searched terms
type PopularQuery struct {
	BaseModel
	QueryText    string    `json:"query_text" gorm:"unique;not null"`
	SearchCount  int       `json:"search_count" gorm:"default:1"`
	LastSearched time.Time `json:"last_searched" gorm:"default:NOW()"`
}

// SystemHealth represents service health monitoring
type SystemHealth struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	ServiceName    string    `json:"service_name" gorm:"not null"`
	Status         string    `json:"status" gorm:"not null;check:status IN ('healthy','degraded','unhealthy')"`
	ResponseTimeMs int       `json:"response_time_ms"`
	ErrorMessage   string    `json:"error_message"`
	CheckedAt      time.Time `json:"checked_at" gorm:"default:NOW()"`
}

// ErrJobNotFound is returned by job lookups when no record matches.
var ErrJobNotFound = errors.New("auto-find job not found")

// Database interfaces for repository pattern
type AutoFindJobRepository interface {
	Create(job *AutoFindJob) error
	// GetByJobID returns ErrJobNotFound when no job has the given ID.
	GetByJobID(jobID string) (*AutoFindJob, error)
	// FindActiveByQuery returns the newest queued or running job for the
	// canonical query, or (nil, nil) when none exists.
	FindActiveByQuery(queryCanonical string) (*AutoFindJob, error)
	GetPending(limit int) ([]AutoFindJob, error)
	// RequeueStale returns running jobs untouched since cutoff to the
	// queue, so a crashed or interrupted worker cannot strand them.
	RequeueStale(cutoff time.Time) (int64, error)
	MarkRunning(jobID string, attempt int) error
	MarkOutcome(jobID, status, lastError string) error
}

type JobLogRepository interface {
	Append(entry *JobLogEntry) error
	GetByJobID(jobID string) ([]JobLogEntry, error)
}

type SearchQueryRepository interface {
	Create(q *SearchQuery) error
	GetRecent(limit int) ([]SearchQuery, error)
}

type PopularQueryRepository interface {
	IncrementCount(queryText string) error
	GetTop(limit int) ([]PopularQuery, error)
}

type SystemHealthRepository interface {
	UpdateServiceHealth(serviceName, status string, responseTime int, errorMsg string) error
	GetAllServicesHealth() ([]SystemHealth, error)
}

// TableName methods for custom table names
func (Recipe) TableName() string       { return "recipes" }
func (AutoFindJob) TableName() string  { return "auto_find_jobs" }
func (JobLogEntry) TableName() string  { return "job_log_entries" }
func (SearchQuery) TableName() string  { return "search_queries" }
func (PopularQuery) TableName() string { return "popular_queries" }
func (SystemHealth) TableName() string { return "system_health" }

// Model validation methods
func (r *Recipe) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("recipe title is required")
	}
	validAuthenticity := map[string]bool{
		AuthenticityVerified:      true,
		AuthenticityCommunity:     true,
		AuthenticityPendingReview: true,
		AuthenticityRejected:      true,
	}
	if !validAuthenticity[r.Authenticity] {
		return fmt.Errorf("invalid authenticity: %s", r.Authenticity)
	}
	return nil
}

func (j *AutoFindJob) Validate() error {
	if j.JobID == "" {
		return fmt.Errorf("job ID is required")
	}
	if j.QueryCanonical == "" {
		return fmt.Errorf("query is required")
	}
	validStatuses := map[string]bool{
		JobStatusQueued:    true,
		JobStatusRunning:   true,
		JobStatusSucceeded: true,
		JobStatusFailed:    true,
	}
	if !validStatuses[j.Status] {
		return fmt.Errorf("invalid job status: %s", j.Status)
	}
	return nil
}

// Normalize derives the lookup columns from the display title.
func (r *Recipe) Normalize() {
	if n, err := query.Normalize(r.Title); err == nil {
		r.TitleCanonical = n.Canonical
	}
	r.TitleSkeleton = query.Skeleton(r.Title)
}

// GORM hooks
func (r *Recipe) BeforeSave(tx *gorm.DB) error {
	r.Normalize()
	if r.Authenticity == "" {
		r.Authenticity = AuthenticityCommunity
	}
	return r.Validate()
}

func (j *AutoFindJob) BeforeCreate(tx *gorm.DB) error {
	return j.Validate()
}
