package models

// Tier identifies which matching strategy produced a candidate. The set is
// closed: relevance formulas and ordering rules switch exhaustively on it.
type Tier string

const (
	TierExact    Tier = "exact"
	TierFulltext Tier = "fulltext"
	TierFuzzy    Tier = "fuzzy"
	// TierNone marks a response that no tier produced (zero results).
	TierNone Tier = ""
)

// MatchCandidate is a single ranked search hit. Candidates are read-only
// projections of recipe rows and are never persisted.
type MatchCandidate struct {
	RecipeID           uint    `json:"recipe_id"`
	Title              string  `json:"title"`
	OriginCountry      string  `json:"origin_country,omitempty"`
	ImageURL           string  `json:"image_url,omitempty"`
	CookingTimeMinutes int     `json:"cooking_time_minutes,omitempty"`
	Difficulty         string  `json:"difficulty,omitempty"`
	Authenticity       string  `json:"authenticity"`
	Relevance          float64 `json:"relevance"`
	MatchTier          Tier    `json:"match_tier"`
}

// SearchResponse is the search endpoint payload. All candidates in Results
// come from the single tier named in Tier.
type SearchResponse struct {
	Results           []MatchCandidate `json:"results"`
	Total             int64            `json:"total"`
	Page              int              `json:"page"`
	Limit             int              `json:"limit"`
	Tier              Tier             `json:"tier,omitempty"`
	AutoFindTriggered bool             `json:"auto_find_triggered"`
	JobID             string           `json:"job_id,omitempty"`
	Message           string           `json:"message,omitempty"`
}

// JobStatusResponse reports auto-find job progress.
type JobStatusResponse struct {
	JobID       string        `json:"job_id"`
	Query       string        `json:"query"`
	Status      string        `json:"status"`
	Attempts    int           `json:"attempts"`
	LastError   string        `json:"last_error,omitempty"`
	CreatedAt   string        `json:"created_at"`
	CompletedAt string        `json:"completed_at,omitempty"`
	Log         []JobLogEntry `json:"log,omitempty"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
}
