package matcher

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dishcovery/backend/internal/models"
	"github.com/dishcovery/backend/internal/query"
	"github.com/dishcovery/backend/internal/repository"
)

// Relevance values per tier. Exact matches are always 100; the fuzzy tier
// is coarse: phonetic equivalence beats a plain substring hit.
const (
	relevanceExact          = 100.0
	relevanceFuzzyPhonetic  = 80.0
	relevanceFuzzySubstring = 60.0
)

// DefaultTierTimeout bounds each store adapter call. A slow tier is a tier
// failure, not a request failure.
const DefaultTierTimeout = 3 * time.Second

// Matcher runs a normalized query through the exact, fulltext and fuzzy
// tiers in strict order, stopping at the first tier with results. A failing
// tier is treated as empty and the next tier is attempted.
type Matcher struct {
	repo        repository.RecipeRepository
	logger      *logrus.Logger
	tierTimeout time.Duration
}

func New(repo repository.RecipeRepository, logger *logrus.Logger) *Matcher {
	return &Matcher{
		repo:        repo,
		logger:      logger,
		tierTimeout: DefaultTierTimeout,
	}
}

// Match returns the candidates of the first non-empty tier together with
// that tier's total row count. All returned candidates carry the same
// MatchTier; scores are never compared across tiers.
func (m *Matcher) Match(ctx context.Context, q query.Normalized, page, pageSize int) ([]models.MatchCandidate, int64, models.Tier) {
	offset := (page - 1) * pageSize

	if candidates, total, ok := m.matchExact(ctx, q, pageSize); ok {
		return candidates, total, models.TierExact
	}
	if candidates, total, ok := m.matchFulltext(ctx, q, offset, pageSize); ok {
		return candidates, total, models.TierFulltext
	}
	if candidates, total, ok := m.matchFuzzy(ctx, q, offset, pageSize); ok {
		return candidates, total, models.TierFuzzy
	}
	return nil, 0, models.TierNone
}

// matchExact compares canonical titles. Exact matches are assumed small in
// cardinality, so the window always starts at offset 0.
func (m *Matcher) matchExact(ctx context.Context, q query.Normalized, pageSize int) ([]models.MatchCandidate, int64, bool) {
	tierCtx, cancel := context.WithTimeout(ctx, m.tierTimeout)
	defer cancel()

	recipes, total, err := m.repo.Search(tierCtx, repository.Criteria{
		Predicates: []repository.Predicate{
			repository.PublishedOnly(),
			repository.NotRejected(),
			repository.TitleEquals(q.Canonical),
		},
		Order: repository.OrderNewestFirst,
		Limit: pageSize,
	})
	if err != nil {
		m.tierFailure(models.TierExact, q, err)
		return nil, 0, false
	}
	if len(recipes) == 0 {
		return nil, 0, false
	}

	candidates := make([]models.MatchCandidate, 0, len(recipes))
	for i := range recipes {
		candidates = append(candidates, toCandidate(&recipes[i], relevanceExact, models.TierExact))
	}
	return candidates, total, true
}

func (m *Matcher) matchFulltext(ctx context.Context, q query.Normalized, offset, pageSize int) ([]models.MatchCandidate, int64, bool) {
	tierCtx, cancel := context.WithTimeout(ctx, m.tierTimeout)
	defer cancel()

	scored, total, err := m.repo.SearchFulltext(tierCtx, q.SearchTerms, offset, pageSize)
	if err != nil {
		m.tierFailure(models.TierFulltext, q, err)
		return nil, 0, false
	}
	if len(scored) == 0 {
		return nil, 0, false
	}

	candidates := make([]models.MatchCandidate, 0, len(scored))
	for i := range scored {
		candidates = append(candidates, toCandidate(&scored[i].Recipe, scored[i].Score*100, models.TierFulltext))
	}
	return candidates, total, true
}

func (m *Matcher) matchFuzzy(ctx context.Context, q query.Normalized, offset, pageSize int) ([]models.MatchCandidate, int64, bool) {
	tierCtx, cancel := context.WithTimeout(ctx, m.tierTimeout)
	defer cancel()

	skeleton := query.Skeleton(q.SearchTerms)
	recipes, total, err := m.repo.Search(tierCtx, repository.Criteria{
		Predicates: []repository.Predicate{
			repository.PublishedOnly(),
			repository.NotRejected(),
			repository.AnyOf(
				repository.TitleSkeletonEquals(skeleton),
				repository.TitleContains(q.Canonical),
			),
		},
		Order: repository.OrderAuthenticityThenNewest,
		// Phonetic matches outrank substring matches within an
		// authenticity class, mirroring their 80 vs 60 relevance.
		PreferSkeleton: skeleton,
		Offset:         offset,
		Limit:          pageSize,
	})
	if err != nil {
		m.tierFailure(models.TierFuzzy, q, err)
		return nil, 0, false
	}
	if len(recipes) == 0 {
		return nil, 0, false
	}

	candidates := make([]models.MatchCandidate, 0, len(recipes))
	for i := range recipes {
		relevance := relevanceFuzzySubstring
		if recipes[i].TitleSkeleton == skeleton {
			relevance = relevanceFuzzyPhonetic
		}
		candidates = append(candidates, toCandidate(&recipes[i], relevance, models.TierFuzzy))
	}
	return candidates, total, true
}

func (m *Matcher) tierFailure(tier models.Tier, q query.Normalized, err error) {
	m.logger.WithError(err).WithFields(logrus.Fields{
		"tier":  tier,
		"query": q.Canonical,
	}).Warn("Match tier failed, falling through")
}

func toCandidate(r *models.Recipe, relevance float64, tier models.Tier) models.MatchCandidate {
	return models.MatchCandidate{
		RecipeID:           r.ID,
		Title:              r.Title,
		OriginCountry:      r.OriginCountry,
		ImageURL:           r.ImageURL,
		CookingTimeMinutes: r.CookingTimeMinutes,
		Difficulty:         r.Difficulty,
		Authenticity:       r.Authenticity,
		Relevance:          relevance,
		MatchTier:          tier,
	}
}
