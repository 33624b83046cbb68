package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dishcovery/backend/internal/models"
)

// MemoryRecipeRepository is the in-memory RecipeRepository. It backs local
// development without a database and the matcher test suite. Behavior
// mirrors the GORM implementation, including the title+origin uniqueness
// guarantee.
type MemoryRecipeRepository struct {
	mu      sync.RWMutex
	recipes []models.Recipe
	nextID  uint
}

func NewMemoryRecipeRepository() *MemoryRecipeRepository {
	return &MemoryRecipeRepository{nextID: 1}
}

func (r *MemoryRecipeRepository) Create(ctx context.Context, recipe *models.Recipe) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	recipe.Normalize()
	if recipe.Authenticity == "" {
		recipe.Authenticity = models.AuthenticityCommunity
	}
	if err := recipe.Validate(); err != nil {
		return err
	}

	for i := range r.recipes {
		if r.recipes[i].TitleCanonical == recipe.TitleCanonical &&
			r.recipes[i].OriginCountry == recipe.OriginCountry {
			return ErrDuplicateRecipe
		}
	}

	recipe.ID = r.nextID
	r.nextID++
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = time.Now()
	}
	recipe.UpdatedAt = recipe.CreatedAt
	r.recipes = append(r.recipes, *recipe)
	return nil
}

func (r *MemoryRecipeRepository) GetByID(ctx context.Context, id uint) (*models.Recipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.recipes {
		if r.recipes[i].ID == id {
			recipe := r.recipes[i]
			return &recipe, nil
		}
	}
	return nil, ErrRecipeNotFound
}

func (r *MemoryRecipeRepository) Search(ctx context.Context, crit Criteria) ([]models.Recipe, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []models.Recipe
	for i := range r.recipes {
		if matchesAll(&r.recipes[i], crit.Predicates) {
			matched = append(matched, r.recipes[i])
		}
	}

	sortRecipes(matched, crit.Order, crit.PreferSkeleton)
	total := int64(len(matched))
	return window(matched, crit.Offset, crit.Limit), total, nil
}

func (r *MemoryRecipeRepository) SearchFulltext(ctx context.Context, terms string, offset, limit int) ([]ScoredRecipe, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	queryTokens := strings.Fields(strings.ToLower(terms))
	if len(queryTokens) == 0 {
		return nil, 0, nil
	}

	var scored []ScoredRecipe
	for i := range r.recipes {
		rec := &r.recipes[i]
		if !rec.Published || rec.Authenticity == models.AuthenticityRejected {
			continue
		}
		score := overlapScore(rec, queryTokens)
		if score > 0 {
			scored = append(scored, ScoredRecipe{Recipe: *rec, Score: score})
		}
	}

	sort.SliceStable(scored, func(a, b int) bool {
		wa := models.AuthenticityWeight(scored[a].Authenticity)
		wb := models.AuthenticityWeight(scored[b].Authenticity)
		if wa != wb {
			return wa > wb
		}
		if scored[a].Score != scored[b].Score {
			return scored[a].Score > scored[b].Score
		}
		if !scored[a].CreatedAt.Equal(scored[b].CreatedAt) {
			return scored[a].CreatedAt.After(scored[b].CreatedAt)
		}
		return scored[a].ID > scored[b].ID
	})

	total := int64(len(scored))
	return window(scored, offset, limit), total, nil
}

func (r *MemoryRecipeRepository) FindByTitleOrigin(ctx context.Context, titleCanonical, originCountry string) (*models.Recipe, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := range r.recipes {
		if r.recipes[i].TitleCanonical == titleCanonical && r.recipes[i].OriginCountry == originCountry {
			recipe := r.recipes[i]
			return &recipe, nil
		}
	}
	return nil, ErrRecipeNotFound
}

func matchesAll(rec *models.Recipe, preds []Predicate) bool {
	for _, p := range preds {
		if !p.Matches(rec) {
			return false
		}
	}
	return true
}

func sortRecipes(recipes []models.Recipe, order Order, preferSkeleton string) {
	sort.SliceStable(recipes, func(a, b int) bool {
		if order == OrderAuthenticityThenNewest {
			wa := models.AuthenticityWeight(recipes[a].Authenticity)
			wb := models.AuthenticityWeight(recipes[b].Authenticity)
			if wa != wb {
				return wa > wb
			}
		}
		if preferSkeleton != "" {
			sa := recipes[a].TitleSkeleton == preferSkeleton
			sb := recipes[b].TitleSkeleton == preferSkeleton
			if sa != sb {
				return sa
			}
		}
		if !recipes[a].CreatedAt.Equal(recipes[b].CreatedAt) {
			return recipes[a].CreatedAt.After(recipes[b].CreatedAt)
		}
		return recipes[a].ID > recipes[b].ID
	})
}

// overlapScore approximates the SQL ranking: every query token must appear
// as a word in the indexed fields (plainto_tsquery ANDs its terms), and
// tokens found in the title weigh the score up.
func overlapScore(rec *models.Recipe, queryTokens []string) float64 {
	titleWords := wordSet(rec.Title)
	indexedWords := wordSet(rec.Title + " " + strings.Join(rec.Ingredients, " ") + " " + rec.History)

	titleHits := 0
	for _, token := range queryTokens {
		if !indexedWords[token] {
			return 0
		}
		if titleWords[token] {
			titleHits++
		}
	}
	return 0.5 + 0.5*float64(titleHits)/float64(len(queryTokens))
}

func wordSet(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		words[strings.Trim(w, ".,;:!?()\"'")] = true
	}
	return words
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
