package repository

import (
	"context"
	"errors"

	"github.com/dishcovery/backend/internal/models"
)

// Sentinel errors shared by every RecipeRepository backend.
var (
	ErrRecipeNotFound  = errors.New("recipe not found")
	ErrDuplicateRecipe = errors.New("recipe with this title and origin already exists")
)

// ScoredRecipe is a recipe row with the fulltext relevance attached.
type ScoredRecipe struct {
	models.Recipe `gorm:"embedded"`
	Score         float64 `gorm:"column:score" json:"score"`
}

// RecipeRepository is the store adapter behind the tiered matcher and the
// auto-find persistence step. Two implementations exist: GORM/postgres and
// in-memory, selected by configuration at startup.
type RecipeRepository interface {
	Create(ctx context.Context, recipe *models.Recipe) error
	GetByID(ctx context.Context, id uint) (*models.Recipe, error)

	// Search runs a composed predicate query. The returned total counts all
	// matching rows before the offset/limit window is applied.
	Search(ctx context.Context, crit Criteria) ([]models.Recipe, int64, error)

	// SearchFulltext matches terms against title, ingredients and history
	// under a natural-language relevance function, scoped to published,
	// non-rejected records.
	SearchFulltext(ctx context.Context, terms string, offset, limit int) ([]ScoredRecipe, int64, error)

	// FindByTitleOrigin is the de-duplication lookup used before persisting
	// a synthesized recipe. Returns ErrRecipeNotFound when no record exists.
	FindByTitleOrigin(ctx context.Context, titleCanonical, originCountry string) (*models.Recipe, error)
}
