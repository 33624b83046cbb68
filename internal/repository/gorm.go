package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dishcovery/backend/internal/models"
)

// GormRecipeRepository is the persistent RecipeRepository backed by
// PostgreSQL through GORM.
type GormRecipeRepository struct {
	db *gorm.DB
}

func NewGormRecipeRepository(db *gorm.DB) *GormRecipeRepository {
	return &GormRecipeRepository{db: db}
}

func (r *GormRecipeRepository) Create(ctx context.Context, recipe *models.Recipe) error {
	err := r.db.WithContext(ctx).Create(recipe).Error
	if err != nil && isUniqueViolation(err) {
		return ErrDuplicateRecipe
	}
	return err
}

func (r *GormRecipeRepository) GetByID(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	err := r.db.WithContext(ctx).First(&recipe, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecipeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (r *GormRecipeRepository) Search(ctx context.Context, crit Criteria) ([]models.Recipe, int64, error) {
	tx := r.db.WithContext(ctx).Model(&models.Recipe{})
	for _, pred := range crit.Predicates {
		sql, args := pred.SQL()
		tx = tx.Where(sql, args...)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count failed: %w", err)
	}

	tx = applyOrder(tx, crit).Offset(crit.Offset)
	if crit.Limit > 0 {
		tx = tx.Limit(crit.Limit)
	}

	var recipes []models.Recipe
	if err := tx.Find(&recipes).Error; err != nil {
		return nil, 0, err
	}
	return recipes, total, nil
}

func (r *GormRecipeRepository) SearchFulltext(ctx context.Context, terms string, offset, limit int) ([]ScoredRecipe, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*)
		FROM recipes
		WHERE published = TRUE
		  AND authenticity <> 'rejected'
		  AND search_vector @@ plainto_tsquery('english', ?)
	`, terms).Scan(&total).Error
	if err != nil {
		return nil, 0, fmt.Errorf("fulltext count failed: %w", err)
	}

	var results []ScoredRecipe
	err = r.db.WithContext(ctx).Raw(`
		SELECT *, ts_rank(search_vector, plainto_tsquery('english', ?)) AS score
		FROM recipes
		WHERE published = TRUE
		  AND authenticity <> 'rejected'
		  AND search_vector @@ plainto_tsquery('english', ?)
		ORDER BY
			CASE authenticity
				WHEN 'verified' THEN 3
				WHEN 'community' THEN 2
				WHEN 'pending_review' THEN 1
				ELSE 0
			END DESC,
			score DESC,
			created_at DESC,
			id DESC
		LIMIT ? OFFSET ?
	`, terms, terms, limit, offset).Scan(&results).Error
	if err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *GormRecipeRepository) FindByTitleOrigin(ctx context.Context, titleCanonical, originCountry string) (*models.Recipe, error) {
	var recipe models.Recipe
	err := r.db.WithContext(ctx).
		Where("title_canonical = ? AND origin_country = ?", titleCanonical, originCountry).
		First(&recipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecipeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

const authenticityRankSQL = `CASE authenticity
	WHEN 'verified' THEN 3
	WHEN 'community' THEN 2
	WHEN 'pending_review' THEN 1
	ELSE 0
END DESC`

// applyOrder renders the criteria ordering: authenticity class first (when
// requested), then the skeleton preference, then recency. The skeleton rank
// runs in SQL so pagination windows stay consistent.
func applyOrder(tx *gorm.DB, crit Criteria) *gorm.DB {
	var parts []string
	var vars []interface{}

	if crit.Order == OrderAuthenticityThenNewest {
		parts = append(parts, authenticityRankSQL)
	}
	if crit.PreferSkeleton != "" {
		parts = append(parts, "CASE WHEN title_skeleton = ? THEN 1 ELSE 0 END DESC")
		vars = append(vars, crit.PreferSkeleton)
	}
	parts = append(parts, "created_at DESC", "id DESC")

	return tx.Order(clause.Expr{SQL: strings.Join(parts, ", "), Vars: vars})
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// pq/pgx surface constraint violations as SQLSTATE 23505.
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "23505")
}
