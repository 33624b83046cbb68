package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dishcovery/backend/internal/models"
)

func seedRecipe(t *testing.T, repo *MemoryRecipeRepository, r models.Recipe) models.Recipe {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &r))
	return r
}

func TestCreate_DerivesLookupColumns(t *testing.T) {
	repo := NewMemoryRecipeRepository()
	created := seedRecipe(t, repo, models.Recipe{
		Title:         "  Butter   CHICKEN ",
		OriginCountry: "India",
		Published:     true,
	})

	assert.Equal(t, "butter chicken", created.TitleCanonical)
	assert.NotEmpty(t, created.TitleSkeleton)
	assert.Equal(t, models.AuthenticityCommunity, created.Authenticity, "blank authenticity defaults to community")
	assert.NotZero(t, created.ID)
}

func TestCreate_RejectsDuplicateTitleOrigin(t *testing.T) {
	repo := NewMemoryRecipeRepository()
	seedRecipe(t, repo, models.Recipe{Title: "Paella", OriginCountry: "Spain", Published: true})

	err := repo.Create(context.Background(), &models.Recipe{
		Title:         "  PAELLA ",
		OriginCountry: "Spain",
		Published:     true,
	})
	assert.ErrorIs(t, err, ErrDuplicateRecipe)

	// Same dish name from another origin is a distinct record.
	err = repo.Create(context.Background(), &models.Recipe{
		Title:         "Paella",
		OriginCountry: "Mexico",
		Published:     true,
	})
	assert.NoError(t, err)
}

func TestSearch_PredicatesCompose(t *testing.T) {
	repo := NewMemoryRecipeRepository()
	ctx := context.Background()

	seedRecipe(t, repo, models.Recipe{Title: "Butter Chicken", OriginCountry: "India", Authenticity: models.AuthenticityVerified, Published: true})
	seedRecipe(t, repo, models.Recipe{Title: "Butter Chicken", OriginCountry: "UK", Authenticity: models.AuthenticityRejected, Published: true})
	seedRecipe(t, repo, models.Recipe{Title: "Butter Chicken", OriginCountry: "US", Authenticity: models.AuthenticityCommunity, Published: false})

	results, total, err := repo.Search(ctx, Criteria{
		Predicates: []Predicate{
			PublishedOnly(),
			NotRejected(),
			TitleEquals("butter chicken"),
		},
		Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, results, 1)
	assert.Equal(t, "India", results[0].OriginCountry)
}

func TestSearch_AnyOfIsUnion(t *testing.T) {
	repo := NewMemoryRecipeRepository()
	ctx := context.Background()

	a := seedRecipe(t, repo, models.Recipe{Title: "Massaman Curry", OriginCountry: "Thailand", Published: true})
	seedRecipe(t, repo, models.Recipe{Title: "Pad Thai", OriginCountry: "Thailand", Published: true})

	results, total, err := repo.Search(ctx, Criteria{
		Predicates: []Predicate{
			AnyOf(
				TitleSkeletonEquals(a.TitleSkeleton),
				TitleContains("pad"),
			),
		},
		Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, results, 2)
}

func TestSearch_OrderAuthenticityThenNewest(t *testing.T) {
	repo := NewMemoryRecipeRepository()
	ctx := context.Background()

	old := time.Now().Add(-time.Hour)
	seedRecipe(t, repo, models.Recipe{Title: "Ramen A", OriginCountry: "Japan", Authenticity: models.AuthenticityCommunity, Published: true, BaseModel: models.BaseModel{CreatedAt: time.Now()}})
	seedRecipe(t, repo, models.Recipe{Title: "Ramen B", OriginCountry: "Japan", Authenticity: models.AuthenticityVerified, Published: true, BaseModel: models.BaseModel{CreatedAt: old}})

	results, _, err := repo.Search(ctx, Criteria{
		Predicates: []Predicate{TitleContains("ramen")},
		Order:      OrderAuthenticityThenNewest,
		Limit:      10,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Ramen B", results[0].Title, "verified outranks community regardless of age")
}

func TestSearch_PreferSkeletonOutranksRecency(t *testing.T) {
	repo := NewMemoryRecipeRepository()
	ctx := context.Background()

	phonetic := seedRecipe(t, repo, models.Recipe{
		Title:         "Butter Chicken",
		OriginCountry: "India",
		Published:     true,
		BaseModel:     models.BaseModel{CreatedAt: time.Now().Add(-48 * time.Hour)},
	})
	seedRecipe(t, repo, models.Recipe{
		Title:         "Peanut Butter Chicken Satay",
		OriginCountry: "Indonesia",
		Published:     true,
	})

	results, _, err := repo.Search(ctx, Criteria{
		Predicates: []Predicate{
			AnyOf(
				TitleSkeletonEquals(phonetic.TitleSkeleton),
				TitleContains("butter chicken"),
			),
		},
		Order:          OrderAuthenticityThenNewest,
		PreferSkeleton: phonetic.TitleSkeleton,
		Limit:          10,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Butter Chicken", results[0].Title, "skeleton match ranks above a newer substring match")
}

func TestSearchFulltext_RequiresAllTokens(t *testing.T) {
	repo := NewMemoryRecipeRepository()
	ctx := context.Background()

	seedRecipe(t, repo, models.Recipe{
		Title:         "Thai Green Curry",
		OriginCountry: "Thailand",
		Ingredients:   models.StringArray{"coconut milk", "green curry paste"},
		Published:     true,
	})

	_, total, err := repo.SearchFulltext(ctx, "green curry", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = repo.SearchFulltext(ctx, "green curry goat", 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total, "a single unmatched token excludes the record")
}

func TestSearchFulltext_TitleHitsOutscoreBodyHits(t *testing.T) {
	repo := NewMemoryRecipeRepository()
	ctx := context.Background()

	seedRecipe(t, repo, models.Recipe{Title: "Lamb Curry", OriginCountry: "India", Published: true})
	seedRecipe(t, repo, models.Recipe{
		Title:         "Mystery Stew",
		OriginCountry: "India",
		History:       "Often compared with a lamb curry.",
		Published:     true,
	})

	scored, _, err := repo.SearchFulltext(ctx, "lamb curry", 0, 10)
	require.NoError(t, err)
	require.Len(t, scored, 2)
	assert.Equal(t, "Lamb Curry", scored[0].Title)
	assert.Greater(t, scored[0].Score, scored[1].Score)
}

func TestSearchFulltext_ExcludesHiddenRecords(t *testing.T) {
	repo := NewMemoryRecipeRepository()
	ctx := context.Background()

	seedRecipe(t, repo, models.Recipe{Title: "Secret Curry", OriginCountry: "India", Published: false})
	seedRecipe(t, repo, models.Recipe{Title: "Bad Curry", OriginCountry: "India", Authenticity: models.AuthenticityRejected, Published: true})

	_, total, err := repo.SearchFulltext(ctx, "curry", 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestSearch_WindowBeyondEnd(t *testing.T) {
	repo := NewMemoryRecipeRepository()
	ctx := context.Background()
	seedRecipe(t, repo, models.Recipe{Title: "Pho", OriginCountry: "Vietnam", Published: true})

	results, total, err := repo.Search(ctx, Criteria{
		Predicates: []Predicate{TitleContains("pho")},
		Offset:     10,
		Limit:      10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total, "total counts all matches before windowing")
	assert.Empty(t, results)
}

func TestFindByTitleOrigin(t *testing.T) {
	repo := NewMemoryRecipeRepository()
	ctx := context.Background()
	seedRecipe(t, repo, models.Recipe{Title: "Khao Soi", OriginCountry: "Thailand", Published: true})

	found, err := repo.FindByTitleOrigin(ctx, "khao soi", "Thailand")
	require.NoError(t, err)
	assert.Equal(t, "Khao Soi", found.Title)

	_, err = repo.FindByTitleOrigin(ctx, "khao soi", "Laos")
	assert.ErrorIs(t, err, ErrRecipeNotFound)
}
