package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_CaseAndWhitespace(t *testing.T) {
	variants := []string{
		"butter chicken",
		"Butter Chicken",
		"  BUTTER   CHICKEN  ",
		"butter\tchicken",
	}

	first, err := Normalize(variants[0])
	require.NoError(t, err)

	for _, v := range variants[1:] {
		n, err := Normalize(v)
		require.NoError(t, err)
		assert.Equal(t, first.Canonical, n.Canonical, "variant %q", v)
		assert.Equal(t, v, n.Original)
	}
}

func TestNormalize_Deterministic(t *testing.T) {
	a, err := Normalize("Coq au Vin")
	require.NoError(t, err)
	b, err := Normalize("Coq au Vin")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalize_KeepsMeaningfulCharacters(t *testing.T) {
	n, err := Normalize("  Bœuf Bourguignon ")
	require.NoError(t, err)
	assert.Equal(t, "bœuf bourguignon", n.Canonical)

	n, err = Normalize("Pot-au-Feu")
	require.NoError(t, err)
	assert.Equal(t, "pot-au-feu", n.Canonical)
}

func TestNormalize_RejectsEmpty(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		_, err := Normalize(input)
		assert.ErrorIs(t, err, ErrInvalidQuery, "input %q", input)
	}
}

func TestCacheKey_DistinguishesPages(t *testing.T) {
	a := CacheKey("butter chicken", 1, 10)
	b := CacheKey("butter chicken", 2, 10)
	c := CacheKey("butter chicken", 1, 20)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, a, CacheKey("butter chicken", 1, 10))
}

func TestSkeleton_PhoneticEquivalence(t *testing.T) {
	assert.Equal(t, Skeleton("Butter Chicken"), Skeleton("buter chiken"))
	assert.Equal(t, Skeleton("biryani"), Skeleton("biriani"))
	assert.NotEqual(t, Skeleton("butter chicken"), Skeleton("pad thai"))
}

func TestSkeleton_WordBoundaries(t *testing.T) {
	// Hyphens separate words the same way spaces do.
	assert.Equal(t, Skeleton("pot au feu"), Skeleton("pot-au-feu"))
}
