package query

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dishcovery/backend/pkg/utils"
)

// ErrInvalidQuery is returned for queries that are empty after trimming.
var ErrInvalidQuery = errors.New("query is empty")

// Normalized is the canonical form of a raw search query. Deriving it is a
// pure function: the same input always yields the same Normalized value.
type Normalized struct {
	// Canonical is the lowercased, whitespace-collapsed form used for
	// exact-title comparison and as the cache/rate-limit key basis.
	Canonical string
	// SearchTerms is the space-joined token list fed to the fulltext and
	// fuzzy tiers.
	SearchTerms string
	// Original preserves the text exactly as the client sent it.
	Original string
}

// Normalize canonicalizes raw query text. Only case and whitespace are
// folded; diacritics and hyphens are meaningful in dish names and are kept.
func Normalize(text string) (Normalized, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Normalized{}, ErrInvalidQuery
	}

	tokens := strings.Fields(strings.ToLower(trimmed))
	canonical := strings.Join(tokens, " ")

	return Normalized{
		Canonical:   canonical,
		SearchTerms: canonical,
		Original:    text,
	}, nil
}

// CacheKey derives the result-cache key for a normalized query and page
// window. Hashing keeps arbitrary user text out of redis key space.
func CacheKey(canonical string, page, pageSize int) string {
	return utils.MD5Hash(fmt.Sprintf("%s|%d|%d", canonical, page, pageSize))
}
