package repository

import (
	"strings"

	"github.com/dishcovery/backend/internal/models"
)

// Predicate is one typed search condition. Each predicate knows how to
// render itself as SQL and how to evaluate itself against an in-memory
// record, so tier logic stays backend-agnostic.
type Predicate interface {
	SQL() (string, []interface{})
	Matches(r *models.Recipe) bool
}

// Order selects the deterministic candidate ordering for a search.
type Order int

const (
	// OrderNewestFirst breaks ties by most recently created record.
	OrderNewestFirst Order = iota
	// OrderAuthenticityThenNewest ranks verified above community above the
	// rest, then newest first. Used by the fulltext and fuzzy tiers.
	OrderAuthenticityThenNewest
)

// Criteria is a composed search: all predicates must hold (AND), results
// are ordered and windowed.
type Criteria struct {
	Predicates []Predicate
	Order      Order
	// PreferSkeleton, when set, ranks records whose title skeleton equals
	// the given fingerprint above other matches within the same
	// authenticity class. Ordering happens in the store so it stays
	// consistent across pages.
	PreferSkeleton string
	Offset         int
	Limit          int
}

type titleEquals struct{ canonical string }

func TitleEquals(canonical string) Predicate { return titleEquals{canonical} }

func (p titleEquals) SQL() (string, []interface{}) {
	return "title_canonical = ?", []interface{}{p.canonical}
}

func (p titleEquals) Matches(r *models.Recipe) bool {
	return r.TitleCanonical == p.canonical
}

type titleContains struct{ fragment string }

func TitleContains(fragment string) Predicate { return titleContains{fragment} }

func (p titleContains) SQL() (string, []interface{}) {
	return "title_canonical LIKE ?", []interface{}{"%" + p.fragment + "%"}
}

func (p titleContains) Matches(r *models.Recipe) bool {
	return strings.Contains(r.TitleCanonical, p.fragment)
}

type titleSkeletonEquals struct{ skeleton string }

func TitleSkeletonEquals(skeleton string) Predicate { return titleSkeletonEquals{skeleton} }

func (p titleSkeletonEquals) SQL() (string, []interface{}) {
	return "title_skeleton = ?", []interface{}{p.skeleton}
}

func (p titleSkeletonEquals) Matches(r *models.Recipe) bool {
	return r.TitleSkeleton == p.skeleton
}

type publishedOnly struct{}

func PublishedOnly() Predicate { return publishedOnly{} }

func (publishedOnly) SQL() (string, []interface{}) {
	return "published = TRUE", nil
}

func (publishedOnly) Matches(r *models.Recipe) bool { return r.Published }

type notRejected struct{}

func NotRejected() Predicate { return notRejected{} }

func (notRejected) SQL() (string, []interface{}) {
	return "authenticity <> ?", []interface{}{models.AuthenticityRejected}
}

func (notRejected) Matches(r *models.Recipe) bool {
	return r.Authenticity != models.AuthenticityRejected
}

type anyOf struct{ preds []Predicate }

// AnyOf matches when at least one of the wrapped predicates matches (OR).
func AnyOf(preds ...Predicate) Predicate { return anyOf{preds} }

func (p anyOf) SQL() (string, []interface{}) {
	if len(p.preds) == 0 {
		return "1=0", nil
	}
	clauses := make([]string, 0, len(p.preds))
	var args []interface{}
	for _, inner := range p.preds {
		sql, innerArgs := inner.SQL()
		clauses = append(clauses, sql)
		args = append(args, innerArgs...)
	}
	return "(" + strings.Join(clauses, " OR ") + ")", args
}

func (p anyOf) Matches(r *models.Recipe) bool {
	for _, inner := range p.preds {
		if inner.Matches(r) {
			return true
		}
	}
	return false
}
