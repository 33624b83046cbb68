package synthesis

// SynthesizeRequest asks the synthesis service to produce recipe drafts for
// a free-text dish query.
type SynthesizeRequest struct {
	Query     string `json:"query"`
	MaxDrafts int    `json:"max_drafts,omitempty"`
}

// RecipeDraft is one structured draft returned by the synthesis service.
// Drafts always enter the store as pending_review.
type RecipeDraft struct {
	Title              string   `json:"title"`
	OriginCountry      string   `json:"origin_country"`
	Ingredients        []string `json:"ingredients"`
	Steps              []string `json:"steps"`
	CulturalNotes      string   `json:"cultural_notes"`
	CookingTimeMinutes int      `json:"cooking_time_minutes"`
	Difficulty         string   `json:"difficulty"`
}

// SynthesizeResponse wraps the drafts for a query. Zero drafts is a valid
// outcome, not an error.
type SynthesizeResponse struct {
	Drafts []RecipeDraft `json:"drafts"`
}
