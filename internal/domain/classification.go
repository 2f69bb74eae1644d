package domain

// ClassificationMatch is a single strategy result: a candidate category with
// its confidence score and a human-readable explanation. Matches are
// transient; the orchestrator maps them to Assignments before persisting.
type ClassificationMatch struct {
	Category    *Category
	Score       float64
	Explanation string
}

// CategoryDecision is one per-category judgment returned by the LLM
// provider for a batch classification request. CategoryIndex refers back to
// the 0-based position of the category in the submitted candidate list.
type CategoryDecision struct {
	CategoryIndex int     `json:"category_index"`
	Belongs       bool    `json:"belongs_in_category"`
	Confidence    float64 `json:"confidence"`
	Explanation   string  `json:"explanation"`
}
