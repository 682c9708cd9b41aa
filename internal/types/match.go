package types

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

// MaxQueryLength is the longest job description the search endpoint accepts.
const MaxQueryLength = 5000

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Query string `json:"query" validate:"required,min=1,max=5000"`
	Limit int    `json:"limit" validate:"min=1,max=20"`
}

// Validate validates the SearchRequest using the validator.
func (r *SearchRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// SearchResponse is the body returned by POST /api/search.
// Message is advisory (for example, the backend found nothing or used a fallback ranking).
type SearchResponse struct {
	Results []MatchCandidate `json:"results"`
	Message string           `json:"message,omitempty"`
}

// MatchCandidate is a stored experience record scored against a job description.
type MatchCandidate struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Type           string   `json:"type"`
	DateRange      *string  `json:"date_range,omitempty"`
	RelevanceScore float64  `json:"similarity"`
	Skills         []string `json:"skills"`
	Content        string   `json:"content,omitempty"`
}

// UnmarshalJSON accepts the score under either "similarity" or "relevance_score".
func (m *MatchCandidate) UnmarshalJSON(data []byte) error {
	type candidate MatchCandidate
	aux := struct {
		*candidate
		AltScore *float64 `json:"relevance_score"`
		Score    *float64 `json:"similarity"`
	}{candidate: (*candidate)(m)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	switch {
	case aux.Score != nil:
		m.RelevanceScore = *aux.Score
	case aux.AltScore != nil:
		m.RelevanceScore = *aux.AltScore
	}
	if m.Skills == nil {
		m.Skills = []string{}
	}
	return nil
}

// DateLabel returns the date range or "N/A" when the record has none.
func (m MatchCandidate) DateLabel() string {
	if m.DateRange == nil || *m.DateRange == "" {
		return "N/A"
	}
	return *m.DateRange
}

// RelevancePercent returns the score as a whole percentage clamped to [0, 100].
func (m MatchCandidate) RelevancePercent() int {
	score := min(max(m.RelevanceScore, 0), 1)
	return int(score*100 + 0.5)
}
