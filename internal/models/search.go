package models

// FilenameHit is a single filename search result with its combined score.
type FilenameHit struct {
	Document *Document `json:"document"`
	Score    float64   `json:"score"`
}

// FilenameSearchResponse is the response shape for filename search.
// Zero hits is a valid response, never an error.
type FilenameSearchResponse struct {
	Documents []*FilenameHit `json:"documents"`
	Query     string         `json:"query"`
	Total     int            `json:"total"`
	// Suggestions contains "did you mean" spelling suggestions, populated only
	// when the search returned no hits and near-miss filename terms exist.
	Suggestions []string `json:"suggestions,omitempty"`
}
