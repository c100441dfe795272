// Package chat manages conversations over a fixed set of documents and runs
// the retrieval-augmented exchange loop.
package chat

import "github.com/searchive/searchive/internal/models"

// fitContext trims passages to the character budget by dropping whole passages
// from the lowest-ranked end. Excerpts are never cut mid-passage, and the
// concatenated length of the result never exceeds maxChars; when even the
// top-ranked passage is over budget the context is empty, and the prompt
// states that no relevant content was found.
func fitContext(passages []models.ContextPassage, maxChars int) []models.ContextPassage {
	if maxChars <= 0 {
		return passages
	}
	total := 0
	kept := 0
	for _, p := range passages {
		total += len([]rune(p.Excerpt))
		if total > maxChars {
			break
		}
		kept++
	}
	return passages[:kept]
}
