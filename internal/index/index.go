// Package index provides the lexical index adapter: document indexing, hybrid
// filename search, passage retrieval, and corpus term statistics.
package index

import (
	"errors"
	"time"
)

// ErrUnavailable indicates the backing index store could not serve the request.
// Callers may retry with backoff; the adapter never retries internally.
var ErrUnavailable = errors.New("index unavailable")

// Entry is one indexed document. Exactly one entry exists per document id;
// re-indexing the same id replaces the previous entry.
type Entry struct {
	DocumentID string
	OwnerID    string
	Content    string
	Filename   string
	FileType   string
	UploadedAt time.Time
}

// Hit is a filename search result. Score is the combined hybrid score:
// 2.0 for a wildcard (substring) match plus 1.0 for a fuzzy match.
type Hit struct {
	DocumentID string
	Filename   string
	FileType   string
	UploadedAt time.Time
	Score      float64
}

// TermStat holds per-term frequency counts for TF-IDF computation.
// TermFrequency is scoped to one document; DocumentFrequency spans the whole
// indexed corpus regardless of owner, so IDF stays statistically meaningful.
type TermStat struct {
	TermFrequency     int
	DocumentFrequency int
}

// TermStats is the result of a term statistics read for one document.
type TermStats struct {
	Terms      map[string]TermStat
	CorpusSize int
}

// Relative weights of the two filename match signals. Additive: a document
// matching both signals outranks one matching either alone, and a
// substring match alone outranks a fuzzy match alone.
const (
	wildcardWeight = 2.0
	fuzzyWeight    = 1.0
)
