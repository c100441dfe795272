// Package models defines core data structures for documents, tags, conversations, and search.
package models

import "time"

// Document represents an uploaded document's metadata. The extracted text lives in
// the lexical index; the raw file lives in the blob store.
type Document struct {
	ID        string    `json:"id" db:"id"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	Filename  string    `json:"filename" db:"filename"`
	FileType  string    `json:"file_type" db:"file_type"`
	SizeBytes int64     `json:"size_bytes" db:"size_bytes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Tag is a normalized label shared by many documents. Names are unique after
// normalization; the storage layer enforces this with a UNIQUE constraint.
type Tag struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Keyword is a transient scored term produced by keyword extraction and consumed
// by tag reconciliation.
type Keyword struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// UploadResult is returned to controllers after a successful document ingestion.
type UploadResult struct {
	Document         *Document `json:"document"`
	Tags             []*Tag    `json:"tags"`
	ExtractionMethod string    `json:"extraction_method"`
}
