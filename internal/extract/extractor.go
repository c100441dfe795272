// Package extract provides plain-text extraction from uploaded document formats.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Extractor extracts plain text from document file contents.
// It is the boundary between raw uploads and the indexable text the rest of
// the system works with.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// SupportedExtensions lists the formats the extractor understands natively.
// Anything else is treated as plain text after UTF-8 validation.
var SupportedExtensions = []string{".pdf", ".docx", ".xlsx", ".pptx", ".txt", ".md"}

// ExtractText extracts text from content, dispatching on the extension of filename.
// ".pdf", ".docx", ".xlsx", and ".pptx" are parsed as their binary formats;
// everything else is treated as plain text.
func (e *Extractor) ExtractText(content []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractXLSX(content)
	case ".pptx":
		return extractPPTX(content)
	default:
		return extractPlain(content)
	}
}

// FileType returns the normalized file type string stored with a document,
// e.g. "pdf" for "report.PDF". Files without an extension are typed "txt".
func FileType(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return "txt"
	}
	return ext
}

func zipError(format string, err error) error {
	return fmt.Errorf("extract %s: not a zip archive: %w", format, err)
}
