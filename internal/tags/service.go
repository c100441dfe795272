// Package tags normalizes keyword text into tag names and attaches them to
// documents, deduplicating across the whole corpus.
package tags

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/searchive/searchive/internal/extraction"
	"github.com/searchive/searchive/internal/models"
	"github.com/searchive/searchive/internal/storage"
)

// Service turns extracted keywords into persistent tags.
type Service struct {
	store storage.Storage
}

// NewService creates a tag service.
func NewService(store storage.Storage) *Service {
	return &Service{store: store}
}

var englishOnly = regexp.MustCompile(`^[a-zA-Z\s-]+$`)

// Normalize canonicalizes a keyword into a tag name: purely English names are
// title-cased, everything else is lowercased. Returns "" for names that
// normalize away entirely.
func Normalize(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}
	if englishOnly.MatchString(name) {
		return titleCase(name)
	}
	return strings.ToLower(name)
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Attach converts keywords into tags and links them to documentID. Existing
// tags are reused; the same name arriving twice in one call or concurrently
// from two uploads resolves to a single row. Returns the attached tags in
// keyword order.
func (s *Service) Attach(ctx context.Context, documentID string, keywords []models.Keyword) ([]*models.Tag, error) {
	names := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		name := Normalize(kw.Text)
		if name == "" || extraction.IsStopword(strings.ToLower(name)) {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	if len(names) == 0 {
		return []*models.Tag{}, nil
	}

	// Insert-then-refetch: the unique constraint absorbs races, the refetch
	// yields the winning row ids.
	if err := s.store.InsertTagsIgnoreDuplicates(ctx, names); err != nil {
		return nil, fmt.Errorf("create tags: %w", err)
	}
	found, err := s.store.FindTagsByNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	byName := make(map[string]*models.Tag, len(found))
	tagIDs := make([]int64, 0, len(found))
	for _, tag := range found {
		byName[tag.Name] = tag
		tagIDs = append(tagIDs, tag.ID)
	}
	if err := s.store.AttachTagsToDocument(ctx, documentID, tagIDs); err != nil {
		return nil, fmt.Errorf("attach tags: %w", err)
	}

	tags := make([]*models.Tag, 0, len(names))
	for _, name := range names {
		if tag, ok := byName[name]; ok {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}
