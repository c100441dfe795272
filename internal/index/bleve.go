package index

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/searchive/searchive/internal/models"
)

// entryDoc is the shape stored in Bleve. filename keeps the exact name for
// display, filename_folded is the lowercased whole name for substring matching,
// and filename_words is the name split on separators for per-term fuzzy matching.
type entryDoc struct {
	DocumentID     string    `json:"document_id"`
	OwnerID        string    `json:"owner_id"`
	Content        string    `json:"content"`
	Filename       string    `json:"filename"`
	FilenameFolded string    `json:"filename_folded"`
	FilenameWords  string    `json:"filename_words"`
	FileType       string    `json:"file_type"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

// BleveIndex is the Bleve-backed lexical index.
type BleveIndex struct {
	index        bleve.Index
	excerptChars int
}

// Option configures a BleveIndex.
type Option func(*BleveIndex)

// WithExcerptChars sets the maximum excerpt length (in runes) for passage results.
func WithExcerptChars(n int) Option {
	return func(b *BleveIndex) {
		if n > 0 {
			b.excerptChars = n
		}
	}
}

// NewBleveIndex creates or opens a Bleve index at path.
// An existing index is opened and reused; if the mapping changes in code,
// remove the index directory to force a full re-index.
func NewBleveIndex(path string, opts ...Option) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so content terms
	// stay recognizable words; stemmed terms would corrupt TF-IDF keyword output.
	contentMapping := bleve.NewTextFieldMapping()
	contentMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", contentMapping)

	wordsMapping := bleve.NewTextFieldMapping()
	wordsMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("filename_words", wordsMapping)

	for _, field := range []string{"document_id", "owner_id", "filename", "filename_folded", "file_type"} {
		docMapping.AddFieldMappingsAt(field, bleve.NewKeywordFieldMapping())
	}
	docMapping.AddFieldMappingsAt("uploaded_at", bleve.NewDateTimeFieldMapping())

	im.AddDocumentMapping("entry", docMapping)
	im.DefaultType = "entry"
	im.DefaultMapping = docMapping

	b := &BleveIndex{excerptChars: 500}
	for _, opt := range opts {
		opt(b)
	}

	if _, err := os.Stat(path); err == nil {
		idx, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		b.index = idx
		return b, nil
	}

	idx, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	b.index = idx
	return b, nil
}

// Index upserts one entry keyed by its document id.
func (b *BleveIndex) Index(ctx context.Context, e *Entry) error {
	doc := entryDoc{
		DocumentID:     e.DocumentID,
		OwnerID:        e.OwnerID,
		Content:        e.Content,
		Filename:       e.Filename,
		FilenameFolded: strings.ToLower(e.Filename),
		FilenameWords:  filenameWords(e.Filename),
		FileType:       e.FileType,
		UploadedAt:     e.UploadedAt.UTC(),
	}
	if err := b.index.Index(e.DocumentID, doc); err != nil {
		return unavailable("index document", err)
	}
	return nil
}

// Delete removes a document from the index. Deleting an absent id is a no-op.
func (b *BleveIndex) Delete(ctx context.Context, documentID string) error {
	if err := b.index.Delete(documentID); err != nil {
		return unavailable("delete document", err)
	}
	return nil
}

// DocumentCount returns the number of indexed documents across all owners.
func (b *BleveIndex) DocumentCount() (int, error) {
	n, err := b.index.DocCount()
	if err != nil {
		return 0, unavailable("doc count", err)
	}
	return int(n), nil
}

// Close closes the underlying Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// filenameWords returns the filename with separators replaced by spaces so the
// standard analyzer produces per-word terms ("annual_report_2024.pdf" becomes
// "annual report 2024 pdf"; underscore and dot are not token boundaries otherwise).
func filenameWords(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '_', '-', '.':
			return ' '
		}
		return r
	}, name)
}

// SearchByFilename runs the hybrid filename search for one owner: a wildcard
// substring query over the folded whole name and per-term fuzzy queries over
// the filename words, merged additively. A blank query returns no hits.
func (b *BleveIndex) SearchByFilename(ctx context.Context, ownerID, query string, limit int) ([]*Hit, error) {
	q := strings.TrimSpace(query)
	if q == "" || limit <= 0 {
		return []*Hit{}, nil
	}

	// Same doc can match both signals, so request enough from each side
	// for the merged top "limit" to be correct.
	reqSize := limit * 2
	if reqSize < 50 {
		reqSize = 50
	}

	wildcardReq := b.filenameRequest(ownerID, b.buildWildcardQuery(q), reqSize)
	fuzzyReq := b.filenameRequest(ownerID, b.buildFuzzyQuery(q), reqSize)

	var (
		wg                    sync.WaitGroup
		wildcardRes, fuzzyRes *bleve.SearchResult
		wildcardErr, fuzzyErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		wildcardRes, wildcardErr = b.index.SearchInContext(ctx, wildcardReq)
	}()
	go func() {
		defer wg.Done()
		fuzzyRes, fuzzyErr = b.index.SearchInContext(ctx, fuzzyReq)
	}()
	wg.Wait()
	if wildcardErr != nil {
		return nil, unavailable("filename wildcard search", wildcardErr)
	}
	if fuzzyErr != nil {
		return nil, unavailable("filename fuzzy search", fuzzyErr)
	}

	merged := make(map[string]*Hit)
	collect := func(res *bleve.SearchResult, weight float64) {
		for _, hit := range res.Hits {
			h, ok := merged[hit.ID]
			if !ok {
				h = &Hit{DocumentID: hit.ID}
				if s, _ := hit.Fields["filename"].(string); s != "" {
					h.Filename = s
				}
				if s, _ := hit.Fields["file_type"].(string); s != "" {
					h.FileType = s
				}
				if s, _ := hit.Fields["uploaded_at"].(string); s != "" {
					if t, err := time.Parse(time.RFC3339, s); err == nil {
						h.UploadedAt = t
					}
				}
				merged[hit.ID] = h
			}
			h.Score += weight
		}
	}
	collect(wildcardRes, wildcardWeight)
	collect(fuzzyRes, fuzzyWeight)

	hits := make([]*Hit, 0, len(merged))
	for _, h := range merged {
		hits = append(hits, h)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if !hits[i].UploadedAt.Equal(hits[j].UploadedAt) {
			return hits[i].UploadedAt.After(hits[j].UploadedAt)
		}
		return hits[i].DocumentID < hits[j].DocumentID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (b *BleveIndex) filenameRequest(ownerID string, q blevequery.Query, size int) *bleve.SearchRequest {
	owner := bleve.NewTermQuery(ownerID)
	owner.SetField("owner_id")
	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(owner, q))
	req.Size = size
	req.Fields = []string{"filename", "file_type", "uploaded_at"}
	return req
}

func (b *BleveIndex) buildWildcardQuery(query string) blevequery.Query {
	wq := bleve.NewWildcardQuery("*" + escapeWildcard(strings.ToLower(query)) + "*")
	wq.SetField("filename_folded")
	return wq
}

func (b *BleveIndex) buildFuzzyQuery(query string) blevequery.Query {
	terms := tokenizeQuery(query)
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		mq.SetField("filename_words")
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzzinessForTerm(term))
		fq.SetField("filename_words")
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// fuzzinessForTerm scales edit distance with term length: short terms allow one
// edit, longer terms allow two. Distance two on a three-letter term matches
// almost everything.
func fuzzinessForTerm(term string) int {
	if utf8.RuneCountInString(term) <= 5 {
		return 1
	}
	return 2
}

// tokenizeQuery splits a query into lowercase terms.
func tokenizeQuery(query string) []string {
	words := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, "._-")
		if w != "" {
			terms = append(terms, w)
		}
	}
	return terms
}

// escapeWildcard escapes Bleve wildcard metacharacters in user input.
func escapeWildcard(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)
	return r.Replace(s)
}

// SearchPassages runs a relevance-ranked content search restricted to the given
// document ids and returns up to maxResults passages with excerpts built around
// the first query term occurrence. An empty id list returns no passages.
func (b *BleveIndex) SearchPassages(ctx context.Context, documentIDs []string, query string, maxResults int) ([]models.ContextPassage, error) {
	if len(documentIDs) == 0 || strings.TrimSpace(query) == "" || maxResults <= 0 {
		return []models.ContextPassage{}, nil
	}
	match := bleve.NewMatchQuery(query)
	match.SetField("content")
	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(bleve.NewDocIDQuery(documentIDs), match))
	req.Size = maxResults
	req.Fields = []string{"content", "filename"}

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, unavailable("passage search", err)
	}
	passages := make([]models.ContextPassage, 0, len(res.Hits))
	for _, hit := range res.Hits {
		content, _ := hit.Fields["content"].(string)
		filename, _ := hit.Fields["filename"].(string)
		passages = append(passages, models.ContextPassage{
			DocumentID: hit.ID,
			Filename:   filename,
			Excerpt:    excerpt(content, query, b.excerptChars),
			Score:      hit.Score,
		})
	}
	return passages, nil
}

// excerpt returns a window of maxChars runes around the first occurrence of any
// query term, or the leading maxChars when no term is found verbatim.
func excerpt(content, query string, maxChars int) string {
	if content == "" || maxChars <= 0 {
		return ""
	}
	lower := strings.ToLower(content)
	pos := -1
	for _, term := range tokenizeQuery(query) {
		if i := strings.Index(lower, term); i >= 0 && (pos == -1 || i < pos) {
			pos = i
		}
	}
	runes := []rune(content)
	if len(runes) <= maxChars {
		return content
	}
	start := 0
	if pos > 0 {
		start = utf8.RuneCountInString(content[:pos]) - maxChars/4
		if start < 0 {
			start = 0
		}
	}
	end := start + maxChars
	if end > len(runes) {
		end = len(runes)
		start = end - maxChars
	}
	out := string(runes[start:end])
	if start > 0 {
		out = "..." + out
	}
	if end < len(runes) {
		out += "..."
	}
	return out
}

// Term statistics cover the highest-frequency terms of the document; beyond
// this cap the per-term corpus lookups dominate and rare terms rarely change
// the keyword ranking.
const maxStatsTerms = 64

// TermStatistics tokenizes the stored content of documentID and returns
// per-term frequencies for its top terms together with the corpus size.
// Document frequency is measured across the whole corpus regardless of owner.
func (b *BleveIndex) TermStatistics(ctx context.Context, documentID string) (*TermStats, error) {
	req := bleve.NewSearchRequest(bleve.NewDocIDQuery([]string{documentID}))
	req.Size = 1
	req.Fields = []string{"content"}
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, unavailable("load document", err)
	}
	if len(res.Hits) == 0 {
		return nil, fmt.Errorf("document %s not indexed", documentID)
	}
	content, _ := res.Hits[0].Fields["content"].(string)

	corpusSize, err := b.DocumentCount()
	if err != nil {
		return nil, err
	}
	stats := &TermStats{Terms: make(map[string]TermStat), CorpusSize: corpusSize}

	freq := make(map[string]int)
	for _, term := range statTokens(content) {
		freq[term]++
	}
	terms := make([]string, 0, len(freq))
	for term := range freq {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxStatsTerms {
		terms = terms[:maxStatsTerms]
	}
	for _, term := range terms {
		df, dfErr := b.termDocFrequency(ctx, term)
		if dfErr != nil {
			continue
		}
		stats.Terms[term] = TermStat{TermFrequency: freq[term], DocumentFrequency: df}
	}
	return stats, nil
}

// termDocFrequency counts documents whose content contains term.
func (b *BleveIndex) termDocFrequency(ctx context.Context, term string) (int, error) {
	tq := bleve.NewTermQuery(term)
	tq.SetField("content")
	req := bleve.NewSearchRequest(tq)
	req.Size = 0
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return 0, unavailable("term frequency", err)
	}
	return int(res.Total), nil
}

// statTokens lowercases and splits content into candidate terms, dropping
// punctuation-only, numeric, overly short, and overly long tokens. Mirrors the
// standard analyzer closely enough for frequencies to line up with the index.
func statTokens(content string) []string {
	fields := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		n := utf8.RuneCountInString(f)
		if n < 2 || n > 30 {
			continue
		}
		if isNumeric(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
