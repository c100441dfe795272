package extraction

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/searchive/searchive/internal/config"
	"github.com/searchive/searchive/internal/embedding"
	"github.com/searchive/searchive/internal/index"
	"github.com/searchive/searchive/internal/models"
	"github.com/searchive/searchive/pkg/utils"
)

// StatsSource supplies corpus statistics for the TF-IDF strategy and the
// corpus size used for strategy selection.
type StatsSource interface {
	TermStatistics(ctx context.Context, documentID string) (*index.TermStats, error)
	DocumentCount() (int, error)
}

// Engine extracts ranked keywords from document text. The document must
// already be indexed so its term statistics are visible.
type Engine struct {
	stats         StatsSource
	embedder      embedding.Embedder
	threshold     int
	keywordCount  int
	candidatePool int
}

// NewEngine creates an extraction engine.
func NewEngine(stats StatsSource, embedder embedding.Embedder, cfg *config.ExtractionConfig) *Engine {
	return &Engine{
		stats:         stats,
		embedder:      embedder,
		threshold:     cfg.StrategyThreshold,
		keywordCount:  cfg.KeywordCount,
		candidatePool: cfg.CandidatePool,
	}
}

// Extract returns up to the configured number of keywords for text, plus the
// name of the strategy used. Text with no usable terms yields no keywords;
// that is not an error.
func (e *Engine) Extract(ctx context.Context, documentID, text string) ([]models.Keyword, string, error) {
	corpusSize, err := e.stats.DocumentCount()
	if err != nil {
		return nil, "", fmt.Errorf("corpus size: %w", err)
	}
	strategy := SelectStrategy(corpusSize, e.threshold)

	tokens := FilterTokens(Tokenize(text))
	if len(tokens) == 0 {
		return []models.Keyword{}, strategy.Method(), nil
	}

	var keywords []models.Keyword
	switch strategy {
	case StrategyEmbedding:
		keywords, err = e.extractEmbedding(ctx, text, tokens)
	default:
		keywords, err = e.extractTFIDF(ctx, documentID)
	}
	if err != nil {
		return nil, "", err
	}
	return keywords, strategy.Method(), nil
}

// extractEmbedding ranks unigram and bigram candidates by cosine similarity to
// the whole-document embedding, then picks a diverse top set so the keywords
// do not all restate the same phrase.
func (e *Engine) extractEmbedding(ctx context.Context, text string, tokens []string) ([]models.Keyword, error) {
	candidates := buildCandidates(tokens)
	if len(candidates) == 0 {
		return []models.Keyword{}, nil
	}

	docEmb, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed document: %w", err)
	}
	candEmbs, err := e.embedder.EmbedBatch(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("embed candidates: %w", err)
	}

	type scoredCandidate struct {
		text  string
		emb   []float32
		score float64
	}
	scored := make([]scoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = scoredCandidate{text: c, emb: candEmbs[i], score: utils.CosineSimilarity(docEmb, candEmbs[i])}
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].text < scored[j].text
	})
	if len(scored) > e.candidatePool {
		scored = scored[:e.candidatePool]
	}

	// Greedy diversity selection: each pick maximizes relevance minus its
	// closest similarity to already-picked keywords.
	const diversity = 0.5
	picked := make([]scoredCandidate, 0, e.keywordCount)
	remaining := scored
	for len(picked) < e.keywordCount && len(remaining) > 0 {
		bestIdx := 0
		bestValue := math.Inf(-1)
		for i, cand := range remaining {
			value := cand.score
			if len(picked) > 0 {
				maxSim := math.Inf(-1)
				for _, p := range picked {
					if sim := utils.CosineSimilarity(cand.emb, p.emb); sim > maxSim {
						maxSim = sim
					}
				}
				value -= diversity * maxSim
			}
			if value > bestValue {
				bestValue = value
				bestIdx = i
			}
		}
		picked = append(picked, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	keywords := make([]models.Keyword, len(picked))
	for i, p := range picked {
		keywords[i] = models.Keyword{Text: p.text, Score: p.score, Rank: i + 1}
	}
	return keywords, nil
}

// buildCandidates returns unique unigrams plus bigrams of adjacent tokens,
// preserving first-seen order.
func buildCandidates(tokens []string) []string {
	seen := make(map[string]struct{})
	candidates := make([]string, 0, len(tokens)*2)
	add := func(c string) {
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		candidates = append(candidates, c)
	}
	for _, tok := range tokens {
		add(tok)
	}
	for i := 0; i+1 < len(tokens); i++ {
		if tokens[i] == tokens[i+1] {
			continue
		}
		add(tokens[i] + " " + tokens[i+1])
	}
	return candidates
}

// extractTFIDF scores the document's terms by tf * idf with smoothed idf
// ln((N+1)/(df+1)) + 1, which stays positive even for terms present in every
// document.
func (e *Engine) extractTFIDF(ctx context.Context, documentID string) ([]models.Keyword, error) {
	stats, err := e.stats.TermStatistics(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("term statistics: %w", err)
	}

	type scoredTerm struct {
		text  string
		score float64
	}
	// Particle stripping can fold several surface forms into one stem; keep the
	// best score per stem.
	byStem := make(map[string]float64)
	for term, st := range stats.Terms {
		if IsStopword(term) {
			continue
		}
		stem := StripParticle(term)
		if IsStopword(stem) || strings.TrimSpace(stem) == "" {
			continue
		}
		idf := math.Log(float64(stats.CorpusSize+1)/float64(st.DocumentFrequency+1)) + 1
		if score := float64(st.TermFrequency) * idf; score > byStem[stem] {
			byStem[stem] = score
		}
	}
	scored := make([]scoredTerm, 0, len(byStem))
	for text, score := range byStem {
		scored = append(scored, scoredTerm{text: text, score: score})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].text < scored[j].text
	})
	if len(scored) > e.keywordCount {
		scored = scored[:e.keywordCount]
	}

	keywords := make([]models.Keyword, len(scored))
	for i, s := range scored {
		keywords[i] = models.Keyword{Text: s.text, Score: s.score, Rank: i + 1}
	}
	return keywords, nil
}
