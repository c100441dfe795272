package extraction

// Strategy identifies how keywords are extracted for a document.
type Strategy int

const (
	// StrategyEmbedding ranks candidate phrases by embedding similarity to the
	// whole document. Used while the corpus is too small for TF-IDF.
	StrategyEmbedding Strategy = iota
	// StrategyTFIDF ranks terms by term frequency weighted with smoothed
	// inverse document frequency over the indexed corpus.
	StrategyTFIDF
)

// Method returns the strategy name recorded on upload results.
func (s Strategy) Method() string {
	if s == StrategyEmbedding {
		return "embedding"
	}
	return "tfidf"
}

// SelectStrategy picks the extraction strategy from the corpus size. Below
// threshold documents, document frequencies are dominated by noise and the
// embedding strategy is used instead.
func SelectStrategy(corpusSize, threshold int) Strategy {
	if corpusSize < threshold {
		return StrategyEmbedding
	}
	return StrategyTFIDF
}
