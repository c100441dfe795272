// Package extraction selects and runs the keyword extraction strategy for a
// document: embedding similarity for small corpora, TF-IDF once the corpus is
// large enough for document frequencies to be meaningful.
package extraction

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// English and Korean stopwords. Korean documents additionally carry
// postposition particles glued to nouns, handled by StripParticle.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range append(englishStopwords, koreanStopwords...) {
		stopwords[w] = struct{}{}
	}
}

var englishStopwords = []string{
	"a", "about", "above", "after", "again", "against", "all", "am", "an", "and",
	"any", "are", "as", "at", "be", "because", "been", "before", "being", "below",
	"between", "both", "but", "by", "can", "did", "do", "does", "doing", "down",
	"during", "each", "few", "for", "from", "further", "had", "has", "have",
	"having", "he", "her", "here", "hers", "herself", "him", "himself", "his",
	"how", "i", "if", "in", "into", "is", "it", "its", "itself", "just", "me",
	"more", "most", "my", "myself", "no", "nor", "not", "now", "of", "off", "on",
	"once", "only", "or", "other", "our", "ours", "ourselves", "out", "over",
	"own", "same", "she", "should", "so", "some", "such", "than", "that", "the",
	"their", "theirs", "them", "themselves", "then", "there", "these", "they",
	"this", "those", "through", "to", "too", "under", "until", "up", "very",
	"was", "we", "were", "what", "when", "where", "which", "while", "who", "whom",
	"why", "will", "with", "you", "your", "yours", "yourself", "yourselves",
}

var koreanStopwords = []string{
	"그리고", "그러나", "그런데", "하지만", "또한", "및", "등", "따라서", "그래서",
	"즉", "또는", "혹은", "만약", "모든", "어떤", "이런", "저런", "그런", "있다",
	"없다", "하다", "되다", "이다", "아니다", "것", "수", "때", "중", "후", "전",
	"위해", "통해", "대해", "관련", "경우", "대한", "있는", "하는", "되는",
}

// Korean postposition particles, longest first so 에서 is tried before 서.
var koreanParticles = []string{
	"에서부터", "으로부터", "에게서", "으로서", "으로써", "이라도", "까지", "부터",
	"처럼", "보다", "조차", "마저", "든지", "라도", "에서", "에게", "이나", "한테",
	"으로", "은", "는", "이", "가", "을", "를", "의", "에", "와", "과", "도", "만",
	"로", "나",
}

// IsStopword reports whether term (already lowercased) is a stopword.
func IsStopword(term string) bool {
	_, ok := stopwords[term]
	return ok
}

// StripParticle removes one trailing Korean postposition particle from term
// when the remaining stem keeps at least two runes. Non-Korean terms are
// returned unchanged.
func StripParticle(term string) string {
	if !hasHangul(term) {
		return term
	}
	for _, p := range koreanParticles {
		if strings.HasSuffix(term, p) {
			stem := strings.TrimSuffix(term, p)
			if utf8.RuneCountInString(stem) >= 2 {
				return stem
			}
		}
	}
	return term
}

func hasHangul(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}

// Tokenize lowercases text and splits it into candidate terms, dropping
// punctuation, purely numeric tokens, and tokens outside 2..30 runes.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
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

// FilterTokens strips Korean particles and drops stopwords, preserving order.
func FilterTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if IsStopword(tok) {
			continue
		}
		tok = StripParticle(tok)
		if IsStopword(tok) || utf8.RuneCountInString(tok) < 2 {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
