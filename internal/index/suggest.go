package index

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const suggestMaxDistance = 2

// suggestion is a candidate replacement for a misspelled query term.
type suggestion struct {
	term     string
	distance int
	count    uint64
}

// Suggest returns "did you mean" alternatives for a filename query whose terms
// do not appear in the index. Terms are checked against the filename word
// dictionary; candidates within edit distance two are ranked by distance, then
// by how many documents carry them. A query whose terms all exist yields nil.
func (b *BleveIndex) Suggest(query string, max int) ([]string, error) {
	terms := tokenizeQuery(query)
	if len(terms) == 0 || max <= 0 {
		return nil, nil
	}
	dict, counts, err := b.filenameDictionary()
	if err != nil {
		return nil, err
	}

	corrected := make([]string, len(terms))
	changed := false
	var single []suggestion
	for i, term := range terms {
		if _, ok := dict[term]; ok {
			corrected[i] = term
			continue
		}
		cands := suggestTerms(term, dict, counts)
		if len(cands) == 0 {
			corrected[i] = term
			continue
		}
		corrected[i] = cands[0].term
		changed = true
		if len(terms) == 1 {
			single = cands
		}
	}
	if !changed {
		return nil, nil
	}
	if single != nil {
		out := make([]string, 0, max)
		for _, s := range single {
			out = append(out, s.term)
			if len(out) == max {
				break
			}
		}
		return out, nil
	}
	return []string{strings.Join(corrected, " ")}, nil
}

// filenameDictionary reads the filename word dictionary from the index.
func (b *BleveIndex) filenameDictionary() (map[string]struct{}, map[string]uint64, error) {
	fd, err := b.index.FieldDict("filename_words")
	if err != nil {
		return nil, nil, unavailable("field dictionary", err)
	}
	defer fd.Close()

	dict := make(map[string]struct{})
	counts := make(map[string]uint64)
	for {
		entry, err := fd.Next()
		if err != nil || entry == nil {
			break
		}
		dict[entry.Term] = struct{}{}
		counts[entry.Term] = entry.Count
	}
	return dict, counts, nil
}

func suggestTerms(term string, dict map[string]struct{}, counts map[string]uint64) []suggestion {
	termLen := utf8.RuneCountInString(term)
	cands := make([]suggestion, 0, 4)
	for dictTerm := range dict {
		if dictTerm == term {
			continue
		}
		// Length difference bounds the edit distance; skip before computing it.
		diff := utf8.RuneCountInString(dictTerm) - termLen
		if diff < -suggestMaxDistance || diff > suggestMaxDistance {
			continue
		}
		d := levenshteinDistance(term, dictTerm)
		if d > suggestMaxDistance {
			continue
		}
		cands = append(cands, suggestion{term: dictTerm, distance: d, count: counts[dictTerm]})
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].distance != cands[j].distance {
			return cands[i].distance < cands[j].distance
		}
		if cands[i].count != cands[j].count {
			return cands[i].count > cands[j].count
		}
		return cands[i].term < cands[j].term
	})
	return cands
}
