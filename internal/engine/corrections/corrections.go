// Package corrections ranks stored user corrections by lexical relevance to a
// new issue so the LLM adapter can use them as few-shot corrective examples.
package corrections

import (
	"sort"
	"strings"
	"unicode"

	"triagebot/internal/domain"
)

// DefaultLimit caps how many corrections are surfaced per analysis.
const DefaultLimit = 3

// stopwords are too generic to count as shared evidence between an issue and
// a correction's original text.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true,
	"has": true, "have": true, "in": true, "is": true, "it": true,
	"of": true, "on": true, "or": true, "our": true, "please": true,
	"that": true, "the": true, "this": true, "to": true, "we": true,
	"with": true, "you": true,
}

// Matcher finds previously stored corrections relevant to new issue text.
type Matcher struct {
	// MinOverlap is the number of shared significant words a correction needs
	// before it counts as relevant.
	MinOverlap int
}

func New(minOverlap int) *Matcher {
	if minOverlap < 1 {
		minOverlap = 3
	}
	return &Matcher{MinOverlap: minOverlap}
}

// Match returns the corrections whose original text shares at least
// MinOverlap significant words with the input, ranked by overlap count
// descending (ties keep insertion order) and truncated to limit. A fresh call
// recomputes; nothing is cached.
func (m *Matcher) Match(text string, corrs []domain.Correction, limit int) []domain.Correction {
	if limit <= 0 {
		limit = DefaultLimit
	}
	queryWords := significantWords(text)
	if len(queryWords) == 0 {
		return nil
	}

	type ranked struct {
		corr    domain.Correction
		overlap int
		order   int
	}
	var candidates []ranked
	for i, c := range corrs {
		overlap := overlapCount(queryWords, significantWords(c.OriginalText))
		if overlap >= m.MinOverlap {
			candidates = append(candidates, ranked{corr: c, overlap: overlap, order: i})
		}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].overlap != candidates[b].overlap {
			return candidates[a].overlap > candidates[b].overlap
		}
		return candidates[a].order < candidates[b].order
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]domain.Correction, len(candidates))
	for i, c := range candidates {
		out[i] = c.corr
	}
	return out
}

func overlapCount(query, other map[string]bool) int {
	n := 0
	for w := range other {
		if query[w] {
			n++
		}
	}
	return n
}

// significantWords lower-cases, tokenizes and drops stopwords and single
// letters.
func significantWords(s string) map[string]bool {
	words := make(map[string]bool)
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 1 {
			if w := cur.String(); !stopwords[w] {
				words[w] = true
			}
		}
		cur.Reset()
	}
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return words
}
