// Package extract turns raw issue text into the weighted signals the scorer
// consumes. Extraction is a pure function of (text, rules): no state, no I/O,
// identical output for identical input.
package extract

import (
	"strings"
	"unicode"

	"triagebot/internal/domain"
	"triagebot/internal/engine/rules"
)

// Signals is everything the extractor found in one piece of text. Recomputed
// per analysis call, never persisted.
type Signals struct {
	// Entities maps entity kind (service, region, framework, product) to the
	// dictionary literals that matched.
	Entities map[string][]string

	CategoryWeights map[domain.Category]float64
	IntentWeights   map[domain.Intent]float64
	// IntentPhraseWeights holds only the phrase-derived portion of each
	// intent score. The early-exit rule triggers on phrase evidence alone.
	IntentPhraseWeights map[domain.Intent]float64

	// Matched terms per category/intent, kept for the reasoning trace.
	CategoryHits map[domain.Category][]string
	IntentHits   map[domain.Intent][]string

	ImpactWeight float64
	ImpactHits   []string
}

// Extractor scans text against a fixed rule set.
type Extractor struct {
	rules *rules.Set
}

func New(rs *rules.Set) *Extractor {
	return &Extractor{rules: rs}
}

// Extract never fails; empty or garbage input yields empty signals.
//
// Matching semantics: the text is lower-cased once. Terms containing a space
// (phrases and multi-word keywords) match as substrings and count once each.
// Single-word keywords match whole tokens and add their weight once per
// occurrence. When a phrase matches, single keywords contained in that phrase
// are skipped for the same category or intent, so the phrase weight replaces
// rather than stacks on its parts.
func (e *Extractor) Extract(text string) Signals {
	normalized := strings.ToLower(text)
	counts := tokenCounts(normalized)

	sig := Signals{
		Entities:            make(map[string][]string),
		CategoryWeights:     make(map[domain.Category]float64),
		IntentWeights:       make(map[domain.Intent]float64),
		IntentPhraseWeights: make(map[domain.Intent]float64),
		CategoryHits:        make(map[domain.Category][]string),
		IntentHits:          make(map[domain.Intent][]string),
	}

	for kind, terms := range e.rules.Entities {
		for _, term := range terms {
			if strings.Contains(normalized, term) {
				sig.Entities[kind] = append(sig.Entities[kind], term)
			}
		}
	}

	for _, cat := range domain.Categories {
		weight, _, hits := scorePool(normalized, counts,
			e.rules.CategoryPhrases[cat], e.rules.CategoryKeywords[cat])
		if weight > 0 {
			sig.CategoryWeights[cat] = weight
			sig.CategoryHits[cat] = hits
		}
	}

	for _, intent := range domain.Intents {
		weight, phraseWeight, hits := scorePool(normalized, counts,
			e.rules.IntentPhrases[intent], e.rules.IntentKeywords[intent])
		if weight > 0 {
			sig.IntentWeights[intent] = weight
			sig.IntentHits[intent] = hits
		}
		if phraseWeight > 0 {
			sig.IntentPhraseWeights[intent] = phraseWeight
		}
	}

	for _, kw := range e.rules.ImpactKeywords {
		if w := termWeight(normalized, counts, kw.Term, kw.Weight); w > 0 {
			sig.ImpactWeight += w
			sig.ImpactHits = append(sig.ImpactHits, kw.Term)
		}
	}

	return sig
}

// scorePool runs the phrase pass then the keyword pass for one category or
// intent, returning the total weight, the phrase-only weight and the list of
// matched terms.
func scorePool(normalized string, counts map[string]int, phrases []rules.Phrase, keywords []rules.Keyword) (total, phraseOnly float64, hits []string) {
	var matchedPhrases []string
	for _, ph := range phrases {
		if strings.Contains(normalized, ph.Text) {
			total += ph.Weight
			phraseOnly += ph.Weight
			matchedPhrases = append(matchedPhrases, ph.Text)
			hits = append(hits, ph.Text)
		}
	}
	for _, kw := range keywords {
		if consumedByPhrase(kw.Term, matchedPhrases) {
			continue
		}
		if w := termWeight(normalized, counts, kw.Term, kw.Weight); w > 0 {
			total += w
			hits = append(hits, kw.Term)
		}
	}
	return total, phraseOnly, hits
}

// consumedByPhrase reports whether a keyword already contributed through a
// matched phrase containing it.
func consumedByPhrase(term string, matchedPhrases []string) bool {
	for _, ph := range matchedPhrases {
		if strings.Contains(ph, term) {
			return true
		}
	}
	return false
}

// termWeight scores one term: substring match for multi-word terms, counted
// once; token match for single words, weight times occurrences.
func termWeight(normalized string, counts map[string]int, term string, weight float64) float64 {
	if strings.Contains(term, " ") {
		if strings.Contains(normalized, term) {
			return weight
		}
		return 0
	}
	if n := counts[term]; n > 0 {
		return weight * float64(n)
	}
	// Plural and simple suffix forms still count as one hit of the base term.
	for tok, n := range counts {
		if n > 0 && strings.HasPrefix(tok, term) && len(tok) <= len(term)+2 {
			return weight
		}
	}
	return 0
}

// tokenCounts splits on non-alphanumeric runes and tallies occurrences.
func tokenCounts(s string) map[string]int {
	counts := make(map[string]int)
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			counts[cur.String()]++
			cur.Reset()
		}
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return counts
}
