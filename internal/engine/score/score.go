// Package score turns extracted signals into a heuristic classification.
// Scoring is deterministic and total: every input, including all-zero
// signals, yields a valid result.
package score

import (
	"fmt"
	"sort"

	"triagebot/internal/domain"
	"triagebot/internal/engine/extract"
	"triagebot/internal/engine/rules"
)

// Scorer applies the weighted-rule tables to extracted signals.
type Scorer struct {
	rules *rules.Set
}

func New(rs *rules.Set) *Scorer {
	return &Scorer{rules: rs}
}

// Score selects the best category and intent from the signals. The result is
// always tagged SourceHeuristic and always carries a StepTrace.
func (s *Scorer) Score(sig extract.Signals) domain.ClassificationResult {
	var trace domain.StepTrace
	tuning := s.rules.Tuning

	scores := make(map[domain.Category]float64, len(sig.CategoryWeights))
	for cat, w := range sig.CategoryWeights {
		scores[cat] = w
	}

	// Cross-category suppression: compliance vocabulary co-occurring with an
	// explicit feature ask must not override it.
	featureRaw := scores[domain.CategoryFeatureRequest]
	if featureRaw >= tuning.FeatureSignalFloor && scores[domain.CategoryComplianceRegulatory] > 0 {
		before := scores[domain.CategoryComplianceRegulatory]
		scores[domain.CategoryComplianceRegulatory] = before * tuning.ComplianceSuppression
		trace = append(trace, fmt.Sprintf("suppressed compliance_regulatory %.2f -> %.2f (feature signal %.2f)",
			before, scores[domain.CategoryComplianceRegulatory], featureRaw))
	}

	for cat, w := range scores {
		scores[cat] = domain.ClampConfidence(w)
	}

	category, categoryScore := s.pickCategory(scores)
	if categoryScore < tuning.MinEvidence {
		category = domain.DefaultCategory
		trace = append(trace, fmt.Sprintf("no category cleared min evidence %.2f, defaulting to %s",
			tuning.MinEvidence, category))
	} else {
		trace = append(trace, fmt.Sprintf("category %s scored %.2f%s",
			category, categoryScore, hitSuffix(sig.CategoryHits[category])))
	}

	intent, intentScore, early := s.pickIntent(sig)
	if early {
		trace = append(trace, fmt.Sprintf("intent %s selected early at %.2f on phrase evidence", intent, intentScore))
	} else if intentScore < tuning.MinEvidence {
		intent = domain.DefaultIntent
		intentScore = 0
		trace = append(trace, fmt.Sprintf("no intent cleared min evidence %.2f, defaulting to %s",
			tuning.MinEvidence, intent))
	} else {
		trace = append(trace, fmt.Sprintf("intent %s scored %.2f%s",
			intent, intentScore, hitSuffix(sig.IntentHits[intent])))
	}

	var confidence float64
	if categoryScore < tuning.MinEvidence && intentScore < tuning.MinEvidence {
		confidence = tuning.DefaultConfidence
	} else {
		confidence = domain.ClampConfidence((domain.ClampConfidence(categoryScore) + domain.ClampConfidence(intentScore)) / 2)
	}
	trace = append(trace, fmt.Sprintf("confidence %.2f", confidence))

	impact := s.impactBand(sig.ImpactWeight)
	trace = append(trace, fmt.Sprintf("business impact %s (weight %.2f)", impact, sig.ImpactWeight))

	return domain.ClassificationResult{
		Category:   category,
		Intent:     intent,
		Confidence: confidence,
		Impact:     impact,
		Reasoning:  trace,
		Source:     domain.SourceHeuristic,
	}
}

// pickCategory is argmax over clamped scores with ties broken by the declared
// priority order in domain.Categories.
func (s *Scorer) pickCategory(scores map[domain.Category]float64) (domain.Category, float64) {
	best := domain.DefaultCategory
	bestScore := -1.0
	for _, cat := range domain.Categories {
		if sc := scores[cat]; sc > bestScore {
			best = cat
			bestScore = sc
		}
	}
	if bestScore < 0 {
		bestScore = 0
	}
	return best, bestScore
}

// pickIntent walks intents in priority order. The first intent whose
// phrase-derived score reaches the early-exit threshold is selected without
// evaluating the rest; this keeps explicit asks (a connector request) from
// being shadowed by broader intents that share vocabulary. Otherwise the
// highest clamped total wins, same tie-break rule as categories.
func (s *Scorer) pickIntent(sig extract.Signals) (domain.Intent, float64, bool) {
	threshold := s.rules.Tuning.IntentEarlyExit
	for _, intent := range domain.Intents {
		if phrase := sig.IntentPhraseWeights[intent]; phrase >= threshold {
			return intent, domain.ClampConfidence(sig.IntentWeights[intent]), true
		}
	}

	best := domain.DefaultIntent
	bestScore := -1.0
	for _, intent := range domain.Intents {
		if sc := domain.ClampConfidence(sig.IntentWeights[intent]); sc > bestScore {
			best = intent
			bestScore = sc
		}
	}
	if bestScore < 0 {
		bestScore = 0
	}
	return best, bestScore, false
}

func (s *Scorer) impactBand(weight float64) domain.BusinessImpact {
	t := s.rules.Tuning
	switch {
	case weight >= t.ImpactCritical:
		return domain.ImpactCritical
	case weight >= t.ImpactHigh:
		return domain.ImpactHigh
	case weight >= t.ImpactMedium:
		return domain.ImpactMedium
	default:
		return domain.ImpactLow
	}
}

func hitSuffix(hits []string) string {
	if len(hits) == 0 {
		return ""
	}
	sorted := append([]string(nil), hits...)
	sort.Strings(sorted)
	return fmt.Sprintf(" (matched %v)", sorted)
}
