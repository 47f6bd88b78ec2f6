package extract

import (
	"reflect"
	"testing"

	"triagebot/internal/domain"
	"triagebot/internal/engine/rules"
)

func TestExtractEmptyInput(t *testing.T) {
	ex := New(rules.Default())

	for _, text := range []string{"", "   ", "!!! ???", "\n\t"} {
		sig := ex.Extract(text)
		if len(sig.CategoryWeights) != 0 {
			t.Errorf("text %q: expected no category weights, got %v", text, sig.CategoryWeights)
		}
		if len(sig.IntentWeights) != 0 {
			t.Errorf("text %q: expected no intent weights, got %v", text, sig.IntentWeights)
		}
		if sig.ImpactWeight != 0 {
			t.Errorf("text %q: expected zero impact weight, got %f", text, sig.ImpactWeight)
		}
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	ex := New(rules.Default())
	text := "Production outage: SQL Managed Instance unavailable in West Europe, all users blocked"

	first := ex.Extract(text)
	second := ex.Extract(text)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical signals for identical text\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestExtractEntities(t *testing.T) {
	ex := New(rules.Default())
	sig := ex.Extract("SQL Managed Instance is degraded in West Europe and we need FedRAMP certification")

	wantKinds := map[string]string{
		"service":   "sql managed instance",
		"region":    "west europe",
		"framework": "fedramp",
	}
	for kind, literal := range wantKinds {
		found := false
		for _, m := range sig.Entities[kind] {
			if m == literal {
				found = true
			}
		}
		if !found {
			t.Errorf("expected %s entity %q, got %v", kind, literal, sig.Entities[kind])
		}
	}
}

func TestPhraseOverridesKeywordStacking(t *testing.T) {
	ex := New(rules.Default())
	sig := ex.Extract("we need connectors for the new environment")

	got := sig.CategoryWeights[domain.CategoryFeatureRequest]
	// The phrase weight should stand alone: the contained "connector" keyword
	// must not stack on top of it.
	if got != 0.95 {
		t.Fatalf("expected feature_request weight 0.95 from phrase alone, got %f", got)
	}
}

func TestIntentPhraseWeightTrackedSeparately(t *testing.T) {
	ex := New(rules.Default())
	sig := ex.Extract("feature request: please add a connector")

	phrase := sig.IntentPhraseWeights[domain.IntentRequestingFeature]
	total := sig.IntentWeights[domain.IntentRequestingFeature]
	if phrase <= 0 {
		t.Fatalf("expected phrase weight for requesting_feature, got %f", phrase)
	}
	if total < phrase {
		t.Fatalf("total intent weight %f should be at least phrase weight %f", total, phrase)
	}
}

func TestKeywordCountsPerOccurrence(t *testing.T) {
	ex := New(rules.Default())
	once := ex.Extract("the deployment failed")
	twice := ex.Extract("the deployment failed and the rollback failed")

	w1 := once.CategoryWeights[domain.CategoryTechnicalSupport]
	w2 := twice.CategoryWeights[domain.CategoryTechnicalSupport]
	if w2 <= w1 {
		t.Fatalf("expected repeated keyword to add weight: once=%f twice=%f", w1, w2)
	}
}

func TestImpactVocabulary(t *testing.T) {
	ex := New(rules.Default())
	sig := ex.Extract("Production is down, revenue impact, all users blocked")

	if sig.ImpactWeight < 1.0 {
		t.Fatalf("expected strong impact weight, got %f (hits %v)", sig.ImpactWeight, sig.ImpactHits)
	}
	if len(sig.ImpactHits) < 3 {
		t.Fatalf("expected several impact hits, got %v", sig.ImpactHits)
	}
}
