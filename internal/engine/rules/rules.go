// Package rules holds the keyword and phrase weight tables that drive the
// heuristic classifier. The tables are plain data, built once at startup and
// injected into the extractor and scorer; nothing in this package mutates a
// Set after construction.
package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"triagebot/internal/domain"
)

// Keyword is a single weighted term, matched against tokens.
type Keyword struct {
	Term   string  `yaml:"term"`
	Weight float64 `yaml:"weight"`
}

// Phrase is a weighted multi-word signal, matched as a substring of the
// normalized text. A matching phrase overrides the individual keyword hits
// for the terms it contains, so a strong phrase like "need connector" is not
// diluted down to the sum of its generic parts.
type Phrase struct {
	Text   string  `yaml:"text"`
	Weight float64 `yaml:"weight"`
}

// Tuning collects the constants that shape scoring behavior. The values are
// tuned, not derived; keep overrides in config rather than editing code.
type Tuning struct {
	// ComplianceSuppression scales the compliance category score down when a
	// strong feature signal is present, so compliance vocabulary that merely
	// co-occurs with an explicit feature ask does not win.
	ComplianceSuppression float64 `yaml:"compliance_suppression"`
	// FeatureSignalFloor is the raw feature-request score at or above which
	// suppression kicks in.
	FeatureSignalFloor float64 `yaml:"feature_signal_floor"`
	// IntentEarlyExit short-circuits intent selection: the first intent in
	// priority order whose phrase-driven score reaches this threshold is
	// chosen without evaluating the rest.
	IntentEarlyExit float64 `yaml:"intent_early_exit"`
	// MinEvidence is the minimum winning score required before the scorer
	// commits to a non-default category or intent.
	MinEvidence float64 `yaml:"min_evidence"`
	// DefaultConfidence is reported when no signal clears MinEvidence.
	DefaultConfidence float64 `yaml:"default_confidence"`
	// Impact band thresholds, checked from critical downward.
	ImpactCritical float64 `yaml:"impact_critical"`
	ImpactHigh     float64 `yaml:"impact_high"`
	ImpactMedium   float64 `yaml:"impact_medium"`
	// MinOverlapWords is the significant-word overlap a stored correction
	// needs before it is considered relevant to a new issue.
	MinOverlapWords int `yaml:"min_overlap_words"`
}

// Set is the full rule configuration consumed by the extractor and scorer.
type Set struct {
	CategoryKeywords map[domain.Category][]Keyword `yaml:"category_keywords"`
	CategoryPhrases  map[domain.Category][]Phrase  `yaml:"category_phrases"`
	IntentKeywords   map[domain.Intent][]Keyword   `yaml:"intent_keywords"`
	IntentPhrases    map[domain.Intent][]Phrase    `yaml:"intent_phrases"`
	// Entities maps an entity kind (service, region, framework, product) to
	// the dictionary of literals recognized for it.
	Entities       map[string][]string `yaml:"entities"`
	ImpactKeywords []Keyword           `yaml:"impact_keywords"`
	Tuning         Tuning              `yaml:"tuning"`
}

// Default returns the built-in rule tables. Each call builds a fresh Set so
// callers can never alias shared state.
func Default() *Set {
	return &Set{
		CategoryKeywords: map[domain.Category][]Keyword{
			domain.CategoryFeatureRequest: {
				{"connector", 0.45}, {"feature", 0.40}, {"enhancement", 0.40},
				{"integration", 0.35}, {"capability", 0.30}, {"api", 0.25},
				{"plugin", 0.35}, {"extension", 0.30},
			},
			domain.CategoryServiceAvailability: {
				{"availability", 0.45}, {"outage", 0.50}, {"unavailable", 0.45},
				{"down", 0.30}, {"degraded", 0.40}, {"latency", 0.30},
				{"region", 0.20}, {"sla", 0.35},
			},
			domain.CategoryCapacityRequest: {
				{"quota", 0.50}, {"capacity", 0.50}, {"limit", 0.35},
				{"cores", 0.40}, {"vcpu", 0.40}, {"scale", 0.30},
				{"throughput", 0.30},
			},
			domain.CategoryComplianceRegulatory: {
				{"compliance", 0.40}, {"gcch", 0.40}, {"gcc", 0.35},
				{"fedramp", 0.50}, {"hipaa", 0.50}, {"gdpr", 0.45},
				{"itar", 0.50}, {"sovereignty", 0.40}, {"audit", 0.30},
				{"regulatory", 0.40},
			},
			domain.CategoryRoadmapInquiry: {
				{"roadmap", 0.55}, {"timeline", 0.35}, {"eta", 0.40},
				{"planned", 0.30}, {"preview", 0.25}, {"ga", 0.25},
			},
			domain.CategoryTrainingDocs: {
				{"documentation", 0.45}, {"docs", 0.35}, {"tutorial", 0.45},
				{"training", 0.45}, {"guide", 0.30}, {"example", 0.25},
			},
			domain.CategoryTechnicalSupport: {
				{"error", 0.35}, {"failed", 0.30}, {"issue", 0.20},
				{"troubleshoot", 0.45}, {"broken", 0.35}, {"exception", 0.35},
				{"configure", 0.25}, {"help", 0.15},
			},
		},
		CategoryPhrases: map[domain.Category][]Phrase{
			domain.CategoryFeatureRequest: {
				{"need connector", 0.95}, {"connector needed", 0.95},
				{"feature request", 0.90}, {"please add support", 0.85},
				{"would like to see", 0.60}, {"missing integration", 0.75},
			},
			domain.CategoryServiceAvailability: {
				{"not available in", 0.80}, {"service is down", 0.90},
				{"region availability", 0.75}, {"when will it be available", 0.70},
			},
			domain.CategoryCapacityRequest: {
				{"quota increase", 0.90}, {"raise the limit", 0.85},
				{"need more capacity", 0.90}, {"increase our quota", 0.90},
			},
			domain.CategoryComplianceRegulatory: {
				{"government cloud", 0.50}, {"compliance requirement", 0.75},
				{"data residency", 0.70},
			},
			domain.CategoryRoadmapInquiry: {
				{"on the roadmap", 0.85}, {"release date", 0.70},
				{"when will this ship", 0.80},
			},
			domain.CategoryTrainingDocs: {
				{"how do i", 0.45}, {"where is the documentation", 0.80},
				{"step by step", 0.55},
			},
		},
		IntentKeywords: map[domain.Intent][]Keyword{
			domain.IntentRequestingFeature: {
				{"connector", 0.45}, {"feature", 0.40}, {"enhancement", 0.40},
				{"add", 0.20}, {"support", 0.20},
			},
			domain.IntentReportingProblem: {
				{"error", 0.40}, {"broken", 0.40}, {"failed", 0.35},
				{"outage", 0.45}, {"down", 0.30}, {"bug", 0.40},
			},
			domain.IntentRequestingCapacity: {
				{"quota", 0.50}, {"capacity", 0.50}, {"limit", 0.35},
				{"increase", 0.30},
			},
			domain.IntentEnsuringCompliance: {
				{"compliance", 0.40}, {"certified", 0.35}, {"audit", 0.35},
				{"regulatory", 0.40},
			},
			domain.IntentSeekingRoadmap: {
				{"roadmap", 0.55}, {"eta", 0.40}, {"timeline", 0.35},
			},
			domain.IntentSeekingTraining: {
				{"training", 0.45}, {"tutorial", 0.45}, {"documentation", 0.40},
				{"learn", 0.30},
			},
			domain.IntentSeekingGuidance: {
				{"how", 0.20}, {"guidance", 0.40}, {"advice", 0.35},
				{"recommend", 0.30}, {"best practice", 0.35},
			},
		},
		IntentPhrases: map[domain.Intent][]Phrase{
			domain.IntentRequestingFeature: {
				{"need connector", 0.95}, {"connector needed", 0.95},
				{"please add", 0.80}, {"feature request", 0.90},
			},
			domain.IntentReportingProblem: {
				{"is not working", 0.85}, {"stopped working", 0.85},
				{"we are seeing errors", 0.80},
			},
			domain.IntentRequestingCapacity: {
				{"quota increase", 0.90}, {"need more capacity", 0.90},
			},
			domain.IntentEnsuringCompliance: {
				{"compliance requirement", 0.75}, {"must be compliant", 0.80},
			},
			domain.IntentSeekingRoadmap: {
				{"on the roadmap", 0.85}, {"when will this ship", 0.80},
			},
			domain.IntentSeekingTraining: {
				{"where is the documentation", 0.80}, {"how do i get started", 0.70},
			},
		},
		Entities: map[string][]string{
			"service": {
				"sql managed instance", "sql mi", "app service", "aks",
				"kubernetes service", "storage account", "key vault",
				"cosmos db", "virtual machine", "functions", "event hub",
				"service bus", "data factory",
			},
			"region": {
				"west europe", "north europe", "east us", "east us 2",
				"west us", "central us", "uk south", "southeast asia",
				"australia east",
			},
			"framework": {
				"fedramp", "hipaa", "gdpr", "itar", "soc 2", "iso 27001",
				"gcch", "gcc high", "gcc",
			},
			"product": {
				"power bi", "dynamics", "office 365", "teams", "sharepoint",
				"power platform",
			},
		},
		ImpactKeywords: []Keyword{
			{"production", 0.50}, {"revenue", 0.50}, {"outage", 0.50},
			{"blocked", 0.40}, {"all users", 0.40}, {"customer facing", 0.40},
			{"urgent", 0.35}, {"critical", 0.40}, {"deadline", 0.25},
			{"asap", 0.30}, {"down", 0.30}, {"data loss", 0.60},
		},
		Tuning: Tuning{
			ComplianceSuppression: 0.5,
			FeatureSignalFloor:    0.5,
			IntentEarlyExit:       0.45,
			MinEvidence:           0.15,
			DefaultConfidence:     0.30,
			ImpactCritical:        0.80,
			ImpactHigh:            0.50,
			ImpactMedium:          0.25,
			MinOverlapWords:       3,
		},
	}
}

// setPatch mirrors Set for override files. Tuning fields are pointers so an
// explicit zero (for example disabling compliance suppression outright) is
// distinguishable from an absent key.
type setPatch struct {
	CategoryKeywords map[domain.Category][]Keyword `yaml:"category_keywords"`
	CategoryPhrases  map[domain.Category][]Phrase  `yaml:"category_phrases"`
	IntentKeywords   map[domain.Intent][]Keyword   `yaml:"intent_keywords"`
	IntentPhrases    map[domain.Intent][]Phrase    `yaml:"intent_phrases"`
	Entities         map[string][]string           `yaml:"entities"`
	ImpactKeywords   []Keyword                     `yaml:"impact_keywords"`
	Tuning           tuningPatch                   `yaml:"tuning"`
}

type tuningPatch struct {
	ComplianceSuppression *float64 `yaml:"compliance_suppression"`
	FeatureSignalFloor    *float64 `yaml:"feature_signal_floor"`
	IntentEarlyExit       *float64 `yaml:"intent_early_exit"`
	MinEvidence           *float64 `yaml:"min_evidence"`
	DefaultConfidence     *float64 `yaml:"default_confidence"`
	ImpactCritical        *float64 `yaml:"impact_critical"`
	ImpactHigh            *float64 `yaml:"impact_high"`
	ImpactMedium          *float64 `yaml:"impact_medium"`
	MinOverlapWords       *int     `yaml:"min_overlap_words"`
}

// Load reads a YAML override file and merges it over the defaults. A section
// present in the file replaces the default table for that category, intent or
// entity kind wholesale; absent sections keep their defaults. Tuning fields
// override whenever the key is present, explicit zeros included.
func Load(path string) (*Set, error) {
	base := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var override setPatch
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse rules yaml: %w", err)
	}
	for cat, kws := range override.CategoryKeywords {
		if !cat.Valid() {
			return nil, fmt.Errorf("rules file references unknown category %q", cat)
		}
		base.CategoryKeywords[cat] = kws
	}
	for cat, phs := range override.CategoryPhrases {
		if !cat.Valid() {
			return nil, fmt.Errorf("rules file references unknown category %q", cat)
		}
		base.CategoryPhrases[cat] = phs
	}
	for intent, kws := range override.IntentKeywords {
		if !intent.Valid() {
			return nil, fmt.Errorf("rules file references unknown intent %q", intent)
		}
		base.IntentKeywords[intent] = kws
	}
	for intent, phs := range override.IntentPhrases {
		if !intent.Valid() {
			return nil, fmt.Errorf("rules file references unknown intent %q", intent)
		}
		base.IntentPhrases[intent] = phs
	}
	for kind, terms := range override.Entities {
		base.Entities[kind] = terms
	}
	if len(override.ImpactKeywords) > 0 {
		base.ImpactKeywords = override.ImpactKeywords
	}
	mergeTuning(&base.Tuning, override.Tuning)
	return base, nil
}

func mergeTuning(dst *Tuning, src tuningPatch) {
	if src.ComplianceSuppression != nil {
		dst.ComplianceSuppression = *src.ComplianceSuppression
	}
	if src.FeatureSignalFloor != nil {
		dst.FeatureSignalFloor = *src.FeatureSignalFloor
	}
	if src.IntentEarlyExit != nil {
		dst.IntentEarlyExit = *src.IntentEarlyExit
	}
	if src.MinEvidence != nil {
		dst.MinEvidence = *src.MinEvidence
	}
	if src.DefaultConfidence != nil {
		dst.DefaultConfidence = *src.DefaultConfidence
	}
	if src.ImpactCritical != nil {
		dst.ImpactCritical = *src.ImpactCritical
	}
	if src.ImpactHigh != nil {
		dst.ImpactHigh = *src.ImpactHigh
	}
	if src.ImpactMedium != nil {
		dst.ImpactMedium = *src.ImpactMedium
	}
	if src.MinOverlapWords != nil {
		dst.MinOverlapWords = *src.MinOverlapWords
	}
}
