package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Category is the top-level classification bucket for an issue. The set is
// closed: every result carries one of these values, never an arbitrary string.
type Category string

const (
	CategoryTechnicalSupport     Category = "technical_support"
	CategoryFeatureRequest       Category = "feature_request"
	CategoryServiceAvailability  Category = "service_availability"
	CategoryCapacityRequest      Category = "capacity_request"
	CategoryRoadmapInquiry       Category = "roadmap_inquiry"
	CategoryComplianceRegulatory Category = "compliance_regulatory"
	CategoryTrainingDocs         Category = "training_documentation"
)

// DefaultCategory is used when no signal clears the evidence threshold.
const DefaultCategory = CategoryTechnicalSupport

// Categories lists every valid category in declared priority order. Ties in
// the scorer break toward the earlier entry, so the ordering is part of the
// contract and must stay stable.
var Categories = []Category{
	CategoryFeatureRequest,
	CategoryServiceAvailability,
	CategoryCapacityRequest,
	CategoryComplianceRegulatory,
	CategoryRoadmapInquiry,
	CategoryTrainingDocs,
	CategoryTechnicalSupport,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory normalizes and validates an externally supplied category name.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Intent is the finer-grained statement of what the submitter wants done.
type Intent string

const (
	IntentSeekingGuidance    Intent = "seeking_guidance"
	IntentRequestingFeature  Intent = "requesting_feature"
	IntentReportingProblem   Intent = "reporting_problem"
	IntentRequestingCapacity Intent = "requesting_capacity"
	IntentSeekingRoadmap     Intent = "seeking_roadmap"
	IntentEnsuringCompliance Intent = "ensuring_compliance"
	IntentSeekingTraining    Intent = "seeking_training"
)

const DefaultIntent = IntentSeekingGuidance

// Intents lists every valid intent in declared priority order.
var Intents = []Intent{
	IntentRequestingFeature,
	IntentReportingProblem,
	IntentRequestingCapacity,
	IntentEnsuringCompliance,
	IntentSeekingRoadmap,
	IntentSeekingTraining,
	IntentSeekingGuidance,
}

func (i Intent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

func ParseIntent(s string) (Intent, error) {
	i := Intent(strings.ToLower(strings.TrimSpace(s)))
	if !i.Valid() {
		return "", fmt.Errorf("unknown intent %q", s)
	}
	return i, nil
}

// BusinessImpact is the assessed blast radius of an issue.
type BusinessImpact string

const (
	ImpactCritical BusinessImpact = "critical"
	ImpactHigh     BusinessImpact = "high"
	ImpactMedium   BusinessImpact = "medium"
	ImpactLow      BusinessImpact = "low"
)

// Source tags which path produced a ClassificationResult.
type Source string

const (
	SourceHeuristic Source = "heuristic"
	SourceLLM       Source = "llm"
	SourceHybrid    Source = "hybrid"
)

// Reasoning is either a free-form narrative (LLM path) or an ordered step
// trace (heuristic path). Consumers switch on the concrete type instead of
// sniffing the shape at render time.
type Reasoning interface {
	reasoning()
	Summary() string
}

// Narrative is a human-readable explanation returned by the LLM.
type Narrative string

func (Narrative) reasoning()        {}
func (n Narrative) Summary() string { return string(n) }

// StepTrace is the ordered list of decisions the heuristic scorer took.
type StepTrace []string

func (StepTrace) reasoning()        {}
func (s StepTrace) Summary() string { return strings.Join(s, "; ") }

// MarshalReasoning renders either variant as a tagged JSON object.
func MarshalReasoning(r Reasoning) ([]byte, error) {
	switch v := r.(type) {
	case Narrative:
		return json.Marshal(map[string]any{"kind": "narrative", "text": string(v)})
	case StepTrace:
		return json.Marshal(map[string]any{"kind": "steps", "steps": []string(v)})
	case nil:
		return json.Marshal(nil)
	default:
		return nil, fmt.Errorf("unknown reasoning type %T", r)
	}
}

// IssueInput is the raw submission. Owned by the caller and passed by value;
// the engine never holds onto it past a single analysis.
type IssueInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
}

// Text joins the three fields into the text the pipeline analyzes.
func (in IssueInput) Text() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{in.Title, in.Description, in.Impact} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, strings.TrimSpace(p))
		}
	}
	return strings.Join(parts, "\n")
}

// ClassificationResult is the output shape shared by the heuristic scorer,
// the LLM adapter and the reconciler. Confidence is always within [0,1] and
// category/intent are always members of the closed enums.
type ClassificationResult struct {
	Category   Category       `json:"category"`
	Intent     Intent         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Impact     BusinessImpact `json:"business_impact"`
	Reasoning  Reasoning      `json:"-"`
	Source     Source         `json:"source"`
	Agreement  bool           `json:"agreement"`
}

// ClampConfidence forces a raw score into [0,1]. Weighted keyword sums can
// exceed 1.0, and external confidences are not trusted either.
func ClampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Correction is an append-only record asserting a prior classification was
// wrong. Consulted read-only by future analyses.
type Correction struct {
	ID                int64     `json:"id"`
	OriginalText      string    `json:"original_text"`
	OriginalCategory  Category  `json:"original_category"`
	OriginalIntent    Intent    `json:"original_intent"`
	CorrectedCategory Category  `json:"corrected_category"`
	CorrectedIntent   Intent    `json:"corrected_intent"`
	Rationale         string    `json:"rationale"`
	CorrectedAt       time.Time `json:"corrected_at"`
}

// ValidationError reports a malformed write rejected at the boundary. It is
// the only error kind this core surfaces to callers.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate enforces the correction invariants before persistence. A no-op
// correction (corrected category equal to the original) is rejected, as are
// values outside the closed enums.
func (c Correction) Validate() error {
	if strings.TrimSpace(c.OriginalText) == "" {
		return &ValidationError{Field: "original_text", Reason: "must not be empty"}
	}
	if !c.OriginalCategory.Valid() {
		return &ValidationError{Field: "original_category", Reason: fmt.Sprintf("unknown category %q", c.OriginalCategory)}
	}
	if !c.CorrectedCategory.Valid() {
		return &ValidationError{Field: "corrected_category", Reason: fmt.Sprintf("unknown category %q", c.CorrectedCategory)}
	}
	if c.OriginalIntent != "" && !c.OriginalIntent.Valid() {
		return &ValidationError{Field: "original_intent", Reason: fmt.Sprintf("unknown intent %q", c.OriginalIntent)}
	}
	if c.CorrectedIntent != "" && !c.CorrectedIntent.Valid() {
		return &ValidationError{Field: "corrected_intent", Reason: fmt.Sprintf("unknown intent %q", c.CorrectedIntent)}
	}
	if c.CorrectedCategory == c.OriginalCategory {
		return &ValidationError{Field: "corrected_category", Reason: "must differ from original_category"}
	}
	return nil
}

// SimilarityMatch is one historical issue surfaced by similarity search.
// Transient: produced per query, never persisted by this subsystem.
type SimilarityMatch struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Excerpt    string  `json:"excerpt"`
	Similarity float64 `json:"similarity"`
	Collection string  `json:"collection"`
}

// HistoricalIssue is a previously analyzed issue kept for the similarity
// index and for classification statistics.
type HistoricalIssue struct {
	ID          string
	Title       string
	Description string
	Category    Category
	Intent      Intent
	Confidence  float64
	AnalyzedAt  time.Time
}

// ClassificationStats aggregates history for the stats endpoint. Buckets
// mirror the confidence bands used in review dashboards.
type ClassificationStats struct {
	TotalClassifications int
	TotalCorrections     int
	AvgConfidence        float64
	BucketBelow50        int
	Bucket50to70         int
	Bucket70to90         int
	Bucket90Plus         int
}
