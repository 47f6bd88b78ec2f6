// Package llmclass escalates a heuristic classification to an external LLM.
// The adapter builds a prompt seeded with the heuristic result and prior user
// corrections, then parses and validates the structured response. Every
// failure mode collapses into *Unavailable so the reconciler can fall back.
package llmclass

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"triagebot/internal/domain"
)

// Completer is the external text-classification capability. Implementations
// own their own timeouts and provider details.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Cache lets repeated identical submissions skip the external call. Optional;
// a nil cache disables caching.
type Cache interface {
	Get(key string) (domain.ClassificationResult, bool)
	Put(key string, result domain.ClassificationResult)
}

// Unavailable reports that the LLM path could not produce a valid result:
// transport failure, timeout, malformed JSON, or an enum value outside the
// closed set. Callers treat it as a signal to degrade, never as a hard error.
type Unavailable struct {
	Reason string
	Err    error
}

func (e *Unavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm classification unavailable: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("llm classification unavailable: %s", e.Reason)
}

func (e *Unavailable) Unwrap() error { return e.Err }

// Classifier wraps a Completer with prompt construction, response validation
// and the optional cache hook.
type Classifier struct {
	completer Completer
	cache     Cache
}

func New(completer Completer, cache Cache) *Classifier {
	return &Classifier{completer: completer, cache: cache}
}

// llmResponse is the JSON shape the prompt demands.
type llmResponse struct {
	Category       string  `json:"category"`
	Intent         string  `json:"intent"`
	Confidence     float64 `json:"confidence"`
	BusinessImpact string  `json:"business_impact"`
	Reasoning      string  `json:"reasoning"`
}

// Classify asks the LLM for a classification, using the heuristic result as
// hint context and relevant corrections as few-shot corrective examples.
// Returns *Unavailable on any failure.
func (c *Classifier) Classify(ctx context.Context, text string, heuristic domain.ClassificationResult, corrs []domain.Correction) (domain.ClassificationResult, error) {
	key := cacheKey(text, heuristic)
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			return cached, nil
		}
	}

	systemPrompt, userPrompt := buildPrompts(text, heuristic, corrs)
	raw, err := c.completer.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return domain.ClassificationResult{}, &Unavailable{Reason: "completion failed", Err: err}
	}

	result, err := parseResponse(raw, heuristic)
	if err != nil {
		return domain.ClassificationResult{}, err
	}

	if c.cache != nil {
		c.cache.Put(key, result)
	}
	return result, nil
}

func buildPrompts(text string, heuristic domain.ClassificationResult, corrs []domain.Correction) (string, string) {
	var categoryLines strings.Builder
	for _, cat := range domain.Categories {
		categoryLines.WriteString(fmt.Sprintf("- %s\n", cat))
	}
	var intentLines strings.Builder
	for _, intent := range domain.Intents {
		intentLines.WriteString(fmt.Sprintf("- %s\n", intent))
	}

	systemPrompt := fmt.Sprintf(`You classify IT and Azure support issues.
Choose exactly one category from:
%s
Choose exactly one intent from:
%s
Also set business_impact to one of: critical, high, medium, low,
set confidence between 0 and 1, and give a one-paragraph reasoning.

Respond with JSON only (no markdown):
{"category": "feature_request", "intent": "requesting_feature", "confidence": 0.9, "business_impact": "medium", "reasoning": "..."}`,
		categoryLines.String(), intentLines.String())

	var sb strings.Builder
	sb.WriteString("Issue text:\n")
	sb.WriteString(strings.TrimSpace(text))
	sb.WriteString("\n\nA keyword-based pass suggested: category=")
	sb.WriteString(string(heuristic.Category))
	sb.WriteString(" intent=")
	sb.WriteString(string(heuristic.Intent))
	sb.WriteString(fmt.Sprintf(" confidence=%.2f", heuristic.Confidence))
	sb.WriteString("\nTreat it as a hint, not ground truth.\n")

	if len(corrs) > 0 {
		sb.WriteString("\nPast corrections (similar issues that were misclassified before; avoid repeating these mistakes):\n")
		for _, corr := range corrs {
			sb.WriteString(fmt.Sprintf("- %q was classified as %s, corrected to %s\n",
				truncate(strings.TrimSpace(corr.OriginalText), 120),
				corr.OriginalCategory, corr.CorrectedCategory))
		}
	}

	return systemPrompt, sb.String()
}

// parseResponse strips code fences, decodes the JSON and enforces the closed
// enums. An unknown category or intent is a hard reject, not a best-effort
// acceptance; the enum invariant holds system-wide.
func parseResponse(raw string, heuristic domain.ClassificationResult) (domain.ClassificationResult, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var resp llmResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return domain.ClassificationResult{}, &Unavailable{Reason: "malformed response", Err: err}
	}

	category, err := domain.ParseCategory(resp.Category)
	if err != nil {
		return domain.ClassificationResult{}, &Unavailable{Reason: "response outside closed enum", Err: err}
	}
	intent, err := domain.ParseIntent(resp.Intent)
	if err != nil {
		return domain.ClassificationResult{}, &Unavailable{Reason: "response outside closed enum", Err: err}
	}

	// Business impact degrades softly: an unrecognized value keeps the
	// heuristic's assessment instead of discarding the whole response.
	impact := heuristic.Impact
	switch domain.BusinessImpact(strings.ToLower(strings.TrimSpace(resp.BusinessImpact))) {
	case domain.ImpactCritical:
		impact = domain.ImpactCritical
	case domain.ImpactHigh:
		impact = domain.ImpactHigh
	case domain.ImpactMedium:
		impact = domain.ImpactMedium
	case domain.ImpactLow:
		impact = domain.ImpactLow
	}

	return domain.ClassificationResult{
		Category:   category,
		Intent:     intent,
		Confidence: domain.ClampConfidence(resp.Confidence),
		Impact:     impact,
		Reasoning:  domain.Narrative(strings.TrimSpace(resp.Reasoning)),
		Source:     domain.SourceLLM,
	}, nil
}

// truncate cuts on a rune boundary so multi-byte issue text is never split
// mid-character in the prompt.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// cacheKey normalizes (text, heuristic category/intent) so repeated identical
// submissions hit the cache regardless of whitespace or casing noise.
func cacheKey(text string, heuristic domain.ClassificationResult) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	sum := sha256.Sum256([]byte(normalized + "|" + string(heuristic.Category) + "|" + string(heuristic.Intent)))
	return hex.EncodeToString(sum[:])
}
