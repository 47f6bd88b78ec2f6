// Package engine orchestrates the hybrid classification pipeline: heuristic
// scoring always runs first, prior corrections are consulted, then the LLM
// branch and the similarity branch run concurrently, and the results are
// merged under explicit precedence rules. The engine itself never fails; it
// only ever degrades to a lower-confidence source.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"triagebot/internal/domain"
	"triagebot/internal/engine/corrections"
	"triagebot/internal/engine/extract"
	"triagebot/internal/engine/rules"
	"triagebot/internal/engine/score"
)

// Classifier is the optional LLM escalation path.
type Classifier interface {
	Classify(ctx context.Context, text string, heuristic domain.ClassificationResult, corrs []domain.Correction) (domain.ClassificationResult, error)
}

// SimilaritySearcher is the optional similarity enrichment path.
type SimilaritySearcher interface {
	Search(ctx context.Context, text string) []domain.SimilarityMatch
}

// CorrectionSource is the externally owned correction log, read-only here.
type CorrectionSource interface {
	ListCorrections(ctx context.Context) ([]domain.Correction, error)
}

// Options tunes per-request behavior.
type Options struct {
	CorrectionLimit int
	LLMTimeout      time.Duration
	SearchTimeout   time.Duration
}

func (o *Options) fill() {
	if o.CorrectionLimit <= 0 {
		o.CorrectionLimit = corrections.DefaultLimit
	}
	if o.LLMTimeout <= 0 {
		o.LLMTimeout = 8 * time.Second
	}
	if o.SearchTimeout <= 0 {
		o.SearchTimeout = 5 * time.Second
	}
}

// Report is the full outcome of one analysis: the final merged result plus
// the heuristic evidence, consulted corrections and similarity matches kept
// for transparency.
type Report struct {
	AnalysisID  string                      `json:"analysis_id"`
	Result      domain.ClassificationResult `json:"result"`
	Heuristic   domain.ClassificationResult `json:"heuristic"`
	Corrections []domain.Correction         `json:"corrections,omitempty"`
	Matches     []domain.SimilarityMatch    `json:"similar_issues,omitempty"`
	Elapsed     time.Duration               `json:"-"`
}

// Engine runs the pipeline. A nil classifier or searcher disables that
// branch; heuristic-only operation is a supported degraded mode, not an
// error state.
type Engine struct {
	extractor  *extract.Extractor
	scorer     *score.Scorer
	matcher    *corrections.Matcher
	classifier Classifier
	searcher   SimilaritySearcher
	source     CorrectionSource
	opts       Options
}

func New(rs *rules.Set, classifier Classifier, searcher SimilaritySearcher, source CorrectionSource, opts Options) *Engine {
	opts.fill()
	return &Engine{
		extractor:  extract.New(rs),
		scorer:     score.New(rs),
		matcher:    corrections.New(rs.Tuning.MinOverlapWords),
		classifier: classifier,
		searcher:   searcher,
		source:     source,
		opts:       opts,
	}
}

// Analyze classifies one issue. It always returns a usable report: every
// enhancement failure is logged and absorbed.
func (e *Engine) Analyze(ctx context.Context, issue domain.IssueInput) *Report {
	start := time.Now()
	text := issue.Text()

	// The heuristic pass is the fallback of last resort and is never skipped.
	signals := e.extractor.Extract(text)
	heuristic := e.scorer.Score(signals)

	relevant := e.relevantCorrections(ctx, text)

	var (
		wg        sync.WaitGroup
		llmResult domain.ClassificationResult
		llmErr    error
		llmRan    bool
		matches   []domain.SimilarityMatch
	)

	if e.classifier != nil {
		llmRan = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			llmCtx, cancel := context.WithTimeout(ctx, e.opts.LLMTimeout)
			defer cancel()
			llmResult, llmErr = e.classifier.Classify(llmCtx, text, heuristic, relevant)
		}()
	}

	if e.searcher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			searchCtx, cancel := context.WithTimeout(ctx, e.opts.SearchTimeout)
			defer cancel()
			matches = e.searcher.Search(searchCtx, text)
		}()
	}

	wg.Wait()

	final := e.merge(heuristic, llmResult, llmErr, llmRan)

	return &Report{
		AnalysisID:  uuid.NewString(),
		Result:      final,
		Heuristic:   heuristic,
		Corrections: relevant,
		Matches:     matches,
		Elapsed:     time.Since(start),
	}
}

// merge applies the precedence rules. On LLM failure the heuristic result
// passes through unchanged; when the LLM agrees on category the result is
// tagged hybrid; when it disagrees the LLM wins outright since it saw more
// context.
func (e *Engine) merge(heuristic, llm domain.ClassificationResult, llmErr error, llmRan bool) domain.ClassificationResult {
	if !llmRan {
		return heuristic
	}
	if llmErr != nil {
		log.Printf("llm branch degraded, keeping heuristic result: %v", llmErr)
		return heuristic
	}

	final := llm
	if llm.Category == heuristic.Category {
		final.Source = domain.SourceHybrid
		final.Agreement = true
		if heuristic.Confidence > final.Confidence {
			final.Confidence = domain.ClampConfidence(heuristic.Confidence)
		}
	} else {
		final.Source = domain.SourceLLM
		final.Agreement = false
	}
	return final
}

func (e *Engine) relevantCorrections(ctx context.Context, text string) []domain.Correction {
	if e.source == nil {
		return nil
	}
	all, err := e.source.ListCorrections(ctx)
	if err != nil {
		log.Printf("correction lookup degraded: %v", err)
		return nil
	}
	return e.matcher.Match(text, all, e.opts.CorrectionLimit)
}
