// Package server exposes the classification engine over a small JSON API:
// classify an issue, file and list corrections, read aggregate stats.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"triagebot/internal/domain"
	"triagebot/internal/engine"
)

// Analyzer runs one classification.
type Analyzer interface {
	Analyze(ctx context.Context, issue domain.IssueInput) *engine.Report
}

// Store is the persistence surface the API needs.
type Store interface {
	AppendCorrection(ctx context.Context, c domain.Correction) error
	ListCorrections(ctx context.Context) ([]domain.Correction, error)
	RecordClassification(ctx context.Context, id string, issue domain.IssueInput, result domain.ClassificationResult) error
	Stats(ctx context.Context) (domain.ClassificationStats, error)
}

// Notifier flags low-confidence results for human review.
type Notifier interface {
	MaybeNotify(analysisID string, issue domain.IssueInput, result domain.ClassificationResult) bool
}

// Server wires the engine and store behind HTTP handlers. A nil notifier
// disables review notifications.
type Server struct {
	analyzer Analyzer
	store    Store
	notifier Notifier
}

func New(analyzer Analyzer, store Store, notifier Notifier) *Server {
	return &Server{analyzer: analyzer, store: store, notifier: notifier}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /classify", s.handleClassify)
	mux.HandleFunc("POST /corrections", s.handleAppendCorrection)
	mux.HandleFunc("GET /corrections", s.handleListCorrections)
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	return mux
}

// resultPayload re-attaches reasoning, which the domain type keeps out of
// its own JSON encoding because the two variants need a tagged wrapper.
type resultPayload struct {
	domain.ClassificationResult
	Reasoning json.RawMessage `json:"reasoning,omitempty"`
}

func toPayload(r domain.ClassificationResult) resultPayload {
	p := resultPayload{ClassificationResult: r}
	if r.Reasoning != nil {
		if raw, err := domain.MarshalReasoning(r.Reasoning); err == nil {
			p.Reasoning = raw
		}
	}
	return p
}

type classifyResponse struct {
	AnalysisID    string                   `json:"analysis_id"`
	Result        resultPayload            `json:"result"`
	Heuristic     resultPayload            `json:"heuristic"`
	Corrections   []domain.Correction      `json:"corrections,omitempty"`
	SimilarIssues []domain.SimilarityMatch `json:"similar_issues,omitempty"`
	ElapsedMS     int64                    `json:"elapsed_ms"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var issue domain.IssueInput
	if err := json.NewDecoder(r.Body).Decode(&issue); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	report := s.analyzer.Analyze(r.Context(), issue)

	if err := s.store.RecordClassification(r.Context(), report.AnalysisID, issue, report.Result); err != nil {
		log.Printf("history write error analysis=%s: %v", report.AnalysisID, err)
	}
	if s.notifier != nil {
		s.notifier.MaybeNotify(report.AnalysisID, issue, report.Result)
	}

	writeJSON(w, http.StatusOK, classifyResponse{
		AnalysisID:    report.AnalysisID,
		Result:        toPayload(report.Result),
		Heuristic:     toPayload(report.Heuristic),
		Corrections:   report.Corrections,
		SimilarIssues: report.Matches,
		ElapsedMS:     report.Elapsed.Milliseconds(),
	})
}

func (s *Server) handleAppendCorrection(w http.ResponseWriter, r *http.Request) {
	var c domain.Correction
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := s.store.AppendCorrection(r.Context(), c); err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		log.Printf("correction write error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store correction")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

func (s *Server) handleListCorrections(w http.ResponseWriter, r *http.Request) {
	corrs, err := s.store.ListCorrections(r.Context())
	if err != nil {
		log.Printf("correction list error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list corrections")
		return
	}
	if corrs == nil {
		corrs = []domain.Correction{}
	}
	writeJSON(w, http.StatusOK, corrs)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		log.Printf("stats error: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_classifications": stats.TotalClassifications,
		"total_corrections":     stats.TotalCorrections,
		"avg_confidence":        stats.AvgConfidence,
		"confidence_buckets": map[string]int{
			"below_0.5":  stats.BucketBelow50,
			"0.5_to_0.7": stats.Bucket50to70,
			"0.7_to_0.9": stats.Bucket70to90,
			"0.9_plus":   stats.Bucket90Plus,
		},
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("response encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
