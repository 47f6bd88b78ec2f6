// Package sqlite persists the correction log and the classification history.
// The correction log is append-only: corrections are validated on write and
// never mutated or deleted afterwards.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"triagebot/internal/domain"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS corrections (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		original_text      TEXT NOT NULL,
		original_category  TEXT NOT NULL,
		original_intent    TEXT DEFAULT '',
		corrected_category TEXT NOT NULL,
		corrected_intent   TEXT DEFAULT '',
		rationale          TEXT DEFAULT '',
		corrected_at       DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_corrections_at ON corrections(corrected_at);

	CREATE TABLE IF NOT EXISTS classification_history (
		id              TEXT PRIMARY KEY,
		title           TEXT NOT NULL,
		description     TEXT DEFAULT '',
		category        TEXT NOT NULL,
		intent          TEXT NOT NULL,
		confidence      REAL NOT NULL,
		business_impact TEXT DEFAULT '',
		source          TEXT DEFAULT '',
		analyzed_at     DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_history_at ON classification_history(analyzed_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}
	return db, nil
}

// Store wraps the database with the read/write paths the engine needs.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// AppendCorrection validates and persists one correction. Validation errors
// (*domain.ValidationError) pass through unchanged so callers can surface
// them; nothing invalid is ever written.
func (s *Store) AppendCorrection(ctx context.Context, c domain.Correction) error {
	if err := c.Validate(); err != nil {
		return err
	}
	at := c.CorrectedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO corrections (original_text, original_category, original_intent, corrected_category, corrected_intent, rationale, corrected_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.OriginalText, c.OriginalCategory, c.OriginalIntent,
		c.CorrectedCategory, c.CorrectedIntent, c.Rationale, at,
	)
	return err
}

// ListCorrections returns all corrections in insertion order. Relevance
// ranking is the matcher's job, not the store's.
func (s *Store) ListCorrections(ctx context.Context) ([]domain.Correction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, original_text, original_category, original_intent, corrected_category, corrected_intent, rationale, corrected_at
		 FROM corrections ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Correction
	for rows.Next() {
		var c domain.Correction
		if err := rows.Scan(&c.ID, &c.OriginalText, &c.OriginalCategory, &c.OriginalIntent,
			&c.CorrectedCategory, &c.CorrectedIntent, &c.Rationale, &c.CorrectedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RecordClassification appends one analyzed issue to the history table.
func (s *Store) RecordClassification(ctx context.Context, id string, issue domain.IssueInput, result domain.ClassificationResult) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO classification_history (id, title, description, category, intent, confidence, business_impact, source, analyzed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, issue.Title, issue.Description, result.Category, result.Intent,
		result.Confidence, result.Impact, result.Source, time.Now().UTC(),
	)
	return err
}

// ListHistoricalIssues returns the most recent history entries, newest
// first, capped at limit. Feeds the similarity index rebuild.
func (s *Store) ListHistoricalIssues(ctx context.Context, limit int) ([]domain.HistoricalIssue, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, category, intent, confidence, analyzed_at
		 FROM classification_history ORDER BY analyzed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.HistoricalIssue
	for rows.Next() {
		var h domain.HistoricalIssue
		if err := rows.Scan(&h.ID, &h.Title, &h.Description, &h.Category, &h.Intent, &h.Confidence, &h.AnalyzedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Stats aggregates history and correction counts plus the confidence
// distribution buckets shown on review dashboards.
func (s *Store) Stats(ctx context.Context) (domain.ClassificationStats, error) {
	var stats domain.ClassificationStats

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(confidence), 0),
			COALESCE(SUM(CASE WHEN confidence < 0.5 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN confidence >= 0.5 AND confidence < 0.7 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN confidence >= 0.7 AND confidence < 0.9 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN confidence >= 0.9 THEN 1 ELSE 0 END), 0)
		 FROM classification_history`).Scan(
		&stats.TotalClassifications, &stats.AvgConfidence,
		&stats.BucketBelow50, &stats.Bucket50to70, &stats.Bucket70to90, &stats.Bucket90Plus)
	if err != nil {
		return stats, err
	}

	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM corrections`).Scan(&stats.TotalCorrections)
	return stats, err
}
