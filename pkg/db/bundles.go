package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dtnitsch/article-analyzer/models"
)

// ErrBundleNotFound is returned when a session has no saved bundle.
var ErrBundleNotFound = errors.New("bundle not found")

// Fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SessionInfo summarizes a stored session.
type SessionInfo struct {
	Name        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProcessedAt time.Time
	ResultCount int
	ErrorCount  int
}

// SaveBundle replaces the bundle of session in a single transaction.
func (db *DB) SaveBundle(ctx context.Context, session string, b *models.ResultBundle) error {
	var summary []byte
	if b.Summary != nil {
		var err error
		if summary, err = json.Marshal(b.Summary); err != nil {
			return fmt.Errorf("failed to encode summary: %w", err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op after commit

	now := time.Now().UTC().Format(timeLayout)
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (session_name, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(session_name) DO UPDATE SET updated_at = excluded.updated_at
	`, session, now, now); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	if err := deleteBundleRows(ctx, tx, session); err != nil {
		return fmt.Errorf("failed to clear previous bundle: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bundles (session_name, processed_at, result_count, error_count, summary)
		VALUES (?, ?, ?, ?, ?)
	`, session, b.ProcessedAt.UTC().Format(timeLayout), len(b.Results), len(b.Errors), NewNullString(string(summary))); err != nil {
		return fmt.Errorf("failed to insert bundle: %w", err)
	}

	for i, r := range b.Results {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("failed to encode result %s: %w", r.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bundle_results (session_name, position, result_id, url, title, category, word_count, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, session, i, r.ID, r.URL, r.Title, r.Metadata.Category, r.Metadata.WordCount, string(payload)); err != nil {
			return fmt.Errorf("failed to insert result %s: %w", r.ID, err)
		}
	}

	for i, e := range b.Errors {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bundle_errors (session_name, position, task_id, url, code, phase, message, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, session, i, e.ID, e.URL, string(e.Code), e.Phase, e.Message, string(e.Status)); err != nil {
			return fmt.Errorf("failed to insert error %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bundle: %w", err)
	}
	return nil
}

// LoadBundle returns the bundle saved for session, or ErrBundleNotFound.
func (db *DB) LoadBundle(ctx context.Context, session string) (*models.ResultBundle, error) {
	var processedAt string
	var summary sql.NullString
	err := db.QueryRowContext(ctx,
		"SELECT processed_at, summary FROM bundles WHERE session_name = ?", session,
	).Scan(&processedAt, &summary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBundleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load bundle: %w", err)
	}

	b := &models.ResultBundle{
		Results: []models.AnalysisResult{},
		Errors:  []models.ProcessingError{},
	}
	if b.ProcessedAt, err = time.Parse(timeLayout, processedAt); err != nil {
		return nil, fmt.Errorf("failed to parse processed_at: %w", err)
	}
	if summary.Valid && summary.String != "" {
		b.Summary = &models.BatchSummary{}
		if err := json.Unmarshal([]byte(summary.String), b.Summary); err != nil {
			return nil, fmt.Errorf("failed to decode summary: %w", err)
		}
	}

	if b.Results, err = db.loadResults(ctx, session); err != nil {
		return nil, err
	}
	if b.Errors, err = db.loadErrors(ctx, session); err != nil {
		return nil, err
	}
	return b, nil
}

func (db *DB) loadResults(ctx context.Context, session string) ([]models.AnalysisResult, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT payload FROM bundle_results WHERE session_name = ? ORDER BY position", session)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	results := []models.AnalysisResult{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		var r models.AnalysisResult
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (db *DB) loadErrors(ctx context.Context, session string) ([]models.ProcessingError, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT task_id, url, code, phase, message, status
		FROM bundle_errors
		WHERE session_name = ?
		ORDER BY position
	`, session)
	if err != nil {
		return nil, fmt.Errorf("failed to query errors: %w", err)
	}
	defer rows.Close()

	errs := []models.ProcessingError{}
	for rows.Next() {
		var e models.ProcessingError
		var code, status string
		var phase, message sql.NullString
		if err := rows.Scan(&e.ID, &e.URL, &code, &phase, &message, &status); err != nil {
			return nil, fmt.Errorf("failed to scan error: %w", err)
		}
		e.Code = models.ErrorCode(code)
		e.Status = models.TaskStatus(status)
		e.Phase = phase.String
		e.Message = message.String
		errs = append(errs, e)
	}
	return errs, rows.Err()
}

// DeleteBundle removes the session and its bundle. Deleting a missing session is not an
// error.
func (db *DB) DeleteBundle(ctx context.Context, session string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := deleteBundleRows(ctx, tx, session); err != nil {
		return fmt.Errorf("failed to delete bundle: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE session_name = ?", session); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// deleteBundleRows removes child rows before the bundle so the result does not depend on
// foreign key enforcement.
func deleteBundleRows(ctx context.Context, tx *sql.Tx, session string) error {
	for _, table := range []string{"bundle_results", "bundle_errors", "bundles"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE session_name = ?", session); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}
	return nil
}

// ListSessions returns sessions ordered by most recent update first.
func (db *DB) ListSessions(ctx context.Context, limit int) ([]SessionInfo, error) {
	query := `
		SELECT s.session_name, s.created_at, s.updated_at,
		       COALESCE(b.processed_at, ''), COALESCE(b.result_count, 0), COALESCE(b.error_count, 0)
		FROM sessions s
		LEFT JOIN bundles b ON b.session_name = s.session_name
		ORDER BY s.updated_at DESC
	`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []SessionInfo
	for rows.Next() {
		var s SessionInfo
		var created, updated, processed string
		if err := rows.Scan(&s.Name, &created, &updated, &processed, &s.ResultCount, &s.ErrorCount); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		var err error
		if s.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("failed to parse created_at of session %s: %w", s.Name, err)
		}
		if s.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at of session %s: %w", s.Name, err)
		}
		// empty when the session has no bundle
		if processed != "" {
			if s.ProcessedAt, err = time.Parse(timeLayout, processed); err != nil {
				return nil, fmt.Errorf("failed to parse processed_at of session %s: %w", s.Name, err)
			}
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// NewNullString maps "" to NULL.
func NewNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
