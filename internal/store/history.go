package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"anefwatch/internal/types"

	_ "modernc.org/sqlite"
)

// HistoryEntry is one recorded attempt of a past run.
type HistoryEntry struct {
	RunID            string
	AccountID        string
	DisplayName      string
	Username         string
	Outcome          string
	NotificationType string
	Reason           string
	Message          string
	RecordedAt       time.Time
}

// History keeps one row per processed account per run. Passwords are not stored.
type History struct {
	db   *sql.DB
	path string
}

// OpenHistory creates or opens the history database at path.
func OpenHistory(path string) (*History, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Single writer; also keeps an in-memory database alive across calls.
	db.SetMaxOpenConns(1)

	h := &History{db: db, path: path}
	if err := h.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return h, nil
}

// Close closes the database connection.
func (h *History) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *History) Path() string {
	return h.path
}

func (h *History) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		account_id TEXT NOT NULL,
		display_name TEXT,
		username TEXT NOT NULL,
		outcome TEXT NOT NULL,
		notification_type TEXT,
		reason TEXT,
		message TEXT,
		recorded_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_account ON attempts(account_id, recorded_at);
	CREATE INDEX IF NOT EXISTS idx_attempts_run ON attempts(run_id);
	`
	_, err := h.db.Exec(schema)
	return err
}

// Record stores one attempt of a run.
func (h *History) Record(ctx context.Context, runID string, a types.Attempt) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO attempts (run_id, account_id, display_name, username, outcome, notification_type, reason, message, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, a.Record.AccountID, a.Record.DisplayName, a.Record.Username,
		a.Outcome.Tag.String(), a.Outcome.NotificationType, a.Outcome.Reason, a.Message,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// ForAccount returns the latest attempts of an account, newest first.
func (h *History) ForAccount(ctx context.Context, accountID string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT run_id, account_id, display_name, username, outcome, notification_type, reason, message, recorded_at
		 FROM attempts
		 WHERE account_id = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		accountID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var display, notif, reason, message sql.NullString
		if err := rows.Scan(&e.RunID, &e.AccountID, &display, &e.Username, &e.Outcome, &notif, &reason, &message, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		e.DisplayName = display.String
		e.NotificationType = notif.String
		e.Reason = reason.String
		e.Message = message.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RunCount returns the number of attempts recorded for a run.
func (h *History) RunCount(ctx context.Context, runID string) (int, error) {
	var n int
	err := h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attempts WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count run: %w", err)
	}
	return n, nil
}
