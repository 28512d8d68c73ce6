package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/btouchard/lumeo/internal/notification"

	_ "modernc.org/sqlite"
)

const (
	timeFormat = time.RFC3339
	memoryPath = ":memory:"
)

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, zero CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database and runs migrations.
// The database file is created with 0600 permissions and its parent directory with 0700.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != memoryPath {
		if err := prepareFile(path); err != nil {
			return nil, err
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite handles one writer at a time
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

func prepareFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	// Pre-create the file with restrictive permissions if it doesn't exist
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("creating database file: %w", err)
		}
		_ = f.Close()
	}
	return nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var current int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		slog.Info("applying migration", "version", i+1)
		if _, err := s.db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", i+1); err != nil {
			return fmt.Errorf("recording migration %d: %w", i+1, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveNotifications replaces the stored window and counter in one transaction.
func (s *SQLiteStore) SaveNotifications(state notification.State) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.Exec("DELETE FROM notifications"); err != nil {
		return fmt.Errorf("clearing notifications: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO notifications
		(position, id, type, title, detail, created_at, link, unread, raw)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range state.Items {
		raw, rawErr := encodeRaw(r.Raw)
		if rawErr != nil {
			slog.Warn("dropping unencodable raw payload", "id", r.ID, "error", rawErr)
		}
		if _, err = stmt.Exec(i, r.ID, r.Type, r.Title, r.Detail, r.CreatedAt, r.Link,
			boolToInt(r.Unread), raw); err != nil {
			return fmt.Errorf("inserting notification %q: %w", r.ID, err)
		}
	}

	if _, err = tx.Exec(`INSERT INTO notification_state (singleton, unread, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(singleton) DO UPDATE SET unread = excluded.unread, updated_at = excluded.updated_at`,
		state.Unread, formatTime(time.Now())); err != nil {
		return fmt.Errorf("saving unread counter: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot: %w", err)
	}
	return nil
}

// LoadNotifications reads the stored window, newest first.
func (s *SQLiteStore) LoadNotifications() (notification.State, error) {
	var state notification.State

	err := s.db.QueryRow("SELECT unread FROM notification_state WHERE singleton = 1").Scan(&state.Unread)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return state, fmt.Errorf("reading unread counter: %w", err)
	}

	rows, err := s.db.Query(`SELECT id, type, title, detail, created_at, link, unread, raw
		FROM notifications ORDER BY position ASC`)
	if err != nil {
		return state, fmt.Errorf("listing notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		r, err := scanNotification(rows)
		if err != nil {
			return state, err
		}
		state.Items = append(state.Items, r)
	}
	return state, rows.Err()
}

// --- Helpers ---

func scanNotification(rows *sql.Rows) (notification.Record, error) {
	var r notification.Record
	var unread int
	var raw string

	if err := rows.Scan(&r.ID, &r.Type, &r.Title, &r.Detail, &r.CreatedAt, &r.Link, &unread, &raw); err != nil {
		return r, fmt.Errorf("scanning notification: %w", err)
	}

	r.Unread = unread != 0
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &r.Raw); err != nil {
			slog.Warn("ignoring corrupt raw payload", "id", r.ID, "error", err)
			r.Raw = nil
		}
	}
	return r, nil
}

func encodeRaw(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeFormat)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
