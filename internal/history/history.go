// Package history provides SQLite-backed persistence for routing decisions.
// Every router outcome is appended here so past decisions stay queryable
// after the process exits.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"skillrouter/internal/logging"
)

const schemaVersion = 1

// Record is one routed decision.
type Record struct {
	ID         int64
	RequestID  string
	Timestamp  time.Time
	Query      string
	Skill      string
	Outcome    string // executed, suggested, blocked
	Confidence float64
	Reason     string
}

// Store implements the decision log using a local SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at dbPath. It auto-creates the
// parent directory and runs schema migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection for WAL mode simplicity.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logging.History("decision history open at %s", dbPath)
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("create version table: %w", err)
	}

	var ver int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&ver)
	if err == sql.ErrNoRows {
		ver = 0
	} else if err != nil {
		return fmt.Errorf("read version: %w", err)
	}

	if ver < 1 {
		if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS decisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			query TEXT NOT NULL,
			skill TEXT NOT NULL DEFAULT '',
			outcome TEXT NOT NULL,
			confidence REAL NOT NULL DEFAULT 0,
			reason TEXT NOT NULL DEFAULT ''
		)`); err != nil {
			return fmt.Errorf("create decisions table: %w", err)
		}
		if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_decisions_ts ON decisions(ts)`); err != nil {
			return fmt.Errorf("create ts index: %w", err)
		}
	}

	if _, err := s.db.Exec(`DELETE FROM schema_version`); err != nil {
		return err
	}
	if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, schemaVersion); err != nil {
		return err
	}
	return nil
}

// Append records one decision.
func (s *Store) Append(rec Record) error {
	_, err := s.db.Exec(
		`INSERT INTO decisions (request_id, ts, query, skill, outcome, confidence, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.Timestamp.Unix(), rec.Query, rec.Skill, rec.Outcome, rec.Confidence, rec.Reason,
	)
	if err != nil {
		return fmt.Errorf("append decision: %w", err)
	}
	logging.HistoryDebug("recorded %s decision for %q", rec.Outcome, rec.Query)
	return nil
}

// Recent returns up to limit decisions, newest first.
func (s *Store) Recent(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, request_id, ts, query, skill, outcome, confidence, reason
		 FROM decisions ORDER BY ts DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var ts int64
		if err := rows.Scan(&rec.ID, &rec.RequestID, &ts, &rec.Query, &rec.Skill,
			&rec.Outcome, &rec.Confidence, &rec.Reason); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		rec.Timestamp = time.Unix(ts, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
