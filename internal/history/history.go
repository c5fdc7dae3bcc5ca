// Package history persists an audit trail of processed utterances and the
// decisions made on them in a SQLite database. History is advisory:
// persistence failures never block request handling.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Decision values recorded per command.
const (
	DecisionBlocked   = "blocked"
	DecisionPending   = "pending_confirmation"
	DecisionConfirmed = "confirmed"
	DecisionExecuted  = "executed"
	DecisionStarted   = "started"
)

// Record is one audit entry.
type Record struct {
	Timestamp time.Time
	SessionID string
	Utterance string
	Command   string
	Decision  string
	Detail    string
}

// Store wraps the history database. A nil *Store is a valid no-op store, so
// callers don't need to branch when history is disabled.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens the history database at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		session_id TEXT,
		utterance TEXT,
		command TEXT,
		decision TEXT NOT NULL,
		detail TEXT
	);`)
	if err != nil {
		return fmt.Errorf("init history schema: %w", err)
	}
	return nil
}

// Save inserts a record. No-op on a nil store.
func (s *Store) Save(rec Record) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT INTO commands
		(timestamp, session_id, utterance, command, decision, detail)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ts.Format(time.RFC3339),
		rec.SessionID,
		rec.Utterance,
		rec.Command,
		rec.Decision,
		rec.Detail,
	)
	return err
}

// Records returns entries newest first. limit <= 0 means no limit; search
// filters on utterance or command substring.
func (s *Store) Records(limit int, search string) ([]Record, error) {
	if s == nil {
		return nil, nil
	}

	var b strings.Builder
	b.WriteString("SELECT timestamp, session_id, utterance, command, decision, detail FROM commands")
	var args []any
	if search != "" {
		b.WriteString(" WHERE utterance LIKE ? OR command LIKE ?")
		args = append(args, "%"+search+"%", "%"+search+"%")
	}
	b.WriteString(" ORDER BY id DESC")
	if limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, limit)
	}

	rows, err := s.db.Query(b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var ts string
		if err := rows.Scan(&ts, &rec.SessionID, &rec.Utterance, &rec.Command, &rec.Decision, &rec.Detail); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			rec.Timestamp = t
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the database. No-op on a nil store.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}
