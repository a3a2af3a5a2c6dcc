package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Sentinel errors
var (
	ErrNotFound = errors.New("not found")
)

// isBusyLock reports whether err indicates SQLite database lock (SQLITE_BUSY).
// Handles wrapped errors from database/sql.
func isBusyLock(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "database is locked") || strings.Contains(s, "SQLITE_BUSY")
}

// retryOnBusy runs fn and retries on SQLITE_BUSY with exponential backoff.
func retryOnBusy(fn func() error) error {
	const maxAttempts = 4
	backoff := 25 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil || !isBusyLock(lastErr) {
			return lastErr
		}
		if attempt < maxAttempts-1 {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return lastErr
}

// Build statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusAborted   = "aborted"
)

// Build is one journaled compiler run.
type Build struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	OutputType string    `json:"output_type"`
	OutputPath string    `json:"output_path,omitempty"`
	Status     string    `json:"status"`
	ExitCode   int       `json:"exit_code"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"` // zero while running
}

type Store struct {
	db *sql.DB
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS builds (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	output_type TEXT NOT NULL,
	output_path TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'running',
	exit_code   INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL,
	finished_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_builds_created_at ON builds(created_at);
CREATE INDEX IF NOT EXISTS idx_builds_status ON builds(status);

CREATE TABLE IF NOT EXISTS diagnostics (
	build_id TEXT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
	seq      INTEGER NOT NULL,
	message  TEXT NOT NULL,
	PRIMARY KEY (build_id, seq)
);
`

// DefaultMaxOpenConns is the default connection pool size. WAL mode allows
// readers alongside the single writer.
const DefaultMaxOpenConns = 4

// dsnWithPragmas returns a connection string with WAL, busy_timeout and
// foreign keys applied to every new connection.
func dsnWithPragmas(dbPath string) string {
	// busy_timeout: 5s wait on lock when several tccrun processes share a journal
	// journal_mode=WAL: concurrent reads during writes
	// synchronous=NORMAL: safe in WAL
	return dbPath + "?_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=foreign_keys(1)"
}

// New opens the journal at dbPath, creating the schema if needed.
// maxOpenConns controls the pool size (0 = DefaultMaxOpenConns).
func New(dbPath string, maxOpenConns int) (*Store, error) {
	db, err := sql.Open("sqlite", dsnWithPragmas(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if maxOpenConns <= 0 {
		maxOpenConns = DefaultMaxOpenConns
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxOpenConns)

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateBuild records b as running.
func (s *Store) CreateBuild(b *Build) error {
	if b.Status == "" {
		b.Status = StatusRunning
	}
	err := retryOnBusy(func() error {
		_, e := s.db.Exec(
			`INSERT INTO builds (id, session_id, output_type, output_path, status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			b.ID, b.SessionID, b.OutputType, b.OutputPath, b.Status, b.CreatedAt.UTC(),
		)
		return e
	})
	if err != nil {
		return fmt.Errorf("inserting build: %w", err)
	}
	return nil
}

// FinishBuild stores the outcome of a build.
func (s *Store) FinishBuild(id, status string, exitCode int, errMsg string) error {
	var result sql.Result
	err := retryOnBusy(func() error {
		var e error
		result, e = s.db.Exec(
			`UPDATE builds SET status = ?, exit_code = ?, error = ?, finished_at = ? WHERE id = ?`,
			status, exitCode, errMsg, time.Now().UTC(), id,
		)
		return e
	})
	if err != nil {
		return fmt.Errorf("finishing build: %w", err)
	}
	return checkRowAffected(result, id)
}

// AddDiagnostics appends msgs to the build's diagnostics, continuing the
// existing sequence.
func (s *Store) AddDiagnostics(buildID string, msgs []string) error {
	if len(msgs) == 0 {
		return nil
	}
	err := retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		stmt, err := tx.Prepare(
			`INSERT INTO diagnostics (build_id, seq, message)
			 SELECT ?, COALESCE(MAX(seq) + 1, 0), ? FROM diagnostics WHERE build_id = ?`,
		)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, msg := range msgs {
			if _, err := stmt.Exec(buildID, msg, buildID); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("inserting diagnostics: %w", err)
	}
	return nil
}

func (s *Store) GetBuild(id string) (*Build, error) {
	row := s.db.QueryRow(
		`SELECT id, session_id, output_type, output_path, status, exit_code, error, created_at, finished_at
		 FROM builds WHERE id = ?`, id,
	)
	b, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("build %s: %w", id, ErrNotFound)
	}
	return b, err
}

// ListBuilds returns the most recent builds first. limit <= 0 returns all.
func (s *Store) ListBuilds(limit int) ([]*Build, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(
		`SELECT id, session_id, output_type, output_path, status, exit_code, error, created_at, finished_at
		 FROM builds ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing builds: %w", err)
	}
	defer rows.Close()

	var builds []*Build
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		builds = append(builds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating builds: %w", err)
	}
	return builds, nil
}

// Diagnostics returns the build's diagnostics in emission order.
func (s *Store) Diagnostics(buildID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT message FROM diagnostics WHERE build_id = ? ORDER BY seq`, buildID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing diagnostics: %w", err)
	}
	defer rows.Close()

	var msgs []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scanning diagnostic: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating diagnostics: %w", err)
	}
	return msgs, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanBuild(row scannable) (*Build, error) {
	var b Build
	var finished sql.NullTime
	err := row.Scan(
		&b.ID, &b.SessionID, &b.OutputType, &b.OutputPath, &b.Status,
		&b.ExitCode, &b.Error, &b.CreatedAt, &finished,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("scanning build: %w", err)
	}
	if finished.Valid {
		b.FinishedAt = finished.Time
	}
	return &b, nil
}

func checkRowAffected(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("build %s: %w", id, ErrNotFound)
	}
	return nil
}
