// Package sqlite provides an aviator.Journal backed by a local SQLite
// database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/zoobzio/aviator"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// DefaultLimit caps history queries that pass no limit.
const DefaultLimit = 100

// Journal records committed transitions and flag changes.
type Journal struct {
	db *sql.DB
}

// New opens/creates a SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Journal, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1) // SQLite is not concurrent for writes
	j := &Journal{db: db}
	if err := j.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// Close closes the database.
func (j *Journal) Close() error { return j.db.Close() }

func (j *Journal) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS commits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			from_value REAL NOT NULL,
			target REAL NOT NULL,
			started_at INTEGER NOT NULL,
			completed_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_commits_session ON commits(session_id, id DESC);`,

		`CREATE TABLE IF NOT EXISTS flag_changes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			flag INTEGER NOT NULL,
			at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_flag_changes_session ON flag_changes(session_id, id DESC);`,
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// RecordCommit implements aviator.Journal.
func (j *Journal) RecordCommit(ctx context.Context, c aviator.Commit) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO commits(session_id, from_value, target, started_at, completed_at) VALUES(?, ?, ?, ?, ?)`,
		c.SessionID, c.From, c.Target, c.StartedAt.UnixNano(), c.CompletedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("record commit: %w", err)
	}
	return nil
}

// RecordFlag implements aviator.Journal.
func (j *Journal) RecordFlag(ctx context.Context, f aviator.FlagChange) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO flag_changes(session_id, flag, at) VALUES(?, ?, ?)`,
		f.SessionID, f.Flag, f.At.UnixNano())
	if err != nil {
		return fmt.Errorf("record flag change: %w", err)
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return DefaultLimit
	}
	return limit
}

// Recent returns the most recent commits of a session, newest first.
func (j *Journal) Recent(ctx context.Context, sessionID string, limit int) ([]aviator.Commit, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT session_id, from_value, target, started_at, completed_at
		FROM commits WHERE session_id=?
		ORDER BY id DESC LIMIT ?`,
		sessionID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []aviator.Commit
	for rows.Next() {
		var c aviator.Commit
		var started, completed int64
		if err := rows.Scan(&c.SessionID, &c.From, &c.Target, &started, &completed); err != nil {
			return nil, err
		}
		c.StartedAt = time.Unix(0, started).UTC()
		c.CompletedAt = time.Unix(0, completed).UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// Flags returns the most recent flag changes of a session, newest first.
func (j *Journal) Flags(ctx context.Context, sessionID string, limit int) ([]aviator.FlagChange, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT session_id, flag, at
		FROM flag_changes WHERE session_id=?
		ORDER BY id DESC LIMIT ?`,
		sessionID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []aviator.FlagChange
	for rows.Next() {
		var f aviator.FlagChange
		var at int64
		if err := rows.Scan(&f.SessionID, &f.Flag, &at); err != nil {
			return nil, err
		}
		f.At = time.Unix(0, at).UTC()
		out = append(out, f)
	}
	return out, rows.Err()
}

// Ensure Journal implements aviator.Journal.
var _ aviator.Journal = (*Journal)(nil)
