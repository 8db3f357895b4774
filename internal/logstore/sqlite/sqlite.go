package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/voicetray/vigil/internal/logstore"
)

// DB implements logstore.Sink for SQLite (modernc.org/sqlite driver,
// CGO-free). Path is a filesystem path; use ":memory:" for in-memory.
type DB struct {
	db *sql.DB
}

func New(path string) (*DB, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	s := &DB{db: d}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = d.Close()
		return nil, err
	}
	return s, nil
}

func (s *DB) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS log_entries(
			id TEXT PRIMARY KEY,
			ts TIMESTAMP NOT NULL,
			level TEXT NOT NULL,
			component TEXT NOT NULL,
			message TEXT NOT NULL,
			fields TEXT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_log_entries_component ON log_entries(component);`,
		`CREATE INDEX IF NOT EXISTS idx_log_entries_ts ON log_entries(ts);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *DB) Append(ctx context.Context, e logstore.Entry) error {
	var fields any
	if len(e.Fields) > 0 {
		b, err := json.Marshal(e.Fields)
		if err == nil {
			fields = string(b)
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO log_entries(id, ts, level, component, message, fields)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING;`,
		e.ID, e.Timestamp.UTC(), e.Level, e.Component, e.Message, fields)
	return err
}

// Recent returns up to limit entries for a component, newest first.
// Used by tests and the status API; not part of the Sink contract.
func (s *DB) Recent(ctx context.Context, component string, limit int) ([]logstore.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, level, component, message, COALESCE(fields, '')
		FROM log_entries WHERE component = ? ORDER BY ts DESC LIMIT ?;`,
		component, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []logstore.Entry
	for rows.Next() {
		var e logstore.Entry
		var fields string
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Level, &e.Component, &e.Message, &fields); err != nil {
			return nil, err
		}
		if fields != "" {
			_ = json.Unmarshal([]byte(fields), &e.Fields)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *DB) Close() error { return s.db.Close() }
