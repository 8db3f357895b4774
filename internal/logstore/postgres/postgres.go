package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/voicetray/vigil/internal/logstore"
)

// DB implements logstore.Sink for PostgreSQL via the pgx stdlib driver.
type DB struct {
	db *sql.DB
}

func New(dsn string) (*DB, error) {
	d, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	p := &DB{db: d}
	if err := p.ensureSchema(context.Background()); err != nil {
		_ = d.Close()
		return nil, err
	}
	return p, nil
}

func (p *DB) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS log_entries(
			id TEXT PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			level TEXT NOT NULL,
			component TEXT NOT NULL,
			message TEXT NOT NULL,
			fields JSONB NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_log_entries_component ON log_entries(component);`,
		`CREATE INDEX IF NOT EXISTS idx_log_entries_ts ON log_entries(ts);`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (p *DB) Append(ctx context.Context, e logstore.Entry) error {
	var fields any
	if len(e.Fields) > 0 {
		b, err := json.Marshal(e.Fields)
		if err == nil {
			fields = string(b)
		}
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO log_entries(id, ts, level, component, message, fields)
		VALUES($1,$2,$3,$4,$5,$6)
		ON CONFLICT(id) DO NOTHING;`,
		e.ID, e.Timestamp.UTC(), e.Level, e.Component, e.Message, fields)
	return err
}

// Recent returns up to limit entries for a component, newest first.
func (p *DB) Recent(ctx context.Context, component string, limit int) ([]logstore.Entry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, ts, level, component, message, COALESCE(fields::text, '')
		FROM log_entries WHERE component = $1 ORDER BY ts DESC LIMIT $2;`,
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

func (p *DB) Close() error { return p.db.Close() }
