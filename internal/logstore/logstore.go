package logstore

import (
	"context"
	"time"
)

// Entry is one captured log line from a supervised process, or an internal
// supervision event worth persisting. Entries are immutable once created;
// retention is the store's concern.
type Entry struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Level     string            `json:"level"`
	Component string            `json:"component"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// Sink is an append-only destination for log entries. Implementations must
// be safe for concurrent use. Callers treat Append as best-effort: a failing
// sink must never take the supervised process down with it.
type Sink interface {
	Append(ctx context.Context, e Entry) error
	Close() error
}
