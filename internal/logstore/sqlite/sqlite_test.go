package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/voicetray/vigil/internal/logstore"
)

func TestSQLiteAppendAndRecent(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "logs.db"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	base := time.Date(2026, 3, 4, 5, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		e := logstore.Entry{
			ID:        uuid.NewString(),
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Level:     "info",
			Component: "server",
			Message:   fmt.Sprintf("line %d", i),
			Fields:    map[string]string{"stream": "stdout"},
		}
		if err := db.Append(ctx, e); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	got, err := db.Recent(ctx, "server", 3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent returned %d, want 3", len(got))
	}
	if got[0].Message != "line 4" {
		t.Fatalf("newest first expected, got %q", got[0].Message)
	}
	if got[0].Fields["stream"] != "stdout" {
		t.Fatalf("fields not round-tripped: %+v", got[0].Fields)
	}

	// Unknown component yields nothing.
	none, err := db.Recent(ctx, "autotype", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no entries for autotype, got %d", len(none))
	}
}

func TestSQLiteDuplicateIDIgnored(t *testing.T) {
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	e := logstore.Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Level:     "error",
		Component: "server",
		Message:   "once",
	}
	if err := db.Append(ctx, e); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := db.Append(ctx, e); err != nil {
		t.Fatalf("duplicate Append failed: %v", err)
	}
	got, err := db.Recent(ctx, "server", 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("duplicate id stored %d times", len(got))
	}
}

func TestSQLiteEmptyPathRejected(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
