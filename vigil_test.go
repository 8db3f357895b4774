package vigil

import (
	"context"
	"testing"
	"time"

	"github.com/voicetray/vigil/internal/process"
	"github.com/voicetray/vigil/internal/supervisor"
)

func TestFacadeLifecycle(t *testing.T) {
	m := New(Config{
		Server:   supervisor.Config{Spec: process.Spec{Name: "server", Command: "sleep 1"}},
		Autotype: supervisor.Config{Spec: process.Spec{Name: "autotype", Command: "sleep 1"}},
	}, nil)

	sts := m.Statuses()
	if len(sts) != 2 {
		t.Fatalf("Statuses() returned %d entries", len(sts))
	}
	for _, st := range sts {
		if st.Status.State != "stopped" {
			t.Fatalf("initial state for %s = %s", st.Service, st.Status.State)
		}
	}

	ch, cancel := m.Events()
	defer cancel()
	select {
	case <-ch:
		t.Fatalf("unexpected event before any operation")
	default:
	}

	ctx, cancelCtx := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelCtx()
	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
}

func TestNewStoreSQLite(t *testing.T) {
	sink, err := NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}
