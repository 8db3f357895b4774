package manager

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/voicetray/vigil/internal/events"
	"github.com/voicetray/vigil/internal/process"
	"github.com/voicetray/vigil/internal/supervisor"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test relies on unix shell commands")
	}
	m := New(Config{
		Server: supervisor.Config{
			Spec:      process.Spec{Name: "server", Command: "sleep 30"},
			StopGrace: 2 * time.Second,
		},
		Autotype: supervisor.Config{
			Spec:      process.Spec{Name: "autotype", Command: "sleep 30"},
			StopGrace: 2 * time.Second,
		},
	}, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})
	return m
}

func TestManagerIndependentLifecycles(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	pid, err := m.StartServer(ctx)
	if err != nil {
		t.Fatalf("StartServer failed: %v", err)
	}
	if pid <= 0 {
		t.Fatalf("StartServer pid = %d", pid)
	}
	if st := m.AutotypeStatus(); st.Status.State != events.StateStopped {
		t.Fatalf("autotype state = %s, want stopped", st.Status.State)
	}

	if _, err := m.StartAutotype(ctx); err != nil {
		t.Fatalf("StartAutotype failed: %v", err)
	}

	// Stopping one service leaves the other running.
	if err := m.StopServer(ctx); err != nil {
		t.Fatalf("StopServer failed: %v", err)
	}
	if st := m.ServerStatus(); st.Status.State != events.StateStopped {
		t.Fatalf("server state = %s, want stopped", st.Status.State)
	}
	if st := m.AutotypeStatus(); st.Status.State != events.StateRunning {
		t.Fatalf("autotype state = %s, want running", st.Status.State)
	}
}

func TestManagerStatusesAndEvents(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	ch, cancelSub := m.Events().Subscribe()
	defer cancelSub()

	if _, err := m.StartServer(ctx); err != nil {
		t.Fatalf("StartServer failed: %v", err)
	}

	sts := m.Statuses()
	if len(sts) != 2 || sts[0].Service != events.ServiceServer || sts[1].Service != events.ServiceAutotype {
		t.Fatalf("unexpected Statuses() = %+v", sts)
	}

	// Starting must have published starting and running status updates.
	var sawRunning bool
	timeout := time.After(2 * time.Second)
	for !sawRunning {
		select {
		case e := <-ch:
			if e.Type == events.KindStatusUpdate && e.Status.Status.State == events.StateRunning {
				sawRunning = true
			}
		case <-timeout:
			t.Fatalf("no running status update observed")
		}
	}
}

func TestManagerShutdownIsTerminal(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	if err := m.StartAll(ctx); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if _, err := m.StartServer(ctx); err == nil {
		t.Fatalf("StartServer after Shutdown should fail")
	}
}
