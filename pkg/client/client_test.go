package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newFakeDaemon(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/server/start", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(okResp{OK: true, PID: 4242})
	})
	mux.HandleFunc("POST /api/server/stop", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(okResp{OK: true})
	})
	mux.HandleFunc("POST /api/autotype/start", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(errorResp{Error: "circuit breaker is open"})
	})
	mux.HandleFunc("GET /api/server/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ServiceStatus{
			Service: ServiceServer,
			Status:  Status{State: "running"},
			PID:     4242,
		})
	})
	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]ServiceStatus{
			{Service: ServiceServer, Status: Status{State: "running"}, PID: 4242},
			{Service: ServiceAutotype, Status: Status{State: "stopped"}},
		})
	})
	mux.HandleFunc("GET /api/events", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"1","type":"status_update","timestamp":"2026-01-02T03:04:05Z"}]`))
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestClientLifecycleCalls(t *testing.T) {
	ts := newFakeDaemon(t)
	c := New(Config{BaseURL: ts.URL + "/api"})
	ctx := context.Background()

	pid, err := c.Start(ctx, ServiceServer)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if pid != 4242 {
		t.Fatalf("Start pid = %d", pid)
	}
	if err := c.Stop(ctx, ServiceServer); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	st, err := c.Status(ctx, ServiceServer)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if st.Status.State != "running" || st.PID != 4242 {
		t.Fatalf("Status = %+v", st)
	}

	sts, err := c.Statuses(ctx)
	if err != nil {
		t.Fatalf("Statuses failed: %v", err)
	}
	if len(sts) != 2 || sts[1].Service != ServiceAutotype {
		t.Fatalf("Statuses = %+v", sts)
	}

	evs, err := c.Events(ctx, 10)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(evs) != 1 || evs[0].Type != "status_update" {
		t.Fatalf("Events = %+v", evs)
	}
}

func TestClientSurfacesDaemonError(t *testing.T) {
	ts := newFakeDaemon(t)
	c := New(Config{BaseURL: ts.URL + "/api"})

	_, err := c.Start(context.Background(), ServiceAutotype)
	if err == nil || !strings.Contains(err.Error(), "circuit breaker") {
		t.Fatalf("Start error = %v, want daemon error message", err)
	}
}

func TestClientDefaults(t *testing.T) {
	c := New(Config{})
	if c.rc.BaseURL != DefaultConfig().BaseURL {
		t.Fatalf("BaseURL default = %q", c.rc.BaseURL)
	}
}
