// Package vigil supervises the voicetray transcription server and autotype
// client: lifecycle control, layered health monitoring, circuit-broken
// restarts, and captured-output persistence, fronted by a local HTTP API.
package vigil

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/voicetray/vigil/internal/config"
	"github.com/voicetray/vigil/internal/events"
	"github.com/voicetray/vigil/internal/logstore"
	"github.com/voicetray/vigil/internal/logstore/factory"
	"github.com/voicetray/vigil/internal/manager"
	"github.com/voicetray/vigil/internal/metrics"
	iapi "github.com/voicetray/vigil/internal/server"
)

// Re-export core types for embedding consumers. These are aliases, so
// conversions are zero-cost.

type Config = manager.Config

type ServiceStatus = manager.ServiceStatus

type Event = events.Event

type Sink = logstore.Sink

// Manager is a thin facade over internal/manager.Manager, providing a
// stable public API for embedding the supervisor in a host application.
type Manager struct{ inner *manager.Manager }

// New builds a manager from supervisor configs. sink may be nil.
func New(c Config, sink Sink) *Manager {
	return &Manager{inner: manager.New(c, sink)}
}

func (m *Manager) StartServer(ctx context.Context) (int, error)   { return m.inner.StartServer(ctx) }
func (m *Manager) StopServer(ctx context.Context) error           { return m.inner.StopServer(ctx) }
func (m *Manager) RestartServer(ctx context.Context) (int, error) { return m.inner.RestartServer(ctx) }
func (m *Manager) ServerStatus() ServiceStatus                    { return m.inner.ServerStatus() }

func (m *Manager) StartAutotype(ctx context.Context) (int, error) { return m.inner.StartAutotype(ctx) }
func (m *Manager) StopAutotype(ctx context.Context) error         { return m.inner.StopAutotype(ctx) }
func (m *Manager) RestartAutotype(ctx context.Context) (int, error) {
	return m.inner.RestartAutotype(ctx)
}
func (m *Manager) AutotypeStatus() ServiceStatus { return m.inner.AutotypeStatus() }

func (m *Manager) Statuses() []ServiceStatus          { return m.inner.Statuses() }
func (m *Manager) StartAll(ctx context.Context) error { return m.inner.StartAll(ctx) }
func (m *Manager) Shutdown(ctx context.Context) error { return m.inner.Shutdown(ctx) }
func (m *Manager) Events() (<-chan Event, func())     { return m.inner.Events().Subscribe() }
func (m *Manager) RecentEvents(limit int) []Event     { return m.inner.Events().Recent(limit) }

// LoadConfig reads and validates a TOML daemon config.
func LoadConfig(path string) (*cfg.FileConfig, error) { return cfg.Load(path) }

// NewStore opens a captured-log store from a DSN (sqlite path, sqlite://,
// postgres://).
func NewStore(dsn string) (Sink, error) { return factory.NewFromDSN(dsn) }

// NewHTTPServer starts the control API on addr using the given manager.
func NewHTTPServer(addr, basePath string, m *Manager, sink Sink) *http.Server {
	return iapi.NewServer(addr, basePath, m.inner, sink)
}

// Metrics helpers.

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }
