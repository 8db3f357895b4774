package manager

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/voicetray/vigil/internal/events"
	"github.com/voicetray/vigil/internal/logstore"
	"github.com/voicetray/vigil/internal/supervisor"
)

// Config pairs the supervisor configurations for the two managed services.
type Config struct {
	Server   supervisor.Config
	Autotype supervisor.Config
}

// ServiceStatus is the externally visible state of one service.
type ServiceStatus struct {
	Service events.ServiceType `json:"service"`
	Status  events.Status      `json:"status"`
	PID     int                `json:"pid,omitempty"`
}

// Manager is the façade over both supervisors. It owns the event bus and
// delegates every lifecycle operation to the supervisor for the named
// service; it holds no lifecycle state of its own.
type Manager struct {
	bus      *events.Bus
	server   *supervisor.Supervisor
	autotype *supervisor.Supervisor
}

// New builds the manager, its event bus, and one supervisor per service.
// sink may be nil to disable log persistence.
func New(cfg Config, sink logstore.Sink) *Manager {
	bus := events.NewBus()
	cfg.Server.Service = events.ServiceServer
	cfg.Autotype.Service = events.ServiceAutotype
	return &Manager{
		bus:      bus,
		server:   supervisor.New(cfg.Server, bus, sink),
		autotype: supervisor.New(cfg.Autotype, bus, sink),
	}
}

// Events exposes the bus for UI subscribers and the control API.
func (m *Manager) Events() *events.Bus { return m.bus }

func (m *Manager) StartServer(ctx context.Context) (int, error) { return m.server.Start(ctx) }

func (m *Manager) StopServer(ctx context.Context) error { return m.server.Stop(ctx) }

func (m *Manager) RestartServer(ctx context.Context) (int, error) { return m.server.Restart(ctx) }

func (m *Manager) ServerStatus() ServiceStatus {
	return ServiceStatus{Service: events.ServiceServer, Status: m.server.Status(), PID: m.server.PID()}
}

func (m *Manager) StartAutotype(ctx context.Context) (int, error) { return m.autotype.Start(ctx) }

func (m *Manager) StopAutotype(ctx context.Context) error { return m.autotype.Stop(ctx) }

func (m *Manager) RestartAutotype(ctx context.Context) (int, error) { return m.autotype.Restart(ctx) }

func (m *Manager) AutotypeStatus() ServiceStatus {
	return ServiceStatus{Service: events.ServiceAutotype, Status: m.autotype.Status(), PID: m.autotype.PID()}
}

// Statuses reports both services, server first.
func (m *Manager) Statuses() []ServiceStatus {
	return []ServiceStatus{m.ServerStatus(), m.AutotypeStatus()}
}

// StartAll starts the server and then the autotype client. A server start
// failure aborts the sequence; autotype depends on the server endpoint.
func (m *Manager) StartAll(ctx context.Context) error {
	if _, err := m.server.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	if _, err := m.autotype.Start(ctx); err != nil {
		return fmt.Errorf("start autotype: %w", err)
	}
	return nil
}

// Shutdown stops both services best-effort, autotype first, then tears
// down the bus. Errors are logged and the shutdown keeps going.
func (m *Manager) Shutdown(ctx context.Context) error {
	var firstErr error
	if err := m.autotype.Shutdown(ctx); err != nil {
		slog.Error("autotype shutdown failed", "error", err)
		firstErr = err
	}
	if err := m.server.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	m.bus.Close()
	return firstErr
}
