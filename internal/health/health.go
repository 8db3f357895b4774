package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/voicetray/vigil/internal/process"
)

// Class is the result classification of one health check.
type Class int

const (
	Healthy Class = iota
	Degraded
	Unhealthy
)

func (c Class) String() string {
	switch c {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	case Unhealthy:
		return "unhealthy"
	}
	return "unknown"
}

// Status is computed fresh on every monitoring tick and never persisted as
// authoritative truth beyond it.
type Status struct {
	Class  Class
	Reason string

	processGone bool
}

// ProcessGone reports whether the check failed at the process-table layer,
// meaning the pid no longer exists at all.
func (s Status) ProcessGone() bool { return s.processGone }

// Defaults for Config zero values.
const (
	DefaultProbeTimeout        = 2 * time.Second
	DefaultEscalationThreshold = 3
)

// Config tunes a Monitor.
type Config struct {
	// ProbeURL is the process's local liveness endpoint. Empty disables the
	// endpoint layer, leaving only the process-table check (autotype client).
	ProbeURL string `mapstructure:"probe_url"`
	// ProbeTimeout bounds the slowest check layer.
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	// EscalationThreshold is the number of consecutive endpoint failures
	// after which Degraded escalates to Unhealthy.
	EscalationThreshold int `mapstructure:"escalation_threshold"`
}

func (c Config) withDefaults() Config {
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.EscalationThreshold <= 0 {
		c.EscalationThreshold = DefaultEscalationThreshold
	}
	return c
}

// Monitor classifies a running process through layered checks: process-table
// presence first, then a bounded-timeout HTTP probe. Endpoint flakiness is
// tolerated as Degraded until EscalationThreshold consecutive failures; a
// single healthy reading resets the streak. The escalation counter is local
// to the monitor, independent of any circuit breaker the supervisor keeps.
type Monitor struct {
	cfg       Config
	inspector process.Inspector
	client    *resty.Client

	mu          sync.Mutex
	consecFails int
}

func NewMonitor(cfg Config, inspector process.Inspector) *Monitor {
	cfg = cfg.withDefaults()
	client := resty.New().
		SetTimeout(cfg.ProbeTimeout).
		SetRetryCount(0)
	return &Monitor{cfg: cfg, inspector: inspector, client: client}
}

// Check runs the layered health check for pid, short-circuiting on the
// first failing layer. It never blocks longer than the probe timeout.
func (m *Monitor) Check(ctx context.Context, pid int) Status {
	// Layer 1: process table.
	if !m.inspector.IsAlive(pid) {
		m.resetStreak()
		return Status{Class: Unhealthy, Reason: "process not found", processGone: true}
	}

	// Layer 2: liveness endpoint, when configured.
	if m.cfg.ProbeURL == "" {
		return Status{Class: Healthy}
	}
	resp, err := m.client.R().SetContext(ctx).Get(m.cfg.ProbeURL)
	if err == nil && resp.IsSuccess() {
		m.resetStreak()
		return Status{Class: Healthy}
	}

	reason := "endpoint unreachable"
	if err == nil {
		reason = fmt.Sprintf("endpoint returned status %d", resp.StatusCode())
	}
	if m.bumpStreak() >= m.cfg.EscalationThreshold {
		return Status{Class: Unhealthy, Reason: reason + " repeatedly"}
	}
	return Status{Class: Degraded, Reason: reason}
}

// WaitHealthy polls Check every interval until the process reports Healthy,
// the process dies, or ctx expires. Used during startup.
func (m *Monitor) WaitHealthy(ctx context.Context, pid int, interval time.Duration) error {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		st := m.Check(ctx, pid)
		switch {
		case st.Class == Healthy:
			return nil
		case st.ProcessGone():
			return fmt.Errorf("process died during startup")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// ConsecutiveFailures exposes the current endpoint-failure streak.
func (m *Monitor) ConsecutiveFailures() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consecFails
}

func (m *Monitor) bumpStreak() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consecFails++
	return m.consecFails
}

func (m *Monitor) resetStreak() {
	m.mu.Lock()
	m.consecFails = 0
	m.mu.Unlock()
}
