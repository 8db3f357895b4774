package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voicetray/vigil/internal/backoff"
	"github.com/voicetray/vigil/internal/breaker"
	"github.com/voicetray/vigil/internal/events"
	"github.com/voicetray/vigil/internal/health"
	"github.com/voicetray/vigil/internal/logcapture"
	"github.com/voicetray/vigil/internal/logstore"
	"github.com/voicetray/vigil/internal/metrics"
	"github.com/voicetray/vigil/internal/process"
)

// Defaults for Config zero values.
const (
	DefaultStartupTimeout = 15 * time.Second
	DefaultHealthInterval = 10 * time.Second
	DefaultStopGrace      = 5 * time.Second
)

// Config describes one supervised service.
type Config struct {
	Service        events.ServiceType
	Spec           process.Spec
	StartupTimeout time.Duration
	HealthInterval time.Duration
	StopGrace      time.Duration
	AutoRestart    bool
	Breaker        breaker.Config
	Restart        backoff.Config
	Health         health.Config
}

func (c Config) withDefaults() Config {
	if c.StartupTimeout <= 0 {
		c.StartupTimeout = DefaultStartupTimeout
	}
	if c.HealthInterval <= 0 {
		c.HealthInterval = DefaultHealthInterval
	}
	if c.StopGrace <= 0 {
		c.StopGrace = DefaultStopGrace
	}
	return c
}

type action int

const (
	actionStart action = iota
	actionStop
	actionRestart
	actionShutdown
)

type result struct {
	pid int
	err error
}

type command struct {
	action action
	reply  chan result
}

// Supervisor owns one managed process's full lifecycle: start, graceful
// then forced stop, policy-gated restart, and the background monitoring
// loop. All lifecycle operations and monitoring ticks run on one owning
// goroutine, fed through a command channel, so no two operations ever
// race on the same process.
//
// State machine:
//
//	stopped -> starting -> running -> stopping -> stopped
//
// Starting and running may fall into error (terminal until an explicit
// start); stop from error with a live handle passes through stopping.
type Supervisor struct {
	cfg        Config
	brk        *breaker.Breaker
	policy     *backoff.Policy
	monitor    *health.Monitor
	controller process.Controller
	inspector  process.Inspector
	sink       logstore.Sink
	bus        *events.Bus

	cmdChan  chan command
	doneChan chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc

	mu     sync.RWMutex
	status events.Status
	handle *process.Handle
}

// New builds a supervisor and starts its owning goroutine. sink may be nil
// (no log persistence); bus must not be nil.
func New(cfg Config, bus *events.Bus, sink logstore.Sink) *Supervisor {
	return newWith(cfg, bus, sink, process.OSController{}, process.OSInspector{})
}

// newWith injects the process capabilities; tests substitute fakes.
func newWith(cfg Config, bus *events.Bus, sink logstore.Sink, ctl process.Controller, insp process.Inspector) *Supervisor {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		cfg:        cfg,
		brk:        breaker.New(cfg.Breaker),
		policy:     backoff.New(cfg.Restart),
		monitor:    health.NewMonitor(cfg.Health, insp),
		controller: ctl,
		inspector:  insp,
		sink:       sink,
		bus:        bus,
		cmdChan:    make(chan command, 16),
		doneChan:   make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
		status:     events.Status{State: events.StateStopped},
	}
	go s.run()
	return s
}

// Start launches the process and waits until it first reports healthy.
// Returns the PID on success.
func (s *Supervisor) Start(ctx context.Context) (int, error) {
	r, err := s.send(ctx, actionStart)
	if err != nil {
		return 0, err
	}
	return r.pid, r.err
}

// Stop terminates the process, gracefully then forcefully. Stopping an
// already-stopped service is a no-op.
func (s *Supervisor) Stop(ctx context.Context) error {
	r, err := s.send(ctx, actionStop)
	if err != nil {
		return err
	}
	return r.err
}

// Restart stops then starts the process, gated by the restart policy.
func (s *Supervisor) Restart(ctx context.Context) (int, error) {
	r, err := s.send(ctx, actionRestart)
	if err != nil {
		return 0, err
	}
	return r.pid, r.err
}

// Shutdown stops monitoring and best-effort stops the process.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	r, err := s.send(ctx, actionShutdown)
	if err != nil {
		return err
	}
	<-s.doneChan
	return r.err
}

// Status returns the current lifecycle status.
func (s *Supervisor) Status() events.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// PID returns the live process identifier, or 0 when not running.
func (s *Supervisor) PID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.handle == nil {
		return 0
	}
	return s.handle.PID
}

func (s *Supervisor) send(ctx context.Context, a action) (result, error) {
	reply := make(chan result, 1)
	select {
	case s.cmdChan <- command{action: a, reply: reply}:
	case <-s.doneChan:
		return result{}, ErrShuttingDown
	case <-ctx.Done():
		return result{}, ctx.Err()
	}
	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		// The command still runs to completion on the owning goroutine;
		// the caller just stops waiting for it.
		return result{}, ctx.Err()
	case <-s.doneChan:
		// The owning goroutine may have replied just before exiting.
		select {
		case r := <-reply:
			return r, nil
		default:
		}
		return result{}, ErrShuttingDown
	}
}

// run is the owning goroutine: commands serialize lifecycle operations,
// the ticker drives health monitoring while running.
func (s *Supervisor) run() {
	defer close(s.doneChan)
	ticker := time.NewTicker(s.cfg.HealthInterval)
	defer ticker.Stop()
	for {
		select {
		case cmd := <-s.cmdChan:
			switch cmd.action {
			case actionStart:
				pid, err := s.doStart()
				cmd.reply <- result{pid: pid, err: err}
			case actionStop:
				cmd.reply <- result{err: s.doStop()}
			case actionRestart:
				pid, err := s.doRestart()
				cmd.reply <- result{pid: pid, err: err}
			case actionShutdown:
				err := s.doStop()
				s.cancel()
				cmd.reply <- result{err: err}
				return
			}
		case <-ticker.C:
			s.checkHealth()
		}
	}
}

func (s *Supervisor) doStart() (int, error) {
	st := s.Status()
	switch st.State {
	case events.StateStopped, events.StateError:
		// allowed
	case events.StateRunning, events.StateStarting:
		return 0, fmt.Errorf("service %s is already %s", s.cfg.Service, st.State)
	case events.StateStopping:
		return 0, fmt.Errorf("service %s is stopping, wait for it to finish", s.cfg.Service)
	}

	if !s.brk.CanProceed() {
		return 0, ErrCircuitOpen
	}

	// A start out of the error state may leave a dead handle behind.
	s.clearHandle()

	s.setStatus(events.Status{State: events.StateStarting}, "starting "+s.cfg.Spec.Name, 0)
	slog.Info("starting supervised process", "service", s.cfg.Service, "command", s.cfg.Spec.Command)

	h, err := process.Spawn(s.cfg.Spec)
	if err != nil {
		s.brk.RecordFailure()
		s.publishBreakerState()
		reason := fmt.Sprintf("spawn failed: %v", err)
		s.setStatus(events.Status{State: events.StateError, Reason: reason}, reason, 0)
		s.emitError("spawn", reason, err.Error(), false)
		return 0, fmt.Errorf("%w: %v", ErrSpawn, err)
	}
	s.setHandle(h)
	s.attachCapture(h)

	hctx, cancel := context.WithTimeout(s.ctx, s.cfg.StartupTimeout)
	err = s.monitor.WaitHealthy(hctx, h.PID, 500*time.Millisecond)
	cancel()
	if err != nil {
		s.brk.RecordFailure()
		s.publishBreakerState()
		s.terminateHandle(h)
		s.clearHandle()
		reason := fmt.Sprintf("never became healthy within %s", s.cfg.StartupTimeout)
		s.setStatus(events.Status{State: events.StateError, Reason: reason}, reason, 0)
		s.emitError("health_timeout", reason, err.Error(), true)
		return 0, fmt.Errorf("%w: %v", ErrHealthTimeout, err)
	}

	s.brk.RecordSuccess()
	s.publishBreakerState()
	s.setStatus(events.Status{State: events.StateRunning}, fmt.Sprintf("running with pid %d", h.PID), h.PID)
	s.notify("Service Started", fmt.Sprintf("%s is now running (pid %d)", s.cfg.Spec.Name, h.PID), "info")
	metrics.IncStart(string(s.cfg.Service))
	slog.Info("supervised process running", "service", s.cfg.Service, "pid", h.PID)
	return h.PID, nil
}

func (s *Supervisor) doStop() error {
	st := s.Status()
	h := s.currentHandle()
	if st.State == events.StateStopped {
		return nil // idempotent
	}
	if h == nil {
		// Error state without a live handle clears straight to stopped.
		s.setStatus(events.Status{State: events.StateStopped}, "", 0)
		return nil
	}

	s.setStatus(events.Status{State: events.StateStopping}, "stopping "+s.cfg.Spec.Name, h.PID)
	s.terminateHandle(h)
	s.clearHandle()
	s.setStatus(events.Status{State: events.StateStopped}, "stopped", 0)
	s.notify("Service Stopped", s.cfg.Spec.Name+" has been stopped", "info")
	metrics.IncStop(string(s.cfg.Service))
	slog.Info("supervised process stopped", "service", s.cfg.Service)
	return nil
}

// terminateHandle delivers SIGTERM, waits out the grace period, then kills.
// Signal errors are logged, never propagated; the process may already be dead.
func (s *Supervisor) terminateHandle(h *process.Handle) {
	if err := s.controller.TerminateGracefully(h.PID); err != nil {
		slog.Debug("graceful termination signal failed", "service", s.cfg.Service, "pid", h.PID, "error", err)
	}
	select {
	case <-h.Done():
		return
	case <-time.After(s.cfg.StopGrace):
	}
	slog.Warn("process did not exit within grace period, killing", "service", s.cfg.Service, "pid", h.PID)
	if err := s.controller.Kill(h.PID); err != nil {
		slog.Debug("kill signal failed", "service", s.cfg.Service, "pid", h.PID, "error", err)
	}
	select {
	case <-h.Done():
	case <-time.After(200 * time.Millisecond):
		// best-effort
	}
}

func (s *Supervisor) doRestart() (int, error) {
	// An open breaker rejects the restart before it has any side effects:
	// no attempt is recorded, no backoff is slept, and the current status
	// (including a terminal error) stays as it is.
	if !s.brk.CanProceed() {
		return 0, ErrCircuitOpen
	}
	if !s.policy.ShouldRestart() {
		reason := "restart limit exceeded"
		s.setStatus(events.Status{State: events.StateError, Reason: reason}, reason, 0)
		s.emitError("restart_limit", reason, "", false)
		if h := s.currentHandle(); h != nil {
			s.terminateHandle(h)
			s.clearHandle()
		}
		return 0, ErrRestartLimit
	}
	delay := s.policy.NextBackoff()
	s.policy.RecordAttempt()
	metrics.IncRestart(string(s.cfg.Service))

	if err := s.doStop(); err != nil {
		return 0, err
	}
	if delay > 0 {
		slog.Info("waiting before restart", "service", s.cfg.Service, "backoff", delay)
		select {
		case <-time.After(delay):
		case <-s.ctx.Done():
			return 0, s.ctx.Err()
		}
	}
	return s.doStart()
}

// checkHealth is one monitoring tick. It no-ops unless the service is
// running, so a user stop that raced the ticker wins.
func (s *Supervisor) checkHealth() {
	if s.Status().State != events.StateRunning {
		return
	}
	h := s.currentHandle()
	if h == nil {
		return
	}
	st := s.monitor.Check(s.ctx, h.PID)
	metrics.ObserveHealth(string(s.cfg.Service), st.Class.String())

	switch st.Class {
	case health.Healthy:
		s.brk.RecordSuccess()
		s.publishBreakerState()
	case health.Degraded:
		slog.Warn("supervised process degraded", "service", s.cfg.Service, "reason", st.Reason)
		s.notify("Service Degraded", st.Reason, "warning")
	case health.Unhealthy:
		slog.Error("supervised process unhealthy", "service", s.cfg.Service, "reason", st.Reason)
		s.brk.RecordFailure()
		s.publishBreakerState()
		s.emitError("health", "service unhealthy: "+st.Reason, "", true)
		if s.cfg.AutoRestart && s.brk.CanProceed() {
			s.notify("Auto-Restart", "service unhealthy, attempting automatic restart", "warning")
			if _, err := s.doRestart(); err != nil {
				slog.Error("auto-restart failed", "service", s.cfg.Service, "error", err)
				reason := fmt.Sprintf("auto-restart failed: %v", err)
				s.setStatus(events.Status{State: events.StateError, Reason: reason}, reason, 0)
				s.emitError("restart", reason, "", false)
			}
		} else {
			reason := "unhealthy and restart not permitted: " + st.Reason
			s.setStatus(events.Status{State: events.StateError, Reason: reason}, reason, 0)
			if h := s.currentHandle(); h != nil {
				s.terminateHandle(h)
				s.clearHandle()
			}
		}
	}
}

func (s *Supervisor) attachCapture(h *process.Handle) {
	mirrorOut, mirrorErr := s.cfg.Spec.Log.Writers(s.cfg.Spec.Name)
	lc := logcapture.New(string(s.cfg.Service), s.sink)
	lc.Attach(h.Stdout(), h.Stderr(), mirrorOut, mirrorErr)
}

func (s *Supervisor) setHandle(h *process.Handle) {
	s.mu.Lock()
	s.handle = h
	s.mu.Unlock()
}

func (s *Supervisor) currentHandle() *process.Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handle
}

func (s *Supervisor) clearHandle() {
	s.mu.Lock()
	s.handle = nil
	s.mu.Unlock()
}

func (s *Supervisor) setStatus(st events.Status, message string, pid int) {
	s.mu.Lock()
	old := s.status
	s.status = st
	s.mu.Unlock()
	metrics.RecordStateTransition(string(s.cfg.Service), string(old.State), string(st.State))
	s.bus.Publish(events.NewStatusUpdate(s.cfg.Service, st, message, pid))
}

func (s *Supervisor) emitError(errorType, message, details string, recoverable bool) {
	s.bus.Publish(events.NewError(errorType, message, details, "supervisor/"+string(s.cfg.Service), recoverable))
}

func (s *Supervisor) notify(title, message, level string) {
	s.bus.Publish(events.NewNotification(title, message, level, string(s.cfg.Service)))
}

func (s *Supervisor) publishBreakerState() {
	metrics.SetBreakerState(string(s.cfg.Service), int(s.brk.State()))
}
