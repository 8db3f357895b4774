package breaker

import (
	"log/slog"
	"sync"
	"time"
)

// State of the circuit breaker.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Default thresholds used when the zero value is passed to New.
const (
	DefaultFailureThreshold = 3
	DefaultSuccessThreshold = 2
	DefaultResetTimeout     = 30 * time.Second
)

// Config tunes a Breaker.
type Config struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	SuccessThreshold int           `mapstructure:"success_threshold"`
	ResetTimeout     time.Duration `mapstructure:"reset_timeout"`
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = DefaultSuccessThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	return c
}

// Breaker gates start attempts against a repeatedly failing process.
// Closed admits everything; Open rejects until the reset timeout has
// elapsed since the last failure; HalfOpen admits trial attempts and
// closes again only after SuccessThreshold consecutive successes.
// The zero value is not usable; construct with New. Safe for concurrent use.
type Breaker struct {
	mu          sync.Mutex
	cfg         Config
	state       State
	failures    int
	successes   int
	lastFailure time.Time
	now         func() time.Time
}

func New(cfg Config) *Breaker {
	return &Breaker{cfg: cfg.withDefaults(), state: Closed, now: time.Now}
}

// CanProceed reports whether a new start attempt is admitted. While Open,
// the first call after the reset timeout flips the breaker to HalfOpen and
// returns true.
func (b *Breaker) CanProceed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Closed, HalfOpen:
		return true
	case Open:
		if b.now().Sub(b.lastFailure) >= b.cfg.ResetTimeout {
			slog.Info("circuit breaker half-open after reset timeout")
			b.state = HalfOpen
			b.successes = 0
			return true
		}
		return false
	}
	return false
}

// RecordSuccess notes a healthy observation.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case Closed:
		b.failures = 0
	case HalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			slog.Info("circuit breaker closed after recovery", "successes", b.successes)
			b.state = Closed
			b.failures = 0
			b.successes = 0
		}
	case Open:
		// Success while open means the reset window raced a probe; treat as trial.
		b.state = HalfOpen
		b.successes = 1
	}
}

// RecordFailure notes an unhealthy observation or failed start attempt.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFailure = b.now()
	switch b.state {
	case Closed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			slog.Warn("circuit breaker opened", "failures", b.failures)
			b.state = Open
		}
	case HalfOpen:
		slog.Warn("circuit breaker reopened after half-open failure")
		b.state = Open
		b.failures++
		b.successes = 0
	case Open:
		b.failures++
	}
}

// Reset returns the breaker to Closed and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	b.state = Closed
	b.failures = 0
	b.successes = 0
	b.lastFailure = time.Time{}
	b.mu.Unlock()
}

// State returns the current state without side effects.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the current failure count, mostly for diagnostics.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
