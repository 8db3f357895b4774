package backoff

import (
	"sync"
	"time"
)

// Defaults applied by New for zero-valued config fields.
const (
	DefaultMaxRestarts    = 3
	DefaultRestartWindow  = 5 * time.Minute
	DefaultInitialBackoff = 1 * time.Second
	DefaultMaxBackoff     = 60 * time.Second
)

// Config tunes a restart Policy.
type Config struct {
	MaxRestarts    int           `mapstructure:"max_restarts"`
	RestartWindow  time.Duration `mapstructure:"restart_window"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

func (c Config) withDefaults() Config {
	if c.MaxRestarts <= 0 {
		c.MaxRestarts = DefaultMaxRestarts
	}
	if c.RestartWindow <= 0 {
		c.RestartWindow = DefaultRestartWindow
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = DefaultInitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	return c
}

// Policy bounds restart attempts to MaxRestarts within a sliding
// RestartWindow and computes the exponential backoff before the next
// attempt. Attempts older than the window stop counting, so both the
// limit and the backoff relax as history ages out. Safe for concurrent use.
type Policy struct {
	mu       sync.Mutex
	cfg      Config
	attempts []time.Time
	now      func() time.Time
}

func New(cfg Config) *Policy {
	return &Policy{cfg: cfg.withDefaults(), now: time.Now}
}

// ShouldRestart prunes attempts that fell out of the window and reports
// whether another restart is still allowed. It does not record an attempt;
// callers invoke RecordAttempt exactly once per restart actually performed.
func (p *Policy) ShouldRestart() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pruneLocked()
	return len(p.attempts) < p.cfg.MaxRestarts
}

// NextBackoff returns min(initial * 2^attempts, max) for the current
// in-window attempt count.
func (p *Policy) NextBackoff() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pruneLocked()
	d := p.cfg.InitialBackoff
	for i := 0; i < len(p.attempts); i++ {
		d *= 2
		if d >= p.cfg.MaxBackoff {
			return p.cfg.MaxBackoff
		}
	}
	if d > p.cfg.MaxBackoff {
		d = p.cfg.MaxBackoff
	}
	return d
}

// RecordAttempt appends the current time to the attempt history.
func (p *Policy) RecordAttempt() {
	p.mu.Lock()
	p.attempts = append(p.attempts, p.now())
	p.mu.Unlock()
}

// Attempts returns the number of restarts still inside the window.
func (p *Policy) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pruneLocked()
	return len(p.attempts)
}

// Reset clears the attempt history.
func (p *Policy) Reset() {
	p.mu.Lock()
	p.attempts = nil
	p.mu.Unlock()
}

func (p *Policy) pruneLocked() {
	cutoff := p.now().Add(-p.cfg.RestartWindow)
	kept := p.attempts[:0]
	for _, t := range p.attempts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	p.attempts = kept
}
