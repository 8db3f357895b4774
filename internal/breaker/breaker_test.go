package breaker

import (
	"testing"
	"time"
)

// fakeClock lets tests advance the breaker's notion of time.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(cfg Config) (*Breaker, *fakeClock) {
	b := New(cfg)
	clk := &fakeClock{t: time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)}
	b.now = clk.now
	return b, clk
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 3, ResetTimeout: 30 * time.Second})

	for i := 0; i < 2; i++ {
		b.RecordFailure()
		if !b.CanProceed() {
			t.Fatalf("breaker should still admit after %d failures", i+1)
		}
		if b.State() != Closed {
			t.Fatalf("state after %d failures = %v, want closed", i+1, b.State())
		}
	}

	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("state after 3 failures = %v, want open", b.State())
	}
	if b.CanProceed() {
		t.Fatalf("open breaker must reject before reset timeout")
	}
}

func TestBreakerHalfOpenAfterResetTimeout(t *testing.T) {
	b, clk := newTestBreaker(Config{FailureThreshold: 1, SuccessThreshold: 2, ResetTimeout: 30 * time.Second})

	b.RecordFailure()
	if b.CanProceed() {
		t.Fatalf("breaker should be open")
	}

	clk.advance(29 * time.Second)
	if b.CanProceed() {
		t.Fatalf("reset timeout has not elapsed yet")
	}

	clk.advance(time.Second)
	if !b.CanProceed() {
		t.Fatalf("first check after reset timeout must admit a trial")
	}
	if b.State() != HalfOpen {
		t.Fatalf("state = %v, want half_open", b.State())
	}

	// One success is not enough to close.
	b.RecordSuccess()
	if b.State() != HalfOpen {
		t.Fatalf("state after 1 success = %v, want half_open", b.State())
	}
	b.RecordSuccess()
	if b.State() != Closed {
		t.Fatalf("state after 2 successes = %v, want closed", b.State())
	}
	if b.Failures() != 0 {
		t.Fatalf("failure count should reset on close, got %d", b.Failures())
	}
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	b, clk := newTestBreaker(Config{FailureThreshold: 1, ResetTimeout: time.Second})

	b.RecordFailure()
	clk.advance(time.Second)
	if !b.CanProceed() {
		t.Fatalf("expected half-open trial")
	}

	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("half-open failure must reopen, state = %v", b.State())
	}
	if b.CanProceed() {
		t.Fatalf("freshly reopened breaker must reject")
	}
}

func TestBreakerSuccessInClosedClearsFailures(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 3})

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	if b.Failures() != 0 {
		t.Fatalf("failures = %d, want 0 after success", b.Failures())
	}
	// The count restarts from zero, so two more failures stay closed.
	b.RecordFailure()
	b.RecordFailure()
	if b.State() != Closed {
		t.Fatalf("state = %v, want closed", b.State())
	}
}

func TestBreakerReset(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 1})

	b.RecordFailure()
	if b.State() != Open {
		t.Fatalf("state = %v, want open", b.State())
	}
	b.Reset()
	if b.State() != Closed || b.Failures() != 0 {
		t.Fatalf("reset breaker state = %v failures = %d", b.State(), b.Failures())
	}
	if !b.CanProceed() {
		t.Fatalf("reset breaker must admit")
	}
}

func TestBreakerDefaults(t *testing.T) {
	b := New(Config{})
	if b.cfg.FailureThreshold != DefaultFailureThreshold {
		t.Errorf("failure threshold = %d", b.cfg.FailureThreshold)
	}
	if b.cfg.SuccessThreshold != DefaultSuccessThreshold {
		t.Errorf("success threshold = %d", b.cfg.SuccessThreshold)
	}
	if b.cfg.ResetTimeout != DefaultResetTimeout {
		t.Errorf("reset timeout = %v", b.cfg.ResetTimeout)
	}
}
