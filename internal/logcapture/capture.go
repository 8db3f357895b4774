package logcapture

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voicetray/vigil/internal/logstore"
)

const maxLineBytes = 256 * 1024

// Capture drains a process's stdout/stderr asynchronously. Each line becomes
// a logstore.Entry tagged with the owning component's name. Store failures
// are logged locally and swallowed; capture must never be a reason the
// supervised process fails. Lines are optionally mirrored to rotating files.
type Capture struct {
	component string
	sink      logstore.Sink
	wg        sync.WaitGroup
}

func New(component string, sink logstore.Sink) *Capture {
	return &Capture{component: component, sink: sink}
}

// Attach starts one drain goroutine per stream. mirrorOut/mirrorErr may be
// nil. Wait returns once both streams hit EOF (process exit closes the pipes).
func (c *Capture) Attach(stdout, stderr io.Reader, mirrorOut, mirrorErr io.WriteCloser) {
	c.wg.Add(2)
	go c.drain(stdout, "info", mirrorOut)
	go c.drain(stderr, "error", mirrorErr)
}

// Wait blocks until both streams are fully drained.
func (c *Capture) Wait() { c.wg.Wait() }

func (c *Capture) drain(r io.Reader, level string, mirror io.WriteCloser) {
	defer c.wg.Done()
	if mirror != nil {
		defer func() { _ = mirror.Close() }()
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Text()
		if mirror != nil {
			_, _ = mirror.Write(append([]byte(line), '\n'))
		}
		if c.sink == nil {
			continue
		}
		e := logstore.Entry{
			ID:        uuid.NewString(),
			Timestamp: time.Now().UTC(),
			Level:     level,
			Component: c.component,
			Message:   line,
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := c.sink.Append(ctx, e); err != nil {
			slog.Debug("log store append failed", "component", c.component, "error", err)
		}
		cancel()
	}
	if err := sc.Err(); err != nil && err != io.ErrClosedPipe {
		slog.Debug("log capture stream ended", "component", c.component, "error", err)
	}
}
