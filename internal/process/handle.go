package process

import (
	"io"
	"os"
	"os/exec"
	"time"
)

// Handle is one spawned OS child process. It is exclusively owned by the
// supervisor that spawned it and is discarded once the process exits.
type Handle struct {
	PID       int
	StartedAt time.Time
	cmd       *exec.Cmd
	stdout    io.ReadCloser
	stderr    io.ReadCloser
	waitDone  chan struct{}
	waitErr   error
}

// Spawn builds the command from spec, wires stdout/stderr pipes for log
// capture, puts the child in its own process group, and starts it.
//
// The streams are io.Pipe pairs with the write ends assigned to the command,
// so exec copies the child's output itself and Wait only returns after the
// final buffered lines have been delivered to the readers. Wait may not run
// concurrently with reads from exec's own StdoutPipe, and racing it there
// drops the tail of a crashing process's output.
func Spawn(spec Spec) (*Handle, error) {
	cmd := spec.BuildCommand()
	if spec.WorkDir != "" {
		cmd.Dir = spec.WorkDir
	}
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	setSysProcAttrs(cmd)

	outR, outW := io.Pipe()
	errR, errW := io.Pipe()
	cmd.Stdout = outW
	cmd.Stderr = errW
	if err := cmd.Start(); err != nil {
		_ = outW.Close()
		_ = errW.Close()
		return nil, err
	}

	h := &Handle{
		PID:       cmd.Process.Pid,
		StartedAt: time.Now(),
		cmd:       cmd,
		stdout:    outR,
		stderr:    errR,
		waitDone:  make(chan struct{}),
	}
	go func() {
		h.waitErr = cmd.Wait()
		_ = outW.Close()
		_ = errW.Close()
		close(h.waitDone)
	}()
	return h, nil
}

// Stdout returns the child's stdout pipe. Exactly one reader may drain it.
func (h *Handle) Stdout() io.ReadCloser { return h.stdout }

// Stderr returns the child's stderr pipe.
func (h *Handle) Stderr() io.ReadCloser { return h.stderr }

// Done is closed once the child has been reaped.
func (h *Handle) Done() <-chan struct{} { return h.waitDone }

// WaitErr returns the exit error after Done is closed.
func (h *Handle) WaitErr() error {
	<-h.waitDone
	return h.waitErr
}

// Exited reports whether the child has already been reaped.
func (h *Handle) Exited() bool {
	select {
	case <-h.waitDone:
		return true
	default:
		return false
	}
}
