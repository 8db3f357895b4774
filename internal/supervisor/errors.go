package supervisor

import "errors"

// Error taxonomy for lifecycle operations. Signal-delivery failures during
// stop are deliberately absent: stop is best-effort and only logs them.
var (
	// ErrSpawn means the OS process could not be created.
	ErrSpawn = errors.New("spawn failed")
	// ErrHealthTimeout means the process spawned but never became healthy
	// within the startup timeout. Counted as a failed start.
	ErrHealthTimeout = errors.New("health check timeout")
	// ErrRestartLimit means the restart policy denied a restart. The
	// supervisor parks in the error state until an explicit start.
	ErrRestartLimit = errors.New("restart limit exceeded")
	// ErrCircuitOpen means a start was rejected without a spawn attempt
	// because the circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrShuttingDown means the supervisor no longer accepts commands.
	ErrShuttingDown = errors.New("supervisor shutting down")
)
