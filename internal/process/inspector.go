package process

// Inspector answers whether the OS still reports a live process for a PID.
// The health monitor depends on this capability rather than on OS-specific
// process enumeration so tests can substitute a fake.
type Inspector interface {
	IsAlive(pid int) bool
}

// OSInspector consults the real process table.
type OSInspector struct{}

func (OSInspector) IsAlive(pid int) bool { return pidAlive(pid) }
