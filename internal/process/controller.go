package process

// Controller delivers termination signals to a supervised process. Platform
// differences (SIGTERM vs console events, process groups) stay behind this
// capability; the supervisor never touches syscall directly.
type Controller interface {
	// TerminateGracefully asks the process (and its group) to exit cooperatively.
	TerminateGracefully(pid int) error
	// Kill forcefully ends the process (and its group).
	Kill(pid int) error
}

// OSController signals real OS processes.
type OSController struct{}

func (OSController) TerminateGracefully(pid int) error { return terminateGracefully(pid) }
func (OSController) Kill(pid int) error                { return killProcess(pid) }
