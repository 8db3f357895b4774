//go:build !windows

package process

import "syscall"

// Signals go to the process group (negative PID) so the whole tree is reached.

func terminateGracefully(pid int) error {
	return syscall.Kill(-pid, syscall.SIGTERM)
}

func killProcess(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
