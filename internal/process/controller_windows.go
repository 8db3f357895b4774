//go:build windows

package process

import "os"

// Windows has no SIGTERM; both paths end the process via the handle.

func terminateGracefully(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}

func killProcess(pid int) error {
	return terminateGracefully(pid)
}
