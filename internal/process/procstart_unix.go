//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

// setSysProcAttrs puts the child in its own process group so signals sent
// to -pid reach the whole tree.
func setSysProcAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
