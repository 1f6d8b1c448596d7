//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"
)

func configureSysProcAttr(cmd *exec.Cmd) {}

// killByPID sends SIGKILL directly. Errors are ignored; the common case is
// that the process already exited.
func killByPID(pid int) {
	if pid > 0 {
		_ = syscall.Kill(pid, syscall.SIGKILL)
	}
}
