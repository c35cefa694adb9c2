//go:build unix

package dwh

import (
	"os/exec"
	"syscall"
)

// setProcessGroup starts the tool in its own process group so a timeout
// kills wrapper scripts together with everything they spawned.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
