//go:build !windows

package launcher

import (
	"os/exec"
	"syscall"
)

// terminateProcess sends SIGTERM so the child can shut down cleanly.
func terminateProcess(cmd *exec.Cmd) error {
	return cmd.Process.Signal(syscall.SIGTERM)
}
