//go:build windows

package launcher

import "os/exec"

// terminateProcess on Windows has no SIGTERM equivalent Go can send
// portably, so this goes straight to a hard kill; Shutdown's grace
// window still applies to any process that doesn't use this path.
func terminateProcess(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
