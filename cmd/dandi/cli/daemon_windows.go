//go:build windows

package cli

import (
	"os"
	"os/exec"
)

// setSysProcAttr is a no-op on Windows. Use a service wrapper such as NSSM
// for long-running deployments.
func setSysProcAttr(cmd *exec.Cmd) {}

// isProcessRunning reports whether pid is alive. Windows only supports
// os.Kill and os.Interrupt, so signalling is used as a probe and a finished
// process reports os.ErrProcessDone.
func isProcessRunning(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(os.Interrupt) != os.ErrProcessDone
}

// stopProcess kills the process on Windows (no graceful SIGTERM support).
func stopProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}
