// SPDX-License-Identifier: MIT

//go:build windows

package procgroup

import (
	"os/exec"
	"syscall"
)

func set(cmd *exec.Cmd) {
	// Process groups are not applicable; CommandContext kill is the fallback.
}

// Kill maps SIGKILL to Process.Kill. Windows has no reliable cross-process
// SIGTERM, so the graceful half of Terminate is a timed no-op there.
func Kill(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if sig != syscall.SIGKILL {
		return nil
	}
	return cmd.Process.Kill()
}
