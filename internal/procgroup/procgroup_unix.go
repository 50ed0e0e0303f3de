// SPDX-License-Identifier: MIT

//go:build unix && !windows

package procgroup

import (
	"errors"
	"os/exec"
	"syscall"
)

func set(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// Kill signals the command's process group. A nil command or one that never
// started reads as already gone.
func Kill(cmd *exec.Cmd, sig syscall.Signal) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	// Setpgid at spawn makes the child a group leader with PGID = PID, so
	// signalling -PGID reaches ffmpeg and everything it forked.
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err != nil {
		return ignoreGone(err)
	}
	return ignoreGone(syscall.Kill(-pgid, sig))
}

// ignoreGone treats ESRCH as success. The group disappearing before the
// signal lands is the outcome Terminate wanted anyway.
func ignoreGone(err error) error {
	if err == nil || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}
