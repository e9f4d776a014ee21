//go:build !windows

// Package process ends browser process trees left behind by an engine.
package process

import "syscall"

// KillProcessGroup sends SIGKILL to the process group led by pid, taking
// Chrome's renderer and GPU helpers down with it.
func KillProcessGroup(pid int) {
	// Best-effort; the launcher kills the main process afterwards anyway
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
