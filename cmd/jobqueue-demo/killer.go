//go:build !windows

package main

import (
	"os/exec"
	"syscall"
)

// killProcess sends SIGKILL to an entire process group.
func killProcess(pid int) error {
	return syscall.Kill(pid, syscall.SIGKILL)
}

// createNewProcessGroup puts cmd in its own process group so that a
// signal sent to the demo (e.g. Ctrl-C) is not also delivered straight
// to the child.
func createNewProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
