//go:build windows

package main

import (
	"os/exec"
	"strconv"
)

// killProcess shells out to taskkill, since Windows has no signal
// equivalent to SIGKILL.
func killProcess(pid int) error {
	cmd := exec.Command("taskkill", "/F", "/PID", strconv.Itoa(pid))
	return cmd.Run()
}

func createNewProcessGroup(cmd *exec.Cmd) {
}
