//go:build windows

package process

import "os/exec"

func configureCommand(_ *exec.Cmd) {}

// interrupt terminates the process. Windows cannot deliver SIGINT to a
// console-less child, so there is no graceful phase.
func interrupt(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

func kill(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
