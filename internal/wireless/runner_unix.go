//go:build unix

package wireless

import (
	"os/exec"
	"syscall"
)

// setProcessGroup puts the child in its own process group so signals
// reach airodump-ng's forked helpers too.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// interruptGroup sends SIGINT to the whole process group. airodump-ng
// flushes and closes its capture file on SIGINT.
func interruptGroup(pid int) error {
	return syscall.Kill(-pid, syscall.SIGINT)
}

// killGroup sends SIGKILL to the whole process group.
func killGroup(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
