//go:build !unix

package wireless

import (
	"os"
	"os/exec"
)

// Process groups are a Unix concept. On other platforms (the crack
// listener runs on the Windows GPU host) we fall back to killing the
// direct child only, which is enough for hashcat.
func setProcessGroup(_ *exec.Cmd) {}

func interruptGroup(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}

func killGroup(pid int) error {
	return interruptGroup(pid)
}
