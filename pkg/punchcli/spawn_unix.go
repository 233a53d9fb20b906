//go:build !windows

package punchcli

import (
	"os/exec"
	"syscall"
)

// detach moves the child into its own process group so it survives the
// browser or terminal that started us.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
