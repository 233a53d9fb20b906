package punchcli

import (
	"fmt"
	"os"
	"os/exec"
)

// Subcommands started in the background by the tray, the native host and
// the toggle.
const (
	CmdCheck    = "check"
	CmdSimulate = "simulate"
	CmdDaemon   = "daemon"
)

// executable is swapped in tests.
var executable = os.Executable

// Spawn starts this binary with args, detached from the caller so it
// outlives it. Output is discarded; the child logs to its own file.
func Spawn(args ...string) error {
	exe, err := executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	cmd := exec.Command(exe, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %v: %w", args, err)
	}
	// Release so the child does not linger as a zombie.
	_ = cmd.Process.Release()
	return nil
}
