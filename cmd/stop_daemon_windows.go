//go:build windows

package cmd

import (
	"fmt"
	"os"
)

// killDaemon terminates the daemon. It is only reached when the control
// pipe did not answer, so there is nobody left to ask politely.
func killDaemon(pid int) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("process not found: %w", err)
	}
	if err := process.Kill(); err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}
	return nil
}
