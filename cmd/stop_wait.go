package cmd

import (
	"time"

	"github.com/autopunch/autopunch/internal/singleton"
)

const (
	shutdownTimeout  = 5 * time.Second
	stopPollInterval = 100 * time.Millisecond
)

// waitExit polls until the lock no longer names a live pid.
func waitExit(c *singleton.Coordinator, pid int) bool {
	deadline := time.Now().Add(shutdownTimeout)
	for time.Now().Before(deadline) {
		owner, alive, err := c.LockOwner()
		if err != nil || owner != pid || !alive {
			return true
		}
		time.Sleep(stopPollInterval)
	}
	return false
}
