package cmd

import (
	"context"
	"fmt"

	"github.com/autopunch/autopunch/internal/control"
	"github.com/autopunch/autopunch/pkg/punchcli"
	"github.com/urfave/cli"
)

func stopDaemon(ctx *cli.Context) error {
	env, err := loadEnv(ctx, false)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer env.Log.Close()

	pid, alive, err := env.Claims.LockOwner()
	if err != nil {
		fmt.Fprintln(stdout, "Daemon is not running")
		return nil
	}
	if !alive {
		fmt.Fprintf(stdout, "Daemon is not running (stale lock from pid %d)\n", pid)
		return nil
	}
	fmt.Fprintf(stdout, "Stopping daemon (PID %d)...\n", pid)

	c, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if client, err := punchcli.Dial(c, control.Endpoint(env.Config.ConfigDir)); err == nil {
		err = client.Shutdown(c)
		client.Close()
		if err == nil && waitExit(env.Claims, pid) {
			fmt.Fprintln(stdout, "Daemon stopped successfully")
			return nil
		}
	}

	if err := killDaemon(pid); err != nil {
		return cli.NewExitError("error stopping daemon: "+err.Error(), 1)
	}
	fmt.Fprintln(stdout, "Daemon stopped successfully")
	return nil
}
