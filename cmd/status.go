package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/autopunch/autopunch/internal/app"
	"github.com/autopunch/autopunch/internal/control"
	"github.com/autopunch/autopunch/internal/scheduler"
	"github.com/autopunch/autopunch/pkg/punchcli"
	"github.com/urfave/cli"
)

func status(ctx *cli.Context) error {
	env, err := loadEnv(ctx, false)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer env.Log.Close()

	var st *scheduler.Status
	c, cancel := context.WithTimeout(context.Background(), punchcli.DefaultDialTimeout)
	defer cancel()
	if client, err := punchcli.Dial(c, control.Endpoint(env.Config.ConfigDir)); err == nil {
		st, err = client.SchedulerStatus(c)
		client.Close()
		if err != nil {
			env.Log.Warning("status: %v", err)
		}
	}
	printStatus(stdout, env, st)
	return nil
}

func printStatus(w io.Writer, env *app.Env, st *scheduler.Status) {
	now := env.Oracle.Now()
	onOff := map[bool]string{true: "enabled", false: "disabled"}

	fmt.Fprintf(w, "Auto clock-out : %s\n", onOff[env.Toggle.IsEnabled()])
	fmt.Fprintf(w, "Local time     : %s (%s)\n", now.Local.Format("2006-01-02 15:04:05"), env.Oracle.Zone())
	claimed := "no"
	if env.Claims.IsClaimed(now.DateKey) {
		claimed = "yes"
	}
	fmt.Fprintf(w, "Today claimed  : %s\n", claimed)

	pid, alive, err := env.Claims.LockOwner()
	switch {
	case err != nil:
		fmt.Fprintln(w, "Daemon         : not running")
	case !alive:
		fmt.Fprintf(w, "Daemon         : not running (stale lock, pid %d)\n", pid)
	default:
		fmt.Fprintf(w, "Daemon         : running (pid %d)\n", pid)
	}
	if st == nil {
		if next, err := env.Oracle.NextWindow(now.Instant); err == nil {
			fmt.Fprintf(w, "Next window    : %s\n", next.Format(time.RFC3339))
		}
		return
	}
	fmt.Fprintf(w, "Scheduler      : %s\n", st.State)
	if st.ArmedAt != nil {
		fmt.Fprintf(w, "Armed for      : %s\n", st.ArmedAt.In(env.Oracle.Zone()).Format(time.RFC3339))
	}
	if st.NextWindow != nil {
		fmt.Fprintf(w, "Next window    : %s\n", st.NextWindow.Format(time.RFC3339))
	}
	if st.LastResult != nil && st.LastRun != nil {
		fmt.Fprintf(w, "Last run       : %s %s (%s)\n",
			st.LastRun.In(env.Oracle.Zone()).Format(time.RFC3339), st.LastResult.Outcome, st.LastResult.Message)
	}
}
