package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/autopunch/autopunch/internal/control"
	"github.com/autopunch/autopunch/internal/singleton"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"
)

func daemon(ctx *cli.Context) error {
	env, err := loadEnv(ctx, true)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer env.Log.Close()

	lock, err := env.Claims.AcquireSchedulerLock()
	if errors.Is(err, singleton.ErrLockContention) {
		pid, _, _ := env.Claims.LockOwner()
		return cli.NewExitError(fmt.Sprintf("scheduler already running (pid %d)", pid), 1)
	}
	if err != nil {
		return cli.NewExitError("acquire scheduler lock: "+err.Error(), 1)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			env.Log.Warning("daemon: release lock: %v", err)
		}
	}()

	wf, err := env.Workflow()
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	resolver, err := env.Resolver()
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	sched := env.Scheduler(resolver, wf)

	c, cancel := setupShutdownHandler()
	defer cancel()
	g, gctx := errgroup.WithContext(c)

	g.Go(func() error { return sched.Run(gctx) })

	endpoint := control.Endpoint(env.Config.ConfigDir)
	if l, err := control.Listen(endpoint); err != nil {
		env.Log.Warning("daemon: control channel unavailable at %s: %v", endpoint, err)
	} else {
		srv := control.NewServer(sched, env.Toggle, env.Log, currentVersion, os.Getpid())
		srv.OnShutdown(cancel)
		g.Go(func() error { return srv.Serve(gctx, l) })
		env.Log.Info("daemon: control channel on %s", endpoint)
	}

	env.Log.Info("daemon: started (pid %d, config %s)", os.Getpid(), env.Config.ConfigDir)
	err = g.Wait()
	env.Log.Info("daemon: stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return cli.NewExitError(err.Error(), 1)
	}
	return nil
}
