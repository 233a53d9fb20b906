package cmd

import (
	"github.com/autopunch/autopunch/internal/workflow"
	"github.com/urfave/cli"
)

// simulate replays the five o'clock flow without submitting: resolve the
// off-duty time, then dry-run.
func simulate(ctx *cli.Context) error {
	env, err := loadEnv(ctx, true)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer env.Log.Close()

	c, cancel := setupShutdownHandler()
	defer cancel()

	resolver, err := env.Resolver()
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if t, err := resolver.Resolve(c); err != nil {
		env.Log.Warning("simulate: off-duty time: %v", err)
	} else {
		env.Log.Info("simulate: off-duty time %s", t)
	}

	wf, err := env.Workflow()
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	return report(stdout, wf.Run(c, workflow.Options{DryRun: true}))
}
