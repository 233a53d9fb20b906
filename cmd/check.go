package cmd

import (
	"fmt"

	"github.com/autopunch/autopunch/internal/scheduler"
	"github.com/urfave/cli"
)

func check(ctx *cli.Context) error {
	env, err := loadEnv(ctx, true)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer env.Log.Close()

	c, cancel := setupShutdownHandler()
	defer cancel()

	wf, err := env.Workflow()
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	resolver, err := env.Resolver()
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	cu := &scheduler.CatchUp{
		Oracle:   env.Oracle,
		Toggle:   env.Toggle,
		Claims:   env.Claims,
		Resolver: resolver,
		Runner:   wf,
		Lead:     env.Config.CheckLead,
		Log:      env.Log,
	}
	outcome, res, err := cu.Run(c)
	if err != nil {
		return cli.NewExitError("check: "+err.Error(), 1)
	}
	if outcome != scheduler.CatchUpRan {
		fmt.Fprintf(stdout, "Nothing to do: %s\n", outcome)
		return nil
	}
	return report(stdout, res)
}
