package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/autopunch/autopunch/cmd/common"
	"github.com/autopunch/autopunch/internal/app"
	"github.com/autopunch/autopunch/internal/workflow"
	"github.com/urfave/cli"
)

// stdout is swapped in tests.
var stdout io.Writer = os.Stdout

func run(ctx *cli.Context) error {
	env, err := loadEnv(ctx, true)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer env.Log.Close()

	c, cancel := setupShutdownHandler()
	defer cancel()

	if flagSet(ctx, "get-offtime") {
		return getOffTime(c, env, stdout)
	}

	wf, err := env.Workflow()
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	opts := workflow.Options{
		Test:   flagSet(ctx, "test"),
		DryRun: flagSet(ctx, "dry-run"),
	}
	if !opts.DryRun {
		wf.WaitOffTime = common.Countdown
	}
	return report(stdout, wf.Run(c, opts))
}

func getOffTime(ctx context.Context, env *app.Env, w io.Writer) error {
	r, err := env.Resolver()
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	t, err := r.Resolve(ctx)
	if err != nil {
		env.Log.Error("get-offtime: %v", err)
		return cli.NewExitError("off-duty time unavailable: "+err.Error(), 1)
	}
	return json.NewEncoder(w).Encode(t)
}

// report prints a workflow result and maps failure to exit status 1.
func report(w io.Writer, res workflow.Result) error {
	fmt.Fprintln(w, res.Message)
	if res.Captcha != "" {
		fmt.Fprintf(w, "captcha: %s\n", res.Captcha)
	}
	if res.Success {
		return nil
	}
	msg := string(res.Outcome)
	if res.Debug != "" {
		msg += ": " + res.Debug
	}
	return cli.NewExitError(msg, res.ExitCode())
}
