package nativehost

import (
	"context"
	"fmt"
	"os"

	"github.com/autopunch/autopunch/internal/app"
	"github.com/autopunch/autopunch/internal/nativehost"
	"github.com/autopunch/autopunch/internal/workflow"
	"github.com/autopunch/autopunch/pkg/punchcli"
	"github.com/urfave/cli"
)

var spawn = punchcli.Spawn

// backend serves host requests from the local configuration. Toggle
// changes go straight to the toggle file the daemon polls.
type backend struct {
	env *app.Env
}

func (b *backend) Enabled() bool { return b.env.Toggle.IsEnabled() }

func (b *backend) Toggle() (bool, error) { return b.env.Toggle.Toggle() }

func (b *backend) Punch(ctx context.Context) workflow.Result {
	wf, err := b.env.Workflow()
	if err != nil {
		b.env.Log.Error("native host: %v", err)
		return workflow.Result{
			Outcome: workflow.OutcomeError,
			Message: err.Error(),
			Debug:   err.Error(),
			Err:     err,
		}
	}
	return wf.Run(ctx, workflow.Options{DryRun: true})
}

func (b *backend) SpawnCheck() error {
	return spawn(b.args(punchcli.CmdCheck)...)
}

func (b *backend) SpawnSimulate() error {
	return spawn(b.args(punchcli.CmdSimulate)...)
}

// args pins the child to the same config dir.
func (b *backend) args(command string) []string {
	return []string{"--config-dir", b.env.Config.ConfigDir, command}
}

func run(c *cli.Context) error {
	cfg, err := app.LoadConfig(app.Overrides{
		ConfigDir: c.GlobalString("config-dir"),
		Debug:     c.GlobalBool("debug"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "native host: %v\n", err)
		return cli.NewExitError("native host configuration error", 1)
	}
	// stdout carries the protocol; stderr only when debugging.
	l, err := app.OpenLogger(cfg, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "native host: %v\n", err)
		return cli.NewExitError("native host log error", 1)
	}
	defer l.Close()

	host := nativehost.NewHost(&backend{env: app.New(cfg, l)}, l)
	if err := host.Run(context.Background()); err != nil {
		l.Error("native host: %v", err)
		return cli.NewExitError("native host error", 1)
	}
	return nil
}
