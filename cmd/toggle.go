package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/autopunch/autopunch/cmd/common"
	"github.com/autopunch/autopunch/internal/control"
	"github.com/autopunch/autopunch/pkg/punchcli"
	"github.com/urfave/cli"
)

// spawn starts background autopunch processes; swapped in tests.
var spawn = punchcli.Spawn

func toggle(ctx *cli.Context) error {
	env, err := loadEnv(ctx, false)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer env.Log.Close()

	was := env.Toggle.IsEnabled()
	want := !was
	switch arg := strings.ToLower(ctx.Args().First()); arg {
	case "":
	case "on", "enable":
		want = true
	case "off", "disable":
		want = false
	default:
		_ = common.PrintErrWithCmdHelp(ctx, fmt.Errorf("unknown toggle state %q, want on or off", arg))
		return cli.NewExitError("", 1)
	}

	enabled, err := setToggle(env.Config.ConfigDir, want, env.Toggle.SetEnabled)
	if err != nil {
		return cli.NewExitError("toggle: "+err.Error(), 1)
	}
	if enabled {
		fmt.Fprintln(stdout, "Auto clock-out enabled")
	} else {
		fmt.Fprintln(stdout, "Auto clock-out disabled")
	}
	if enabled && !was {
		if err := spawn("--config-dir", env.Config.ConfigDir, punchcli.CmdCheck); err != nil {
			env.Log.Warning("toggle: start check: %v", err)
		}
	}
	return nil
}

// setToggle goes through the daemon when one is listening so its log
// records the change, and writes the marker directly otherwise.
func setToggle(configDir string, want bool, direct func(bool) error) (bool, error) {
	c, cancel := context.WithTimeout(context.Background(), punchcli.DefaultDialTimeout)
	defer cancel()
	if client, err := punchcli.Dial(c, control.Endpoint(configDir)); err == nil {
		defer client.Close()
		return client.SetToggle(c, want)
	}
	if err := direct(want); err != nil {
		return false, err
	}
	return want, nil
}
