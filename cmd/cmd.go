package cmd

import (
	"fmt"
	"runtime"

	"github.com/autopunch/autopunch/cmd/common"
	"github.com/autopunch/autopunch/cmd/nativehost"
	nh "github.com/autopunch/autopunch/internal/nativehost"
	"github.com/urfave/cli"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

// currentVersion is reported by the daemon's control server.
var currentVersion string

func Execute(args []string, bArgs BuildArgs) error {
	args = routeBrowserLaunch(args)
	app := cli.App{
		Name:                  "autopunch",
		HelpName:              "autopunch",
		Usage:                 "Clocks you out of the attendance page after work.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "autopunch [global options] [command] [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Commands: []cli.Command{
			{
				Name:               "run",
				Usage:              "clock out once (default command)",
				Description:        RunDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             run,
				Flags:              runFlags,
			},
			{
				Name:               "daemon",
				Usage:              "start the daily scheduler",
				Description:        DaemonDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             daemon,
			},
			{
				Name:   "stop",
				Usage:  "stop the running daemon",
				Action: stopDaemon,
			},
			{
				Name:    "status",
				Aliases: []string{"s"},
				Usage:   "show toggle and scheduler state",
				Action:  status,
			},
			{
				Name:               "toggle",
				Usage:              "enable or disable automatic clock-out",
				ArgsUsage:          "[on|off]",
				Description:        ToggleDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             toggle,
			},
			{
				Name:               "check",
				Usage:              "clock out now if today's off-duty time has passed",
				Description:        CheckDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             check,
			},
			{
				Name:               "simulate",
				Usage:              "read the off-duty time, then dry-run",
				Description:        SimulateDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             simulate,
			},
			{
				Name:        "native-host",
				Usage:       "manage the browser extension's native messaging host",
				Subcommands: nativehost.Commands,
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of autopunch",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.GetVersion,
			},
		},
		Action:      run,
		Flags:       append(append([]cli.Flag{}, globalFlags...), runFlags...),
		HideHelp:    true,
		HideVersion: true,
	}
	currentVersion = app.Version
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}

// routeBrowserLaunch sends a browser's native messaging launch, which
// carries the caller origin or manifest path instead of a command, to the
// native host.
func routeBrowserLaunch(args []string) []string {
	if len(args) > 0 && nh.IsBrowserLaunch(args[1:]) {
		return []string{args[0], "native-host", "run"}
	}
	return args
}
