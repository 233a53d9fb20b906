package cmd

import (
	"github.com/autopunch/autopunch/internal/app"
	"github.com/urfave/cli"
)

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "config-dir",
		Usage: "directory for the toggle, claims, logs and .env (default: user config dir)",
	},
	cli.StringFlag{
		Name:  "url",
		Usage: "attendance page URL (env: PUNCH_URL)",
	},
	cli.BoolFlag{
		Name:  "headless",
		Usage: "do not write the challenge image for inspection (env: HEADLESS)",
	},
	cli.IntFlag{
		Name:  "max-retry",
		Usage: "challenge attempts per run (env: MAX_RETRY)",
	},
	cli.BoolFlag{
		Name:  "debug",
		Usage: "verbose logging (env: AUTOPUNCH_DEBUG)",
	},
}

var runFlags = []cli.Flag{
	cli.BoolFlag{
		Name:  "test, t",
		Usage: "run now, ignoring the toggle and the clock-in record check",
	},
	cli.BoolFlag{
		Name:  "dry-run",
		Usage: "recognize and fill the challenge but never submit",
	},
	cli.BoolFlag{
		Name:  "get-offtime",
		Usage: `print today's off-duty time as {"hour":H,"minute":M,"second":S} and exit`,
	},
}

// flagSet reports a boolean flag given either on the command or globally.
func flagSet(ctx *cli.Context, name string) bool {
	return ctx.Bool(name) || ctx.GlobalBool(name)
}

func overrides(ctx *cli.Context) app.Overrides {
	return app.Overrides{
		ConfigDir: ctx.GlobalString("config-dir"),
		URL:       ctx.GlobalString("url"),
		Headless:  ctx.GlobalBool("headless"),
		MaxRetry:  ctx.GlobalInt("max-retry"),
		Debug:     ctx.GlobalBool("debug"),
	}
}

// loadEnv resolves configuration and opens the log. console adds stderr.
func loadEnv(ctx *cli.Context, console bool) (*app.Env, error) {
	cfg, err := app.LoadConfig(overrides(ctx))
	if err != nil {
		return nil, err
	}
	l, err := app.OpenLogger(cfg, console)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, l), nil
}
