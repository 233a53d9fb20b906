// Package common provides helpers shared by the autopunch CLI commands:
// the off-duty countdown, help display and usage error handling.
package common

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// VersionCmdStr is printed by the version command. Execute fills it in.
var VersionCmdStr string

var (
	showAppHelpAndExit = cli.ShowAppHelpAndExit
	showCommandHelp    = cli.ShowCommandHelp

	countdownOutput io.Writer = os.Stderr
)

// Countdown blocks for d while drawing a progress bar of the remaining
// wait. It returns early with ctx's error when ctx is cancelled.
func Countdown(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	total := int64((d + time.Second - 1) / time.Second)
	deadline := time.Now().Add(d)

	p := mpb.NewWithContext(ctx, mpb.WithOutput(countdownOutput), mpb.WithWidth(40))
	barStyle := mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟")
	name := "Waiting for off-duty time"
	bar := p.New(total,
		barStyle,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.Any(func(s decor.Statistics) string {
				return (time.Duration(s.Total-s.Current) * time.Second).String()
			}), "Go"),
		),
	)

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			bar.SetCurrent(total)
			p.Wait()
			return nil
		}
		bar.SetCurrent(total - int64((remaining+time.Second-1)/time.Second))
		timer.Reset(min(remaining, time.Second))
		select {
		case <-ctx.Done():
			bar.Abort(false)
			p.Wait()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Help shows the app help, or a command's help when one is named.
func Help(ctx *cli.Context) error {
	arg := ctx.Args().First()
	if arg == "" || arg == "help" {
		fmt.Printf("%s %s\n", ctx.App.Name, ctx.App.Version)
		showAppHelpAndExit(ctx, 0)
		return nil
	}
	return showCommandHelp(ctx, arg)
}

// GetVersion prints VersionCmdStr.
func GetVersion(ctx *cli.Context) error {
	fmt.Println(VersionCmdStr)
	return nil
}

// PrintErrWithCmdHelp prints err and the current command's help.
func PrintErrWithCmdHelp(ctx *cli.Context, err error) error {
	return printErrWithCallback(ctx, err, func() {
		if err := showCommandHelp(ctx, ctx.Command.Name); err != nil {
			fmt.Println(err.Error())
		}
	})
}

// PrintErrWithHelp prints err and the app help, then exits 1.
func PrintErrWithHelp(ctx *cli.Context, err error) error {
	return printErrWithCallback(ctx, err, func() {
		showAppHelpAndExit(ctx, 1)
	})
}

func printErrWithCallback(ctx *cli.Context, err error, callback func()) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case msg == "flag: help requested":
		return Help(ctx)
	case strings.HasSuffix(msg, "-version"), strings.HasSuffix(msg, "-v"):
		return GetVersion(ctx)
	}
	fmt.Printf("%s: %s\n\n", ctx.App.HelpName, err.Error())
	callback()
	return nil
}

// UsageErrorCallback is the OnUsageError hook for the app and its commands.
func UsageErrorCallback(ctx *cli.Context, err error, _ bool) error {
	if ctx.Command.Name != "" {
		return PrintErrWithCmdHelp(ctx, err)
	}
	return PrintErrWithHelp(ctx, err)
}
