// Package nativehost provides CLI commands for the browser extension's
// native messaging host.
package nativehost

import (
	"fmt"
	"io"
	"os"

	"github.com/autopunch/autopunch/internal/nativehost"
	"github.com/urfave/cli"
)

// Commands contains all native-host related subcommands.
var Commands = []cli.Command{
	{
		Name:   "install",
		Action: install,
		Usage:  "install native messaging manifest for browsers",
		Flags:  installFlags,
	},
	{
		Name:   "uninstall",
		Action: uninstall,
		Usage:  "remove native messaging manifest from browsers",
		Flags:  browserFlags,
	},
	{
		Name:   "run",
		Action: run,
		Usage:  "run native messaging host (called by browser)",
		Hidden: true,
	},
	{
		Name:   "status",
		Action: status,
		Usage:  "show installation status for all browsers",
	},
}

var browserFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "browser",
		Usage: "comma separated browsers (chrome, chromium, edge, brave, firefox) or all",
		Value: "all",
	},
}

var installFlags = append([]cli.Flag{
	cli.StringFlag{
		Name:  "chrome-extension-id",
		Usage: "Chrome extension ID (required for Chrome-based browsers)",
	},
	cli.StringFlag{
		Name:  "firefox-extension-id",
		Usage: "Firefox extension ID (required for Firefox)",
	},
}, browserFlags...)

// Overridden in tests.
var (
	baseDir    string
	platform   string
	register   func(b nativehost.Browser, path string) error
	unregister func(b nativehost.Browser) error
	executable = os.Executable
)

func newInstaller(hostPath, chromeID, firefoxID string) *nativehost.ManifestInstaller {
	return &nativehost.ManifestInstaller{
		HostPath:           hostPath,
		ChromeExtensionID:  chromeID,
		FirefoxExtensionID: firefoxID,
		BaseDir:            baseDir,
		Platform:           platform,
		Register:           register,
		Unregister:         unregister,
	}
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(w, title)
	for _, s := range items {
		fmt.Fprintf(w, "  %s\n", s)
	}
}
