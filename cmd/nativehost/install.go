package nativehost

import (
	"fmt"
	"io"
	"os"

	"github.com/autopunch/autopunch/internal/nativehost"
	"github.com/urfave/cli"
)

// stdout is swapped in tests.
var stdout io.Writer = os.Stdout

func install(c *cli.Context) error {
	chromeID := c.String("chrome-extension-id")
	firefoxID := c.String("firefox-extension-id")
	if chromeID == "" && firefoxID == "" {
		return cli.NewExitError("at least one of --chrome-extension-id or --firefox-extension-id is required", 1)
	}
	browsers, err := nativehost.ParseBrowsers(c.String("browser"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	hostPath, err := executable()
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("failed to get executable path: %v", err), 1)
	}

	installer := newInstaller(hostPath, chromeID, firefoxID)
	var installed, failed []string
	for _, b := range browsers {
		// "all" installs whatever the given IDs cover.
		if c.String("browser") == "all" && installer.Validate(b) != nil {
			continue
		}
		path, err := installer.Install(b)
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", b, err))
			continue
		}
		installed = append(installed, fmt.Sprintf("%s: %s", b, path))
	}

	printList(stdout, "Installed manifests:", installed)
	printList(stdout, "Errors:", failed)
	if len(installed) == 0 {
		return cli.NewExitError("no manifests were installed", 1)
	}
	return nil
}

func uninstall(c *cli.Context) error {
	browsers, err := nativehost.ParseBrowsers(c.String("browser"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	installer := newInstaller("", "", "")
	var removed, failed []string
	for _, b := range browsers {
		if err := installer.Uninstall(b); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", b, err))
			continue
		}
		removed = append(removed, fmt.Sprintf("%s: removed (or was not installed)", b))
	}
	printList(stdout, "Uninstalled manifests:", removed)
	printList(stdout, "Errors:", failed)
	return nil
}

func status(c *cli.Context) error {
	installer := newInstaller("", "", "")
	fmt.Fprintln(stdout, "Native messaging host status:")
	for _, b := range nativehost.SupportedBrowsers() {
		state := "not installed"
		if installer.Installed(b) {
			state = "installed at " + installer.Path(b)
		}
		fmt.Fprintf(stdout, "  %-9s %s\n", b+":", state)
	}
	return nil
}
