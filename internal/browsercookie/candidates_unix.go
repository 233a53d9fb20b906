//go:build !windows

package browsercookie

import (
	"os"
	"path/filepath"
	"runtime"
)

func candidates() []candidate {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return candidatesFor(home, runtime.GOOS == "darwin")
}

func candidatesFor(home string, darwin bool) []candidate {
	if darwin {
		support := filepath.Join(home, "Library", "Application Support")
		return []candidate{
			{browser: "Firefox", profilesIni: []string{filepath.Join(support, "Firefox", "profiles.ini")}},
			chromium("Chrome", filepath.Join(support, "Google", "Chrome", "Default")),
			chromium("Edge", filepath.Join(support, "Microsoft Edge", "Default")),
			chromium("Chromium", filepath.Join(support, "Chromium", "Default")),
			chromium("Brave", filepath.Join(support, "BraveSoftware", "Brave-Browser", "Default")),
		}
	}
	config := filepath.Join(home, ".config")
	return []candidate{
		{browser: "Firefox", profilesIni: []string{
			filepath.Join(home, ".mozilla", "firefox", "profiles.ini"),
			filepath.Join(home, "snap", "firefox", "common", ".mozilla", "firefox", "profiles.ini"),
		}},
		chromium("Chrome", filepath.Join(config, "google-chrome", "Default")),
		chromium("Edge", filepath.Join(config, "microsoft-edge", "Default")),
		chromium("Chromium", filepath.Join(config, "chromium", "Default")),
		chromium("Brave", filepath.Join(config, "BraveSoftware", "Brave-Browser", "Default")),
	}
}
