//go:build windows

package browsercookie

import (
	"os"
	"path/filepath"
)

func candidates() []candidate {
	return candidatesFor(os.Getenv("LOCALAPPDATA"), os.Getenv("APPDATA"))
}

func candidatesFor(local, roaming string) []candidate {
	return []candidate{
		{browser: "Firefox", profilesIni: []string{filepath.Join(roaming, "Mozilla", "Firefox", "profiles.ini")}},
		chromium("Chrome", filepath.Join(local, "Google", "Chrome", "User Data", "Default")),
		chromium("Edge", filepath.Join(local, "Microsoft", "Edge", "User Data", "Default")),
		chromium("Chromium", filepath.Join(local, "Chromium", "User Data", "Default")),
		chromium("Brave", filepath.Join(local, "BraveSoftware", "Brave-Browser", "User Data", "Default")),
	}
}
