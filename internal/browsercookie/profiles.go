package browsercookie

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// candidate is one browser's possible store locations. Firefox-family
// browsers are found through profiles.ini; Chromium-family ones have fixed
// paths.
type candidate struct {
	browser     string
	profilesIni []string
	stores      []string
}

func (c candidate) paths() []string {
	out := append([]string(nil), c.stores...)
	for _, ini := range c.profilesIni {
		if dir := defaultProfile(ini); dir != "" {
			out = append(out, filepath.Join(dir, "cookies.sqlite"))
		}
	}
	return out
}

func chromium(browser, profileDir string) candidate {
	return candidate{
		browser: browser,
		stores: []string{
			filepath.Join(profileDir, "Network", "Cookies"),
			filepath.Join(profileDir, "Cookies"),
		},
	}
}

// defaultProfile returns the default profile directory named by a Firefox
// profiles.ini: the [Install*] Default= entry wins over a [Profile*] with
// Default=1. Empty when nothing matches.
func defaultProfile(iniPath string) string {
	f, err := os.Open(iniPath)
	if err != nil {
		return ""
	}
	defer f.Close()

	base := filepath.Dir(iniPath)
	resolve := func(p string, relative bool) string {
		p = filepath.FromSlash(p)
		if relative || !filepath.IsAbs(p) {
			return filepath.Join(base, p)
		}
		return p
	}

	var (
		section             string
		install, marked     string
		path                string
		relative, isDefault bool
	)
	flush := func() {
		if strings.HasPrefix(section, "Profile") && isDefault && marked == "" && path != "" {
			marked = resolve(path, relative)
		}
		path, relative, isDefault = "", true, false
	}

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == ';' || line[0] == '#' {
			continue
		}
		if line[0] == '[' {
			flush()
			section = strings.Trim(line, "[]")
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		switch {
		case strings.HasPrefix(section, "Install") && k == "Default" && install == "":
			install = resolve(v, true)
		case k == "Path":
			path = v
		case k == "IsRelative":
			relative = v != "0"
		case k == "Default" && v == "1":
			isDefault = true
		}
	}
	flush()

	if install != "" {
		return install
	}
	return marked
}
