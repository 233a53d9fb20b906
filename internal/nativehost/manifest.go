package nativehost

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// HostName must match the manifest "name" and the name the extension
// passes to connectNative/sendNativeMessage.
const HostName = "com.autopunch.host"

const manifestDescription = "autopunch native messaging host"

// Browser is a browser that supports native messaging.
type Browser string

const (
	BrowserChrome   Browser = "chrome"
	BrowserFirefox  Browser = "firefox"
	BrowserChromium Browser = "chromium"
	BrowserEdge     Browser = "edge"
	BrowserBrave    Browser = "brave"
)

// SupportedBrowsers lists every browser the installer knows about.
func SupportedBrowsers() []Browser {
	return []Browser{BrowserChrome, BrowserFirefox, BrowserChromium, BrowserEdge, BrowserBrave}
}

// ParseBrowsers resolves a comma separated list, or "all".
func ParseBrowsers(s string) ([]Browser, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "all" {
		return SupportedBrowsers(), nil
	}
	var out []Browser
	for _, part := range strings.Split(s, ",") {
		b := Browser(strings.TrimSpace(part))
		if !isSupported(b) {
			return nil, fmt.Errorf("unsupported browser %q", part)
		}
		out = append(out, b)
	}
	return out, nil
}

func isSupported(b Browser) bool {
	for _, s := range SupportedBrowsers() {
		if s == b {
			return true
		}
	}
	return false
}

// IsChromium reports whether b reads Chrome-style manifests.
func (b Browser) IsChromium() bool {
	return b != BrowserFirefox
}

// ChromeManifest is the manifest format used by Chromium-based browsers.
type ChromeManifest struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Path           string   `json:"path"`
	Type           string   `json:"type"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// FirefoxManifest is the manifest format used by Firefox.
type FirefoxManifest struct {
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	Path              string   `json:"path"`
	Type              string   `json:"type"`
	AllowedExtensions []string `json:"allowed_extensions"`
}

// GenerateChromeManifest builds a Chromium manifest allowing extensionID.
func GenerateChromeManifest(hostPath, extensionID string) []byte {
	m := ChromeManifest{
		Name:           HostName,
		Description:    manifestDescription,
		Path:           hostPath,
		Type:           "stdio",
		AllowedOrigins: []string{"chrome-extension://" + extensionID + "/"},
	}
	b, _ := json.MarshalIndent(m, "", "  ")
	return b
}

// GenerateFirefoxManifest builds a Firefox manifest allowing extensionID.
func GenerateFirefoxManifest(hostPath, extensionID string) []byte {
	m := FirefoxManifest{
		Name:              HostName,
		Description:       manifestDescription,
		Path:              hostPath,
		Type:              "stdio",
		AllowedExtensions: []string{extensionID},
	}
	b, _ := json.MarshalIndent(m, "", "  ")
	return b
}

// ManifestPath returns where the manifest for browser lives on platform.
// On Windows the file location is ours to pick; the registry points at it.
func ManifestPath(browser Browser, platform, homeDir string) string {
	manifestFile := HostName + ".json"

	switch platform {
	case "darwin":
		appSupport := filepath.Join(homeDir, "Library", "Application Support")
		switch browser {
		case BrowserChrome:
			return filepath.Join(appSupport, "Google", "Chrome", "NativeMessagingHosts", manifestFile)
		case BrowserChromium:
			return filepath.Join(appSupport, "Chromium", "NativeMessagingHosts", manifestFile)
		case BrowserFirefox:
			return filepath.Join(appSupport, "Mozilla", "NativeMessagingHosts", manifestFile)
		case BrowserEdge:
			return filepath.Join(appSupport, "Microsoft Edge", "NativeMessagingHosts", manifestFile)
		case BrowserBrave:
			return filepath.Join(appSupport, "BraveSoftware", "Brave-Browser", "NativeMessagingHosts", manifestFile)
		}
	case "linux":
		switch browser {
		case BrowserChrome:
			return filepath.Join(homeDir, ".config", "google-chrome", "NativeMessagingHosts", manifestFile)
		case BrowserChromium:
			return filepath.Join(homeDir, ".config", "chromium", "NativeMessagingHosts", manifestFile)
		case BrowserFirefox:
			return filepath.Join(homeDir, ".mozilla", "native-messaging-hosts", manifestFile)
		case BrowserEdge:
			return filepath.Join(homeDir, ".config", "microsoft-edge", "NativeMessagingHosts", manifestFile)
		case BrowserBrave:
			return filepath.Join(homeDir, ".config", "BraveSoftware", "Brave-Browser", "NativeMessagingHosts", manifestFile)
		}
	case "windows":
		return filepath.Join(homeDir, "AppData", "Local", "autopunch", "NativeMessagingHosts", string(browser), manifestFile)
	}
	return ""
}

// RegistryKey returns the HKCU key a browser consults on Windows.
func RegistryKey(browser Browser) string {
	switch browser {
	case BrowserChrome:
		return `Software\Google\Chrome\NativeMessagingHosts\` + HostName
	case BrowserChromium:
		return `Software\Chromium\NativeMessagingHosts\` + HostName
	case BrowserEdge:
		return `Software\Microsoft\Edge\NativeMessagingHosts\` + HostName
	case BrowserBrave:
		return `Software\BraveSoftware\Brave-Browser\NativeMessagingHosts\` + HostName
	case BrowserFirefox:
		return `Software\Mozilla\NativeMessagingHosts\` + HostName
	}
	return ""
}

// ManifestInstaller writes and removes manifests.
type ManifestInstaller struct {
	HostPath           string
	ChromeExtensionID  string
	FirefoxExtensionID string
	// BaseDir overrides the home directory; Platform overrides runtime.GOOS.
	BaseDir  string
	Platform string
	// Register records the manifest where the browser looks for it
	// beyond the file itself. Defaults to the platform registration.
	Register func(browser Browser, manifestPath string) error
	// Unregister undoes Register.
	Unregister func(browser Browser) error
}

// Validate checks the fields needed for browser.
func (m *ManifestInstaller) Validate(browser Browser) error {
	if m.HostPath == "" {
		return errors.New("host path is required")
	}
	if browser.IsChromium() && m.ChromeExtensionID == "" {
		return errors.New("chrome extension ID is required")
	}
	if !browser.IsChromium() && m.FirefoxExtensionID == "" {
		return errors.New("firefox extension ID is required")
	}
	return nil
}

func (m *ManifestInstaller) homeDir() string {
	if m.BaseDir != "" {
		return m.BaseDir
	}
	home, _ := os.UserHomeDir()
	return home
}

func (m *ManifestInstaller) platform() string {
	if m.Platform != "" {
		return m.Platform
	}
	return runtime.GOOS
}

// Path returns the manifest path for browser.
func (m *ManifestInstaller) Path(browser Browser) string {
	return ManifestPath(browser, m.platform(), m.homeDir())
}

// Install writes the manifest for browser and registers it.
func (m *ManifestInstaller) Install(browser Browser) (string, error) {
	if err := m.Validate(browser); err != nil {
		return "", err
	}
	path := m.Path(browser)
	if path == "" {
		return "", fmt.Errorf("unsupported browser/platform: %s/%s", browser, m.platform())
	}
	var content []byte
	if browser.IsChromium() {
		content = GenerateChromeManifest(m.HostPath, m.ChromeExtensionID)
	} else {
		content = GenerateFirefoxManifest(m.HostPath, m.FirefoxExtensionID)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	register := m.Register
	if register == nil {
		register = registerManifest
	}
	if err := register(browser, path); err != nil {
		return path, fmt.Errorf("failed to register manifest: %w", err)
	}
	return path, nil
}

// Uninstall removes the manifest for browser. Missing files are not an error.
func (m *ManifestInstaller) Uninstall(browser Browser) error {
	path := m.Path(browser)
	if path == "" {
		return fmt.Errorf("unsupported browser/platform: %s/%s", browser, m.platform())
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	unregister := m.Unregister
	if unregister == nil {
		unregister = unregisterManifest
	}
	return unregister(browser)
}

// Installed reports whether a manifest file exists for browser.
func (m *ManifestInstaller) Installed(browser Browser) bool {
	path := m.Path(browser)
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// IsBrowserLaunch reports whether args look like a browser starting the
// host: Chromium passes the caller origin, Firefox the manifest path and
// extension ID.
func IsBrowserLaunch(args []string) bool {
	if len(args) == 0 {
		return false
	}
	first := args[0]
	if strings.HasPrefix(first, "chrome-extension://") {
		return true
	}
	return strings.HasSuffix(first, HostName+".json")
}
