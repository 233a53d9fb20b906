// Package browsercookie borrows the user's logged-in session from a desktop
// browser so the attendance page can be fetched without a separate login.
// Firefox and Chromium SQLite stores and Netscape cookie files are read.
//
// Cookie values are credentials: never log them.
package browsercookie

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Format identifies a cookie store layout.
type Format int

const (
	FormatUnknown Format = iota
	FormatFirefox
	FormatChrome
	FormatNetscape
)

func (f Format) String() string {
	switch f {
	case FormatFirefox:
		return "firefox"
	case FormatChrome:
		return "chrome"
	case FormatNetscape:
		return "netscape"
	default:
		return "unknown"
	}
}

// Source says where cookies came from.
type Source struct {
	Browser string
	Path    string
	Format  Format
}

// ErrNoStore is returned by Discover when no browser store has cookies for the host.
var ErrNoStore = errors.New("no browser cookie store found")

var sqliteMagic = []byte("SQLite format 3\x00")

// DetectFormat inspects the file at path.
func DetectFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("open cookie store: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, _ := f.Read(head)
	head = head[:n]
	if n == 0 {
		return FormatUnknown, fmt.Errorf("cookie store %s is empty", path)
	}
	if bytes.HasPrefix(head, sqliteMagic) {
		return sqliteFormat(path)
	}
	first, _, _ := strings.Cut(string(head), "\n")
	switch strings.TrimRight(first, "\r") {
	case "# Netscape HTTP Cookie File", "# HTTP Cookie File":
		return FormatNetscape, nil
	}
	return FormatUnknown, fmt.Errorf("unrecognized cookie store %s", path)
}

// Load reads the cookies for host from the store at path.
func Load(path, host string) ([]*http.Cookie, Source, error) {
	return load(path, host, "")
}

func load(path, host, browser string) ([]*http.Cookie, Source, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, Source{}, err
	}
	src := Source{Path: path, Format: format, Browser: format.String()}
	var cookies []*http.Cookie
	switch format {
	case FormatFirefox, FormatChrome:
		cookies, err = readSQLite(path, format, host, browser)
	case FormatNetscape:
		cookies, err = readNetscape(path, host)
	}
	if err != nil {
		return nil, src, err
	}
	return cookies, src, nil
}

// Discover searches the known browser profiles, in priority order, for a
// store holding at least one cookie for host.
func Discover(host string) ([]*http.Cookie, Source, error) {
	return discover(host, candidates())
}

func discover(host string, cands []candidate) ([]*http.Cookie, Source, error) {
	for _, c := range cands {
		for _, path := range c.paths() {
			if _, err := os.Stat(path); err != nil {
				continue
			}
			cookies, src, err := load(path, host, c.browser)
			if err != nil || len(cookies) == 0 {
				continue
			}
			src.Browser = c.browser
			return cookies, src, nil
		}
	}
	return nil, Source{}, fmt.Errorf("%w for %s", ErrNoStore, host)
}

// Jar returns a cookie jar seeded with cookies for target.
func Jar(target *url.URL, cookies []*http.Cookie) (http.CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	if len(cookies) > 0 {
		jar.SetCookies(target, cookies)
	}
	return jar, nil
}

// Names lists cookie names, for logging.
func Names(cookies []*http.Cookie) []string {
	names := make([]string, len(cookies))
	for i, c := range cookies {
		names[i] = c.Name
	}
	return names
}

// matchHost reports whether a stored cookie domain applies to host.
func matchHost(domain, host string) bool {
	domain = strings.TrimPrefix(strings.ToLower(domain), ".")
	host = strings.ToLower(host)
	return domain == host || strings.HasSuffix(host, "."+domain)
}
