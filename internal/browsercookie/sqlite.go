package browsercookie

import (
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// chromeEpochDelta is the number of seconds from 1601-01-01 to 1970-01-01.
const chromeEpochDelta int64 = 11_644_473_600

func sqliteFormat(path string) (Format, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return FormatUnknown, err
	}
	defer db.Close()
	for _, t := range []struct {
		table  string
		format Format
	}{{"moz_cookies", FormatFirefox}, {"cookies", FormatChrome}} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, t.table).Scan(&name)
		if err == nil {
			return t.format, nil
		}
	}
	return FormatUnknown, fmt.Errorf("unrecognized cookie database %s", path)
}

var queries = map[Format]string{
	FormatFirefox: `SELECT name, value, host, path, expiry, isSecure, isHttpOnly, x'' FROM moz_cookies`,
	FormatChrome: `SELECT name, value, host_key, path, expires_utc / 1000000 - 11644473600, is_secure, is_httponly,
		encrypted_value FROM cookies`,
}

// readSQLite loads cookies for host. browser picks the keychain entry for
// encrypted Chromium values; cookies that cannot be decrypted are skipped.
func readSQLite(path string, format Format, host, browser string) ([]*http.Cookie, error) {
	dir, err := snapshot(path)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?immutable=1", filepath.Join(dir, filepath.Base(path))))
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(queries[format])
	if err != nil {
		return nil, fmt.Errorf("query %s cookies: %w", format, err)
	}
	defer rows.Close()

	now := time.Now()
	var (
		out []*http.Cookie
		dec chromeDecrypter
	)
	for rows.Next() {
		var (
			name, value, domain, cpath string
			expiry                     int64
			secure, httpOnly           int
			sealed                     []byte
		)
		if err := rows.Scan(&name, &value, &domain, &cpath, &expiry, &secure, &httpOnly, &sealed); err != nil {
			return nil, fmt.Errorf("scan %s cookie: %w", format, err)
		}
		if !matchHost(domain, host) {
			continue
		}
		if format == FormatChrome && value == "" {
			if len(sealed) == 0 {
				continue
			}
			if dec == nil {
				dec = newDecrypter(browser, path)
			}
			v, err := dec.decrypt(domain, sealed)
			if err != nil {
				continue
			}
			value = v
		}
		c := &http.Cookie{
			Name:     name,
			Value:    value,
			Domain:   domain,
			Path:     cpath,
			Secure:   secure != 0,
			HttpOnly: httpOnly != 0,
		}
		// Chromium stores session cookies with expires_utc = 0.
		if expiry > 0 && expiry != -chromeEpochDelta {
			c.Expires = time.Unix(expiry, 0)
			if c.Expires.Before(now) {
				continue
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// snapshot copies a live database and its WAL companions into a temp dir so
// a running browser's lock does not get in the way.
func snapshot(path string) (string, error) {
	dir, err := os.MkdirTemp("", "autopunch-cookies-*")
	if err != nil {
		return "", err
	}
	base := filepath.Base(path)
	if err := copyFile(path, filepath.Join(dir, base)); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if _, err := os.Stat(path + suffix); err == nil {
			_ = copyFile(path+suffix, filepath.Join(dir, base+suffix))
		}
	}
	return dir, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
