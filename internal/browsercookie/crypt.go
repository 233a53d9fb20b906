package browsercookie

import (
	"bytes"
	"crypto/sha256"
	"errors"
)

// chromeDecrypter recovers the plaintext of a Chromium encrypted_value.
type chromeDecrypter interface {
	decrypt(hostKey string, enc []byte) (string, error)
}

var errUnsupportedCipher = errors.New("unsupported cookie encryption")

// Chromium 130+ prepends SHA-256(host_key) to the plaintext.
func stripDomainHash(hostKey string, plain []byte) []byte {
	sum := sha256.Sum256([]byte(hostKey))
	if bytes.HasPrefix(plain, sum[:]) {
		return plain[len(sum):]
	}
	return plain
}

// safeStorageName is the keychain label a browser keeps its cookie
// password under, minus the " Safe Storage" suffix.
func safeStorageName(browser string) string {
	switch browser {
	case "Edge":
		return "Microsoft Edge"
	case "Chromium", "Brave":
		return browser
	}
	return "Chrome"
}
