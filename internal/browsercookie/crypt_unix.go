//go:build !windows

package browsercookie

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"errors"
	"fmt"
	"runtime"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/pbkdf2"
)

var keyringGet = keyring.Get

const (
	chromeSalt = "saltysalt"
	// Password Chromium uses on Linux when no keyring is available.
	basicPassword = "peanuts"
)

type cbcDecrypter struct {
	browser string
	darwin  bool
	keys    map[string][]byte
}

func newDecrypter(browser, _ string) chromeDecrypter {
	return &cbcDecrypter{browser: browser, darwin: runtime.GOOS == "darwin", keys: map[string][]byte{}}
}

func (d *cbcDecrypter) key(version string) ([]byte, error) {
	if k, ok := d.keys[version]; ok {
		return k, nil
	}
	iterations := 1
	password := basicPassword
	if d.darwin {
		iterations = 1003
	}
	if d.darwin || version == "v11" {
		name := safeStorageName(d.browser)
		p, err := keyringGet(name+" Safe Storage", name)
		if err != nil {
			return nil, fmt.Errorf("read %s Safe Storage password: %w", name, err)
		}
		password = p
	}
	k := pbkdf2.Key([]byte(password), []byte(chromeSalt), iterations, aes.BlockSize, sha1.New)
	d.keys[version] = k
	return k, nil
}

func (d *cbcDecrypter) decrypt(hostKey string, enc []byte) (string, error) {
	if len(enc) < 3 {
		return "", errUnsupportedCipher
	}
	version, data := string(enc[:3]), enc[3:]
	if version != "v10" && version != "v11" {
		return "", fmt.Errorf("%w: %q", errUnsupportedCipher, version)
	}
	if len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", errors.New("ciphertext is not a whole number of blocks")
	}
	key, err := d.key(version)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, bytes.Repeat([]byte{' '}, aes.BlockSize)).CryptBlocks(plain, data)
	plain, err = unpad(plain)
	if err != nil {
		return "", err
	}
	return string(stripDomainHash(hostKey, plain)), nil
}

func unpad(b []byte) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize || n > len(b) {
		return nil, errors.New("bad padding; wrong key?")
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, errors.New("bad padding; wrong key?")
		}
	}
	return b[:len(b)-n], nil
}
