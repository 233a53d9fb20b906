//go:build windows

package browsercookie

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	dpapiPrefix  = "DPAPI"
	gcmNonceSize = 12
)

// gcmDecrypter handles v10 values sealed with the profile's AES key, which
// Local State keeps wrapped by DPAPI. Values without a prefix are DPAPI
// blobs themselves. App-bound v20 values cannot be opened outside the
// browser.
type gcmDecrypter struct {
	storePath string

	once sync.Once
	key  []byte
	err  error
}

func newDecrypter(_, storePath string) chromeDecrypter {
	return &gcmDecrypter{storePath: storePath}
}

func (d *gcmDecrypter) decrypt(hostKey string, enc []byte) (string, error) {
	if !bytes.HasPrefix(enc, []byte("v1")) && !bytes.HasPrefix(enc, []byte("v2")) {
		plain, err := dpapiUnprotect(enc)
		if err != nil {
			return "", err
		}
		return string(plain), nil
	}
	if len(enc) < 3 || string(enc[:3]) != "v10" {
		return "", fmt.Errorf("%w: %q", errUnsupportedCipher, enc[:min(3, len(enc))])
	}
	data := enc[3:]
	if len(data) < gcmNonceSize {
		return "", errors.New("ciphertext too short")
	}
	d.once.Do(func() { d.key, d.err = masterKey(d.storePath) })
	if d.err != nil {
		return "", d.err
	}
	block, err := aes.NewCipher(d.key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	plain, err := gcm.Open(nil, data[:gcmNonceSize], data[gcmNonceSize:], nil)
	if err != nil {
		return "", err
	}
	return string(stripDomainHash(hostKey, plain)), nil
}

// masterKey reads the wrapped key from the Local State file above the
// cookie store (User Data\Local State).
func masterKey(storePath string) ([]byte, error) {
	dir := filepath.Dir(storePath)
	for range 3 {
		raw, err := os.ReadFile(filepath.Join(dir, "Local State"))
		if err == nil {
			return unwrapKey(raw)
		}
		dir = filepath.Dir(dir)
	}
	return nil, fmt.Errorf("no Local State found above %s", storePath)
}

func unwrapKey(localState []byte) ([]byte, error) {
	var st struct {
		OSCrypt struct {
			EncryptedKey string `json:"encrypted_key"`
		} `json:"os_crypt"`
	}
	if err := json.Unmarshal(localState, &st); err != nil {
		return nil, fmt.Errorf("parse Local State: %w", err)
	}
	wrapped, err := base64.StdEncoding.DecodeString(st.OSCrypt.EncryptedKey)
	if err != nil {
		return nil, fmt.Errorf("decode os_crypt key: %w", err)
	}
	if !bytes.HasPrefix(wrapped, []byte(dpapiPrefix)) {
		return nil, errors.New("os_crypt key is not DPAPI wrapped")
	}
	return dpapiUnprotect(wrapped[len(dpapiPrefix):])
}

func dpapiUnprotect(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty DPAPI blob")
	}
	in := windows.DataBlob{Size: uint32(len(data)), Data: &data[0]}
	var out windows.DataBlob
	if err := windows.CryptUnprotectData(&in, nil, nil, 0, nil, 0, &out); err != nil {
		return nil, fmt.Errorf("CryptUnprotectData: %w", err)
	}
	defer windows.LocalFree(windows.Handle(unsafe.Pointer(out.Data)))
	return bytes.Clone(unsafe.Slice(out.Data, out.Size)), nil
}
