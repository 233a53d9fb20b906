//go:build windows

package nativehost

import (
	"errors"

	"golang.org/x/sys/windows/registry"
)

func registerManifest(browser Browser, manifestPath string) error {
	k, _, err := registry.CreateKey(registry.CURRENT_USER, RegistryKey(browser), registry.SET_VALUE)
	if err != nil {
		return err
	}
	defer k.Close()
	return k.SetStringValue("", manifestPath)
}

func unregisterManifest(browser Browser) error {
	err := registry.DeleteKey(registry.CURRENT_USER, RegistryKey(browser))
	if err != nil && !errors.Is(err, registry.ErrNotExist) {
		return err
	}
	return nil
}
