//go:build !windows

package nativehost

// Browsers outside Windows find manifests by path alone.
func registerManifest(Browser, string) error { return nil }

func unregisterManifest(Browser) error { return nil }
