//go:build !windows

package control

import (
	"os"
	"testing"
)

func testEndpoint(t *testing.T) string {
	t.Helper()
	// Keep the path short; sun_path is limited to about 100 bytes.
	dir, err := os.MkdirTemp("", "apctl")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return Endpoint(dir)
}
