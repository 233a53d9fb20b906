//go:build windows

package control

import (
	"fmt"
	"os"
	"testing"
)

func testEndpoint(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf(`\\.\pipe\autopunch-test-%d`, os.Getpid())
}
