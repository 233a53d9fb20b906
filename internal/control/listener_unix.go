//go:build !windows

package control

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"os"
	"path/filepath"

	"github.com/autopunch/autopunch/common"
)

// Endpoint returns the control socket inside configDir.
func Endpoint(configDir string) string {
	return filepath.Join(configDir, common.SocketFileName)
}

// Listen creates the control socket, replacing a stale one. Callers hold the
// scheduler lock, so no other daemon can own the path.
func Listen(endpoint string) (net.Listener, error) {
	if err := os.Remove(endpoint); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	l, err := net.ListenUnix("unix", &net.UnixAddr{Name: endpoint, Net: "unix"})
	if err != nil {
		return nil, err
	}
	l.SetUnlinkOnClose(true)
	_ = os.Chmod(endpoint, 0700)
	return l, nil
}

// Dial connects to the control socket.
func Dial(ctx context.Context, endpoint string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", endpoint)
}
