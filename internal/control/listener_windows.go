//go:build windows

package control

import (
	"context"
	"net"

	"github.com/Microsoft/go-winio"
	"github.com/autopunch/autopunch/common"
)

// pipeSecurityDescriptor grants full control to SYSTEM, Administrators and
// the creator owner only.
const pipeSecurityDescriptor = "D:(A;;GA;;;SY)(A;;GA;;;BA)(A;;GA;;;CO)"

// Endpoint returns the daemon's named pipe. configDir is unused on Windows.
func Endpoint(string) string {
	return common.PipePath()
}

// Listen creates the named pipe listener.
func Listen(endpoint string) (net.Listener, error) {
	return winio.ListenPipe(endpoint, &winio.PipeConfig{
		SecurityDescriptor: pipeSecurityDescriptor,
	})
}

// Dial connects to the named pipe.
func Dial(ctx context.Context, endpoint string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, endpoint)
}
