// Package punchcli is the client side of the autopunch daemon's control
// channel, plus helpers to start detached autopunch processes.
package punchcli

import (
	"context"
	"fmt"
	"time"

	"github.com/autopunch/autopunch/internal/control"
	"github.com/autopunch/autopunch/internal/scheduler"
	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
)

// DefaultDialTimeout bounds connecting to the daemon.
const DefaultDialTimeout = 2 * time.Second

// Client talks to a running daemon.
type Client struct {
	rpc *jrpc2.Client
}

// Dial connects to the daemon listening on endpoint.
func Dial(ctx context.Context, endpoint string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultDialTimeout)
	defer cancel()
	conn, err := control.Dial(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("daemon not reachable at %s: %w", endpoint, err)
	}
	return NewClient(channel.Line(conn, conn)), nil
}

// NewClient wraps an established channel.
func NewClient(ch channel.Channel) *Client {
	return &Client{rpc: jrpc2.NewClient(ch, nil)}
}

// Version returns the daemon's version and pid.
func (c *Client) Version(ctx context.Context) (*control.VersionResult, error) {
	var v control.VersionResult
	if err := c.rpc.CallResult(ctx, control.MethodVersion, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// SchedulerStatus returns the scheduler's current state.
func (c *Client) SchedulerStatus(ctx context.Context) (*scheduler.Status, error) {
	var st scheduler.Status
	if err := c.rpc.CallResult(ctx, control.MethodSchedulerStatus, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// ToggleStatus reports whether automatic clock-out is enabled.
func (c *Client) ToggleStatus(ctx context.Context) (bool, error) {
	var s control.ToggleState
	if err := c.rpc.CallResult(ctx, control.MethodToggleStatus, nil, &s); err != nil {
		return false, err
	}
	return s.Enabled, nil
}

// SetToggle enables or disables automatic clock-out.
func (c *Client) SetToggle(ctx context.Context, enabled bool) (bool, error) {
	var s control.ToggleState
	if err := c.rpc.CallResult(ctx, control.MethodToggleSet, control.SetToggleParams{Enabled: enabled}, &s); err != nil {
		return false, err
	}
	return s.Enabled, nil
}

// Shutdown asks the daemon to stop.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.rpc.CallResult(ctx, control.MethodShutdown, nil, &control.EmptyResult{})
}

// Close disconnects from the daemon.
func (c *Client) Close() error {
	return c.rpc.Close()
}
