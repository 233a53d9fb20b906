// Package control exposes a running daemon over JSON-RPC 2.0 on a Unix
// socket or, on Windows, a named pipe. Messages are newline delimited.
package control

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/autopunch/autopunch/internal/scheduler"
	"github.com/autopunch/autopunch/pkg/logger"
	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/creachadair/jrpc2/handler"
)

// Method names.
const (
	MethodVersion         = "system.getVersion"
	MethodSchedulerStatus = "scheduler.status"
	MethodToggleStatus    = "toggle.status"
	MethodToggleSet       = "toggle.set"
	MethodShutdown        = "daemon.shutdown"
)

const codeToggleFailed = jrpc2.Code(-32010)

// StatusSource reports the scheduler's state.
type StatusSource interface {
	Status() scheduler.Status
}

// Toggle is the persistent enable switch.
type Toggle interface {
	IsEnabled() bool
	SetEnabled(bool) error
}

// VersionResult is the response for system.getVersion.
type VersionResult struct {
	Version string `json:"version"`
	PID     int    `json:"pid"`
}

// ToggleState is the response for toggle.status and toggle.set.
type ToggleState struct {
	Enabled bool `json:"enabled"`
}

// EmptyResult is returned by methods with nothing to report.
type EmptyResult struct{}

// SetToggleParams is the input for toggle.set.
type SetToggleParams struct {
	Enabled bool `json:"enabled"`
}

// Server serves control requests.
type Server struct {
	sched   StatusSource
	toggle  Toggle
	log     logger.Logger
	version VersionResult
	methods handler.Map

	mu         sync.Mutex
	onShutdown func()

	wg sync.WaitGroup
}

// NewServer builds the method table.
func NewServer(sched StatusSource, toggle Toggle, l logger.Logger, version string, pid int) *Server {
	if l == nil {
		l = logger.NewNopLogger()
	}
	s := &Server{
		sched:   sched,
		toggle:  toggle,
		log:     l,
		version: VersionResult{Version: version, PID: pid},
	}
	s.methods = handler.Map{
		MethodVersion:         handler.New(s.systemGetVersion),
		MethodSchedulerStatus: handler.New(s.schedulerStatus),
		MethodToggleStatus:    handler.New(s.toggleStatus),
		MethodToggleSet:       handler.New(s.toggleSet),
		MethodShutdown:        handler.New(s.daemonShutdown),
	}
	return s
}

// OnShutdown sets what daemon.shutdown does. Without it the method fails.
func (s *Server) OnShutdown(fn func()) {
	s.mu.Lock()
	s.onShutdown = fn
	s.mu.Unlock()
}

func (s *Server) systemGetVersion(context.Context) (*VersionResult, error) {
	v := s.version
	return &v, nil
}

func (s *Server) schedulerStatus(context.Context) (*scheduler.Status, error) {
	st := s.sched.Status()
	return &st, nil
}

func (s *Server) toggleStatus(context.Context) (*ToggleState, error) {
	return &ToggleState{Enabled: s.toggle.IsEnabled()}, nil
}

func (s *Server) toggleSet(_ context.Context, p *SetToggleParams) (*ToggleState, error) {
	if err := s.toggle.SetEnabled(p.Enabled); err != nil {
		return nil, &jrpc2.Error{Code: codeToggleFailed, Message: err.Error()}
	}
	s.log.Info("control: toggle set to %v", p.Enabled)
	return &ToggleState{Enabled: s.toggle.IsEnabled()}, nil
}

func (s *Server) daemonShutdown(context.Context) (*EmptyResult, error) {
	s.mu.Lock()
	fn := s.onShutdown
	s.mu.Unlock()
	if fn == nil {
		return nil, &jrpc2.Error{Code: jrpc2.MethodNotFound, Message: "shutdown not supported"}
	}
	s.log.Info("control: shutdown requested")
	// Reply before the listener goes away.
	go fn()
	return &EmptyResult{}, nil
}

// ServeChannel serves one client until it disconnects.
func (s *Server) ServeChannel(ch channel.Channel) error {
	srv := jrpc2.NewServer(s.methods, nil).Start(ch)
	return srv.Wait()
}

// Serve accepts connections on l until ctx is done, then closes l and waits
// for open connections to finish.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()
	defer s.wg.Wait()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			closeOnDone := context.AfterFunc(ctx, func() { conn.Close() })
			defer closeOnDone()
			if err := s.ServeChannel(channel.Line(conn, conn)); err != nil && ctx.Err() == nil {
				s.log.Warning("control: connection: %v", err)
			}
		}()
	}
}
