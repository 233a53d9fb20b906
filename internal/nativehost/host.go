package nativehost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/autopunch/autopunch/internal/workflow"
	"github.com/autopunch/autopunch/pkg/logger"
)

// SimulateMessage is returned once the simulated flow has been started.
const SimulateMessage = "已觸發模擬五點流程（先取下班時間，再以 dry-run 執行）"

// Backend is what the host needs from the rest of the program.
type Backend interface {
	// Enabled reports the toggle state.
	Enabled() bool
	// Toggle flips the toggle and returns the new state.
	Toggle() (bool, error)
	// Punch runs a dry-run workflow and returns its result.
	Punch(ctx context.Context) workflow.Result
	// SpawnCheck starts a detached catch-up check.
	SpawnCheck() error
	// SpawnSimulate starts a detached simulated five o'clock flow.
	SpawnSimulate() error
}

// Host serves native messaging requests on stdin/stdout.
type Host struct {
	backend Backend
	stdin   io.Reader
	stdout  io.Writer
	log     logger.Logger
}

// NewHost creates a host bound to the process's stdin and stdout.
func NewHost(backend Backend, l logger.Logger) *Host {
	return NewHostWithIO(backend, os.Stdin, os.Stdout, l)
}

// NewHostWithIO creates a host on the given streams.
func NewHostWithIO(backend Backend, in io.Reader, out io.Writer, l logger.Logger) *Host {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Host{backend: backend, stdin: in, stdout: out, log: l}
}

// Run serves requests until stdin is closed. Browsers usually send a single
// message per launch; more are served in order.
func (h *Host) Run(ctx context.Context) error {
	for {
		err := h.processOneMessage(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (h *Host) processOneMessage(ctx context.Context) error {
	data, err := ReadMessage(h.stdin)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return io.EOF
		}
		return err
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return WriteJSON(h.stdout, ErrorResponse{Error: fmt.Sprintf("invalid request: %v", err)})
	}
	return WriteJSON(h.stdout, h.handleRequest(ctx, req))
}

func (h *Host) handleRequest(ctx context.Context, req Request) any {
	h.log.Info("nativehost: action %q", req.Action)
	switch req.Action {
	case ActionStatus:
		return EnabledResponse{Enabled: h.backend.Enabled()}

	case ActionToggle:
		enabled, err := h.backend.Toggle()
		if err != nil {
			return ErrorResponse{Error: err.Error()}
		}
		if enabled {
			// Catch up right away in case today's off-duty time already passed.
			if err := h.backend.SpawnCheck(); err != nil {
				h.log.Warning("nativehost: spawn check: %v", err)
			}
		}
		return EnabledResponse{Enabled: enabled}

	case ActionPunch:
		return h.backend.Punch(ctx)

	case ActionSimulate, ActionSimulateFivePM:
		if err := h.backend.SpawnSimulate(); err != nil {
			return ErrorResponse{Error: err.Error()}
		}
		return SimulateResponse{OK: true, Message: SimulateMessage}

	default:
		return ErrorResponse{Error: "Unknown action"}
	}
}
