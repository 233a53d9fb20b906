// Package nativehost implements the browser native messaging host that lets
// the autopunch extension query and flip the toggle, run a dry-run, and
// start the simulated five o'clock flow. Messages are UTF-8 JSON preceded by
// a 4-byte little-endian length.
package nativehost

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MaxMessageSize is the largest message accepted in either direction.
const MaxMessageSize = 1 << 20

// Action names understood by the host.
const (
	ActionStatus         = "status"
	ActionToggle         = "toggle"
	ActionPunch          = "punch"
	ActionSimulate       = "simulate"
	ActionSimulateFivePM = "simulate-five-pm"
)

// Request is a message from the extension.
type Request struct {
	Action string `json:"action"`
	ID     *int   `json:"id,omitempty"`
}

// EnabledResponse answers status and toggle.
type EnabledResponse struct {
	Enabled bool `json:"enabled"`
}

// SimulateResponse answers simulate.
type SimulateResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// ErrorResponse answers anything that could not be handled.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ReadMessage reads one length-prefixed message.
func ReadMessage(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}
	if length > MaxMessageSize {
		return nil, fmt.Errorf("message too large: %d bytes (max %d)", length, MaxMessageSize)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteMessage writes msg with its length prefix.
func WriteMessage(w io.Writer, msg []byte) error {
	if len(msg) > MaxMessageSize {
		return fmt.Errorf("message too large: %d bytes (max %d)", len(msg), MaxMessageSize)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(msg))); err != nil {
		return err
	}
	_, err := w.Write(msg)
	return err
}

// WriteJSON marshals v and writes it as one message.
func WriteJSON(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return WriteMessage(w, b)
}
