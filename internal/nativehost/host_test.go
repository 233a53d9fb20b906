package nativehost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/autopunch/autopunch/internal/workflow"
	"github.com/autopunch/autopunch/pkg/logger"
)

type mockBackend struct {
	enabled     bool
	toggleErr   error
	spawnErr    error
	checks      int
	simulations int
	punches     int
	result      workflow.Result
}

func (m *mockBackend) Enabled() bool { return m.enabled }

func (m *mockBackend) Toggle() (bool, error) {
	if m.toggleErr != nil {
		return false, m.toggleErr
	}
	m.enabled = !m.enabled
	return m.enabled, nil
}

func (m *mockBackend) Punch(context.Context) workflow.Result {
	m.punches++
	return m.result
}

func (m *mockBackend) SpawnCheck() error {
	m.checks++
	return m.spawnErr
}

func (m *mockBackend) SpawnSimulate() error {
	m.simulations++
	return m.spawnErr
}

func frame(t *testing.T, msgs ...string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	for _, m := range msgs {
		if err := WriteMessage(&buf, []byte(m)); err != nil {
			t.Fatal(err)
		}
	}
	return &buf
}

func readAll(t *testing.T, out *bytes.Buffer) []map[string]any {
	t.Helper()
	var res []map[string]any
	for out.Len() > 0 {
		data, err := ReadMessage(out)
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("Unmarshal %q: %v", data, err)
		}
		res = append(res, m)
	}
	return res
}

func runHost(t *testing.T, b Backend, msgs ...string) []map[string]any {
	t.Helper()
	var out bytes.Buffer
	h := NewHostWithIO(b, frame(t, msgs...), &out, logger.NewNopLogger())
	if err := h.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return readAll(t, &out)
}

func TestHostHandleRequest(t *testing.T) {
	tests := []struct {
		name    string
		backend *mockBackend
		msg     string
		want    map[string]any
		checks  int
		sims    int
	}{
		{
			name:    "status",
			backend: &mockBackend{enabled: true},
			msg:     `{"action":"status"}`,
			want:    map[string]any{"enabled": true},
		},
		{
			name:    "toggle on spawns check",
			backend: &mockBackend{enabled: false},
			msg:     `{"action":"toggle"}`,
			want:    map[string]any{"enabled": true},
			checks:  1,
		},
		{
			name:    "toggle off does not spawn",
			backend: &mockBackend{enabled: true},
			msg:     `{"action":"toggle"}`,
			want:    map[string]any{"enabled": false},
		},
		{
			name:    "toggle on survives spawn failure",
			backend: &mockBackend{spawnErr: errors.New("no exec")},
			msg:     `{"action":"toggle"}`,
			want:    map[string]any{"enabled": true},
			checks:  1,
		},
		{
			name:    "toggle error",
			backend: &mockBackend{toggleErr: errors.New("read-only")},
			msg:     `{"action":"toggle"}`,
			want:    map[string]any{"error": "read-only"},
		},
		{
			name:    "simulate",
			backend: &mockBackend{},
			msg:     `{"action":"simulate"}`,
			want:    map[string]any{"ok": true, "message": SimulateMessage},
			sims:    1,
		},
		{
			name:    "simulate-five-pm alias",
			backend: &mockBackend{},
			msg:     `{"action":"simulate-five-pm"}`,
			want:    map[string]any{"ok": true, "message": SimulateMessage},
			sims:    1,
		},
		{
			name:    "simulate spawn failure",
			backend: &mockBackend{spawnErr: errors.New("no exec")},
			msg:     `{"action":"simulate"}`,
			want:    map[string]any{"error": "no exec"},
			sims:    1,
		},
		{
			name:    "unknown action",
			backend: &mockBackend{},
			msg:     `{"action":"explode"}`,
			want:    map[string]any{"error": "Unknown action"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := runHost(t, tt.backend, tt.msg)
			if len(res) != 1 {
				t.Fatalf("got %d responses, want 1", len(res))
			}
			for k, v := range tt.want {
				if res[0][k] != v {
					t.Errorf("%s = %v, want %v", k, res[0][k], v)
				}
			}
			if len(res[0]) != len(tt.want) {
				t.Errorf("response = %v, want %v", res[0], tt.want)
			}
			if tt.backend.checks != tt.checks {
				t.Errorf("checks = %d, want %d", tt.backend.checks, tt.checks)
			}
			if tt.backend.simulations != tt.sims {
				t.Errorf("simulations = %d, want %d", tt.backend.simulations, tt.sims)
			}
		})
	}
}

func TestHostPunchReturnsResult(t *testing.T) {
	b := &mockBackend{result: workflow.Result{
		Success: true,
		Captcha: "5678",
		Message: "Test finished, challenge recognized",
		Outcome: workflow.OutcomeDryRunPreview,
	}}
	res := runHost(t, b, `{"action":"punch"}`)
	if b.punches != 1 {
		t.Fatalf("punches = %d", b.punches)
	}
	got := res[0]
	if got["success"] != true || got["captcha"] != "5678" || got["message"] != "Test finished, challenge recognized" {
		t.Errorf("response = %v", got)
	}
}

func TestHostInvalidJSON(t *testing.T) {
	res := runHost(t, &mockBackend{}, `{not json`)
	if len(res) != 1 {
		t.Fatalf("got %d responses", len(res))
	}
	if _, ok := res[0]["error"]; !ok {
		t.Errorf("response = %v, want error", res[0])
	}
}

func TestHostMultipleMessages(t *testing.T) {
	b := &mockBackend{}
	res := runHost(t, b, `{"action":"status"}`, `{"action":"toggle"}`, `{"action":"status"}`)
	if len(res) != 3 {
		t.Fatalf("got %d responses, want 3", len(res))
	}
	want := []bool{false, true, true}
	for i, w := range want {
		if res[i]["enabled"] != w {
			t.Errorf("response %d = %v, want enabled=%v", i, res[i], w)
		}
	}
}

func TestHostEOFHandling(t *testing.T) {
	var out bytes.Buffer
	h := NewHostWithIO(&mockBackend{}, &bytes.Buffer{}, &out, nil)
	if err := h.Run(context.Background()); err != nil {
		t.Errorf("Run on empty input: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %q", out.Bytes())
	}
}
