package cmd

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/autopunch/autopunch/internal/app"
	"github.com/autopunch/autopunch/internal/config"
	"github.com/autopunch/autopunch/internal/scheduler"
	"github.com/autopunch/autopunch/internal/workflow"
	"github.com/autopunch/autopunch/pkg/logger"
	"github.com/urfave/cli"
)

// captureStdout swaps the package output writer for the test.
func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	old := stdout
	stdout = buf
	t.Cleanup(func() { stdout = old })
	return buf
}

// stubSpawn records spawned argument lists.
func stubSpawn(t *testing.T) *[][]string {
	t.Helper()
	var calls [][]string
	old := spawn
	spawn = func(args ...string) error {
		calls = append(calls, args)
		return nil
	}
	t.Cleanup(func() { spawn = old })
	return &calls
}

func execute(t *testing.T, args ...string) {
	t.Helper()
	err := Execute(append([]string{"autopunch"}, args...), BuildArgs{Version: "1.2.3", BuildType: "test"})
	if err != nil {
		t.Fatalf("Execute(%v) error = %v", args, err)
	}
}

func testEnv(t *testing.T) *app.Env {
	t.Helper()
	return app.New(config.Default(t.TempDir()), logger.NewMockLogger())
}

func TestRouteBrowserLaunch(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"chrome origin", []string{"autopunch", "chrome-extension://abc/"}, []string{"autopunch", "native-host", "run"}},
		{"firefox manifest", []string{"autopunch", "/home/u/.mozilla/native-messaging-hosts/com.autopunch.host.json", "x@y"}, []string{"autopunch", "native-host", "run"}},
		{"command", []string{"autopunch", "status"}, []string{"autopunch", "status"}},
		{"no args", []string{"autopunch"}, []string{"autopunch"}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := routeBrowserLaunch(tt.args); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("routeBrowserLaunch(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestReport(t *testing.T) {
	tests := []struct {
		name     string
		res      workflow.Result
		wantOut  []string
		wantErr  string
		wantCode int
	}{
		{
			name:    "submitted",
			res:     workflow.Result{Success: true, Outcome: workflow.OutcomeSubmitted, Message: "done", Captcha: "1234"},
			wantOut: []string{"done", "captcha: 1234"},
		},
		{
			name:     "failure with debug",
			res:      workflow.Result{Outcome: workflow.OutcomeRetriesExhausted, Message: "gave up", Debug: "last: wrong code"},
			wantOut:  []string{"gave up"},
			wantErr:  "retries-exhausted: last: wrong code",
			wantCode: 1,
		},
		{
			name:     "failure without debug",
			res:      workflow.Result{Outcome: workflow.OutcomeAuthRequired, Message: "login"},
			wantOut:  []string{"login"},
			wantErr:  "auth-required",
			wantCode: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := report(&buf, tt.res)
			for _, s := range tt.wantOut {
				if !strings.Contains(buf.String(), s) {
					t.Errorf("output %q missing %q", buf.String(), s)
				}
			}
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("report() error = %v", err)
				}
				return
			}
			var ec cli.ExitCoder
			if !errors.As(err, &ec) {
				t.Fatalf("report() error = %v, want ExitCoder", err)
			}
			if ec.ExitCode() != tt.wantCode || ec.Error() != tt.wantErr {
				t.Errorf("report() = (%d, %q), want (%d, %q)", ec.ExitCode(), ec.Error(), tt.wantCode, tt.wantErr)
			}
		})
	}
}

func TestPrintStatus_NoDaemon(t *testing.T) {
	env := testEnv(t)
	var buf bytes.Buffer
	printStatus(&buf, env, nil)
	out := buf.String()
	for _, s := range []string{"Auto clock-out : enabled", "Today claimed  : no", "Daemon         : not running", "Next window    : "} {
		if !strings.Contains(out, s) {
			t.Errorf("output missing %q:\n%s", s, out)
		}
	}
	if strings.Contains(out, "Scheduler") {
		t.Errorf("unexpected scheduler line:\n%s", out)
	}
}

func TestPrintStatus_WithScheduler(t *testing.T) {
	env := testEnv(t)
	if err := env.Toggle.SetEnabled(false); err != nil {
		t.Fatal(err)
	}
	armed := time.Date(2026, 3, 2, 17, 41, 0, 0, env.Oracle.Zone())
	st := &scheduler.Status{
		State:      scheduler.ArmedWaitingTimer,
		ArmedAt:    &armed,
		LastRun:    &armed,
		LastResult: &workflow.Result{Outcome: workflow.OutcomeSubmitted, Message: "ok"},
	}
	var buf bytes.Buffer
	printStatus(&buf, env, st)
	out := buf.String()
	for _, s := range []string{
		"Auto clock-out : disabled",
		"Scheduler      : armed-waiting-timer",
		"Armed for      : 2026-03-02T17:41:00",
		"Last run       : 2026-03-02T17:41:00",
		"submitted (ok)",
	} {
		if !strings.Contains(out, s) {
			t.Errorf("output missing %q:\n%s", s, out)
		}
	}
}

func TestSetToggle_DirectWithoutDaemon(t *testing.T) {
	var got []bool
	enabled, err := setToggle(t.TempDir(), false, func(b bool) error {
		got = append(got, b)
		return nil
	})
	if err != nil || enabled {
		t.Fatalf("setToggle() = %v, %v; want false, nil", enabled, err)
	}
	if !reflect.DeepEqual(got, []bool{false}) {
		t.Errorf("direct writes = %v", got)
	}

	_, err = setToggle(t.TempDir(), true, func(bool) error { return errors.New("read-only") })
	if err == nil {
		t.Error("expected direct write error")
	}
}

func TestExecute_ToggleOffThenOn(t *testing.T) {
	dir := t.TempDir()
	out := captureStdout(t)
	calls := stubSpawn(t)

	execute(t, "--config-dir", dir, "toggle", "off")
	if !strings.Contains(out.String(), "Auto clock-out disabled") {
		t.Errorf("output = %q", out.String())
	}
	if len(*calls) != 0 {
		t.Errorf("spawned on disable: %v", *calls)
	}

	out.Reset()
	execute(t, "--config-dir", dir, "toggle")
	if !strings.Contains(out.String(), "Auto clock-out enabled") {
		t.Errorf("output = %q", out.String())
	}
	want := [][]string{{"--config-dir", dir, "check"}}
	if !reflect.DeepEqual(*calls, want) {
		t.Errorf("spawned %v, want %v", *calls, want)
	}
}

func TestExecute_StatusAndStopWithoutDaemon(t *testing.T) {
	dir := t.TempDir()
	out := captureStdout(t)

	execute(t, "--config-dir", dir, "status")
	if !strings.Contains(out.String(), "Daemon         : not running") {
		t.Errorf("status output = %q", out.String())
	}

	out.Reset()
	execute(t, "--config-dir", dir, "stop")
	if !strings.Contains(out.String(), "Daemon is not running") {
		t.Errorf("stop output = %q", out.String())
	}
}

func TestExecute_SetsVersion(t *testing.T) {
	captureStdout(t)
	execute(t, "--config-dir", t.TempDir(), "status")
	if currentVersion != "1.2.3-test" {
		t.Errorf("currentVersion = %q", currentVersion)
	}
}

func TestSetupShutdownHandler(t *testing.T) {
	ctx, cancel := setupShutdownHandler()
	if ctx.Err() != nil {
		t.Fatalf("context already done: %v", ctx.Err())
	}
	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("cancel did not close the context")
	}
	if !errors.Is(ctx.Err(), context.Canceled) {
		t.Errorf("ctx.Err() = %v", ctx.Err())
	}
}
