//go:build windows

package logger

import (
	"fmt"

	"golang.org/x/sys/windows/svc/eventlog"
)

// Event IDs written to the Windows Event Log.
const (
	EventIDInfo    uint32 = 1
	EventIDWarning uint32 = 2
	EventIDError   uint32 = 3
)

// EventLogWriter is the subset of *eventlog.Log used by EventLogger.
type EventLogWriter interface {
	Info(eid uint32, msg string) error
	Warning(eid uint32, msg string) error
	Error(eid uint32, msg string) error
	Close() error
}

// EventLogger writes to the Windows Event Log under a registered source.
type EventLogger struct {
	w EventLogWriter
}

// NewEventLogger opens the event source. The source must already be
// registered (eventlog.InstallAsEventCreate), otherwise an error is returned
// and callers fall back to console logging.
func NewEventLogger(source string) (*EventLogger, error) {
	l, err := eventlog.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open event log %q: %w", source, err)
	}
	return &EventLogger{w: l}, nil
}

// NewEventLoggerWithWriter wraps an existing writer; used by tests.
func NewEventLoggerWithWriter(w EventLogWriter) *EventLogger {
	return &EventLogger{w: w}
}

// Write failures are dropped: logging must never stop a punch run.
func (e *EventLogger) Info(format string, args ...interface{}) {
	_ = e.w.Info(EventIDInfo, fmt.Sprintf(format, args...))
}

func (e *EventLogger) Warning(format string, args ...interface{}) {
	_ = e.w.Warning(EventIDWarning, fmt.Sprintf(format, args...))
}

func (e *EventLogger) Error(format string, args ...interface{}) {
	_ = e.w.Error(EventIDError, fmt.Sprintf(format, args...))
}

func (e *EventLogger) Close() error {
	if e.w == nil {
		return nil
	}
	return e.w.Close()
}

var _ Logger = (*EventLogger)(nil)
