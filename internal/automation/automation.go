// Package automation defines the capabilities the clock-out workflow needs
// from a browser-like session against the attendance page. Implementations
// live elsewhere (see internal/page); this package only holds contracts.
package automation

import (
	"context"
	"errors"
)

// ErrSessionClosed is returned by any Session method once the underlying
// page or connection is gone. Callers stop retrying when they see it.
var ErrSessionClosed = errors.New("automation session closed")

// SubmitResult is what the page shows after a challenge submission.
type SubmitResult struct {
	// Message is the text of the page's message area, possibly empty.
	Message string
	// LastRecordRow holds the cell texts of the last attendance row.
	LastRecordRow []string
}

// Session is one open view of the attendance page.
type Session interface {
	// IsAuthenticated reports whether a user identity is shown.
	IsAuthenticated(ctx context.Context) (bool, error)
	// ReadOffDutyText returns the raw text of the expected off-duty element.
	ReadOffDutyText(ctx context.Context) (string, error)
	// IsAlreadyDone reports whether the page says today's punches are complete.
	IsAlreadyDone(ctx context.Context) (bool, error)
	// ReadPunchInRecord returns the first cell of the last record row, and
	// false when there is no such row.
	ReadPunchInRecord(ctx context.Context) (string, bool, error)
	// CaptureChallengeImage returns the challenge image bytes.
	CaptureChallengeImage(ctx context.Context) ([]byte, error)
	// FillChallenge types code into the challenge input.
	FillChallenge(ctx context.Context, code string) error
	// SubmitChallenge submits the filled challenge and reports the page state.
	SubmitChallenge(ctx context.Context) (SubmitResult, error)
	// Reload navigates to the page again, producing a fresh challenge.
	Reload(ctx context.Context) error
	// Close releases the session. It is safe to call more than once.
	Close() error
}

// Snapshotter is implemented by sessions that can persist a labelled copy
// of the current page for later inspection.
type Snapshotter interface {
	Snapshot(ctx context.Context, label string) (string, error)
}

// OpenOptions control how a session is opened.
type OpenOptions struct {
	Headless bool
}

// Launcher opens sessions.
type Launcher interface {
	Open(ctx context.Context, opts OpenOptions) (Session, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context, opts OpenOptions) (Session, error)

// Open calls f.
func (f LauncherFunc) Open(ctx context.Context, opts OpenOptions) (Session, error) {
	return f(ctx, opts)
}

// Recognizer turns a challenge image into its digits.
type Recognizer interface {
	RecognizeDigits(ctx context.Context, image []byte) (string, error)
}

// RecognizerFunc adapts a function to the Recognizer interface.
type RecognizerFunc func(ctx context.Context, image []byte) (string, error)

// RecognizeDigits calls f.
func (f RecognizerFunc) RecognizeDigits(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}
