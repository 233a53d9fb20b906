package workflow

import "errors"

// Outcome names how a run ended.
type Outcome string

const (
	OutcomeSubmitted        Outcome = "submitted"
	OutcomeDryRunPreview    Outcome = "dry-run-preview"
	OutcomeDisabled         Outcome = "disabled"
	OutcomeAlreadyDone      Outcome = "already-done"
	OutcomeNoPunchInRecord  Outcome = "no-punch-in-record"
	OutcomeAuthRequired     Outcome = "auth-required"
	OutcomeSessionClosed    Outcome = "session-closed"
	OutcomeRetriesExhausted Outcome = "retries-exhausted"
	OutcomeError            Outcome = "error"
)

// AttemptClass classifies one failed attempt inside the retry loop. All
// classes lead to the same reload-and-retry handling; they differ only in
// what gets logged and reported.
type AttemptClass int

const (
	AttemptOK AttemptClass = iota
	AttemptOCRTooShort
	AttemptCaptchaRejected
	AttemptUnknownSubmitState
)

func (c AttemptClass) String() string {
	switch c {
	case AttemptOK:
		return "ok"
	case AttemptOCRTooShort:
		return "ocr-too-short"
	case AttemptCaptchaRejected:
		return "captcha-rejected"
	case AttemptUnknownSubmitState:
		return "unknown-submit-state"
	default:
		return "unknown"
	}
}

// ErrAuthRequired is carried by results whose page showed no logged-in user.
var ErrAuthRequired = errors.New("authentication required")

// Result is the terminal state of one run. Its JSON form is what the native
// messaging host returns to the browser extension.
type Result struct {
	Success  bool    `json:"success"`
	Captcha  string  `json:"captcha"`
	Message  string  `json:"message"`
	Debug    string  `json:"debug,omitempty"`
	Outcome  Outcome `json:"outcome"`
	Attempts int     `json:"attempts"`

	// Err holds the cause of a failed run, for errors.Is checks.
	Err error `json:"-"`
}

// ExitCode maps the result to the process exit status.
func (r Result) ExitCode() int {
	if r.Success {
		return 0
	}
	return 1
}
