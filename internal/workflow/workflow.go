// Package workflow drives one clock-out run against the attendance page:
// precondition checks, the wait until off-duty time, and the bounded
// recognize-fill-submit retry loop.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/message"

	"github.com/autopunch/autopunch/internal/automation"
	"github.com/autopunch/autopunch/internal/clock"
	"github.com/autopunch/autopunch/internal/offtime"
	"github.com/autopunch/autopunch/pkg/logger"
)

const (
	DefaultMaxRetry       = 10
	DefaultReloadPause    = 2 * time.Second
	DefaultMaxOffTimeWait = time.Hour
	// MinCodeLength is the shortest recognition result worth submitting.
	MinCodeLength = 3
)

var (
	punchInPattern   = regexp.MustCompile(`^\s*\d{1,2}:\d{2}`)
	rejectionMarkers = []string{"驗證碼錯誤", "確認碼"}
)

// Options select the run mode.
type Options struct {
	// Test runs now regardless of the toggle and the clock-in record guard.
	// The off-time wait still applies unless DryRun is also set.
	Test bool
	// DryRun stops after filling the challenge and never submits. It skips
	// the off-time wait and bypasses the clock-in record guard.
	DryRun bool
}

// Toggle reports whether automatic clock-out is enabled.
type Toggle interface {
	IsEnabled() bool
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config tunes a Workflow.
type Config struct {
	MaxRetry       int
	Headless       bool
	ReloadPause    time.Duration
	MaxOffTimeWait time.Duration
	Lang           string
}

// Workflow runs clock-out attempts. It holds no per-run state and may be
// shared; each Run opens its own session.
type Workflow struct {
	launcher   automation.Launcher
	recognizer automation.Recognizer
	toggle     Toggle
	oracle     *clock.Oracle
	log        logger.Logger
	cfg        Config
	p          *message.Printer

	// WaitOffTime blocks until the off-duty instant. Replaced by the CLI to
	// render a countdown.
	WaitOffTime SleepFunc
	// Pause is used between attempts.
	Pause SleepFunc
}

// New returns a Workflow.
func New(launcher automation.Launcher, recognizer automation.Recognizer, toggle Toggle, oracle *clock.Oracle, l logger.Logger, cfg Config) *Workflow {
	if cfg.MaxRetry <= 0 {
		cfg.MaxRetry = DefaultMaxRetry
	}
	if cfg.ReloadPause < 0 {
		cfg.ReloadPause = 0
	}
	if cfg.MaxOffTimeWait <= 0 {
		cfg.MaxOffTimeWait = DefaultMaxOffTimeWait
	}
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Workflow{
		launcher:    launcher,
		recognizer:  recognizer,
		toggle:      toggle,
		oracle:      oracle,
		log:         l,
		cfg:         cfg,
		p:           NewPrinter(cfg.Lang),
		WaitOffTime: Sleep,
		Pause:       Sleep,
	}
}

// Sleep waits for d unless ctx is cancelled first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run executes one clock-out run and returns its terminal result.
func (w *Workflow) Run(ctx context.Context, opts Options) Result {
	if !opts.Test && !opts.DryRun && w.toggle != nil && !w.toggle.IsEnabled() {
		w.log.Info("workflow: disabled by toggle, skipping")
		return w.success(OutcomeDisabled, w.p.Sprintf(msgDisabled))
	}

	sess, err := w.launcher.Open(ctx, automation.OpenOptions{Headless: w.cfg.Headless})
	if err != nil {
		return w.failure(OutcomeError, fmt.Errorf("open session: %w", err))
	}
	defer func() {
		if err := sess.Close(); err != nil {
			w.log.Warning("workflow: close session: %v", err)
		}
	}()

	if res, done := w.preconditions(ctx, sess, opts); done {
		return res
	}

	if !opts.DryRun {
		if err := w.waitUntilOffTime(ctx, sess); err != nil {
			return w.failure(OutcomeError, err)
		}
	}

	return w.retryLoop(ctx, sess, opts)
}

func (w *Workflow) preconditions(ctx context.Context, sess automation.Session, opts Options) (Result, bool) {
	ok, err := sess.IsAuthenticated(ctx)
	if err != nil {
		return w.stepFailure("check login", err), true
	}
	if !ok {
		w.log.Error("workflow: not logged in")
		res := w.failure(OutcomeAuthRequired, ErrAuthRequired)
		res.Message = w.p.Sprintf(msgAuthRequired)
		return res, true
	}

	done, err := sess.IsAlreadyDone(ctx)
	if err != nil {
		return w.stepFailure("check completion", err), true
	}
	if done {
		w.log.Info("workflow: already completed today")
		return w.success(OutcomeAlreadyDone, w.p.Sprintf(msgAlreadyDone)), true
	}

	record, found, err := sess.ReadPunchInRecord(ctx)
	if err != nil {
		if errors.Is(err, automation.ErrSessionClosed) {
			return w.stepFailure("read clock-in record", err), true
		}
		w.log.Warning("workflow: read clock-in record: %v", err)
		found = false
	}
	hasPunchIn := found && punchInPattern.MatchString(record)
	if hasPunchIn {
		w.log.Info("workflow: clock-in record %s", strings.TrimSpace(record))
	}
	if !opts.Test && !opts.DryRun && !hasPunchIn {
		w.log.Warning("workflow: no clock-in record today, skipping")
		return w.success(OutcomeNoPunchInRecord, w.p.Sprintf(msgNoPunchIn)), true
	}
	return Result{}, false
}

func (w *Workflow) waitUntilOffTime(ctx context.Context, sess automation.Session) error {
	raw, err := sess.ReadOffDutyText(ctx)
	if err != nil {
		if errors.Is(err, automation.ErrSessionClosed) {
			return err
		}
		w.log.Warning("workflow: read off-duty time: %v", err)
		return nil
	}
	t, ok := offtime.Parse(raw)
	if !ok {
		w.log.Warning("workflow: no off-duty time in %q, not waiting", strings.TrimSpace(raw))
		return nil
	}
	now := w.oracle.Now()
	target, err := w.oracle.ToAbsoluteInstant(now.DateKey, t.Hour, t.Minute, t.Second)
	if err != nil {
		return err
	}
	wait := target.Sub(now.Instant)
	if wait <= 0 {
		return nil
	}
	if wait > w.cfg.MaxOffTimeWait {
		w.log.Warning("workflow: off-duty time %s is %s away, capping wait at %s", t, wait.Round(time.Second), w.cfg.MaxOffTimeWait)
		wait = w.cfg.MaxOffTimeWait
	}
	w.log.Info("workflow: waiting %s until %s", wait.Round(time.Second), target.In(w.oracle.Zone()).Format("15:04:05"))
	return w.WaitOffTime(ctx, wait)
}

func (w *Workflow) retryLoop(ctx context.Context, sess automation.Session, opts Options) Result {
	var (
		last      AttemptClass
		lastCode  string
		lastError string
	)
	for attempt := 1; attempt <= w.cfg.MaxRetry; attempt++ {
		if err := ctx.Err(); err != nil {
			return w.withAttempts(w.failure(OutcomeError, err), attempt-1)
		}
		w.log.Info("workflow: attempt %d/%d", attempt, w.cfg.MaxRetry)

		class, code, err := w.attempt(ctx, sess, opts)
		if err != nil {
			return w.withAttempts(w.stepFailure(fmt.Sprintf("attempt %d", attempt), err), attempt)
		}
		lastCode = code
		switch class {
		case AttemptOK:
			if opts.DryRun {
				w.snapshot(ctx, sess, "dry-run-preview")
				res := w.success(OutcomeDryRunPreview, w.p.Sprintf(msgDryRunOK))
				res.Captcha = code
				return w.withAttempts(res, attempt)
			}
			w.log.Info("workflow: clock-out succeeded")
			w.snapshot(ctx, sess, "punch-success")
			res := w.success(OutcomeSubmitted, w.p.Sprintf(msgSubmitted))
			res.Captcha = code
			return w.withAttempts(res, attempt)
		case AttemptOCRTooShort:
			w.log.Warning("workflow: recognition too short (%q), reloading", code)
		default:
			w.log.Warning("workflow: %s, reloading", class)
		}
		last = class
		lastError = class.String()

		if err := sess.Reload(ctx); err != nil {
			return w.withAttempts(w.stepFailure("reload", err), attempt)
		}
		if err := w.Pause(ctx, w.cfg.ReloadPause); err != nil {
			return w.withAttempts(w.failure(OutcomeError, err), attempt)
		}
	}

	w.log.Error("workflow: still failing after %d attempts", w.cfg.MaxRetry)
	w.snapshot(ctx, sess, "punch-failed")
	res := w.failure(OutcomeRetriesExhausted, fmt.Errorf("%d attempts failed, last: %s", w.cfg.MaxRetry, lastError))
	res.Message = w.p.Sprintf(msgRetriesExhausted, w.cfg.MaxRetry)
	if opts.DryRun && last == AttemptOCRTooShort {
		res.Message = w.p.Sprintf(msgOCRTooShort)
		res.Captcha = lastCode
		if res.Captcha == "" {
			res.Captcha = "(none)"
		}
	}
	return w.withAttempts(res, w.cfg.MaxRetry)
}

// attempt runs one capture-recognize-fill-submit cycle.
func (w *Workflow) attempt(ctx context.Context, sess automation.Session, opts Options) (AttemptClass, string, error) {
	img, err := sess.CaptureChallengeImage(ctx)
	if err != nil {
		return 0, "", fmt.Errorf("capture challenge: %w", err)
	}
	raw, err := w.recognizer.RecognizeDigits(ctx, img)
	if err != nil {
		// Recognition failures count like an unreadable image.
		w.log.Warning("workflow: recognize: %v", err)
		raw = ""
	}
	code := digitsOnly(raw)
	if len(code) < MinCodeLength {
		return AttemptOCRTooShort, code, nil
	}
	if err := sess.FillChallenge(ctx, code); err != nil {
		return 0, code, fmt.Errorf("fill challenge: %w", err)
	}
	w.log.Info("workflow: filled challenge %s", code)
	if opts.DryRun {
		return AttemptOK, code, nil
	}
	sub, err := sess.SubmitChallenge(ctx)
	if err != nil {
		return 0, code, fmt.Errorf("submit: %w", err)
	}
	w.log.Info("workflow: page message %q, last row %v", sub.Message, sub.LastRecordRow)
	return classifySubmit(sub), code, nil
}

func classifySubmit(sub automation.SubmitResult) AttemptClass {
	if len(sub.LastRecordRow) >= 2 && strings.TrimSpace(sub.LastRecordRow[1]) != "" {
		return AttemptOK
	}
	for _, m := range rejectionMarkers {
		if strings.Contains(sub.Message, m) {
			return AttemptCaptchaRejected
		}
	}
	return AttemptUnknownSubmitState
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (w *Workflow) snapshot(ctx context.Context, sess automation.Session, label string) {
	s, ok := sess.(automation.Snapshotter)
	if !ok {
		return
	}
	path, err := s.Snapshot(ctx, label)
	if err != nil {
		w.log.Warning("workflow: snapshot %s: %v", label, err)
		return
	}
	if path != "" {
		w.log.Info("workflow: saved %s", path)
	}
}

func (w *Workflow) success(o Outcome, msg string) Result {
	return Result{Success: true, Outcome: o, Message: msg}
}

func (w *Workflow) failure(o Outcome, err error) Result {
	return Result{
		Outcome: o,
		Message: w.p.Sprintf(msgError, err.Error()),
		Debug:   err.Error(),
		Err:     err,
	}
}

// stepFailure turns a step error into a terminal result, separating a
// closed session from other errors.
func (w *Workflow) stepFailure(step string, err error) Result {
	err = fmt.Errorf("%s: %w", step, err)
	if errors.Is(err, automation.ErrSessionClosed) {
		w.log.Error("workflow: %v", err)
		res := w.failure(OutcomeSessionClosed, err)
		res.Message = w.p.Sprintf(msgSessionClosed)
		return res
	}
	w.log.Error("workflow: %v", err)
	return w.failure(OutcomeError, err)
}

func (w *Workflow) withAttempts(r Result, n int) Result {
	r.Attempts = n
	return r
}
