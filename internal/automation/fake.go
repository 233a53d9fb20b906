package automation

import (
	"context"
	"sync"
)

// FakeSession is a scripted in-memory Session for tests of packages that
// drive the workflow. Each Submit consumes the next entry of Submits; when
// they run out the last one repeats.
type FakeSession struct {
	mu sync.Mutex

	Authenticated bool
	OffDutyText   string
	AlreadyDone   bool
	PunchIn       string
	HasPunchIn    bool
	Image         []byte
	Submits       []SubmitResult

	// Err, when set for a method name, is returned by that method.
	Err map[string]error

	Filled    []string
	Reloads   int
	Closed    int
	Snapshots []string
	submitted int
}

func (f *FakeSession) err(name string) error {
	if f.Err == nil {
		return nil
	}
	return f.Err[name]
}

func (f *FakeSession) IsAuthenticated(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Authenticated, f.err("IsAuthenticated")
}

func (f *FakeSession) ReadOffDutyText(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.OffDutyText, f.err("ReadOffDutyText")
}

func (f *FakeSession) IsAlreadyDone(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.AlreadyDone, f.err("IsAlreadyDone")
}

func (f *FakeSession) ReadPunchInRecord(context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.PunchIn, f.HasPunchIn, f.err("ReadPunchInRecord")
}

func (f *FakeSession) CaptureChallengeImage(context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Image, f.err("CaptureChallengeImage")
}

func (f *FakeSession) FillChallenge(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("FillChallenge"); err != nil {
		return err
	}
	f.Filled = append(f.Filled, code)
	return nil
}

func (f *FakeSession) SubmitChallenge(context.Context) (SubmitResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.err("SubmitChallenge"); err != nil {
		return SubmitResult{}, err
	}
	if len(f.Submits) == 0 {
		return SubmitResult{}, nil
	}
	i := f.submitted
	if i >= len(f.Submits) {
		i = len(f.Submits) - 1
	}
	f.submitted++
	return f.Submits[i], nil
}

func (f *FakeSession) Reload(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reloads++
	return f.err("Reload")
}

func (f *FakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed++
	return nil
}

func (f *FakeSession) Snapshot(_ context.Context, label string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Snapshots = append(f.Snapshots, label)
	return label + ".html", nil
}

// Submitted returns how many times SubmitChallenge succeeded.
func (f *FakeSession) Submitted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted
}

// ScriptedRecognizer returns Results in order, repeating the last one.
type ScriptedRecognizer struct {
	mu      sync.Mutex
	Results []string
	Calls   int
}

func (r *ScriptedRecognizer) RecognizeDigits(context.Context, []byte) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Results) == 0 {
		r.Calls++
		return "", nil
	}
	i := r.Calls
	if i >= len(r.Results) {
		i = len(r.Results) - 1
	}
	r.Calls++
	return r.Results[i], nil
}
