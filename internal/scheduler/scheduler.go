package scheduler

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/autopunch/autopunch/internal/clock"
	"github.com/autopunch/autopunch/internal/offtime"
	"github.com/autopunch/autopunch/internal/workflow"
	"github.com/autopunch/autopunch/pkg/logger"
)

const (
	DefaultPollInterval = 30 * time.Second
	DefaultRunNowWindow = 5 * time.Minute
	// MaxArmedWait is the longest wait worth arming; anything longer means
	// the resolved time is nonsense and the run happens immediately.
	MaxArmedWait = 24 * time.Hour

	maxSleepCap = 60 * time.Second
)

// Toggle reports whether automatic clock-out is enabled.
type Toggle interface {
	IsEnabled() bool
}

// Claimer hands out per-date claims.
type Claimer interface {
	ClaimDay(dateKey string) (bool, error)
	PruneClaims(keep string) ([]string, error)
}

// Resolver fetches today's off-duty time.
type Resolver interface {
	Resolve(ctx context.Context) (offtime.OffDutyTime, error)
}

// Runner executes one workflow run.
type Runner interface {
	Run(ctx context.Context, opts workflow.Options) workflow.Result
}

// Config tunes the schedule.
type Config struct {
	PollInterval time.Duration
	// Lead moves the armed target earlier than the off-duty time.
	Lead time.Duration
	// RunNowWindow: waits at or below this run immediately instead of arming.
	RunNowWindow time.Duration
}

// Status is a point-in-time view of the scheduler.
type Status struct {
	State      State            `json:"state"`
	Enabled    bool             `json:"enabled"`
	DateKey    string           `json:"date_key,omitempty"`
	ArmedAt    *time.Time       `json:"armed_at,omitempty"`
	NextWindow *time.Time       `json:"next_window,omitempty"`
	Running    bool             `json:"running"`
	LastRun    *time.Time       `json:"last_run,omitempty"`
	LastResult *workflow.Result `json:"last_result,omitempty"`
}

// Scheduler is the daily clock-out loop.
type Scheduler struct {
	oracle   *clock.Oracle
	toggle   Toggle
	claims   Claimer
	resolver Resolver
	runner   Runner
	log      logger.Logger
	cfg      Config

	mu         sync.Mutex
	state      State
	dateKey    string
	dormantKey string
	lastKey    string
	armedAt    time.Time
	running    bool
	lastRun    time.Time
	lastResult *workflow.Result
}

// New creates a Scheduler. Call Run to start it.
func New(oracle *clock.Oracle, toggle Toggle, claims Claimer, resolver Resolver, runner Runner, l logger.Logger, cfg Config) *Scheduler {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.RunNowWindow <= 0 {
		cfg.RunNowWindow = DefaultRunNowWindow
	}
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Scheduler{
		oracle:   oracle,
		toggle:   toggle,
		claims:   claims,
		resolver: resolver,
		runner:   runner,
		log:      l,
		cfg:      cfg,
	}
}

// Run evaluates the schedule immediately and then every PollInterval until
// ctx is cancelled. A panic in one evaluation is logged and the loop goes on.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("scheduler: started, polling every %s", s.cfg.PollInterval)

	poll := time.NewTimer(0)
	defer poll.Stop()

	var arm *time.Timer
	defer func() {
		if arm != nil {
			arm.Stop()
		}
	}()

	resetArm := func() <-chan time.Time {
		if arm != nil {
			arm.Stop()
		}
		at, ok := s.armedTarget()
		if !ok {
			return nil
		}
		dur := at.Sub(s.oracle.Now().Instant)
		if dur > maxSleepCap {
			dur = maxSleepCap
		}
		if dur < 0 {
			dur = 0
		}
		arm = time.NewTimer(dur)
		return arm.C
	}
	var armC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler: stopped")
			return ctx.Err()

		case <-poll.C:
			s.safely("poll", func() { s.tick(ctx) })
			poll.Reset(s.cfg.PollInterval)
			armC = resetArm()

		case <-armC:
			if at, ok := s.armedTarget(); ok && !s.oracle.Now().Instant.Before(at) {
				s.safely("fire", func() { s.fire(ctx) })
			}
			armC = resetArm()
		}
	}
}

func (s *Scheduler) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scheduler: panic during %s: %v\n%s", what, r, debug.Stack())
		}
	}()
	fn()
}

func (s *Scheduler) armedTarget() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armedAt, s.state == ArmedWaitingTimer
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// tick is one poll evaluation.
func (s *Scheduler) tick(ctx context.Context) {
	now := s.oracle.Now()
	s.rollover(now.DateKey)

	s.mu.Lock()
	st := s.state
	dormant := s.dormantKey == now.DateKey
	s.mu.Unlock()
	if st == ArmedWaitingTimer {
		return
	}

	if !s.toggle.IsEnabled() || !now.IsWeekday || !now.IsPastTriggerHour {
		s.setState(Idle)
		return
	}
	if dormant {
		s.setState(DormantToday)
		return
	}

	won, err := s.claims.ClaimDay(now.DateKey)
	if err != nil {
		s.log.Error("scheduler: claim %s: %v, retrying next poll", now.DateKey, err)
		s.setState(Idle)
		return
	}
	if !won {
		s.log.Info("scheduler: %s already claimed by another process", now.DateKey)
		s.markDormant(now.DateKey)
		return
	}

	s.mu.Lock()
	s.state = ClaimedWaitingOffTime
	s.dateKey = now.DateKey
	s.mu.Unlock()
	s.log.Info("scheduler: claimed %s, resolving off-duty time", now.DateKey)

	t, err := s.resolver.Resolve(ctx)
	if err != nil {
		s.log.Warning("scheduler: resolve off-duty time: %v, running full workflow now", err)
		s.runNow(ctx, now.DateKey)
		return
	}

	target, err := s.oracle.ToAbsoluteInstant(now.DateKey, t.Hour, t.Minute, t.Second)
	if err != nil {
		s.log.Error("scheduler: %v, running now", err)
		s.runNow(ctx, now.DateKey)
		return
	}
	target = target.Add(-s.cfg.Lead)
	wait := target.Sub(s.oracle.Now().Instant)
	switch {
	case wait > MaxArmedWait:
		s.log.Warning("scheduler: off-duty time %s is %s away, running now", t, wait.Round(time.Second))
		s.runNow(ctx, now.DateKey)
	case wait <= s.cfg.RunNowWindow:
		s.log.Info("scheduler: off-duty time %s is due, running now", t)
		s.runNow(ctx, now.DateKey)
	default:
		s.mu.Lock()
		s.state = ArmedWaitingTimer
		s.armedAt = target
		s.mu.Unlock()
		s.log.Info("scheduler: off-duty time %s, armed for %s (in %s)", t,
			target.In(s.oracle.Zone()).Format("15:04:05"), wait.Round(time.Second))
	}
}

// fire runs the armed workflow.
func (s *Scheduler) fire(ctx context.Context) {
	s.mu.Lock()
	if s.state != ArmedWaitingTimer {
		s.mu.Unlock()
		return
	}
	key := s.dateKey
	s.mu.Unlock()
	s.log.Info("scheduler: timer fired for %s", key)
	s.runNow(ctx, key)
}

func (s *Scheduler) runNow(ctx context.Context, key string) {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	defer s.markDormant(key)

	res := s.runner.Run(ctx, workflow.Options{})
	if res.Success {
		s.log.Info("scheduler: run finished: %s (%s)", res.Outcome, res.Message)
	} else {
		s.log.Error("scheduler: run failed: %s (%s) %s", res.Outcome, res.Message, res.Debug)
	}
	s.mu.Lock()
	s.lastResult = &res
	s.lastRun = s.oracle.Now().Instant
	s.mu.Unlock()
}

func (s *Scheduler) markDormant(key string) {
	s.mu.Lock()
	s.running = false
	s.state = DormantToday
	s.dormantKey = key
	s.dateKey = key
	s.armedAt = time.Time{}
	s.mu.Unlock()
}

// rollover resets dormancy when the date changes and prunes old claims.
func (s *Scheduler) rollover(key string) {
	s.mu.Lock()
	if s.lastKey == key {
		s.mu.Unlock()
		return
	}
	first := s.lastKey == ""
	s.lastKey = key
	if s.state == DormantToday && s.dormantKey != key {
		s.state = Idle
	}
	s.mu.Unlock()

	if !first {
		s.log.Info("scheduler: date changed to %s", key)
	}
	removed, err := s.claims.PruneClaims(key)
	if err != nil {
		s.log.Warning("scheduler: prune claims: %v", err)
	}
	if len(removed) > 0 {
		s.log.Info("scheduler: pruned %d old claim(s)", len(removed))
	}
}

// Status returns a snapshot of the scheduler.
func (s *Scheduler) Status() Status {
	now := s.oracle.Now()
	st := Status{Enabled: s.toggle.IsEnabled()}
	if next, err := s.oracle.NextWindow(now.Instant); err == nil {
		st.NextWindow = &next
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st.State = s.state
	st.DateKey = s.dateKey
	st.Running = s.running
	if s.state == ArmedWaitingTimer {
		at := s.armedAt
		st.ArmedAt = &at
	}
	if !s.lastRun.IsZero() {
		lr := s.lastRun
		st.LastRun = &lr
	}
	if s.lastResult != nil {
		r := *s.lastResult
		st.LastResult = &r
	}
	return st
}
