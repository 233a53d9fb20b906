package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/autopunch/autopunch/internal/clock"
	"github.com/autopunch/autopunch/internal/workflow"
	"github.com/autopunch/autopunch/pkg/logger"
)

// CatchUpOutcome says what a catch-up check did.
type CatchUpOutcome int

const (
	// CatchUpRan means the day was claimed and the workflow ran.
	CatchUpRan CatchUpOutcome = iota
	CatchUpDisabled
	CatchUpNotWorkday
	// CatchUpNotDue means the off-duty time is still ahead; the daemon
	// will handle it.
	CatchUpNotDue
	// CatchUpClaimed means another process already owns today.
	CatchUpClaimed
	// CatchUpTooEarly means the trigger hour has not been reached.
	CatchUpTooEarly
)

var catchUpNames = []string{"ran", "disabled", "not-workday", "not-due", "claimed", "too-early"}

func (o CatchUpOutcome) String() string {
	if int(o) < 0 || int(o) >= len(catchUpNames) {
		return fmt.Sprintf("catchup(%d)", int(o))
	}
	return catchUpNames[o]
}

// CatchUp is the one-shot check run at login and when the toggle is
// switched on: if today's off-duty time has passed (or is within Lead),
// claim the day and run the workflow.
type CatchUp struct {
	Oracle   *clock.Oracle
	Toggle   Toggle
	Claims   Claimer
	Resolver Resolver
	Runner   Runner
	Lead     time.Duration
	Log      logger.Logger
}

// Run performs the check. The result is only meaningful for CatchUpRan.
func (c *CatchUp) Run(ctx context.Context) (CatchUpOutcome, workflow.Result, error) {
	log := c.Log
	if log == nil {
		log = logger.NewNopLogger()
	}
	if !c.Toggle.IsEnabled() {
		return CatchUpDisabled, workflow.Result{}, nil
	}
	now := c.Oracle.Now()
	if !now.IsWeekday {
		return CatchUpNotWorkday, workflow.Result{}, nil
	}
	if !now.IsPastTriggerHour {
		return CatchUpTooEarly, workflow.Result{}, nil
	}

	t, err := c.Resolver.Resolve(ctx)
	if err != nil {
		return 0, workflow.Result{}, fmt.Errorf("resolve off-duty time: %w", err)
	}
	target, err := c.Oracle.ToAbsoluteInstant(now.DateKey, t.Hour, t.Minute, t.Second)
	if err != nil {
		return 0, workflow.Result{}, err
	}
	if now.Instant.Before(target.Add(-c.Lead)) {
		log.Info("catchup: off-duty at %s, %s from now", t, target.Sub(now.Instant).Round(time.Second))
		return CatchUpNotDue, workflow.Result{}, nil
	}

	won, err := c.Claims.ClaimDay(now.DateKey)
	if err != nil {
		return 0, workflow.Result{}, fmt.Errorf("claim %s: %w", now.DateKey, err)
	}
	if !won {
		log.Info("catchup: %s already claimed", now.DateKey)
		return CatchUpClaimed, workflow.Result{}, nil
	}
	log.Info("catchup: claimed %s, running", now.DateKey)
	return CatchUpRan, c.Runner.Run(ctx, workflow.Options{}), nil
}
