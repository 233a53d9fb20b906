// Package offtime extracts the expected off-duty time from the attendance
// page. The page shows a 12-hour range such as "8:41:59 AM - 5:41:00 PM";
// the end of the range is the time that matters.
package offtime

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/autopunch/autopunch/internal/automation"
	"github.com/autopunch/autopunch/pkg/logger"
)

// Timeout bounds a whole Resolve call.
const Timeout = 60 * time.Second

var (
	// ErrNotAuthenticated means the page showed no user identity.
	ErrNotAuthenticated = errors.New("not logged in")
	// ErrUnresolvable means no off-duty time could be read from the page.
	ErrUnresolvable = errors.New("off-duty time not found")
)

var clockPattern = regexp.MustCompile(`(?i)(\d{1,2}):(\d{2}):(\d{2})\s*(AM|PM)`)

// OffDutyTime is a time of day in the target timezone.
type OffDutyTime struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

func (t OffDutyTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Parse returns the last 12-hour "H:MM:SS AM|PM" time found in raw,
// converted to a 24-hour clock.
func Parse(raw string) (OffDutyTime, bool) {
	matches := clockPattern.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return OffDutyTime{}, false
	}
	m := matches[len(matches)-1]
	h, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	if h < 1 || h > 12 || minute > 59 || sec > 59 {
		return OffDutyTime{}, false
	}
	pm := strings.EqualFold(m[4], "PM")
	switch {
	case h == 12 && !pm:
		h = 0
	case h != 12 && pm:
		h += 12
	}
	return OffDutyTime{Hour: h, Minute: minute, Second: sec}, true
}

// Resolver reads the off-duty time through a short-lived session.
type Resolver struct {
	launcher automation.Launcher
	log      logger.Logger
}

// NewResolver returns a Resolver opening sessions with launcher.
func NewResolver(launcher automation.Launcher, l logger.Logger) *Resolver {
	if l == nil {
		l = logger.NewNopLogger()
	}
	return &Resolver{launcher: launcher, log: l}
}

// Resolve opens a headless session, reads the off-duty text and parses it.
// The session is always closed before returning.
func (r *Resolver) Resolve(ctx context.Context) (OffDutyTime, error) {
	ctx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	sess, err := r.launcher.Open(ctx, automation.OpenOptions{Headless: true})
	if err != nil {
		return OffDutyTime{}, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			r.log.Warning("offtime: close session: %v", cerr)
		}
	}()

	ok, err := sess.IsAuthenticated(ctx)
	if err != nil {
		return OffDutyTime{}, fmt.Errorf("check login: %w", err)
	}
	if !ok {
		return OffDutyTime{}, ErrNotAuthenticated
	}
	raw, err := sess.ReadOffDutyText(ctx)
	if err != nil {
		return OffDutyTime{}, fmt.Errorf("%w: %v", ErrUnresolvable, err)
	}
	t, ok := Parse(raw)
	if !ok {
		return OffDutyTime{}, fmt.Errorf("%w: %q", ErrUnresolvable, strings.TrimSpace(raw))
	}
	r.log.Info("offtime: resolved %s from %q", t, strings.TrimSpace(raw))
	return t, nil
}
