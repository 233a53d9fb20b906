// Package clock answers "what time is it at the office" questions without
// consulting the host's timezone database. Every value is derived from the
// UTC wall-clock instant plus a fixed offset, so a laptop set to another
// zone (or with a broken tzdata) still schedules against office hours.
package clock

import (
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

const (
	// DefaultOffset is UTC+8, the office's fixed offset.
	DefaultOffset = 8 * time.Hour
	// DefaultTriggerHour is the local hour from which the scheduler may claim the day.
	DefaultTriggerHour = 17

	dateKeyLayout = "2006-01-02"
)

// Snapshot is a view of one instant in the target timezone.
type Snapshot struct {
	// Instant is the absolute time the snapshot was taken at.
	Instant time.Time
	// Local is Instant expressed in the fixed target zone.
	Local time.Time
	// DateKey is the target-local calendar date, formatted YYYY-MM-DD.
	DateKey string
	// LocalHour is the target-local hour (0-23).
	LocalHour int
	// Weekday is the target-local day of week.
	Weekday time.Weekday
	// IsWeekday is true Monday through Friday.
	IsWeekday bool
	// IsPastTriggerHour is true once LocalHour >= the trigger hour.
	IsPastTriggerHour bool
}

// Oracle computes Snapshots and absolute instants for a fixed offset.
type Oracle struct {
	offset      time.Duration
	triggerHour int
	zone        *time.Location
	now         func() time.Time
}

// Option configures an Oracle.
type Option func(*Oracle)

// WithNow replaces the wall clock; tests use it to pin "now".
func WithNow(now func() time.Time) Option {
	return func(o *Oracle) {
		o.now = now
	}
}

// New creates an Oracle for the given offset east of UTC and trigger hour.
func New(offset time.Duration, triggerHour int, opts ...Option) *Oracle {
	o := &Oracle{
		offset:      offset,
		triggerHour: triggerHour,
		zone:        time.FixedZone(zoneName(offset), int(offset/time.Second)),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Offset returns the configured offset east of UTC.
func (o *Oracle) Offset() time.Duration {
	return o.offset
}

// Zone returns the fixed target zone.
func (o *Oracle) Zone() *time.Location {
	return o.zone
}

// Now returns a Snapshot of the current instant.
func (o *Oracle) Now() Snapshot {
	return o.At(o.now())
}

// At returns a Snapshot of t.
func (o *Oracle) At(t time.Time) Snapshot {
	// Shift the UTC instant by hand rather than via In(): the result must not
	// depend on anything but the offset.
	shifted := t.UTC().Add(o.offset)
	wd := shifted.Weekday()
	return Snapshot{
		Instant:           t,
		Local:             t.In(o.zone),
		DateKey:           shifted.Format(dateKeyLayout),
		LocalHour:         shifted.Hour(),
		Weekday:           wd,
		IsWeekday:         wd != time.Saturday && wd != time.Sunday,
		IsPastTriggerHour: shifted.Hour() >= o.triggerHour,
	}
}

// ToAbsoluteInstant converts a target-local date and time of day into an
// absolute UTC instant. When subtracting the offset takes the time of day
// below midnight, one calendar day is borrowed so the instant lands on the
// previous UTC date.
func (o *Oracle) ToAbsoluteInstant(dateKey string, hour, minute, second int) (time.Time, error) {
	day, err := time.Parse(dateKeyLayout, dateKey)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date key %q: %w", dateKey, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return time.Time{}, fmt.Errorf("invalid time of day %02d:%02d:%02d", hour, minute, second)
	}
	localSec := hour*3600 + minute*60 + second
	utcSec := localSec - int(o.offset/time.Second)
	y, m, d := day.Date()
	for utcSec < 0 {
		utcSec += 24 * 3600
		d--
	}
	for utcSec >= 24*3600 {
		utcSec -= 24 * 3600
		d++
	}
	// time.Date normalises d == 0 to the last day of the previous month.
	return time.Date(y, m, d, 0, 0, utcSec, 0, time.UTC), nil
}

// TriggerExpr is the cron expression describing when the trigger window opens.
func (o *Oracle) TriggerExpr() string {
	return fmt.Sprintf("0 %d * * 1-5", o.triggerHour)
}

// NextWindow returns the next instant, strictly after t, at which the
// weekday trigger window opens.
func (o *Oracle) NextWindow(t time.Time) (time.Time, error) {
	next, err := gronx.NextTickAfter(o.TriggerExpr(), t.In(o.zone), false)
	if err != nil {
		return time.Time{}, fmt.Errorf("next trigger window: %w", err)
	}
	return next, nil
}

// maxOffset bounds real-world UTC offsets.
const maxOffset = 14 * time.Hour

// ParseOffset parses "+08:00", "-05:30", "8" or a Go duration such as "8h".
func ParseOffset(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty offset")
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < -maxOffset || d > maxOffset || d%time.Minute != 0 {
			return 0, fmt.Errorf("offset out of range: %s", s)
		}
		return d, nil
	}
	sign := time.Duration(1)
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		sign = -1
		s = s[1:]
	}
	hh, mm, _ := strings.Cut(s, ":")
	var h, m int
	if _, err := fmt.Sscanf(hh, "%d", &h); err != nil {
		return 0, fmt.Errorf("invalid offset hour %q", hh)
	}
	if mm != "" {
		if _, err := fmt.Sscanf(mm, "%d", &m); err != nil {
			return 0, fmt.Errorf("invalid offset minute %q", mm)
		}
	}
	if h > 14 || m > 59 || h < 0 || m < 0 {
		return 0, fmt.Errorf("offset out of range: %s", s)
	}
	return sign * (time.Duration(h)*time.Hour + time.Duration(m)*time.Minute), nil
}

func zoneName(offset time.Duration) string {
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	h := int(offset / time.Hour)
	m := int((offset % time.Hour) / time.Minute)
	return fmt.Sprintf("UTC%c%02d:%02d", sign, h, m)
}
