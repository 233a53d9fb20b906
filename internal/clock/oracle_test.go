package clock

import (
	"testing"
	"time"
)

func fixedAt(t time.Time) Option {
	return WithNow(func() time.Time { return t })
}

func TestOracle_Now(t *testing.T) {
	tests := []struct {
		name     string
		utc      time.Time
		dateKey  string
		hour     int
		weekday  bool
		pastHour bool
	}{
		{
			name:     "weekday afternoon",
			utc:      time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC), // Mon 17:00 local
			dateKey:  "2024-06-03",
			hour:     17,
			weekday:  true,
			pastHour: true,
		},
		{
			name:     "local date ahead of utc date",
			utc:      time.Date(2024, 6, 2, 16, 30, 0, 0, time.UTC), // Mon 00:30 local
			dateKey:  "2024-06-03",
			hour:     0,
			weekday:  true,
			pastHour: false,
		},
		{
			name:     "saturday",
			utc:      time.Date(2024, 6, 8, 10, 0, 0, 0, time.UTC),
			dateKey:  "2024-06-08",
			hour:     18,
			weekday:  false,
			pastHour: true,
		},
		{
			name:     "just before trigger",
			utc:      time.Date(2024, 6, 4, 8, 59, 59, 0, time.UTC),
			dateKey:  "2024-06-04",
			hour:     16,
			weekday:  true,
			pastHour: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(DefaultOffset, DefaultTriggerHour, fixedAt(tt.utc))
			s := o.Now()
			if s.DateKey != tt.dateKey {
				t.Errorf("DateKey = %q, want %q", s.DateKey, tt.dateKey)
			}
			if s.LocalHour != tt.hour {
				t.Errorf("LocalHour = %d, want %d", s.LocalHour, tt.hour)
			}
			if s.IsWeekday != tt.weekday {
				t.Errorf("IsWeekday = %v, want %v", s.IsWeekday, tt.weekday)
			}
			if s.IsPastTriggerHour != tt.pastHour {
				t.Errorf("IsPastTriggerHour = %v, want %v", s.IsPastTriggerHour, tt.pastHour)
			}
			if !s.Instant.Equal(tt.utc) {
				t.Errorf("Instant = %v, want %v", s.Instant, tt.utc)
			}
		})
	}
}

func TestOracle_NowIgnoresHostZone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	utc := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	o := New(DefaultOffset, DefaultTriggerHour, fixedAt(utc.In(ny)))
	s := o.Now()
	if s.DateKey != "2024-06-03" || s.LocalHour != 17 {
		t.Fatalf("got %s %d, want 2024-06-03 17", s.DateKey, s.LocalHour)
	}
}

func TestOracle_ToAbsoluteInstant(t *testing.T) {
	o := New(DefaultOffset, DefaultTriggerHour)
	tests := []struct {
		name    string
		dateKey string
		h, m, s int
		want    time.Time
	}{
		{"afternoon", "2024-06-03", 17, 41, 0, time.Date(2024, 6, 3, 9, 41, 0, 0, time.UTC)},
		{"borrow previous day", "2024-06-03", 0, 30, 0, time.Date(2024, 6, 2, 16, 30, 0, 0, time.UTC)},
		{"borrow across month", "2024-03-01", 7, 59, 59, time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)},
		{"borrow across year", "2025-01-01", 0, 0, 0, time.Date(2024, 12, 31, 16, 0, 0, 0, time.UTC)},
		{"exactly offset", "2024-06-03", 8, 0, 0, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := o.ToAbsoluteInstant(tt.dateKey, tt.h, tt.m, tt.s)
			if err != nil {
				t.Fatalf("ToAbsoluteInstant: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOracle_ToAbsoluteInstantNegativeOffset(t *testing.T) {
	o := New(-5*time.Hour, DefaultTriggerHour)
	got, err := o.ToAbsoluteInstant("2024-12-31", 21, 0, 0)
	if err != nil {
		t.Fatalf("ToAbsoluteInstant: %v", err)
	}
	want := time.Date(2025, 1, 1, 2, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestOracle_ToAbsoluteInstantRejectsInvalid(t *testing.T) {
	o := New(DefaultOffset, DefaultTriggerHour)
	if _, err := o.ToAbsoluteInstant("2024/06/03", 17, 0, 0); err == nil {
		t.Error("expected error for malformed date key")
	}
	if _, err := o.ToAbsoluteInstant("2024-06-03", 24, 0, 0); err == nil {
		t.Error("expected error for hour 24")
	}
	if _, err := o.ToAbsoluteInstant("2024-06-03", 17, 60, 0); err == nil {
		t.Error("expected error for minute 60")
	}
}

func TestOracle_RoundTrip(t *testing.T) {
	o := New(DefaultOffset, DefaultTriggerHour)
	abs, err := o.ToAbsoluteInstant("2024-06-03", 0, 30, 0)
	if err != nil {
		t.Fatal(err)
	}
	s := o.At(abs)
	if s.DateKey != "2024-06-03" || s.LocalHour != 0 {
		t.Fatalf("round trip gave %s %d", s.DateKey, s.LocalHour)
	}
}

func TestOracle_NextWindow(t *testing.T) {
	o := New(DefaultOffset, DefaultTriggerHour)
	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{
			name: "same day",
			from: time.Date(2024, 6, 3, 2, 0, 0, 0, time.UTC), // Mon 10:00 local
			want: time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "friday evening skips weekend",
			from: time.Date(2024, 6, 7, 10, 0, 0, 0, time.UTC), // Fri 18:00 local
			want: time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at window is exclusive",
			from: time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC),
			want: time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := o.NextWindow(tt.from)
			if err != nil {
				t.Fatalf("NextWindow: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got.UTC(), tt.want)
			}
		})
	}
}

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"+08:00", 8 * time.Hour, false},
		{"-05:30", -(5*time.Hour + 30*time.Minute), false},
		{"8", 8 * time.Hour, false},
		{"9h", 9 * time.Hour, false},
		{"", 0, true},
		{"+15:00", 0, true},
		{"-14h", -14 * time.Hour, false},
		{"100h", 0, true},
		{"-15h", 0, true},
		{"8h30s", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOffset(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
