package session

import (
	"testing"
	"time"
)

func TestParseEndsAtLayouts(t *testing.T) {
	offset := 5*time.Hour + 30*time.Minute

	cases := []struct {
		name   string
		input  string
		offset time.Duration
		want   time.Time
	}{
		{
			name:   "naive with microseconds",
			input:  "2026-03-01T10:00:00.123456",
			offset: offset,
			want:   time.Date(2026, 3, 1, 15, 30, 0, 123456000, time.UTC),
		},
		{
			name:   "naive without fraction",
			input:  "2026-03-01T10:00:00",
			offset: offset,
			want:   time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC),
		},
		{
			name:   "rfc3339 zoned",
			input:  "2026-03-01T10:00:00Z",
			offset: 0,
			want:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseEndsAt(tc.input, tc.offset)
			if err != nil {
				t.Fatalf("ParseEndsAt: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseEndsAtRejectsGarbage(t *testing.T) {
	if _, err := ParseEndsAt("next tuesday", 0); err == nil {
		t.Fatal("expected error for unparseable ends_at")
	}
}

func TestRemainingNeverNegative(t *testing.T) {
	endsAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if got := Remaining(endsAt, endsAt.Add(time.Minute)); got != 0 {
		t.Fatalf("past deadline remaining = %v, want 0", got)
	}
	if got := Remaining(endsAt, endsAt.Add(-90*time.Second)); got != 90*time.Second {
		t.Fatalf("remaining = %v, want 90s", got)
	}
}

func TestWarnLevels(t *testing.T) {
	cases := []struct {
		remaining time.Duration
		want      WarnLevel
	}{
		{time.Hour, WarnNone},
		{5*time.Minute + time.Second, WarnNone},
		{5 * time.Minute, WarnFiveMinutes},
		{2 * time.Minute, WarnFiveMinutes},
		{time.Minute, WarnFinal},
		{0, WarnFinal},
	}
	for _, tc := range cases {
		if got := Warn(tc.remaining); got != tc.want {
			t.Errorf("Warn(%v) = %v, want %v", tc.remaining, got, tc.want)
		}
	}
}

func TestCountdownObserveSelfCorrects(t *testing.T) {
	endsAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := endsAt.Add(-10 * time.Second)
	c := &Countdown{endsAt: endsAt, clock: func() time.Time { return now }}

	if tick := c.Observe(); tick.Remaining != 10*time.Second || tick.Expired {
		t.Fatalf("unexpected tick: %+v", tick)
	}

	// A stalled loop jumps the clock; the observation follows the wall
	// clock instead of decrementing.
	now = endsAt.Add(-2 * time.Second)
	if tick := c.Observe(); tick.Remaining != 2*time.Second {
		t.Fatalf("remaining = %v, want 2s", tick.Remaining)
	}

	now = endsAt.Add(time.Second)
	tick := c.Observe()
	if !tick.Expired || tick.Remaining != 0 {
		t.Fatalf("expected expired zero tick, got %+v", tick)
	}
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{-time.Second, "00:00:00"},
		{61 * time.Second, "00:01:01"},
		{2*time.Hour + 3*time.Minute + 4*time.Second, "02:03:04"},
	}
	for _, tc := range cases {
		if got := FormatClock(tc.d); got != tc.want {
			t.Errorf("FormatClock(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
