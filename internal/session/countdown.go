// Package session implements the exam-session continuity model: the
// countdown reconciled against the server's end timestamp, the forward-only
// per-subject question runner, and the overview state machine that owns
// persistence, aggregation and final submission for one attempt.
package session

import (
	"context"
	"fmt"
	"time"
)

// Advisory thresholds. Purely cosmetic — nothing is enforced by them.
const (
	// WarnFiveMinutesAt and WarnFinalAt drive the timer warnings.
	WarnFiveMinutesAt = 5 * time.Minute
	WarnFinalAt       = time.Minute

	// TabSwitchAdvisoryEvery is how often the "don't switch tabs" banner
	// recurs, measured in elapsed exam time.
	TabSwitchAdvisoryEvery = 5 * time.Minute
)

// WarnLevel classifies the remaining time for display.
type WarnLevel int

const (
	WarnNone WarnLevel = iota
	WarnFiveMinutes
	WarnFinal
)

// Warn maps a remaining duration onto its advisory level.
func Warn(remaining time.Duration) WarnLevel {
	switch {
	case remaining <= WarnFinalAt:
		return WarnFinal
	case remaining <= WarnFiveMinutesAt:
		return WarnFiveMinutes
	default:
		return WarnNone
	}
}

// endsAtLayouts are the timestamp shapes the backend has been seen emitting.
// The naive layout carries no zone and is interpreted as UTC before the
// configured offset is applied.
var endsAtLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// ParseEndsAt parses the backend's ends_at and applies the deployment's
// offset correction. This is the single place naive server time becomes an
// absolute instant; everything downstream compares against UTC now.
func ParseEndsAt(endsAt string, offset time.Duration) (time.Time, error) {
	for _, layout := range endsAtLayouts {
		t, err := time.ParseInLocation(layout, endsAt, time.UTC)
		if err == nil {
			return t.Add(offset), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized ends_at %q", endsAt)
}

// Remaining is the non-negative time left before endsAt. Always recomputed
// from the fixed end instant, never decremented, so delayed ticks
// self-correct.
func Remaining(endsAt, now time.Time) time.Duration {
	if r := endsAt.Sub(now); r > 0 {
		return r
	}
	return 0
}

// Tick is one countdown observation.
type Tick struct {
	Remaining time.Duration
	Warn      WarnLevel
	// TabAdvisory pulses true once per TabSwitchAdvisoryEvery of elapsed time.
	TabAdvisory bool
	Expired     bool
}

// Countdown emits one Tick per second until expiry or context cancellation.
type Countdown struct {
	endsAt time.Time
	clock  func() time.Time
}

// NewCountdown builds a countdown against a fixed end instant.
func NewCountdown(endsAt time.Time) *Countdown {
	return &Countdown{endsAt: endsAt, clock: time.Now}
}

// Observe computes the current tick without running the loop.
func (c *Countdown) Observe() Tick {
	remaining := Remaining(c.endsAt, c.clock())
	return Tick{
		Remaining: remaining,
		Warn:      Warn(remaining),
		Expired:   remaining == 0,
	}
}

// Run invokes onTick every second. The final tick has Expired set; Run
// returns after delivering it, or when ctx is done.
func (c *Countdown) Run(ctx context.Context, onTick func(Tick)) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var elapsed time.Duration
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed += time.Second
			tick := c.Observe()
			if elapsed > 0 && elapsed%TabSwitchAdvisoryEvery == 0 {
				tick.TabAdvisory = true
			}
			onTick(tick)
			if tick.Expired {
				return
			}
		}
	}
}

// FormatClock renders a duration as HH:MM:SS for display.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
