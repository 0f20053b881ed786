// Package motor derives the egg-turning display state from the device's
// rotate flag and the wall clock.
package motor

import (
	"fmt"
	"time"

	"controlling_incubator/internal/models"
)

// Engine is a two-state machine (Idle, Rotating). The device flag is the only
// ground truth; the countdown in between flag updates is computed locally.
// Not safe for concurrent use.
type Engine struct {
	rotateFor time.Duration
	interval  time.Duration

	status    models.MotorStatus
	startedAt time.Time
	lastStart time.Time
	idleSince time.Time
	// lastFlag gates rising edges: after a countdown runs out with the flag
	// still set, the flag must drop to zero before a new rotation starts.
	lastFlag  int
	remaining int
}

// New returns an idle engine. rotateFor is the relay on-time, interval the
// expected gap between rotations.
func New(rotateFor, interval time.Duration, now time.Time) *Engine {
	e := &Engine{rotateFor: rotateFor, interval: interval}
	e.Reset(now)
	return e
}

// SetTiming updates the configured durations. A rotation in progress keeps
// counting against the new duration.
func (e *Engine) SetTiming(rotateFor, interval time.Duration) {
	e.rotateFor = rotateFor
	e.interval = interval
}

// Observe feeds the latest rotate flag from telemetry.
func (e *Engine) Observe(flag int, now time.Time) models.MotorDisplayState {
	rising := flag != 0 && e.lastFlag == 0
	e.lastFlag = flag

	switch {
	case flag == 0:
		if e.status == models.MotorRotating {
			e.toIdle(now)
		}
	case rising && e.status == models.MotorIdle:
		e.status = models.MotorRotating
		e.startedAt = now
		e.lastStart = now
	}
	return e.Tick(now)
}

// Tick recomputes the countdown for now.
func (e *Engine) Tick(now time.Time) models.MotorDisplayState {
	if e.status == models.MotorRotating {
		left := e.rotateFor - now.Sub(e.startedAt)
		if left <= 0 {
			e.toIdle(now)
		} else {
			e.remaining = seconds(left)
			return e.State()
		}
	}
	e.remaining = seconds(e.untilNext(now))
	return e.State()
}

// Reset forces Idle, e.g. when the broker session ends.
func (e *Engine) Reset(now time.Time) {
	e.status = models.MotorIdle
	e.startedAt = time.Time{}
	e.lastFlag = 0
	e.idleSince = now
	e.remaining = seconds(e.untilNext(now))
}

// State returns the last computed display state.
func (e *Engine) State() models.MotorDisplayState {
	return models.MotorDisplayState{Status: e.status, RemainingSeconds: e.remaining}
}

// Countdown renders the remaining seconds as HH:MM:SS.
func (e *Engine) Countdown() string { return FormatCountdown(e.remaining) }

func (e *Engine) toIdle(now time.Time) {
	e.status = models.MotorIdle
	e.startedAt = time.Time{}
	e.idleSince = now
}

// untilNext estimates the time to the next rotation from the last known
// start, wrapping by whole intervals once that estimate has passed.
func (e *Engine) untilNext(now time.Time) time.Duration {
	if e.interval <= 0 {
		return 0
	}
	anchor := e.lastStart
	if anchor.IsZero() {
		anchor = e.idleSince
	}
	elapsed := now.Sub(anchor)
	if elapsed < 0 {
		return e.interval
	}
	return e.interval - elapsed%e.interval
}

func seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

// FormatCountdown renders s as HH:MM:SS.
func FormatCountdown(s int) string {
	if s < 0 {
		s = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}
