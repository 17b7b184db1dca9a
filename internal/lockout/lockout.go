// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lockout implements the punitive cooldown after repeated wrong
// PINs.
//
// The Timer is driven by explicit ticks rather than owning a goroutine, so
// whoever owns the tick source decides when ticking starts and stops.
package lockout

import "time"

// =============================================================================
// POLICY
// =============================================================================

// Policy decides when a lockout is armed and for how long.
type Policy struct {
	// MaxAttempts is the failure count that arms the timer.
	MaxAttempts int
	// Duration is the lockout window.
	Duration time.Duration
}

// ShouldArm reports whether failures has reached the threshold. Failures
// are not reset when a lockout expires, so any count at or above the
// threshold re-arms.
func (p Policy) ShouldArm(failures int) bool {
	return p.MaxAttempts > 0 && failures >= p.MaxAttempts
}

// AttemptsRemaining returns how many wrong PINs are left before lockout,
// floored at zero.
func (p Policy) AttemptsRemaining(failures int) int {
	if left := p.MaxAttempts - failures; left > 0 {
		return left
	}
	return 0
}

// =============================================================================
// TIMER
// =============================================================================

// Timer counts down a lockout window. The zero value is disarmed.
// Not safe for concurrent use.
type Timer struct {
	remaining time.Duration
	arms      int
}

// Arm sets the remaining time to d, overwriting any remaining time.
// A non-positive d disarms.
func (t *Timer) Arm(d time.Duration) {
	if d <= 0 {
		t.remaining = 0
		return
	}
	t.remaining = d
	t.arms++
}

// Tick subtracts period, floored at zero. It returns true on the tick that
// disarms the timer; ticks while disarmed return false.
func (t *Timer) Tick(period time.Duration) (expired bool) {
	if t.remaining <= 0 || period <= 0 {
		return false
	}
	t.remaining -= period
	if t.remaining <= 0 {
		t.remaining = 0
		return true
	}
	return false
}

// Disarm stops the countdown.
func (t *Timer) Disarm() { t.remaining = 0 }

// Armed reports whether time remains.
func (t *Timer) Armed() bool { return t.remaining > 0 }

// Remaining returns the time left.
func (t *Timer) Remaining() time.Duration { return t.remaining }

// RemainingSeconds returns the countdown as displayed: whole seconds,
// rounded up.
func (t *Timer) RemainingSeconds() int {
	return int((t.remaining + time.Second - 1) / time.Second)
}

// Arms returns how many times the timer has been armed.
func (t *Timer) Arms() int { return t.arms }
