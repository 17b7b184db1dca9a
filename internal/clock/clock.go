// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package clock abstracts wall-clock time and periodic ticks so the lock
// gate can be driven deterministically in tests.
//
// Production code uses Real(). Tests use Fake() and move time forward
// with Advance, which fires any registered tickers synchronously.
package clock

import "time"

// Clock is the subset of the time package the gate depends on.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// NewTicker returns a Ticker delivering ticks every d. Panics if d <= 0.
	NewTicker(d time.Duration) *Ticker
}

// Ticker wraps a periodic timer. Call Stop when the owner is torn down;
// no ticks are delivered on C after Stop returns.
//
// C has capacity 1. A consumer that falls behind loses ticks rather than
// queueing them, matching time.Ticker.
type Ticker struct {
	C <-chan time.Time

	stopFunc  func()
	resetFunc func(time.Duration)
}

// Stop turns off the ticker. It does not close C.
func (t *Ticker) Stop() { t.stopFunc() }

// Reset restarts the tick cycle with a new interval.
func (t *Ticker) Reset(d time.Duration) { t.resetFunc(d) }
