// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package activity tracks the wall-clock time of the last user interaction.
//
// The timestamp is persisted so the lock gate can be bypassed when the app
// is re-entered within the freshness window. Every screen writes it; only
// the gate reads it. Any read or write failure makes the session look
// stale, which keeps the gate locked.
package activity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/dalepay/applock/internal/clock"
	"github.com/dalepay/applock/internal/storage"
)

// EventKind identifies a user interaction.
type EventKind int

const (
	PointerDown EventKind = iota + 1
	PointerMove
	KeyPress
	Scroll
	TouchStart
	// FocusChange and Resize reach the host's listener but are not
	// interactions.
	FocusChange
	Resize
)

var kindNames = map[EventKind]string{
	PointerDown: "pointer-down",
	PointerMove: "pointer-move",
	KeyPress:    "key-press",
	Scroll:      "scroll",
	TouchStart:  "touch-start",
	FocusChange: "focus-change",
	Resize:      "resize",
}

func (k EventKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Tracked reports whether kind counts as user activity.
func Tracked(kind EventKind) bool {
	switch kind {
	case PointerDown, PointerMove, KeyPress, Scroll, TouchStart:
		return true
	}
	return false
}

// Clock reads and writes the persisted last-activity timestamp.
type Clock struct {
	store   storage.Store
	key     string
	clock   clock.Clock
	logger  *slog.Logger
	limiter *rate.Limiter
}

// Option configures a Clock.
type Option func(*Clock)

// WithClock sets the time source. Defaults to clock.Real().
func WithClock(c clock.Clock) Option {
	return func(a *Clock) { a.clock = c }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Clock) { a.logger = l }
}

// WithMoveThrottle limits pointer-move writes to one per interval.
// Zero or negative disables throttling.
func WithMoveThrottle(interval time.Duration) Option {
	return func(a *Clock) {
		if interval <= 0 {
			a.limiter = nil
			return
		}
		a.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
}

// New returns a Clock persisting under key in store.
func New(store storage.Store, key string, opts ...Option) *Clock {
	a := &Clock{
		store:  store,
		key:    key,
		clock:  clock.Real(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RecordActivity overwrites the persisted timestamp with now. Write
// failures are logged and dropped.
func (a *Clock) RecordActivity(ctx context.Context) {
	now := a.clock.Now()
	value := strconv.FormatInt(now.UnixMilli(), 10)
	if err := a.store.Set(ctx, a.key, value); err != nil {
		a.logger.Warn("activity write failed", "key", a.key, "error", err)
	}
}

// Observe is the global interaction listener. It records activity for
// tracked kinds and reports whether a write was issued. Pointer-move
// events are throttled when a move throttle is configured.
func (a *Clock) Observe(ctx context.Context, kind EventKind) bool {
	if !Tracked(kind) {
		return false
	}
	if kind == PointerMove && a.limiter != nil && !a.limiter.AllowN(a.clock.Now(), 1) {
		return false
	}
	a.RecordActivity(ctx)
	return true
}

// LastActive returns the persisted timestamp. ok is false when the record
// is absent, unreadable, or malformed.
func (a *Clock) LastActive(ctx context.Context) (t time.Time, ok bool) {
	value, err := a.store.Get(ctx, a.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			a.logger.Warn("activity read failed", "key", a.key, "error", err)
		}
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil || ms < 0 {
		a.logger.Warn("activity record malformed", "key", a.key, "value", value)
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// IsFresh reports whether less than threshold has elapsed since the last
// recorded activity. A missing or unreadable record is never fresh, and
// neither is one dated in the future.
func (a *Clock) IsFresh(ctx context.Context, threshold time.Duration) bool {
	last, ok := a.LastActive(ctx)
	if !ok {
		return false
	}
	elapsed := a.clock.Now().Sub(last)
	if elapsed < 0 {
		a.logger.Warn("activity record is in the future", "key", a.key, "skew", -elapsed)
		return false
	}
	return elapsed < threshold
}
