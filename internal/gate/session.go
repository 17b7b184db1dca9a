// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dalepay/applock/internal/clock"
)

// ErrSessionClosed is returned when posting to a session that has stopped.
var ErrSessionClosed = errors.New("gate session closed")

// Session runs a Gate on one goroutine. Input, ticks and biometric results
// are serialized through a single channel and applied in arrival order.
// The lockout ticker exists only while the gate is LockedOut.
type Session struct {
	gate  *Gate
	clock clock.Clock

	events  chan func(context.Context)
	updates chan Snapshot
	done    chan struct{}

	mu       sync.Mutex
	snapshot Snapshot

	cancelBiometric context.CancelFunc
}

// NewSession wraps g. The session owns g from Run until Run returns.
func NewSession(g *Gate) *Session {
	return &Session{
		gate:    g,
		clock:   g.clock,
		events:  make(chan func(context.Context)),
		updates: make(chan Snapshot, 1),
		done:    make(chan struct{}),
	}
}

// Run mounts the gate and processes events until the gate unlocks (nil)
// or ctx ends (ctx.Err()). The gate is unmounted and every timer released
// before Run returns.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)

	var (
		ticker *clock.Ticker
		tickC  <-chan time.Time
	)
	syncTicker := func() {
		switch {
		case s.gate.NeedsTicker() && ticker == nil:
			ticker = s.clock.NewTicker(s.gate.TickInterval())
			tickC = ticker.C
		case !s.gate.NeedsTicker() && ticker != nil:
			ticker.Stop()
			ticker, tickC = nil, nil
		}
	}
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
		s.stopBiometric()
		s.gate.Unmount(context.WithoutCancel(ctx))
		s.publish()
	}()

	s.gate.Mount(ctx)
	syncTicker()
	s.publish()

	for s.gate.State() != Unlocked {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-s.events:
			fn(ctx)
		case <-tickC:
			s.gate.Tick(ctx, s.gate.TickInterval())
		}
		if s.gate.PendingBiometric() == 0 {
			s.stopBiometric()
		}
		syncTicker()
		s.publish()
	}
	return nil
}

// Digit enters one PIN digit.
func (s *Session) Digit(d int) error {
	return s.post(func(ctx context.Context) { s.gate.AppendDigit(ctx, d) })
}

// Backspace removes the last digit.
func (s *Session) Backspace() error {
	return s.post(func(ctx context.Context) { s.gate.Backspace(ctx) })
}

// Submit submits the entered PIN.
func (s *Session) Submit() error {
	return s.post(func(ctx context.Context) { s.gate.Submit(ctx) })
}

// ForgotPIN triggers the recovery hook.
func (s *Session) ForgotPIN() error {
	return s.post(func(ctx context.Context) { s.gate.ForgotPIN(ctx) })
}

// CancelBiometric abandons a pending ceremony.
func (s *Session) CancelBiometric() error {
	return s.post(func(context.Context) { s.gate.CancelBiometric() })
}

// Biometric starts a ceremony on its own goroutine. Its result is posted
// back as an event and discarded if the ceremony was superseded.
func (s *Session) Biometric() error {
	return s.post(func(ctx context.Context) {
		ticket, ok := s.gate.BeginBiometric()
		if !ok {
			return
		}
		s.stopBiometric()
		bctx, cancel := context.WithCancel(ctx)
		s.cancelBiometric = cancel

		delegate := s.gate.biometric
		go func() {
			outcome, err := delegate.Authenticate(bctx)
			_ = s.post(func(ctx context.Context) {
				s.gate.ResolveBiometric(ctx, ticket, outcome, err)
			})
		}()
	})
}

// Flush blocks until every event posted before it has been applied and
// published.
func (s *Session) Flush() error {
	applied := make(chan struct{})
	if err := s.post(func(context.Context) { close(applied) }); err != nil {
		return err
	}
	select {
	case <-applied:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// Snapshot returns the latest published snapshot.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Updates delivers snapshots after every processed event. Only the most
// recent undelivered snapshot is kept.
func (s *Session) Updates() <-chan Snapshot { return s.updates }

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) post(fn func(context.Context)) error {
	select {
	case s.events <- fn:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

func (s *Session) stopBiometric() {
	if s.cancelBiometric != nil {
		s.cancelBiometric()
		s.cancelBiometric = nil
	}
}

func (s *Session) publish() {
	snap := s.gate.Snapshot()
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()

	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- snap:
	default:
	}
}
