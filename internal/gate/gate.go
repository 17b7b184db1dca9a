// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gate decides whether the application's screens are reachable.
//
// Gate is a pure state machine combining the activity clock, PIN entry,
// the lockout timer and the biometric delegate. It performs no I/O of its
// own beyond the injected collaborators and owns no goroutines or timers:
// the caller drives it from a single event loop and supplies ticks while
// NeedsTicker reports true. Session is such a loop for headless hosts.
//
// Every method handles every state. Calls that make no sense in the
// current state are explicit no-ops and report false or pin.Ignored.
package gate

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/dalepay/applock/internal/activity"
	"github.com/dalepay/applock/internal/audit"
	"github.com/dalepay/applock/internal/biometric"
	"github.com/dalepay/applock/internal/clock"
	"github.com/dalepay/applock/internal/config"
	"github.com/dalepay/applock/internal/lockout"
	"github.com/dalepay/applock/internal/pin"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Option configures a Gate.
type Option func(*Gate)

// WithOnUnlock sets the host callback invoked once per unlock transition.
func WithOnUnlock(fn func()) Option {
	return func(g *Gate) { g.onUnlock = fn }
}

// WithOnForgotPIN sets the host hook that routes to account recovery.
func WithOnForgotPIN(fn func()) Option {
	return func(g *Gate) { g.onForgotPIN = fn }
}

// WithAuditLogger sets the audit trail.
func WithAuditLogger(l *audit.Logger) Option {
	return func(g *Gate) { g.audit = l }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// WithClock sets the time source for tickers and audit timestamps.
func WithClock(c clock.Clock) Option {
	return func(g *Gate) { g.clock = c }
}

// WithBiometric sets the platform authenticator delegate.
func WithBiometric(d biometric.Delegate) Option {
	return func(g *Gate) { g.biometric = d }
}

// =============================================================================
// GATE
// =============================================================================

// Gate is the lock state machine. Not safe for concurrent use.
type Gate struct {
	cfg      config.GateConfig
	policy   lockout.Policy
	activity *activity.Clock
	verifier pin.Verifier

	biometric   biometric.Delegate
	onUnlock    func()
	onForgotPIN func()
	audit       *audit.Logger
	logger      *slog.Logger
	clock       clock.Clock

	state     State
	mounted   bool
	sessionID string
	entry     *pin.Entry
	timer     lockout.Timer

	biometricAvailable bool
	pending            Ticket
	lastTicket         Ticket

	showTip   bool
	lastEvent Event
}

// New returns an unmounted gate. It starts Locked; nothing is reachable
// until Mount decides otherwise.
func New(cfg config.GateConfig, act *activity.Clock, verifier pin.Verifier, opts ...Option) *Gate {
	g := &Gate{
		cfg: cfg,
		policy: lockout.Policy{
			MaxAttempts: cfg.MaxAttempts,
			Duration:    cfg.LockoutDuration(),
		},
		activity: act,
		verifier: verifier,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:    clock.Real(),
		state:    Locked,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.entry = pin.NewEntry(cfg.PINLength, verifier)
	return g
}

// Mount evaluates freshness and enters Unlocked or Locked. Credential and
// lockout state from any previous mount is discarded.
func (g *Gate) Mount(ctx context.Context) State {
	return g.mount(ctx, true)
}

// Lock mounts the gate Locked without the freshness bypass, for a manual
// lock by the user.
func (g *Gate) Lock(ctx context.Context) State {
	return g.mount(ctx, false)
}

func (g *Gate) mount(ctx context.Context, allowBypass bool) State {
	g.mounted = true
	g.sessionID = audit.NewSessionID()
	g.entry = pin.NewEntry(g.cfg.PINLength, g.verifier)
	g.timer = lockout.Timer{}
	g.pending = 0
	g.showTip = false
	g.lastEvent = EventNone
	g.state = Locked
	g.biometricAvailable = g.biometric != nil && g.biometric.Available()

	g.logEvent(audit.EventGateMount, true, map[string]string{
		"biometric": strconv.FormatBool(g.biometricAvailable),
		"manual":    strconv.FormatBool(!allowBypass),
	})

	if allowBypass && g.activity != nil && g.activity.IsFresh(ctx, g.cfg.FreshnessThreshold()) {
		g.unlock(ctx, "fresh")
	}
	return g.state
}

// Unmount tears the gate down. The lockout timer and any pending
// ceremony are dropped; later calls are no-ops until the next Mount.
func (g *Gate) Unmount(ctx context.Context) {
	if !g.mounted {
		return
	}
	g.logEvent(audit.EventGateUnmount, true, map[string]string{"state": g.state.String()})
	g.mounted = false
	g.pending = 0
	g.timer.Disarm()
	g.entry.Reset()
}

// acceptingInput recomputes lockout status before any credential input is
// forwarded.
func (g *Gate) acceptingInput() bool {
	if !g.mounted {
		return false
	}
	if g.state == LockedOut && !g.timer.Armed() {
		g.expireLockout()
	}
	return g.state == Locked
}

// AppendDigit forwards d to PIN entry. Typing abandons a pending
// biometric ceremony.
func (g *Gate) AppendDigit(ctx context.Context, d int) bool {
	if !g.acceptingInput() {
		return false
	}
	g.abandonBiometric()
	return g.entry.AppendDigit(d)
}

// Backspace removes the last digit.
func (g *Gate) Backspace(ctx context.Context) bool {
	if !g.acceptingInput() {
		return false
	}
	g.abandonBiometric()
	return g.entry.Backspace()
}

// Submit verifies the entered PIN and applies the outcome.
func (g *Gate) Submit(ctx context.Context) pin.Result {
	if !g.acceptingInput() {
		return pin.Ignored
	}
	result := g.entry.Submit(ctx)
	if result == pin.Ignored {
		return result
	}
	g.abandonBiometric()

	switch result {
	case pin.Accepted:
		g.unlock(ctx, "pin")
	case pin.Rejected:
		failures := g.entry.FailureCount()
		g.lastEvent = EventWrongPIN
		g.logEvent(audit.EventPINRejected, false, map[string]string{
			"failure_count": strconv.Itoa(failures),
		})
		if g.policy.ShouldArm(failures) {
			g.armLockout()
		}
	case pin.VerifierError:
		g.lastEvent = EventVerifierError
		g.logger.Error("pin verifier failed", "error", g.entry.LastError())
		g.logEvent(audit.EventPINVerifierError, false, nil)
	}
	return result
}

// Tick advances the lockout countdown by period. It reports whether the
// state changed. Ticks outside LockedOut are ignored.
func (g *Gate) Tick(ctx context.Context, period time.Duration) bool {
	if !g.mounted || g.state != LockedOut {
		return false
	}
	if g.timer.Tick(period) {
		g.expireLockout()
		return true
	}
	return false
}

// BeginBiometric starts a ceremony and returns its ticket. Only allowed
// while Locked with an available authenticator. Starting a new ceremony
// supersedes any pending one.
func (g *Gate) BeginBiometric() (Ticket, bool) {
	if !g.acceptingInput() || !g.biometricAvailable {
		return 0, false
	}
	g.lastTicket++
	g.pending = g.lastTicket
	return g.pending, true
}

// ResolveBiometric applies a ceremony outcome. Results for a ticket that
// is no longer pending, or that arrive after the gate left Locked, are
// discarded and reported false.
func (g *Gate) ResolveBiometric(ctx context.Context, ticket Ticket, outcome biometric.Outcome, err error) bool {
	if ticket == 0 || ticket != g.pending || !g.acceptingInput() {
		g.logEvent(audit.EventBiometricStale, false, map[string]string{
			"ticket":  strconv.FormatUint(uint64(ticket), 10),
			"outcome": outcome.String(),
		})
		return false
	}
	g.pending = 0

	switch outcome {
	case biometric.Success:
		g.unlock(ctx, "biometric")
	case biometric.Error:
		g.logger.Warn("biometric platform error", "error", err)
		g.lastEvent = EventBiometricFailed
		g.logEvent(audit.EventBiometricError, false, errMetadata(err))
	default:
		g.lastEvent = EventBiometricFailed
		g.logEvent(audit.EventBiometricFailure, false, errMetadata(err))
	}
	return true
}

// CancelBiometric abandons the pending ceremony, if any.
func (g *Gate) CancelBiometric() bool {
	if g.pending == 0 {
		return false
	}
	g.pending = 0
	return true
}

// ForgotPIN invokes the recovery hook. Allowed whenever the gate is
// visible, including during lockout.
func (g *Gate) ForgotPIN(ctx context.Context) bool {
	if !g.mounted || g.state == Unlocked {
		return false
	}
	g.lastEvent = EventForgotPIN
	g.logEvent(audit.EventForgotPIN, true, nil)
	if g.onForgotPIN != nil {
		g.onForgotPIN()
	}
	return true
}

// State returns the current state.
func (g *Gate) State() State { return g.state }

// Mounted reports whether the gate is mounted.
func (g *Gate) Mounted() bool { return g.mounted }

// NeedsTicker reports whether the owner must be delivering ticks.
func (g *Gate) NeedsTicker() bool {
	return g.mounted && g.state == LockedOut
}

// TickInterval is the period the owner should tick at.
func (g *Gate) TickInterval() time.Duration { return g.cfg.TickInterval() }

// PendingBiometric returns the pending ticket, or zero.
func (g *Gate) PendingBiometric() Ticket { return g.pending }

// SessionID returns the audit session id of the current mount.
func (g *Gate) SessionID() string { return g.sessionID }

// Snapshot projects the gate for rendering.
func (g *Gate) Snapshot() Snapshot {
	failures := g.entry.FailureCount()
	return Snapshot{
		State:              g.state,
		Mounted:            g.mounted,
		Entered:            g.entry.Len(),
		PINLength:          g.entry.Length(),
		CanSubmit:          g.state == Locked && g.entry.Phase() == pin.Ready,
		FailureCount:       failures,
		AttemptsRemaining:  g.policy.AttemptsRemaining(failures),
		Remaining:          g.timer.Remaining(),
		RemainingSeconds:   g.timer.RemainingSeconds(),
		ShowSecurityTip:    g.state == LockedOut && g.showTip,
		BiometricAvailable: g.biometricAvailable && g.state == Locked,
		BiometricPending:   g.pending != 0,
		LastEvent:          g.lastEvent,
	}
}

// =============================================================================
// TRANSITIONS
// =============================================================================

func (g *Gate) unlock(ctx context.Context, method string) {
	if g.state == Unlocked {
		return
	}
	g.state = Unlocked
	g.pending = 0
	g.timer.Disarm()
	g.entry.Reset()
	g.lastEvent = EventUnlocked

	if method == "fresh" {
		g.logEvent(audit.EventGateBypassFresh, true, nil)
	} else {
		if g.activity != nil {
			g.activity.RecordActivity(ctx)
		}
		eventType := audit.EventPINAccepted
		if method == "biometric" {
			eventType = audit.EventBiometricSuccess
		}
		g.logEvent(eventType, true, nil)
	}
	g.logger.Info("gate unlocked", "method", method, "session", g.sessionID)

	if g.onUnlock != nil {
		g.onUnlock()
	}
}

func (g *Gate) armLockout() {
	g.timer.Arm(g.policy.Duration)
	if !g.timer.Armed() {
		return
	}
	g.state = LockedOut
	g.pending = 0
	g.entry.Reset()
	g.showTip = g.timer.Arms() == 1
	g.lastEvent = EventLockoutArmed
	g.logger.Warn("lockout armed", "duration", g.policy.Duration, "failure_count", g.entry.FailureCount())
	g.logEvent(audit.EventLockoutArmed, false, map[string]string{
		"duration_ms":   strconv.FormatInt(g.policy.Duration.Milliseconds(), 10),
		"failure_count": strconv.Itoa(g.entry.FailureCount()),
	})
}

func (g *Gate) expireLockout() {
	g.timer.Disarm()
	g.state = Locked
	g.showTip = false
	g.lastEvent = EventLockoutExpired
	g.logEvent(audit.EventLockoutExpired, true, map[string]string{
		"failure_count": strconv.Itoa(g.entry.FailureCount()),
	})
}

func (g *Gate) abandonBiometric() {
	g.pending = 0
}

func (g *Gate) logEvent(eventType string, success bool, metadata map[string]string) {
	if g.audit == nil {
		return
	}
	if err := g.audit.Log(audit.Event{
		Timestamp: g.clock.Now(),
		EventType: eventType,
		SessionID: g.sessionID,
		Success:   success,
		Metadata:  metadata,
	}); err != nil {
		g.logger.Warn("audit write failed", "event", eventType, "error", err)
	}
}

func errMetadata(err error) map[string]string {
	if err == nil {
		return nil
	}
	return map[string]string{"error": err.Error()}
}
