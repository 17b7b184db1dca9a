// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gate

import "time"

// State is the gate's top-level state. LockedOut is a sub-state of Locked:
// both keep the rest of the application unreachable.
type State int

const (
	Locked State = iota
	LockedOut
	Unlocked
)

func (s State) String() string {
	switch s {
	case Locked:
		return "locked"
	case LockedOut:
		return "locked-out"
	case Unlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// IsLocked reports whether the application is unreachable.
func (s State) IsLocked() bool { return s != Unlocked }

// Event is the most recent user-visible thing that happened, for
// renderers that show a one-line status.
type Event int

const (
	EventNone Event = iota
	EventWrongPIN
	EventVerifierError
	EventLockoutArmed
	EventLockoutExpired
	EventBiometricFailed
	EventUnlocked
	EventForgotPIN
)

// Ticket identifies one biometric ceremony. Results carrying a ticket
// that is no longer pending are discarded.
type Ticket uint64

// Snapshot is a read-only projection of the gate. Renderers draw from a
// Snapshot and nothing else.
type Snapshot struct {
	State   State
	Mounted bool

	Entered   int
	PINLength int
	CanSubmit bool

	FailureCount      int
	AttemptsRemaining int

	Remaining        time.Duration
	RemainingSeconds int
	ShowSecurityTip  bool

	BiometricAvailable bool
	BiometricPending   bool

	LastEvent Event
}

// Visible reports whether the gate draws anything. An unlocked gate is
// transparent to the host.
func (s Snapshot) Visible() bool {
	return s.Mounted && s.State != Unlocked
}

// AcceptsInput reports whether credential input is forwarded.
func (s Snapshot) AcceptsInput() bool {
	return s.Mounted && s.State == Locked
}
