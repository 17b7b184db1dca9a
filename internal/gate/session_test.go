// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dalepay/applock/internal/biometric"
	"github.com/dalepay/applock/internal/biometric/biometrictest"
)

const waitFor = 2 * time.Second

func startSession(t *testing.T, h *harness) (*Session, context.CancelFunc, <-chan error) {
	t.Helper()
	s := NewSession(h.gate)
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	t.Cleanup(cancel)
	return s, cancel, errc
}

func sendPIN(t *testing.T, s *Session, code string) {
	t.Helper()
	for _, r := range code {
		require.NoError(t, s.Digit(int(r-'0')))
	}
	require.NoError(t, s.Submit())
}

func eventually(t *testing.T, s *Session, cond func(Snapshot) bool, msg string) {
	t.Helper()
	require.Eventually(t, func() bool { return cond(s.Snapshot()) }, waitFor, time.Millisecond, msg)
}

func TestSession_LockoutScenario(t *testing.T) {
	h := newHarness(t, staticVerifier(correctPIN))
	s, _, errc := startSession(t, h)

	for i := 0; i < 3; i++ {
		sendPIN(t, s, "1234")
	}
	eventually(t, s, func(sn Snapshot) bool { return sn.State == LockedOut }, "lockout armed")
	assert.Equal(t, 1, h.clock.PendingTickers(), "ticker runs only while locked out")

	// Input during lockout is dropped.
	sendPIN(t, s, correctPIN)
	for remaining := 29; remaining >= 0; remaining-- {
		h.clock.Advance(time.Second)
		want := remaining
		eventually(t, s, func(sn Snapshot) bool { return sn.RemainingSeconds == want }, "countdown")
	}

	eventually(t, s, func(sn Snapshot) bool { return sn.State == Locked }, "lockout expired")
	assert.Equal(t, 3, s.Snapshot().FailureCount)
	eventually(t, s, func(Snapshot) bool { return h.clock.PendingTickers() == 0 }, "ticker stopped")

	sendPIN(t, s, correctPIN)
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("session did not finish after unlock")
	}
	assert.Equal(t, 1, h.unlocks)
	assert.Equal(t, Unlocked, h.gate.State())
	assert.ErrorIs(t, s.Digit(1), ErrSessionClosed)
}

func TestSession_CancelReleasesTicker(t *testing.T) {
	h := newHarness(t, staticVerifier(correctPIN))
	s, cancel, errc := startSession(t, h)

	for i := 0; i < 3; i++ {
		sendPIN(t, s, "0000")
	}
	eventually(t, s, func(sn Snapshot) bool { return sn.State == LockedOut }, "lockout armed")

	cancel()
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(waitFor):
		t.Fatal("session did not stop")
	}
	assert.Equal(t, 0, h.clock.PendingTickers())
	assert.False(t, h.gate.Mounted())
	assert.Equal(t, 0, h.unlocks)
}

func TestSession_BiometricUnlock(t *testing.T) {
	ctrl := gomock.NewController(t)
	delegate := biometrictest.NewMockDelegate(ctrl)
	delegate.EXPECT().Available().Return(true).AnyTimes()
	delegate.EXPECT().Authenticate(gomock.Any()).Return(biometric.Success, nil)

	h := newHarness(t, staticVerifier(correctPIN), WithBiometric(delegate))
	s, _, errc := startSession(t, h)

	require.NoError(t, s.Biometric())
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("biometric success did not unlock")
	}
	assert.Equal(t, 1, h.unlocks)
}

func TestSession_BiometricResultAfterPINEntryDiscarded(t *testing.T) {
	ctrl := gomock.NewController(t)
	delegate := biometrictest.NewMockDelegate(ctrl)
	delegate.EXPECT().Available().Return(true).AnyTimes()

	release := make(chan struct{})
	delegate.EXPECT().Authenticate(gomock.Any()).DoAndReturn(func(ctx context.Context) (biometric.Outcome, error) {
		<-release
		return biometric.Success, nil
	})

	h := newHarness(t, staticVerifier(correctPIN), WithBiometric(delegate))
	s, cancel, errc := startSession(t, h)

	require.NoError(t, s.Biometric())
	eventually(t, s, func(sn Snapshot) bool { return sn.BiometricPending }, "ceremony pending")
	require.NoError(t, s.Digit(7))
	eventually(t, s, func(sn Snapshot) bool { return !sn.BiometricPending && sn.Entered == 1 }, "switched to PIN")

	close(release)
	// A sentinel event after the stale result proves it was processed.
	require.NoError(t, s.Backspace())
	require.NoError(t, s.Digit(1))
	eventually(t, s, func(sn Snapshot) bool { return sn.Entered == 1 }, "sentinel processed")
	assert.Equal(t, Locked, s.Snapshot().State)
	assert.Equal(t, 0, h.unlocks)

	cancel()
	assert.True(t, errors.Is(<-errc, context.Canceled))
}

func TestSession_FreshMountReturnsImmediately(t *testing.T) {
	h := newHarness(t, staticVerifier(correctPIN))
	h.activity.RecordActivity(context.Background())

	s := NewSession(h.gate)
	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 1, h.unlocks)
	assert.False(t, s.Snapshot().Visible())
}

func TestSession_UpdatesKeepLatest(t *testing.T) {
	h := newHarness(t, staticVerifier(correctPIN))
	s, _, _ := startSession(t, h)

	require.NoError(t, s.Digit(1))
	require.NoError(t, s.Digit(2))
	eventually(t, s, func(sn Snapshot) bool { return sn.Entered == 2 }, "digits applied")

	deadline := time.After(waitFor)
	for {
		select {
		case snap := <-s.Updates():
			if snap.Entered == 2 {
				return
			}
		case <-deadline:
			t.Fatal("latest update not delivered")
		}
	}
}

func TestSession_FlushAppliesPostedEvents(t *testing.T) {
	h := newHarness(t, staticVerifier(correctPIN))
	s, _, errc := startSession(t, h)

	sendPIN(t, s, "9999")
	require.NoError(t, s.Flush())
	snap := s.Snapshot()
	assert.Equal(t, 1, snap.FailureCount)
	assert.Equal(t, EventWrongPIN, snap.LastEvent)
	assert.Zero(t, snap.Entered)

	sendPIN(t, s, correctPIN)
	require.NoError(t, <-errc)
	assert.ErrorIs(t, s.Flush(), ErrSessionClosed)
}
