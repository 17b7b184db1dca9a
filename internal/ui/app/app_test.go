// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dalepay/applock/internal/activity"
	"github.com/dalepay/applock/internal/clock"
	"github.com/dalepay/applock/internal/config"
	"github.com/dalepay/applock/internal/gate"
	"github.com/dalepay/applock/internal/pin"
	"github.com/dalepay/applock/internal/storage"
	"github.com/dalepay/applock/internal/ui/styles"
)

const correctPIN = "2468"

type fixture struct {
	model *Model
	clock *clock.FakeClock
	store *storage.MemoryStore
	act   *activity.Clock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.UI.Language = "en"
	cfg.UI.Theme = styles.ModePlain

	f := &fixture{
		clock: clock.Fake(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
		store: storage.NewMemoryStore(),
	}
	f.act = activity.New(f.store, cfg.Storage.NamespaceKey, activity.WithClock(f.clock))
	f.model = New(context.Background(), Deps{
		Config:   cfg,
		Activity: f.act,
		Verifier: pin.VerifierFunc(func(_ context.Context, candidate string) (bool, error) {
			return candidate == correctPIN, nil
		}),
	})
	return f
}

func (f *fixture) send(msg tea.Msg) tea.Cmd {
	_, cmd := f.model.Update(msg)
	return cmd
}

func (f *fixture) typePIN(code string) {
	for _, r := range code {
		f.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	f.send(tea.KeyMsg{Type: tea.KeyEnter})
}

func (f *fixture) state() gate.State { return f.model.Gate().State() }

func TestApp_FreshInstallShowsLock(t *testing.T) {
	f := newFixture(t)
	f.model.Init()

	assert.Equal(t, gate.Locked, f.state())
	assert.Contains(t, f.model.View(), "Enter your PIN to continue")
}

func TestApp_LockScreenInputDoesNotRefreshSession(t *testing.T) {
	f := newFixture(t)
	f.model.Init()

	f.typePIN("1111")
	_, ok := f.act.LastActive(context.Background())
	assert.False(t, ok)
}

func TestApp_UnlockThenActivity(t *testing.T) {
	f := newFixture(t)
	f.model.Init()
	f.typePIN(correctPIN)

	require.Equal(t, gate.Unlocked, f.state())
	assert.Equal(t, 1, f.model.Unlocks())
	assert.Contains(t, f.model.View(), "Welcome back")

	f.clock.Advance(time.Minute)
	f.send(tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	last, ok := f.act.LastActive(context.Background())
	require.True(t, ok)
	assert.Equal(t, f.clock.Now().UnixMilli(), last.UnixMilli())
}

func TestApp_ForegroundReevaluatesFreshness(t *testing.T) {
	f := newFixture(t)
	f.model.Init()
	f.typePIN(correctPIN)

	f.clock.Advance(time.Minute)
	f.send(tea.FocusMsg{})
	assert.Equal(t, gate.Unlocked, f.state(), "fresh session bypasses")
	assert.Equal(t, 2, f.model.Unlocks())

	f.clock.Advance(6 * time.Minute)
	f.send(tea.FocusMsg{})
	assert.Equal(t, gate.Locked, f.state())
	assert.Equal(t, 2, f.model.Unlocks())
}

func TestApp_ForegroundKeepsLockout(t *testing.T) {
	f := newFixture(t)
	f.model.Init()
	for i := 0; i < 3; i++ {
		f.typePIN("0000")
	}
	require.Equal(t, gate.LockedOut, f.state())
	remaining := f.model.Gate().Snapshot().Remaining

	f.send(tea.FocusMsg{})
	assert.Equal(t, gate.LockedOut, f.state())
	assert.Equal(t, remaining, f.model.Gate().Snapshot().Remaining)
}

func TestApp_ManualLock(t *testing.T) {
	f := newFixture(t)
	f.model.Init()
	f.typePIN(correctPIN)

	f.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("L")})
	assert.Equal(t, gate.Locked, f.state())
	assert.Equal(t, 1, f.model.Unlocks())
}

func TestApp_QuitOnlyFromHomeOrCtrlC(t *testing.T) {
	f := newFixture(t)
	f.model.Init()

	cmd := f.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd != nil {
		assert.NotEqual(t, tea.QuitMsg{}, cmd())
	}

	cmd = f.send(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestEventKind(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.Msg
		want activity.EventKind
		ok   bool
	}{
		{"key", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")}, activity.KeyPress, true},
		{"press", tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}, activity.PointerDown, true},
		{"motion", tea.MouseMsg{Action: tea.MouseActionMotion}, activity.PointerMove, true},
		{"wheel", tea.MouseMsg{Action: tea.MouseActionPress, Button: tea.MouseButtonWheelDown}, activity.Scroll, true},
		{"focus", tea.FocusMsg{}, activity.FocusChange, true},
		{"resize", tea.WindowSizeMsg{Width: 80, Height: 24}, activity.Resize, true},
		{"release", tea.MouseMsg{Action: tea.MouseActionRelease}, 0, false},
		{"other", "tick", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := EventKind(tt.msg)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
