// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lock renders the gate as a Bubble Tea component.
//
// The Bubble Tea program loop is the single event loop that drives the
// gate. Lockout ticks and biometric results are messages stamped with the
// mount generation, so anything still in flight from an earlier mount is
// dropped on arrival.
package lock

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/dalepay/applock/internal/biometric"
	"github.com/dalepay/applock/internal/gate"
	"github.com/dalepay/applock/internal/i18n"
	"github.com/dalepay/applock/internal/ui/styles"
)

// =============================================================================
// MESSAGES
// =============================================================================

// TickMsg is one lockout countdown tick.
type TickMsg struct {
	Generation int
	Time       time.Time
}

// BiometricResultMsg carries a finished ceremony back to the loop.
type BiometricResultMsg struct {
	Generation int
	Ticket     gate.Ticket
	Outcome    biometric.Outcome
	Err        error
}

// UnlockedMsg is emitted when the gate transitions to Unlocked.
type UnlockedMsg struct{}

// ForgotPINMsg is emitted when the user asks for account recovery.
type ForgotPINMsg struct{}

// =============================================================================
// MODEL
// =============================================================================

// Model is the lock screen. It owns no gate state: View is a projection of
// gate.Snapshot.
type Model struct {
	ctx      context.Context
	gate     *gate.Gate
	delegate biometric.Delegate
	lockout  time.Duration

	keys     KeyMap
	help     help.Model
	progress progress.Model
	tr       *i18n.Translator
	theme    *styles.Theme
	tip      string

	generation      int
	ticking         bool
	cancelBiometric context.CancelFunc

	width  int
	height int
}

// New returns a lock screen for g. lockout is the full lockout duration,
// used to scale the countdown bar.
func New(ctx context.Context, g *gate.Gate, delegate biometric.Delegate, lockout time.Duration, tr *i18n.Translator, theme *styles.Theme) *Model {
	if delegate == nil {
		delegate = biometric.Unavailable{}
	}
	m := &Model{
		ctx:      ctx,
		gate:     g,
		delegate: delegate,
		lockout:  lockout,
		keys:     DefaultKeyMap(tr),
		help:     help.New(),
		progress: progress.New(progress.WithScaledGradient("#2563EB", "#9333EA"), progress.WithoutPercentage()),
		tr:       tr,
		theme:    theme,
	}
	m.progress.Width = 30
	m.tip = renderMarkdown(tr.T(i18n.KeySecurityTip), theme.GlamourStyle())
	return m
}

func renderMarkdown(md, style string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(48),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

// Mount mounts the gate for a new generation and returns the commands the
// resulting state needs.
func (m *Model) Mount() tea.Cmd {
	m.stopBiometric()
	m.generation++
	m.ticking = false
	state := m.gate.Mount(m.ctx)
	if state == gate.Unlocked {
		return unlockedCmd
	}
	return m.syncTicker()
}

// Lock engages the gate without the freshness bypass.
func (m *Model) Lock() tea.Cmd {
	m.stopBiometric()
	m.generation++
	m.ticking = false
	m.gate.Lock(m.ctx)
	return m.syncTicker()
}

// Unmount tears the gate down. In-flight ticks and results are dropped.
func (m *Model) Unmount() {
	m.stopBiometric()
	m.generation++
	m.ticking = false
	m.gate.Unmount(m.ctx)
}

// Generation returns the current mount generation.
func (m *Model) Generation() int { return m.generation }

// Snapshot returns the gate projection.
func (m *Model) Snapshot() gate.Snapshot { return m.gate.Snapshot() }

// SetSize sets the available area.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width
}

func unlockedCmd() tea.Msg { return UnlockedMsg{} }

func forgotCmd() tea.Msg { return ForgotPINMsg{} }

// syncTicker schedules the next tick while the gate needs one. There is at
// most one tick in flight per generation.
func (m *Model) syncTicker() tea.Cmd {
	if !m.gate.NeedsTicker() || m.ticking {
		return nil
	}
	m.ticking = true
	generation := m.generation
	return tea.Tick(m.gate.TickInterval(), func(t time.Time) tea.Msg {
		return TickMsg{Generation: generation, Time: t}
	})
}

func (m *Model) stopBiometric() {
	if m.cancelBiometric != nil {
		m.cancelBiometric()
		m.cancelBiometric = nil
	}
}

// Update handles lock screen messages. Callers route every message here
// while the gate is visible.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	before := m.gate.State()
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)

	case TickMsg:
		if msg.Generation != m.generation {
			return nil
		}
		m.ticking = false
		m.gate.Tick(m.ctx, m.gate.TickInterval())

	case BiometricResultMsg:
		if msg.Generation != m.generation {
			return nil
		}
		m.gate.ResolveBiometric(m.ctx, msg.Ticket, msg.Outcome, msg.Err)

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKey(msg))
	}

	if m.gate.PendingBiometric() == 0 {
		m.stopBiometric()
	}
	if before != gate.Unlocked && m.gate.State() == gate.Unlocked {
		m.ticking = false
		cmds = append(cmds, unlockedCmd)
	}
	cmds = append(cmds, m.syncTicker())
	return tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Digit):
		m.gate.AppendDigit(m.ctx, int(msg.String()[0]-'0'))
	case key.Matches(msg, m.keys.Backspace):
		m.gate.Backspace(m.ctx)
	case key.Matches(msg, m.keys.Submit):
		m.gate.Submit(m.ctx)
	case key.Matches(msg, m.keys.Biometric):
		return m.startBiometric()
	case key.Matches(msg, m.keys.Cancel):
		m.gate.CancelBiometric()
	case key.Matches(msg, m.keys.ForgotPIN):
		if m.gate.ForgotPIN(m.ctx) {
			return forgotCmd
		}
	}
	return nil
}

func (m *Model) startBiometric() tea.Cmd {
	ticket, ok := m.gate.BeginBiometric()
	if !ok {
		return nil
	}
	m.stopBiometric()
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancelBiometric = cancel

	generation := m.generation
	delegate := m.delegate
	return func() tea.Msg {
		outcome, err := delegate.Authenticate(ctx)
		return BiometricResultMsg{
			Generation: generation,
			Ticket:     ticket,
			Outcome:    outcome,
			Err:        err,
		}
	}
}
