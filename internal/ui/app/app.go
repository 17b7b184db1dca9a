// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app is the terminal host for the lock gate: it owns the global
// activity listener, mounts the gate on start and on foreground, and shows
// the wallet placeholder once unlocked.
package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dalepay/applock/internal/activity"
	"github.com/dalepay/applock/internal/audit"
	"github.com/dalepay/applock/internal/biometric"
	"github.com/dalepay/applock/internal/config"
	"github.com/dalepay/applock/internal/gate"
	"github.com/dalepay/applock/internal/i18n"
	"github.com/dalepay/applock/internal/pin"
	"github.com/dalepay/applock/internal/ui/lock"
	"github.com/dalepay/applock/internal/ui/styles"
)

// Deps are the collaborators the host wires into the gate.
type Deps struct {
	Config    *config.Config
	Activity  *activity.Clock
	Verifier  pin.Verifier
	Biometric biometric.Delegate
	Audit     *audit.Logger
	Logger    *slog.Logger
}

type appKeys struct {
	Lock key.Binding
	Quit key.Binding
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx      context.Context
	activity *activity.Clock
	logger   *slog.Logger

	gate  *gate.Gate
	lock  *lock.Model
	keys  appKeys
	tr    *i18n.Translator
	theme *styles.Theme

	unlocks int
	width   int
	height  int
}

// New builds the host and its gate.
func New(ctx context.Context, deps Deps) *Model {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	delegate := deps.Biometric
	if delegate == nil {
		delegate = biometric.Unavailable{}
	}

	m := &Model{
		ctx:      ctx,
		activity: deps.Activity,
		logger:   logger,
		tr:       i18n.New(cfg.UI.Language),
		theme:    styles.NewTheme(cfg.UI.Theme),
		keys: appKeys{
			Lock: key.NewBinding(key.WithKeys("L", "ctrl+l")),
			Quit: key.NewBinding(key.WithKeys("ctrl+c", "q")),
		},
	}
	m.gate = gate.New(cfg.Gate, deps.Activity, deps.Verifier,
		gate.WithBiometric(delegate),
		gate.WithAuditLogger(deps.Audit),
		gate.WithLogger(logger),
		gate.WithOnUnlock(m.onUnlock),
		gate.WithOnForgotPIN(m.onForgotPIN),
	)
	m.lock = lock.New(ctx, m.gate, delegate, cfg.Gate.LockoutDuration(), m.tr, m.theme)
	return m
}

func (m *Model) onUnlock() {
	m.unlocks++
	m.logger.Info("application unlocked", "count", m.unlocks)
}

func (m *Model) onForgotPIN() {
	m.logger.Info("account recovery requested")
}

// Unlocks returns how many times the host has been unlocked.
func (m *Model) Unlocks() int { return m.unlocks }

// Gate exposes the gate for inspection.
func (m *Model) Gate() *gate.Gate { return m.gate }

// Init mounts the gate.
func (m *Model) Init() tea.Cmd {
	return m.lock.Mount()
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.observe(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.lock.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.FocusMsg:
		// Foreground: re-evaluate freshness, but never remount an engaged
		// gate, which would discard a running lockout.
		if m.gate.State() == gate.Unlocked {
			return m, m.lock.Mount()
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) && (msg.String() == "ctrl+c" || m.gate.State() == gate.Unlocked) {
			m.lock.Unmount()
			return m, tea.Quit
		}
		if m.gate.State() == gate.Unlocked {
			if key.Matches(msg, m.keys.Lock) {
				return m, m.lock.Lock()
			}
			return m, nil
		}

	case lock.UnlockedMsg:
		return m, nil

	case lock.ForgotPINMsg:
		return m, nil
	}

	if m.gate.Snapshot().Visible() || isGateMsg(msg) {
		return m, m.lock.Update(msg)
	}
	return m, nil
}

func isGateMsg(msg tea.Msg) bool {
	switch msg.(type) {
	case lock.TickMsg, lock.BiometricResultMsg:
		return true
	}
	return false
}

// observe is the global interaction listener. Interactions on the lock
// screen itself do not refresh the session.
func (m *Model) observe(msg tea.Msg) {
	if m.activity == nil || m.gate.State() != gate.Unlocked {
		return
	}
	if kind, ok := EventKind(msg); ok {
		m.activity.Observe(m.ctx, kind)
	}
}

// EventKind maps a terminal message to an activity kind.
func EventKind(msg tea.Msg) (activity.EventKind, bool) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return activity.KeyPress, true
	case tea.MouseMsg:
		switch {
		case tea.MouseEvent(msg).IsWheel():
			return activity.Scroll, true
		case msg.Action == tea.MouseActionMotion:
			return activity.PointerMove, true
		case msg.Action == tea.MouseActionPress:
			return activity.PointerDown, true
		}
	case tea.FocusMsg:
		return activity.FocusChange, true
	case tea.WindowSizeMsg:
		return activity.Resize, true
	}
	return 0, false
}

// View implements tea.Model.
func (m *Model) View() string {
	if view := m.lock.View(); view != "" {
		return view
	}
	home := lipgloss.JoinVertical(lipgloss.Center,
		m.theme.HomeTitle.Render("✓ "+m.tr.T(i18n.KeyHomeTitle)),
		m.theme.HomeBody.Render(m.tr.T(i18n.KeyHomeBody)),
		"",
		m.theme.Muted.Render("L "+m.tr.T(i18n.KeyHelpLock)+" · q "+m.tr.T(i18n.KeyHelpQuit)),
	)
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, home)
	}
	return home
}
