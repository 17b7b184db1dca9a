// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lock

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/dalepay/applock/internal/gate"
	"github.com/dalepay/applock/internal/i18n"
)

// View renders the lock screen. An unlocked or unmounted gate renders
// nothing.
func (m *Model) View() string {
	snap := m.gate.Snapshot()
	if !snap.Visible() {
		return ""
	}
	card := m.theme.Card.Render(m.renderCard(snap))
	footer := m.help.ShortHelpView(m.visibleBindings(snap))
	body := lipgloss.JoinVertical(lipgloss.Center, card, footer)

	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
	}
	return body
}

func (m *Model) renderCard(snap gate.Snapshot) string {
	t := m.theme
	var lines []string
	lines = append(lines, t.Title.Render("🔒 "+m.tr.T(i18n.KeyTitle)))

	if snap.State == gate.LockedOut {
		lines = append(lines,
			t.Warning.Render(m.tr.T(i18n.KeyLockedOut, snap.RemainingSeconds)),
			"",
			m.progress.ViewAs(m.lockoutFraction(snap)),
			"",
			t.Subtitle.Render(m.tr.T(i18n.KeyLockedOutDetail)),
		)
		if snap.ShowSecurityTip {
			lines = append(lines, "", t.Tip.Render(strings.TrimSpace(m.tip)))
		}
	} else {
		lines = append(lines,
			t.Subtitle.Render(m.tr.T(i18n.KeyPrompt)),
			"",
			m.renderDots(snap),
			"",
		)
		if snap.CanSubmit {
			lines = append(lines, t.Button.Render(m.tr.T(i18n.KeyUnlock)+" ⏎"))
		}
		if snap.BiometricAvailable {
			label := "👆 " + m.tr.T(i18n.KeyBiometric) + " [b]"
			if snap.BiometricPending {
				label = t.Warning.Render(m.tr.T(i18n.KeyBiometricPending))
			}
			lines = append(lines, label)
		}
		if status := m.statusLine(snap); status != "" {
			lines = append(lines, "", status)
		}
	}

	lines = append(lines, "", t.Link.Render(m.tr.T(i18n.KeyForgotPIN))+t.Muted.Render(" [f]"))
	if snap.LastEvent == gate.EventForgotPIN {
		lines = append(lines, t.Muted.Render(m.tr.T(i18n.KeyRecovery)))
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) renderDots(snap gate.Snapshot) string {
	dots := make([]string, snap.PINLength)
	for i := range dots {
		if i < snap.Entered {
			dots[i] = m.theme.DotFilled.Render("●")
		} else {
			dots[i] = m.theme.DotEmpty.Render("○")
		}
	}
	return strings.Join(dots, " ")
}

func (m *Model) statusLine(snap gate.Snapshot) string {
	switch snap.LastEvent {
	case gate.EventVerifierError:
		return m.theme.Error.Render(m.tr.T(i18n.KeyVerifierError))
	case gate.EventBiometricFailed:
		return m.theme.Error.Render(m.tr.T(i18n.KeyBiometricFailed))
	case gate.EventLockoutExpired:
		return m.theme.Muted.Render(m.tr.T(i18n.KeyLockExpired))
	}
	if snap.FailureCount > 0 {
		return m.theme.Error.Render(m.tr.T(i18n.KeyWrongPIN, snap.AttemptsRemaining))
	}
	return ""
}

func (m *Model) lockoutFraction(snap gate.Snapshot) float64 {
	if m.lockout <= 0 {
		return 0
	}
	f := float64(snap.Remaining) / float64(m.lockout)
	if f > 1 {
		return 1
	}
	return f
}

func (m *Model) visibleBindings(snap gate.Snapshot) []key.Binding {
	if snap.State == gate.LockedOut {
		return []key.Binding{m.keys.ForgotPIN, m.keys.Quit}
	}
	bindings := []key.Binding{m.keys.Digit, m.keys.Backspace}
	if snap.CanSubmit {
		bindings = append(bindings, m.keys.Submit)
	}
	if snap.BiometricPending {
		bindings = append(bindings, m.keys.Cancel)
	} else if snap.BiometricAvailable {
		bindings = append(bindings, m.keys.Biometric)
	}
	return append(bindings, m.keys.ForgotPIN, m.keys.Quit)
}
