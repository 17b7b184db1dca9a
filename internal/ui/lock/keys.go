// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lock

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/dalepay/applock/internal/i18n"
)

// KeyMap defines the lock screen bindings.
type KeyMap struct {
	Digit     key.Binding
	Backspace key.Binding
	Submit    key.Binding
	Biometric key.Binding
	Cancel    key.Binding
	ForgotPIN key.Binding
	Quit      key.Binding
}

// DefaultKeyMap returns the lock screen bindings with localized help.
func DefaultKeyMap(tr *i18n.Translator) KeyMap {
	return KeyMap{
		Digit: key.NewBinding(
			key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("0-9", "PIN"),
		),
		Backspace: key.NewBinding(
			key.WithKeys("backspace", "ctrl+h"),
			key.WithHelp("⌫", tr.T(i18n.KeyHelpDelete)),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", tr.T(i18n.KeyUnlock)),
		),
		Biometric: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", tr.T(i18n.KeyBiometric)),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", tr.T(i18n.KeyHelpCancel)),
		),
		ForgotPIN: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", tr.T(i18n.KeyForgotPIN)),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", tr.T(i18n.KeyHelpQuit)),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Digit, k.Backspace, k.Submit, k.Biometric, k.ForgotPIN, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Digit, k.Backspace, k.Submit},
		{k.Biometric, k.Cancel, k.ForgotPIN, k.Quit},
	}
}
