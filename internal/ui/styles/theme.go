// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted from config.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
	// ModePlain disables color, for pipes and tests.
	ModePlain = "plain"
)

// Theme holds the lock screen styles for one terminal.
type Theme struct {
	Mode         string
	IsDark       bool
	ColorProfile termenv.Profile

	renderer *lipgloss.Renderer

	Card      lipgloss.Style
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	DotFilled lipgloss.Style
	DotEmpty  lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	Tip       lipgloss.Style
	Button    lipgloss.Style
	Link      lipgloss.Style
	Muted     lipgloss.Style
	HomeTitle lipgloss.Style
	HomeBody  lipgloss.Style
}

// NewTheme detects the terminal's capabilities, honoring an explicit mode.
func NewTheme(mode string) *Theme {
	mode = strings.ToLower(strings.TrimSpace(mode))
	r := lipgloss.NewRenderer(os.Stdout)

	switch mode {
	case ModeDark:
		r.SetHasDarkBackground(true)
	case ModeLight:
		r.SetHasDarkBackground(false)
	case ModePlain:
		r.SetColorProfile(termenv.Ascii)
		r.SetHasDarkBackground(true)
	default:
		mode = ModeAuto
	}

	t := &Theme{
		Mode:         mode,
		IsDark:       r.HasDarkBackground(),
		ColorProfile: r.ColorProfile(),
		renderer:     r,
	}
	t.initStyles()
	return t
}

// Renderer returns the lipgloss renderer bound to the detected profile.
func (t *Theme) Renderer() *lipgloss.Renderer { return t.renderer }

func (t *Theme) initStyles() {
	r := t.renderer

	t.Card = r.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 3).
		Align(lipgloss.Center)

	t.Title = r.NewStyle().Bold(true).Foreground(TextPrimary)
	t.Subtitle = r.NewStyle().Foreground(TextSecondary)

	t.DotFilled = r.NewStyle().Foreground(Blue).Bold(true)
	t.DotEmpty = r.NewStyle().Foreground(TextMuted)

	t.Error = r.NewStyle().Foreground(Rose)
	t.Warning = r.NewStyle().Foreground(Amber).Bold(true)
	t.Tip = r.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Blue).
		Padding(0, 1)

	t.Button = r.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}).
		Background(Blue).
		Bold(true).
		Padding(0, 2)
	t.Link = r.NewStyle().Foreground(Blue).Underline(true)
	t.Muted = r.NewStyle().Foreground(TextMuted)

	t.HomeTitle = r.NewStyle().Bold(true).Foreground(Emerald)
	t.HomeBody = r.NewStyle().Foreground(TextSecondary)
}

// GlamourStyle returns the glamour standard style matching the theme.
func (t *Theme) GlamourStyle() string {
	switch {
	case t.ColorProfile == termenv.Ascii:
		return "notty"
	case t.IsDark:
		return "dark"
	default:
		return "light"
	}
}
