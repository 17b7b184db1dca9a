// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dalepay/applock/internal/ui/app"
)

// HandleTUI runs the full-screen lock screen.
func HandleTUI(args Args) error {
	if !IsTTY() || !IsStdoutTTY() {
		return fmt.Errorf("the lock screen needs a terminal; use `applock prompt` instead")
	}
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	verifier, err := env.Verifier()
	if err != nil {
		return err
	}

	model := app.New(ctx, app.Deps{
		Config:    cfg,
		Activity:  env.Activity,
		Verifier:  verifier,
		Biometric: env.Biometric(),
		Audit:     env.Audit,
		Logger:    env.Logger,
	})
	program := tea.NewProgram(model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithReportFocus(),
	)
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("lock screen: %w", err)
	}
	env.Logger.Info("lock screen closed", "unlocks", model.Unlocks())
	return nil
}
