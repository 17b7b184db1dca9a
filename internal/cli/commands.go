// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// commands.go - set-pin, status and touch.

package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dalepay/applock/internal/audit"
	"github.com/dalepay/applock/internal/config"
	"github.com/dalepay/applock/internal/pin"
)

// withEnv loads config, bootstraps, runs fn and closes everything.
func withEnv(args Args, fn func(ctx context.Context, env *Env) error) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}
	ctx := context.Background()
	env, err := Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(ctx, env)
}

// =============================================================================
// SET-PIN
// =============================================================================

// HandleSetPIN asks for a new PIN twice and stores its hash in the config
// file. Without a terminal the PIN is read from one line of in.
func HandleSetPIN(args Args, in io.Reader, out io.Writer) error {
	read := func() (string, error) {
		if IsTTY() {
			return readNewPIN(readSecret)
		}
		return readLine(in)
	}
	return setPIN(args, read, out)
}

func setPIN(args Args, read func() (string, error), out io.Writer) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}
	path := args.ConfigPath
	if path == "" {
		if path, err = config.ConfigPathTOML(); err != nil {
			return err
		}
	}
	if strings.HasSuffix(path, ".json") {
		return fmt.Errorf("set-pin writes TOML configs only, got %s", path)
	}

	code, err := read()
	if err != nil {
		return err
	}
	if !isPIN(code, cfg.Gate.PINLength) {
		return fmt.Errorf("PIN must be exactly %d digits", cfg.Gate.PINLength)
	}

	hash, err := pin.HashPIN(code)
	if err != nil {
		return err
	}
	cfg.Credential.PINHash = hash
	if err := config.SaveTOML(cfg, path); err != nil {
		return err
	}

	if cfg.Log.AuditPath != "" {
		if auditLog, err := audit.Open(cfg.Log.AuditPath); err == nil {
			_ = auditLog.LogEvent(audit.NewSessionID(), audit.EventPINChanged, true, map[string]string{"config": path})
			auditLog.Close()
		}
	}
	fmt.Fprintf(out, "PIN saved to %s\n", path)
	return nil
}

func readNewPIN(read func(prompt string) (string, error)) (string, error) {
	first, err := read("New PIN: ")
	if err != nil {
		return "", err
	}
	second, err := read("Confirm PIN: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("PINs do not match")
	}
	return strings.TrimSpace(first), nil
}

func readLine(in io.Reader) (string, error) {
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read PIN: %w", err)
		}
		return "", fmt.Errorf("no PIN on standard input")
	}
	return strings.TrimSpace(scanner.Text()), nil
}

// =============================================================================
// STATUS
// =============================================================================

// HandleStatus prints the last activity and whether a mount right now
// would skip the lock screen.
func HandleStatus(args Args, out io.Writer) error {
	return withEnv(args, func(ctx context.Context, env *Env) error {
		cfg := env.Config
		threshold := cfg.Gate.FreshnessThreshold()

		fmt.Fprintln(out, "applock status")
		fmt.Fprintf(out, "  storage:      %s %s\n", cfg.Storage.Backend, cfg.Storage.Path)
		fmt.Fprintf(out, "  key:          %s\n", cfg.Storage.NamespaceKey)

		last, ok := env.Activity.LastActive(ctx)
		if !ok {
			fmt.Fprintln(out, "  last active:  never")
		} else {
			idle := time.Since(last).Truncate(time.Second)
			fmt.Fprintf(out, "  last active:  %s (%s ago)\n", last.Local().Format(time.RFC3339), idle)
		}
		if env.Activity.IsFresh(ctx, threshold) {
			fmt.Fprintln(out, "  lock screen:  skipped (fresh)")
		} else {
			fmt.Fprintln(out, "  lock screen:  required")
		}

		fmt.Fprintf(out, "  policy:       %d-digit PIN, %d attempts, %s lockout, %s freshness\n",
			cfg.Gate.PINLength, cfg.Gate.MaxAttempts, cfg.Gate.LockoutDuration(), threshold)
		fmt.Fprintf(out, "  pin:          %s\n", configured(cfg.Credential.PINHash != ""))
		fmt.Fprintf(out, "  biometric:    %s\n", configured(env.Biometric().Available()))
		return nil
	})
}

func configured(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

// =============================================================================
// TOUCH
// =============================================================================

// HandleTouch records activity now, as a foreground interaction would.
func HandleTouch(args Args, out io.Writer) error {
	return withEnv(args, func(ctx context.Context, env *Env) error {
		env.Activity.RecordActivity(ctx)
		last, ok := env.Activity.LastActive(ctx)
		if !ok {
			return fmt.Errorf("activity was not persisted to %s", env.Config.Storage.Backend)
		}
		fmt.Fprintf(out, "activity recorded at %s\n", last.Local().Format(time.RFC3339))
		return nil
	})
}
