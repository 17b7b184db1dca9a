// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// prompt.go - Line-mode lock prompt for terminals without the full TUI.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"

	"github.com/dalepay/applock/internal/gate"
	"github.com/dalepay/applock/internal/i18n"
	"github.com/dalepay/applock/internal/ui/styles"
)

// ErrAborted is returned when the user leaves the prompt while locked.
var ErrAborted = errors.New("unlock aborted")

// lineReader reads one line of user input.
type lineReader interface {
	ReadLine(prompt string) (string, error)
}

type linerReader struct {
	state  *liner.State
	secret bool
}

func (r *linerReader) ReadLine(prompt string) (string, error) {
	if r.secret {
		return r.state.PasswordPrompt(prompt)
	}
	return r.state.Prompt(prompt)
}

// HandlePrompt runs the gate as a line-mode prompt. It returns nil once
// the application is unlocked.
func HandlePrompt(args Args) error {
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

	g := gate.New(cfg.Gate, env.Activity, verifier,
		gate.WithBiometric(env.Biometric()),
		gate.WithAuditLogger(env.Audit),
		gate.WithLogger(env.Logger),
		gate.WithOnUnlock(func() { env.Logger.Info("application unlocked") }),
		gate.WithOnForgotPIN(func() { env.Logger.Info("recovery requested") }),
	)

	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	defer line.Close()

	tr := i18n.New(cfg.UI.Language)
	p := &promptLoop{
		session:  gate.NewSession(g),
		in:       &linerReader{state: line, secret: IsTTY()},
		out:      os.Stdout,
		tr:       tr,
		tipStyle: styles.NewTheme(cfg.UI.Theme).GlamourStyle(),
		live:     IsStdoutTTY(),
	}
	if err := p.run(ctx); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, tr.T(i18n.KeyHomeTitle))
	return nil
}

// promptLoop drives a gate.Session from line input.
type promptLoop struct {
	session  *gate.Session
	in       lineReader
	out      io.Writer
	tr       *i18n.Translator
	tipStyle string
	live     bool
}

// run owns the session until it unlocks, ctx ends, or input ends.
func (p *promptLoop) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- p.session.Run(ctx) }()

	err := p.loop()
	cancel()
	runErr := <-errc
	if err != nil {
		return err
	}
	return runErr
}

func (p *promptLoop) loop() error {
	for titled := false; ; titled = true {
		if err := p.session.Flush(); err != nil {
			return nil
		}
		if !titled {
			fmt.Fprintln(p.out, p.tr.T(i18n.KeyTitle))
		}
		snap := p.session.Snapshot()
		if snap.State == gate.LockedOut {
			p.waitLockout(snap)
			continue
		}

		line, err := p.in.ReadLine(p.tr.T(i18n.KeyPrompt) + ": ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return ErrAborted
			}
			return err
		}
		if err := p.handle(strings.TrimSpace(line), snap); err != nil {
			if errors.Is(err, gate.ErrSessionClosed) {
				return nil
			}
			return err
		}
	}
}

func (p *promptLoop) handle(input string, snap gate.Snapshot) error {
	switch strings.ToLower(input) {
	case "":
		return nil
	case "?", "forgot":
		if err := p.session.ForgotPIN(); err != nil {
			return err
		}
		fmt.Fprintln(p.out, p.tr.T(i18n.KeyRecovery))
		return nil
	case "b", "bio":
		if !snap.BiometricAvailable {
			return nil
		}
		return p.biometric()
	}

	if !isPIN(input, snap.PINLength) {
		fmt.Fprintln(p.out, p.tr.T(i18n.KeyPINLength, snap.PINLength))
		return nil
	}
	for range snap.Entered {
		if err := p.session.Backspace(); err != nil {
			return err
		}
	}
	for _, r := range input {
		if err := p.session.Digit(int(r - '0')); err != nil {
			return err
		}
	}
	if err := p.session.Submit(); err != nil {
		return err
	}
	if err := p.session.Flush(); err != nil {
		return err
	}

	after := p.session.Snapshot()
	switch after.LastEvent {
	case gate.EventWrongPIN:
		fmt.Fprintln(p.out, p.tr.T(i18n.KeyWrongPIN, after.AttemptsRemaining))
	case gate.EventVerifierError:
		fmt.Fprintln(p.out, p.tr.T(i18n.KeyVerifierError))
	}
	return nil
}

func (p *promptLoop) biometric() error {
	if err := p.session.Biometric(); err != nil {
		return err
	}
	fmt.Fprintln(p.out, p.tr.T(i18n.KeyBiometricPending))
	if err := p.session.Flush(); err != nil {
		return err
	}
	for snap := p.session.Snapshot(); snap.BiometricPending; {
		select {
		case snap = <-p.session.Updates():
		case <-p.session.Done():
			return gate.ErrSessionClosed
		}
	}
	if p.session.Snapshot().LastEvent == gate.EventBiometricFailed {
		fmt.Fprintln(p.out, p.tr.T(i18n.KeyBiometricFailed))
	}
	return nil
}

// waitLockout shows the countdown until the lockout expires or the
// session ends.
func (p *promptLoop) waitLockout(snap gate.Snapshot) {
	if snap.ShowSecurityTip {
		p.printTip()
	}
	fmt.Fprintln(p.out, p.tr.T(i18n.KeyLockedOutDetail))

	last := -1
	for snap.State == gate.LockedOut {
		if snap.RemainingSeconds != last {
			last = snap.RemainingSeconds
			p.status(p.tr.T(i18n.KeyLockedOut, last))
		}
		select {
		case snap = <-p.session.Updates():
		case <-p.session.Done():
			return
		}
	}
	if p.live {
		fmt.Fprintln(p.out)
	}
	fmt.Fprintln(p.out, p.tr.T(i18n.KeyLockExpired))
}

func (p *promptLoop) status(msg string) {
	if p.live {
		fmt.Fprintf(p.out, "\r\033[K%s", msg)
		return
	}
	fmt.Fprintln(p.out, msg)
}

func (p *promptLoop) printTip() {
	tip := p.tr.T(i18n.KeySecurityTip)
	if rendered, err := glamour.Render(tip, p.tipStyle); err == nil {
		tip = rendered
	}
	fmt.Fprintln(p.out, strings.TrimRight(tip, "\n"))
}

func isPIN(input string, length int) bool {
	if len(input) != length {
		return false
	}
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
