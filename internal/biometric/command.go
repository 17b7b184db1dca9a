// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package biometric

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ExitDeclined is the helper exit status for a dismissed or unrecognized
// user. Any other non-zero status is a platform fault.
const ExitDeclined = 2

// CommandAuthenticator runs an external platform helper for each
// assertion. The helper receives the request options on stdin and prints
// the assertion response on stdout.
type CommandAuthenticator struct {
	name string
	args []string
}

// NewCommandAuthenticator parses a helper command line such as
// "dalepay-touchid --json". An empty line yields nil.
func NewCommandAuthenticator(commandLine string) *CommandAuthenticator {
	fields := strings.Fields(commandLine)
	if len(fields) == 0 {
		return nil
	}
	return &CommandAuthenticator{name: fields[0], args: fields[1:]}
}

// Available reports whether the helper resolves on PATH.
func (c *CommandAuthenticator) Available() bool {
	if c == nil {
		return false
	}
	_, err := exec.LookPath(c.name)
	return err == nil
}

// Assert runs the helper once. Canceling ctx kills it.
func (c *CommandAuthenticator) Assert(ctx context.Context, optionsJSON []byte) ([]byte, error) {
	if c == nil {
		return nil, ErrUnavailable
	}
	cmd := exec.CommandContext(ctx, c.name, c.args...)
	cmd.Stdin = bytes.NewReader(optionsJSON)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == ExitDeclined {
			return nil, ErrDeclined
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", c.name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	return stdout.Bytes(), nil
}
