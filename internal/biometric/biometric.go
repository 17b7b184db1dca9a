// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package biometric delegates unlock to a platform authenticator.
//
// The gate sees a Delegate as a capability probe plus one asynchronous
// ceremony with three outcomes. Biometric failures never count toward the
// PIN failure tally.
package biometric

//go:generate mockgen -destination=biometrictest/mock_delegate.go -package=biometrictest github.com/dalepay/applock/internal/biometric Delegate

import (
	"context"
	"errors"
	"time"
)

// Outcome is the observable result of one ceremony.
type Outcome int

const (
	Success Outcome = iota + 1
	Failure
	// Error is a platform-level fault. The gate treats it as Failure.
	Error
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

var (
	// ErrUnavailable is returned when no platform authenticator is present.
	ErrUnavailable = errors.New("biometric authenticator unavailable")

	// ErrDeclined is returned by an Authenticator when the user dismissed
	// the prompt or was not recognized.
	ErrDeclined = errors.New("biometric verification declined")
)

// Delegate is the gate's view of the platform authenticator.
type Delegate interface {
	// Available is a side-effect-free capability probe.
	Available() bool

	// Authenticate runs one ceremony. The error carries detail for logs;
	// the Outcome is authoritative.
	Authenticate(ctx context.Context) (Outcome, error)
}

// Unavailable is a Delegate for hosts without an authenticator.
type Unavailable struct{}

func (Unavailable) Available() bool { return false }

func (Unavailable) Authenticate(context.Context) (Outcome, error) {
	return Error, ErrUnavailable
}

// =============================================================================
// TIMEOUT
// =============================================================================

type timeoutDelegate struct {
	Delegate
	timeout time.Duration
}

// WithTimeout bounds every ceremony of d to timeout. A ceremony that runs
// out of time reports Error.
func WithTimeout(d Delegate, timeout time.Duration) Delegate {
	if timeout <= 0 {
		return d
	}
	return &timeoutDelegate{Delegate: d, timeout: timeout}
}

func (t *timeoutDelegate) Authenticate(ctx context.Context) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type result struct {
		outcome Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := t.Delegate.Authenticate(ctx)
		done <- result{outcome, err}
	}()

	select {
	case r := <-done:
		if r.outcome == Success && ctx.Err() != nil {
			return Error, ctx.Err()
		}
		return r.outcome, r.err
	case <-ctx.Done():
		return Error, ctx.Err()
	}
}
