// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pin implements fixed-length PIN entry: digit accumulation,
// submission to an injected Verifier, and the consecutive failure count.
//
// Lockout policy is not enforced here. The orchestrator reads
// FailureCount and decides when to stop forwarding input.
package pin

import (
	"context"
	"strings"
)

// Phase is the entry progress.
type Phase int

const (
	Empty Phase = iota
	Partial
	Ready
)

func (p Phase) String() string {
	switch p {
	case Empty:
		return "empty"
	case Partial:
		return "partial"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Result is the outcome of Submit.
type Result int

const (
	// Ignored means Submit was called before the PIN was complete.
	Ignored Result = iota
	Accepted
	Rejected
	// VerifierError means the verifier could not answer. Digits are
	// cleared but the attempt is not counted.
	VerifierError
)

func (r Result) String() string {
	switch r {
	case Ignored:
		return "ignored"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	case VerifierError:
		return "verifier-error"
	default:
		return "unknown"
	}
}

// Entry accumulates up to Length digits. Not safe for concurrent use.
type Entry struct {
	length   int
	verifier Verifier
	digits   []byte
	failures int
	lastErr  error
}

// NewEntry returns an empty Entry for PINs of the given length.
func NewEntry(length int, verifier Verifier) *Entry {
	if length <= 0 {
		length = 4
	}
	return &Entry{
		length:   length,
		verifier: verifier,
		digits:   make([]byte, 0, length),
	}
}

// AppendDigit adds d. Returns false (and changes nothing) when d is not a
// single decimal digit or the entry is already full.
func (e *Entry) AppendDigit(d int) bool {
	if d < 0 || d > 9 || len(e.digits) >= e.length {
		return false
	}
	e.digits = append(e.digits, byte('0'+d))
	return true
}

// Backspace removes the last digit. Returns false when empty.
func (e *Entry) Backspace() bool {
	if len(e.digits) == 0 {
		return false
	}
	e.digits = e.digits[:len(e.digits)-1]
	return true
}

// Submit verifies a complete PIN. Below full length it returns Ignored
// without touching any state.
func (e *Entry) Submit(ctx context.Context) Result {
	if len(e.digits) < e.length {
		return Ignored
	}
	candidate := string(e.digits)
	e.clearDigits()

	if e.verifier == nil {
		e.lastErr = ErrNoCredential
		return VerifierError
	}
	ok, err := e.verifier.Verify(ctx, candidate)
	if err != nil {
		e.lastErr = err
		return VerifierError
	}
	e.lastErr = nil
	if ok {
		e.failures = 0
		return Accepted
	}
	e.failures++
	return Rejected
}

// Reset clears the digits. The failure count is kept.
func (e *Entry) Reset() {
	e.clearDigits()
}

func (e *Entry) clearDigits() {
	for i := range e.digits {
		e.digits[i] = 0
	}
	e.digits = e.digits[:0]
}

// Len returns the number of digits entered.
func (e *Entry) Len() int { return len(e.digits) }

// Length returns the configured PIN length.
func (e *Entry) Length() int { return e.length }

// FailureCount returns the consecutive rejected submissions since the last
// acceptance.
func (e *Entry) FailureCount() int { return e.failures }

// LastError returns the verifier error behind the most recent
// VerifierError result.
func (e *Entry) LastError() error { return e.lastErr }

// Phase returns the entry progress.
func (e *Entry) Phase() Phase {
	switch n := len(e.digits); {
	case n == 0:
		return Empty
	case n < e.length:
		return Partial
	default:
		return Ready
	}
}

// Masked returns one mask rune per entered digit.
func (e *Entry) Masked(mask rune) string {
	return strings.Repeat(string(mask), len(e.digits))
}
