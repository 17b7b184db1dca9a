// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package audit records gate security events as JSON lines.
//
// The audit trail is best effort: a failed write is counted and reported
// through the diagnostic logger, but it never blocks the gate. Locking the
// user out of their own wallet because a log file filled up would turn an
// observability fault into an outage.
package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

const (
	EventGateMount        = "GATE_MOUNT"
	EventGateBypassFresh  = "GATE_BYPASS_FRESH"
	EventGateUnmount      = "GATE_UNMOUNT"
	EventPINAccepted      = "PIN_ACCEPTED"
	EventPINRejected      = "PIN_REJECTED"
	EventPINVerifierError = "PIN_VERIFIER_ERROR"
	EventLockoutArmed     = "LOCKOUT_ARMED"
	EventLockoutExpired   = "LOCKOUT_EXPIRED"
	EventBiometricSuccess = "BIOMETRIC_SUCCESS"
	EventBiometricFailure = "BIOMETRIC_FAILURE"
	EventBiometricError   = "BIOMETRIC_ERROR"
	EventBiometricStale   = "BIOMETRIC_STALE"
	EventForgotPIN        = "FORGOT_PIN"
	EventPINChanged       = "PIN_CHANGED"
)

// Event is a single audit log entry. Entered digits are never recorded.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	SessionID string            `json:"session_id"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// NewSessionID returns an identifier for one gate mount.
func NewSessionID() string {
	return uuid.NewString()
}

// =============================================================================
// LOGGER
// =============================================================================

// Logger appends events to a writer. Safe for concurrent use. A nil *Logger
// discards everything, so callers never need a nil check.
type Logger struct {
	mu       sync.Mutex
	w        io.Writer
	closer   io.Closer
	path     string
	failures int
	lastErr  error
	now      func() time.Time
}

// New returns a Logger writing to w.
func New(w io.Writer) *Logger {
	return &Logger{w: w, now: time.Now}
}

// Open returns a Logger appending to the file at path, creating parent
// directories as needed.
func Open(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	return &Logger{w: f, closer: f, path: path, now: time.Now}, nil
}

// Discard returns a Logger that drops every event.
func Discard() *Logger {
	return New(io.Discard)
}

// Log writes event. Missing timestamps are filled in. Errors are recorded
// and returned for callers that care; the gate ignores them.
func (l *Logger) Log(event Event) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return l.failLocked(fmt.Errorf("failed to encode audit event: %w", err))
	}
	data = append(data, '\n')
	if _, err := l.w.Write(data); err != nil {
		return l.failLocked(fmt.Errorf("failed to write audit log: %w", err))
	}
	return nil
}

// LogEvent is shorthand for a successful event with metadata.
func (l *Logger) LogEvent(sessionID, eventType string, success bool, metadata map[string]string) error {
	return l.Log(Event{
		EventType: eventType,
		SessionID: sessionID,
		Success:   success,
		Metadata:  metadata,
	})
}

func (l *Logger) failLocked(err error) error {
	l.failures++
	l.lastErr = err
	return err
}

// Failures returns how many events could not be written.
func (l *Logger) Failures() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures
}

// LastError returns the most recent write error, if any.
func (l *Logger) LastError() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastErr
}

// Path returns the backing file path, or "" for writer-backed loggers.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close closes the backing file, if any.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closer.Close()
}
