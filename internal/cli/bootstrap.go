// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/dalepay/applock/internal/activity"
	"github.com/dalepay/applock/internal/audit"
	"github.com/dalepay/applock/internal/biometric"
	"github.com/dalepay/applock/internal/config"
	"github.com/dalepay/applock/internal/logging"
	"github.com/dalepay/applock/internal/pin"
	"github.com/dalepay/applock/internal/storage"
)

// ErrNoPIN is returned when a gate is requested before set-pin has run.
var ErrNoPIN = errors.New("no PIN configured; run `applock set-pin` first")

// Env is everything a command needs, opened from one Config.
type Env struct {
	Config   *config.Config
	Logger   *slog.Logger
	Audit    *audit.Logger
	Store    storage.Store
	Activity *activity.Clock

	closers []io.Closer
}

// LoadConfig reads the config file named by args (or the default
// location) and applies flag overrides.
func LoadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if args.Language != "" {
		cfg.UI.Language = args.Language
	}
	if args.Theme != "" {
		cfg.UI.Theme = args.Theme
	}
	if args.LogLevel != "" {
		cfg.Log.Level = args.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Bootstrap opens logging, the audit trail and the activity store.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Env, error) {
	env := &Env{Config: cfg}

	logger, closer, err := logging.Open(cfg.Log)
	if err != nil {
		return nil, err
	}
	env.Logger = logger
	env.closers = append(env.closers, closer)

	env.Audit = audit.Discard()
	if cfg.Log.AuditPath != "" {
		auditLog, err := audit.Open(cfg.Log.AuditPath)
		if err != nil {
			env.Close()
			return nil, err
		}
		env.Audit = auditLog
		env.closers = append(env.closers, auditLog)
	}

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Store = store
	env.closers = append(env.closers, store)

	env.Activity = activity.New(store, cfg.Storage.NamespaceKey,
		activity.WithLogger(logger),
		activity.WithMoveThrottle(cfg.Storage.WriteInterval()),
	)
	logger.Debug("environment ready", "backend", cfg.Storage.Backend, "path", cfg.Storage.Path)
	return env, nil
}

// Verifier returns the configured PIN verifier.
func (e *Env) Verifier() (pin.Verifier, error) {
	if e.Config.Credential.PINHash == "" {
		return nil, ErrNoPIN
	}
	v, err := pin.NewHashVerifier(e.Config.Credential.PINHash)
	if err != nil {
		return nil, fmt.Errorf("credential.pin_hash: %w", err)
	}
	return v, nil
}

// Biometric builds the platform delegate. Any missing piece (disabled,
// no helper command, no registered credential) yields an unavailable
// delegate so the gate falls back to PIN only.
func (e *Env) Biometric() biometric.Delegate {
	cfg := e.Config.Biometric
	if !cfg.Enabled {
		return biometric.Unavailable{}
	}
	auth := biometric.NewCommandAuthenticator(cfg.Authenticator)
	if auth == nil {
		e.Logger.Warn("biometric enabled without an authenticator command")
		return biometric.Unavailable{}
	}
	credentials, err := biometric.LoadCredentials(cfg.CredentialsPath)
	if err != nil {
		e.Logger.Warn("biometric credentials unreadable", "error", err)
		return biometric.Unavailable{}
	}

	owner := &biometric.Owner{
		ID:          []byte(cfg.UserName),
		Name:        cfg.UserName,
		DisplayName: cfg.UserName,
		Credentials: credentials,
	}
	store := &credentialStore{
		path:        cfg.CredentialsPath,
		credentials: append([]webauthn.Credential(nil), credentials...),
		logger:      e.Logger,
	}
	delegate, err := biometric.NewWebAuthnDelegate(cfg, owner, auth,
		biometric.WithWebAuthnLogger(e.Logger),
		biometric.WithCredentialUpdate(store.update),
	)
	if err != nil {
		e.Logger.Warn("biometric disabled", "error", err)
		return biometric.Unavailable{}
	}
	return biometric.WithTimeout(delegate, e.Config.Gate.BiometricTimeout())
}

// Close releases everything Bootstrap opened, last opened first.
func (e *Env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	return errors.Join(errs...)
}

// credentialStore persists sign counts after each ceremony.
type credentialStore struct {
	mu          sync.Mutex
	path        string
	credentials []webauthn.Credential
	logger      *slog.Logger
}

func (s *credentialStore) update(updated webauthn.Credential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.credentials {
		if string(s.credentials[i].ID) == string(updated.ID) {
			s.credentials[i] = updated
		}
	}
	if err := biometric.SaveCredentials(s.path, s.credentials); err != nil {
		s.logger.Warn("could not persist credential sign count", "error", err)
	}
}
