// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package biometric

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"

	"github.com/dalepay/applock/internal/config"
	"github.com/dalepay/applock/internal/util"
)

// Authenticator is the platform seam: it receives the JSON credential
// request options and returns the JSON assertion response, exactly as a
// browser's navigator.credentials.get would.
type Authenticator interface {
	Available() bool
	Assert(ctx context.Context, optionsJSON []byte) ([]byte, error)
}

// Owner is the account holder whose platform credentials unlock the app.
type Owner struct {
	ID          []byte
	Name        string
	DisplayName string
	Credentials []webauthn.Credential
}

func (o *Owner) WebAuthnID() []byte                         { return o.ID }
func (o *Owner) WebAuthnName() string                       { return o.Name }
func (o *Owner) WebAuthnDisplayName() string                { return o.DisplayName }
func (o *Owner) WebAuthnIcon() string                       { return "" }
func (o *Owner) WebAuthnCredentials() []webauthn.Credential { return o.Credentials }

// WebAuthnDelegate runs a WebAuthn assertion ceremony against the owner's
// registered credentials.
type WebAuthnDelegate struct {
	mu       sync.Mutex
	wa       *webauthn.WebAuthn
	owner    *Owner
	auth     Authenticator
	logger   *slog.Logger
	onUpdate func(webauthn.Credential)
}

// WebAuthnOption configures a WebAuthnDelegate.
type WebAuthnOption func(*WebAuthnDelegate)

// WithWebAuthnLogger sets the diagnostic logger.
func WithWebAuthnLogger(l *slog.Logger) WebAuthnOption {
	return func(d *WebAuthnDelegate) { d.logger = l }
}

// WithCredentialUpdate is called with the credential after each successful
// ceremony so callers can persist the new sign count.
func WithCredentialUpdate(fn func(webauthn.Credential)) WebAuthnOption {
	return func(d *WebAuthnDelegate) { d.onUpdate = fn }
}

// NewWebAuthnDelegate builds a relying party from cfg.
func NewWebAuthnDelegate(cfg config.BiometricConfig, owner *Owner, auth Authenticator, opts ...WebAuthnOption) (*WebAuthnDelegate, error) {
	if owner == nil {
		return nil, errors.New("biometric owner is required")
	}
	if auth == nil {
		return nil, errors.New("biometric authenticator is required")
	}
	wa, err := webauthn.New(&webauthn.Config{
		RPDisplayName: cfg.RPDisplayName,
		RPID:          cfg.RPID,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("configure webauthn: %w", err)
	}
	d := &WebAuthnDelegate{
		wa:     wa,
		owner:  owner,
		auth:   auth,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Available reports whether the platform authenticator is present and the
// owner has at least one registered credential.
func (d *WebAuthnDelegate) Available() bool {
	d.mu.Lock()
	registered := len(d.owner.Credentials) > 0
	d.mu.Unlock()
	return registered && d.auth.Available()
}

// Authenticate runs BeginLogin, hands the options to the authenticator and
// validates the returned assertion.
func (d *WebAuthnDelegate) Authenticate(ctx context.Context) (Outcome, error) {
	if !d.Available() {
		return Error, ErrUnavailable
	}

	d.mu.Lock()
	assertion, session, err := d.wa.BeginLogin(d.owner)
	d.mu.Unlock()
	if err != nil {
		return Error, fmt.Errorf("begin login: %w", err)
	}
	optionsJSON, err := json.Marshal(assertion)
	if err != nil {
		return Error, fmt.Errorf("encode login options: %w", err)
	}

	response, err := d.auth.Assert(ctx, optionsJSON)
	switch {
	case ctx.Err() != nil:
		return Error, ctx.Err()
	case errors.Is(err, ErrDeclined):
		return Failure, err
	case err != nil:
		return Error, fmt.Errorf("platform assertion: %w", err)
	}

	parsed, err := protocol.ParseCredentialRequestResponseBytes(response)
	if err != nil {
		return Failure, fmt.Errorf("parse assertion: %w", err)
	}

	d.mu.Lock()
	credential, err := d.wa.ValidateLogin(d.owner, *session, parsed)
	if err == nil {
		d.replaceCredentialLocked(*credential)
	}
	d.mu.Unlock()
	if err != nil {
		return Failure, fmt.Errorf("validate assertion: %w", err)
	}

	if d.onUpdate != nil {
		d.onUpdate(*credential)
	}
	d.logger.Debug("biometric assertion validated", "sign_count", credential.Authenticator.SignCount)
	return Success, nil
}

func (d *WebAuthnDelegate) replaceCredentialLocked(updated webauthn.Credential) {
	for i := range d.owner.Credentials {
		if string(d.owner.Credentials[i].ID) == string(updated.ID) {
			d.owner.Credentials[i] = updated
			return
		}
	}
}

// =============================================================================
// CREDENTIAL FILE
// =============================================================================

// LoadCredentials reads registered credentials from a JSON file. A missing
// file yields no credentials.
func LoadCredentials(path string) ([]webauthn.Credential, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var credentials []webauthn.Credential
	if err := json.Unmarshal(data, &credentials); err != nil {
		return nil, fmt.Errorf("decode credentials %s: %w", path, err)
	}
	return credentials, nil
}

// SaveCredentials writes credentials atomically.
func SaveCredentials(path string, credentials []webauthn.Credential) error {
	return util.AtomicWriteJSON(path, credentials, 0600)
}
