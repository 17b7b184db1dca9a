// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pin

//go:generate mockgen -destination=pintest/mock_verifier.go -package=pintest github.com/dalepay/applock/internal/pin Verifier

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// =============================================================================
// VERIFIER
// =============================================================================

// Verifier checks a complete PIN against the canonical credential. The
// credential itself never lives in this package.
type Verifier interface {
	Verify(ctx context.Context, pin string) (bool, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, pin string) (bool, error)

func (f VerifierFunc) Verify(ctx context.Context, pin string) (bool, error) {
	return f(ctx, pin)
}

// =============================================================================
// PBKDF2 HASH VERIFIER
// =============================================================================

const (
	// HashIterations is the PBKDF2 work factor for new hashes.
	HashIterations = 210000
	saltSize       = 16
	keySize        = 32
	hashScheme     = "pbkdf2"
)

var (
	// ErrNoCredential is returned when no PIN hash has been configured.
	ErrNoCredential = errors.New("no PIN credential configured")

	// ErrMalformedHash is returned for hashes not produced by HashPIN.
	ErrMalformedHash = errors.New("malformed PIN hash")
)

// HashPIN returns an encoded salted PBKDF2-SHA256 hash of pin in the form
// pbkdf2$<iterations>$<salt>$<key>.
func HashPIN(pin string) (string, error) {
	return hashPIN(pin, HashIterations, rand.Reader)
}

func hashPIN(pin string, iterations int, random io.Reader) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(random, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(pin), salt, iterations, keySize, sha256.New)
	enc := base64.RawStdEncoding
	return strings.Join([]string{
		hashScheme,
		strconv.Itoa(iterations),
		enc.EncodeToString(salt),
		enc.EncodeToString(key),
	}, "$"), nil
}

// HashVerifier verifies PINs against an encoded hash.
type HashVerifier struct {
	iterations int
	salt       []byte
	key        []byte
}

// NewHashVerifier parses an encoded hash. An empty hash yields
// ErrNoCredential.
func NewHashVerifier(encoded string) (*HashVerifier, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrNoCredential
	}
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 || parts[0] != hashScheme {
		return nil, ErrMalformedHash
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return nil, fmt.Errorf("%w: bad iteration count", ErrMalformedHash)
	}
	enc := base64.RawStdEncoding
	salt, err := enc.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: bad salt: %w", ErrMalformedHash, err)
	}
	key, err := enc.DecodeString(parts[3])
	if err != nil || len(key) == 0 {
		return nil, fmt.Errorf("%w: bad key", ErrMalformedHash)
	}
	return &HashVerifier{iterations: iterations, salt: salt, key: key}, nil
}

// Verify derives a key from pin and compares it in constant time.
func (v *HashVerifier) Verify(ctx context.Context, pin string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	derived := pbkdf2.Key([]byte(pin), v.salt, v.iterations, len(v.key), sha256.New)
	return subtle.ConstantTimeCompare(derived, v.key) == 1, nil
}
