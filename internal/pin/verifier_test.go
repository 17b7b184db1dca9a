// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pin

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashVerifier_RoundTrip(t *testing.T) {
	encoded, err := hashPIN("4821", 1000, bytes.NewReader(bytes.Repeat([]byte{7}, saltSize)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "pbkdf2$1000$"))

	v, err := NewHashVerifier(encoded)
	require.NoError(t, err)

	ok, err := v.Verify(context.Background(), "4821")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Verify(context.Background(), "1234")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPIN_Salted(t *testing.T) {
	a, err := HashPIN("0000")
	require.NoError(t, err)
	b, err := HashPIN("0000")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestNewHashVerifier_Errors(t *testing.T) {
	_, err := NewHashVerifier("  ")
	assert.ErrorIs(t, err, ErrNoCredential)

	for _, bad := range []string{
		"1234",
		"bcrypt$10$abc$def",
		"pbkdf2$zero$abc$def",
		"pbkdf2$1000$!!!$def",
		"pbkdf2$1000$YWJj$",
	} {
		_, err := NewHashVerifier(bad)
		assert.ErrorIs(t, err, ErrMalformedHash, bad)
	}
}

func TestHashVerifier_CanceledContext(t *testing.T) {
	encoded, err := hashPIN("1111", 10, bytes.NewReader(make([]byte, saltSize)))
	require.NoError(t, err)
	v, err := NewHashVerifier(encoded)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = v.Verify(ctx, "1111")
	assert.True(t, errors.Is(err, context.Canceled))
}
