// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package pin_test

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dalepay/applock/internal/pin"
	"github.com/dalepay/applock/internal/pin/pintest"
)

func staticVerifier(correct string) pin.Verifier {
	return pin.VerifierFunc(func(_ context.Context, candidate string) (bool, error) {
		return candidate == correct, nil
	})
}

func enter(e *pin.Entry, digits ...int) {
	for _, d := range digits {
		e.AppendDigit(d)
	}
}

// ===== DIGIT ACCUMULATION =====

func TestEntry_Phases(t *testing.T) {
	e := pin.NewEntry(4, staticVerifier("0000"))
	assert.Equal(t, pin.Empty, e.Phase())

	enter(e, 1, 2)
	assert.Equal(t, pin.Partial, e.Phase())

	enter(e, 3, 4)
	assert.Equal(t, pin.Ready, e.Phase())
	assert.Equal(t, "****", e.Masked('*'))
}

func TestEntry_AppendCapsSilently(t *testing.T) {
	e := pin.NewEntry(4, staticVerifier("1234"))
	enter(e, 1, 2, 3, 4)

	assert.False(t, e.AppendDigit(5))
	assert.Equal(t, 4, e.Len())
	assert.Equal(t, pin.Accepted, e.Submit(context.Background()), "overflow digit must not be kept")
}

func TestEntry_RejectsNonDigits(t *testing.T) {
	e := pin.NewEntry(4, nil)
	assert.False(t, e.AppendDigit(-1))
	assert.False(t, e.AppendDigit(10))
	assert.Equal(t, 0, e.Len())
}

func TestEntry_Backspace(t *testing.T) {
	e := pin.NewEntry(4, nil)
	assert.False(t, e.Backspace(), "no-op at empty")

	enter(e, 7, 8)
	assert.True(t, e.Backspace())
	assert.Equal(t, 1, e.Len())
}

// ===== SUBMISSION =====

func TestEntry_SubmitBeforeFullIsIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := pintest.NewMockVerifier(ctrl)
	verifier.EXPECT().Verify(gomock.Any(), gomock.Any()).Times(0)

	e := pin.NewEntry(4, verifier)
	for n := 0; n < 4; n++ {
		assert.Equal(t, pin.Ignored, e.Submit(context.Background()))
		assert.Equal(t, n, e.Len(), "digits untouched")
		assert.Equal(t, 0, e.FailureCount())
		e.AppendDigit(n)
	}
}

func TestEntry_RejectThenAccept(t *testing.T) {
	ctx := context.Background()
	e := pin.NewEntry(4, staticVerifier("2468"))

	for i := 1; i <= 3; i++ {
		enter(e, 1, 2, 3, 4)
		require.Equal(t, pin.Rejected, e.Submit(ctx))
		assert.Equal(t, i, e.FailureCount())
		assert.Equal(t, pin.Empty, e.Phase())
	}

	enter(e, 2, 4, 6, 8)
	assert.Equal(t, pin.Accepted, e.Submit(ctx))
	assert.Equal(t, 0, e.FailureCount())
	assert.Equal(t, pin.Empty, e.Phase())
}

func TestEntry_VerifierErrorDoesNotCount(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := pintest.NewMockVerifier(ctrl)
	boom := errors.New("keystore locked")
	verifier.EXPECT().Verify(gomock.Any(), "1111").Return(false, boom)

	e := pin.NewEntry(4, verifier)
	enter(e, 1, 1, 1, 1)

	assert.Equal(t, pin.VerifierError, e.Submit(context.Background()))
	assert.Equal(t, 0, e.FailureCount())
	assert.Equal(t, pin.Empty, e.Phase())
	assert.ErrorIs(t, e.LastError(), boom)
}

func TestEntry_NilVerifierFailsClosed(t *testing.T) {
	e := pin.NewEntry(4, nil)
	enter(e, 1, 2, 3, 4)
	assert.Equal(t, pin.VerifierError, e.Submit(context.Background()))
	assert.ErrorIs(t, e.LastError(), pin.ErrNoCredential)
}

func TestEntry_ResetKeepsFailures(t *testing.T) {
	e := pin.NewEntry(4, staticVerifier("9999"))
	enter(e, 1, 2, 3, 4)
	e.Submit(context.Background())
	enter(e, 5, 5)

	e.Reset()
	assert.Equal(t, 0, e.Len())
	assert.Equal(t, 1, e.FailureCount())
}
