// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lockout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimer_ZeroValueDisarmed(t *testing.T) {
	var timer Timer
	assert.False(t, timer.Armed())
	assert.False(t, timer.Tick(time.Second))
	assert.Equal(t, time.Duration(0), timer.Remaining())
}

func TestTimer_CountsDownToZero(t *testing.T) {
	var timer Timer
	timer.Arm(30 * time.Second)
	assert.True(t, timer.Armed())
	assert.Equal(t, 30, timer.RemainingSeconds())

	for i := 0; i < 29; i++ {
		assert.False(t, timer.Tick(time.Second))
		assert.True(t, timer.Armed())
	}
	assert.Equal(t, time.Second, timer.Remaining())

	assert.True(t, timer.Tick(time.Second))
	assert.False(t, timer.Armed())
	assert.False(t, timer.Tick(time.Second), "expiry reported once")
}

func TestTimer_FloorsAtZero(t *testing.T) {
	var timer Timer
	timer.Arm(1500 * time.Millisecond)
	assert.False(t, timer.Tick(time.Second))
	assert.Equal(t, 1, timer.RemainingSeconds())
	assert.True(t, timer.Tick(time.Second))
	assert.Equal(t, time.Duration(0), timer.Remaining())
}

func TestTimer_RearmOverwrites(t *testing.T) {
	var timer Timer
	timer.Arm(30 * time.Second)
	timer.Tick(10 * time.Second)

	timer.Arm(30 * time.Second)
	assert.Equal(t, 30*time.Second, timer.Remaining(), "no additive stacking")
	assert.Equal(t, 2, timer.Arms())
}

func TestTimer_ArmNonPositiveDisarms(t *testing.T) {
	var timer Timer
	timer.Arm(time.Second)
	timer.Arm(0)
	assert.False(t, timer.Armed())
}

func TestPolicy(t *testing.T) {
	p := Policy{MaxAttempts: 3, Duration: 30 * time.Second}

	assert.False(t, p.ShouldArm(2))
	assert.True(t, p.ShouldArm(3))
	assert.True(t, p.ShouldArm(4), "failures persist past expiry")

	assert.Equal(t, 2, p.AttemptsRemaining(1))
	assert.Equal(t, 0, p.AttemptsRemaining(5))

	assert.False(t, Policy{}.ShouldArm(10), "zero policy never arms")
}
