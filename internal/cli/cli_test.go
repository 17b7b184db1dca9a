// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dalepay/applock/internal/config"
	"github.com/dalepay/applock/internal/pin"
)

// isolate points APPLOCK_HOME at a temp dir and keeps the activity record
// in a JSON file so separate commands see each other's writes.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvPrefix+"HOME", dir)
	t.Setenv(config.EnvPrefix+"STORAGE_BACKEND", config.BackendFile)
	return dir
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		cmd  Command
		want Args
	}{
		{"default is tui", nil, CmdTUI, Args{}},
		{"prompt", []string{"prompt"}, CmdPrompt, Args{Raw: []string{}}},
		{"set-pin alias", []string{"setpin"}, CmdSetPIN, Args{Raw: []string{}}},
		{"status short", []string{"s"}, CmdStatus, Args{Raw: []string{}}},
		{"touch", []string{"touch"}, CmdTouch, Args{Raw: []string{}}},
		{"flags before command", []string{"--lang", "en", "-c", "/tmp/a.toml", "status"}, CmdStatus,
			Args{Language: "en", ConfigPath: "/tmp/a.toml", Raw: []string{}}},
		{"flags after command", []string{"prompt", "--theme=plain", "--log-level", "debug"}, CmdPrompt,
			Args{Theme: "plain", LogLevel: "debug", Raw: []string{}}},
		{"help flag", []string{"-h"}, CmdHelp, Args{}},
		{"version flag", []string{"--version"}, CmdVersion, Args{}},
		{"version command", []string{"version"}, CmdVersion, Args{Raw: []string{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args, err := ParseArgs(tt.argv)
			require.NoError(t, err)
			assert.Equal(t, tt.cmd, cmd)
			assert.Equal(t, tt.want, args)
		})
	}
}

func TestParseArgs_Errors(t *testing.T) {
	_, _, err := ParseArgs([]string{"unlock-everything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")

	_, _, err = ParseArgs([]string{"--no-such-flag"})
	require.Error(t, err)
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	PrintUsage(&buf)
	out := buf.String()
	assert.Contains(t, out, "applock set-pin")
	assert.Contains(t, out, "--config")
	assert.Contains(t, out, "--log-level")
}

func TestHandleVersion(t *testing.T) {
	var buf bytes.Buffer
	HandleVersion(&buf)
	assert.Contains(t, buf.String(), "applock "+Version)
	assert.Contains(t, buf.String(), GitCommit)
}

func TestLoadConfig_FlagOverrides(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig(Args{Language: "en", Theme: "plain", LogLevel: "debug"})
	require.NoError(t, err)
	assert.Equal(t, "en", cfg.UI.Language)
	assert.Equal(t, "plain", cfg.UI.Theme)
	assert.Equal(t, "debug", cfg.Log.Level)

	_, err = LoadConfig(Args{Language: "fr"})
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestReadNewPIN(t *testing.T) {
	answers := []string{"1234", "1234"}
	read := func(string) (string, error) {
		a := answers[0]
		answers = answers[1:]
		return a, nil
	}
	code, err := readNewPIN(read)
	require.NoError(t, err)
	assert.Equal(t, "1234", code)

	answers = []string{"1234", "4321"}
	_, err = readNewPIN(read)
	assert.Error(t, err)
}

func TestReadLine(t *testing.T) {
	code, err := readLine(strings.NewReader(" 2468 \nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "2468", code)

	_, err = readLine(strings.NewReader(""))
	assert.Error(t, err)
}

func TestSetPIN_WritesVerifiableHash(t *testing.T) {
	home := isolate(t)

	var out bytes.Buffer
	err := setPIN(Args{}, func() (string, error) { return "2468", nil }, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), filepath.Join(home, "config.toml"))

	cfg, err := LoadConfig(Args{})
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Credential.PINHash)
	assert.NotContains(t, cfg.Credential.PINHash, "2468")

	env := &Env{Config: cfg}
	verifier, err := env.Verifier()
	require.NoError(t, err)
	ok, err := verifier.Verify(t.Context(), "2468")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSetPIN_RejectsBadPIN(t *testing.T) {
	isolate(t)
	var out bytes.Buffer

	err := setPIN(Args{}, func() (string, error) { return "12a4", nil }, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "4 digits")

	readErr := errors.New("tty closed")
	err = setPIN(Args{}, func() (string, error) { return "", readErr }, &out)
	assert.ErrorIs(t, err, readErr)

	err = setPIN(Args{ConfigPath: filepath.Join(t.TempDir(), "config.json")}, func() (string, error) { return "1234", nil }, &out)
	require.Error(t, err)
}

func TestEnv_VerifierRequiresPIN(t *testing.T) {
	env := &Env{Config: config.Default()}
	_, err := env.Verifier()
	assert.ErrorIs(t, err, ErrNoPIN)

	env.Config.Credential.PINHash = "not-a-hash"
	_, err = env.Verifier()
	assert.ErrorIs(t, err, pin.ErrMalformedHash)
}

func TestEnv_BiometricFallsBackToUnavailable(t *testing.T) {
	isolate(t)
	cfg, err := LoadConfig(Args{})
	require.NoError(t, err)

	env, err := Bootstrap(t.Context(), cfg)
	require.NoError(t, err)
	defer env.Close()

	assert.False(t, env.Biometric().Available(), "disabled")

	env.Config.Biometric.Enabled = true
	assert.False(t, env.Biometric().Available(), "no authenticator command")

	env.Config.Biometric.Authenticator = "applock-no-such-helper-binary"
	assert.False(t, env.Biometric().Available(), "no registered credential")
}

func TestTouchThenStatus(t *testing.T) {
	isolate(t)

	var before bytes.Buffer
	require.NoError(t, HandleStatus(Args{}, &before))
	assert.Contains(t, before.String(), "last active:  never")
	assert.Contains(t, before.String(), "lock screen:  required")
	assert.Contains(t, before.String(), "pin:          not configured")

	var touched bytes.Buffer
	require.NoError(t, HandleTouch(Args{}, &touched))
	assert.Contains(t, touched.String(), "activity recorded at")

	var after bytes.Buffer
	require.NoError(t, HandleStatus(Args{}, &after))
	assert.Contains(t, after.String(), "lock screen:  skipped (fresh)")
	assert.NotContains(t, after.String(), "never")
}
