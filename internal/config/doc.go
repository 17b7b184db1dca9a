// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for the applock gate.
//
// Supports both TOML and JSON configuration formats, with defaults that
// reproduce the reference lock policy, environment variable overrides, and
// validation.
//
// # Key Types
//
//   - Config: Main configuration structure
//   - GateConfig: PIN length, attempt limit, lockout and freshness windows
//   - StorageConfig: Where the last-activity timestamp is persisted
//   - BiometricConfig: WebAuthn relying party settings
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (APPLOCK_*)
//   - ~/.dalepay/config.toml
//   - ~/.dalepay/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	lockout := cfg.Gate.LockoutDuration()
package config
