// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/dalepay/applock/internal/util"
)

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	// DefaultPINLength is the number of digits in a PIN.
	DefaultPINLength = 4

	// DefaultMaxAttempts is the number of consecutive wrong PINs that arms a lockout.
	DefaultMaxAttempts = 3

	// DefaultLockoutDuration is how long credential entry is blocked after
	// DefaultMaxAttempts failures.
	DefaultLockoutDuration = 30 * time.Second

	// DefaultFreshnessThreshold is the idle window inside which re-entry skips the gate.
	DefaultFreshnessThreshold = 5 * time.Minute

	// DefaultTickInterval is the lockout countdown granularity.
	DefaultTickInterval = time.Second

	// DefaultBiometricTimeout bounds a single platform authenticator ceremony.
	DefaultBiometricTimeout = 60 * time.Second

	// DefaultNamespaceKey is the storage key holding the last-activity timestamp.
	DefaultNamespaceKey = "dalepay_last_active"

	// EnvPrefix is prepended to every environment override.
	EnvPrefix = "APPLOCK_"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete applock configuration.
type Config struct {
	Version string `toml:"version" json:"version" env:"VERSION"`

	Gate       GateConfig       `toml:"gate" json:"gate" envPrefix:"GATE_"`
	Storage    StorageConfig    `toml:"storage" json:"storage" envPrefix:"STORAGE_"`
	Biometric  BiometricConfig  `toml:"biometric" json:"biometric" envPrefix:"BIOMETRIC_"`
	Credential CredentialConfig `toml:"credential" json:"credential" envPrefix:"CREDENTIAL_"`
	Log        LogConfig        `toml:"log" json:"log" envPrefix:"LOG_"`
	UI         UIConfig         `toml:"ui" json:"ui" envPrefix:"UI_"`
}

// GateConfig holds the lock policy. Durations are in milliseconds to match
// the persisted timestamp format.
type GateConfig struct {
	PINLength            int   `toml:"pin_length" json:"pin_length" env:"PIN_LENGTH"`
	MaxAttempts          int   `toml:"max_attempts" json:"max_attempts" env:"MAX_ATTEMPTS"`
	LockoutDurationMS    int64 `toml:"lockout_duration_ms" json:"lockout_duration_ms" env:"LOCKOUT_DURATION_MS"`
	FreshnessThresholdMS int64 `toml:"freshness_threshold_ms" json:"freshness_threshold_ms" env:"FRESHNESS_THRESHOLD_MS"`
	TickIntervalMS       int64 `toml:"tick_interval_ms" json:"tick_interval_ms" env:"TICK_INTERVAL_MS"`
	BiometricTimeoutMS   int64 `toml:"biometric_timeout_ms" json:"biometric_timeout_ms" env:"BIOMETRIC_TIMEOUT_MS"`
}

// LockoutDuration returns the lockout window.
func (g GateConfig) LockoutDuration() time.Duration {
	return time.Duration(g.LockoutDurationMS) * time.Millisecond
}

// FreshnessThreshold returns the idle window that still counts as fresh.
func (g GateConfig) FreshnessThreshold() time.Duration {
	return time.Duration(g.FreshnessThresholdMS) * time.Millisecond
}

// TickInterval returns the lockout countdown period.
func (g GateConfig) TickInterval() time.Duration {
	return time.Duration(g.TickIntervalMS) * time.Millisecond
}

// BiometricTimeout returns the upper bound on one authenticator ceremony.
func (g GateConfig) BiometricTimeout() time.Duration {
	return time.Duration(g.BiometricTimeoutMS) * time.Millisecond
}

// StorageConfig selects where the activity record lives.
type StorageConfig struct {
	// Backend is one of "sqlite", "file", "memory".
	Backend string `toml:"backend" json:"backend" env:"BACKEND"`
	// Path is the database or JSON file path (empty = default under ConfigDir).
	Path string `toml:"path" json:"path" env:"PATH"`
	// NamespaceKey is the key the last-activity timestamp is stored under.
	NamespaceKey string `toml:"namespace_key" json:"namespace_key" env:"NAMESPACE_KEY"`
	// WriteIntervalMS throttles pointer-move writes. 0 writes on every event.
	WriteIntervalMS int64 `toml:"write_interval_ms" json:"write_interval_ms" env:"WRITE_INTERVAL_MS"`
}

// WriteInterval returns the pointer-move write throttle.
func (s StorageConfig) WriteInterval() time.Duration {
	return time.Duration(s.WriteIntervalMS) * time.Millisecond
}

// BiometricConfig holds the WebAuthn relying party used for the platform
// authenticator ceremony.
type BiometricConfig struct {
	Enabled       bool     `toml:"enabled" json:"enabled" env:"ENABLED"`
	RPID          string   `toml:"rp_id" json:"rp_id" env:"RP_ID"`
	RPDisplayName string   `toml:"rp_display_name" json:"rp_display_name" env:"RP_DISPLAY_NAME"`
	RPOrigins     []string `toml:"rp_origins" json:"rp_origins" env:"RP_ORIGINS" envSeparator:","`
	// CredentialsPath holds registered platform credentials (JSON).
	CredentialsPath string `toml:"credentials_path" json:"credentials_path" env:"CREDENTIALS_PATH"`
	// UserName identifies the account holder to the relying party.
	UserName string `toml:"user_name" json:"user_name" env:"USER_NAME"`
	// Authenticator is the platform helper command. It reads credential
	// request options on stdin and writes the assertion on stdout.
	Authenticator string `toml:"authenticator" json:"authenticator" env:"AUTHENTICATOR"`
}

// CredentialConfig holds the PIN verifier material. Never the PIN itself.
type CredentialConfig struct {
	// PINHash is the encoded PBKDF2 hash produced by `applock set-pin`.
	PINHash string `toml:"pin_hash" json:"pin_hash" env:"PIN_HASH"`
}

// LogConfig configures diagnostic and audit logging.
type LogConfig struct {
	Level     string `toml:"level" json:"level" env:"LEVEL"`
	Format    string `toml:"format" json:"format" env:"FORMAT"`
	Path      string `toml:"path" json:"path" env:"PATH"`
	AuditPath string `toml:"audit_path" json:"audit_path" env:"AUDIT_PATH"`
}

// UIConfig configures the terminal front end.
type UIConfig struct {
	Language string `toml:"language" json:"language" env:"LANGUAGE"`
	Theme    string `toml:"theme" json:"theme" env:"THEME"`
}

// Default returns a Config reproducing the reference lock policy.
func Default() *Config {
	return &Config{
		Version: "1.0.0",
		Gate: GateConfig{
			PINLength:            DefaultPINLength,
			MaxAttempts:          DefaultMaxAttempts,
			LockoutDurationMS:    DefaultLockoutDuration.Milliseconds(),
			FreshnessThresholdMS: DefaultFreshnessThreshold.Milliseconds(),
			TickIntervalMS:       DefaultTickInterval.Milliseconds(),
			BiometricTimeoutMS:   DefaultBiometricTimeout.Milliseconds(),
		},
		Storage: StorageConfig{
			Backend:         BackendSQLite,
			NamespaceKey:    DefaultNamespaceKey,
			WriteIntervalMS: 1000,
		},
		Biometric: BiometricConfig{
			Enabled:       false,
			RPID:          "localhost",
			RPDisplayName: "DalePay",
			RPOrigins:     []string{"http://localhost"},
			UserName:      "dalepay",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		UI: UIConfig{
			Language: "es",
			Theme:    "auto",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the applock configuration directory path.
// APPLOCK_HOME overrides the default of ~/.dalepay.
func ConfigDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(EnvPrefix + "HOME")); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".dalepay"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	if path, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}
	if path, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON config %s: %w", path, err)
		}
	} else {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML config %s: %w", path, err)
		}
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finish() error {
	if err := c.ApplyEnvOverrides(); err != nil {
		return err
	}
	c.fillDefaults()
	return c.Validate()
}

// ApplyEnvOverrides overlays APPLOCK_* environment variables. Unset
// variables leave the current value alone.
func (c *Config) ApplyEnvOverrides() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// fillDefaults fills in any missing values with defaults.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Gate.PINLength == 0 {
		c.Gate.PINLength = defaults.Gate.PINLength
	}
	if c.Gate.MaxAttempts == 0 {
		c.Gate.MaxAttempts = defaults.Gate.MaxAttempts
	}
	if c.Gate.LockoutDurationMS == 0 {
		c.Gate.LockoutDurationMS = defaults.Gate.LockoutDurationMS
	}
	if c.Gate.FreshnessThresholdMS == 0 {
		c.Gate.FreshnessThresholdMS = defaults.Gate.FreshnessThresholdMS
	}
	if c.Gate.TickIntervalMS == 0 {
		c.Gate.TickIntervalMS = defaults.Gate.TickIntervalMS
	}
	if c.Gate.BiometricTimeoutMS == 0 {
		c.Gate.BiometricTimeoutMS = defaults.Gate.BiometricTimeoutMS
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	if c.Storage.NamespaceKey == "" {
		c.Storage.NamespaceKey = defaults.Storage.NamespaceKey
	}
	if c.Storage.Path == "" && c.Storage.Backend != BackendMemory {
		if dir, err := ConfigDir(); err == nil {
			name := "activity.db"
			if c.Storage.Backend == BackendFile {
				name = "activity.json"
			}
			c.Storage.Path = filepath.Join(dir, name)
		}
	}
	if c.Biometric.RPDisplayName == "" {
		c.Biometric.RPDisplayName = defaults.Biometric.RPDisplayName
	}
	if c.Biometric.UserName == "" {
		c.Biometric.UserName = defaults.Biometric.UserName
	}
	if c.Biometric.CredentialsPath == "" {
		if dir, err := ConfigDir(); err == nil {
			c.Biometric.CredentialsPath = filepath.Join(dir, "passkeys.json")
		}
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
	if c.Log.AuditPath == "" {
		if dir, err := ConfigDir(); err == nil {
			c.Log.AuditPath = filepath.Join(dir, "audit.log")
		}
	}
	if c.UI.Language == "" {
		c.UI.Language = defaults.UI.Language
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration atomically with 0600 permissions; the
// file carries the PIN hash.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# applock configuration file")
	fmt.Fprintln(&buf, "# Generated by applock - edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration. The returned error wraps
// ErrInvalidConfig and a ValidateErrors listing every problem.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Gate.PINLength < 1 || c.Gate.PINLength > 12 {
		add("gate.pin_length", "must be between 1 and 12, got %d", c.Gate.PINLength)
	}
	if c.Gate.MaxAttempts < 1 {
		add("gate.max_attempts", "must be at least 1, got %d", c.Gate.MaxAttempts)
	}
	if c.Gate.LockoutDurationMS <= 0 {
		add("gate.lockout_duration_ms", "must be positive")
	}
	if c.Gate.FreshnessThresholdMS <= 0 {
		add("gate.freshness_threshold_ms", "must be positive")
	}
	if c.Gate.TickIntervalMS <= 0 {
		add("gate.tick_interval_ms", "must be positive")
	} else if c.Gate.TickIntervalMS > c.Gate.LockoutDurationMS && c.Gate.LockoutDurationMS > 0 {
		add("gate.tick_interval_ms", "must not exceed lockout_duration_ms")
	}
	if c.Gate.BiometricTimeoutMS <= 0 {
		add("gate.biometric_timeout_ms", "must be positive")
	}

	switch strings.ToLower(c.Storage.Backend) {
	case BackendSQLite, BackendFile:
		if c.Storage.Path == "" {
			add("storage.path", "required for backend %q", c.Storage.Backend)
		}
	case BackendMemory:
	default:
		add("storage.backend", "invalid backend '%s', must be one of: sqlite, file, memory", c.Storage.Backend)
	}
	if strings.TrimSpace(c.Storage.NamespaceKey) == "" {
		add("storage.namespace_key", "must not be empty")
	}
	if c.Storage.WriteIntervalMS < 0 {
		add("storage.write_interval_ms", "must not be negative")
	}

	if c.Biometric.Enabled {
		if c.Biometric.RPID == "" {
			add("biometric.rp_id", "required when biometric is enabled")
		}
		if len(c.Biometric.RPOrigins) == 0 {
			add("biometric.rp_origins", "at least one origin required when biometric is enabled")
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("log.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		add("log.format", "invalid format '%s', must be one of: text, json", c.Log.Format)
	}

	switch c.UI.Language {
	case "en", "es":
	default:
		add("ui.language", "unsupported language '%s', must be one of: en, es", c.UI.Language)
	}
	switch c.UI.Theme {
	case "auto", "dark", "light", "plain":
	default:
		add("ui.theme", "invalid theme '%s', must be one of: auto, dark, light, plain", c.UI.Theme)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errs)
	}
	return nil
}
