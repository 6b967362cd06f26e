/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Grid          GridConfig    `yaml:"grid"`
	Upload        UploadConfig  `yaml:"upload"`
	Server        ServerConfig  `yaml:"server"`
	Storage       StorageConfig `yaml:"storage"`
	Logging       LoggingConfig `yaml:"logging"`
}

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
}

// GridConfig seeds new editor sessions.
type GridConfig struct {
	MinCells        int `yaml:"min_cells"`
	MaxReflowPasses int `yaml:"max_reflow_passes"`
}

// Upload modes.
const (
	UploadLocal = "local"
	UploadHTTP  = "http"
)

type UploadConfig struct {
	Mode      string `yaml:"mode"` // "local" | "http"
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type ServerConfig struct {
	Addr           string `yaml:"addr"`
	ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms"`
	BodyLimitMB    int    `yaml:"body_limit_mb"`
}

// StorageConfig tunes the project folder on disk.
type StorageConfig struct {
	MaxBackups int `yaml:"max_backups"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false},
		Grid:          GridConfig{MinCells: 4, MaxReflowPasses: 16},
		Upload:        UploadConfig{Mode: UploadLocal, BaseURL: "http://localhost:8080", TimeoutMs: 15000},
		Server:        ServerConfig{Addr: "127.0.0.1:7878", ReadTimeoutMs: 15000, WriteTimeoutMs: 30000, BodyLimitMB: 64},
		Storage:       StorageConfig{MaxBackups: 20},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvMinCells        = "GCG_MIN_CELLS"
	EnvMaxReflowPasses = "GCG_MAX_REFLOW_PASSES"
	EnvUploadMode      = "GCG_UPLOAD_MODE"
	EnvUploadURL       = "GCG_UPLOAD_URL"
	EnvUploadTimeoutMs = "GCG_UPLOAD_TIMEOUT_MS"
	EnvServerAddr      = "GCG_SERVER_ADDR"
	EnvTelemetryOptIn  = "GCG_TELEMETRY_OPT_IN"
	EnvMaxBackups      = "GCG_MAX_BACKUPS"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "GCG_LOG_LEVEL"
	EnvLogFormat = "GCG_LOG_FORMAT"
	EnvLogSource = "GCG_LOG_SOURCE"
	EnvLogFile   = "GCG_LOG_FILE"
	// EnvConfigDir relocates the config file; mostly useful for tests and portable installs.
	EnvConfigDir = "GCG_CONFIG_DIR"
)

// Service/keys for OS keyring.
const (
	keyringService = "GoComicGrid"
	keyringToken   = "upload_token"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	if d := strings.TrimSpace(os.Getenv(EnvConfigDir)); d != "" {
		return filepath.Join(d, "config.yaml"), nil
	}
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoComicGrid")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoComicGrid")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "gocomicgrid")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// It also loads the upload token from keyring (not kept inside the struct; returned separately).
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

// ForgetToken removes the stored upload token.
func ForgetToken() error {
	err := tokenStore.Delete(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if src.Grid.MinCells > 0 {
		dst.Grid.MinCells = src.Grid.MinCells
	}
	if src.Grid.MaxReflowPasses > 0 {
		dst.Grid.MaxReflowPasses = src.Grid.MaxReflowPasses
	}
	if m := strings.ToLower(strings.TrimSpace(src.Upload.Mode)); m != "" {
		dst.Upload.Mode = m
	}
	if src.Upload.BaseURL != "" {
		dst.Upload.BaseURL = src.Upload.BaseURL
	}
	if src.Upload.TimeoutMs != 0 {
		dst.Upload.TimeoutMs = src.Upload.TimeoutMs
	}
	if strings.TrimSpace(src.Server.Addr) != "" {
		dst.Server.Addr = strings.TrimSpace(src.Server.Addr)
	}
	if src.Server.ReadTimeoutMs > 0 {
		dst.Server.ReadTimeoutMs = src.Server.ReadTimeoutMs
	}
	if src.Server.WriteTimeoutMs > 0 {
		dst.Server.WriteTimeoutMs = src.Server.WriteTimeoutMs
	}
	if src.Server.BodyLimitMB > 0 {
		dst.Server.BodyLimitMB = src.Server.BodyLimitMB
	}
	if src.Storage.MaxBackups > 0 {
		dst.Storage.MaxBackups = src.Storage.MaxBackups
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvMinCells)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Grid.MinCells = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxReflowPasses)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Grid.MaxReflowPasses = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvUploadMode)); v != "" {
		cfg.Upload.Mode = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvUploadURL)); v != "" {
		cfg.Upload.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvUploadTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Upload.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerAddr)); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxBackups)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Storage.MaxBackups = n
		}
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	names := map[string]string{
		"grid.min_cells":           EnvMinCells,
		"grid.max_reflow_passes":   EnvMaxReflowPasses,
		"upload.mode":              EnvUploadMode,
		"upload.base_url":          EnvUploadURL,
		"upload.timeout_ms":        EnvUploadTimeoutMs,
		"server.addr":              EnvServerAddr,
		"general.telemetry_opt_in": EnvTelemetryOptIn,
		"storage.max_backups":      EnvMaxBackups,
		"logging.level":            EnvLogLevel,
		"logging.format":           EnvLogFormat,
		"logging.source":           EnvLogSource,
		"logging.file":             EnvLogFile,
	}
	if env, ok := names[key]; ok && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

func millis(ms, def int) time.Duration {
	if ms <= 0 {
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}

// Timeout returns the upload timeout, falling back to the default.
func (u UploadConfig) Timeout() time.Duration {
	return millis(u.TimeoutMs, Defaults().Upload.TimeoutMs)
}

// ReadTimeout returns the server read timeout, falling back to the default.
func (s ServerConfig) ReadTimeout() time.Duration {
	return millis(s.ReadTimeoutMs, Defaults().Server.ReadTimeoutMs)
}

// WriteTimeout returns the server write timeout, falling back to the default.
func (s ServerConfig) WriteTimeout() time.Duration {
	return millis(s.WriteTimeoutMs, Defaults().Server.WriteTimeoutMs)
}

// BodyLimit returns the maximum request body size in bytes.
func (s ServerConfig) BodyLimit() int {
	mb := s.BodyLimitMB
	if mb <= 0 {
		mb = Defaults().Server.BodyLimitMB
	}
	return mb << 20
}
