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
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv(EnvConfigDir, t.TempDir())
	keyring.MockInit()
}

func TestEnvOverridesUploadURL(t *testing.T) {
	isolate(t)
	t.Setenv(EnvUploadURL, "https://example.test:8443")
	t.Setenv(EnvUploadMode, "HTTP")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Upload.BaseURL, "https://example.test:8443"; got != want {
		t.Fatalf("Upload.BaseURL = %q, want %q", got, want)
	}
	if cfg.Upload.Mode != UploadHTTP {
		t.Fatalf("Upload.Mode = %q", cfg.Upload.Mode)
	}
}

func TestEnvOverridesGrid(t *testing.T) {
	isolate(t)
	t.Setenv(EnvMinCells, "9")
	t.Setenv(EnvMaxReflowPasses, "not-a-number")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Grid.MinCells != 9 {
		t.Fatalf("Grid.MinCells = %d, want 9", cfg.Grid.MinCells)
	}
	if cfg.Grid.MaxReflowPasses != Defaults().Grid.MaxReflowPasses {
		t.Fatalf("invalid env value should keep default, got %d", cfg.Grid.MaxReflowPasses)
	}
	if env, ok := EnvOverrideFor("grid.min_cells"); !ok || env != EnvMinCells {
		t.Fatalf("EnvOverrideFor(grid.min_cells) = %q, %v", env, ok)
	}
	if _, ok := EnvOverrideFor("server.addr"); ok {
		t.Fatal("server.addr should not report an override")
	}
}

func TestStorageBackupLimit(t *testing.T) {
	isolate(t)
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Storage.MaxBackups != 20 {
		t.Fatalf("Storage.MaxBackups default = %d, want 20", cfg.Storage.MaxBackups)
	}
	t.Setenv(EnvMaxBackups, "5")
	cfg, _, _ = Load()
	if cfg.Storage.MaxBackups != 5 {
		t.Fatalf("Storage.MaxBackups = %d, want 5 from env", cfg.Storage.MaxBackups)
	}
	if env, ok := EnvOverrideFor("storage.max_backups"); !ok || env != EnvMaxBackups {
		t.Fatalf("EnvOverrideFor(storage.max_backups) = %q, %v", env, ok)
	}
	t.Setenv(EnvMaxBackups, "0")
	cfg, _, _ = Load()
	if cfg.Storage.MaxBackups != 20 {
		t.Fatalf("non-positive env value should keep default, got %d", cfg.Storage.MaxBackups)
	}
}

func TestEnvOverridesTelemetry(t *testing.T) {
	isolate(t)
	t.Setenv(EnvTelemetryOptIn, "true")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("General.TelemetryOptIn expected true from env override")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "debug"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/gcg.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/gcg.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestMergeKeepsDefaultsForZeroValues(t *testing.T) {
	dst := Defaults()
	var src AppConfig
	src.Server.Addr = ":9000"
	mergeInto(&dst, &src)
	if dst.Grid.MinCells != 4 || dst.Upload.Mode != UploadLocal || dst.Server.Addr != ":9000" {
		t.Fatalf("unexpected merge result: %#v", dst)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "/var/tmp/gcg.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "/var/tmp/gcg.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestSaveLoadRoundTripWithToken(t *testing.T) {
	isolate(t)
	cfg := Defaults()
	cfg.Grid.MinCells = 12
	cfg.Server.Addr = "0.0.0.0:9999"
	if err := Save(cfg, "secret"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Grid.MinCells != 12 || got.Server.Addr != "0.0.0.0:9999" {
		t.Fatalf("round trip lost fields: %#v", got)
	}
	if tok != "secret" {
		t.Fatalf("token = %q", tok)
	}
	if err := ForgetToken(); err != nil {
		t.Fatalf("ForgetToken: %v", err)
	}
	if err := ForgetToken(); err != nil {
		t.Fatalf("ForgetToken twice: %v", err)
	}
	if _, tok, _ = Load(); tok != "" {
		t.Fatalf("token should be gone, got %q", tok)
	}
}

func TestDurations(t *testing.T) {
	var s ServerConfig
	if s.ReadTimeout() != 15*time.Second || s.WriteTimeout() != 30*time.Second {
		t.Fatalf("unexpected server defaults: %v %v", s.ReadTimeout(), s.WriteTimeout())
	}
	if s.BodyLimit() != 64<<20 {
		t.Fatalf("BodyLimit = %d", s.BodyLimit())
	}
	u := UploadConfig{TimeoutMs: 250}
	if u.Timeout() != 250*time.Millisecond {
		t.Fatalf("Timeout = %v", u.Timeout())
	}
}
