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

	"gopkg.in/yaml.v3"

	"refdock/internal/share"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	LibraryPath    string `yaml:"library_path"`
	ThumbCacheMB   int    `yaml:"thumb_cache_mb"`
}

// PanelConfig persists the panel's docked position between runs so the
// window reappears where the user left it.
type PanelConfig struct {
	DockedEdge  string  `yaml:"docked_edge"` // "left" | "right"
	DockedY     float64 `yaml:"docked_y"`    // offset from the top of the visible screen area
	HoldDelayMs int     `yaml:"hold_delay_ms"`
}

type ShareConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Panel         PanelConfig   `yaml:"panel"`
	Share         ShareConfig   `yaml:"share"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, ThumbCacheMB: 128},
		Panel:         PanelConfig{DockedEdge: "right", DockedY: 200, HoldDelayMs: 600},
		Share:         ShareConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvLibraryPath = "RDK_LIBRARY"
	EnvShareURL    = "RDK_SHARE_URL"
	EnvShareTimout = "RDK_SHARE_TIMEOUT_MS"
	// EnvTelemetryOptIn mirrors the telemetry package's env knob.
	EnvTelemetryOptIn = "RDK_TELEMETRY_OPT_IN"
	EnvPanelEdge      = "RDK_PANEL_EDGE"
	EnvHoldDelayMs    = "RDK_HOLD_DELAY_MS"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "RDK_LOG_LEVEL"
	EnvLogFormat = "RDK_LOG_FORMAT"
	EnvLogSource = "RDK_LOG_SOURCE"
	EnvLogFile   = "RDK_LOG_FILE"
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "RefDock")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "RefDock")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "refdock")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and
// merges environment overrides. The share token comes from the OS
// keyring and is returned separately so it never touches disk.
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
	return cfg, share.StoredToken(), nil
}

// Save writes the user config YAML and persists the token into the OS
// keyring (if non-empty).
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
		if err := share.StoreToken(token); err != nil {
			return err
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if strings.TrimSpace(src.General.LibraryPath) != "" {
		dst.General.LibraryPath = strings.TrimSpace(src.General.LibraryPath)
	}
	if src.General.ThumbCacheMB != 0 {
		dst.General.ThumbCacheMB = src.General.ThumbCacheMB
	}
	if e := normalizeEdge(src.Panel.DockedEdge); e != "" {
		dst.Panel.DockedEdge = e
	}
	if src.Panel.DockedY > 0 {
		dst.Panel.DockedY = src.Panel.DockedY
	}
	if src.Panel.HoldDelayMs > 0 {
		dst.Panel.HoldDelayMs = src.Panel.HoldDelayMs
	}
	if src.Share.BaseURL != "" {
		dst.Share.BaseURL = src.Share.BaseURL
	}
	if src.Share.TimeoutMs != 0 {
		dst.Share.TimeoutMs = src.Share.TimeoutMs
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

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvLibraryPath)); v != "" {
		cfg.General.LibraryPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvShareURL)); v != "" {
		cfg.Share.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvShareTimout)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Share.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	if e := normalizeEdge(os.Getenv(EnvPanelEdge)); e != "" {
		cfg.Panel.DockedEdge = e
	}
	if v := strings.TrimSpace(os.Getenv(EnvHoldDelayMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Panel.HoldDelayMs = n
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
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func normalizeEdge(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "left":
		return "left"
	case "right":
		return "right"
	}
	return ""
}
