// Package config loads the daemon settings from
// ~/.config/voiceplay/config.yaml, with .env files and environment
// variables layered on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tiroq/voiceplay/internal/transcript"
)

const (
	EnvHostURL      = "VOICEPLAY_HOST_URL"
	EnvHostPassword = "VOICEPLAY_HOST_PASSWORD"
)

// Config holds every daemon setting.
type Config struct {
	HostURL        string `yaml:"host_url"`
	HostPassword   string `yaml:"host_password,omitempty"`
	ReconnectDelay int    `yaml:"reconnect_delay_seconds"` // first retry after a drop
	RequestTimeout int    `yaml:"request_timeout_seconds"`

	Volume       int     `yaml:"volume"`
	PlaybackRate float64 `yaml:"playback_rate"`

	// Transcript is loaded as the custom transcript at startup when set.
	Transcript       string `yaml:"transcript,omitempty"`
	ReloadTranscript bool   `yaml:"reload_transcript"`

	ExportFormats []string `yaml:"export_formats"`
	ExportDir     string   `yaml:"export_dir,omitempty"`
}

// Default returns the settings used when no file exists.
func Default() *Config {
	return &Config{
		HostURL:        "ws://localhost:4466",
		ReconnectDelay: 5,
		RequestTimeout: 10,
		Volume:         80,
		PlaybackRate:   1,
		ExportFormats:  []string{"txt"},
	}
}

// Dir is ~/.config/voiceplay.
func Dir() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "voiceplay")
}

// DefaultPath is the config file read when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// LoadDotEnv loads .env from the working directory and from Dir, in that
// order. Variables already in the environment are never overwritten.
// Missing files are skipped; the loaded paths are returned.
func LoadDotEnv() ([]string, error) {
	var loaded []string
	for _, p := range []string{".env", filepath.Join(Dir(), ".env")} {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return loaded, fmt.Errorf("loading %s: %w", p, err)
		}
		loaded = append(loaded, p)
	}
	return loaded, nil
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	cfg.applyEnv()
	if cfg.Transcript != "" {
		cfg.Transcript = expandHome(cfg.Transcript)
	}
	if cfg.ExportDir != "" {
		cfg.ExportDir = expandHome(cfg.ExportDir)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save validates cfg and writes it as YAML to path.
func Save(path string, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvHostURL); v != "" {
		c.HostURL = v
	}
	if v, ok := os.LookupEnv(EnvHostPassword); ok {
		c.HostPassword = v
	}
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		return filepath.Join(os.Getenv("HOME"), strings.TrimPrefix(p, "~"))
	}
	return p
}

// Validate checks ranges and formats.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.HostURL, "ws://") && !strings.HasPrefix(c.HostURL, "wss://") {
		return fmt.Errorf("host_url must start with ws:// or wss://, got %q", c.HostURL)
	}
	if c.ReconnectDelay < 1 || c.ReconnectDelay > 60 {
		return fmt.Errorf("reconnect_delay_seconds must be between 1 and 60, got %d", c.ReconnectDelay)
	}
	if c.RequestTimeout < 1 || c.RequestTimeout > 60 {
		return fmt.Errorf("request_timeout_seconds must be between 1 and 60, got %d", c.RequestTimeout)
	}
	if c.Volume < 0 || c.Volume > 100 {
		return fmt.Errorf("volume must be between 0 and 100, got %d", c.Volume)
	}
	if c.PlaybackRate < 0.5 || c.PlaybackRate > 8 {
		return fmt.Errorf("playback_rate must be between 0.5 and 8, got %v", c.PlaybackRate)
	}
	if c.ReloadTranscript && c.Transcript == "" {
		return fmt.Errorf("reload_transcript needs a transcript path")
	}
	for _, f := range c.ExportFormats {
		if !knownFormat(f) {
			return fmt.Errorf("export_formats: unknown format %q (want one of %s)", f, strings.Join(transcript.Formats, ", "))
		}
	}
	return nil
}

func knownFormat(f string) bool {
	for _, k := range transcript.Formats {
		if f == k {
			return true
		}
	}
	return false
}

// ReconnectDuration is ReconnectDelay as a time.Duration.
func (c *Config) ReconnectDuration() time.Duration {
	return time.Duration(c.ReconnectDelay) * time.Second
}

// RequestTimeoutDuration is RequestTimeout as a time.Duration.
func (c *Config) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}
