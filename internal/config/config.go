package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// TokenEnv is consulted once, at load time, when table.token is empty.
const TokenEnv = "EVENTFEED_API_TOKEN"

const (
	defaultListen         = "127.0.0.1:8080"
	defaultTableURL       = "https://coda.io/apis/v1/docs/DOC_ID/tables/TABLE_ID/rows"
	defaultTimeoutSeconds = 30
	defaultCaptureOutput  = "/var/lib/eventfeed/preview.png"
	defaultCaptureWidth   = 430
	defaultCaptureHeight  = 932
)

var ErrPathEmpty = errors.New("config path is empty")

// TableConfig describes the table API endpoint the feed reads from.
type TableConfig struct {
	// URL is the rows endpoint, requested once per activation.
	URL string `yaml:"url" json:"url" validate:"required,url"`
	// Token is sent as a bearer token. It is allowed to be empty here;
	// the feed reports a missing token as its own error state.
	Token string `yaml:"token,omitempty" json:"-"`
	// TimeoutSeconds bounds the whole request.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds" validate:"min=1,max=600"`
}

// Timeout returns TimeoutSeconds as a duration.
func (t TableConfig) Timeout() time.Duration {
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// HasToken reports whether a bearer token is configured.
func (t TableConfig) HasToken() bool {
	return strings.TrimSpace(t.Token) != ""
}

// CaptureConfig controls periodic PNG snapshots of the rendered feed.
type CaptureConfig struct {
	// Schedule is a 5-field cron expression. Empty disables capturing.
	Schedule   string `yaml:"schedule" json:"schedule"`
	OutputPath string `yaml:"output_path" json:"output_path" validate:"required"`
	Width      int    `yaml:"width" json:"width" validate:"min=1"`
	Height     int    `yaml:"height" json:"height" validate:"min=1"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the feed and API.
	Listen string `yaml:"listen" json:"listen" validate:"required,hostname_port"`

	// Timezone is the IANA zone used to format event dates. Empty means
	// the process local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`

	Table   TableConfig   `yaml:"table" json:"table"`
	Capture CaptureConfig `yaml:"capture" json:"capture"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   defaultListen,
		LogLevel: "info",
		Table: TableConfig{
			URL:            defaultTableURL,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Capture: CaptureConfig{
			OutputPath: defaultCaptureOutput,
			Width:      defaultCaptureWidth,
			Height:     defaultCaptureHeight,
		},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Table.URL == "" {
		c.Table.URL = defaultTableURL
	}
	if c.Table.TimeoutSeconds <= 0 {
		c.Table.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Capture.OutputPath == "" {
		c.Capture.OutputPath = defaultCaptureOutput
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = defaultCaptureWidth
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = defaultCaptureHeight
	}
}

// Validate checks structural settings. A missing token is not an error
// here; see TableConfig.Token.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
		}
	}
	return nil
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//
// In both cases an empty table token is filled from TokenEnv. The
// resolved token is never written back to disk by Load.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrPathEmpty
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				cfg.resolveToken()
				return cfg, err
			}
			cfg.resolveToken()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	cfg.resolveToken()

	return &cfg, nil
}

func (c *Config) resolveToken() {
	if c.Table.HasToken() {
		return
	}
	c.Table.Token = strings.TrimSpace(os.Getenv(TokenEnv))
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return ErrPathEmpty
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".eventfeed-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
