// Package config provides configuration types, defaults, and persistence for pulse.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pulsetrace/pulse/internal/log"
	"github.com/pulsetrace/pulse/internal/paths"
	"github.com/pulsetrace/pulse/internal/tracing"
)

// EnvPrefix namespaces environment overrides, e.g. PULSE_API_KEY.
const EnvPrefix = "PULSE"

var (
	// ErrNotInitialized means no connection has been configured yet.
	ErrNotInitialized = errors.New("pulse is not initialized; run `pulse init`")
	// ErrInvalid means a configured value cannot be used.
	ErrInvalid = errors.New("invalid configuration")
)

// Config holds all pulse configuration.
type Config struct {
	APIURL    string `mapstructure:"api_url"`
	APIKey    string `mapstructure:"api_key"`
	ProjectID string `mapstructure:"project_id"`

	Debug   bool   `mapstructure:"debug"`
	LogPath string `mapstructure:"log_path"`

	// Command is the executable agent hooks invoke.
	Command string `mapstructure:"command"`

	// EmitTimeout bounds one `pulse emit` invocation.
	EmitTimeout time.Duration `mapstructure:"emit_timeout"`

	Tracing TracingConfig   `mapstructure:"tracing"`
	Flags   map[string]bool `mapstructure:"flags"`
}

// TracingConfig configures the OpenTelemetry mirror of emitted spans.
type TracingConfig struct {
	// Enabled controls whether the mirror provider is built.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the backend: "none", "file", "stdout", "otlp".
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for the "file" exporter.
	// Default: ~/.pulse/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector for the "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate is the sampled fraction, 0.0 to 1.0.
	SampleRate float64 `mapstructure:"sample_rate"`
}

// Connection is the part of the config `pulse init` writes.
type Connection struct {
	APIURL    string
	APIKey    string
	ProjectID string
}

// Defaults returns a Config with default values.
func Defaults() Config {
	tc := tracing.DefaultConfig()
	return Config{
		Command:     "pulse",
		EmitTimeout: 2 * time.Second,
		Tracing: TracingConfig{
			Enabled:      tc.Enabled,
			Exporter:     tc.Exporter,
			OTLPEndpoint: tc.OTLPEndpoint,
			SampleRate:   tc.SampleRate,
		},
		Flags: map[string]bool{},
	}
}

// Load reads path into v and decodes the result. A missing file is not an
// error; defaults and PULSE_* environment variables still apply. Flags bound
// to v by the caller take precedence over the file.
func Load(v *viper.Viper, path string) (Config, error) {
	d := Defaults()
	v.SetDefault("api_url", "")
	v.SetDefault("api_key", "")
	v.SetDefault("project_id", "")
	v.SetDefault("debug", false)
	v.SetDefault("log_path", "")
	v.SetDefault("command", d.Command)
	v.SetDefault("emit_timeout", d.EmitTimeout)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", "")
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if paths.Exists(path) {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			log.ErrorErr(log.CatConfig, "Failed to read config", err, "path", path)
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		log.Debug(log.CatConfig, "No config file", "path", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config %s: %w", path, err)
	}
	if cfg.Flags == nil {
		cfg.Flags = map[string]bool{}
	}
	log.Debug(log.CatConfig, "Loaded config", "path", path, "connected", cfg.Connected())
	return cfg, nil
}

// Sanitized trims whitespace from every connection field and trailing
// slashes from the URL.
func (c Config) Sanitized() Config {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.ProjectID = strings.TrimSpace(c.ProjectID)
	c.Command = strings.TrimSpace(c.Command)
	return c
}

// Connection returns the connection fields.
func (c Config) Connection() Connection {
	return Connection{APIURL: c.APIURL, APIKey: c.APIKey, ProjectID: c.ProjectID}
}

// Connected reports whether every connection field is set.
func (c Config) Connected() bool {
	s := c.Sanitized()
	return s.APIURL != "" && s.APIKey != "" && s.ProjectID != ""
}

// Validate checks the connection and the tracing block.
func (c Config) Validate() error {
	s := c.Sanitized()
	if s.APIURL == "" && s.APIKey == "" && s.ProjectID == "" {
		return ErrNotInitialized
	}
	if err := s.Connection().Validate(); err != nil {
		return err
	}
	if s.EmitTimeout < 0 {
		return fmt.Errorf("%w: emit_timeout must not be negative", ErrInvalid)
	}
	tc := s.TracingConfig("")
	// file_path is defaulted at runtime.
	tc.Enabled = false
	if err := tc.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Validate requires every field and an http(s) URL with a host.
func (c Connection) Validate() error {
	var missing []string
	if strings.TrimSpace(c.APIURL) == "" {
		missing = append(missing, "api_url")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		missing = append(missing, "api_key")
	}
	if strings.TrimSpace(c.ProjectID) == "" {
		missing = append(missing, "project_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalid, strings.Join(missing, ", "))
	}
	u, err := url.Parse(strings.TrimSpace(c.APIURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: api_url must be an http(s) URL, got %q", ErrInvalid, c.APIURL)
	}
	return nil
}

// MaskedKey shows the first four characters of the API key.
func (c Config) MaskedKey() string {
	key := strings.TrimSpace(c.APIKey)
	if key == "" {
		return "(empty)"
	}
	r := []rune(key)
	if len(r) > 4 {
		r = r[:4]
	}
	return string(r) + "***"
}

// TracingConfig converts the tracing block, defaulting the file path under
// home and expanding a leading "~".
func (c Config) TracingConfig(home string) tracing.Config {
	tc := tracing.Config{
		Enabled:      c.Tracing.Enabled,
		Exporter:     c.Tracing.Exporter,
		FilePath:     c.Tracing.FilePath,
		OTLPEndpoint: c.Tracing.OTLPEndpoint,
		SampleRate:   c.Tracing.SampleRate,
		ServiceName:  "pulse",
	}
	if home != "" {
		if tc.FilePath == "" {
			tc.FilePath = DefaultTracesFilePath(home)
		} else {
			tc.FilePath = paths.Expand(tc.FilePath, home)
		}
	}
	return tc
}

// DefaultTracesFilePath is ~/.pulse/traces.jsonl.
func DefaultTracesFilePath(home string) string {
	return filepath.Join(paths.ForHome(home).PulseDir, "traces.jsonl")
}
