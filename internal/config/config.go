package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete humandex configuration
type Config struct {
	Gemini  GeminiConfig  `yaml:"gemini"`
	Storage StorageConfig `yaml:"storage"`
	Audio   AudioConfig   `yaml:"audio"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

// GeminiConfig contains the remote model settings
type GeminiConfig struct {
	APIKey        string        `yaml:"api_key"`
	BaseURL       string        `yaml:"base_url"`
	AnalysisModel string        `yaml:"analysis_model"`
	VoiceModel    string        `yaml:"voice_model"`
	Voice         string        `yaml:"voice"`
	Temperature   float64       `yaml:"temperature"`
	Timeout       time.Duration `yaml:"timeout"`
}

// StorageConfig contains catalog locations
type StorageConfig struct {
	DBPath    string `yaml:"db_path"`
	LegacyDir string `yaml:"legacy_dir"`
}

// AudioConfig contains narration output settings. The PCM rate itself is
// fixed by the speech service.
type AudioConfig struct {
	OutputDir    string  `yaml:"output_dir"`
	PlaybackRate float64 `yaml:"playback_rate"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig selects where OpenTelemetry spans go. With exporter "none"
// spans are recorded for log correlation but never exported.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Gemini: GeminiConfig{
			BaseURL:       "https://generativelanguage.googleapis.com",
			AnalysisModel: "gemini-2.5-flash",
			VoiceModel:    "gemini-2.5-flash-preview-tts",
			Voice:         "Fenrir",
			Temperature:   1.0,
			Timeout:       60 * time.Second,
		},
		Storage: StorageConfig{
			DBPath:    "data/humandex.db",
			LegacyDir: "data/legacy",
		},
		Audio: AudioConfig{
			OutputDir:    "data/audio",
			PlaybackRate: 1.5,
		},
		Server: ServerConfig{
			Port:            "8888",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    180 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			Enabled:  true,
			Exporter: "none",
		},
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) applyEnv() error {
	for _, o := range []struct {
		env    string
		target *string
	}{
		{"GEMINI_API_KEY", &c.Gemini.APIKey},
		{"HUMANDEX_ANALYSIS_MODEL", &c.Gemini.AnalysisModel},
		{"HUMANDEX_VOICE_MODEL", &c.Gemini.VoiceModel},
		{"HUMANDEX_VOICE", &c.Gemini.Voice},
		{"HUMANDEX_DB_PATH", &c.Storage.DBPath},
		{"HUMANDEX_LEGACY_DIR", &c.Storage.LegacyDir},
		{"HUMANDEX_OUTPUT_DIR", &c.Audio.OutputDir},
		{"HUMANDEX_PORT", &c.Server.Port},
		{"HUMANDEX_LOG_LEVEL", &c.Logging.Level},
		{"HUMANDEX_TRACE_EXPORTER", &c.Tracing.Exporter},
	} {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}

	if v := os.Getenv("HUMANDEX_GEMINI_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid HUMANDEX_GEMINI_TIMEOUT %q: %w", v, err)
		}
		c.Gemini.Timeout = d
	}
	if v := os.Getenv("HUMANDEX_PLAYBACK_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid HUMANDEX_PLAYBACK_RATE %q: %w", v, err)
		}
		c.Audio.PlaybackRate = rate
	}
	return nil
}

// Validate performs validation of the configuration
func (c *Config) Validate() error {
	if err := c.Gemini.Validate(); err != nil {
		return fmt.Errorf("gemini config: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing config: %w", err)
	}
	return nil
}

// Validate validates gemini configuration. The API key is checked separately
// by RequireAPIKey since catalog commands work without it.
func (g *GeminiConfig) Validate() error {
	if g.AnalysisModel == "" {
		return errors.New("analysis_model cannot be empty")
	}
	if g.VoiceModel == "" {
		return errors.New("voice_model cannot be empty")
	}
	if g.Temperature < 0 || g.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", g.Temperature)
	}
	if g.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative, got %s", g.Timeout)
	}
	return nil
}

// RequireAPIKey reports an error when no Gemini API key is configured.
func (g *GeminiConfig) RequireAPIKey() error {
	if g.APIKey == "" {
		return errors.New("GEMINI_API_KEY environment variable not set")
	}
	return nil
}

// Validate validates storage configuration
func (s *StorageConfig) Validate() error {
	if s.DBPath == "" {
		return errors.New("db_path cannot be empty")
	}
	if s.LegacyDir == "" {
		return errors.New("legacy_dir cannot be empty")
	}
	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.OutputDir == "" {
		return errors.New("output_dir cannot be empty")
	}
	if a.PlaybackRate <= 0 || a.PlaybackRate > 4 {
		return fmt.Errorf("playback_rate must be in (0, 4], got %v", a.PlaybackRate)
	}
	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	port, err := strconv.Atoi(s.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %q", s.Port)
	}
	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("level must be one of debug, info, warn, error, got %q", l.Level)
	}
	switch strings.ToLower(l.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("format must be text or json, got %q", l.Format)
	}
	return nil
}

// Validate validates tracing configuration
func (t *TracingConfig) Validate() error {
	switch strings.ToLower(t.Exporter) {
	case "none", "stdout":
		return nil
	default:
		return fmt.Errorf("exporter must be none or stdout, got %q", t.Exporter)
	}
}
