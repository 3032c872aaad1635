package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment" validate:"omitempty,oneof=development production"`
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Logging     LoggingConfig    `toml:"logging"`
	Processing  ProcessingConfig `toml:"processing"`
	LLM         LLMConfig        `toml:"llm"`
	Claude      ClaudeConfig     `toml:"claude"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Client      ClientConfig     `toml:"client"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Output []string `toml:"output"` // "stdout", "file"
}

// ProcessingConfig controls the worker-side extraction engine.
type ProcessingConfig struct {
	JobTTL        string  `toml:"job_ttl"`        // e.g. "30m" - stale job sweep threshold
	SweepSchedule string  `toml:"sweep_schedule"` // cron spec for the stale-job janitor
	RateLimitRPS  float64 `toml:"rate_limit_rps"` // LLM calls per second
	RateBurst     int     `toml:"rate_burst"`
}

// LLMConfig selects the extraction provider.
type LLMConfig struct {
	DefaultProvider string `toml:"default_provider" validate:"omitempty,oneof=claude gemini"`
}

type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"` // e.g. "5m"
	Temperature float32 `toml:"temperature"`
}

type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

// ClientConfig configures the field-processing client.
type ClientConfig struct {
	BackendURL    string `toml:"backend_url" validate:"omitempty,url"`
	StartTimeout  string `toml:"start_timeout"`  // e.g. "30s" - job-start call budget
	StreamRetries int    `toml:"stream_retries"` // reconnect attempts on stream transport errors
}

// NewDefaultConfig returns a Config populated with defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/fieldrun",
				ResetOnStartup: false,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Processing: ProcessingConfig{
			JobTTL:        "30m",
			SweepSchedule: "*/5 * * * *",
			RateLimitRPS:  1,
			RateBurst:     2,
		},
		LLM: LLMConfig{
			DefaultProvider: "claude",
		},
		Claude: ClaudeConfig{
			APIKey:      "", // User must provide API key (ANTHROPIC_API_KEY or config)
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   8192,
			Timeout:     "5m",
			Temperature: 0.2,
		},
		Gemini: GeminiConfig{
			APIKey:      "",
			Model:       "gemini-3-flash-preview",
			Timeout:     "5m",
			Temperature: 0.2,
		},
		Client: ClientConfig{
			BackendURL:    "http://localhost:8085",
			StartTimeout:  "30s",
			StreamRetries: 3,
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files. Later files
// override earlier files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the structural constraints on the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FIELDRUN_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("FIELDRUN_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("FIELDRUN_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("FIELDRUN_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("FIELDRUN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}

	if backendURL := os.Getenv("FIELDRUN_BACKEND_URL"); backendURL != "" {
		config.Client.BackendURL = backendURL
	}
}

// StartTimeoutDuration returns the parsed job-start timeout, defaulting to
// 30 seconds when unset or unparseable.
func (c *ClientConfig) StartTimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(c.StartTimeout); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

// JobTTLDuration returns the parsed stale-job threshold, defaulting to 30
// minutes when unset or unparseable.
func (c *ProcessingConfig) JobTTLDuration() time.Duration {
	if d, err := time.ParseDuration(c.JobTTL); err == nil && d > 0 {
		return d
	}
	return 30 * time.Minute
}
