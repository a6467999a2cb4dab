// Package config loads server configuration from an optional YAML file and
// the environment.
//
// Precedence, lowest first: built-in defaults, the YAML file (with ${VAR}
// expansion), then environment variables. A .env file in the working
// directory is loaded into the environment before any of this runs, so
// OPENAI_API_KEY can live there during development.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PlaceholderAPIKey is the value shipped in example .env files. It counts as
// no key at all.
const PlaceholderAPIKey = "your_openai_api_key_here"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Storage   StorageConfig   `yaml:"storage"`
	Assistant AssistantConfig `yaml:"assistant"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

type OpenAIConfig struct {
	APIKey           string  `yaml:"api_key"`
	BaseURL          string  `yaml:"base_url"`
	Model            string  `yaml:"model"`
	MaxTokens        int     `yaml:"max_tokens"`
	Temperature      float64 `yaml:"temperature"`
	PresencePenalty  float64 `yaml:"presence_penalty"`
	FrequencyPenalty float64 `yaml:"frequency_penalty"`
	HistoryLimit     int     `yaml:"history_limit"`

	Timeout    time.Duration `yaml:"-"`
	TimeoutRaw string        `yaml:"timeout"`
}

// Configured reports whether a usable credential is present.
func (c OpenAIConfig) Configured() bool {
	key := strings.TrimSpace(c.APIKey)
	return key != "" && key != PlaceholderAPIKey
}

type StorageConfig struct {
	Backend string `yaml:"backend"` // "memory" or "sqlite"
}

type AssistantConfig struct {
	Name string `yaml:"name"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8100",
		},
		OpenAI: OpenAIConfig{
			Model:            "gpt-3.5-turbo",
			MaxTokens:        1000,
			Temperature:      0.7,
			PresencePenalty:  0.1,
			FrequencyPenalty: 0.1,
			HistoryLimit:     10,
			Timeout:          60 * time.Second,
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
		Assistant: AssistantConfig{
			Name: "Pad-i",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are ignored; existing variables are not overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the variable's value, or with the
// empty string when it is unset.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

func applyEnv(cfg *Config) {
	cfg.OpenAI.APIKey = getEnv("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	cfg.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.OpenAI.Model = getEnv("OPENAI_MODEL", cfg.OpenAI.Model)
	cfg.OpenAI.MaxTokens = getEnvAsInt("OPENAI_MAX_TOKENS", cfg.OpenAI.MaxTokens)
	cfg.OpenAI.TimeoutRaw = getEnv("OPENAI_TIMEOUT", cfg.OpenAI.TimeoutRaw)
	cfg.Server.Addr = getEnv("PADI_ADDR", cfg.Server.Addr)
	cfg.Server.StaticDir = getEnv("PADI_STATIC_DIR", cfg.Server.StaticDir)
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(getEnv("PADI_STORAGE", cfg.Storage.Backend)))
	cfg.Assistant.Name = getEnv("PADI_ASSISTANT_NAME", cfg.Assistant.Name)
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
}

func parseDurations(cfg *Config) error {
	if cfg.OpenAI.TimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.OpenAI.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing openai.timeout %q: %w", cfg.OpenAI.TimeoutRaw, err)
		}
		cfg.OpenAI.Timeout = d
	}
	return nil
}

// Validate returns the first problem found, if any.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	switch c.Storage.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("storage.backend must be memory or sqlite, got %q", c.Storage.Backend)
	}
	if c.OpenAI.Model == "" {
		return fmt.Errorf("openai.model is required")
	}
	if c.OpenAI.MaxTokens <= 0 {
		return fmt.Errorf("openai.max_tokens must be positive")
	}
	if c.OpenAI.HistoryLimit < 0 {
		return fmt.Errorf("openai.history_limit must not be negative")
	}
	if c.OpenAI.Timeout < 0 {
		return fmt.Errorf("openai.timeout must not be negative")
	}
	if c.Assistant.Name == "" {
		return fmt.Errorf("assistant.name is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
