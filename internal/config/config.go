// Package config loads server settings from config.json and the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"

	"pantrychef/internal/storage"
)

// AI providers.
const (
	ProviderGemini = "gemini"
	ProviderLocal  = "local"
)

// DefaultPath is where Load looks for the config file.
const DefaultPath = "config.json"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the application configuration.
type Config struct {
	Provider      string `json:"ai_provider"`
	GeminiAPIKey  string `json:"gemini_api_key"`
	GeminiModel   string `json:"gemini_model"`
	LocalLLMURL   string `json:"local_llm_url"`
	LocalLLMModel string `json:"local_llm_model"`

	Storage      string `json:"storage"`
	DataDir      string `json:"data_dir"`
	StorageQuota int    `json:"storage_quota_bytes"`
	DatabaseURL  string `json:"DATABASE_URL"`
	RedisURL     string `json:"redis_url"`
	RedisPrefix  string `json:"redis_prefix"`

	ListenAddr     string        `json:"listen_addr"`
	AllowOrigins   []string      `json:"allow_origins"`
	LogMode        string        `json:"log_mode"`
	RequestTimeout time.Duration `json:"-"`
	TimeoutSeconds int           `json:"request_timeout_seconds"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Provider:       ProviderGemini,
		Storage:        storage.BackendFile,
		DataDir:        "data",
		StorageQuota:   5 << 20,
		RedisPrefix:    "pantrychef:",
		ListenAddr:     ":8080",
		AllowOrigins:   []string{"http://localhost:8081"},
		LogMode:        "development",
		RequestTimeout: 45 * time.Second,
	}
}

// Load builds the configuration: defaults, then the JSON file at path if it
// exists, then environment variables. A .env file in the working directory is
// loaded into the environment first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	if c.TimeoutSeconds > 0 {
		c.RequestTimeout = time.Duration(c.TimeoutSeconds) * time.Second
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Provider, "AI_PROVIDER")
	setString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.GeminiAPIKey, "GOOGLE_GENAI_API_KEY")
	setString(&c.GeminiModel, "GEMINI_MODEL")
	setString(&c.LocalLLMURL, "LOCAL_LLM_URL")
	setString(&c.LocalLLMModel, "LOCAL_LLM_MODEL")
	setString(&c.Storage, "STORAGE")
	setString(&c.DataDir, "DATA_DIR")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.RedisURL, "REDIS_URL")
	setString(&c.RedisPrefix, "REDIS_PREFIX")
	setString(&c.ListenAddr, "LISTEN_ADDR")
	setString(&c.LogMode, "LOG_MODE")

	if port := os.Getenv("PORT"); port != "" && os.Getenv("LISTEN_ADDR") == "" {
		c.ListenAddr = ":" + port
	}
	if origins := os.Getenv("ALLOW_ORIGINS"); origins != "" {
		c.AllowOrigins = splitList(origins)
	}
	if v := os.Getenv("STORAGE_QUOTA_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: STORAGE_QUOTA_BYTES: %v", ErrInvalid, err)
		}
		c.StorageQuota = n
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: REQUEST_TIMEOUT: %v", ErrInvalid, err)
		}
		c.RequestTimeout = d
	}
	return nil
}

// Validate checks that the selected provider and storage backend have what
// they need.
func (c *Config) Validate() error {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.Storage = strings.ToLower(strings.TrimSpace(c.Storage))

	switch c.Provider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: gemini provider needs gemini_api_key or GOOGLE_GENAI_API_KEY", ErrInvalid)
		}
	case ProviderLocal:
	default:
		return fmt.Errorf("%w: unknown ai provider %q", ErrInvalid, c.Provider)
	}

	switch c.Storage {
	case storage.BackendMemory:
	case storage.BackendFile:
		if c.DataDir == "" {
			return fmt.Errorf("%w: file storage needs data_dir", ErrInvalid)
		}
	case storage.BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: postgres storage needs DATABASE_URL", ErrInvalid)
		}
	case storage.BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: redis storage needs redis_url", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalid, c.Storage)
	}

	if c.StorageQuota < 0 {
		return fmt.Errorf("%w: storage quota cannot be negative", ErrInvalid)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive", ErrInvalid)
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	return lo.FilterMap(strings.Split(s, ","), func(part string, _ int) (string, bool) {
		part = strings.TrimSpace(part)
		return part, part != ""
	})
}
