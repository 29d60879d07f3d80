// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/Corphon/Chronicle/internal/llm"
	"github.com/Corphon/Chronicle/internal/retry"
)

// 快照存储后端
const (
	SnapshotBackendFile  = "file"
	SnapshotBackendRedis = "redis"
)

// Config 存储应用配置
type Config struct {
	// 基础配置
	Port      string `env:"PORT" envDefault:"8080"`
	DataDir   string `env:"DATA_DIR" envDefault:"data"`
	LogDir    string `env:"LOG_DIR" envDefault:"logs"`
	DebugMode bool   `env:"DEBUG_MODE" envDefault:"false"`

	// 模型提供者
	GeminiAPIKey   string `env:"GEMINI_API_KEY"`
	LegacyAPIKey   string `env:"API_KEY"`
	GeminiBaseURL  string `env:"GEMINI_BASE_URL"`
	MistralBaseURL string `env:"MISTRAL_BASE_URL"`
	StoryModel     string `env:"STORY_MODEL"`
	MistralModel   string `env:"MISTRAL_MODEL"`

	// 重试策略
	RetryMaxAttempts int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"5"`
	RetryBaseDelay   time.Duration `env:"RETRY_BASE_DELAY" envDefault:"4s"`

	// 存档
	SnapshotBackend string `env:"SNAPSHOT_BACKEND" envDefault:"file"`
	RedisAddr       string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`

	// SettingsSecret seals the Mistral key in the settings file when set.
	SettingsSecret string `env:"SETTINGS_SECRET"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`
}

// Load 从 .env 文件和环境变量加载配置，并确保数据目录存在
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}

	for _, dir := range []string{cfg.DataDir, cfg.LogDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return cfg, nil
}

// LoadFromMap parses configuration from an explicit environment, without
// touching the process environment or the filesystem.
func LoadFromMap(environment map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: environment}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) finish() error {
	if c.GeminiAPIKey == "" {
		c.GeminiAPIKey = c.LegacyAPIKey
	}
	c.SnapshotBackend = strings.ToLower(strings.TrimSpace(c.SnapshotBackend))
	return c.Validate()
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.RetryMaxAttempts)
	}
	if c.RetryBaseDelay < 0 {
		return fmt.Errorf("RETRY_BASE_DELAY must not be negative")
	}
	switch c.SnapshotBackend {
	case SnapshotBackendFile, SnapshotBackendRedis:
	default:
		return fmt.Errorf("unsupported SNAPSHOT_BACKEND %q", c.SnapshotBackend)
	}
	return nil
}

// RetryPolicy 返回配置的重试策略
func (c *Config) RetryPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxAttempts = c.RetryMaxAttempts
	p.BaseDelay = c.RetryBaseDelay
	return p
}

// GeminiConfig is the provider config map for the primary backend.
func (c *Config) GeminiConfig() map[string]string {
	return providerConfig(c.GeminiAPIKey, c.GeminiBaseURL, c.StoryModel)
}

// MistralConfig is the provider config map for the secondary backend,
// using the user-supplied key.
func (c *Config) MistralConfig(apiKey string) map[string]string {
	return providerConfig(apiKey, c.MistralBaseURL, c.MistralModel)
}

func providerConfig(apiKey, baseURL, model string) map[string]string {
	cfg := map[string]string{llm.ConfigAPIKey: apiKey}
	if baseURL != "" {
		cfg[llm.ConfigBaseURL] = baseURL
	}
	if model != "" {
		cfg[llm.ConfigDefaultModel] = model
	}
	return cfg
}
