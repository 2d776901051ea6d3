package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  HTTPServerConfig `json:"server" yaml:"server"`
	LLM     LLMConfig        `json:"llm" yaml:"llm"`
	Log     LogConfig        `json:"log" yaml:"log"`
	Metrics MetricsConfig    `json:"metrics" yaml:"metrics"`
}

type HTTPServerConfig struct {
	Host            string        `json:"host" yaml:"host"`
	Port            int           `json:"port" yaml:"port"`
	ReadTimeout     time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type LLMConfig struct {
	APIKey string `json:"api_key" yaml:"api_key"`
	// BaseURL is an OpenAI-compatible root; with APIVersion set it names an Azure OpenAI resource.
	BaseURL     string        `json:"base_url" yaml:"base_url"`
	APIVersion  string        `json:"api_version" yaml:"api_version"`
	Model       string        `json:"model" yaml:"model"`
	Temperature float64       `json:"temperature" yaml:"temperature"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
	MaxRetries  int           `json:"max_retries" yaml:"max_retries"`
}

type LogConfig struct {
	Dir   string `json:"dir" yaml:"dir"`
	Level string `json:"level" yaml:"level"`
	// MaxBytes is the size at which archie.log is rotated.
	MaxBytes int64 `json:"max_bytes" yaml:"max_bytes"`
	Backups  int   `json:"backups" yaml:"backups"`
}

type MetricsConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

var ErrMissingAPIKey = errors.New("LLM_API_KEY env variable is required")

// Default returns the configuration used when neither a file nor the environment says otherwise.
func Default() *Config {
	return &Config{
		Server: HTTPServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     2 * time.Minute,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			Timeout:     30 * time.Second,
			MaxRetries:  3,
		},
		Log: LogConfig{
			Dir:      "./logs",
			Level:    "info",
			MaxBytes: 5 << 20,
			Backups:  5,
		},
		Metrics: MetricsConfig{
			Addr: ":2112",
		},
	}
}

// Load layers defaults, the optional YAML file at path and the environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.LLM.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Host, "SERVER_HOST")
	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setString(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	setString(&cfg.LLM.APIVersion, "LLM_API_VERSION")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	setString(&cfg.Log.Dir, "LOG_DIR")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Metrics.Addr, "METRICS_ADDR")

	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("SERVER_PORT: invalid port %q", v)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("LLM_TEMPERATURE: %w", err)
		}
		cfg.LLM.Temperature = t
	}
	if v := os.Getenv("LLM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LLM_TIMEOUT: %w", err)
		}
		cfg.LLM.Timeout = d
	}
	if v := os.Getenv("LLM_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("LLM_MAX_RETRIES: invalid value %q", v)
		}
		cfg.LLM.MaxRetries = n
	}
	return nil
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

// Addr is the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
