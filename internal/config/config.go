package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int               `yaml:"port"`
		AllowedOrigins []string          `yaml:"allowedOrigins"`
		APIKeys        map[string]string `yaml:"apiKeys"`
		SessionTTL     time.Duration     `yaml:"sessionTTL"`
	} `yaml:"server"`

	Analyzer struct {
		Provider         string        `yaml:"provider"`
		Endpoint         string        `yaml:"endpoint"`
		APIKey           string        `yaml:"apiKey"`
		Model            string        `yaml:"model"`
		Timeout          time.Duration `yaml:"timeout"`
		MaxResponseBytes int64         `yaml:"maxResponseBytes"`
	} `yaml:"analyzer"`

	Notify struct {
		Log            bool          `yaml:"log"`
		WebhookURL     string        `yaml:"webhookURL"`
		WebhookTimeout time.Duration `yaml:"webhookTimeout"`
		NATSURL        string        `yaml:"natsURL"`
		NATSSubject    string        `yaml:"natsSubject"`
		QueueSize      int           `yaml:"queueSize"`
		Workers        int           `yaml:"workers"`
	} `yaml:"notify"`
}

// Load baca .env (kalau ada), lalu file yaml (opsional), lalu env override.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
		// file config opsional, env saja cukup
	default:
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in settings.
func Default() *Config {
	var cfg Config
	cfg.Server.Port = 8080
	cfg.Server.SessionTTL = 30 * time.Minute
	cfg.Analyzer.Provider = "http"
	cfg.Analyzer.Timeout = 30 * time.Second
	cfg.Analyzer.MaxResponseBytes = 1 << 20
	cfg.Notify.Log = true
	cfg.Notify.WebhookTimeout = 2 * time.Second
	cfg.Notify.NATSSubject = "aishield.notify"
	cfg.Notify.QueueSize = 256
	cfg.Notify.Workers = 1
	return &cfg
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ANALYZER_ENDPOINT"); v != "" {
		c.Analyzer.Endpoint = v
	}
	if v := os.Getenv("ANALYZER_PROVIDER"); v != "" {
		c.Analyzer.Provider = v
	}
	if v := os.Getenv("ANALYZER_API_KEY"); v != "" {
		c.Analyzer.APIKey = v
	}
	if v := os.Getenv("ANALYZER_MODEL"); v != "" {
		c.Analyzer.Model = v
	}
	// OPENAI_API_KEY only fills in, it never overrides an explicit key
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.Analyzer.APIKey == "" && c.Analyzer.Provider == "openai" {
		c.Analyzer.APIKey = v
	}
	if v := os.Getenv("NOTIFY_WEBHOOK_URL"); v != "" {
		c.Notify.WebhookURL = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		c.Notify.NATSURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks the settings the service cannot run without.
func (c *Config) Validate() error {
	switch c.Analyzer.Provider {
	case "http":
		if c.Analyzer.Endpoint == "" {
			return fmt.Errorf("analyzer.endpoint is required (or ANALYZER_ENDPOINT)")
		}
	case "openai":
		if c.Analyzer.APIKey == "" {
			return fmt.Errorf("analyzer.apiKey is required for the openai provider (or OPENAI_API_KEY)")
		}
	default:
		return fmt.Errorf("invalid analyzer.provider: %q (allowed: http, openai)", c.Analyzer.Provider)
	}
	if c.Analyzer.Endpoint != "" {
		u, err := url.Parse(c.Analyzer.Endpoint)
		if err != nil {
			return fmt.Errorf("invalid analyzer.endpoint: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid analyzer.endpoint scheme: %s (allowed: http, https)", u.Scheme)
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if c.Analyzer.Timeout <= 0 {
		return fmt.Errorf("analyzer.timeout must be positive")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
