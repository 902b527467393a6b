package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the client daemon
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Control ControlConfig `yaml:"control"`
	Storage StorageConfig `yaml:"storage"`
	Sync    SyncConfig    `yaml:"sync"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds the remote backend endpoints
type ServerConfig struct {
	BaseURL string `yaml:"base_url"`
	WSURL   string `yaml:"ws_url"`
}

// ControlConfig holds the local control API configuration
type ControlConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds local persistence configuration
type StorageConfig struct {
	Path string `yaml:"path"`
}

// SyncConfig holds reconciliation tuning
type SyncConfig struct {
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	ReconnectMaxSeconds int `yaml:"reconnect_max_seconds"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Server.BaseURL == "" {
		return nil, fmt.Errorf("server.base_url is required")
	}
	if cfg.Server.WSURL == "" {
		return nil, fmt.Errorf("server.ws_url is required")
	}
	if cfg.Sync.PollIntervalSeconds <= 0 {
		cfg.Sync.PollIntervalSeconds = 4
	}
	if cfg.Sync.ReconnectMaxSeconds <= 0 {
		cfg.Sync.ReconnectMaxSeconds = 30
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "client.db"
	}

	return &cfg, nil
}

// PollInterval returns the sent-request poll interval as a duration
func (c *SyncConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// ReconnectMax returns the channel reconnect backoff ceiling
func (c *SyncConfig) ReconnectMax() time.Duration {
	return time.Duration(c.ReconnectMaxSeconds) * time.Second
}
