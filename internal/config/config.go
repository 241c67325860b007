// Package config loads a2v settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all client configuration.
//
// Environment Variables:
// - A2V_API_BASE_URL: conversion API base (default: http://localhost:8000/api)
// - A2V_POLL_INTERVAL_MS: job/batch status poll interval (default: 750)
// - A2V_HEALTH_INTERVAL_S: health check interval (default: 30)
// - A2V_CROSSFADE_MS: media crossfade duration (default: 400)
// - A2V_DB_PATH: history database file (default: <user config dir>/a2v/history.sqlite)
// - A2V_MPV_PATH: mpv binary (default: mpv)
// - A2V_DOWNLOAD_DIR: where downloads are saved (default: ~/Downloads/a2v)
// - A2V_LOG_LEVEL: debug|info|warn|error (default: info)
// - A2V_LOG_FILE: log file (default: <user config dir>/a2v/a2v.log)
type Config struct {
	API      APIConfig      `json:"api"`
	Playback PlaybackConfig `json:"playback"`
	Storage  StorageConfig  `json:"storage"`
	Log      LogConfig      `json:"log"`
}

type APIConfig struct {
	BaseURL        string        `json:"base_url"`
	PollInterval   time.Duration `json:"poll_interval"`
	HealthInterval time.Duration `json:"health_interval"`
}

type PlaybackConfig struct {
	MPVPath   string        `json:"mpv_path"`
	Crossfade time.Duration `json:"crossfade"`
}

type StorageConfig struct {
	DBPath      string `json:"db_path"`
	DownloadDir string `json:"download_dir"`
}

type LogConfig struct {
	Level string `json:"level"`
	File  string `json:"file"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// WithBaseURL overrides the API base URL.
func WithBaseURL(base string) Option {
	return func(c *Config) { c.API.BaseURL = base }
}

// WithDBPath overrides the history database path.
func WithDBPath(path string) Option {
	return func(c *Config) { c.Storage.DBPath = path }
}

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	dataDir := defaultDataDir()

	cfg := &Config{
		API: APIConfig{
			BaseURL:        getEnvString("A2V_API_BASE_URL", "http://localhost:8000/api"),
			PollInterval:   time.Duration(getEnvInt("A2V_POLL_INTERVAL_MS", 750)) * time.Millisecond,
			HealthInterval: time.Duration(getEnvInt("A2V_HEALTH_INTERVAL_S", 30)) * time.Second,
		},
		Playback: PlaybackConfig{
			MPVPath:   getEnvString("A2V_MPV_PATH", "mpv"),
			Crossfade: time.Duration(getEnvInt("A2V_CROSSFADE_MS", 400)) * time.Millisecond,
		},
		Storage: StorageConfig{
			DBPath:      getEnvString("A2V_DB_PATH", filepath.Join(dataDir, "history.sqlite")),
			DownloadDir: getEnvString("A2V_DOWNLOAD_DIR", defaultDownloadDir()),
		},
		Log: LogConfig{
			Level: getEnvString("A2V_LOG_LEVEL", "info"),
			File:  getEnvString("A2V_LOG_FILE", filepath.Join(dataDir, "a2v.log")),
		},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("A2V_API_BASE_URL must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.API.PollInterval <= 0 {
		return fmt.Errorf("A2V_POLL_INTERVAL_MS must be positive")
	}
	if c.API.HealthInterval <= 0 {
		return fmt.Errorf("A2V_HEALTH_INTERVAL_S must be positive")
	}
	if c.Playback.Crossfade < 0 {
		return fmt.Errorf("A2V_CROSSFADE_MS must not be negative")
	}
	if strings.TrimSpace(c.Storage.DBPath) == "" {
		return fmt.Errorf("A2V_DB_PATH is required")
	}
	return nil
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "a2v")
}

func defaultDownloadDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "a2v-downloads")
	}
	return filepath.Join(home, "Downloads", "a2v")
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
