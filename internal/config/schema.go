// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for a-movies.
package config

import "time"

// Config is the top-level configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Store   StoreConfig   `yaml:"store"`
	Trakt   TraktConfig   `yaml:"trakt"`
	Agent   AgentConfig   `yaml:"agent"`
	Session SessionConfig `yaml:"session"`
	Sync    SyncConfig    `yaml:"sync"`
}

// ServerConfig holds HTTP gateway settings.
type ServerConfig struct {
	Bind            string        `yaml:"bind"`
	BearerToken     string        `yaml:"bearer_token"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig holds settings for the external file-store collection that
// persists memory records.
type StoreConfig struct {
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url"`
	Collection string        `yaml:"collection"`
	Purpose    string        `yaml:"purpose"`
	Timeout    time.Duration `yaml:"timeout"`
}

// TraktConfig holds credentials for the tracking service. Both fields are
// optional; when either is empty all mirroring features degrade to
// memory-only operation.
type TraktConfig struct {
	ClientID    string        `yaml:"client_id"`
	AccessToken string        `yaml:"access_token"`
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

// IsConfigured reports whether both Trakt credentials are present.
func (c TraktConfig) IsConfigured() bool {
	return c.ClientID != "" && c.AccessToken != ""
}

// AgentConfig holds settings for the conversational agent.
type AgentConfig struct {
	APIKey        string        `yaml:"api_key"`
	Model         string        `yaml:"model"`
	MaxTokens     int           `yaml:"max_tokens"`
	MaxIterations int           `yaml:"max_iterations"`
	Timeout       time.Duration `yaml:"timeout"`
	HistoryWindow int           `yaml:"history_window"`
	SystemPrompt  string        `yaml:"system_prompt"`
}

// SessionConfig holds settings for the sqlite chat-history store.
// An empty purge schedule disables the purge job.
type SessionConfig struct {
	Path          string        `yaml:"path"`
	WAL           *bool         `yaml:"wal"`
	BusyTimeout   int           `yaml:"busy_timeout"`
	PurgeSchedule string        `yaml:"purge_schedule"`
	MaxAge        time.Duration `yaml:"max_age"`
}

// SyncConfig controls the periodic Trakt history import job.
// An empty schedule disables the job.
type SyncConfig struct {
	Schedule string `yaml:"schedule"`
	Limit    int    `yaml:"limit"`
}

// Defaults fills zero values with sensible defaults across all sections.
func (c *Config) Defaults() {
	if c.Server.Bind == "" {
		c.Server.Bind = "127.0.0.1:3000"
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}

	if c.Store.BaseURL == "" {
		c.Store.BaseURL = "https://api.openai.com/v1"
	}
	if c.Store.Purpose == "" {
		c.Store.Purpose = "assistants"
	}
	if c.Store.Timeout <= 0 {
		c.Store.Timeout = 30 * time.Second
	}

	if c.Trakt.BaseURL == "" {
		c.Trakt.BaseURL = "https://api.trakt.tv"
	}
	if c.Trakt.Timeout <= 0 {
		c.Trakt.Timeout = 30 * time.Second
	}

	if c.Agent.MaxTokens <= 0 {
		c.Agent.MaxTokens = 4096
	}
	if c.Agent.MaxIterations <= 0 {
		c.Agent.MaxIterations = 10
	}
	if c.Agent.Timeout <= 0 {
		c.Agent.Timeout = 2 * time.Minute
	}
	if c.Agent.HistoryWindow <= 0 {
		c.Agent.HistoryWindow = 20
	}

	if c.Session.BusyTimeout <= 0 {
		c.Session.BusyTimeout = 5000
	}
	if c.Session.MaxAge <= 0 {
		c.Session.MaxAge = 30 * 24 * time.Hour
	}

	if c.Sync.Limit <= 0 {
		c.Sync.Limit = 100
	}
}
