package config

import "time"

// Config holds server and client configuration values.
type Config struct {
	Addr               string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout  time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath       string        `mapstructure:"database_path" yaml:"database_path"`
	MaxMessageBytes    int           `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	HistoryLimit       int           `mapstructure:"history_limit" yaml:"history_limit"`
	LogLevel           string        `mapstructure:"log_level" yaml:"log_level"`
	Client             ClientConfig  `mapstructure:"client" yaml:"client"`
}

// ClientConfig configures the terminal client.
type ClientConfig struct {
	ServerURL  string        `mapstructure:"server_url" yaml:"server_url"`
	DataDir    string        `mapstructure:"data_dir" yaml:"data_dir"`
	AckTimeout time.Duration `mapstructure:"ack_timeout" yaml:"ack_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":4000",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		DatabasePath:       "chatroom.db",
		MaxMessageBytes:    2000,
		RateLimitPerMinute: 60,
		HistoryLimit:       200,
		LogLevel:           "info",
		Client: ClientConfig{
			ServerURL:  "ws://localhost:4000/ws",
			DataDir:    ".chatroom",
			AckTimeout: 5 * time.Second,
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = other.RateLimitPerMinute
	}
	if other.HistoryLimit != 0 {
		c.HistoryLimit = other.HistoryLimit
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.Client.ServerURL != "" {
		c.Client.ServerURL = other.Client.ServerURL
	}
	if other.Client.DataDir != "" {
		c.Client.DataDir = other.Client.DataDir
	}
	if other.Client.AckTimeout != 0 {
		c.Client.AckTimeout = other.Client.AckTimeout
	}
}
