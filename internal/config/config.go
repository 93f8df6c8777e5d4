package config

import "time"

// Config holds server and inbox client configuration values.
type Config struct {
	Addr               string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout  time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath       string        `mapstructure:"database_path" yaml:"database_path"`
	JWTSecret          string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer          string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience        string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL             time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`
	LogLevel           string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat          string        `mapstructure:"log_format" yaml:"log_format"`
	MaxMessageBytes    int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	Inbox              InboxConfig   `mapstructure:"inbox" yaml:"inbox"`
}

// InboxConfig configures the conversation client (cmd/inbox).
type InboxConfig struct {
	ServerURL         string        `mapstructure:"server_url" yaml:"server_url"`
	Email             string        `mapstructure:"email" yaml:"email"`
	Password          string        `mapstructure:"password" yaml:"password"`
	PollInterval      time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	SendTimeout       time.Duration `mapstructure:"send_timeout" yaml:"send_timeout"`
	ReconnectInterval time.Duration `mapstructure:"reconnect_interval" yaml:"reconnect_interval"`
	WatchBuffer       int           `mapstructure:"watch_buffer" yaml:"watch_buffer"`
	LabelCacheTTL     time.Duration `mapstructure:"label_cache_ttl" yaml:"label_cache_ttl"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":8080",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		DatabasePath:       "lostfound.db",
		JWTSecret:          "change-me",
		JWTIssuer:          "lostfound",
		JWTAudience:        "lostfound",
		JWTTTL:             24 * time.Hour,
		LogLevel:           "info",
		LogFormat:          "console",
		MaxMessageBytes:    4096,
		RateLimitPerMinute: 120,
		Inbox: InboxConfig{
			ServerURL:         "http://localhost:8080",
			PollInterval:      3 * time.Second,
			SendTimeout:       15 * time.Second,
			ReconnectInterval: 5 * time.Second,
			WatchBuffer:       16,
			LabelCacheTTL:     5 * time.Minute,
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
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.Inbox.ServerURL != "" {
		c.Inbox.ServerURL = other.Inbox.ServerURL
	}
	if other.Inbox.Email != "" {
		c.Inbox.Email = other.Inbox.Email
	}
	if other.Inbox.Password != "" {
		c.Inbox.Password = other.Inbox.Password
	}
	if other.Inbox.PollInterval != 0 {
		c.Inbox.PollInterval = other.Inbox.PollInterval
	}
	if other.Inbox.SendTimeout != 0 {
		c.Inbox.SendTimeout = other.Inbox.SendTimeout
	}
}
