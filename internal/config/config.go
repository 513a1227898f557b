package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// AdminKey is a static key that grants the admin role on login. Empty disables it.
	AdminKey    string `mapstructure:"admin_key" yaml:"admin_key"`
	JWTSecret   string `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string `mapstructure:"jwt_audience" yaml:"jwt_audience"`

	DefaultRooms    []string `mapstructure:"default_rooms" yaml:"default_rooms"`
	AllowAdhocRooms bool     `mapstructure:"allow_adhoc_rooms" yaml:"allow_adhoc_rooms"`

	MaxMessageBytes    int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimitPerMinute int   `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
	EventBuffer        int   `mapstructure:"event_buffer" yaml:"event_buffer"`
	MaxChatLength      int   `mapstructure:"max_chat_length" yaml:"max_chat_length"`

	// WriteTimeout bounds a single socket write; a client that stalls longer is dropped.
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`

	ControlRequestTimeout time.Duration `mapstructure:"control_request_timeout" yaml:"control_request_timeout"`
	ControlIdleTimeout    time.Duration `mapstructure:"control_idle_timeout" yaml:"control_idle_timeout"`
	SweepInterval         time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`

	MetricsEnabled bool `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:                  ":3000",
		ReadHeaderTimeout:     5 * time.Second,
		ShutdownTimeout:       5 * time.Second,
		LogLevel:              "info",
		JWTSecret:             "change-me",
		JWTIssuer:             "voxroom",
		JWTAudience:           "voxroom",
		DefaultRooms:          []string{"Genel Sohbet", "Oyun Odası"},
		AllowAdhocRooms:       true,
		MaxMessageBytes:       1 << 20,
		WriteTimeout:          10 * time.Second,
		RateLimitPerMinute:    1200,
		EventBuffer:           256,
		MaxChatLength:         2000,
		ControlRequestTimeout: 30 * time.Second,
		ControlIdleTimeout:    2 * time.Minute,
		SweepInterval:         5 * time.Second,
		MetricsEnabled:        true,
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
	if other.WriteTimeout != 0 {
		c.WriteTimeout = other.WriteTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.AdminKey != "" {
		c.AdminKey = other.AdminKey
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if len(other.DefaultRooms) > 0 {
		c.DefaultRooms = other.DefaultRooms
	}
}
