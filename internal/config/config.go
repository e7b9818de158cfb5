package config

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	Bind           string `mapstructure:"BIND"`
	Port           int    `mapstructure:"PORT"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	LogFormat      string `mapstructure:"LOG_FORMAT"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	// Party coordination timings.
	DisconnectGrace           time.Duration `mapstructure:"DISCONNECT_GRACE"`
	CountdownSeconds          int           `mapstructure:"COUNTDOWN_SECONDS"`
	ChallengeCountdownSeconds int           `mapstructure:"CHALLENGE_COUNTDOWN_SECONDS"`
	SpectatorDelay            time.Duration `mapstructure:"SPECTATOR_DELAY"`
	MaxSpectators             int           `mapstructure:"MAX_SPECTATORS"`
}

var AppConfig *Config

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"database-url":     "DATABASE_URL",
	"jwt-secret":       "JWT_SECRET",
	"bind":             "BIND",
	"port":             "PORT",
	"log-level":        "LOG_LEVEL",
	"log-format":       "LOG_FORMAT",
	"disconnect-grace": "DISCONNECT_GRACE",
	"spectator-delay":  "SPECTATOR_DELAY",
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("BIND", "0.0.0.0")
	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("DISCONNECT_GRACE", 30*time.Second)
	v.SetDefault("COUNTDOWN_SECONDS", 3)
	v.SetDefault("CHALLENGE_COUNTDOWN_SECONDS", 5)
	v.SetDefault("SPECTATOR_DELAY", 2*time.Second)
	v.SetDefault("MAX_SPECTATORS", 20)
}

// BindFlags binds the flags of fs that have a configuration key. Only flags
// the user actually set override the environment.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return eris.Wrapf(err, "failed to bind flag --%s", name)
		}
	}
	return nil
}

// LoadConfig loads the configuration from a .env file in dir, environment
// variables and any bound flags, validates it and stores it in AppConfig.
func LoadConfig(v *viper.Viper, dir string) (*Config, error) {
	SetDefaults(v)

	v.AddConfigPath(dir)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, eris.Wrap(err, "failed to read .env file")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, eris.Wrap(err, "unable to decode configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	AppConfig = cfg
	return cfg, nil
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return eris.New("JWT_SECRET must be set")
	}
	if c.Port < 1 || c.Port > 65535 {
		return eris.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil || c.LogLevel == "" {
		return eris.Errorf("invalid log level: %s (must be 'debug', 'info', 'warn', or 'error')", c.LogLevel)
	}
	if c.LogFormat != "json" && c.LogFormat != "pretty" {
		return eris.Errorf("invalid log format: %s (must be 'json' or 'pretty')", c.LogFormat)
	}
	if c.DisconnectGrace <= 0 {
		return eris.New("DISCONNECT_GRACE must be positive")
	}
	if c.SpectatorDelay < 0 {
		return eris.New("SPECTATOR_DELAY cannot be negative")
	}
	if c.CountdownSeconds < 0 || c.ChallengeCountdownSeconds < 0 {
		return eris.New("countdowns cannot be negative")
	}
	if c.MaxSpectators < 1 {
		return eris.New("MAX_SPECTATORS must be at least 1")
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// Origins returns the websocket origins allowed to connect. An empty list
// accepts any origin.
func (c *Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
