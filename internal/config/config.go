// Package config loads client and server settings with viper.
//
// Precedence, lowest first: defaults, config file, NOTESYNC_* environment,
// flags bound by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix префикс переменных окружения
const EnvPrefix = "NOTESYNC"

// Ключи конфигурации
const (
	KeyServerURL     = "server_url"
	KeyDBPath        = "db_path"
	KeyUserID        = "user_id"
	KeyAccessToken   = "access_token"
	KeyTelemetryFile = "telemetry_file"
	KeyLogLevel      = "log_level"
	KeyAddr          = "addr"
	KeyJWTSecret     = "jwt_secret"
	KeyTokenTTL      = "token_ttl"
	KeyRateLimit     = "rate_limit"
)

// ErrMissingSetting indicates a required key with no value
var ErrMissingSetting = errors.New("missing required setting")

// Client настройки клиента
type Client struct {
	ServerURL     string `mapstructure:"server_url"`
	DBPath        string `mapstructure:"db_path"`
	UserID        string `mapstructure:"user_id"`
	AccessToken   string `mapstructure:"access_token"`
	TelemetryFile string `mapstructure:"telemetry_file"`
	LogLevel      string `mapstructure:"log_level"`
}

// Server настройки сервера
type Server struct {
	Addr          string        `mapstructure:"addr"`
	DBPath        string        `mapstructure:"db_path"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TelemetryFile string        `mapstructure:"telemetry_file"`
	LogLevel      string        `mapstructure:"log_level"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	RateLimit     int           `mapstructure:"rate_limit"`
}

// NewClientViper returns a viper instance with client defaults and environment binding
func NewClientViper() *viper.Viper {
	v := newViper()
	v.SetDefault(KeyServerURL, "http://localhost:8080")
	v.SetDefault(KeyDBPath, defaultClientDB())
	v.SetDefault(KeyUserID, "")
	v.SetDefault(KeyAccessToken, "")
	v.SetDefault(KeyTelemetryFile, "")
	v.SetDefault(KeyLogLevel, "warn")
	return v
}

// NewServerViper returns a viper instance with server defaults and environment binding
func NewServerViper() *viper.Viper {
	v := newViper()
	v.SetDefault(KeyAddr, ":8080")
	v.SetDefault(KeyDBPath, "notesync.db")
	v.SetDefault(KeyJWTSecret, "")
	v.SetDefault(KeyTokenTTL, 24*time.Hour)
	v.SetDefault(KeyRateLimit, 600)
	v.SetDefault(KeyTelemetryFile, "")
	v.SetDefault(KeyLogLevel, "info")
	return v
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// ReadFile merges the config file at path into v. An empty path is a no-op.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return nil
}

// LoadClient decodes client settings from v
func LoadClient(v *viper.Viper) (*Client, error) {
	var cfg Client
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadServer decodes and validates server settings from v
func LoadServer(v *viper.Viper) (*Server, error) {
	var cfg Server
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required server settings
func (c *Server) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("%w: %s", ErrMissingSetting, KeyJWTSecret)
	}
	if c.DBPath == "" {
		return fmt.Errorf("%w: %s", ErrMissingSetting, KeyDBPath)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("%s must be positive, got %s", KeyTokenTTL, c.TokenTTL)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%s must not be negative, got %d", KeyRateLimit, c.RateLimit)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps debug, info, warn and error to slog levels
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", KeyLogLevel, s, err)
	}
	return level, nil
}

// NewLogger creates a text logger on w at level. Unknown levels fall back to info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	l, err := ParseLevel(level)
	if err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}

func defaultClientDB() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "notesync-client.db"
	}
	return filepath.Join(home, ".notesync", "notes.db")
}
