/*
Package config loads the TOML configuration file.

PURPOSE:
  Central configuration for the server binary: listen address, database
  path, JWT secret, CORS origins and logging. Everything has a sane
  default so the binary runs with no config file at all; a missing JWT
  secret is the one hard error because it would make every token pass.

SEE ALSO:
  - cmd/server/main.go: loads config at startup
  - api/auth.go: consumes the JWT secret
*/
package config

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server struct {
		Addr      string `toml:"addr"`
		JWTSecret string `toml:"jwt_secret"`
	} `toml:"server"`

	Database struct {
		Path string `toml:"path"`
	} `toml:"database"`

	CORS struct {
		AllowedOrigins []string `toml:"allowed_origins"`
	} `toml:"cors"`

	Logging struct {
		File  string `toml:"file"`
		Level string `toml:"level"`
	} `toml:"logging"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8080"
	cfg.Database.Path = "leave-engine.db"
	cfg.CORS.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	cfg.Logging.File = "logs/leave-engine.log"
	cfg.Logging.Level = "info"
	return cfg
}

// Load reads the TOML file at path, falling back to defaults for any
// unset field. The JWT secret may also come from the LEAVE_JWT_SECRET
// environment variable; one of the two must provide it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, err
		}
	}

	if env := os.Getenv("LEAVE_JWT_SECRET"); env != "" {
		cfg.Server.JWTSecret = env
	}
	if cfg.Server.JWTSecret == "" {
		return nil, errors.New("jwt_secret is required (config file or LEAVE_JWT_SECRET)")
	}
	return cfg, nil
}

// LogLevel maps the configured level string onto slog.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
