package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Upload   UploadConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// DatabaseConfig selects and addresses the storage backend.
// Driver is "postgres" (URL is a postgres:// DSN) or "sqlite" (URL is a file path).
type DatabaseConfig struct {
	Driver string
	URL    string
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string
	IncludeCaller bool
}

// UploadConfig bounds batch uploads.
type UploadConfig struct {
	MaxBytes int64
}

// Default returns the configuration used when nothing is provided.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			URL:    "./data/polimport.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Upload: UploadConfig{
			MaxBytes: 10 << 20,
		},
	}
}

// Load reads configuration with the precedence environment > config file >
// defaults. Environment variables use the POLIMPORT_ prefix, e.g.
// POLIMPORT_DATABASE_URL.
func Load(configPath string) (Config, error) {
	defaults := Default()

	v := viper.New()
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.read_timeout", defaults.Server.ReadTimeout.String())
	v.SetDefault("server.write_timeout", defaults.Server.WriteTimeout.String())
	v.SetDefault("server.allowed_origins", defaults.Server.AllowedOrigins)
	v.SetDefault("database.driver", defaults.Database.Driver)
	v.SetDefault("database.url", defaults.Database.URL)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.include_caller", defaults.Logging.IncludeCaller)
	v.SetDefault("upload.max_bytes", defaults.Upload.MaxBytes)

	v.SetEnvPrefix("POLIMPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := Config{
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			ReadTimeout:    v.GetDuration("server.read_timeout"),
			WriteTimeout:   v.GetDuration("server.write_timeout"),
			AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
		},
		Database: DatabaseConfig{
			Driver: v.GetString("database.driver"),
			URL:    v.GetString("database.url"),
		},
		Logging: LoggingConfig{
			Level:         v.GetString("logging.level"),
			Format:        v.GetString("logging.format"),
			IncludeCaller: v.GetBool("logging.include_caller"),
		},
		Upload: UploadConfig{
			MaxBytes: v.GetInt64("upload.max_bytes"),
		},
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout <= 0 || cfg.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database driver must be postgres or sqlite, got %q", cfg.Database.Driver)
	}
	if strings.TrimSpace(cfg.Database.URL) == "" {
		return fmt.Errorf("database url is required")
	}
	if cfg.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload max_bytes must be positive, got %d", cfg.Upload.MaxBytes)
	}
	return nil
}
