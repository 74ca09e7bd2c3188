package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/natefinch/atomic"

	"github.com/CTAG07/gsql/pkg/sqltpl"
)

// Config holds the CLI configuration.
type Config struct {
	DatabasePath string         `json:"database_path"`
	TemplateDir  string         `json:"template_dir"`
	BindStyle    string         `json:"bind_style"`
	LogLevel     string         `json:"log_level"`
	Renderer     *sqltpl.Config `json:"renderer_config"`
}

// DefaultConfig creates a CLI configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		DatabasePath: "./gsql.db?_journal_mode=WAL&_busy_timeout=5000",
		TemplateDir:  "./templates",
		BindStyle:    "named",
		LogLevel:     "warn",
		Renderer:     sqltpl.DefaultConfig(),
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Warn instead of failing, the CLI can still run with defaults.
				fmt.Fprintf(os.Stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
