// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigDir is the default configuration directory
	DefaultConfigDir = ".mindy/configs"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.json"
)

// Load reads configuration from ~/.mindy/configs/config.json
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, DefaultConfigDir)

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(configPath)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, use defaults
			return loadFromDefaults(v)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromPath loads configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	homeDir, _ := os.UserHomeDir()

	// Storage defaults
	v.SetDefault("storage.data_root", filepath.Join(homeDir, ".mindy/data"))

	// Database defaults
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.sqlite_path", filepath.Join(homeDir, ".mindy/db/mindy.db"))

	// Context budget defaults
	v.SetDefault("context.max_history_turns", 40)
	v.SetDefault("context.recent_notes", 5)
	v.SetDefault("context.max_notes", 10)
	v.SetDefault("context.max_directives", 10)
	v.SetDefault("context.per_file_chars", 8000)
	v.SetDefault("context.budget_chars", 24000)

	// Generation defaults
	v.SetDefault("generation.provider", "openai")
	v.SetDefault("generation.model", "gpt-4.1-mini")
	v.SetDefault("generation.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("generation.timeout_seconds", 60)

	// Voice defaults
	v.SetDefault("voice.enabled", false)
	v.SetDefault("voice.model", "tts-1")
	v.SetDefault("voice.voice", "nova")
	v.SetDefault("voice.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("voice.timeout_seconds", 60)

	// Security defaults
	v.SetDefault("security.token_ttl_hours", 24)

	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8487)
	v.SetDefault("server.maintenance_interval_minutes", 30)
}

// loadFromDefaults creates a config from default values
func loadFromDefaults(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default config: %w", err)
	}
	return &cfg, nil
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.Storage.DataRoot == "" {
		return fmt.Errorf("storage.data_root is required")
	}

	// Validate database type
	if cfg.Database.Type != "sqlite" && cfg.Database.Type != "postgres" {
		return fmt.Errorf("database.type must be 'sqlite' or 'postgres', got '%s'", cfg.Database.Type)
	}

	// Validate database connection info
	if cfg.Database.Type == "sqlite" && cfg.Database.SQLitePath == "" {
		return fmt.Errorf("database.sqlite_path is required when type is 'sqlite'")
	}
	if cfg.Database.Type == "postgres" && cfg.Database.PostgresDSN == "" {
		return fmt.Errorf("database.postgres_dsn is required when type is 'postgres'")
	}

	// Validate context budgets
	if cfg.Context.MaxHistoryTurns < 1 {
		return fmt.Errorf("context.max_history_turns must be at least 1, got %d", cfg.Context.MaxHistoryTurns)
	}
	if cfg.Context.PerFileChars < 1 {
		return fmt.Errorf("context.per_file_chars must be at least 1, got %d", cfg.Context.PerFileChars)
	}
	if cfg.Context.BudgetChars < cfg.Context.PerFileChars {
		return fmt.Errorf("context.budget_chars must be at least per_file_chars (%d), got %d",
			cfg.Context.PerFileChars, cfg.Context.BudgetChars)
	}

	// Validate generation provider
	if cfg.Generation.Provider != "" && !IsValidGenerationProvider(cfg.Generation.Provider) {
		return fmt.Errorf("generation.provider must be one of %v, got '%s'",
			ValidGenerationProviders(), cfg.Generation.Provider)
	}
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = GenerationProviderOpenAI
	}
	if cfg.Generation.TimeoutSeconds < 1 {
		return fmt.Errorf("generation.timeout_seconds must be at least 1, got %d", cfg.Generation.TimeoutSeconds)
	}

	// Validate security settings
	if cfg.Security.TokenTTL < 1 {
		return fmt.Errorf("security.token_ttl_hours must be at least 1, got %d", cfg.Security.TokenTTL)
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, DefaultConfigDir)
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Storage: StorageConfig{
			DataRoot: filepath.Join(homeDir, ".mindy/data"),
		},
		Database: DatabaseConfig{
			Type:       "sqlite",
			SQLitePath: filepath.Join(homeDir, ".mindy/db/mindy.db"),
		},
		Context: ContextConfig{
			MaxHistoryTurns: 40,
			RecentNotes:     5,
			MaxNotes:        10,
			MaxDirectives:   10,
			PerFileChars:    8000,
			BudgetChars:     24000,
		},
		Generation: GenerationConfig{
			Provider:       GenerationProviderOpenAI,
			Model:          "gpt-4.1-mini",
			APIKeyEnv:      "OPENAI_API_KEY",
			TimeoutSeconds: 60,
		},
		Voice: VoiceConfig{
			Enabled:        false,
			Model:          "tts-1",
			Voice:          "nova",
			APIKeyEnv:      "OPENAI_API_KEY",
			TimeoutSeconds: 60,
		},
		Security: SecurityConfig{
			TokenTTL: 24,
		},
		Server: ServerConfig{
			Host:                "localhost",
			Port:                8487,
			MaintenanceInterval: 30,
		},
	}
}
