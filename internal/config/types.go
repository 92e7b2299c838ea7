// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

// Config represents the complete application configuration
type Config struct {
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Context    ContextConfig    `mapstructure:"context"`
	Intent     IntentConfig     `mapstructure:"intent"`
	Generation GenerationConfig `mapstructure:"generation"`
	Voice      VoiceConfig      `mapstructure:"voice"`
	Security   SecurityConfig   `mapstructure:"security"`
	Server     ServerConfig     `mapstructure:"server"`
}

// StorageConfig holds the on-disk layout for per-user data
type StorageConfig struct {
	DataRoot string `mapstructure:"data_root"` // Root for users/<name>/{memory.json,directives.json,files/}
}

// DatabaseConfig holds settings for the relational index (users, tokens, file metadata)
type DatabaseConfig struct {
	Type        string `mapstructure:"type"` // "sqlite" or "postgres"
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// ContextConfig bounds what the assembler may place into a single turn
type ContextConfig struct {
	MaxHistoryTurns int `mapstructure:"max_history_turns"` // Most recent conversation turns kept
	RecentNotes     int `mapstructure:"recent_notes"`      // Notes included when no domain matches
	MaxNotes        int `mapstructure:"max_notes"`         // Cap on domain-filtered notes
	MaxDirectives   int `mapstructure:"max_directives"`    // Cap on active directives
	PerFileChars    int `mapstructure:"per_file_chars"`    // Per-file content bound
	BudgetChars     int `mapstructure:"budget_chars"`      // Aggregate bundle bound
}

// IntentConfig configures the rule-based intent resolver
type IntentConfig struct {
	// Domains maps a domain tag to the keywords that signal it,
	// e.g. "esg": ["esg", "sustentabilidade", "carbono"]
	Domains map[string][]string `mapstructure:"domains"`
}

// GenerationConfig holds the text-generation capability settings
type GenerationConfig struct {
	Provider       string `mapstructure:"provider"` // "openai"
	Model          string `mapstructure:"model"`
	BaseURL        string `mapstructure:"base_url"`    // Optional override for compatible APIs
	APIKeyEnv      string `mapstructure:"api_key_env"` // Environment variable holding the API key
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// VoiceConfig holds the optional speech synthesis capability settings
type VoiceConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Model          string `mapstructure:"model"`
	Voice          string `mapstructure:"voice"`
	APIKeyEnv      string `mapstructure:"api_key_env"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SecurityConfig holds security-related settings
type SecurityConfig struct {
	TokenTTL int `mapstructure:"token_ttl_hours"`
}

// ServerConfig holds the HTTP listener and maintenance settings
type ServerConfig struct {
	Host                string `mapstructure:"host"`
	Port                int    `mapstructure:"port"`
	MaintenanceInterval int    `mapstructure:"maintenance_interval_minutes"`
}

// GenerationProviders defines valid generation providers
const (
	GenerationProviderOpenAI = "openai"
)

// ValidGenerationProviders returns all valid generation provider values
func ValidGenerationProviders() []string {
	return []string{GenerationProviderOpenAI}
}

// isValidType is a generic helper to check if a type is in a list of valid types
func isValidType(aType string, validTypes []string) bool {
	for _, valid := range validTypes {
		if aType == valid {
			return true
		}
	}
	return false
}

// IsValidGenerationProvider checks if a provider is valid
func IsValidGenerationProvider(provider string) bool {
	return isValidType(provider, ValidGenerationProviders())
}
